package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "integer", input: "750000", want: "750000"},
		{name: "negative", input: "-200000", want: "-200000"},
		{name: "cents", input: "23.40", want: "23.4"},
		{name: "whitespace trimmed", input: " 12.5 ", want: "12.5"},
		{name: "six decimal places", input: "0.000001", want: "0.000001"},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "not a number", input: "12,50", wantErr: true},
		{name: "too precise", input: "0.0000001", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1234.50", Format(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "0.00", Format(decimal.Zero))
	assert.Equal(t, "-200000.00", Format(decimal.RequireFromString("-200000")))
	// Extra precision is preserved rather than silently rounded.
	assert.Equal(t, "0.125", Format(decimal.RequireFromString("0.125")))
}

func TestSum(t *testing.T) {
	got := Sum(
		decimal.RequireFromString("0.05"),
		decimal.RequireFromString("23.40"),
		decimal.RequireFromString("100.00"),
	)
	assert.Equal(t, "123.45", got.String())
}
