package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Balance holds the three balances of a non-market account. The starting
// balance always counts as cleared.
type Balance struct {
	Working   decimal.Decimal `json:"working"`
	Cleared   decimal.Decimal `json:"cleared"`
	Uncleared decimal.Decimal `json:"uncleared"`
}

// Balances folds the entries of one account into its working, cleared and
// uncleared balances. It never rejects input: entries that do not reference
// the account contribute nothing, and an account with no entries and a
// zero starting balance yields zeros.
func Balances(account *Account, entries []*Entry) Balance {
	working := account.StartingBalance
	cleared := account.StartingBalance

	for _, e := range entries {
		c, ok := e.ContributionTo(account.Name)
		if !ok {
			continue
		}
		working = working.Add(c)
		if e.ClearStatus.IsClearedOrReconciled() {
			cleared = cleared.Add(c)
		}
	}

	return Balance{
		Working:   working,
		Cleared:   cleared,
		Uncleared: working.Sub(cleared),
	}
}

// ValuePoint is one step of a market-value replay: the running value
// immediately after the event at At was applied.
type ValuePoint struct {
	At      time.Time       `json:"at"`
	Running decimal.Decimal `json:"running"`
}

// valueEvent is an internal replay event. The starting-balance event sets
// the running total; every other event adds its contribution.
type valueEvent struct {
	at      time.Time
	amount  decimal.Decimal
	isStart bool
	seq     int // original position, tiebreak for equal instants
}

// CurrentValue computes the marked-to-market value of a market-value
// account: the chronological replay of its starting balance and every
// entry touching it, ordered by instant with original order as tiebreak.
// The returned points expose the running value after each event for
// per-line display; only the final value is authoritative.
func CurrentValue(account *Account, entries []*Entry) (decimal.Decimal, []ValuePoint) {
	return replayValue(account, entries, false)
}

// clearedReplayValue is the cleared-only variant used by manual
// reconciliation of market-value accounts: only cleared and reconciled
// entries take part in the replay. The starting balance always counts.
func clearedReplayValue(account *Account, entries []*Entry) decimal.Decimal {
	v, _ := replayValue(account, entries, true)
	return v
}

func replayValue(account *Account, entries []*Entry, clearedOnly bool) (decimal.Decimal, []ValuePoint) {
	events := make([]valueEvent, 0, len(entries)+1)
	events = append(events, valueEvent{
		at:      account.StartingInstant(),
		amount:  account.StartingBalance,
		isStart: true,
	})

	for i, e := range entries {
		if clearedOnly && !e.ClearStatus.IsClearedOrReconciled() {
			continue
		}
		c, ok := e.ContributionTo(account.Name)
		if !ok {
			continue
		}
		events = append(events, valueEvent{
			at:     e.EffectiveInstant(),
			amount: c,
			seq:    i + 1,
		})
	}

	// Stable sort keeps document order for entries sharing an instant,
	// which is what makes the replay deterministic for legacy rows with
	// date-only timestamps.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].at.Before(events[j].at)
	})

	running := decimal.Zero
	points := make([]ValuePoint, 0, len(events))
	for _, ev := range events {
		if ev.isStart {
			running = ev.amount
		} else {
			running = running.Add(ev.amount)
		}
		points = append(points, ValuePoint{At: ev.at, Running: running})
	}

	return running, points
}

// clearedTotal computes the figure a bank statement is compared against:
// a cleared-only replay for market-value accounts, a flat cleared sum for
// everything else. The asymmetry is deliberate; a market-value account's
// statement reflects its position, not its cash flow.
func clearedTotal(account *Account, entries []*Entry) decimal.Decimal {
	if account.Type.IsMarketValue() {
		return clearedReplayValue(account, entries)
	}
	return Balances(account, entries).Cleared
}
