package user

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinkeep/coinkeep/pkg/logger"
)

// memoryRepo implements Repository in memory for testing
type memoryRepo struct {
	byID    map[uuid.UUID]*User
	byEmail map[string]*User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		byID:    make(map[uuid.UUID]*User),
		byEmail: make(map[string]*User),
	}
}

func (r *memoryRepo) Create(ctx context.Context, u *User) error {
	if _, ok := r.byEmail[u.Email]; ok {
		return ErrUserAlreadyExists
	}
	copied := *u
	r.byID[u.ID] = &copied
	r.byEmail[u.Email] = &copied
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memoryRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memoryRepo) Update(ctx context.Context, u *User) error {
	if _, ok := r.byID[u.ID]; !ok {
		return ErrUserNotFound
	}
	copied := *u
	r.byID[u.ID] = &copied
	r.byEmail[u.Email] = &copied
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	u, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	return nil
}

func (r *memoryRepo) Exists(ctx context.Context, email string) (bool, error) {
	_, ok := r.byEmail[email]
	return ok, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, logger.New("development", io.Discard))
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())

	u, err := svc.Register(ctx, "alice@example.com", "Alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "Alice", u.Name)
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, "correct horse", u.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())

	_, err := svc.Register(ctx, "alice@example.com", "Alice", "correct horse")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.com", "Other Alice", "different pass")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())

	_, err := svc.Register(ctx, "not-an-email", "Alice", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(ctx, "alice@example.com", "Alice", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo)

	registered, err := svc.Register(ctx, "alice@example.com", "Alice", "correct horse")
	require.NoError(t, err)

	u, err := svc.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)
	assert.NotNil(t, u.LastLoginAt)

	_, err = svc.Login(ctx, "alice@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	// Unknown email reads the same as a bad password.
	_, err = svc.Login(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())

	registered, err := svc.Register(ctx, "alice@example.com", "Alice", "correct horse")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, registered.ID, "Alice B")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.Name)

	got, err := svc.GetByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got.Name)
}
