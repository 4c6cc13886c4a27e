package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coinkeep/coinkeep/pkg/logger"
)

// Service handles user business logic
type Service struct {
	repo Repository
	log  *logger.Logger
}

// NewService creates a new user service
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.WithComponent("user"),
	}
}

// Register registers a new user
// Returns the created user (without password hash exposed) and any error
func (s *Service) Register(ctx context.Context, email, name, password string) (*User, error) {
	user := &User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := user.ValidateEmail(); err != nil {
		return nil, err
	}

	// Check if user already exists
	exists, err := s.repo.Exists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check if user exists: %w", err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	// Hash password
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}

	// Save to database
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user with email and password
// Returns the user if authentication succeeds
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrUserNotFound {
			// Don't reveal that the user doesn't exist
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := user.CheckPassword(password); err != nil {
		return nil, err
	}

	// Update last login timestamp; non-critical, login still succeeds.
	user.UpdateLastLogin()
	if err := s.repo.Update(ctx, user); err != nil {
		s.log.WithError(err).Warn("failed to update last login")
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail retrieves a user by email
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// UpdateProfile changes the user's display name.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Name = name
	user.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}
