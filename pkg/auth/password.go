package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/restauth/pkg/logger"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores everything past 72 bytes
)

// PasswordAuthenticator defines password-based authentication operations
type PasswordAuthenticator interface {
	Register(ctx context.Context, email, password, name string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*User, error)
	CheckPassword(ctx context.Context, id uuid.UUID, password string) error
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
}

// PasswordStorage defines the storage operations required for password authentication
type PasswordStorage interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	StorePasswordHash(ctx context.Context, userID uuid.UUID, hash []byte) error
	GetPasswordHash(ctx context.Context, userID uuid.UUID) ([]byte, error)
}

// passwordService provides password-based authentication
type passwordService struct {
	storage    PasswordStorage
	bcryptCost int
	logger     *slog.Logger
	validate   *validator.Validate
	dummyHash  []byte
	now        func() time.Time
}

// PasswordOption configures the password service.
type PasswordOption func(*passwordService)

// WithPasswordLogger sets a custom logger for the service
func WithPasswordLogger(logger *slog.Logger) PasswordOption {
	return func(s *passwordService) {
		s.logger = logger
	}
}

// WithBcryptCost sets the bcrypt cost for password hashing
func WithBcryptCost(cost int) PasswordOption {
	return func(s *passwordService) {
		s.bcryptCost = cost
	}
}

// NewPasswordService creates a new password authentication service
func NewPasswordService(storage PasswordStorage, opts ...PasswordOption) PasswordAuthenticator {
	s := &passwordService{
		storage:    storage,
		bcryptCost: bcrypt.DefaultCost,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Unknown emails are compared against this hash so they cost as much as a wrong password.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("restauth-dummy-password"), s.bcryptCost)

	return s
}

// Register creates a new user with email and password
func (s *passwordService) Register(ctx context.Context, email, password, name string) (*User, error) {
	email = normalizeEmail(email)

	if err := s.validate.Var(email, "required,email,max=254"); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return nil, ErrWeakPassword
	}

	_, err := s.storage.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:         uuid.New(),
		Email:      email,
		Name:       strings.TrimSpace(name),
		AuthMethod: MethodPassword,
		CreatedAt:  s.now(),
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.storage.StorePasswordHash(ctx, user.ID, hash); err != nil {
		// Clean up the user record if password storage fails to maintain consistency
		if deleteErr := s.storage.DeleteUser(ctx, user.ID); deleteErr != nil {
			s.logger.Error("failed to cleanup user after password save failure",
				logger.UserID(user.ID.String()),
				logger.Error(deleteErr),
				logger.Component("password"),
			)
		}
		return nil, fmt.Errorf("failed to save password: %w", err)
	}

	return user, nil
}

// Authenticate verifies email and password, returns user if valid.
// Returns generic ErrInvalidCredentials for any failure to prevent user enumeration attacks.
func (s *passwordService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.logger.ErrorContext(ctx, "failed to load user", logger.Error(err), logger.Component("password"))
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	hash, err := s.storage.GetPasswordHash(ctx, user.ID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *passwordService) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.storage.GetUserByID(ctx, id)
}

// UpdateProfile changes the display name. The email is read-only.
func (s *passwordService) UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*User, error) {
	user, err := s.storage.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Name = strings.TrimSpace(name)
	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// CheckPassword returns ErrInvalidCredentials unless password matches the stored hash.
func (s *passwordService) CheckPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := s.storage.GetPasswordHash(ctx, id)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// SetPassword replaces the password hash of an existing user.
func (s *passwordService) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrWeakPassword
	}
	if _, err := s.storage.GetUserByID(ctx, id); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.storage.StorePasswordHash(ctx, id, hash); err != nil {
		return fmt.Errorf("failed to save password: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
