package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewPasswordService(t *testing.T) {
	t.Parallel()

	t.Run("creates service with defaults", func(t *testing.T) {
		t.Parallel()

		storage := &MockPasswordStorage{}
		impl := NewPasswordService(storage, WithBcryptCost(bcrypt.MinCost)).(*passwordService)
		assert.Equal(t, storage, impl.storage)
		assert.Equal(t, bcrypt.MinCost, impl.bcryptCost)
		assert.NotNil(t, impl.logger)
		assert.NotEmpty(t, impl.dummyHash)
	})

	t.Run("applies logger option", func(t *testing.T) {
		t.Parallel()

		logger := slog.Default()
		impl := NewPasswordService(&MockPasswordStorage{}, WithPasswordLogger(logger), WithBcryptCost(bcrypt.MinCost)).(*passwordService)
		assert.Equal(t, logger, impl.logger)
	})
}

func TestPasswordService_Register(t *testing.T) {
	t.Parallel()

	t.Run("registers new user", func(t *testing.T) {
		t.Parallel()

		storage := &MockPasswordStorage{}
		svc := NewPasswordService(storage, WithBcryptCost(bcrypt.MinCost))

		storage.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(nil, ErrUserNotFound)
		storage.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *User) bool {
			return u.Email == "jane@example.com" && u.Name == "Jane" && u.AuthMethod == MethodPassword
		})).Return(nil)
		storage.On("StorePasswordHash", mock.Anything, mock.Anything, mock.MatchedBy(func(hash []byte) bool {
			return bcrypt.CompareHashAndPassword(hash, []byte("s3cret-pass")) == nil
		})).Return(nil)

		user, err := svc.Register(context.Background(), "  Jane@Example.com ", "s3cret-pass", " Jane ")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.Equal(t, "jane@example.com", user.Email)
		storage.AssertExpectations(t)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name     string
			email    string
			password string
			wantErr  error
		}{
			{"empty email", "", "s3cret-pass", ErrInvalidEmail},
			{"malformed email", "not-an-email", "s3cret-pass", ErrInvalidEmail},
			{"short password", "jane@example.com", "short", ErrWeakPassword},
			{"long password", "jane@example.com", string(make([]byte, 73)), ErrWeakPassword},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				storage := &MockPasswordStorage{}
				svc := NewPasswordService(storage, WithBcryptCost(bcrypt.MinCost))

				_, err := svc.Register(context.Background(), tt.email, tt.password, "")
				assert.ErrorIs(t, err, tt.wantErr)
				storage.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("rejects existing email", func(t *testing.T) {
		t.Parallel()

		storage := &MockPasswordStorage{}
		svc := NewPasswordService(storage, WithBcryptCost(bcrypt.MinCost))
		storage.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(&User{ID: uuid.New()}, nil)

		_, err := svc.Register(context.Background(), "jane@example.com", "s3cret-pass", "")
		assert.ErrorIs(t, err, ErrUserAlreadyExists)
	})

	t.Run("removes user when hash cannot be stored", func(t *testing.T) {
		t.Parallel()

		storage := &MockPasswordStorage{}
		svc := NewPasswordService(storage, WithBcryptCost(bcrypt.MinCost))
		storage.On("GetUserByEmail", mock.Anything, mock.Anything).Return(nil, ErrUserNotFound)
		storage.On("CreateUser", mock.Anything, mock.Anything).Return(nil)
		storage.On("StorePasswordHash", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))
		storage.On("DeleteUser", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.Register(context.Background(), "jane@example.com", "s3cret-pass", "")
		require.Error(t, err)
		storage.AssertCalled(t, "DeleteUser", mock.Anything, mock.Anything)
	})
}

func TestPasswordService_Authenticate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	svc := NewPasswordService(storage, WithBcryptCost(bcrypt.MinCost))

	registered, err := svc.Register(ctx, "jane@example.com", "s3cret-pass", "Jane")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "JANE@example.com", "s3cret-pass", nil},
		{"wrong password", "jane@example.com", "wrong-pass", ErrInvalidCredentials},
		{"unknown email", "john@example.com", "s3cret-pass", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			user, err := svc.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, registered.ID, user.ID)
		})
	}

	got, err := svc.GetUser(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.Name)
}

func TestPasswordService_ChangePassword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewPasswordService(NewMemoryStorage(), WithBcryptCost(bcrypt.MinCost))
	user, err := svc.Register(ctx, "jane@example.com", "s3cret-pass", "Jane")
	require.NoError(t, err)

	assert.NoError(t, svc.CheckPassword(ctx, user.ID, "s3cret-pass"))
	assert.ErrorIs(t, svc.CheckPassword(ctx, user.ID, "wrong-pass"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.CheckPassword(ctx, uuid.New(), "s3cret-pass"), ErrInvalidCredentials)

	assert.ErrorIs(t, svc.SetPassword(ctx, user.ID, "short"), ErrWeakPassword)
	assert.ErrorIs(t, svc.SetPassword(ctx, uuid.New(), "n3w-s3cret-pass"), ErrUserNotFound)

	require.NoError(t, svc.SetPassword(ctx, user.ID, "n3w-s3cret-pass"))
	_, err = svc.Authenticate(ctx, "jane@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "jane@example.com", "n3w-s3cret-pass")
	assert.NoError(t, err)
}

func TestPasswordService_UpdateProfile(t *testing.T) {
	t.Parallel()

	t.Run("trims and stores the name", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		svc := NewPasswordService(NewMemoryStorage(), WithBcryptCost(bcrypt.MinCost))
		user, err := svc.Register(ctx, "jane@example.com", "s3cret-pass", "Jane")
		require.NoError(t, err)

		updated, err := svc.UpdateProfile(ctx, user.ID, "  Jane Doe ")
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", updated.Name)

		got, err := svc.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", got.Name)
		assert.Equal(t, "jane@example.com", got.Email)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		storage := &MockPasswordStorage{}
		id := uuid.New()
		storage.On("GetUserByID", mock.Anything, id).Return(nil, ErrUserNotFound)

		_, err := NewPasswordService(storage, WithBcryptCost(bcrypt.MinCost)).UpdateProfile(context.Background(), id, "x")
		assert.ErrorIs(t, err, ErrUserNotFound)
		storage.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
	})

	t.Run("storage failure is wrapped", func(t *testing.T) {
		t.Parallel()

		storage := &MockPasswordStorage{}
		id := uuid.New()
		boom := errors.New("boom")
		storage.On("GetUserByID", mock.Anything, id).Return(&User{ID: id, Email: "a@example.com"}, nil)
		storage.On("UpdateUser", mock.Anything, mock.Anything).Return(boom)

		_, err := NewPasswordService(storage, WithBcryptCost(bcrypt.MinCost)).UpdateProfile(context.Background(), id, "x")
		assert.ErrorIs(t, err, boom)
	})
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	user := &User{ID: uuid.New(), Email: "jane@example.com"}

	require.NoError(t, storage.CreateUser(ctx, user))
	assert.ErrorIs(t, storage.CreateUser(ctx, &User{ID: uuid.New(), Email: "jane@example.com"}), ErrUserAlreadyExists)

	require.NoError(t, storage.StorePasswordHash(ctx, user.ID, []byte("hash")))
	hash, err := storage.GetPasswordHash(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), hash)

	require.NoError(t, storage.UpdateUser(ctx, &User{ID: user.ID, Email: "other@example.com", Name: "Jane"}))
	got, err := storage.GetUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.Name)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.ErrorIs(t, storage.UpdateUser(ctx, &User{ID: uuid.New()}), ErrUserNotFound)

	require.NoError(t, storage.DeleteUser(ctx, user.ID))
	_, err = storage.GetUserByEmail(ctx, user.Email)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = storage.GetPasswordHash(ctx, user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, storage.StorePasswordHash(ctx, user.ID, nil), ErrUserNotFound)
}
