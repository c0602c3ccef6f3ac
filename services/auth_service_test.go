package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type fakeUserRepository struct {
	users map[string]repositories.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]repositories.User)}
}

func (r *fakeUserRepository) CreateUser(email, hashedPassword string, roles []string) (string, error) {
	if _, ok := r.users[email]; ok {
		return "", errors.ErrUserAlreadyExists
	}
	id := "user-" + email
	r.users[email] = repositories.User{
		ID:           id,
		Email:        email,
		PasswordHash: hashedPassword,
		Roles:        roles,
		CreatedAt:    time.Now().UTC(),
	}
	return id, nil
}

func (r *fakeUserRepository) GetUserByEmail(email string) (repositories.User, error) {
	user, ok := r.users[email]
	if !ok {
		return repositories.User{}, errors.ErrInvalidCredentials
	}
	return user, nil
}

func newAuthService(repo repositories.IUserRepository) *AuthService {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewAuthService(repo, tokens, slog.Default())
}

func TestRegisterThenLogin(t *testing.T) {
	req := require.New(t)
	service := newAuthService(newFakeUserRepository())

	token, err := service.Register("ops@example.com", "ComplexPass123!")
	req.NoError(err)
	req.NotEmpty(token)

	token, err = service.Login("ops@example.com", "ComplexPass123!")
	req.NoError(err)
	req.NotEmpty(token)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	req := require.New(t)
	service := newAuthService(newFakeUserRepository())

	_, err := service.Register("ops@example.com", "ComplexPass123!")
	req.NoError(err)

	_, err = service.Register("ops@example.com", "OtherComplex123!")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestLoginWrongPassword(t *testing.T) {
	req := require.New(t)
	service := newAuthService(newFakeUserRepository())

	_, err := service.Register("ops@example.com", "ComplexPass123!")
	req.NoError(err)

	_, err = service.Login("ops@example.com", "NotThePassword1!")
	req.ErrorIs(err, errors.ErrInvalidCredentials)

	_, err = service.Login("ghost@example.com", "ComplexPass123!")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestSeedAdminGrantsElevation(t *testing.T) {
	req := require.New(t)
	repo := newFakeUserRepository()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	service := NewAuthService(repo, tokens, slog.Default())

	req.NoError(service.SeedAdmin("root@example.com", "SuperSecret123!"))
	// Idempotent across restarts.
	req.NoError(service.SeedAdmin("root@example.com", "SuperSecret123!"))

	token, err := service.Login("root@example.com", "SuperSecret123!")
	req.NoError(err)

	elevated, err := tokens.VerifyElevation(string(token))
	req.NoError(err)
	req.True(elevated)
}

func TestSeedAdminSkippedWithoutConfig(t *testing.T) {
	req := require.New(t)
	repo := newFakeUserRepository()
	service := newAuthService(repo)

	req.NoError(service.SeedAdmin("", ""))
	req.Empty(repo.users)
}
