package services

import (
	goerrors "errors"
	"fmt"
	"log/slog"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type IAuthService interface {
	Login(email, password string) (Token, error)
	Register(email, password string) (Token, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenManager
	log            *slog.Logger
}

type Token string

func NewAuthService(repo repositories.IUserRepository, tokens *auth.TokenManager, log *slog.Logger) *AuthService {
	return &AuthService{userRepository: repo, tokens: tokens, log: log}
}

func (s *AuthService) Register(email, password string) (Token, error) {
	valReq := auth.RegisterRequest{
		Email:    email,
		Password: password,
	}

	// Validate business rules before any expensive cryptographic
	// operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing happens in the service layer to keep the repository
	// unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.userRepository.CreateUser(email, hashedPassword, []string{"user"})
	if err != nil {
		return "", err // Will propagate ErrUserAlreadyExists if email is taken
	}

	token, err := s.tokens.GenerateToken(userID, []string{"user"})
	if err != nil {
		return "", errors.ErrTokenGeneration
	}

	return Token(token), nil
}

func (s *AuthService) Login(email, password string) (Token, error) {
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Roles)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}

	return Token(token), nil
}

// SeedAdmin provisions the initial operator account from configuration
// so a fresh relay is administrable without a manual registration. A
// second start with the same email is a no-op.
func (s *AuthService) SeedAdmin(email, password string) error {
	if email == "" || password == "" {
		s.log.Debug("No admin account configured")
		return nil
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing failed: %w", err)
	}

	_, err = s.userRepository.CreateUser(email, hashedPassword, []string{"user", auth.RoleAdmin})
	if err != nil {
		if goerrors.Is(err, errors.ErrUserAlreadyExists) {
			s.log.Debug("Admin account already present", "email", email)
			return nil
		}
		return err
	}

	s.log.Info("Admin account seeded", "email", email)
	return nil
}
