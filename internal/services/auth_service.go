package services

import (
	"context"
	"strings"

	"monea/internal/auth"
	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

type AuthService struct {
	repo   *storage.Repository
	tokens *auth.TokenService
	logger *log.Logger
}

func NewAuthService(repo *storage.Repository, tokens *auth.TokenService, logger *log.Logger) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, logger: logger.WithComponent(log.ComponentAuth)}
}

// Register creates a user with a hashed password and returns a session token.
func (s *AuthService) Register(ctx context.Context, email, username, password, fullName string) (core.User, string, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, "", err
	}

	u, err := s.repo.CreateUser(ctx, core.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		FullName:     fullName,
		BaseCurrency: core.DefaultCurrency,
	})
	if err != nil {
		return core.User{}, "", err
	}

	token, err := s.tokens.GenerateToken(u.ID)
	if err != nil {
		return core.User{}, "", err
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID)
	return u, token, nil
}

// Login verifies credentials and returns a session token. Lookup and
// password failures collapse into one error so the response does not reveal
// which emails exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return core.User{}, "", core.ErrBadCredentials
	}
	if !u.IsActive {
		return core.User{}, "", core.ErrBadCredentials
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		s.logger.WarnContext(ctx, "Failed login attempt", log.FieldUserID, u.ID)
		return core.User{}, "", core.ErrBadCredentials
	}

	token, err := s.tokens.GenerateToken(u.ID)
	if err != nil {
		return core.User{}, "", err
	}
	return u, token, nil
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.repo.GetUser(ctx, id)
}

// UpdateSettings persists the user-tunable preferences.
func (s *AuthService) UpdateSettings(ctx context.Context, u core.User) (core.User, error) {
	if u.FinancialMonthStartDay < 1 || u.FinancialMonthStartDay > 28 {
		return core.User{}, core.ErrInvalidDay
	}
	if err := s.repo.UpdateUserSettings(ctx, u); err != nil {
		return core.User{}, err
	}
	return s.repo.GetUser(ctx, u.ID)
}
