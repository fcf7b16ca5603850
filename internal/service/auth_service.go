package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"mediavault/api/internal/config"
	"mediavault/api/internal/ids"
	"mediavault/api/internal/models"
	"mediavault/api/internal/repository"
	"mediavault/api/internal/security"
)

var (
	ErrInvalidInput = errors.New("email and password required")
	ErrEmailTaken   = errors.New("email already registered")
	// ErrInvalidCredentials covers unknown email and wrong password alike;
	// the two must stay indistinguishable to callers.
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// UserStore is the persistence surface the credential service needs.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
}

type AuthService struct {
	users UserStore
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewAuthService(users UserStore, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		cfg:   cfg,
		log:   log,
	}
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Register creates the account. Uniqueness is enforced by the store's
// constraint, so concurrent registrations of one email cannot both commit.
func (s *AuthService) Register(ctx context.Context, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.User{}, ErrInvalidInput
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleUser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.TrimSpace(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return TokenPair{}, ErrInvalidCredentials
	}

	return s.issuePair(user)
}

func (s *AuthService) issuePair(user models.User) (TokenPair, error) {
	access, err := security.MintToken(
		s.cfg.Security.JWTAccessSecret,
		user.ID, user.Email, string(user.Role),
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := security.MintToken(
		s.cfg.Security.JWTRefreshSecret,
		user.ID, user.Email, string(user.Role),
		s.cfg.Security.JWTRefreshTTL,
	)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh validates against the refresh secret only; an access token fails
// here regardless of its payload. The subject is re-resolved so a removed
// account stops minting tokens, and every failure mode surfaces uniformly.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := security.ParseToken(refreshToken, s.cfg.Security.JWTRefreshSecret)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", err
	}

	access, err := security.MintToken(
		s.cfg.Security.JWTAccessSecret,
		user.ID, user.Email, string(user.Role),
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return "", err
	}
	return access, nil
}
