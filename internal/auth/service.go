package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/models"
)

// Common errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrEmailTaken         = errors.New("email already registered")
	ErrStaleToken         = errors.New("refresh token no longer valid")
)

// Service implements registration, login and token lifecycle on top of the
// user half of the document store.
type Service struct {
	store docstore.Store
	jwt   *JWTManager
}

// NewService creates a new auth service
func NewService(store docstore.Store, jwt *JWTManager) *Service {
	return &Service{store: store, jwt: jwt}
}

// TokenPair is an issued access/refresh token pair
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register creates a new user account and signs it in
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*models.User, *TokenPair, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		DisplayName:  displayName,
		PasswordHash: hash,
		IsActive:     true,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("User registered")

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login verifies credentials and issues a token pair
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.store.UpdateUser(ctx, user); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Failed to record login time")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh exchanges a refresh token for a fresh pair. Tokens issued before
// the user's last logout carry a stale generation and are rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	claims, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, ErrStaleToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, nil, ErrStaleToken
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil, ErrStaleToken
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}

	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}

	if claims.TokenGeneration != user.TokenGeneration {
		return nil, nil, ErrStaleToken
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout invalidates every outstanding refresh token for the user by
// bumping the token generation.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	user.TokenGeneration++
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	log.Info().Str("user_id", userID.String()).Msg("User logged out")
	return nil
}

// ValidateAccessToken validates an access token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.jwt.ValidateToken(tokenString)
}

func (s *Service) issuePair(user *models.User) (*TokenPair, error) {
	access, refresh, err := s.jwt.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
