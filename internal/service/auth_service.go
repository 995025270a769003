package service

import (
	"time"

	"github.com/spec-kit/escalation-engine/internal/auth"
	"github.com/spec-kit/escalation-engine/internal/config"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util"
)

// AuthService authenticates the operator principal and issues access tokens.
// The engine has a single operator identity configured via environment; the
// hash takes precedence over the plaintext fallback when both are set.
type AuthService struct {
	cfg    config.AuthConfig
	tokens *auth.TokenManager
	hash   string
}

// NewAuthService constructs the service, hashing the fallback password at
// boot when no precomputed hash is configured.
func NewAuthService(cfg config.AuthConfig) (*AuthService, error) {
	hash := cfg.OperatorPasswordHash
	if hash == "" {
		hashed, err := auth.HashPassword(cfg.OperatorPassword, cfg.BcryptCost)
		if err != nil {
			return nil, err
		}
		hash = hashed
	}
	return &AuthService{
		cfg:    cfg,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		hash:   hash,
	}, nil
}

// Login verifies the operator password and returns a signed token.
func (s *AuthService) Login(password string) (string, time.Time, error) {
	if err := auth.ComparePassword(s.hash, password); err != nil {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.tokens.GenerateToken("operator")
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}
