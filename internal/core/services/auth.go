package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// authService issues and checks the stateless admin tokens
type authService struct {
	authAdapter driven.AuthAdapter
	defaultTTL  time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(authAdapter driven.AuthAdapter) driving.AuthService {
	return &authService{
		authAdapter: authAdapter,
		defaultTTL:  24 * time.Hour,
	}
}

// IssueToken mints a token for subject. A zero ttl uses 24 hours.
func (s *authService) IssueToken(ctx context.Context, subject string, role domain.Role, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", domain.ErrInvalidInput
	}
	if role != domain.RoleAdmin && role != domain.RoleReader {
		return "", domain.ErrInvalidInput
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := time.Now()
	claims := &domain.TokenClaims{
		Subject:   subject,
		Role:      role,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	return s.authAdapter.GenerateToken(claims)
}

// ValidateToken validates a JWT token and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	if time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}

	return &domain.AuthContext{
		Subject: claims.Subject,
		Role:    claims.Role,
	}, nil
}
