package driven

import "github.com/custodia-labs/sercha-factcheck/internal/core/domain"

// AuthAdapter handles token cryptographic operations for the admin API.
type AuthAdapter interface {
	// GenerateToken signs claims into a bearer token.
	GenerateToken(claims *domain.TokenClaims) (string, error)

	// ParseToken validates a bearer token and returns its claims.
	// Returns domain.ErrTokenExpired or domain.ErrTokenInvalid on failure.
	ParseToken(token string) (*domain.TokenClaims, error)
}
