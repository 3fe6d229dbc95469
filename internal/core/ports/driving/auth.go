package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
)

// AuthService issues and validates admin access tokens
type AuthService interface {
	// IssueToken mints a signed token for subject with the given role and lifetime
	IssueToken(ctx context.Context, subject string, role domain.Role, ttl time.Duration) (string, error)

	// ValidateToken validates a JWT token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
}
