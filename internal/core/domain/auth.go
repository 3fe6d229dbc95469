package domain

// Role is the permission level carried by an access token
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleReader Role = "reader"
)

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	Subject   string `json:"sub"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// AuthContext contains the authenticated caller for the request context
type AuthContext struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

// IsAdmin checks if the caller may trigger sweeps and rebuilds
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}
