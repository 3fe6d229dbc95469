package mocks

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

var _ driven.AuthAdapter = (*MockAuthAdapter)(nil)

const mockTokenPrefix = "mock."

// MockAuthAdapter issues unsigned "mock.<base64 claims>" tokens.
// Only for tests.
type MockAuthAdapter struct {
	mu     sync.Mutex
	issued int

	// GenerateErr fails every GenerateToken call when set
	GenerateErr error
}

func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{}
}

// EncodeMockToken builds a token the mock will accept, expired or not.
func EncodeMockToken(claims domain.TokenClaims) string {
	data, _ := json.Marshal(claims)
	return mockTokenPrefix + base64.RawURLEncoding.EncodeToString(data)
}

func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	if m.GenerateErr != nil {
		return "", m.GenerateErr
	}
	m.mu.Lock()
	m.issued++
	m.mu.Unlock()
	return EncodeMockToken(*claims), nil
}

func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	payload, ok := strings.CutPrefix(token, mockTokenPrefix)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	var claims domain.TokenClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if claims.ExpiresAt != 0 && time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}
	return &claims, nil
}

// Issued returns how many tokens were generated.
func (m *MockAuthAdapter) Issued() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issued
}
