package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "valid bearer token",
			header:   "Bearer abc123",
			expected: "abc123",
		},
		{
			name:     "bearer with extra spaces",
			header:   "Bearer   token-with-spaces   ",
			expected: "token-with-spaces",
		},
		{
			name:     "lowercase bearer",
			header:   "bearer token123",
			expected: "token123",
		},
		{
			name:     "empty header",
			header:   "",
			expected: "",
		},
		{
			name:     "no bearer prefix",
			header:   "token123",
			expected: "",
		},
		{
			name:     "basic auth",
			header:   "Basic dXNlcjpwYXNz",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			result := extractBearerToken(req)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestGetAuthContext(t *testing.T) {
	result := GetAuthContext(context.TODO())
	if result != nil {
		t.Error("expected nil for empty context")
	}

	authCtx := &domain.AuthContext{
		Subject: "ops",
		Role:    domain.RoleAdmin,
	}
	ctx := context.WithValue(context.Background(), authContextKey, authCtx)
	result = GetAuthContext(ctx)
	if result == nil {
		t.Fatal("expected auth context to be returned")
	}
	if result.Subject != "ops" {
		t.Errorf("expected subject ops, got %s", result.Subject)
	}
	if result.Role != domain.RoleAdmin {
		t.Errorf("expected role admin, got %s", result.Role)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	middleware := NewRequestIDMiddleware()

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	// Generated when absent
	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	middleware.Handler(handler).ServeHTTP(rr, req)

	if seen == "" {
		t.Fatal("expected a generated request id")
	}
	if got := rr.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("expected response header %q, got %q", seen, got)
	}

	// Reused when sent
	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	middleware.Handler(handler).ServeHTTP(rr, req)

	if seen != "abc-123" {
		t.Errorf("expected caller request id, got %q", seen)
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	middleware := NewLoggingMiddleware(nil)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("OK"))
	})

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()

	middleware.Handler(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", rr.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	middleware := NewRecoveryMiddleware(nil)

	// Handler that panics
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()

	// Should not panic
	middleware.Handler(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	middleware := NewCORSMiddleware([]string{"https://example.com"})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Test allowed origin
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "https://example.com")
	rr := httptest.NewRecorder()

	middleware.Handler(handler).ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
		t.Errorf("expected CORS origin header to be set")
	}

	// Test preflight
	req = httptest.NewRequest("OPTIONS", "/test", nil)
	req.Header.Set("Origin", "https://example.com")
	rr = httptest.NewRecorder()

	middleware.Handler(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for preflight, got %d", rr.Code)
	}
}

func TestCORSMiddleware_DisallowedOrigin(t *testing.T) {
	middleware := NewCORSMiddleware([]string{"https://example.com"})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "https://evil.com")
	rr := httptest.NewRecorder()

	middleware.Handler(handler).ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected no CORS header for disallowed origin")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	middleware := NewRateLimitMiddleware(0.001, 2)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		middleware.Handler(handler).ServeHTTP(rr, httptest.NewRequest("POST", "/test", nil))
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("expected burst of 2 to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", codes[2])
	}
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	middleware := NewRateLimitMiddleware(0, 0)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 20; i++ {
		rr := httptest.NewRecorder()
		middleware.Handler(handler).ServeHTTP(rr, httptest.NewRequest("POST", "/test", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
}

func TestResponseWriter(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rw.statusCode)
	}
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	mockAuth := &mockAuthService{
		validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
			switch token {
			case "valid-token":
				return &domain.AuthContext{Subject: "ops", Role: domain.RoleAdmin}, nil
			case "expired-token":
				return nil, domain.ErrTokenExpired
			default:
				return nil, errors.New("invalid token")
			}
		},
	}
	middleware := NewAuthMiddleware(mockAuth)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"missing token", "", http.StatusUnauthorized, "missing authorization token"},
		{"valid", "Bearer valid-token", http.StatusOK, ""},
		{"expired", "Bearer expired-token", http.StatusUnauthorized, "token expired"},
		{"invalid", "Bearer bad-token", http.StatusUnauthorized, "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				authCtx := GetAuthContext(r.Context())
				if authCtx == nil || authCtx.Subject != "ops" {
					t.Error("expected auth context to be set")
				}
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			middleware.Authenticate(handler).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
			if tt.wantBody != "" {
				if got := decodeError(t, rr); got != tt.wantBody {
					t.Errorf("expected error %q, got %q", tt.wantBody, got)
				}
			}
		})
	}
}

func TestAuthMiddleware_RequireAdmin(t *testing.T) {
	middleware := NewAuthMiddleware(&mockAuthService{})

	tests := []struct {
		name     string
		authCtx  *domain.AuthContext
		wantCode int
	}{
		{"admin", &domain.AuthContext{Subject: "ops", Role: domain.RoleAdmin}, http.StatusOK},
		{"reader", &domain.AuthContext{Subject: "dashboard", Role: domain.RoleReader}, http.StatusForbidden},
		{"no context", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.authCtx != nil {
				req = req.WithContext(context.WithValue(req.Context(), authContextKey, tt.authCtx))
			}
			rr := httptest.NewRecorder()

			middleware.RequireAdmin(handler).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
		})
	}
}
