package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/custodia-labs/sercha-factcheck/docs"
	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-factcheck/internal/runtime"
)

// Mock services for testing

type mockAuthService struct {
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) IssueToken(ctx context.Context, subject string, role domain.Role, ttl time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

type mockFactCheckService struct {
	checkFn    func(ctx context.Context, message string) *domain.Verdict
	statsFn    func(ctx context.Context) (*domain.CorpusStats, error)
	overviewFn func(ctx context.Context) (*domain.CorpusOverview, error)
	sourceFn   func(ctx context.Context, source string) (*domain.SourceDetail, error)
	messages   []string
}

func (m *mockFactCheckService) Check(ctx context.Context, message string) *domain.Verdict {
	m.messages = append(m.messages, message)
	if m.checkFn != nil {
		return m.checkFn(ctx, message)
	}
	return domain.ErrorVerdict(errors.New("not implemented"))
}

func (m *mockFactCheckService) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockFactCheckService) Overview(ctx context.Context) (*domain.CorpusOverview, error) {
	if m.overviewFn != nil {
		return m.overviewFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockFactCheckService) SourceDetail(ctx context.Context, source string) (*domain.SourceDetail, error) {
	if m.sourceFn != nil {
		return m.sourceFn(ctx, source)
	}
	return nil, errors.New("not implemented")
}

type mockIngestionService struct {
	last *domain.SweepResult
}

func (m *mockIngestionService) Sweep(ctx context.Context) (*domain.SweepResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockIngestionService) Rebuild(ctx context.Context) (*domain.SweepResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockIngestionService) LastSweep() *domain.SweepResult {
	return m.last
}

// adminAuth accepts "admin-token" as admin and "reader-token" as reader
func adminAuth() *mockAuthService {
	return &mockAuthService{
		validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
			switch token {
			case "admin-token":
				return &domain.AuthContext{Subject: "ops", Role: domain.RoleAdmin}, nil
			case "reader-token":
				return &domain.AuthContext{Subject: "dashboard", Role: domain.RoleReader}, nil
			}
			return nil, domain.ErrTokenInvalid
		},
	}
}

type testServer struct {
	server    *Server
	factCheck *mockFactCheckService
	ingestion *mockIngestionService
	queue     *mocks.MockTaskQueue
	services  *runtime.Services
}

func newTestServer(t *testing.T, ready bool) *testServer {
	t.Helper()

	services := runtime.NewServices(domain.NewRuntimeConfig("sqlite", "memory"))
	if ready {
		services.SetEmbeddingService(mocks.NewMockEmbeddingService())
		services.MarkReady()
	}

	ts := &testServer{
		factCheck: &mockFactCheckService{},
		ingestion: &mockIngestionService{},
		queue:     mocks.NewMockTaskQueue(),
		services:  services,
	}

	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	cfg.CheckRate = 0
	ts.server = NewServer(cfg, adminAuth(), ts.factCheck, ts.ingestion, services, ts.queue, nil)
	return ts
}

func (ts *testServer) do(method, path string, body []byte, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false in error response")
	}
	return resp.Error
}

func supportedVerdict() *domain.Verdict {
	meta := &domain.ChunkMetadata{Source: "tower.pdf", Title: "Towers", Author: "A. Writer", ChunkIndex: 3}
	return &domain.Verdict{
		IsSupported: true,
		Confidence:  0.82,
		ClaimResults: []domain.ClaimResult{
			{Claim: "The tower is 330 metres tall", Confidence: 0.82, SupportingText: "It stands 330 m high", Source: meta},
		},
		Sources: []domain.SourceRef{{Title: "Towers", Source: "tower.pdf"}},
	}
}

func TestNewServer(t *testing.T) {
	ts := newTestServer(t, true)
	if ts.server == nil {
		t.Fatal("expected non-nil server")
	}
	if ts.server.Addr() != "0.0.0.0:8080" {
		t.Errorf("expected addr 0.0.0.0:8080, got %s", ts.server.Addr())
	}
	if ts.server.Handler() == nil {
		t.Error("expected handler")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %s", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.Version != "dev" {
		t.Errorf("expected version dev, got %s", cfg.Version)
	}
	if cfg.CheckRate <= 0 || cfg.CheckBurst <= 0 {
		t.Error("expected fact-check limiting enabled by default")
	}
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name  string
		ready bool
	}{
		{"available", true},
		{"not available", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.ready)
			rr := ts.do("GET", "/health", nil, "")

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != "healthy" {
				t.Errorf("expected status healthy, got %s", resp.Status)
			}
			if resp.FactCheckerAvailable != tt.ready {
				t.Errorf("expected factchecker_available=%v, got %v", tt.ready, resp.FactCheckerAvailable)
			}
		})
	}
}

func TestHandleHealth_RequestID(t *testing.T) {
	ts := newTestServer(t, true)
	rr := ts.do("GET", "/health", nil, "")
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("expected request id header on every response")
	}
}

func TestHandleReady(t *testing.T) {
	ts := newTestServer(t, true)
	rr := ts.do("GET", "/ready", nil, "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	ts.queue.PingErr = errors.New("redis down")
	rr = ts.do("GET", "/ready", nil, "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 when queue is down, got %d", rr.Code)
	}

	ts = newTestServer(t, false)
	rr = ts.do("GET", "/ready", nil, "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 before startup, got %d", rr.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	ts := newTestServer(t, true)
	rr := ts.do("GET", "/version", nil, "")

	var resp VersionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", resp.Version)
	}
}

func TestHandleSwaggerDoc(t *testing.T) {
	ts := newTestServer(t, true)
	rr := ts.do("GET", "/swagger/doc.json", nil, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("expected valid JSON document: %v", err)
	}
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		t.Fatal("expected paths object")
	}
	if _, ok := paths["/factcheck"]; !ok {
		t.Error("expected /factcheck to be documented")
	}
}

func TestHandleFactCheck_Success(t *testing.T) {
	ts := newTestServer(t, true)
	ts.factCheck.checkFn = func(ctx context.Context, message string) *domain.Verdict {
		return supportedVerdict()
	}

	rr := ts.do("POST", "/api/v1/factcheck", []byte(`{"message":"  The tower is 330 metres tall.  "}`), "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp FactCheckResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Status != domain.VerdictVerified {
		t.Errorf("expected status verified, got %s", resp.Status)
	}
	if resp.Confidence != 0.82 {
		t.Errorf("expected confidence 0.82, got %v", resp.Confidence)
	}
	if len(resp.ClaimResults) != 1 || resp.ClaimResults[0].Source.Source != "tower.pdf" {
		t.Errorf("unexpected claim results: %+v", resp.ClaimResults)
	}
	if len(resp.Sources) != 1 {
		t.Errorf("expected 1 source, got %d", len(resp.Sources))
	}
	if !strings.Contains(resp.FormattedResponse, "tower.pdf") {
		t.Errorf("expected formatted response to cite the source, got %q", resp.FormattedResponse)
	}
	if len(ts.factCheck.messages) != 1 || ts.factCheck.messages[0] != "The tower is 330 metres tall." {
		t.Errorf("expected trimmed message, got %q", ts.factCheck.messages)
	}
}

func TestHandleFactCheck_StatusBands(t *testing.T) {
	tests := []struct {
		confidence float64
		want       domain.VerdictStatus
	}{
		{0.95, domain.VerdictVerified},
		{0.71, domain.VerdictVerified},
		{0.7, domain.VerdictPartial},
		{0.31, domain.VerdictPartial},
		{0.3, domain.VerdictUnverified},
		{0, domain.VerdictUnverified},
	}

	for _, tt := range tests {
		ts := newTestServer(t, true)
		ts.factCheck.checkFn = func(ctx context.Context, message string) *domain.Verdict {
			v := supportedVerdict()
			v.Confidence = tt.confidence
			return v
		}

		rr := ts.do("POST", "/api/v1/factcheck", []byte(`{"message":"Some claim to check."}`), "")
		var resp FactCheckResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != tt.want {
			t.Errorf("confidence %v: expected %s, got %s", tt.confidence, tt.want, resp.Status)
		}
	}
}

func TestHandleFactCheck_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"invalid json", `{not json`, "no message received"},
		{"missing message", `{"text":"hello"}`, "no message received"},
		{"empty message", `{"message":""}`, "empty message"},
		{"whitespace message", `{"message":"   \n\t "}`, "empty message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, true)
			rr := ts.do("POST", "/api/v1/factcheck", []byte(tt.body), "")

			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rr.Code)
			}
			if got := decodeError(t, rr); got != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, got)
			}
			if len(ts.factCheck.messages) != 0 {
				t.Error("expected no check on bad request")
			}
		})
	}
}

func TestHandleFactCheck_NotReady(t *testing.T) {
	ts := newTestServer(t, false)
	rr := ts.do("POST", "/api/v1/factcheck", []byte(`{"message":"The tower is tall."}`), "")

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestHandleFactCheck_ErrorVerdict(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"embedding failure", errors.New("failed to embed claim: timeout"), http.StatusInternalServerError},
		{"embedder gone", domain.ErrNotReady, http.StatusServiceUnavailable},
		{"embedder gone, wrapped", fmt.Errorf("checking claim: %w", domain.ErrNotReady), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, true)
			ts.factCheck.checkFn = func(ctx context.Context, message string) *domain.Verdict {
				return domain.ErrorVerdict(tt.err)
			}

			rr := ts.do("POST", "/api/v1/factcheck", []byte(`{"message":"The tower is tall."}`), "")
			if rr.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
			if got := decodeError(t, rr); !strings.Contains(got, tt.err.Error()) {
				t.Errorf("expected error to mention %q, got %q", tt.err.Error(), got)
			}
		})
	}
}

func TestHandleFactCheck_RateLimited(t *testing.T) {
	services := runtime.NewServices(domain.NewRuntimeConfig("sqlite", "memory"))
	services.SetEmbeddingService(mocks.NewMockEmbeddingService())
	services.MarkReady()

	factCheck := &mockFactCheckService{
		checkFn: func(ctx context.Context, message string) *domain.Verdict { return supportedVerdict() },
	}
	cfg := DefaultConfig()
	cfg.CheckRate = 0.001
	cfg.CheckBurst = 1
	server := NewServer(cfg, adminAuth(), factCheck, &mockIngestionService{}, services, mocks.NewMockTaskQueue(), nil)

	var codes []int
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/api/v1/factcheck", strings.NewReader(`{"message":"The tower is tall."}`))
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected [200 429], got %v", codes)
	}

	// Other endpoints are not limited
	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected health to bypass the limiter, got %d", rr.Code)
	}
}

func TestHandleStats(t *testing.T) {
	ts := newTestServer(t, true)
	ts.factCheck.statsFn = func(ctx context.Context) (*domain.CorpusStats, error) {
		return &domain.CorpusStats{TotalChunks: 42, UniqueSources: 2, Sources: []string{"a.pdf", "b.pdf"}}, nil
	}

	rr := ts.do("GET", "/api/v1/stats", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp StatsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.Stats.TotalChunks != 42 || resp.Stats.UniqueSources != 2 {
		t.Errorf("unexpected stats: %+v", resp.Stats)
	}
}

func TestHandleStats_Error(t *testing.T) {
	ts := newTestServer(t, true)
	ts.factCheck.statsFn = func(ctx context.Context) (*domain.CorpusStats, error) {
		return nil, errors.New("store closed")
	}

	rr := ts.do("GET", "/api/v1/stats", nil, "")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

func TestHandleStatsOverview(t *testing.T) {
	ts := newTestServer(t, true)
	ts.factCheck.overviewFn = func(ctx context.Context) (*domain.CorpusOverview, error) {
		return &domain.CorpusOverview{
			TotalChunks:   5,
			UniqueSources: 1,
			UniqueAuthors: 1,
			Sources:       []domain.SourceDetail{{Source: "a.pdf", Title: "A", Author: "Ann", ChunkCount: 5}},
			Authors:       []string{"Ann"},
		}, nil
	}

	rr := ts.do("GET", "/api/v1/stats/overview", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp OverviewResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Stats.Sources) != 1 || resp.Stats.Sources[0].ChunkCount != 5 {
		t.Errorf("unexpected overview: %+v", resp.Stats)
	}
}

func TestHandleGetSource(t *testing.T) {
	ts := newTestServer(t, true)
	ts.factCheck.sourceFn = func(ctx context.Context, source string) (*domain.SourceDetail, error) {
		if source == "report 2024.pdf" {
			return &domain.SourceDetail{Source: source, Title: "Report", ChunkCount: 7}, nil
		}
		return nil, domain.ErrNotFound
	}

	rr := ts.do("GET", "/api/v1/sources/report%202024.pdf", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp SourceResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Source.ChunkCount != 7 {
		t.Errorf("expected 7 chunks, got %d", resp.Source.ChunkCount)
	}

	rr = ts.do("GET", "/api/v1/sources/missing.pdf", nil, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleTriggerSweep(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		token    string
		wantCode int
		wantType domain.TaskType
	}{
		{"sweep as admin", "/api/v1/admin/sweep", "admin-token", http.StatusAccepted, domain.TaskTypeSweep},
		{"rebuild as admin", "/api/v1/admin/rebuild", "admin-token", http.StatusAccepted, domain.TaskTypeRebuild},
		{"sweep as reader", "/api/v1/admin/sweep", "reader-token", http.StatusForbidden, ""},
		{"sweep without token", "/api/v1/admin/sweep", "", http.StatusUnauthorized, ""},
		{"rebuild with bad token", "/api/v1/admin/rebuild", "garbage", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, true)
			rr := ts.do("POST", tt.path, nil, tt.token)

			if rr.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rr.Code)
			}

			pending := ts.queue.Pending()
			if tt.wantCode != http.StatusAccepted {
				if len(pending) != 0 {
					t.Error("expected nothing enqueued")
				}
				return
			}

			var resp TaskResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(pending) != 1 {
				t.Fatalf("expected 1 enqueued task, got %d", len(pending))
			}
			if resp.TaskID != pending[0].ID {
				t.Errorf("expected task id %s, got %s", pending[0].ID, resp.TaskID)
			}
			if resp.Type != tt.wantType || pending[0].Type != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, resp.Type)
			}
			if pending[0].Trigger != domain.TriggerAPI {
				t.Errorf("expected api trigger, got %s", pending[0].Trigger)
			}
			if resp.Status != domain.TaskStatusPending {
				t.Errorf("expected pending status, got %s", resp.Status)
			}
		})
	}
}

func TestHandleTriggerSweep_EnqueueError(t *testing.T) {
	ts := newTestServer(t, true)
	ts.queue.EnqueueErr = errors.New("queue full")

	rr := ts.do("POST", "/api/v1/admin/sweep", nil, "admin-token")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

func TestHandleLastSweep(t *testing.T) {
	ts := newTestServer(t, true)

	rr := ts.do("GET", "/api/v1/admin/sweep", nil, "admin-token")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 before any sweep, got %d", rr.Code)
	}

	ts.ingestion.last = &domain.SweepResult{
		Success: true,
		Stats:   domain.SweepStats{DocumentsScanned: 3, DocumentsProcessed: 1},
	}
	rr = ts.do("GET", "/api/v1/admin/sweep", nil, "admin-token")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp domain.SweepResult
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.Stats.DocumentsScanned != 3 {
		t.Errorf("unexpected sweep result: %+v", resp)
	}
}

func TestHandleUnknownRoute(t *testing.T) {
	ts := newTestServer(t, true)
	rr := ts.do("GET", "/api/v1/nope", nil, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}

	rr = ts.do("GET", "/api/v1/factcheck", nil, "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}
}

func TestPreview(t *testing.T) {
	if got := preview("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := preview("ääääää", 3); got != "äää..." {
		t.Errorf("expected rune-safe truncation, got %q", got)
	}
}
