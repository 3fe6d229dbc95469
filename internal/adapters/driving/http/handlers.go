package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/services"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ready"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// HealthResponse represents the liveness response
// @Description Liveness and fact checker availability
type HealthResponse struct {
	Status               string `json:"status" example:"healthy"`
	FactCheckerAvailable bool   `json:"factchecker_available" example:"true"`
}

// FactCheckRequest is the body of a fact-check call
// @Description Message to check against the corpus
type FactCheckRequest struct {
	Message *string `json:"message" example:"The Eiffel Tower is 330 metres tall."`
}

// FactCheckResponse is the result of a fact-check call
// @Description Verdict with per-claim evidence
type FactCheckResponse struct {
	Success           bool                 `json:"success" example:"true"`
	Status            domain.VerdictStatus `json:"status" example:"verified"`
	Confidence        float64              `json:"confidence" example:"0.82"`
	IsSupported       bool                 `json:"is_supported" example:"true"`
	FormattedResponse string               `json:"formatted_response"`
	ClaimResults      []domain.ClaimResult `json:"claim_results"`
	Sources           []domain.SourceRef   `json:"sources"`
}

// StatsResponse wraps corpus statistics
// @Description Corpus statistics
type StatsResponse struct {
	Success bool                `json:"success" example:"true"`
	Stats   *domain.CorpusStats `json:"stats"`
}

// OverviewResponse wraps the per-source corpus breakdown
// @Description Per-source corpus breakdown
type OverviewResponse struct {
	Success bool                   `json:"success" example:"true"`
	Stats   *domain.CorpusOverview `json:"stats"`
}

// SourceResponse wraps one source detail
// @Description Indexed document detail
type SourceResponse struct {
	Success bool                 `json:"success" example:"true"`
	Source  *domain.SourceDetail `json:"source"`
}

// TaskResponse describes an enqueued task
// @Description Enqueued background task
type TaskResponse struct {
	TaskID string            `json:"task_id" example:"0b8f6c3e-1d5a-4d6f-9a59-5f7a2c1e9b10"`
	Type   domain.TaskType   `json:"type" example:"sweep"`
	Status domain.TaskStatus `json:"status" example:"pending"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns liveness and whether the fact checker can serve requests
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:               "healthy",
		FactCheckerAvailable: s.services.Ready(),
	})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns 200 once startup validation finished and the task queue answers
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "Not ready"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.services.Ready() {
		writeError(w, http.StatusServiceUnavailable, domain.ErrNotReady.Error())
		return
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "task queue unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleSwaggerDoc serves the registered OpenAPI document
func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// Fact-check endpoints

// handleFactCheck godoc
// @Summary      Fact-check a message
// @Description  Splits the message into claims and scores each against the indexed corpus
// @Tags         FactCheck
// @Accept       json
// @Produce      json
// @Param        request  body      FactCheckRequest  true  "Message to check"
// @Success      200      {object}  FactCheckResponse
// @Failure      400      {object}  ErrorResponse  "Missing or empty message"
// @Failure      429      {object}  ErrorResponse  "Rate limit exceeded"
// @Failure      500      {object}  ErrorResponse  "Fact check failed"
// @Failure      503      {object}  ErrorResponse  "Fact checker not available"
// @Router       /factcheck [post]
func (s *Server) handleFactCheck(w http.ResponseWriter, r *http.Request) {
	if !s.services.Ready() {
		writeError(w, http.StatusServiceUnavailable, "fact checker not available")
		return
	}

	var req FactCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == nil {
		writeError(w, http.StatusBadRequest, "no message received")
		return
	}

	message := strings.TrimSpace(*req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "empty message")
		return
	}

	s.logger.Info("fact-checking message",
		"preview", preview(message, 100),
		"request_id", GetRequestID(r.Context()),
	)

	verdict := s.factCheckService.Check(r.Context(), message)
	if verdict.HasError() {
		status := http.StatusInternalServerError
		if errors.Is(verdict.Err(), domain.ErrNotReady) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "fact check failed: "+verdict.Error)
		return
	}

	writeJSON(w, http.StatusOK, FactCheckResponse{
		Success:           true,
		Status:            verdict.Status(),
		Confidence:        verdict.Confidence,
		IsSupported:       verdict.IsSupported,
		FormattedResponse: services.FormatVerdict(verdict),
		ClaimResults:      verdict.ClaimResults,
		Sources:           verdict.Sources,
	})
}

// Corpus endpoints

// handleStats godoc
// @Summary      Corpus statistics
// @Description  Returns chunk and source counts of the indexed corpus
// @Tags         Corpus
// @Produce      json
// @Success      200  {object}  StatsResponse
// @Failure      500  {object}  ErrorResponse  "Failed to read statistics"
// @Router       /stats [get]
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.factCheckService.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to read stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read statistics")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Success: true, Stats: stats})
}

// handleStatsOverview godoc
// @Summary      Corpus overview
// @Description  Returns per-source title, author, chunk count and processing date
// @Tags         Corpus
// @Produce      json
// @Success      200  {object}  OverviewResponse
// @Failure      500  {object}  ErrorResponse  "Failed to read statistics"
// @Router       /stats/overview [get]
func (s *Server) handleStatsOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.factCheckService.Overview(r.Context())
	if err != nil {
		s.logger.Error("failed to read overview", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read statistics")
		return
	}
	writeJSON(w, http.StatusOK, OverviewResponse{Success: true, Stats: overview})
}

// handleGetSource godoc
// @Summary      Get source
// @Description  Returns details of one indexed document by file name
// @Tags         Corpus
// @Produce      json
// @Param        name  path      string  true  "Document file name"
// @Success      200   {object}  SourceResponse
// @Failure      404   {object}  ErrorResponse  "Source not found"
// @Failure      500   {object}  ErrorResponse  "Failed to read source"
// @Router       /sources/{name} [get]
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	detail, err := s.factCheckService.SourceDetail(r.Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		s.logger.Error("failed to read source", "source", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read source")
		return
	}
	writeJSON(w, http.StatusOK, SourceResponse{Success: true, Source: detail})
}

// Admin endpoints

// handleTriggerSweep godoc
// @Summary      Trigger sweep
// @Description  Enqueue an incremental sweep of the document directory
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      202  {object}  TaskResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Admin access required"
// @Failure      500  {object}  ErrorResponse  "Failed to enqueue task"
// @Router       /admin/sweep [post]
func (s *Server) handleTriggerSweep(w http.ResponseWriter, r *http.Request) {
	s.enqueue(w, r, domain.NewSweepTask(domain.TriggerAPI))
}

// handleTriggerRebuild godoc
// @Summary      Trigger rebuild
// @Description  Enqueue a full rebuild: clear the corpus and fingerprints, then sweep
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      202  {object}  TaskResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Admin access required"
// @Failure      500  {object}  ErrorResponse  "Failed to enqueue task"
// @Router       /admin/rebuild [post]
func (s *Server) handleTriggerRebuild(w http.ResponseWriter, r *http.Request) {
	s.enqueue(w, r, domain.NewRebuildTask(domain.TriggerAPI))
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, task *domain.Task) {
	if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
		s.logger.Error("failed to enqueue task", "task_type", task.Type, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue task")
		return
	}

	caller := ""
	if authCtx := GetAuthContext(r.Context()); authCtx != nil {
		caller = authCtx.Subject
	}
	s.logger.Info("task enqueued", "task_id", task.ID, "task_type", task.Type, "caller", caller)

	writeJSON(w, http.StatusAccepted, TaskResponse{
		TaskID: task.ID,
		Type:   task.Type,
		Status: task.Status,
	})
}

// handleLastSweep godoc
// @Summary      Last sweep result
// @Description  Returns the outcome of the most recent sweep run by this process
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.SweepResult
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Admin access required"
// @Failure      404  {object}  ErrorResponse  "No sweep recorded"
// @Router       /admin/sweep [get]
func (s *Server) handleLastSweep(w http.ResponseWriter, r *http.Request) {
	if s.ingestionService == nil {
		writeError(w, http.StatusNotFound, "no sweep recorded")
		return
	}
	result := s.ingestionService.LastSweep()
	if result == nil {
		writeError(w, http.StatusNotFound, "no sweep recorded")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: message})
}

// preview truncates s to at most n runes for log lines
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
