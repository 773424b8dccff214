// Package api provides HTTP handlers for the pagesmith API.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pagesmith/pagesmith/internal/core/domain"
	"github.com/pagesmith/pagesmith/internal/shell/store"
	"github.com/pagesmith/pagesmith/internal/shell/workflow"
)

// Submitter queues admitted tasks for asynchronous deployment.
type Submitter interface {
	Submit(task *domain.AdmittedTask) error
}

// Credentials are the configured caller identity. Requests must match both
// fields exactly; nothing else is ever accepted.
type Credentials struct {
	Email  string
	Secret string
}

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the API.
type Handler struct {
	store       store.Store
	runner      Submitter
	credentials Credentials
	version     string
	logger      *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, runner Submitter, creds Credentials, version string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}
	return &Handler{
		store:       s,
		runner:      runner,
		credentials: creds,
		version:     version,
		logger:      logger.With("component", "api"),
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	r.Get("/", h.handleInfo)
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	r.Post("/api-endpoint", h.handleDeploy)

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Info and Health Handlers
// =============================================================================

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, InfoResponse{
		Service: "pagesmith",
		Version: h.version,
		Status:  "running",
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := h.store.Ping(r.Context()); err != nil {
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Deploy Handler
// =============================================================================

// handleDeploy admits a deploy request and queues its workflow. The response
// never waits on the deployment itself; callers learn the result through the
// evaluator notification and the outcome log.
func (h *Handler) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req domain.DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	if !h.authenticate(&req) {
		h.logger.Warn("authentication failed", "email", req.Email)
		h.writeError(w, http.StatusUnauthorized, "invalid credentials", "auth_error")
		return
	}

	task := domain.NewAdmittedTask(&req)
	admission, err := h.store.Admit(r.Context(), task)
	if err != nil {
		h.logger.Error("admission failed", "key", req.Key(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to admit request", "internal_error")
		return
	}

	if admission == store.AlreadyProcessed {
		h.logger.Info("request replayed", "key", req.Key())
		h.writeJSON(w, http.StatusOK, DeployResponse{
			Status: "already_processed",
			Nonce:  req.Nonce,
		})
		return
	}

	if err := h.runner.Submit(task); err != nil {
		if errors.Is(err, workflow.ErrQueueFull) {
			h.logger.Warn("workflow queue full", "key", req.Key())
			h.writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
				Error:      "deployment queue full",
				Code:       "queue_full",
				RetryAfter: 30,
			})
			return
		}
		h.logger.Error("failed to queue workflow", "key", req.Key(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to queue deployment", "internal_error")
		return
	}

	h.logger.Info("deployment queued", "key", req.Key())
	h.writeJSON(w, http.StatusOK, DeployResponse{
		Status:  "ok",
		Message: "deployment queued",
		Nonce:   req.Nonce,
	})
}

// authenticate compares the request credentials against the configured pair
// in constant time.
func (h *Handler) authenticate(req *domain.DeployRequest) bool {
	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(h.credentials.Email)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.credentials.Secret)) == 1
	return emailOK && secretOK
}

// =============================================================================
// Response Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
