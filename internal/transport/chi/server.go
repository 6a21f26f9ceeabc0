package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/answerdex/internal/domain"
	answeruc "github.com/kailas-cloud/answerdex/internal/usecase/answer"
	guarduc "github.com/kailas-cloud/answerdex/internal/usecase/guard"
	healthuc "github.com/kailas-cloud/answerdex/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/answerdex/internal/usecase/indexer"
)

// errorCode identifies a machine-readable error class in responses.
type errorCode string

const (
	codeBadRequest        errorCode = "bad_request"
	codeValidationFailed  errorCode = "validation_failed"
	codeUnauthorized      errorCode = "unauthorized"
	codeTenantNotFound    errorCode = "tenant_not_found"
	codeRecordNotFound    errorCode = "record_not_found"
	codeRateLimited       errorCode = "rate_limited"
	codeEmbeddingProvider errorCode = "embedding_provider_error"
	codeInternalError     errorCode = "internal_error"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the answer, index maintenance and assistant settings API.
type Server struct {
	answers       *answeruc.Service
	indexer       *indexeruc.Service
	guard         *guarduc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	answers *answeruc.Service,
	indexer *indexeruc.Service,
	guard *guarduc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		answers: answers,
		indexer: indexer,
		guard:   guard,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrTenantUnknown, http.StatusNotFound, codeTenantNotFound),
		sentinelHandler(domain.ErrRecordNotFound, http.StatusNotFound, codeRecordNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingProvider),
	}
	return s
}

// Register mounts all routes on the router. Tenant routes expect the
// rate-limit middleware to run inside the tenant scope.
func (s *Server) Register(r chi.Router, tenantMiddleware ...func(http.Handler) http.Handler) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1/tenants/{tenantID}", func(tr chi.Router) {
		for _, mw := range tenantMiddleware {
			tr.Use(mw)
		}
		tr.Post("/answer", s.Answer)
		tr.Post("/records", s.UpsertRecord)
		tr.Delete("/records/{category}/{objectID}", s.DeleteRecord)
		tr.Put("/assistant", s.PutAssistantSettings)
		tr.Get("/assistant/usage", s.GetAssistantUsage)
	})
}

// answerRequest is the POST /answer body.
type answerRequest struct {
	Query string `json:"query"`
}

// Answer handles POST /v1/tenants/{tenantID}/answer.
func (s *Server) Answer(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "tenant id is required")
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.answers.Answer(r.Context(), tenantID, req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// upsertRecordRequest is the POST /records body.
type upsertRecordRequest struct {
	Category  string `json:"category"`
	ObjectID  string `json:"object_id"`
	ContactID string `json:"contact_id,omitempty"`
	Label     string `json:"label"`
	Text      string `json:"text"`
}

type upsertRecordResponse struct {
	Indexed bool `json:"indexed"`
}

// UpsertRecord handles POST /v1/tenants/{tenantID}/records.
func (s *Server) UpsertRecord(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req upsertRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	category, ok := domain.ParseCategory(strings.ToLower(req.Category))
	if !ok {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "unknown category "+strings.ToLower(req.Category))
		return
	}
	if req.ObjectID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "object_id is required")
		return
	}

	indexed, err := s.indexer.Upsert(
		r.Context(), tenantID, category, req.ObjectID, req.ContactID, req.Label, req.Text,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, upsertRecordResponse{Indexed: indexed})
}

// DeleteRecord handles DELETE /v1/tenants/{tenantID}/records/{category}/{objectID}.
func (s *Server) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	objectID := chi.URLParam(r, "objectID")

	category, ok := domain.ParseCategory(strings.ToLower(chi.URLParam(r, "category")))
	if !ok {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "unknown category")
		return
	}

	if err := s.indexer.Delete(r.Context(), tenantID, category, objectID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// assistantSettingsRequest is the PUT /assistant body. A null monthly cap
// means no cap.
type assistantSettingsRequest struct {
	Enabled           bool   `json:"enabled"`
	DailyRequestLimit int    `json:"daily_request_limit"`
	MonthlyCapCents   *int64 `json:"monthly_cap_cents"`
}

// usageResponse is the assistant usage view.
type usageResponse struct {
	TenantID          string `json:"tenant_id"`
	Enabled           bool   `json:"enabled"`
	DailyRequestLimit int    `json:"daily_request_limit"`
	DailyRequestsUsed int    `json:"daily_requests_used"`
	DailyRemaining    int    `json:"daily_remaining"`
	MonthlyCapCents   *int64 `json:"monthly_cap_cents,omitempty"`
	MonthlySpendCents int64  `json:"monthly_spend_cents"`
}

// PutAssistantSettings handles PUT /v1/tenants/{tenantID}/assistant.
func (s *Server) PutAssistantSettings(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req assistantSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.DailyRequestLimit < 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "daily_request_limit must not be negative")
		return
	}

	settings := guarduc.Settings{
		Enabled:    req.Enabled,
		DailyLimit: req.DailyRequestLimit,
	}
	if req.MonthlyCapCents != nil {
		if *req.MonthlyCapCents < 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "monthly_cap_cents must not be negative")
			return
		}
		settings.MonthlyCapCents = *req.MonthlyCapCents
	}

	snap, err := s.guard.ApplySettings(r.Context(), tenantID, settings)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, usageToResponse(&snap))
}

// GetAssistantUsage handles GET /v1/tenants/{tenantID}/assistant/usage.
func (s *Server) GetAssistantUsage(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	snap, err := s.guard.Usage(r.Context(), tenantID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, usageToResponse(&snap))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func usageToResponse(snap *domain.UsageSnapshot) usageResponse {
	resp := usageResponse{
		TenantID:          snap.TenantID,
		Enabled:           snap.Enabled,
		DailyRequestLimit: snap.DailyLimit,
		DailyRequestsUsed: snap.DailyUsed,
		DailyRemaining:    snap.RemainingToday(),
		MonthlySpendCents: snap.MonthlySpendCents,
	}
	if snap.MonthlyCapCents > 0 {
		capCents := snap.MonthlyCapCents
		resp.MonthlyCapCents = &capCents
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrTenantUnknown,
		domain.ErrRecordNotFound,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
