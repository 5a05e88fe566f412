package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chiv5 "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pawa80/search-intelligence-suite/internal/domain"
	checkuc "github.com/pawa80/search-intelligence-suite/internal/usecase/check"
	healthuc "github.com/pawa80/search-intelligence-suite/internal/usecase/health"
)

// ResultLister reads persisted check results for a project.
type ResultLister interface {
	List(ctx context.Context, projectID, from, to string) ([]domain.CheckResult, error)
}

// CheckRunner runs one citation-check batch for a project.
type CheckRunner interface {
	Run(ctx context.Context, projectID string, onProgress checkuc.ProgressFunc) (domain.RunSummary, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// errorCode is the machine-readable code in error responses.
type errorCode string

const (
	codeBadRequest         errorCode = "bad_request"
	codeUnauthorized       errorCode = "unauthorized"
	codeProjectNotFound    errorCode = "project_not_found"
	codeInvalidCredential  errorCode = "invalid_credential"
	codeRateLimited        errorCode = "rate_limited"
	codeEngineUnavailable  errorCode = "engine_unavailable"
	codeStorageUnavailable errorCode = "storage_unavailable"
	codeInternalError      errorCode = "internal_error"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// resultItem is one check result row on the wire.
type resultItem struct {
	ID          string   `json:"id"`
	QueryID     string   `json:"query_id"`
	ProjectID   string   `json:"project_id"`
	Engine      string   `json:"engine"`
	CheckDate   string   `json:"check_date"`
	Appears     bool     `json:"appears"`
	Position    *int     `json:"position"`     // null when not cited
	CitationURL *string  `json:"citation_url"` // null when not cited
	RawSources  []string `json:"raw_sources"`
}

// resultListResponse is the results endpoint payload.
type resultListResponse struct {
	Items []resultItem `json:"items"`
	From  string       `json:"from"`
	To    string       `json:"to"`
	Total int          `json:"total"`
}

// healthResponse is the health endpoint payload.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server serves the citation-check HTTP API.
type Server struct {
	check         CheckRunner
	results       ResultLister
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
	now           func() time.Time
}

// NewServer creates an HTTP API server.
func NewServer(
	check CheckRunner,
	results ResultLister,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		check:   check,
		results: results,
		health:  health,
		logger:  logger,
		now:     time.Now,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrProjectNotFound, http.StatusNotFound, codeProjectNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeProjectNotFound),
		sentinelHandler(domain.ErrInvalidCredential, http.StatusBadGateway, codeInvalidCredential),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEngineUnavailable, http.StatusBadGateway, codeEngineUnavailable),
		sentinelHandler(domain.ErrStorageUnavailable, http.StatusServiceUnavailable, codeStorageUnavailable),
	}
	return s
}

// Routes mounts all handlers on a fresh chi router.
func (s *Server) Routes(r chiv5.Router) {
	r.Post("/projects/{projectID}/check", s.RunCheck)
	r.Get("/projects/{projectID}/results", s.ListResults)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// RunCheck handles POST /projects/{projectID}/check.
func (s *Server) RunCheck(w http.ResponseWriter, r *http.Request) {
	projectID := chiv5.URLParam(r, "projectID")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "project id is required")
		return
	}

	summary, err := s.check.Run(r.Context(), projectID, nil)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// ListResults handles GET /projects/{projectID}/results.
// from/to are inclusive calendar dates; both default to today.
func (s *Server) ListResults(w http.ResponseWriter, r *http.Request) {
	projectID := chiv5.URLParam(r, "projectID")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "project id is required")
		return
	}

	today := s.now().Format(domain.DateFormat)
	from := r.URL.Query().Get("from")
	if from == "" {
		from = today
	}
	to := r.URL.Query().Get("to")
	if to == "" {
		to = today
	}
	for _, d := range []string{from, to} {
		if _, err := time.Parse(domain.DateFormat, d); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest,
				"date must be formatted as "+domain.DateFormat)
			return
		}
	}

	rows, err := s.results.List(r.Context(), projectID, from, to)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]resultItem, len(rows))
	for i := range rows {
		items[i] = resultToItem(rows[i])
	}

	writeJSON(w, http.StatusOK, resultListResponse{
		Items: items,
		From:  from,
		To:    to,
		Total: len(items),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func resultToItem(res domain.CheckResult) resultItem {
	item := resultItem{
		ID:         res.ID,
		QueryID:    res.QueryID,
		ProjectID:  res.ProjectID,
		Engine:     res.Engine,
		CheckDate:  res.CheckDate,
		Appears:    res.Appears,
		RawSources: res.RawSources,
	}
	if res.Appears {
		pos := res.Position
		url := res.CitationURL
		item.Position = &pos
		item.CitationURL = &url
	}
	return item
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
		domain.ErrProjectNotFound,
		domain.ErrNotFound,
		domain.ErrInvalidCredential,
		domain.ErrRateLimited,
		domain.ErrEngineUnavailable,
		domain.ErrStorageUnavailable,
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
