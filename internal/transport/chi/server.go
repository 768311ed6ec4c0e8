// Package chi exposes the corpus over HTTP: listing, detail, download,
// reindex and assist endpoints.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flowhub-cloud/flowdex/internal/domain"
	domindex "github.com/flowhub-cloud/flowdex/internal/domain/index"
	"github.com/flowhub-cloud/flowdex/internal/domain/template"
	"github.com/flowhub-cloud/flowdex/internal/repository/usage"
	"github.com/flowhub-cloud/flowdex/internal/slug"
	assistuc "github.com/flowhub-cloud/flowdex/internal/usecase/assist"
	indexuc "github.com/flowhub-cloud/flowdex/internal/usecase/index"
	queryuc "github.com/flowhub-cloud/flowdex/internal/usecase/query"
)

// TemplateReader loads single documents for the detail and download surfaces.
type TemplateReader interface {
	Read(slug string) (template.Template, error)
}

// UsageTracker records view/download counters. Nil disables tracking.
type UsageTracker interface {
	Touch(ctx context.Context, slug, kind string) error
}

// Server wires the query engine, corpus and batch services into HTTP
// handlers.
type Server struct {
	engine          *queryuc.Engine
	corpus          TemplateReader
	builder         *indexuc.Builder
	assist          *assistuc.Service
	tracker         UsageTracker
	defaultPageSize int
	maxPageSize     int
	logger          *zap.Logger
}

// NewServer creates the HTTP API server. assist may be nil (generation not
// configured) and tracker may be nil (usage tracking disabled).
func NewServer(
	engine *queryuc.Engine,
	corpus TemplateReader,
	builder *indexuc.Builder,
	assist *assistuc.Service,
	tracker UsageTracker,
	defaultPageSize, maxPageSize int,
	logger *zap.Logger,
) *Server {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:          engine,
		corpus:          corpus,
		builder:         builder,
		assist:          assist,
		tracker:         tracker,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger,
	}
}

// Mount registers the API routes on the router.
func (s *Server) Mount(r chi.Router) {
	r.Get("/api/templates", s.listTemplates)
	r.Get("/api/templates/{slug}", s.getTemplate)
	r.Get("/api/templates/{slug}/download", s.downloadTemplate)
	r.Post("/api/admin/reindex", s.reindex)
	r.Post("/api/assist", s.assistHandler)
}

// listResponse is the paginated listing envelope.
type listResponse struct {
	Templates []listRecord `json:"templates"`
	Total     int          `json:"total"`
	Page      int          `json:"page"`
	PageSize  int          `json:"pageSize"`
	HasMore   bool         `json:"hasMore"`
}

// listRecord decorates an index record with its derived complexity tier.
type listRecord struct {
	domindex.Record
	Complexity string `json:"complexity"`
}

// listTemplates handles GET /api/templates.
func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid page: "+err.Error())
		return
	}
	pageSize, err := intParam(q.Get("limit"), s.defaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid limit: "+err.Error())
		return
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	result, err := s.engine.Query(r.Context(), queryuc.Params{
		Page:       page,
		PageSize:   pageSize,
		Search:     q.Get("search"),
		Category:   q.Get("category"),
		Complexity: q.Get("complexity"),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	records := make([]listRecord, len(result.Records))
	for i, rec := range result.Records {
		records[i] = listRecord{Record: rec, Complexity: domindex.ComplexityFor(rec.Usage)}
	}

	writeJSON(w, http.StatusOK, listResponse{
		Templates: records,
		Total:     result.Total,
		Page:      page,
		PageSize:  pageSize,
		HasMore:   result.HasMore,
	})
}

// getTemplate handles GET /api/templates/{slug}.
func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	slugID := chi.URLParam(r, "slug")
	if err := slug.Validate(slugID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	tpl, err := s.corpus.Read(slugID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	s.touch(r.Context(), slugID, usage.KindView)
	writeJSON(w, http.StatusOK, tpl)
}

// downloadTemplate handles GET /api/templates/{slug}/download. The slug is
// validated before any lookup.
func (s *Server) downloadTemplate(w http.ResponseWriter, r *http.Request) {
	slugID := chi.URLParam(r, "slug")
	if err := slug.Validate(slugID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	tpl, err := s.corpus.Read(slugID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	data, err := json.Marshal(tpl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "encode template")
		return
	}

	s.touch(r.Context(), slugID, usage.KindDownload)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", slugID+".json"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// reindex handles POST /api/admin/reindex: rebuild the artifact, then reload
// the engine cache so readers pick up the new index.
func (s *Server) reindex(w http.ResponseWriter, r *http.Request) {
	summary, err := s.builder.Rebuild(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "rebuild failed: "+err.Error())
		return
	}
	if err := s.engine.Reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "cache reload failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// assistRequest is the POST /api/assist body.
type assistRequest struct {
	Query string `json:"query"`
}

// assistResponse carries the generated answer and its context provenance.
type assistResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// assistHandler handles POST /api/assist.
func (s *Server) assistHandler(w http.ResponseWriter, r *http.Request) {
	if s.assist == nil {
		writeError(w, http.StatusServiceUnavailable, "generation_unconfigured", "generation is not configured")
		return
	}

	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "query is required")
		return
	}

	answer, err := s.assist.Answer(r.Context(), req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, assistResponse{Answer: answer.Text, Sources: sources})
}

// touch records a usage counter, best effort.
func (s *Server) touch(ctx context.Context, slugID, kind string) {
	if s.tracker == nil {
		return
	}
	if err := s.tracker.Touch(ctx, slugID, kind); err != nil {
		s.logger.Warn("usage tracking failed",
			zap.String("slug", slugID),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

// handleDomainError maps domain sentinels to HTTP responses. A malformed
// stored document surfaces as not-found on single reads rather than leaking
// a server error.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidIdentifier):
		writeError(w, http.StatusBadRequest, "invalid_identifier", "invalid slug")
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrMalformedDocument):
		writeError(w, http.StatusNotFound, "not_found", "template not found")
	case errors.Is(err, domain.ErrGenerationUnavailable):
		writeError(w, http.StatusBadGateway, "generation_unavailable", "generation provider failed")
	default:
		s.logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return v, nil
}
