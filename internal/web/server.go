package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tmcgee/sparkinv/internal/domain"
	"github.com/tmcgee/sparkinv/internal/invoice"
	"github.com/tmcgee/sparkinv/internal/scan"
	"github.com/tmcgee/sparkinv/internal/scanstore"
	"github.com/tmcgee/sparkinv/internal/store"
	"github.com/tmcgee/sparkinv/internal/study"
)

// documentGenerator is the subset of the docgen client the server requires.
type documentGenerator interface {
	Generate(ctx context.Context, inv *domain.Invoice, profile domain.CompanyProfile) (string, error)
}

// Deps carries everything the server needs. All fields are required except
// Docs, which may be nil when document generation is not configured.
type Deps struct {
	Materials *store.MaterialStore
	Invoices  *store.InvoiceStore
	Session   *scan.Session
	Scanner   *scan.Service
	Editor    *invoice.Editor
	Docs      documentGenerator
	Scans     scanstore.Store
	Study     *study.Library
	Profile   domain.CompanyProfile
	Logger    *slog.Logger
}

type Server struct {
	materials *store.MaterialStore
	invoices  *store.InvoiceStore
	session   *scan.Session
	scanner   *scan.Service
	editor    *invoice.Editor
	docs      documentGenerator
	scans     scanstore.Store
	study     *study.Library
	profile   domain.CompanyProfile
	mux       *http.ServeMux
	logger    *slog.Logger

	mu      sync.Mutex
	scanKey string
}

func NewServer(deps Deps) *Server {
	s := &Server{
		materials: deps.Materials,
		invoices:  deps.Invoices,
		session:   deps.Session,
		scanner:   deps.Scanner,
		editor:    deps.Editor,
		docs:      deps.Docs,
		scans:     deps.Scans,
		study:     deps.Study,
		profile:   deps.Profile,
		mux:       http.NewServeMux(),
		logger:    deps.Logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /scans", s.handleStartScan)
	s.mux.HandleFunc("GET /scans/current", s.handleScanView)
	s.mux.HandleFunc("GET /scans/current/image", s.handleScanImage)
	s.mux.HandleFunc("POST /scans/current/items/{id}/toggle", s.handleToggleItem)
	s.mux.HandleFunc("POST /scans/current/items/{id}/match", s.handleSelectMatch)
	s.mux.HandleFunc("PATCH /scans/current/items/{id}", s.handleUpdateScanItem)
	s.mux.HandleFunc("POST /scans/current/select-all", s.handleSelectAll)
	s.mux.HandleFunc("POST /scans/current/deselect-all", s.handleDeselectAll)
	s.mux.HandleFunc("POST /scans/current/reset", s.handleResetScan)
	s.mux.HandleFunc("POST /scans/current/confirm", s.handleConfirmScan)

	s.mux.HandleFunc("GET /materials", s.handleListMaterials)
	s.mux.HandleFunc("POST /materials", s.handleCreateMaterial)
	s.mux.HandleFunc("GET /materials/{id}", s.handleGetMaterial)
	s.mux.HandleFunc("PUT /materials/{id}", s.handleUpdateMaterial)
	s.mux.HandleFunc("DELETE /materials/{id}", s.handleDeleteMaterial)

	s.mux.HandleFunc("GET /invoices", s.handleListInvoices)
	s.mux.HandleFunc("POST /invoices", s.handleCreateInvoice)
	s.mux.HandleFunc("GET /invoices/{id}", s.handleGetInvoice)
	s.mux.HandleFunc("DELETE /invoices/{id}", s.handleDeleteInvoice)
	s.mux.HandleFunc("POST /invoices/{id}/open", s.handleOpenInvoice)

	s.mux.HandleFunc("GET /editor", s.handleEditorView)
	s.mux.HandleFunc("POST /editor/save", s.handleSaveEditor)
	s.mux.HandleFunc("POST /editor/close", s.handleCloseEditor)
	s.mux.HandleFunc("POST /editor/items", s.handleAddEditorItem)
	s.mux.HandleFunc("PATCH /editor/items/{id}", s.handleUpdateEditorItem)
	s.mux.HandleFunc("DELETE /editor/items/{id}", s.handleRemoveEditorItem)
	s.mux.HandleFunc("PATCH /editor/original-items/{id}", s.handleAdjustOriginalItem)
	s.mux.HandleFunc("POST /editor/next", s.handleEditorNext)
	s.mux.HandleFunc("POST /editor/previous", s.handleEditorPrevious)
	s.mux.HandleFunc("POST /editor/generate", s.handleGenerateDocument)

	s.mux.HandleFunc("GET /study/courses", s.handleListCourses)
	s.mux.HandleFunc("GET /study/courses/{course}/modules/{module}/questions", s.handleModuleQuestions)
	s.mux.HandleFunc("GET /study/courses/{course}/exam", s.handleMockExam)
	s.mux.HandleFunc("POST /study/courses/{course}/score", s.handleScoreExam)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON parses the request body into v, rejecting unknown fields so
// client typos fail loudly instead of silently dropping data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
