// Package server exposes report generation over HTTP.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/pdm-qc/internal/export"
	"github.com/sells-group/pdm-qc/internal/ingest"
	"github.com/sells-group/pdm-qc/internal/pipeline"
	"github.com/sells-group/pdm-qc/internal/validate"
)

const (
	defaultMaxBody = 32 << 20
	xlsxType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	requestIDKey   = "X-Request-Id"
)

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Server serves report requests against a shared Generator.
type Server struct {
	gen     *pipeline.Generator
	policy  validate.Policy
	maxBody int64
	router  chi.Router
}

// ReportRequest carries the three tables as arrays of JSON rows.
type ReportRequest struct {
	Afterproof  []any `json:"afterproof"`
	Beforeproof []any `json:"beforeproof"`
	Pdm         []any `json:"pdm"`
}

// Inputs converts the request tables. Entries that are not arrays are skipped.
func (r ReportRequest) Inputs() pipeline.Inputs {
	return pipeline.InputsFromRows(
		ingest.CoerceRows(r.Afterproof),
		ingest.CoerceRows(r.Beforeproof),
		ingest.CoerceRows(r.Pdm),
	)
}

// New builds the router.
func New(gen *pipeline.Generator, policy validate.Policy, opts Options) *Server {
	s := &Server{gen: gen, policy: policy, maxBody: opts.MaxBodyBytes}
	if s.maxBody <= 0 {
		s.maxBody = defaultMaxBody
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDKey},
			ExposedHeaders: []string{requestIDKey, "Content-Disposition"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.health)
	r.Post("/v1/reports", s.createReport)
	r.Post("/v1/reports/xlsx", s.createWorkbook)

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	rep, err := s.gen.Generate(r.Context(), req.Inputs())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "report generation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) createWorkbook(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	rep, err := s.gen.Generate(r.Context(), req.Inputs())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "report generation failed", err)
		return
	}

	f, err := export.Workbook(rep, s.policy)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "export failed", err)
		return
	}

	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", `attachment; filename="pdm-qc-report.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		zap.L().Error("server: write workbook", zap.String("request_id", w.Header().Get(requestIDKey)), zap.Error(err))
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (ReportRequest, bool) {
	var req ReportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil && err != io.EOF {
		s.fail(w, r, http.StatusBadRequest, "invalid request body", err)
		return req, false
	}
	return req, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	zap.L().Warn("server: request failed",
		zap.String("request_id", w.Header().Get(requestIDKey)),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

// requestID echoes an incoming X-Request-Id or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDKey, id)
		next.ServeHTTP(w, r)
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("request_id", ww.Header().Get(requestIDKey)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
