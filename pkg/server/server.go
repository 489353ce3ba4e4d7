// Package server wires the HTTP surface named in spec §6 onto the
// Document, Signer, and Validator services, following the teacher's
// http.NewServeMux + prefix-trimmed handler style rather than a router
// dependency the pack never reaches for.
package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/database"
	"github.com/inkchain/esigner/pkg/document"
	"github.com/inkchain/esigner/pkg/server/httpkit"
	"github.com/inkchain/esigner/pkg/server/metrics"
	"github.com/inkchain/esigner/pkg/signerflow"
	"github.com/inkchain/esigner/pkg/validator"
)

// Server bundles every collaborator the HTTP layer dispatches to.
type Server struct {
	db         *database.Client
	repos      *database.Repositories
	documents  *document.Service
	signerflow *signerflow.Service
	audit      *audit.Service
	validator  *validator.Validator
	metrics    *metrics.Metrics
	logger     *log.Logger
}

// New constructs a Server.
func New(db *database.Client, repos *database.Repositories, documents *document.Service, flow *signerflow.Service, auditSvc *audit.Service, val *validator.Validator, m *metrics.Metrics, logger *log.Logger) *Server {
	return &Server{
		db:         db,
		repos:      repos,
		documents:  documents,
		signerflow: flow,
		audit:      auditSvc,
		validator:  val,
		metrics:    m,
		logger:     logger,
	}
}

// Routes builds the top-level mux and wraps it with the shared
// middleware chain (request id, access log, panic recovery).
func (s *Server) Routes(metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metricsHandler)

	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/documents/validate-file", s.handleValidateFile)
	mux.HandleFunc("/documents/", s.handleDocumentSubroutes)

	mux.HandleFunc("/sign/", s.handleSignSubroutes)

	return httpkit.Chain(mux,
		httpkit.WithRequestID,
		httpkit.WithAccessLog(s.logger),
		httpkit.WithRecover(s.logger),
		s.withMetrics,
	)
}

func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusCapture{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		route := routePattern(r.URL.Path)
		s.metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(sw.status)).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusCapture struct {
	http.ResponseWriter
	status int
}

func (w *statusCapture) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// routePattern collapses UUID and token path segments to ":id" so the
// metrics route label stays low-cardinality.
func routePattern(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if looksOpaque(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func looksOpaque(seg string) bool {
	if _, err := uuid.Parse(seg); err == nil {
		return true
	}
	return len(seg) > 20
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		httpkit.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
