// Package web is the HTTP API for Voice2Vital: account signup and login,
// consultation audio upload, archived-note retrieval, and the free-text
// records question endpoint.
//
// Handlers are registered on a stdlib [http.ServeMux] with method patterns.
// All responses are JSON; errors use the shape {"error": "..."} with a
// matching status code. Request-scoped logging and metrics come from the
// observe middleware, which callers wrap around the mux.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voice2vital/voice2vital/internal/agent"
	"github.com/voice2vital/voice2vital/internal/health"
	"github.com/voice2vital/voice2vital/internal/observe"
	"github.com/voice2vital/voice2vital/internal/pipeline"
	"github.com/voice2vital/voice2vital/internal/records"
)

// defaultMaxUploadMB caps consultation audio uploads when no limit is
// configured.
const defaultMaxUploadMB = 100

// Store is the slice of the records store the API needs. *records.Store
// satisfies it; tests substitute a fake.
type Store interface {
	CreateDoctor(ctx context.Context, d records.Doctor) (records.Doctor, error)
	CreatePatient(ctx context.Context, p records.Patient) (records.Patient, error)
	DoctorByEmail(ctx context.Context, email string) (records.Doctor, error)
	Patient(ctx context.Context, id uuid.UUID) (records.Patient, error)
	NotesForPatient(ctx context.Context, patientID uuid.UUID) ([]records.NoteRecord, error)
	ArchiveNote(ctx context.Context, rec records.NoteRecord) (records.NoteRecord, error)
}

var _ Store = (*records.Store)(nil)

// Runner turns consultation audio into a structured note.
// *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, media io.Reader, filename string) (*pipeline.Result, error)
}

var _ Runner = (*pipeline.Orchestrator)(nil)

// Asker answers free-text questions about the records. *agent.Agent
// satisfies it.
type Asker interface {
	Ask(ctx context.Context, question string) (*agent.Answer, error)
}

var _ Asker = (*agent.Agent)(nil)

// Server holds the API's dependencies. Any of store, runner, and asker may
// be nil when the matching subsystem is not configured; the affected
// endpoints then return 503.
type Server struct {
	store  Store
	runner Runner
	asker  Asker
	health *health.Handler

	maxUploadBytes int64
}

// Option configures a [Server].
type Option func(*Server)

// WithMaxUploadMB caps consultation uploads. Values <= 0 keep the default
// of 100 MiB.
func WithMaxUploadMB(mb int) Option {
	return func(s *Server) {
		if mb > 0 {
			s.maxUploadBytes = int64(mb) << 20
		}
	}
}

// WithHealth sets the health handler whose routes Register mounts.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// New creates the API server.
func New(store Store, runner Runner, asker Asker, opts ...Option) *Server {
	s := &Server{
		store:          store,
		runner:         runner,
		asker:          asker,
		maxUploadBytes: defaultMaxUploadMB << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds all API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/signup/doctor", s.doctorSignup)
	mux.HandleFunc("POST /api/signup/patient", s.patientSignup)
	mux.HandleFunc("POST /api/login", s.login)
	mux.HandleFunc("POST /api/consultations", s.uploadConsultation)
	mux.HandleFunc("GET /api/patients/{id}/notes", s.patientNotes)
	mux.HandleFunc("POST /api/ask", s.ask)
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.health != nil {
		s.health.Register(mux)
	}
}

// Handler returns the fully routed API wrapped in the observability
// middleware.
func (s *Server) Handler(m *observe.Metrics) http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return observe.Middleware(m)(mux)
}

// writeJSON encodes v with the given status. Encoding failures fall back to
// a bare 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

// pipelineStatus maps a pipeline failure to an HTTP status code.
func pipelineStatus(err error) int {
	var timeout *pipeline.PollingTimeoutError
	switch {
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		// Submit rejections, provider failures, malformed transcripts, and
		// extraction errors are all upstream faults from the client's view.
		return http.StatusBadGateway
	}
}
