// internal/transport/httpapi/server.go
package httpapi

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"origination-intake/internal/common/logger"
	"origination-intake/internal/common/observability"
	"origination-intake/internal/guard"
	"origination-intake/internal/intake"
	"origination-intake/internal/records"
	"origination-intake/internal/search"
)

// RecordReader loads the latest accepted submission for an account.
type RecordReader interface {
	Get(ctx context.Context, accountKey string) (*records.SubmissionRecord, error)
}

// SubmissionFinder answers operator lookups from the search index. May
// be nil when search is disabled.
type SubmissionFinder interface {
	FindByAccountKey(ctx context.Context, accountKey string) ([]search.Document, error)
}

// Server exposes the intake core to the UI layer as plain JSON. One
// active session per account key; the session is created on the entry
// route and every mutation route requires it.
type Server struct {
	service      *intake.Service
	recordReader RecordReader
	finder       SubmissionFinder
	obs          *observability.Observability
	logger       logger.Logger

	mu       sync.Mutex
	sessions map[string]*activeSession
}

type activeSession struct {
	session  *intake.Session
	decision guard.Decision
}

func NewServer(
	service *intake.Service,
	recordReader RecordReader,
	finder SubmissionFinder,
	obs *observability.Observability,
	log logger.Logger,
) *Server {
	return &Server{
		service:      service,
		recordReader: recordReader,
		finder:       finder,
		obs:          obs,
		logger:       log.WithFields(map[string]interface{}{"component": "httpapi"}),
		sessions:     make(map[string]*activeSession),
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Route("/api/v1/application", func(r chi.Router) {
		r.Get("/", s.handleEnter)
		r.Get("/offer", s.handleOffer)
		r.Get("/disclosure", s.handleDisclosure)
		r.Patch("/sections/{section}", s.handleMergeSection)
		r.Put("/owners", s.handleReplaceOwners)
		r.Put("/files/{slot}", s.handleSetFileSlot)
		r.Put("/stage", s.handleSetStage)
		r.Post("/save", s.handleSave)
		r.Post("/submit", s.handleSubmit)
		r.Post("/reset", s.handleReset)
	})

	r.Get("/api/v1/operator/submissions", s.handleOperatorLookup)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func (s *Server) storeSession(accountKey string, session *intake.Session, decision guard.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[accountKey] = &activeSession{session: session, decision: decision}
}

func (s *Server) activeFor(accountKey string) *activeSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[accountKey]
}

func (s *Server) dropSession(accountKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, accountKey)
}
