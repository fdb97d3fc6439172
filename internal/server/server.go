// Package server exposes the document operations over HTTP for internal
// tooling and the operations dashboard.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/invoice-cli/internal/fetcher"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/store"
)

// DocumentService is the operation surface the handlers call.
type DocumentService interface {
	Extract(ctx context.Context, src fetcher.Source, stampDetection bool) ([]model.PageRecord, error)
	Verify(ctx context.Context, src fetcher.Source, companyID string) (model.VerificationRecord, error)
	Enroll(ctx context.Context, src fetcher.Source, companyID string) (model.StampEnrollment, error)
	Annotate(ctx context.Context, src fetcher.Source) ([]byte, error)
}

// RunLister exposes run history reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Server is the HTTP API.
type Server struct {
	svc     DocumentService
	runs    RunLister
	tempDir string
}

// New creates a Server. runs may be nil when run history is disabled.
func New(svc DocumentService, runs RunLister, tempDir string) *Server {
	return &Server{svc: svc, runs: runs, tempDir: tempDir}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)
		r.Post("/stamps/verify", s.handleVerify)
		r.Post("/stamps", s.handleEnroll)
		r.Post("/stamps/annotate", s.handleAnnotate)
		r.Get("/runs", s.handleListRuns)
	})
	return r
}
