// Package web serves the authoring preview: the editor page, the projected
// credential, and a JSON API over the workspace session.
//
// The server is meant for the local user. It binds to loopback by default,
// rejects requests from other networks, and runs at most one batch at a
// time.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/credgen/internal/batch"
	"github.com/JonMunkholm/credgen/internal/config"
	"github.com/JonMunkholm/credgen/internal/preview"
	"github.com/JonMunkholm/credgen/internal/render"
	"github.com/JonMunkholm/credgen/internal/web/middleware"
	"github.com/JonMunkholm/credgen/internal/workspace"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Deps are the collaborators of a Server.
type Deps struct {
	Session   *workspace.Session
	Engine    *render.Engine
	Limiter   *batch.Limiter
	Batch     batch.Options
	OutputDir string
	Snapshot  preview.SnapshotOptions
	Config    config.ServerConfig
	// AllowedNetworks limits client addresses; nil means loopback only.
	AllowedNetworks []string
}

// Server is the preview HTTP server.
type Server struct {
	session   *workspace.Session
	engine    *render.Engine
	limiter   *batch.Limiter
	batchOpts batch.Options
	outputDir string
	snapOpts  preview.SnapshotOptions
	cfg       config.ServerConfig
	allowed   []string
	batches   batchTracker

	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server.
func NewServer(d Deps) *Server {
	if d.Limiter == nil {
		d.Limiter = batch.NewLimiter(batch.DefaultMaxConcurrentBatches, batch.DefaultMaxWaitTime)
	}
	if d.AllowedNetworks == nil {
		d.AllowedNetworks = middleware.LoopbackNetworks
	}
	if d.Config.DisplayWidth <= 0 {
		d.Config.DisplayWidth = 800
	}
	s := &Server{
		session:   d.Session,
		engine:    d.Engine,
		limiter:   d.Limiter,
		batchOpts: d.Batch,
		outputDir: d.OutputDir,
		snapOpts:  d.Snapshot,
		cfg:       d.Config,
		allowed:   d.AllowedNetworks,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.AllowNetworks(s.allowed))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Get("/preview", s.handlePreviewFragment)

	// Uploaded assets referenced by the preview
	s.router.Get("/assets/template", s.handleTemplateAsset)
	s.router.Get("/assets/photos/{key}", s.handlePhotoAsset)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/validation", s.handleValidation)

		// Inputs
		r.Post("/template", s.handleUploadTemplate)
		r.Post("/data", s.handleUploadData)
		r.Post("/photos", s.handleUploadPhotos)

		// Layout editing
		r.Get("/layout", s.handleGetLayout)
		r.Put("/layout", s.handlePutLayout)
		r.Post("/layout", s.handlePutLayout)
		r.Put("/filename-pattern", s.handleFilenamePattern)
		r.Post("/fields/{kind}", s.handleAddField)
		r.Put("/fields/{kind}/{id}", s.handlePutField)
		r.Delete("/fields/{kind}/{id}", s.handleDeleteField)

		// Preview
		r.Post("/preview/row", s.handlePreviewRow)
		r.Get("/coords", s.handleCoords)
		r.Get("/render/{row}", s.handleRenderRow)
		r.Get("/snapshot", s.handleSnapshot)

		// Batch
		r.Post("/generate", s.handleGenerate)
		r.Get("/batch/status", s.handleBatchStatus)
	})
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	slog.Info("starting preview server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for running batches.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds hardening headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// Inline styles and scripts are part of the page; images may be data URIs
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		w.Header().Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

// requestTimeout bounds work started by a handler that outlives the
// middleware timeout, such as a batch.
func requestTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Minute
	}
	return d
}
