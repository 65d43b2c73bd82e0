// Package api serves paragraphs over HTTP.
//
// Routes live under /api/v1 and require the X-API-Key header when a key is
// configured. Paragraph bodies are read and written as JSON,
// application/x-folio-tagged or application/x-folio-positional according to
// Content-Type and Accept. /metrics is left open for scraping.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	metricsInterval = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Router returns the HTTP handler with every route configured.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"ETag", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	m := s.metrics
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))
		r.Get("/stats", m.InstrumentHandler("GET", "/api/v1/stats", s.handleStats))

		r.Get("/notes", m.InstrumentHandler("GET", "/api/v1/notes", s.handleListNotes))
		r.Get("/paragraphs", m.InstrumentHandler("GET", "/api/v1/paragraphs", s.handleMatch))

		r.Route("/notes/{noteId}/paragraphs", func(r chi.Router) {
			const base = "/api/v1/notes/{noteId}/paragraphs"
			r.Get("/", m.InstrumentHandler("GET", base, s.handleListParagraphs))
			r.Post("/", m.InstrumentHandler("POST", base, s.handleCreateParagraph))

			const one = base + "/{paragraphId}"
			r.Get("/{paragraphId}", m.InstrumentHandler("GET", one, s.handleGetParagraph))
			r.Put("/{paragraphId}", m.InstrumentHandler("PUT", one, s.handlePutParagraph))
			r.Delete("/{paragraphId}", m.InstrumentHandler("DELETE", one, s.handleDeleteParagraph))
			r.Get("/{paragraphId}/history", m.InstrumentHandler("GET", one+"/history", s.handleHistory))
		})
	})

	return r
}

// Serve listens on the configured address until ctx is done, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Bind, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.startMetricsUpdater(ctx, metricsInterval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving folio API", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down folio API")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartServer serves notebook until ctx is done.
func StartServer(ctx context.Context, notebook ParagraphStore, config ServerConfig, logger *slog.Logger) error {
	server := NewServer(notebook, config, NewMetrics(nil), logger)
	return server.Serve(ctx)
}
