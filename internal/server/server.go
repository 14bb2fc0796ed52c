// Package server exposes the button, the panel, the catalogue and the
// rendered documents over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"reddot-watch/feedsreader/internal/controller"
	"reddot-watch/feedsreader/internal/metrics"
	"reddot-watch/feedsreader/internal/server/api"
	"reddot-watch/feedsreader/internal/server/storage"
)

// Deps are the components served by the HTTP surface.
type Deps struct {
	Controller  api.Controller
	Preferences api.Preferences
	Catalogue   storage.CatalogueRepository
	Documents   storage.DocumentRepository
	Metrics     *metrics.Metrics
}

// Server is the HTTP surface of the reader.
type Server struct {
	handler http.Handler
	logger  zerolog.Logger
	ctrl    api.Controller
}

// apiKeyMiddleware checks for the X-API-Key header and validates it against the provided key.
// If key is empty, it allows all requests.
func apiKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			reqAPIKey := r.Header.Get("X-API-Key")
			if reqAPIKey == "" {
				http.Error(w, "API key required", http.StatusUnauthorized)
				return
			}

			if reqAPIKey != apiKey {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// New builds the router. /health and /metrics stay open when an API key
// is configured.
func New(deps Deps, logger zerolog.Logger, apiKey string) *Server {
	logger = logger.With().Str("service", "feeds-reader").Logger()
	s := &Server{logger: logger, ctrl: deps.Controller}

	catalogue := api.NewCatalogueHandler(deps.Catalogue)
	documents := api.NewDocumentsHandler(deps.Documents)
	uiHandler := api.NewUIHandler(deps.Controller, deps.Preferences, deps.Documents)

	r := chi.NewRouter()
	r.Use(
		hlog.NewHandler(logger),
		hlog.MethodHandler("method"),
		hlog.URLHandler("url"),
		hlog.RemoteAddrHandler("remote_addr"),
		hlog.UserAgentHandler("user_agent"),
		hlog.RequestIDHandler("req_id", "Request-Id"),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			idReq, _ := hlog.IDFromRequest(r)

			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Stringer("url", r.URL).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Str("req_id", idReq.String()).
				Msg("HTTP Request")
		}),
		middleware.Recoverer,
	)

	r.Get("/health", s.healthCheckHandler)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(apiKeyMiddleware(apiKey))

		r.Get("/panel", uiHandler.Panel)

		r.Route("/v1", func(r chi.Router) {
			r.Get("/button", uiHandler.GetButton)
			r.Post("/panel/show", uiHandler.ShowPanel)
			r.Post("/panel/hide", uiHandler.HidePanel)
			r.Post("/refresh", uiHandler.Refresh)
			r.Get("/preferences", uiHandler.GetPreferences)
			r.Put("/preferences", uiHandler.PutPreferences)

			r.Get("/categories", catalogue.GetCategories)
			r.Get("/feeds", catalogue.GetFeeds)
			r.Get("/export", catalogue.ExportFeeds)

			r.Get("/documents", documents.ListDocuments)
			r.Get("/documents/{id}", documents.GetDocument)
		})
	})

	if apiKey != "" {
		logger.Info().Msg("API key authentication enabled")
	} else {
		logger.Info().Msg("API key authentication disabled")
	}

	s.handler = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on listenAddr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, listenAddr string) error {
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", listenAddr).Msg("HTTP server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			s.logger.Error().Err(err).Msg("Server failed to start")
		}
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
			if err := httpServer.Close(); err != nil {
				s.logger.Error().Err(err).Msg("HTTP server force close error")
			}
		} else {
			s.logger.Info().Msg("HTTP server shutdown complete.")
		}
		if err := <-serverErr; err != nil {
			s.logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
		}
	}

	s.logger.Info().Msg("Server exiting.")
	return nil
}

// healthCheckHandler answers 200 OK unless the controller stopped on a
// database error.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	status := s.ctrl.Status()
	if status.State == controller.StateError {
		log.Warn().Str("message", status.Message).Msg("Health check failing")
		http.Error(w, status.Message, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("Error writing health check response")
	}
}
