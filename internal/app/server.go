package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/studiokb/linebridge/internal/api/handlers"
	appMiddleware "github.com/studiokb/linebridge/internal/api/middlewares"
	"github.com/studiokb/linebridge/internal/config"
	"github.com/studiokb/linebridge/internal/core"
	"github.com/studiokb/linebridge/internal/core/line"
	"github.com/studiokb/linebridge/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer builds and wires all routes.
func NewServer(
	cfg *config.Config,
	channel *line.Channel,
	router *services.RouterService,
	configStore core.ConfigStore,
	sessionStore core.SessionStore,
	cache core.KnowledgeCache,
	logger *zap.Logger,
) *Server {
	webhookHandler := handlers.NewWebhookHandler(channel, router, logger)
	adminHandler := handlers.NewAdminHandler(configStore, sessionStore, cache, cfg.JWTSecret, cfg.AdminPassHash, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Messaging webhook; authenticated by its signature, not by JWT.
	r.Post("/api/line/webhook", webhookHandler.HandleWebhook)

	r.Route("/api/admin", func(api chi.Router) {
		api.Post("/login", adminHandler.Login)

		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
			protected.Get("/config", adminHandler.GetConfig)
			protected.Put("/config", adminHandler.UpdateConfig)
			protected.Get("/sessions", adminHandler.ListSessions)
			protected.Put("/sessions/{userID}", adminHandler.SetSessionMode)
			protected.Post("/cache/refresh", adminHandler.RefreshCache)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, logger: logger}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
