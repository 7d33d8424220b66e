// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studiokb/linebridge/internal/config"
	"github.com/studiokb/linebridge/internal/core"
	db "github.com/studiokb/linebridge/internal/core/database"
	"github.com/studiokb/linebridge/internal/core/knowledge"
	"github.com/studiokb/linebridge/internal/core/line"
	"github.com/studiokb/linebridge/internal/core/llm"
	"github.com/studiokb/linebridge/internal/core/memory"
	"github.com/studiokb/linebridge/internal/services"
)

type App struct {
	Logger   *zap.Logger
	Server   *Server
	dbClient *db.DatabaseClient
	gemini   *llm.GeminiProvider
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	app := &App{Logger: logger}

	// Stores: Postgres when a database is configured, otherwise in-memory
	// (single-instance deployments and local development).
	var (
		configStore  core.ConfigStore
		sessionStore core.SessionStore
	)
	if cfg.DatabaseURL != "" {
		dbClient, err := db.NewDatabaseClient(appCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database init: %w", err)
		}
		app.dbClient = dbClient
		configStore = dbClient.ConfigStore()
		sessionStore = dbClient.SessionStore()
		logger.Info("database initialized and ready")
	} else {
		configStore = memory.NewConfigStore()
		sessionStore = memory.NewSessionStore()
		logger.Warn("no DATABASE_URL set, using in-memory stores")
	}

	source := knowledge.NewNotionSource(cfg.NotionAPIKey, cfg.NotionPageIDs, logger)
	cache := knowledge.NewSnapshotCache(source, time.Duration(cfg.KnowledgeTTL)*time.Hour, logger)

	gemini, err := llm.NewGeminiProvider(appCtx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	app.gemini = gemini
	groq := llm.NewGroqProvider(cfg.GroqAPIKey, cfg.GroqModel)

	generator := services.NewAnswerService(
		[]core.Provider{gemini, groq},
		cfg.AssistantName,
		time.Duration(cfg.ProviderTimeout)*time.Second,
		logger,
	)

	channel, err := line.NewChannel(cfg.LineSecret, cfg.LineToken)
	if err != nil {
		return nil, fmt.Errorf("line init: %w", err)
	}

	router := services.NewRouterService(configStore, sessionStore, cache, generator, channel, logger)

	app.Server = NewServer(cfg, channel, router, configStore, sessionStore, cache, logger)
	return app, nil
}

func (a *App) Close() {
	if a.gemini != nil {
		_ = a.gemini.Close()
	}
	if a.dbClient != nil {
		_ = a.dbClient.Close()
	}
	_ = a.Logger.Sync()
}
