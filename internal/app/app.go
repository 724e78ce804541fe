// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/markdave123-py/researchhub/internal/config"
	"github.com/markdave123-py/researchhub/internal/core"
	db "github.com/markdave123-py/researchhub/internal/core/database"
	"github.com/markdave123-py/researchhub/internal/core/ingestion_engine"
	"github.com/markdave123-py/researchhub/internal/core/llm"
	objectclient "github.com/markdave123-py/researchhub/internal/core/object-client"
	"github.com/markdave123-py/researchhub/internal/core/search"
	sessionstore "github.com/markdave123-py/researchhub/internal/core/session-store"
	"github.com/markdave123-py/researchhub/internal/services"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Ingestor     ingestion_engine.Ingestor
	Server       *Server

	closers []func() error
	log     *zap.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{log: log}

	dbClient, err := newStore(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	a.closers = append(a.closers, dbClient.Close)
	log.Info("store ready", zap.String("backend", cfg.StoreBackend))

	objClient, err := newObjectStore(appCtx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ObjectClient = objClient
	log.Info("object store ready", zap.String("backend", cfg.ObjectBackend))

	embedder, assistant, err := a.newAI(appCtx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	denylist, err := a.newDenylist(appCtx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	ingCfg := ingestion_engine.DefaultIngestConfig()
	paperIngestor := ingestion_engine.NewPaperIngestor(dbClient, objClient, embedder, ingestion_engine.NewDocconvExtractor(false), ingCfg, log)
	paperIngestor.Start(ctx, cfg.IngestWorkers)
	a.Ingestor = paperIngestor

	workspaces := services.NewWorkspaceService(dbClient, log)
	svc := Services{
		Auth:       services.NewAuthService(dbClient, denylist, cfg.JWTSecret, cfg.TokenTTL, log),
		Workspaces: workspaces,
		Papers: services.NewPaperService(dbClient, objClient, cfg.BucketName, workspaces,
			services.NewImportResolver(workspaces, dbClient), paperIngestor, log),
		Search:    services.NewSearchService(search.NewArxivIndex(cfg.ArxivURL, 30*time.Second), cfg.SearchMaxResults, log),
		Chat:      services.NewChatService(dbClient, workspaces, assistant, embedder, log),
		Dashboard: services.NewDashboardService(dbClient, workspaces, cfg.DashboardConcurrency, log),
	}

	a.Server = NewServer(cfg.Port, NewRouter(svc, cfg.CORSOrigins, log), log)
	return a, nil
}

func newStore(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg.StoreBackend == "memory" {
		return db.NewMemoryClient(), nil
	}
	client, err := db.NewDatabaseClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	return client, nil
}

func newObjectStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (core.ObjectClient, error) {
	if cfg.ObjectBackend == "memory" {
		return objectclient.NewMemoryClient(), nil
	}
	client, err := objectclient.NewS3Client(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}
	return client, nil
}

func (a *App) newAI(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, core.LLMProvider, error) {
	if cfg.UseMockLLM {
		a.log.Info("using mock assistant")
		return llm.MockEmbedder{Dim: cfg.EmbedDim}, llm.NewMockLLM(), nil
	}

	embedder, err := llm.NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}
	a.closers = append(a.closers, embedder.Close)

	assistant, err := llm.NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't initialize the assistant, %w", err)
	}
	a.closers = append(a.closers, assistant.Close)
	return embedder, assistant, nil
}

func (a *App) newDenylist(ctx context.Context, cfg *config.Config) (core.TokenDenylist, error) {
	if cfg.RedisURL == "" {
		return sessionstore.NewMemoryDenylist(), nil
	}
	d, err := sessionstore.NewRedisDenylist(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("init token denylist: %w", err)
	}
	a.closers = append(a.closers, d.Close)
	a.log.Info("token denylist backed by redis")
	return d, nil
}

// Close releases backends in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
}
