package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yamori/assessrec/internal/auth"
	"github.com/yamori/assessrec/internal/catalog"
	"github.com/yamori/assessrec/internal/config"
	"github.com/yamori/assessrec/internal/embedder"
	"github.com/yamori/assessrec/internal/engine"
	"github.com/yamori/assessrec/internal/index"
	"github.com/yamori/assessrec/internal/repository/postgres"
	"github.com/yamori/assessrec/internal/reranker"
	"github.com/yamori/assessrec/internal/server"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting recommendation service",
		"http_port", cfg.HTTPPort,
		"embedding_backend", cfg.EmbeddingBackend,
		"reranker_backend", cfg.RerankerBackend,
		"index_backend", cfg.IndexBackend,
		"environment", cfg.Environment,
	)

	// Embedding backend
	emb, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	slog.Info("initialized embedder", "model", emb.ModelName(), "dimension", emb.Dimension())

	// Catalog source: Postgres when configured, JSON file otherwise
	store, dbClose, err := newCatalogStore(ctx, cfg)
	if err != nil {
		return err
	}
	if dbClose != nil {
		defer dbClose()
	}

	// Engine options
	opts := []engine.Option{
		engine.WithSplit(engine.NewSplit(cfg.TechnicalSplit)),
		engine.WithRerankTimeout(cfg.RerankTimeout),
		engine.WithLogger(slog.Default()),
	}

	if cfg.RerankerBackend == config.RerankerBackendGenerative {
		gen, err := reranker.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiRerankModel)
		if err != nil {
			return fmt.Errorf("failed to create generative reranker: %w", err)
		}
		opts = append(opts, engine.WithGenerativeReranker(gen))
		slog.Info("initialized generative reranker", "model", cfg.GeminiRerankModel)
	}

	var qdrantClose func() error
	if cfg.IndexBackend == config.IndexBackendQdrant {
		qd, err := index.NewQdrant(ctx, cfg.QdrantGRPCURL)
		if err != nil {
			return fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		qdrantClose = qd.Close
		opts = append(opts, engine.WithBuilder(func(ctx context.Context, ids []string, vectors [][]float32) (index.Searcher, error) {
			// Each build lands in a fresh collection; the engine's snapshot
			// swap publishes it, so the collection being served stays intact.
			return qd.Build(ctx, ids, vectors)
		}))
		slog.Info("connected to Qdrant", "url", cfg.QdrantGRPCURL)
	}
	if qdrantClose != nil {
		defer qdrantClose()
	}

	if cfg.IndexBackend == config.IndexBackendMemory && cfg.IndexPath != "" {
		// Persist each rebuilt index so restarts skip re-embedding the catalog.
		opts = append(opts, engine.WithBuilder(func(ctx context.Context, ids []string, vectors [][]float32) (index.Searcher, error) {
			flat, err := index.BuildFlat(emb.ModelName(), ids, vectors)
			if err != nil {
				return nil, err
			}
			if err := flat.Save(cfg.IndexPath); err != nil {
				slog.Warn("failed to persist index", "path", cfg.IndexPath, "error", err)
			}
			return flat, nil
		}))
	}

	eng := engine.New(emb, reranker.NewLexical(), opts...)

	if err := prepareIndex(ctx, cfg, eng, emb, store); err != nil {
		return err
	}
	slog.Info("index ready", "assessments", eng.IndexSize(), "dimension", eng.Dimension())

	httpServer := server.New(eng, server.Config{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
		TopK:           cfg.TopKRetrieval,
		TopN:           cfg.TopNFinal,
		JWT:            auth.NewJWTManager(&auth.JWTConfig{Secret: cfg.JWTSecret, Expiry: cfg.JWTExpiry, Issuer: "assessrec"}),
		Catalog:        store,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// newEmbedder selects the embedding backend from configuration.
func newEmbedder(ctx context.Context, cfg *config.Config) (embedder.Embedder, error) {
	switch cfg.EmbeddingBackend {
	case config.EmbeddingBackendRemote:
		emb, err := embedder.NewGeminiEmbedder(ctx, embedder.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiEmbeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini embedder: %w", err)
		}
		return emb, nil
	default:
		return embedder.NewOllamaEmbedder(embedder.OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaEmbeddingModel,
		}), nil
	}
}

// newCatalogStore returns the configured record source and an optional
// cleanup for the database pool.
func newCatalogStore(ctx context.Context, cfg *config.Config) (catalog.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("connected to PostgreSQL")
		return postgres.NewCatalogStore(db), db.Close, nil
	}
	slog.Info("using file catalog", "path", cfg.CatalogPath)
	return catalog.NewFileStore(cfg.CatalogPath), nil, nil
}

// prepareIndex restores a persisted flat index when it matches the current
// embedding model, and rebuilds from the catalog otherwise.
func prepareIndex(ctx context.Context, cfg *config.Config, eng *engine.Engine, emb embedder.Embedder, store catalog.Store) error {
	records, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if cfg.IndexBackend == config.IndexBackendMemory && cfg.IndexPath != "" {
		flat, err := index.LoadFlat(cfg.IndexPath, emb.ModelName(), emb.Dimension())
		if err == nil && flat.Len() == len(records) {
			serr := eng.SetIndex(flat, records)
			if serr == nil {
				slog.Info("restored persisted index", "path", cfg.IndexPath, "vectors", flat.Len())
				return nil
			}
			slog.Warn("persisted index rejected, rebuilding", "path", cfg.IndexPath, "error", serr)
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("could not restore persisted index, rebuilding", "path", cfg.IndexPath, "error", err)
		}
	}

	if err := eng.Rebuild(ctx, records); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	return nil
}
