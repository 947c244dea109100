// Command predict runs a batch of queries through the recommendation engine
// and writes one CSV row per recommended assessment. With -eval the input
// carries labeled query/assessment_url pairs instead, and the command reports
// mean recall and mean average precision at a cutoff.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/yamori/assessrec/internal/catalog"
	"github.com/yamori/assessrec/internal/config"
	"github.com/yamori/assessrec/internal/embedder"
	"github.com/yamori/assessrec/internal/engine"
	"github.com/yamori/assessrec/internal/repository/postgres"
	"github.com/yamori/assessrec/internal/reranker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	inPath := flag.String("in", "queries.csv", "input CSV with a query column")
	outPath := flag.String("out", "predictions.csv", "output CSV path")
	evalMode := flag.Bool("eval", false, "score labeled query,assessment_url pairs instead of exporting predictions")
	cutoff := flag.Int("k", 0, "evaluation cutoff, defaults to TOP_N_FINAL")
	flag.Parse()

	if err := run(*inPath, *outPath, *evalMode, *cutoff); err != nil {
		slog.Error("prediction run failed", "error", err)
		os.Exit(1)
	}
}

func run(inPath, outPath string, evalMode bool, cutoff int) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}

	if evalMode {
		return runEval(ctx, cfg, eng, inPath, cutoff)
	}

	queries, err := readQueries(inPath)
	if err != nil {
		return err
	}
	slog.Info("loaded queries", "count", len(queries))

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write([]string{"query", "assessment_url"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, query := range queries {
		result, err := eng.Retrieve(ctx, query, cfg.TopKRetrieval, cfg.TopNFinal)
		if err != nil {
			return fmt.Errorf("retrieval failed for %q: %w", query, err)
		}
		for _, entry := range result.Entries {
			if err := w.Write([]string{query, entry.URL}); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	slog.Info("predictions written", "path", outPath)
	return nil
}

// runEval scores the engine against a labeled set and prints mean recall and
// mean average precision at the cutoff.
func runEval(ctx context.Context, cfg *config.Config, eng *engine.Engine, inPath string, cutoff int) error {
	labeled, err := readLabeled(inPath)
	if err != nil {
		return err
	}
	if len(labeled) == 0 {
		return fmt.Errorf("no labeled queries in %s", inPath)
	}
	if cutoff <= 0 {
		cutoff = cfg.TopNFinal
	}
	slog.Info("loaded labeled queries", "count", len(labeled), "cutoff", cutoff)

	var meanRecall, meanAP float64
	for _, lq := range labeled {
		result, err := eng.Retrieve(ctx, lq.Query, cfg.TopKRetrieval, cfg.TopNFinal)
		if err != nil {
			return fmt.Errorf("retrieval failed for %q: %w", lq.Query, err)
		}
		retrieved := make([]string, len(result.Entries))
		for i, entry := range result.Entries {
			retrieved[i] = entry.URL
		}
		meanRecall += recallAt(retrieved, lq.Relevant, cutoff)
		meanAP += averagePrecisionAt(retrieved, lq.Relevant, cutoff)
	}
	meanRecall /= float64(len(labeled))
	meanAP /= float64(len(labeled))

	fmt.Printf("queries=%d mean_recall@%d=%.4f map@%d=%.4f\n", len(labeled), cutoff, meanRecall, cutoff, meanAP)
	return nil
}

// readQueries reads the query column of a CSV file. The column is located by
// header name, defaulting to the first column.
func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := 0
	for i, name := range header {
		if name == "query" {
			col = i
			break
		}
	}

	var queries []string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read input row: %w", err)
		}
		if col < len(row) && row[col] != "" {
			queries = append(queries, row[col])
		}
	}
	return queries, nil
}

func buildEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, error) {
	var emb embedder.Embedder
	if cfg.EmbeddingBackend == config.EmbeddingBackendRemote {
		gem, err := embedder.NewGeminiEmbedder(ctx, embedder.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiEmbeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini embedder: %w", err)
		}
		emb = gem
	} else {
		emb = embedder.NewOllamaEmbedder(embedder.OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaEmbeddingModel,
		})
	}

	opts := []engine.Option{
		engine.WithSplit(engine.NewSplit(cfg.TechnicalSplit)),
		engine.WithRerankTimeout(cfg.RerankTimeout),
	}
	if cfg.RerankerBackend == config.RerankerBackendGenerative {
		gen, err := reranker.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiRerankModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create generative reranker: %w", err)
		}
		opts = append(opts, engine.WithGenerativeReranker(gen))
	}

	eng := engine.New(emb, reranker.NewLexical(), opts...)

	var store catalog.Store
	if cfg.DatabaseURL != "" {
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store = postgres.NewCatalogStore(db)
	} else {
		store = catalog.NewFileStore(cfg.CatalogPath)
	}

	records, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := eng.Rebuild(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	return eng, nil
}
