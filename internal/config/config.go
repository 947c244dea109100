// Package config loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Embedding backend names accepted by EMBEDDING_BACKEND.
const (
	EmbeddingBackendLocal  = "local"  // Ollama sentence embedding model
	EmbeddingBackendRemote = "remote" // Gemini embedding API
)

// Reranker backend names accepted by RERANKER_BACKEND.
const (
	RerankerBackendCross      = "cross_attention"
	RerankerBackendGenerative = "generative"
)

// Index backend names accepted by INDEX_BACKEND.
const (
	IndexBackendMemory = "memory"
	IndexBackendQdrant = "qdrant"
)

// Config holds all configuration for the recommendation service
type Config struct {
	// Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Retrieval
	EmbeddingBackend string        `env:"EMBEDDING_BACKEND" envDefault:"local"`
	RerankerBackend  string        `env:"RERANKER_BACKEND" envDefault:"cross_attention"`
	IndexBackend     string        `env:"INDEX_BACKEND" envDefault:"memory"`
	TopKRetrieval    int           `env:"TOP_K_RETRIEVAL" envDefault:"20"`
	TopNFinal        int           `env:"TOP_N_FINAL" envDefault:"10"`
	TechnicalSplit   float64       `env:"TECHNICAL_SPLIT" envDefault:"0.7"`
	RerankTimeout    time.Duration `env:"RERANK_TIMEOUT" envDefault:"15s"`

	// Ollama (local embedding backend)
	OllamaURL            string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaEmbeddingModel string `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`

	// Gemini (remote embedding backend / generative reranker)
	GeminiAPIKey         string `env:"GEMINI_API_KEY"`
	GeminiEmbeddingModel string `env:"GEMINI_EMBEDDING_MODEL" envDefault:"gemini-embedding-001"`
	GeminiRerankModel    string `env:"GEMINI_RERANK_MODEL" envDefault:"gemini-2.0-flash"`

	// Qdrant (optional remote index backend)
	QdrantGRPCURL string `env:"QDRANT_GRPC_URL" envDefault:"localhost:6334"`

	// Catalog sources
	CatalogPath string `env:"CATALOG_PATH" envDefault:"data/catalog.json"`
	IndexPath   string `env:"INDEX_PATH" envDefault:"data/index.gob"`
	DatabaseURL string `env:"DATABASE_URL"`
	CatalogURL  string `env:"CATALOG_URL" envDefault:"https://www.shl.com/solutions/products/product-catalog/"`

	// Auth
	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-this-in-production"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
}

// Load loads configuration from .env file (if present) and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option values that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	switch c.EmbeddingBackend {
	case EmbeddingBackendLocal, EmbeddingBackendRemote:
	default:
		return fmt.Errorf("unknown EMBEDDING_BACKEND %q", c.EmbeddingBackend)
	}

	switch c.RerankerBackend {
	case RerankerBackendCross, RerankerBackendGenerative:
	default:
		return fmt.Errorf("unknown RERANKER_BACKEND %q", c.RerankerBackend)
	}

	switch c.IndexBackend {
	case IndexBackendMemory, IndexBackendQdrant:
	default:
		return fmt.Errorf("unknown INDEX_BACKEND %q", c.IndexBackend)
	}

	if c.TechnicalSplit < 0 || c.TechnicalSplit > 1 {
		return fmt.Errorf("TECHNICAL_SPLIT must be within [0,1], got %v", c.TechnicalSplit)
	}

	if c.EmbeddingBackend == EmbeddingBackendRemote && c.GeminiAPIKey == "" {
		return fmt.Errorf("EMBEDDING_BACKEND=remote requires GEMINI_API_KEY")
	}
	if c.RerankerBackend == RerankerBackendGenerative && c.GeminiAPIKey == "" {
		return fmt.Errorf("RERANKER_BACKEND=generative requires GEMINI_API_KEY")
	}

	return nil
}
