// Package embedder provides interfaces and implementations for text embedding.
package embedder

import (
	"context"
	"errors"
	"math"
)

// ErrUnavailable is returned when the embedding backend cannot be reached or
// fails to produce a vector. The engine never substitutes a different backend
// to recover: vectors from different backends are not comparable inside one
// index, so the error is surfaced to the caller instead.
var ErrUnavailable = errors.New("embedding backend unavailable")

// Embedder defines the interface for text embedding services.
type Embedder interface {
	// Embed generates a unit-normalized embedding vector for a single text input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple text inputs.
	// Returns a slice of embeddings in the same order as the input texts,
	// one output per input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// ModelConfig holds configuration for a specific embedding model.
type ModelConfig struct {
	Dimension     int // Embedding dimension
	ContextLength int // Max tokens the model can process
}

// KnownModels maps embedding model names to their configurations.
var KnownModels = map[string]ModelConfig{
	"nomic-embed-text": {
		Dimension:     768,
		ContextLength: 8192,
	},
	"mxbai-embed-large": {
		Dimension:     1024,
		ContextLength: 512,
	},
	"all-minilm": {
		Dimension:     384,
		ContextLength: 256,
	},
	"gemini-embedding-001": {
		Dimension:     768,
		ContextLength: 2048,
	},
}

// GetModelConfig returns the configuration for a model, or defaults if unknown.
func GetModelConfig(modelName string) ModelConfig {
	if cfg, ok := KnownModels[modelName]; ok {
		return cfg
	}
	// Conservative defaults for unknown models
	return ModelConfig{
		Dimension:     768,
		ContextLength: 2048,
	}
}

// Normalize scales v to unit length in place and returns it, so that inner
// product against other normalized vectors equals cosine similarity. A zero
// vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
