package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is the default Gemini embedding model.
	DefaultGeminiModel = "gemini-embedding-001"

	// geminiBatchSize bounds the number of texts sent per EmbedContent call.
	geminiBatchSize = 100
)

// GeminiConfig holds configuration for the Gemini embedder.
type GeminiConfig struct {
	// APIKey is the Gemini API key. Required.
	APIKey string

	// Model is the embedding model to use (default: gemini-embedding-001).
	Model string

	// Dimension requests a specific output dimensionality. Defaults to the
	// known dimension for the model.
	Dimension int
}

// GeminiEmbedder implements the Embedder interface using the Gemini API.
// This is the "remote" backend.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGeminiEmbedder creates a new Gemini embedder with the given configuration.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", ErrUnavailable)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = GetModelConfig(model).Dimension
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create genai client: %v", ErrUnavailable, err)
	}

	return &GeminiEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
	}, nil
}

// Embed generates a unit-normalized embedding vector for a single text input.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embedContents(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embedding vectors for multiple text inputs, preserving
// input order with one output per input.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchSize {
		end := start + geminiBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedContents(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch embedding failed at index %d: %w", start, err)
		}
		results = append(results, vecs...)
	}

	return results, nil
}

func (e *GeminiEmbedder) embedContents(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	dim := int32(e.dimension)
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embed: %v", ErrUnavailable, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d inputs",
			ErrUnavailable, len(resp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrUnavailable, i)
		}
		vecs[i] = Normalize(emb.Values)
	}

	return vecs, nil
}

// Dimension returns the dimensionality of the embedding vectors.
func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the name of the embedding model being used.
func (e *GeminiEmbedder) ModelName() string {
	return e.model
}

// Ensure GeminiEmbedder implements Embedder interface.
var _ Embedder = (*GeminiEmbedder)(nil)
