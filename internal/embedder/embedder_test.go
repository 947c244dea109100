package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("expected unit length, got squared norm %v", sum)
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("unexpected normalized vector: %v", v)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	for _, x := range v {
		if x != 0 {
			t.Fatalf("zero vector must stay zero, got %v", v)
		}
	}
}

func TestGetModelConfig(t *testing.T) {
	if got := GetModelConfig("all-minilm").Dimension; got != 384 {
		t.Errorf("all-minilm dimension = %d, want 384", got)
	}
	if got := GetModelConfig("some-unknown-model").Dimension; got != 768 {
		t.Errorf("unknown model default dimension = %d, want 768", got)
	}
}

// fakeOllama serves deterministic embeddings keyed by prompt length.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		emb := []float64{float64(len(req.Prompt)), 1, 2}
		json.NewEncoder(w).Encode(ollamaResponse{Embedding: emb})
	}))
}

func TestOllamaEmbed(t *testing.T) {
	srv := fakeOllama(t)
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL, Model: "all-minilm"})

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3-dim vector, got %d", len(vec))
	}

	// Must be normalized
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("embedding not unit-normalized: squared norm %v", sum)
	}

	// Deterministic: same text, same vector
	again, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("second Embed failed: %v", err)
	}
	for i := range vec {
		if vec[i] != again[i] {
			t.Fatalf("embedding not deterministic at %d: %v vs %v", i, vec[i], again[i])
		}
	}
}

func TestOllamaEmbedBatchPreservesOrder(t *testing.T) {
	srv := fakeOllama(t)
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL, BatchConcurrency: 2})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}

	// The fake encodes prompt length into the first component before
	// normalization, so relative ordering of first components must match
	// text length ordering.
	for i := 1; i < len(vecs); i++ {
		if vecs[i][0] <= vecs[i-1][0] {
			t.Fatalf("batch order not preserved at %d: %v vs %v", i, vecs[i-1][0], vecs[i][0])
		}
	}
}

func TestOllamaEmbedUnavailable(t *testing.T) {
	// Point at a server that is already closed
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL})
	if _, err := e.Embed(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestOllamaEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL})
	if _, err := e.Embed(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestOllamaDefaults(t *testing.T) {
	e := NewOllamaEmbedder(OllamaConfig{})
	if e.ModelName() != DefaultOllamaModel {
		t.Errorf("default model = %s, want %s", e.ModelName(), DefaultOllamaModel)
	}
	if e.Dimension() != 768 {
		t.Errorf("default dimension = %d, want 768", e.Dimension())
	}
}
