package index

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func unit(v ...float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func TestBuildFlatCountMismatch(t *testing.T) {
	_, err := BuildFlat("m", []string{"a", "b"}, [][]float32{{1, 0}})
	if !errors.Is(err, ErrCountMismatch) {
		t.Errorf("expected ErrCountMismatch, got %v", err)
	}
}

func TestBuildFlatDimensionMismatch(t *testing.T) {
	_, err := BuildFlat("m", []string{"a", "b"}, [][]float32{{1, 0}, {1, 0, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFlatSearchOrdering(t *testing.T) {
	idx, err := BuildFlat("m",
		[]string{"far", "near", "mid"},
		[][]float32{
			unit(0, 1), // orthogonal to query
			unit(1, 0), // aligned with query
			unit(1, 1), // in between
		})
	if err != nil {
		t.Fatalf("BuildFlat failed: %v", err)
	}

	hits, err := idx.Search(context.Background(), unit(1, 0), 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	wantOrder := []string{"near", "mid", "far"}
	if len(hits) != len(wantOrder) {
		t.Fatalf("expected %d hits, got %d", len(wantOrder), len(hits))
	}
	for i, want := range wantOrder {
		if hits[i].ID != want {
			t.Errorf("hit %d = %s, want %s", i, hits[i].ID, want)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, hits[i].Score, hits[i-1].Score)
		}
	}
}

func TestFlatSearchTieBreakInsertionOrder(t *testing.T) {
	// Identical vectors: ties must resolve to first-inserted.
	v := unit(1, 2, 3)
	idx, err := BuildFlat("m", []string{"first", "second", "third"}, [][]float32{v, v, v})
	if err != nil {
		t.Fatalf("BuildFlat failed: %v", err)
	}

	hits, err := idx.Search(context.Background(), v, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	want := []string{"first", "second", "third"}
	for i := range want {
		if hits[i].ID != want[i] {
			t.Errorf("tie-break order: hit %d = %s, want %s", i, hits[i].ID, want[i])
		}
	}
}

func TestFlatSearchClampsK(t *testing.T) {
	idx, _ := BuildFlat("m", []string{"a", "b"}, [][]float32{unit(1, 0), unit(0, 1)})

	hits, err := idx.Search(context.Background(), unit(1, 1), 100)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected k clamped to 2, got %d hits", len(hits))
	}
}

func TestFlatSearchQueryDimensionMismatch(t *testing.T) {
	// Built at dimension 384, queried at 768: must fail before any similarity math.
	vecs := make([][]float32, 1)
	vecs[0] = make([]float32, 384)
	vecs[0][0] = 1

	idx, err := BuildFlat("m", []string{"a"}, vecs)
	if err != nil {
		t.Fatalf("BuildFlat failed: %v", err)
	}

	query := make([]float32, 768)
	if _, err := idx.Search(context.Background(), query, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFlatSearchEmptyIndex(t *testing.T) {
	idx, err := BuildFlat("m", nil, nil)
	if err != nil {
		t.Fatalf("BuildFlat failed: %v", err)
	}

	hits, err := idx.Search(context.Background(), unit(1, 0), 5)
	if err != nil {
		t.Fatalf("Search on empty index failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestFlatSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.gob")

	idx, err := BuildFlat("all-minilm", []string{"a", "b"}, [][]float32{unit(1, 0), unit(0, 1)})
	if err != nil {
		t.Fatalf("BuildFlat failed: %v", err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFlat(path, "all-minilm", 2)
	if err != nil {
		t.Fatalf("LoadFlat failed: %v", err)
	}
	if loaded.Len() != 2 || loaded.Dimension() != 2 {
		t.Errorf("loaded index shape wrong: len=%d dim=%d", loaded.Len(), loaded.Dimension())
	}

	hits, err := loaded.Search(context.Background(), unit(1, 0), 1)
	if err != nil {
		t.Fatalf("Search on loaded index failed: %v", err)
	}
	if hits[0].ID != "a" {
		t.Errorf("loaded index returned %s, want a", hits[0].ID)
	}
}

func TestLoadFlatRejectsWrongBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.gob")

	idx, _ := BuildFlat("all-minilm", []string{"a"}, [][]float32{unit(1, 0)})
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Different model
	if _, err := LoadFlat(path, "nomic-embed-text", 2); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected model mismatch rejection, got %v", err)
	}

	// Different dimension
	if _, err := LoadFlat(path, "all-minilm", 768); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch rejection, got %v", err)
	}
}
