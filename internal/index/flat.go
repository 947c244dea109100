package index

import (
	"context"
	"fmt"
	"sort"
)

// Flat is an exact inner-product index over the full catalog. Vectors are
// stored in catalog insertion order; that order is the deterministic
// tie-break for equal scores (first inserted wins).
type Flat struct {
	model   string
	dim     int
	ids     []string
	vectors [][]float32
}

// BuildFlat constructs a Flat index from parallel id and embedding slices.
// Embeddings must already be unit-normalized by the embedder. The model name
// is recorded so a persisted index can be checked against the active embedder
// at load time.
func BuildFlat(model string, ids []string, embeddings [][]float32) (*Flat, error) {
	if len(ids) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d records, %d embeddings", ErrCountMismatch, len(ids), len(embeddings))
	}

	dim := 0
	for i, vec := range embeddings {
		if i == 0 {
			dim = len(vec)
			continue
		}
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, index has %d",
				ErrDimensionMismatch, i, len(vec), dim)
		}
	}

	return &Flat{
		model:   model,
		dim:     dim,
		ids:     ids,
		vectors: embeddings,
	}, nil
}

// Search returns up to k hits ordered by descending inner-product similarity.
func (f *Flat) Search(_ context.Context, vector []float32, k int) ([]CandidateHit, error) {
	if f.Len() == 0 {
		return nil, nil
	}
	if len(vector) != f.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			ErrDimensionMismatch, len(vector), f.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > f.Len() {
		k = f.Len()
	}

	type scored struct {
		ord   int
		score float32
	}

	all := make([]scored, len(f.vectors))
	for i, vec := range f.vectors {
		var dot float32
		for j, x := range vec {
			dot += x * vector[j]
		}
		all[i] = scored{ord: i, score: dot}
	}

	// Descending score; equal scores keep insertion order.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].score > all[j].score
	})

	hits := make([]CandidateHit, k)
	for i := 0; i < k; i++ {
		hits[i] = CandidateHit{ID: f.ids[all[i].ord], Score: all[i].score}
	}
	return hits, nil
}

// Dimension returns the dimensionality the index was built with.
func (f *Flat) Dimension() int {
	return f.dim
}

// Len returns the number of indexed records.
func (f *Flat) Len() int {
	return len(f.ids)
}

// Model returns the embedding model name the index was built with.
func (f *Flat) Model() string {
	return f.model
}

// IDs returns the indexed record ids in insertion order.
func (f *Flat) IDs() []string {
	return append([]string(nil), f.ids...)
}

// Ensure Flat implements Searcher.
var _ Searcher = (*Flat)(nil)
