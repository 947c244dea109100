package index

import (
	"encoding/gob"
	"fmt"
	"os"
)

// flatSnapshot is the on-disk form of a Flat index.
type flatSnapshot struct {
	Model     string
	Dimension int
	IDs       []string
	Vectors   [][]float32
}

// Save writes the index to path. The embedding model name and dimension are
// stored alongside the vectors so Load can refuse an index built by a
// different backend.
func (f *Flat) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer file.Close()

	snap := flatSnapshot{
		Model:     f.model,
		Dimension: f.dim,
		IDs:       f.ids,
		Vectors:   f.vectors,
	}
	if err := gob.NewEncoder(file).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return nil
}

// LoadFlat reads an index from path and verifies it matches the active
// embedder's model and dimensionality. A mismatch is fatal: serving an index
// whose vectors came from a different backend would return garbage
// similarities, so the caller must rebuild instead.
func LoadFlat(path, model string, dimension int) (*Flat, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	var snap flatSnapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}

	if snap.Model != model {
		return nil, fmt.Errorf("%w: index built with model %q, embedder uses %q",
			ErrDimensionMismatch, snap.Model, model)
	}
	if snap.Dimension != dimension {
		return nil, fmt.Errorf("%w: index has dimension %d, embedder produces %d",
			ErrDimensionMismatch, snap.Dimension, dimension)
	}
	if len(snap.IDs) != len(snap.Vectors) {
		return nil, fmt.Errorf("%w: %d ids, %d vectors", ErrCountMismatch, len(snap.IDs), len(snap.Vectors))
	}

	return &Flat{
		model:   snap.Model,
		dim:     snap.Dimension,
		ids:     snap.IDs,
		vectors: snap.Vectors,
	}, nil
}
