// Package index provides vector similarity search over the assessment catalog.
//
// The catalog is small (hundreds of records), so the default backend is an
// exact inner-product index held in memory: perfect recall is cheap at this
// scale and an approximate structure would trade precision for nothing. A
// Qdrant-backed implementation is available for deployments that keep vectors
// out of process; it runs with exact search enabled for the same reason.
package index

import (
	"context"
	"errors"
)

var (
	// ErrDimensionMismatch is returned when a vector's dimensionality does not
	// match the index. Raised at build or load time, and on every query before
	// any similarity computation.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrCountMismatch is returned when the number of embeddings does not match
	// the number of records at build time.
	ErrCountMismatch = errors.New("record/embedding count mismatch")
)

// CandidateHit is a single search hit: a record id with its similarity to the
// query. With unit-normalized vectors the score is cosine similarity in
// roughly [-1, 1]. Hits are transient, held only within one retrieval call.
type CandidateHit struct {
	ID    string
	Score float32
}

// Searcher is the query-side contract shared by index backends. Implementations
// are immutable between rebuilds; concurrent searches need no locking.
type Searcher interface {
	// Search returns up to k hits ordered by descending similarity. k larger
	// than the index size is clamped.
	Search(ctx context.Context, vector []float32, k int) ([]CandidateHit, error)

	// Dimension returns the dimensionality the index was built with.
	Dimension() int

	// Len returns the number of indexed records.
	Len() int
}
