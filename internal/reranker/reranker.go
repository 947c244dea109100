// Package reranker provides precision re-scoring of retrieval candidates.
//
// The vector index is recall-oriented: it scans the whole catalog cheaply but
// only approximates true relevance. Rerankers score each (query, candidate)
// pair directly and are run only over the index's shortlist, trading one
// expensive pass against a bounded candidate set.
//
// Scores are comparable only within a single Rerank call. Backends use
// different scales, so scores must never be compared across calls or across
// backends.
package reranker

import (
	"context"

	"github.com/yamori/assessrec/internal/catalog"
)

// ScoredCandidate is a candidate record id with its rerank score.
type ScoredCandidate struct {
	ID    string
	Score float32
}

// Reranker defines the interface for re-scoring candidates against a query.
type Reranker interface {
	// Rerank returns one ScoredCandidate per input record, carrying exactly
	// the input's ids (no drops, no additions), ordered by descending score.
	// Equal scores preserve the input order.
	Rerank(ctx context.Context, query string, candidates []catalog.Record) ([]ScoredCandidate, error)
}
