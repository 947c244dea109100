// Package engine orchestrates the two-stage retrieval pipeline: embed the
// query, search the vector index for a recall-oriented shortlist, rerank the
// shortlist for precision, then balance the final list across category
// buckets.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yamori/assessrec/internal/catalog"
	"github.com/yamori/assessrec/internal/embedder"
	"github.com/yamori/assessrec/internal/index"
	"github.com/yamori/assessrec/internal/reranker"
)

// ErrInvalidParameters is returned when a caller violates the retrieve
// contract (topK < topN, non-positive sizes, empty query). The engine never
// silently clamps: shrinking the candidate pool would hide a caller mistake
// that directly degrades result quality.
var ErrInvalidParameters = errors.New("invalid retrieval parameters")

// DefaultRerankTimeout bounds a single generative rerank call.
const DefaultRerankTimeout = 15 * time.Second

// ResultEntry is one recommended assessment with its final ranking score and
// the bucket the balancer assigned it to. The full record travels along so
// callers can present results without a second lookup.
type ResultEntry struct {
	catalog.Record
	Score  float32
	Bucket catalog.Bucket
}

// Result is the final output of one retrieval call. Created fresh per call,
// never cached.
type Result struct {
	Query   string
	Entries []ResultEntry

	// Degraded is true when the generative reranker failed or timed out and
	// the entries carry cross-attention scores instead.
	Degraded bool
}

// snapshot pairs an immutable index with the record table it was built over.
// Retrieve reads one snapshot for its whole duration; Rebuild swaps in a new
// one atomically, so concurrent calls see fully-old or fully-new state.
type snapshot struct {
	idx     index.Searcher
	records map[string]catalog.Record
}

// Builder constructs an index backend from parallel id/vector slices.
type Builder func(ctx context.Context, ids []string, vectors [][]float32) (index.Searcher, error)

// Engine runs the retrieval pipeline. All fields are set at construction and
// read-only afterwards except the snapshot pointer.
type Engine struct {
	embedder      embedder.Embedder
	cross         reranker.Reranker
	generative    reranker.Reranker
	rerankTimeout time.Duration
	split         Split
	build         Builder
	logger        *slog.Logger

	snap atomic.Pointer[snapshot]
}

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithGenerativeReranker adds an optional generative scoring pass on top of
// the cross-attention scores. Failures of this pass are recoverable.
func WithGenerativeReranker(r reranker.Reranker) Option {
	return func(e *Engine) {
		e.generative = r
	}
}

// WithRerankTimeout bounds each generative rerank call.
func WithRerankTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.rerankTimeout = d
		}
	}
}

// WithSplit sets the balancer's category mix.
func WithSplit(split Split) Option {
	return func(e *Engine) {
		if len(split) > 0 {
			e.split = split
		}
	}
}

// WithBuilder sets the index backend used by Rebuild. The default builds the
// in-memory exact index.
func WithBuilder(b Builder) Option {
	return func(e *Engine) {
		e.build = b
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine. The cross-attention reranker is mandatory: it is
// both the default precision stage and the fallback when the generative
// backend degrades.
func New(emb embedder.Embedder, cross reranker.Reranker, opts ...Option) *Engine {
	e := &Engine{
		embedder:      emb,
		cross:         cross,
		rerankTimeout: DefaultRerankTimeout,
		split:         DefaultSplit(),
		logger:        slog.Default(),
	}
	e.build = func(_ context.Context, ids []string, vectors [][]float32) (index.Searcher, error) {
		return index.BuildFlat(emb.ModelName(), ids, vectors)
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// SetIndex installs a pre-built index (e.g. loaded from disk) together with
// the catalog it was built over. The index dimensionality must match the
// active embedder and every indexed id must resolve in the catalog; a
// mismatch is fatal and must block startup rather than serve garbage
// similarities or fail every query at request time.
func (e *Engine) SetIndex(idx index.Searcher, records []catalog.Record) error {
	if idx.Len() > 0 && idx.Dimension() != e.embedder.Dimension() {
		return fmt.Errorf("%w: index dimension %d, embedder dimension %d",
			index.ErrDimensionMismatch, idx.Dimension(), e.embedder.Dimension())
	}
	if idx.Len() != len(records) {
		return fmt.Errorf("%w: index has %d vectors, catalog has %d records",
			index.ErrCountMismatch, idx.Len(), len(records))
	}

	table := recordTable(records)
	if lister, ok := idx.(interface{ IDs() []string }); ok {
		for _, id := range lister.IDs() {
			if _, ok := table[id]; !ok {
				return fmt.Errorf("index contains record id %q not present in catalog", id)
			}
		}
	}

	e.snap.Store(&snapshot{idx: idx, records: table})
	return nil
}

// Rebuild embeds the given catalog and swaps in a freshly built index. The
// new snapshot is assembled off to the side; in-flight Retrieve calls keep
// reading the old one until the single atomic swap.
func (e *Engine) Rebuild(ctx context.Context, records []catalog.Record) error {
	if err := catalog.Validate(records); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	ids := make([]string, len(records))
	texts := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		texts[i] = rec.EmbeddingText()
	}

	start := time.Now()
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed catalog: %w", err)
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("%w: %d records, %d embeddings", index.ErrCountMismatch, len(records), len(vectors))
	}

	idx, err := e.build(ctx, ids, vectors)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	e.snap.Store(&snapshot{idx: idx, records: recordTable(records)})
	e.logger.Info("index rebuilt",
		"records", len(records),
		"dimension", idx.Dimension(),
		"model", e.embedder.ModelName(),
		"duration", time.Since(start),
	)
	return nil
}

// IndexSize reports the number of indexed records, for stats endpoints.
func (e *Engine) IndexSize() int {
	snap := e.snap.Load()
	if snap == nil {
		return 0
	}
	return snap.idx.Len()
}

// Dimension reports the active embedder's output dimensionality.
func (e *Engine) Dimension() int {
	return e.embedder.Dimension()
}

// Retrieve runs the full pipeline for one query. topK is the size of the
// recall shortlist, topN the size of the final list; topK must be >= topN.
// An empty catalog yields an empty result, not an error. Identical inputs
// against an unchanged catalog and deterministic backends produce identical
// results.
func (e *Engine) Retrieve(ctx context.Context, query string, topK, topN int) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", ErrInvalidParameters)
	}
	if topK <= 0 || topN <= 0 {
		return nil, fmt.Errorf("%w: top_k and top_n must be positive", ErrInvalidParameters)
	}
	if topK < topN {
		return nil, fmt.Errorf("%w: top_k (%d) must be >= top_n (%d)", ErrInvalidParameters, topK, topN)
	}

	result := &Result{Query: query}

	snap := e.snap.Load()
	if snap == nil || snap.idx.Len() == 0 {
		// No candidates is a valid outcome, not an error.
		return result, nil
	}

	// Stage 1: embed the query.
	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Stage 2: recall shortlist from the vector index.
	hits, err := snap.idx.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(hits) == 0 {
		return result, nil
	}

	candidates := make([]catalog.Record, 0, len(hits))
	similarity := make(map[string]float32, len(hits))
	for _, hit := range hits {
		rec, ok := snap.records[hit.ID]
		if !ok {
			// Index and record table are swapped together; a miss means the
			// snapshot is corrupt.
			return nil, fmt.Errorf("index returned unknown record id %q", hit.ID)
		}
		candidates = append(candidates, rec)
		similarity[hit.ID] = hit.Score
	}

	// Stage 3: precision rerank over the shortlist.
	scored, degraded := e.rerank(ctx, query, candidates, hits)
	result.Degraded = degraded

	// Stage 4: balance the category mix.
	entries := make([]ResultEntry, len(scored))
	for i, sc := range scored {
		rec := snap.records[sc.ID]
		entries[i] = ResultEntry{Record: rec, Score: sc.Score, Bucket: rec.Bucket()}
	}
	result.Entries = balance(entries, topN, e.split)

	return result, nil
}

// rerank produces the ranking signal for the shortlist. The cross-attention
// scores are always computed; the generative pass, when configured, replaces
// them unless it fails or times out, in which case the cross scores stand and
// the result is marked degraded. Transient remote failures never fail the
// request.
func (e *Engine) rerank(ctx context.Context, query string, candidates []catalog.Record, hits []index.CandidateHit) ([]reranker.ScoredCandidate, bool) {
	scored, err := e.cross.Rerank(ctx, query, candidates)
	if err != nil || len(scored) != len(candidates) {
		// The lexical scorer has no failure modes in practice; guard anyway
		// and fall back to raw similarity ordering.
		e.logger.Warn("cross-attention rerank failed, using vector similarity", "error", err)
		scored = make([]reranker.ScoredCandidate, len(hits))
		for i, hit := range hits {
			scored[i] = reranker.ScoredCandidate{ID: hit.ID, Score: hit.Score}
		}
		return scored, false
	}

	if e.generative == nil {
		return scored, false
	}

	genCtx, cancel := context.WithTimeout(ctx, e.rerankTimeout)
	defer cancel()

	genScored, err := e.generative.Rerank(genCtx, query, candidates)
	if err != nil || len(genScored) != len(candidates) {
		e.logger.Warn("generative rerank failed, keeping cross-attention scores", "error", err)
		return scored, true
	}

	// The generative backend parses model output; its ids must map back onto
	// the shortlist exactly before they are trusted.
	valid := make(map[string]struct{}, len(candidates))
	for _, rec := range candidates {
		valid[rec.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(genScored))
	for _, sc := range genScored {
		if _, ok := valid[sc.ID]; !ok {
			e.logger.Warn("generative rerank returned unknown id, keeping cross-attention scores", "id", sc.ID)
			return scored, true
		}
		if _, dup := seen[sc.ID]; dup {
			e.logger.Warn("generative rerank returned duplicate id, keeping cross-attention scores", "id", sc.ID)
			return scored, true
		}
		seen[sc.ID] = struct{}{}
	}

	return genScored, false
}

func recordTable(records []catalog.Record) map[string]catalog.Record {
	table := make(map[string]catalog.Record, len(records))
	for _, rec := range records {
		table[rec.ID] = rec
	}
	return table
}
