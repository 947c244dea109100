package reranker

import (
	"context"
	"sort"
	"strings"

	"github.com/yamori/assessrec/internal/catalog"
)

// Lexical scores (query, candidate) pairs by direct token matching: query
// coverage plus Jaccard overlap, with name tokens weighted double. It is the
// cross_attention backend: deterministic, fast, and free of network
// dependencies, which also makes it the fallback when the generative backend
// fails.
type Lexical struct{}

// NewLexical creates the lexical cross-scorer.
func NewLexical() *Lexical {
	return &Lexical{}
}

// Rerank scores every candidate against the query. Scores land in [0, 1].
func (l *Lexical) Rerank(_ context.Context, query string, candidates []catalog.Record) ([]ScoredCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	queryTokens := tokenize(query)

	scored := make([]ScoredCandidate, len(candidates))
	for i, rec := range candidates {
		scored[i] = ScoredCandidate{
			ID:    rec.ID,
			Score: l.score(queryTokens, rec),
		}
	}

	// Descending score; stable keeps input order for ties.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored, nil
}

// score combines query-token coverage with Jaccard similarity. Coverage
// dominates: a candidate mentioning every query term is relevant even when its
// description is long.
func (l *Lexical) score(queryTokens map[string]struct{}, rec catalog.Record) float32 {
	if len(queryTokens) == 0 {
		return 0
	}

	nameTokens := tokenize(rec.Name)
	docTokens := tokenize(rec.Name + " " + rec.Description)

	var weighted, total float64
	matched := 0
	for tok := range queryTokens {
		weight := 1.0
		if _, inName := nameTokens[tok]; inName {
			weight = 2.0
		}
		total += weight
		if _, ok := docTokens[tok]; ok {
			weighted += weight
			matched++
		}
	}

	coverage := weighted / total

	union := len(queryTokens) + len(docTokens) - matched
	jaccard := 0.0
	if union > 0 {
		jaccard = float64(matched) / float64(union)
	}

	return float32(0.7*coverage + 0.3*jaccard)
}

// tokenize converts text into a set of lowercase words.
func tokenize(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	tokens := make(map[string]struct{}, len(words))
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'()[]{}=<>/")
		if len(word) > 2 { // Skip very short tokens
			tokens[word] = struct{}{}
		}
	}
	return tokens
}

// Ensure Lexical implements Reranker.
var _ Reranker = (*Lexical)(nil)
