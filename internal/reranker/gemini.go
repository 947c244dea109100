package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/yamori/assessrec/internal/catalog"
)

const (
	// DefaultGeminiRerankModel is the default model for generative reranking.
	DefaultGeminiRerankModel = "gemini-2.0-flash"

	// maxCandidateDescription bounds how much of each description is sent.
	maxCandidateDescription = 150
)

// scoreListPattern matches the JSON score array in the model output.
var scoreListPattern = regexp.MustCompile(`\[[\d.,\s]+\]`)

// Gemini delegates pair scoring to a Gemini model. Higher latency and cost
// than the lexical scorer; the engine treats any error here as recoverable and
// keeps the lexical scores for the same candidate set.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a generative reranker backed by the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiRerankModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Rerank asks the model to rate each candidate's relevance 1-10 and returns
// candidates ordered by the normalized ratings.
func (g *Gemini) Rerank(ctx context.Context, query string, candidates []catalog.Record) ([]ScoredCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	prompt := buildScoringPrompt(query, candidates)

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0), // deterministic scoring
		})
	if err != nil {
		return nil, fmt.Errorf("gemini rerank failed: %w", err)
	}

	scores, err := parseScores(resp.Text(), len(candidates))
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredCandidate, len(candidates))
	for i, rec := range candidates {
		scored[i] = ScoredCandidate{ID: rec.ID, Score: scores[i]}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored, nil
}

// buildScoringPrompt lists candidates and requests a bare JSON score array.
func buildScoringPrompt(query string, candidates []catalog.Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Given the job requirement: %q\n\n", query)
	sb.WriteString("Rate each assessment's relevance on a scale of 1-10:\n\n")

	for i, rec := range candidates {
		desc := rec.Description
		if len(desc) > maxCandidateDescription {
			// Cut on a rune boundary so a multi-byte character is never split.
			cut := maxCandidateDescription
			for cut > 0 && !utf8.RuneStart(desc[cut]) {
				cut--
			}
			desc = desc[:cut]
		}
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, rec.Name, desc)
	}

	sb.WriteString("\nReturn only a JSON list of scores, e.g., [9, 7, 5, 8]. ")
	sb.WriteString("One score per assessment, in the order listed. No explanation.")

	return sb.String()
}

// parseScores extracts the score array and normalizes it to [0, 1] by the
// maximum score, one entry per candidate.
func parseScores(text string, numCandidates int) ([]float32, error) {
	match := scoreListPattern.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("no score list found in model output")
	}

	var raw []float32
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse score list: %w", err)
	}
	if len(raw) < numCandidates {
		return nil, fmt.Errorf("model returned %d scores for %d candidates", len(raw), numCandidates)
	}
	raw = raw[:numCandidates]

	var max float32
	for _, s := range raw {
		if s > max {
			max = s
		}
	}
	if max <= 0 {
		return nil, fmt.Errorf("model returned no positive scores")
	}

	scores := make([]float32, numCandidates)
	for i, s := range raw {
		if s < 0 {
			s = 0
		}
		scores[i] = s / max
	}
	return scores, nil
}

// Ensure Gemini implements Reranker.
var _ Reranker = (*Gemini)(nil)
