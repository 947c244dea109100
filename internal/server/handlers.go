package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yamori/assessrec/internal/embedder"
	"github.com/yamori/assessrec/internal/engine"
)

// recommendRequest is the body of POST /recommend.
type recommendRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
	TopN  int    `json:"top_n,omitempty"`
}

// recommendedAssessment is one entry in the recommendation response.
type recommendedAssessment struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	TestTypes   []string `json:"test_type"`
	Duration    int      `json:"duration"`
	Adaptive    bool     `json:"adaptive_support"`
	Remote      bool     `json:"remote_support"`
	Score       float32  `json:"score"`
}

// recommendResponse is the body of a successful POST /recommend.
type recommendResponse struct {
	Query                  string                  `json:"query"`
	RecommendedAssessments []recommendedAssessment `json:"recommended_assessments"`
	Count                  int                     `json:"count"`
	Degraded               bool                    `json:"degraded,omitempty"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}
	topN := req.TopN
	if topN <= 0 {
		topN = s.topN
	}

	cacheKey := fmt.Sprintf("%d:%d:%s", topK, topN, req.Query)
	if cached, ok := s.results.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	result, err := s.engine.Retrieve(r.Context(), req.Query, topK, topN)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidParameters):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, embedder.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "embedding backend unavailable")
		default:
			s.logger.Error("recommendation failed", "query", req.Query, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	resp := recommendResponse{
		Query:                  result.Query,
		RecommendedAssessments: make([]recommendedAssessment, 0, len(result.Entries)),
		Count:                  len(result.Entries),
		Degraded:               result.Degraded,
	}
	for _, e := range result.Entries {
		resp.RecommendedAssessments = append(resp.RecommendedAssessments, recommendedAssessment{
			ID:          e.ID,
			Name:        e.Name,
			URL:         e.URL,
			Description: e.Description,
			TestTypes:   e.TestTypes,
			Duration:    e.Duration,
			Adaptive:    e.Adaptive,
			Remote:      e.Remote,
			Score:       e.Score,
		})
	}

	// Degraded results come from the fallback scorer; keep them out of the
	// cache so recovered backends take effect immediately.
	if !result.Degraded {
		s.results.Set(cacheKey, resp)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"indexed_assessments": s.engine.IndexSize(),
		"embedding_dimension": s.engine.Dimension(),
	})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "no catalog source configured")
		return
	}

	records, err := s.catalog.Load(r.Context())
	if err != nil {
		s.logger.Error("catalog load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	s.results.Clear()

	if err := s.engine.Rebuild(r.Context(), records); err != nil {
		if errors.Is(err, embedder.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "embedding backend unavailable")
			return
		}
		s.logger.Error("index rebuild failed", "error", err)
		writeError(w, http.StatusInternalServerError, "rebuild failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "rebuilt",
		"indexed_assessments": s.engine.IndexSize(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
