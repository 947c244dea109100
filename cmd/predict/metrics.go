package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// labeledQuery is one evaluation query with the set of assessment URLs judged
// relevant for it.
type labeledQuery struct {
	Query    string
	Relevant map[string]struct{}
}

// readLabeled reads a labeled CSV with query and assessment_url columns, one
// row per relevant pair. Rows sharing a query accumulate into one relevance
// set; query order follows first appearance.
func readLabeled(path string) ([]labeledQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	queryCol, urlCol := 0, 1
	for i, name := range header {
		switch name {
		case "query":
			queryCol = i
		case "assessment_url":
			urlCol = i
		}
	}

	var labeled []labeledQuery
	byQuery := map[string]int{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read input row: %w", err)
		}
		if queryCol >= len(row) || urlCol >= len(row) || row[queryCol] == "" || row[urlCol] == "" {
			continue
		}
		query, url := row[queryCol], row[urlCol]

		i, ok := byQuery[query]
		if !ok {
			i = len(labeled)
			byQuery[query] = i
			labeled = append(labeled, labeledQuery{Query: query, Relevant: map[string]struct{}{}})
		}
		labeled[i].Relevant[url] = struct{}{}
	}
	return labeled, nil
}

// recallAt is the fraction of the relevant set found in the top k retrieved.
func recallAt(retrieved []string, relevant map[string]struct{}, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	if k > len(retrieved) {
		k = len(retrieved)
	}
	hits := 0
	for _, url := range retrieved[:k] {
		if _, ok := relevant[url]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

// averagePrecisionAt is the mean of the precision values at each relevant
// rank within the top k, normalized by min(k, |relevant|).
func averagePrecisionAt(retrieved []string, relevant map[string]struct{}, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	if k > len(retrieved) {
		k = len(retrieved)
	}
	hits := 0
	var sum float64
	for i, url := range retrieved[:k] {
		if _, ok := relevant[url]; ok {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	if hits == 0 {
		return 0
	}
	denom := len(relevant)
	if k < denom {
		denom = k
	}
	return sum / float64(denom)
}
