// Package catalog defines the assessment record model and catalog loading.
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Test type codes used by the product catalog.
const (
	TypeKnowledge   = "K" // knowledge / cognitive ability
	TypePerformance = "P" // performance / technical skill
	TypeSituational = "S" // situational judgment
	TypeBehavioral  = "B" // behavioral / personality
)

// Bucket is the coarse category grouping used for result balancing.
type Bucket string

const (
	BucketTechnical  Bucket = "technical"  // K and P test types
	BucketBehavioral Bucket = "behavioral" // S and B test types
	BucketOther      Bucket = "other"      // no recognized test type
)

// Record is a single assessment product. Records are immutable once loaded;
// a catalog change rebuilds the whole index.
type Record struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	TestTypes   []string `json:"test_type"`
	// Duration is in minutes; 0 means unknown.
	Duration int  `json:"duration"`
	Adaptive bool `json:"adaptive_support"`
	Remote   bool `json:"remote_support"`
}

// Bucket classifies the record for the balancer. A record carrying both a
// technical and a behavioral type code counts as technical, matching how the
// catalog labels mixed solutions.
func (r Record) Bucket() Bucket {
	hasBehavioral := false
	for _, t := range r.TestTypes {
		switch t {
		case TypeKnowledge, TypePerformance:
			return BucketTechnical
		case TypeSituational, TypeBehavioral:
			hasBehavioral = true
		}
	}
	if hasBehavioral {
		return BucketBehavioral
	}
	return BucketOther
}

// EmbeddingText renders the record into the flat text form fed to the embedder.
func (r Record) EmbeddingText() string {
	parts := []string{
		"Assessment: " + r.Name,
		"Type: " + strings.Join(r.TestTypes, ", "),
		"Description: " + r.Description,
	}

	if r.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %d minutes", r.Duration))
	}
	if r.Adaptive {
		parts = append(parts, "Adaptive: yes")
	}
	if r.Remote {
		parts = append(parts, "Remote: yes")
	}

	return strings.Join(parts, " | ")
}

// Store loads the full assessment catalog. Implementations are read-only from
// the engine's point of view.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
}

// Validate checks catalog-wide invariants before an index is built over it.
// Record IDs must be unique and non-empty.
func Validate(records []Record) error {
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("record %d (%q) has empty id", i, rec.Name)
		}
		if _, dup := seen[rec.ID]; dup {
			return fmt.Errorf("duplicate record id %q", rec.ID)
		}
		seen[rec.ID] = struct{}{}
	}
	return nil
}
