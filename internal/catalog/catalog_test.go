package catalog

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecordBucket(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		want  Bucket
	}{
		{"knowledge", []string{TypeKnowledge}, BucketTechnical},
		{"performance", []string{TypePerformance}, BucketTechnical},
		{"personality", []string{TypeBehavioral}, BucketBehavioral},
		{"situational", []string{TypeSituational}, BucketBehavioral},
		{"mixed counts as technical", []string{TypeBehavioral, TypeKnowledge}, BucketTechnical},
		{"unrecognized", []string{"X"}, BucketOther},
		{"empty", nil, BucketOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{ID: "r", TestTypes: tt.types}
			if got := rec.Bucket(); got != tt.want {
				t.Errorf("Bucket() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecordEmbeddingText(t *testing.T) {
	rec := Record{
		ID:          "java-8",
		Name:        "Java 8",
		Description: "Core Java programming assessment",
		TestTypes:   []string{TypeKnowledge, TypePerformance},
		Duration:    40,
		Adaptive:    true,
		Remote:      true,
	}

	text := rec.EmbeddingText()

	for _, want := range []string{
		"Assessment: Java 8",
		"Type: K, P",
		"Description: Core Java programming assessment",
		"Duration: 40 minutes",
		"Adaptive: yes",
		"Remote: yes",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("embedding text missing %q: %s", want, text)
		}
	}

	// Unknown duration must not be rendered
	rec.Duration = 0
	if strings.Contains(rec.EmbeddingText(), "Duration") {
		t.Error("unknown duration should be omitted from embedding text")
	}
}

func TestValidate(t *testing.T) {
	valid := []Record{{ID: "a"}, {ID: "b"}}
	if err := Validate(valid); err != nil {
		t.Fatalf("unexpected error for valid catalog: %v", err)
	}

	if err := Validate([]Record{{ID: "a"}, {ID: "a"}}); err == nil {
		t.Error("expected error for duplicate ids")
	}

	if err := Validate([]Record{{ID: ""}}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	store := NewFileStore(path)

	records := []Record{
		{ID: "java-8", Name: "Java 8", TestTypes: []string{TypeKnowledge}, Duration: 40},
		{ID: "opq32r", Name: "OPQ32r", TestTypes: []string{TypeBehavioral}},
	}

	if err := store.Save(records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(loaded))
	}
	if loaded[0].ID != "java-8" || loaded[0].Duration != 40 {
		t.Errorf("first record mismatch: %+v", loaded[0])
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	if _, err := store.Load(context.Background()); err == nil {
		t.Error("expected error for missing catalog file")
	}
}
