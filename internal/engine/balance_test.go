package engine

import (
	"testing"

	"github.com/yamori/assessrec/internal/catalog"
)

func tech(id string, score float32) ResultEntry {
	return ResultEntry{
		Record: catalog.Record{ID: id, TestTypes: []string{catalog.TypeKnowledge}},
		Score:  score,
		Bucket: catalog.BucketTechnical,
	}
}

func behav(id string, score float32) ResultEntry {
	return ResultEntry{
		Record: catalog.Record{ID: id, TestTypes: []string{catalog.TypeBehavioral}},
		Score:  score,
		Bucket: catalog.BucketBehavioral,
	}
}

func ids(entries []ResultEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestBalanceHonorsSplit(t *testing.T) {
	// 10 technical and 10 behavioral candidates, interleaved by score.
	var entries []ResultEntry
	for i := 0; i < 10; i++ {
		entries = append(entries, tech(ids10("t", i), float32(100-2*i)))
		entries = append(entries, behav(ids10("b", i), float32(99-2*i)))
	}

	out := balance(entries, 10, DefaultSplit())

	if len(out) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(out))
	}

	techCount, behavCount := 0, 0
	for _, e := range out {
		switch e.Bucket {
		case catalog.BucketTechnical:
			techCount++
		case catalog.BucketBehavioral:
			behavCount++
		}
	}
	if techCount != 7 || behavCount != 3 {
		t.Errorf("expected 7/3 split, got %d/%d", techCount, behavCount)
	}
}

func TestBalanceBackfill(t *testing.T) {
	// Only 1 behavioral candidate exists; a 70/30 split over 10 must still
	// return 10 entries, backfilled from technical.
	var entries []ResultEntry
	for i := 0; i < 12; i++ {
		entries = append(entries, tech(ids10("t", i), float32(50-i)))
	}
	entries = append(entries, behav("b0", 10))

	out := balance(entries, 10, DefaultSplit())

	if len(out) != 10 {
		t.Fatalf("expected backfill to 10 entries, got %d", len(out))
	}

	found := false
	for _, e := range out {
		if e.ID == "b0" {
			found = true
		}
	}
	if !found {
		t.Error("the lone behavioral candidate should be included")
	}
}

func TestBalancePerBucketScoreMonotonic(t *testing.T) {
	entries := []ResultEntry{
		tech("t1", 9), behav("b1", 8), tech("t2", 7), behav("b2", 6), tech("t3", 5),
	}

	out := balance(entries, 5, DefaultSplit())

	last := map[catalog.Bucket]float32{}
	for _, e := range out {
		if prev, ok := last[e.Bucket]; ok && e.Score > prev {
			t.Errorf("bucket %s scores not non-increasing: %v after %v", e.Bucket, e.Score, prev)
		}
		last[e.Bucket] = e.Score
	}
}

func TestBalanceFewerCandidatesThanTarget(t *testing.T) {
	entries := []ResultEntry{tech("t1", 3), behav("b1", 2)}

	out := balance(entries, 10, DefaultSplit())
	if len(out) != 2 {
		t.Fatalf("expected all 2 candidates, got %d", len(out))
	}
}

func TestBalanceNoDuplicates(t *testing.T) {
	entries := []ResultEntry{
		tech("t1", 9), tech("t2", 8), behav("b1", 7), behav("b2", 6),
	}

	out := balance(entries, 4, DefaultSplit())

	seen := map[string]bool{}
	for _, e := range out {
		if seen[e.ID] {
			t.Errorf("duplicate id %s in balanced output", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestBalanceOtherBucketViaBackfill(t *testing.T) {
	// Records without recognized test types get no quota but fill leftover slots.
	other := ResultEntry{Record: catalog.Record{ID: "o1"}, Score: 99, Bucket: catalog.BucketOther}
	entries := []ResultEntry{other, tech("t1", 5)}

	out := balance(entries, 2, DefaultSplit())
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
}

func TestApportionLargestRemainder(t *testing.T) {
	quotas := apportion(DefaultSplit(), 3)
	if quotas[catalog.BucketTechnical] != 2 || quotas[catalog.BucketBehavioral] != 1 {
		t.Errorf("3 slots at 70/30 should split 2/1, got %v", quotas)
	}

	quotas = apportion(DefaultSplit(), 10)
	if quotas[catalog.BucketTechnical] != 7 || quotas[catalog.BucketBehavioral] != 3 {
		t.Errorf("10 slots at 70/30 should split 7/3, got %v", quotas)
	}
}

func TestNewSplit(t *testing.T) {
	s := NewSplit(0.5)
	if s[catalog.BucketTechnical] != 0.5 || s[catalog.BucketBehavioral] != 0.5 {
		t.Errorf("unexpected split: %v", s)
	}
}

func ids10(prefix string, i int) string {
	return prefix + string(rune('a'+i))
}
