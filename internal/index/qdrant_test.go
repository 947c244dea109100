package index

import (
	"strings"
	"testing"
)

func TestNewCollectionNameUnique(t *testing.T) {
	// Each build gets its own collection so a rebuild never touches the one
	// being served.
	first := newCollectionName()
	second := newCollectionName()
	if first == second {
		t.Fatalf("consecutive builds would share collection %q", first)
	}
	for _, name := range []string{first, second} {
		if !strings.HasPrefix(name, collectionPrefix) {
			t.Errorf("collection %q missing service prefix", name)
		}
	}
}

func TestStaleCollections(t *testing.T) {
	existing := []string{
		"assessments_100_1", // two builds ago, no longer referenced
		"assessments_200_2", // previous build, may still serve a draining snapshot
		"assessments_300_3", // just built
		"other_service",     // not ours
	}

	stale := staleCollections(existing, "assessments_300_3", "assessments_200_2")

	if len(stale) != 1 || stale[0] != "assessments_100_1" {
		t.Fatalf("expected only the oldest owned collection, got %v", stale)
	}
}

func TestStaleCollectionsEmptyDrain(t *testing.T) {
	// First build of a process: nothing is draining, leftovers from earlier
	// runs are all stale.
	existing := []string{"assessments_100_1", "assessments_300_3"}

	stale := staleCollections(existing, "assessments_300_3", "")

	if len(stale) != 1 || stale[0] != "assessments_100_1" {
		t.Fatalf("expected leftover collection from a prior run, got %v", stale)
	}
}
