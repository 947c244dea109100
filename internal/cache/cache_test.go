package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	s := NewStore(10, time.Minute)
	defer s.Close()

	if _, ok := s.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}

	s.Set("k", "v")
	got, ok := s.Get("k")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got != "v" {
		t.Errorf("expected v, got %v", got)
	}
}

func TestExpiry(t *testing.T) {
	s := NewStore(10, 10*time.Millisecond)
	defer s.Close()

	s.Set("k", "v")
	time.Sleep(20 * time.Millisecond)

	if _, ok := s.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}

	s.cleanup()
	if s.Len() != 0 {
		t.Errorf("expected cleanup to evict expired entry, got %d entries", s.Len())
	}
}

func TestFullCacheDropsNewWrites(t *testing.T) {
	s := NewStore(3, time.Minute)
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.Set(fmt.Sprintf("k%d", i), i)
	}

	if s.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", s.Len())
	}
	if _, ok := s.Get("k0"); !ok {
		t.Error("expected earliest entry to survive")
	}
	if _, ok := s.Get("k4"); ok {
		t.Error("expected overflow write to be dropped")
	}

	// Overwriting an existing key is always allowed.
	s.Set("k0", 42)
	got, _ := s.Get("k0")
	if got != 42 {
		t.Errorf("expected overwrite to succeed, got %v", got)
	}
}

func TestClear(t *testing.T) {
	s := NewStore(10, time.Minute)
	defer s.Close()

	s.Set("k", "v")
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d entries", s.Len())
	}
}
