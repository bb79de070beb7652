package storage

import (
	"testing"
	"time"
)

func testStore(t *testing.T) *ClassificationStore {
	t.Helper()
	s := NewClassificationStore(t.TempDir())
	s.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return s
}

func verdict(model, rel string, confidence float64) StoredClassification {
	return StoredClassification{
		ItemID:           "dandi.000003",
		ItemFlavor:       "draft",
		Model:            model,
		Backend:          "ollama",
		RelationshipType: rel,
		Confidence:       confidence,
		Reasoning:        "because",
		Mode:             ModeShortContext,
	}
}

func TestLoad_NoFile(t *testing.T) {
	s := testStore(t)
	list, err := s.Load("10.1/a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if list != nil {
		t.Errorf("expected empty list for unknown paper, got %d", len(list))
	}
}

func TestAdd_ReplacesByKey(t *testing.T) {
	s := testStore(t)
	doi := "10.1016/j.neuron.2021.01.001"

	if err := s.Add(doi, verdict("gemma-3", "Cites", 0.6)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(doi, verdict("claude-3", "Uses", 0.9)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	// Same (item, flavor, model) as the first: replaces it.
	if err := s.Add(doi, verdict("gemma-3", "IsDescribedBy", 0.7)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	list, err := s.Load(doi)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2 (one per model)", len(list))
	}

	got, err := s.Get(doi, "dandi.000003", "draft", "gemma-3")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.RelationshipType != "IsDescribedBy" || got.Confidence != 0.7 {
		t.Errorf("replaced verdict = %+v", got)
	}
	if got.Timestamp != "2025-06-01T12:00:00Z" {
		t.Errorf("Timestamp = %q", got.Timestamp)
	}
}

func TestAdd_DifferentFlavorsCoexist(t *testing.T) {
	s := testStore(t)
	doi := "10.1/a"

	v1 := verdict("gemma-3", "Cites", 0.6)
	v2 := verdict("gemma-3", "Uses", 0.8)
	v2.ItemFlavor = "0.210812.1448"

	if err := s.Add(doi, v1); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(doi, v2); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	list, err := s.Load(doi)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len(list) = %d, want 2", len(list))
	}
}

func TestForItem(t *testing.T) {
	s := testStore(t)
	doi := "10.1/a"

	other := verdict("gemma-3", "Cites", 0.6)
	other.ItemID = "dandi.000099"

	if err := s.Add(doi, verdict("gemma-3", "Cites", 0.6)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(doi, verdict("claude-3", "Uses", 0.9)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(doi, other); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := s.ForItem(doi, "dandi.000003", "draft")
	if err != nil {
		t.Fatalf("ForItem() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(ForItem) = %d, want 2", len(got))
	}
}

func TestHas(t *testing.T) {
	s := testStore(t)
	doi := "10.1/a"

	if err := s.Add(doi, verdict("gemma-3", "Cites", 0.6)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ok, err := s.Has(doi, "dandi.000003", "draft", "gemma-3")
	if err != nil || !ok {
		t.Errorf("Has() = %v, %v; want true", ok, err)
	}
	ok, err = s.Has(doi, "dandi.000003", "draft", "other-model")
	if err != nil || ok {
		t.Errorf("Has() = %v, %v; want false", ok, err)
	}
}
