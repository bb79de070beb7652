package classify

import (
	"context"
	"testing"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/llm"
)

// fakeBackend returns a canned result and records what it was asked.
type fakeBackend struct {
	result llm.ClassificationResult
	calls  int

	gotContexts  []string
	gotPaper     llm.PaperMetadata
	gotDatasetID string
}

func (f *fakeBackend) Name() string  { return "fake" }
func (f *fakeBackend) Model() string { return "fake-model" }
func (f *fakeBackend) ClassifyCitation(ctx context.Context, contexts []string, paper llm.PaperMetadata, datasetID string) llm.ClassificationResult {
	f.calls++
	f.gotContexts = contexts
	f.gotPaper = paper
	f.gotDatasetID = datasetID
	return f.result
}

func TestClassifyCitation_EmptyContextFallback(t *testing.T) {
	backend := &fakeBackend{}
	c := New(backend)

	got := c.ClassifyCitation(context.Background(), nil, llm.PaperMetadata{Title: "x"}, "dandi:000003")

	if backend.calls != 0 {
		t.Errorf("backend called %d times for empty contexts, want 0", backend.calls)
	}
	if got.RelationshipType != "Cites" {
		t.Errorf("RelationshipType = %q, want Cites", got.RelationshipType)
	}
	if got.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0", got.Confidence)
	}
	if got.Reasoning == "" {
		t.Error("Reasoning empty, want explanation of missing context")
	}
}

func TestClassifyCitation_DelegatesToBackend(t *testing.T) {
	backend := &fakeBackend{
		result: llm.ClassificationResult{RelationshipType: "Uses", Confidence: 0.9, Reasoning: "analyzed"},
	}
	c := New(backend)

	got := c.ClassifyCitation(context.Background(),
		[]string{"we analyzed"}, llm.PaperMetadata{Title: "paper"}, "dandi:000003")

	if backend.calls != 1 {
		t.Fatalf("backend called %d times, want 1", backend.calls)
	}
	if backend.gotDatasetID != "dandi:000003" {
		t.Errorf("dataset id = %q", backend.gotDatasetID)
	}
	if got.RelationshipType != "Uses" {
		t.Errorf("RelationshipType = %q", got.RelationshipType)
	}
}

func TestShouldReview(t *testing.T) {
	c := New(&fakeBackend{})

	cases := []struct {
		confidence float64
		want       bool
	}{
		{0.0, true},
		{0.69, true},
		{0.7, false}, // exactly at threshold passes
		{0.9, false},
	}
	for _, tc := range cases {
		got := c.ShouldReview(llm.ClassificationResult{Confidence: tc.confidence})
		if got != tc.want {
			t.Errorf("ShouldReview(%v) = %v, want %v", tc.confidence, got, tc.want)
		}
	}
}

func TestShouldReview_CustomThreshold(t *testing.T) {
	c := New(&fakeBackend{}, WithConfidenceThreshold(0.9))
	if !c.ShouldReview(llm.ClassificationResult{Confidence: 0.85}) {
		t.Error("ShouldReview(0.85) = false with threshold 0.9")
	}
}

func TestCoerceRelationship(t *testing.T) {
	cases := []struct {
		label string
		want  citation.Relationship
		exact bool
	}{
		{"Uses", citation.RelUses, true},
		{"IsDocumentedBy", citation.RelIsDocumentedBy, true},
		{"Cites", citation.RelCites, true},
		{"CitesAsEvidence", citation.RelCites, false},
		{"Reviews", citation.RelCites, false},
		{"", citation.RelCites, false},
	}
	for _, tc := range cases {
		got, exact := CoerceRelationship(tc.label)
		if got != tc.want || exact != tc.exact {
			t.Errorf("CoerceRelationship(%q) = %q, %v; want %q, %v",
				tc.label, got, exact, tc.want, tc.exact)
		}
	}
}
