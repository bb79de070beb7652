// Package classify orchestrates LLM-based citation relationship
// classification and the confidence policy applied to its results.
package classify

import (
	"context"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/llm"
)

// DefaultConfidenceThreshold is the minimum confidence below which a
// verdict is flagged for human review.
const DefaultConfidenceThreshold = 0.7

// Classifier wraps a backend with the empty-context fallback and the
// review threshold.
type Classifier struct {
	backend   llm.Backend
	threshold float64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithConfidenceThreshold overrides the review threshold.
func WithConfidenceThreshold(threshold float64) Option {
	return func(c *Classifier) { c.threshold = threshold }
}

// New creates a Classifier around a backend.
func New(backend llm.Backend, opts ...Option) *Classifier {
	c := &Classifier{backend: backend, threshold: DefaultConfidenceThreshold}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the wrapped backend.
func (c *Classifier) Backend() llm.Backend { return c.backend }

// ClassifyCitation classifies one citation from its mention contexts. An
// empty context list is not an error: it yields the fixed fallback so
// downstream code always receives a well-formed result.
func (c *Classifier) ClassifyCitation(ctx context.Context, contexts []string, paper llm.PaperMetadata, datasetID string) llm.ClassificationResult {
	if len(contexts) == 0 {
		return llm.Fallback("No context available for classification", nil)
	}
	return c.backend.ClassifyCitation(ctx, contexts, paper, datasetID)
}

// ShouldReview reports whether a verdict's confidence falls below the
// threshold. Strictly below: a verdict at exactly the threshold passes.
func (c *Classifier) ShouldReview(result llm.ClassificationResult) bool {
	return result.Confidence < c.threshold
}

// CoerceRelationship maps a backend's relationship label onto the citation
// record vocabulary for promotion. The classification prompt speaks the
// wider CiTO vocabulary; labels with no record equivalent collapse to the
// generic Cites. The boolean reports whether the label mapped exactly.
func CoerceRelationship(label string) (citation.Relationship, bool) {
	rel := citation.Relationship(label)
	if rel.IsValid() {
		return rel, true
	}
	return citation.RelCites, false
}
