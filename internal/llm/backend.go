// Package llm provides language-model backends for citation relationship
// classification.
package llm

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout is the per-request timeout for backend calls. Local
// models can be slow to first token, so this is generous.
const DefaultTimeout = 120 * time.Second

// ErrMissingAPIKey indicates a hosted backend was configured without
// credentials.
var ErrMissingAPIKey = errors.New("API key required")

// PaperMetadata is the citing-work context handed to the model alongside
// the extracted text.
type PaperMetadata struct {
	Title   string
	Journal string
	Year    int
}

// ClassificationResult is the structured verdict a backend must return.
type ClassificationResult struct {
	RelationshipType string   `json:"relationship_type"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	ContextUsed      []string `json:"-"`
}

// Backend classifies one citation from its mention contexts. A transport
// or parse failure never crosses this boundary as an error: backends
// degrade to the zero-confidence fallback so downstream code always
// receives a well-formed result.
type Backend interface {
	Name() string
	Model() string
	ClassifyCitation(ctx context.Context, contexts []string, paper PaperMetadata, datasetID string) ClassificationResult
}

// Fallback builds the degraded result used when a backend cannot produce
// a verdict.
func Fallback(reason string, contexts []string) ClassificationResult {
	return ClassificationResult{
		RelationshipType: "Cites",
		Confidence:       0.0,
		Reasoning:        reason,
		ContextUsed:      contexts,
	}
}
