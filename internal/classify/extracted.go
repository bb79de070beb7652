package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dandi/citecollect/internal/llm"
)

// ExtractedPaper is the persisted output of context extraction for one
// paper: its metadata plus every dataset mention found in its text.
type ExtractedPaper struct {
	PaperDOI     string              `json:"paper_doi"`
	PaperTitle   string              `json:"paper_title"`
	PaperJournal string              `json:"paper_journal"`
	PaperYear    int                 `json:"paper_year"`
	OAStatus     string              `json:"oa_status"`
	Citations    []ExtractedCitation `json:"citations"`
}

// ExtractedCitation groups the mentions of one dataset within a paper.
type ExtractedCitation struct {
	DatasetID string    `json:"dataset_id"`
	Mentions  []Mention `json:"dataset_mentions"`
}

// Mention is one located occurrence of a dataset identifier with its
// surrounding text.
type Mention struct {
	Context string `json:"context"`
	Page    int    `json:"page,omitempty"`
}

// Verdict pairs a dataset with its classification result.
type Verdict struct {
	DatasetID string
	Result    llm.ClassificationResult
}

// LoadExtracted reads an extracted-citations JSON file.
func LoadExtracted(path string) (*ExtractedPaper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading extracted file: %w", err)
	}
	var paper ExtractedPaper
	if err := json.Unmarshal(data, &paper); err != nil {
		return nil, fmt.Errorf("parsing extracted file: %w", err)
	}
	return &paper, nil
}

// SaveExtracted writes an extracted-citations JSON file.
func SaveExtracted(path string, paper *ExtractedPaper) error {
	data, err := json.MarshalIndent(paper, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding extracted file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing extracted file: %w", err)
	}
	return nil
}

// ClassifyExtractedFile classifies every dataset citation recorded in an
// extracted-citations file, one backend call per dataset.
func (c *Classifier) ClassifyExtractedFile(ctx context.Context, path string) ([]Verdict, error) {
	paper, err := LoadExtracted(path)
	if err != nil {
		return nil, err
	}

	meta := llm.PaperMetadata{
		Title:   paper.PaperTitle,
		Journal: paper.PaperJournal,
		Year:    paper.PaperYear,
	}

	var verdicts []Verdict
	for _, cit := range paper.Citations {
		if err := ctx.Err(); err != nil {
			return verdicts, err
		}

		contexts := make([]string, 0, len(cit.Mentions))
		for _, m := range cit.Mentions {
			contexts = append(contexts, m.Context)
		}

		result := c.ClassifyCitation(ctx, contexts, meta, cit.DatasetID)
		verdicts = append(verdicts, Verdict{DatasetID: cit.DatasetID, Result: result})
	}

	return verdicts, nil
}
