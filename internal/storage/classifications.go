package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StoredClassification is one persisted LLM verdict for an item+flavor.
// Within a paper's file, (item_id, item_flavor, model) is the replace key:
// re-classifying with the same model overwrites the prior verdict, while
// verdicts from different models coexist for comparison.
type StoredClassification struct {
	ItemID           string  `json:"item_id"`
	ItemFlavor       string  `json:"item_flavor"`
	Model            string  `json:"model"`
	Backend          string  `json:"backend"`
	RelationshipType string  `json:"relationship_type"`
	Confidence       float64 `json:"confidence"`
	Reasoning        string  `json:"reasoning"`
	Timestamp        string  `json:"timestamp"`
	Mode             string  `json:"mode"`
}

// Classification modes.
const (
	ModeShortContext = "short_context"
	ModeFullText     = "full_text"
)

// ClassificationStore manages per-paper classifications.json files under a
// root directory, one subdirectory per paper DOI. The read-modify-write
// cycle assumes a single writer per paper; serialize concurrent runs with
// a Lock on the root.
type ClassificationStore struct {
	dir string
	now func() time.Time
}

// NewClassificationStore creates a store rooted at dir.
func NewClassificationStore(dir string) *ClassificationStore {
	return &ClassificationStore{dir: dir, now: time.Now}
}

// SetClock overrides the timestamp source (for testing).
func (s *ClassificationStore) SetClock(now func() time.Time) { s.now = now }

// PaperDir returns the directory holding one paper's files.
func (s *ClassificationStore) PaperDir(doi string) string {
	return filepath.Join(s.dir, doi)
}

func (s *ClassificationStore) file(doi string) string {
	return filepath.Join(s.PaperDir(doi), "classifications.json")
}

// Load returns all stored verdicts for a paper. A paper with no prior
// classifications yields an empty list, never an error.
func (s *ClassificationStore) Load(doi string) ([]StoredClassification, error) {
	data, err := os.ReadFile(s.file(doi))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading classifications for %s: %w", doi, err)
	}

	var list []StoredClassification
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing classifications for %s: %w", doi, err)
	}
	return list, nil
}

// Save writes a paper's full verdict list, creating the paper directory if
// needed.
func (s *ClassificationStore) Save(doi string, list []StoredClassification) error {
	if err := os.MkdirAll(s.PaperDir(doi), 0755); err != nil {
		return fmt.Errorf("creating paper dir for %s: %w", doi, err)
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding classifications for %s: %w", doi, err)
	}
	if err := os.WriteFile(s.file(doi), data, 0644); err != nil {
		return fmt.Errorf("writing classifications for %s: %w", doi, err)
	}
	return nil
}

// Add records a new verdict, replacing any existing entry with the same
// (item_id, item_flavor, model). The timestamp is stamped at call time.
func (s *ClassificationStore) Add(doi string, entry StoredClassification) error {
	list, err := s.Load(doi)
	if err != nil {
		return err
	}

	kept := list[:0]
	for _, c := range list {
		if c.ItemID == entry.ItemID && c.ItemFlavor == entry.ItemFlavor && c.Model == entry.Model {
			continue
		}
		kept = append(kept, c)
	}

	entry.Timestamp = s.now().Format(time.RFC3339)
	kept = append(kept, entry)

	return s.Save(doi, kept)
}

// Get returns the verdict for an exact (item_id, item_flavor, model), or
// nil when absent.
func (s *ClassificationStore) Get(doi, itemID, itemFlavor, model string) (*StoredClassification, error) {
	list, err := s.Load(doi)
	if err != nil {
		return nil, err
	}
	for i := range list {
		c := &list[i]
		if c.ItemID == itemID && c.ItemFlavor == itemFlavor && c.Model == model {
			return c, nil
		}
	}
	return nil, nil
}

// ForItem returns all verdicts for an item+flavor across models, the input
// to model-comparison and selection.
func (s *ClassificationStore) ForItem(doi, itemID, itemFlavor string) ([]StoredClassification, error) {
	list, err := s.Load(doi)
	if err != nil {
		return nil, err
	}
	var out []StoredClassification
	for _, c := range list {
		if c.ItemID == itemID && c.ItemFlavor == itemFlavor {
			out = append(out, c)
		}
	}
	return out, nil
}

// Has reports whether a verdict exists for the exact replace key.
func (s *ClassificationStore) Has(doi, itemID, itemFlavor, model string) (bool, error) {
	c, err := s.Get(doi, itemID, itemFlavor, model)
	return c != nil, err
}
