package collector

import (
	"fmt"

	"github.com/dandi/citecollect/internal/storage"
)

// LoadExisting installs the persisted citation set from a TSV as the merge
// baseline. A missing file is a fresh start, not an error.
func (c *Collector) LoadExisting(tsvPath string) error {
	records, err := storage.LoadCitations(tsvPath)
	if err != nil {
		return fmt.Errorf("loading existing citations: %w", err)
	}
	c.citations = records
	return nil
}

// Save persists the citation set and the collection. The TSV is written
// first so an interrupted save never leaves the watermark ahead of the
// data.
func (c *Collector) Save(yamlPath, tsvPath string) error {
	if err := storage.SaveCitations(tsvPath, c.citations); err != nil {
		return fmt.Errorf("saving citations: %w", err)
	}
	if err := c.Collection.Save(yamlPath); err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}
	return nil
}
