package citation

import (
	"encoding/json"
	"fmt"
)

// Key uniquely identifies a citation: one citing DOI observed against one
// item flavor. Every dedupe and merge operation groups on this triple.
type Key struct {
	ItemID      string
	ItemFlavor  string
	CitationDOI string
}

func (k Key) String() string {
	return k.ItemID + "/" + k.ItemFlavor + "/" + k.CitationDOI
}

// CoherenceError is a data-integrity error raised when a record's
// singular/plural field pairs or its discovered-dates mapping disagree.
// It signals a bug in producing code or a corrupted persisted file.
type CoherenceError struct {
	Field  string
	Detail string
}

func (e *CoherenceError) Error() string {
	return fmt.Sprintf("coherence violation in %s: %s", e.Field, e.Detail)
}

// Record is one observed citing-work-to-item relationship.
type Record struct {
	// Identity triple (merge key)
	ItemID      string `json:"item_id"`
	ItemFlavor  string `json:"item_flavor"`
	CitationDOI string `json:"citation_doi"`

	// Context of the ref that was queried when this citation was found.
	ItemRefType  RefType `json:"item_ref_type,omitempty"`
	ItemRefValue string  `json:"item_ref_value,omitempty"`
	ItemName     string  `json:"item_name,omitempty"`

	// Citing-work metadata
	CitationPMID    string `json:"citation_pmid,omitempty"`
	CitationArXiv   string `json:"citation_arxiv,omitempty"`
	CitationURL     string `json:"citation_url,omitempty"`
	CitationTitle   string `json:"citation_title,omitempty"`
	CitationAuthors string `json:"citation_authors,omitempty"`
	CitationYear    int    `json:"citation_year,omitempty"`
	CitationJournal string `json:"citation_journal,omitempty"`
	CitationType    Type   `json:"citation_type,omitempty"`

	// Relationship: the singular field is deprecated in the persisted format
	// but kept in memory for backward compatibility. Invariant: when both
	// are set, Relationships[0] == Relationship.
	Relationship  Relationship   `json:"citation_relationship,omitempty"`
	Relationships []Relationship `json:"citation_relationships,omitempty"`

	// Provenance. Invariant: Source must appear in Sources, and the key set
	// of DiscoveredDates must equal the set of Sources when both non-empty.
	Source          Source            `json:"citation_source,omitempty"`
	Sources         []Source          `json:"citation_sources,omitempty"`
	DiscoveredDates map[Source]string `json:"discovered_dates,omitempty"`

	// Curation fields. Set only by a human or explicit promotion; automated
	// merges must never overwrite them.
	Status      Status `json:"citation_status,omitempty"`
	MergedInto  string `json:"citation_merged_into,omitempty"`
	Comment     string `json:"citation_comment,omitempty"`
	CuratedBy   string `json:"curated_by,omitempty"`
	CuratedDate string `json:"curated_date,omitempty"`

	// Classification metadata
	ClassificationMethod     string  `json:"classification_method,omitempty"`
	ClassificationModel      string  `json:"classification_model,omitempty"`
	ClassificationConfidence float64 `json:"classification_confidence,omitempty"`
	ClassificationReviewed   bool    `json:"classification_reviewed,omitempty"`

	// Open-access / PDF acquisition
	OAStatus string `json:"oa_status,omitempty"`
	PDFURL   string `json:"pdf_url,omitempty"`
	PDFPath  string `json:"pdf_path,omitempty"`
}

// RecordKey returns the composite merge key for a record.
func RecordKey(r *Record) Key {
	return Key{ItemID: r.ItemID, ItemFlavor: r.ItemFlavor, CitationDOI: r.CitationDOI}
}

// New creates a Record and normalizes it. The singular relationship and
// source fields auto-populate their plural counterparts.
func New(r Record) (*Record, error) {
	if err := r.Normalize(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Normalize auto-populates the plural list fields from their deprecated
// singular counterparts and checks the coherence invariants. It must be
// called at construction and again after any mutation of the relationship,
// source, or discovered-dates fields.
func (r *Record) Normalize() error {
	if r.Relationship != "" && len(r.Relationships) == 0 {
		r.Relationships = []Relationship{r.Relationship}
	} else if r.Relationship != "" && len(r.Relationships) > 0 && r.Relationships[0] != r.Relationship {
		return &CoherenceError{
			Field: "citation_relationship",
			Detail: fmt.Sprintf("%q must match first element of citation_relationships (%q)",
				r.Relationship, r.Relationships[0]),
		}
	} else if r.Relationship == "" && len(r.Relationships) > 0 {
		r.Relationship = r.Relationships[0]
	}

	if r.Source != "" && len(r.Sources) == 0 {
		r.Sources = []Source{r.Source}
	} else if r.Source != "" && len(r.Sources) > 0 && !containsSource(r.Sources, r.Source) {
		return &CoherenceError{
			Field: "citation_source",
			Detail: fmt.Sprintf("%q must be present in citation_sources %v",
				r.Source, r.Sources),
		}
	} else if r.Source == "" && len(r.Sources) > 0 {
		r.Source = r.Sources[0]
	}

	if r.Status == "" {
		r.Status = StatusActive
	}

	if len(r.Sources) > 0 && len(r.DiscoveredDates) > 0 {
		for _, s := range r.Sources {
			if _, ok := r.DiscoveredDates[s]; !ok {
				return &CoherenceError{
					Field:  "discovered_dates",
					Detail: fmt.Sprintf("source %q missing in discovered_dates", s),
				}
			}
		}
		for s := range r.DiscoveredDates {
			if !containsSource(r.Sources, s) {
				return &CoherenceError{
					Field:  "discovered_dates",
					Detail: fmt.Sprintf("source %q in discovered_dates but not in citation_sources", s),
				}
			}
		}
	}

	return nil
}

// ParseDiscoveredDates decodes the JSON object used to persist the
// per-source discovery dates. A payload that is not a JSON object is a
// coherence error, not a transport error.
func ParseDiscoveredDates(text string) (map[Source]string, error) {
	if text == "" {
		return nil, nil
	}
	var dates map[Source]string
	if err := json.Unmarshal([]byte(text), &dates); err != nil {
		return nil, &CoherenceError{
			Field:  "discovered_dates",
			Detail: fmt.Sprintf("invalid JSON: %s", text),
		}
	}
	return dates, nil
}

// EncodeDiscoveredDates encodes the per-source discovery dates for
// persistence. Returns "" for an empty map.
func EncodeDiscoveredDates(dates map[Source]string) (string, error) {
	if len(dates) == 0 {
		return "", nil
	}
	data, err := json.Marshal(dates)
	if err != nil {
		return "", fmt.Errorf("encoding discovered_dates: %w", err)
	}
	return string(data), nil
}

// AddSource records that an additional source discovered this citation on
// the given date, keeping Sources and DiscoveredDates coherent. The first
// recorded date for a source wins. Once any date is tracked, every source
// gets a dates entry (empty when unknown) so the key-set stays equal to
// the sources set.
func (r *Record) AddSource(s Source, date string) {
	if !containsSource(r.Sources, s) {
		r.Sources = append(r.Sources, s)
	}
	if r.Source == "" {
		r.Source = s
	}

	if date == "" && r.DiscoveredDates == nil {
		return
	}
	if r.DiscoveredDates == nil {
		r.DiscoveredDates = make(map[Source]string)
	}
	if _, ok := r.DiscoveredDates[s]; !ok && date != "" {
		r.DiscoveredDates[s] = date
	}
	for _, src := range r.Sources {
		if _, ok := r.DiscoveredDates[src]; !ok {
			r.DiscoveredDates[src] = ""
		}
	}
}

// Curated reports whether a human has touched this record. Curated records
// are never refreshed by automated discovery.
func (r *Record) Curated() bool {
	return r.Status != StatusActive || r.Comment != ""
}

func containsSource(sources []Source, s Source) bool {
	for _, v := range sources {
		if v == s {
			return true
		}
	}
	return false
}
