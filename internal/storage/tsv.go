// Package storage persists the citation set as a tab-separated flat file
// (the git-versionable source of truth), per-paper classification verdicts
// as JSON documents, and an ephemeral SQLite index for queries.
package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dandi/citecollect/internal/citation"
)

// tsvColumns is the fixed column order of the citations file. The
// deprecated singular columns (citation_relationship, citation_source) are
// accepted on load but never written.
var tsvColumns = []string{
	"item_id",
	"item_flavor",
	"item_ref_type",
	"item_ref_value",
	"item_name",
	"citation_doi",
	"citation_pmid",
	"citation_arxiv",
	"citation_url",
	"citation_title",
	"citation_authors",
	"citation_year",
	"citation_journal",
	"citation_relationships",
	"citation_type",
	"citation_sources",
	"discovered_date",
	"citation_status",
	"citation_merged_into",
	"citation_comment",
	"curated_by",
	"curated_date",
	"classification_method",
	"classification_model",
	"classification_confidence",
	"classification_reviewed",
	"oa_status",
	"pdf_url",
	"pdf_path",
}

// LoadCitations reads a citations TSV file. A missing file yields an empty
// set. Legacy files carrying only the singular citation_relationship and
// citation_source columns are upgraded to the list fields on load.
func LoadCitations(path string) ([]citation.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening citations file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading citations file: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []citation.Record
	for lineNum, row := range rows[1:] {
		rec := citation.Record{
			ItemID:          get(row, "item_id"),
			ItemFlavor:      get(row, "item_flavor"),
			ItemRefType:     citation.RefType(get(row, "item_ref_type")),
			ItemRefValue:    get(row, "item_ref_value"),
			ItemName:        get(row, "item_name"),
			CitationDOI:     get(row, "citation_doi"),
			CitationPMID:    get(row, "citation_pmid"),
			CitationArXiv:   get(row, "citation_arxiv"),
			CitationURL:     get(row, "citation_url"),
			CitationTitle:   get(row, "citation_title"),
			CitationAuthors: get(row, "citation_authors"),
			CitationJournal: get(row, "citation_journal"),
			CitationType:    citation.Type(get(row, "citation_type")),
			Status:          citation.Status(get(row, "citation_status")),
			MergedInto:      get(row, "citation_merged_into"),
			Comment:         get(row, "citation_comment"),
			CuratedBy:       get(row, "curated_by"),
			CuratedDate:     get(row, "curated_date"),

			ClassificationMethod: get(row, "classification_method"),
			ClassificationModel:  get(row, "classification_model"),

			OAStatus: get(row, "oa_status"),
			PDFURL:   get(row, "pdf_url"),
			PDFPath:  get(row, "pdf_path"),
		}

		if v := get(row, "citation_year"); v != "" {
			if year, err := strconv.Atoi(v); err == nil {
				rec.CitationYear = year
			}
		}
		if v := get(row, "classification_confidence"); v != "" {
			if conf, err := strconv.ParseFloat(v, 64); err == nil {
				rec.ClassificationConfidence = conf
			}
		}
		if v := get(row, "classification_reviewed"); v != "" {
			rec.ClassificationReviewed = parseBool(v)
		}

		// Plural columns win; the deprecated singular columns are the
		// fallback for legacy files.
		rels := get(row, "citation_relationships")
		if rels == "" {
			rels = get(row, "citation_relationship")
		}
		for _, v := range splitList(rels) {
			rec.Relationships = append(rec.Relationships, citation.Relationship(v))
		}

		srcs := get(row, "citation_sources")
		if srcs == "" {
			srcs = get(row, "citation_source")
		}
		for _, v := range splitList(srcs) {
			rec.Sources = append(rec.Sources, citation.Source(v))
		}

		dates, err := citation.ParseDiscoveredDates(get(row, "discovered_date"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", lineNum+2, err)
		}
		rec.DiscoveredDates = dates

		if err := rec.Normalize(); err != nil {
			return nil, fmt.Errorf("row %d: %w", lineNum+2, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// SaveCitations writes the citation set to a TSV file in the fixed column
// order, list fields joined with ", ".
func SaveCitations(path string, records []citation.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating citations file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'

	if err := w.Write(tsvColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i := range records {
		rec := &records[i]

		dates, err := citation.EncodeDiscoveredDates(rec.DiscoveredDates)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}

		row := []string{
			rec.ItemID,
			rec.ItemFlavor,
			string(rec.ItemRefType),
			rec.ItemRefValue,
			rec.ItemName,
			rec.CitationDOI,
			rec.CitationPMID,
			rec.CitationArXiv,
			rec.CitationURL,
			rec.CitationTitle,
			rec.CitationAuthors,
			emptyIfZero(rec.CitationYear),
			rec.CitationJournal,
			joinRelationships(rec.Relationships),
			string(rec.CitationType),
			joinSources(rec.Sources),
			dates,
			string(rec.Status),
			rec.MergedInto,
			rec.Comment,
			rec.CuratedBy,
			rec.CuratedDate,
			rec.ClassificationMethod,
			rec.ClassificationModel,
			formatConfidence(rec.ClassificationConfidence),
			formatBool(rec.ClassificationReviewed),
			rec.OAStatus,
			rec.PDFURL,
			rec.PDFPath,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing citations file: %w", err)
	}
	return nil
}

// splitList parses a ", "-joined cell into its elements.
func splitList(cell string) []string {
	if cell == "" {
		return nil
	}
	parts := strings.Split(cell, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinRelationships(rels []citation.Relationship) string {
	parts := make([]string, len(rels))
	for i, r := range rels {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

func joinSources(sources []citation.Source) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return ""
}

func emptyIfZero(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func formatConfidence(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
