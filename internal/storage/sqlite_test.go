package storage

import (
	"path/filepath"
	"testing"

	"github.com/dandi/citecollect/internal/citation"
)

func rebuildFixture(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()

	active := sampleRecord(t)
	ignored := sampleRecord(t)
	ignored.CitationDOI = "10.1101/2022.02.02.000002"
	ignored.CitationYear = 2022
	ignored.Status = citation.StatusIgnored
	other := sampleRecord(t)
	other.ItemID = "dandi.000099"
	other.CitationDOI = "10.1/c"

	tsv := filepath.Join(dir, "citations.tsv")
	if err := SaveCitations(tsv, []citation.Record{active, ignored, other}); err != nil {
		t.Fatalf("SaveCitations() error = %v", err)
	}

	db, err := OpenDB(filepath.Join(dir, "citations.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	n, err := db.RebuildFromTSV(tsv)
	if err != nil {
		t.Fatalf("RebuildFromTSV() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("RebuildFromTSV() = %d, want 3", n)
	}
	return db
}

func TestListByItem(t *testing.T) {
	db := rebuildFixture(t)

	rows, err := db.ListByItem("dandi.000003")
	if err != nil {
		t.Fatalf("ListByItem() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	// Ordered newest first.
	if rows[0].Year != 2022 || rows[1].Year != 2021 {
		t.Errorf("rows not ordered by year desc: %d, %d", rows[0].Year, rows[1].Year)
	}
	if rows[1].Title != "Hippocampal dynamics" {
		t.Errorf("Title = %q", rows[1].Title)
	}
	if rows[1].Sources != "crossref, openalex" {
		t.Errorf("Sources = %q", rows[1].Sources)
	}
}

func TestListByStatus(t *testing.T) {
	db := rebuildFixture(t)

	rows, err := db.ListByStatus(citation.StatusIgnored)
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	if len(rows) != 1 || rows[0].CitationDOI != "10.1101/2022.02.02.000002" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestCounts(t *testing.T) {
	db := rebuildFixture(t)

	total, err := db.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if total != 3 {
		t.Errorf("Count() = %d, want 3", total)
	}

	byStatus, err := db.CountByStatus()
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if byStatus["active"] != 2 || byStatus["ignored"] != 1 {
		t.Errorf("CountByStatus() = %v", byStatus)
	}

	byItem, err := db.CountByItem()
	if err != nil {
		t.Fatalf("CountByItem() error = %v", err)
	}
	if byItem["dandi.000003"] != 2 || byItem["dandi.000099"] != 1 {
		t.Errorf("CountByItem() = %v", byItem)
	}

	// Every fixture record was found by both sources, so each source
	// counts all three.
	bySource, err := db.CountBySource()
	if err != nil {
		t.Fatalf("CountBySource() error = %v", err)
	}
	if bySource["crossref"] != 3 || bySource["openalex"] != 3 {
		t.Errorf("CountBySource() = %v", bySource)
	}
}

func TestRebuildReplacesIndex(t *testing.T) {
	dir := t.TempDir()
	tsv := filepath.Join(dir, "citations.tsv")
	if err := SaveCitations(tsv, []citation.Record{sampleRecord(t)}); err != nil {
		t.Fatalf("SaveCitations() error = %v", err)
	}

	db, err := OpenDB(filepath.Join(dir, "citations.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	defer db.Close()

	if _, err := db.RebuildFromTSV(tsv); err != nil {
		t.Fatalf("first RebuildFromTSV() error = %v", err)
	}
	if _, err := db.RebuildFromTSV(tsv); err != nil {
		t.Fatalf("second RebuildFromTSV() error = %v", err)
	}

	total, err := db.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if total != 1 {
		t.Errorf("Count() = %d after rebuild, want 1 (no duplicates)", total)
	}
}
