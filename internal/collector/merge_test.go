package collector

import (
	"reflect"
	"testing"

	"github.com/dandi/citecollect/internal/citation"
)

func TestMerge_AppendsNewRecords(t *testing.T) {
	existing := []citation.Record{discovered(t, "10.1/a", citation.SourceCrossRef, "2025-01-15")}
	incoming := []citation.Record{discovered(t, "10.1/b", citation.SourceOpenAlex, "2025-02-01")}

	out := Merge(existing, incoming)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if !reflect.DeepEqual(out[1], incoming[0]) {
		t.Errorf("appended record altered:\ngot:  %+v\nwant: %+v", out[1], incoming[0])
	}
}

func TestMerge_RefreshesUncuratedMetadata(t *testing.T) {
	existing := []citation.Record{discovered(t, "10.1/a", citation.SourceCrossRef, "2025-01-15")}

	in := discovered(t, "10.1/a", citation.SourceOpenAlex, "2025-02-01")
	in.CitationTitle = "Now with a title"
	in.CitationYear = 2024

	out := Merge(existing, []citation.Record{in})
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if out[0].CitationTitle != "Now with a title" {
		t.Errorf("title not refreshed: %q", out[0].CitationTitle)
	}
	if out[0].CitationYear != 2024 {
		t.Errorf("year not refreshed: %d", out[0].CitationYear)
	}
}

func TestMerge_UnionsSourcesAcrossRuns(t *testing.T) {
	// First run found the citation via CrossRef; a later run finds the
	// same citation via OpenCitations. The record ends up crediting both.
	existing := []citation.Record{discovered(t, "10.1/a", citation.SourceCrossRef, "2025-01-15")}
	batch := Deduplicate([]citation.Record{discovered(t, "10.1/a", citation.SourceOpenCitations, "2025-02-01")})

	out := Merge(existing, batch)
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}

	wantSources := []citation.Source{citation.SourceCrossRef, citation.SourceOpenCitations}
	if !reflect.DeepEqual(out[0].Sources, wantSources) {
		t.Errorf("Sources = %v, want %v", out[0].Sources, wantSources)
	}
	if out[0].DiscoveredDates[citation.SourceCrossRef] != "2025-01-15" ||
		out[0].DiscoveredDates[citation.SourceOpenCitations] != "2025-02-01" {
		t.Errorf("DiscoveredDates = %v", out[0].DiscoveredDates)
	}
	if out[0].Source != citation.SourceCrossRef {
		t.Errorf("Source = %q, want crossref", out[0].Source)
	}
}

func TestMerge_CuratedRecordStillGainsProvenance(t *testing.T) {
	ex := discovered(t, "10.1/a", citation.SourceCrossRef, "2025-01-15")
	ex.Comment = "reviewed ok"

	in := discovered(t, "10.1/a", citation.SourceOpenAlex, "2025-02-01")
	in.CitationTitle = "Machine title"

	out := Merge([]citation.Record{ex}, []citation.Record{in})
	if out[0].CitationTitle != "" {
		t.Errorf("curated record metadata refreshed: %q", out[0].CitationTitle)
	}
	if len(out[0].Sources) != 2 || out[0].Sources[1] != citation.SourceOpenAlex {
		t.Errorf("Sources = %v, want [crossref openalex]", out[0].Sources)
	}
	if out[0].DiscoveredDates[citation.SourceOpenAlex] != "2025-02-01" {
		t.Errorf("DiscoveredDates = %v", out[0].DiscoveredDates)
	}
}

func TestMerge_NeverNullsOutKnownFields(t *testing.T) {
	ex := discovered(t, "10.1/a", citation.SourceCrossRef, "2025-01-15")
	ex.CitationTitle = "Known title"
	ex.CitationJournal = "Known journal"

	in := discovered(t, "10.1/a", citation.SourceOpenCitations, "2025-02-01")

	out := Merge([]citation.Record{ex}, []citation.Record{in})
	if out[0].CitationTitle != "Known title" {
		t.Errorf("empty incoming title erased existing: %q", out[0].CitationTitle)
	}
	if out[0].CitationJournal != "Known journal" {
		t.Errorf("empty incoming journal erased existing: %q", out[0].CitationJournal)
	}
}

func TestMerge_CurationSticky(t *testing.T) {
	commented := discovered(t, "10.1/a", citation.SourceCrossRef, "2025-01-15")
	commented.CitationTitle = "Curator's title"
	commented.Comment = "reviewed ok"

	ignored := discovered(t, "10.1/b", citation.SourceCrossRef, "2025-01-15")
	ignored.Status = citation.StatusIgnored
	ignored.CitationTitle = "Not relevant"

	inA := discovered(t, "10.1/a", citation.SourceOpenAlex, "2025-02-01")
	inA.CitationTitle = "Machine title"
	inB := discovered(t, "10.1/b", citation.SourceOpenAlex, "2025-02-01")
	inB.CitationTitle = "Machine title"

	out := Merge([]citation.Record{commented, ignored}, []citation.Record{inA, inB})

	if out[0].CitationTitle != "Curator's title" {
		t.Errorf("commented record refreshed: %q", out[0].CitationTitle)
	}
	if out[0].Comment != "reviewed ok" {
		t.Errorf("comment altered: %q", out[0].Comment)
	}
	if out[1].CitationTitle != "Not relevant" {
		t.Errorf("non-active record refreshed: %q", out[1].CitationTitle)
	}
	if out[1].Status != citation.StatusIgnored {
		t.Errorf("status altered: %q", out[1].Status)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	existing := []citation.Record{discovered(t, "10.1/a", citation.SourceCrossRef, "2025-01-15")}

	in := discovered(t, "10.1/a", citation.SourceOpenAlex, "2025-02-01")
	in.CitationTitle = "A title"
	incoming := []citation.Record{in, discovered(t, "10.1/b", citation.SourceDataCite, "2025-02-01")}

	once := Merge(existing, incoming)
	snapshot := make([]citation.Record, len(once))
	copy(snapshot, once)

	twice := Merge(once, incoming)
	if !reflect.DeepEqual(snapshot, twice) {
		t.Errorf("Merge not idempotent:\nonce:  %+v\ntwice: %+v", snapshot, twice)
	}
}
