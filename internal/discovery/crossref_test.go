package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/collection"
)

func quietLogger(format string, args ...any) {}

func TestCrossRefDiscover(t *testing.T) {
	events := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("obj-id"); got != "10.48324/dandi.000003" {
			t.Errorf("obj-id = %q", got)
		}
		w.Write([]byte(`{"message":{"events":[
			{"subj":{"pid":"https://doi.org/10.1101/2021.01.01.425001"}},
			{"subj":{"pid":"https://doi.org/10.1101/2021.01.01.425001"}},
			{"subj":{"pid":"not-a-doi"}}
		]}}`))
	}))
	defer events.Close()

	resolver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		w.Write([]byte(`{
			"title": "A citing preprint",
			"author": [{"given":"Jane","family":"Doe"},{"given":"John","family":"Roe"}],
			"published": {"date-parts": [[2021, 1, 1]]},
			"container-title": ["bioRxiv"]
		}`))
	}))
	defer resolver.Close()

	c := NewCrossRef(
		WithCrossRefBaseURL(events.URL),
		WithCrossRefDOIURL(resolver.URL),
		WithCrossRefLogger(quietLogger),
	)

	ref := collection.Ref{Type: citation.RefDOI, Value: "10.48324/dandi.000003"}
	records, err := c.Discover(context.Background(), ref, nil)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1 (duplicates and non-DOIs dropped)", len(records))
	}

	rec := records[0]
	if rec.CitationDOI != "10.1101/2021.01.01.425001" {
		t.Errorf("CitationDOI = %q", rec.CitationDOI)
	}
	if rec.CitationTitle != "A citing preprint" {
		t.Errorf("CitationTitle = %q", rec.CitationTitle)
	}
	if rec.CitationAuthors != "Jane Doe; John Roe" {
		t.Errorf("CitationAuthors = %q", rec.CitationAuthors)
	}
	if rec.CitationYear != 2021 {
		t.Errorf("CitationYear = %d", rec.CitationYear)
	}
	if rec.CitationJournal != "bioRxiv" {
		t.Errorf("CitationJournal = %q", rec.CitationJournal)
	}
	if rec.Source != citation.SourceCrossRef {
		t.Errorf("Source = %q", rec.Source)
	}
	if _, ok := rec.DiscoveredDates[citation.SourceCrossRef]; !ok {
		t.Error("DiscoveredDates missing crossref stamp")
	}
}

func TestCrossRefDiscover_MetadataFailureDegrades(t *testing.T) {
	events := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"events":[{"subj":{"pid":"https://doi.org/10.1/x"}}]}}`))
	}))
	defer events.Close()

	resolver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer resolver.Close()

	c := NewCrossRef(
		WithCrossRefBaseURL(events.URL),
		WithCrossRefDOIURL(resolver.URL),
		WithCrossRefLogger(quietLogger),
	)

	ref := collection.Ref{Type: citation.RefDOI, Value: "10.48324/dandi.000003"}
	records, err := c.Discover(context.Background(), ref, nil)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].CitationTitle != "" {
		t.Errorf("expected empty title on metadata failure, got %q", records[0].CitationTitle)
	}
}

func TestCrossRefDiscover_SincePassed(t *testing.T) {
	var gotFrom string
	events := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from-updated-date")
		w.Write([]byte(`{"message":{"events":[]}}`))
	}))
	defer events.Close()

	c := NewCrossRef(WithCrossRefBaseURL(events.URL), WithCrossRefLogger(quietLogger))
	since := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	ref := collection.Ref{Type: citation.RefDOI, Value: "10.1/x"}
	if _, err := c.Discover(context.Background(), ref, &since); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if gotFrom != "2025-03-15" {
		t.Errorf("from-updated-date = %q", gotFrom)
	}
}

func TestCrossRefDiscover_UnsupportedRef(t *testing.T) {
	c := NewCrossRef(WithCrossRefLogger(quietLogger))
	ref := collection.Ref{Type: citation.RefRRID, Value: "SCR_016216"}
	records, err := c.Discover(context.Background(), ref, nil)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if records != nil {
		t.Errorf("expected nil records for unsupported ref type, got %d", len(records))
	}
}
