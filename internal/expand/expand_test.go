package expand

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/collection"
)

func TestZenodoExpand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/records" {
			t.Errorf("path = %q, want /records", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != `conceptdoi:"10.5281/zenodo.1000000"` {
			t.Errorf("q = %q", q.Get("q"))
		}
		if q.Get("all_versions") != "true" {
			t.Errorf("all_versions = %q", q.Get("all_versions"))
		}
		w.Write([]byte(`{"hits":{"hits":[
			{"doi":"10.5281/zenodo.1000002"},
			{"doi":"https://doi.org/10.5281/zenodo.1000001"},
			{"doi":"10.5281/zenodo.1000002"}
		]}}`))
	}))
	defer server.Close()

	z := NewZenodo(WithZenodoBaseURL(server.URL))
	refs, err := z.Expand(context.Background(), collection.Ref{
		Type:  citation.RefZenodoConcept,
		Value: "10.5281/zenodo.1000000",
	})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	// Concept DOI first, then version DOIs with duplicates dropped.
	want := []collection.Ref{
		{Type: citation.RefDOI, Value: "10.5281/zenodo.1000000"},
		{Type: citation.RefDOI, Value: "10.5281/zenodo.1000002"},
		{Type: citation.RefDOI, Value: "10.5281/zenodo.1000001"},
	}
	if len(refs) != len(want) {
		t.Fatalf("len(refs) = %d, want %d: %v", len(refs), len(want), refs)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("refs[%d] = %v, want %v", i, refs[i], want[i])
		}
	}
}

func TestZenodoExpand_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	z := NewZenodo(WithZenodoBaseURL(server.URL))
	_, err := z.Expand(context.Background(), collection.Ref{
		Type:  citation.RefZenodoConcept,
		Value: "10.5281/zenodo.1000000",
	})
	if err == nil {
		t.Fatal("Expand() error = nil, want status error")
	}
}

func TestZenodoExpands(t *testing.T) {
	z := NewZenodo()
	if !z.Expands(citation.RefZenodoConcept) {
		t.Error("Expands(zenodo_concept) = false")
	}
	if z.Expands(citation.RefDOI) || z.Expands(citation.RefGitHub) {
		t.Error("Expands() = true for unrelated ref types")
	}
}

func TestParseRepo(t *testing.T) {
	tests := []struct {
		in          string
		owner, repo string
		wantErr     bool
	}{
		{"https://github.com/dandi/dandi-cli", "dandi", "dandi-cli", false},
		{"http://github.com/dandi/dandi-cli.git", "dandi", "dandi-cli", false},
		{"github.com/dandi/dandi-cli/", "dandi", "dandi-cli", false},
		{"dandi/dandi-cli", "dandi", "dandi-cli", false},
		{"not a repo", "", "", true},
		{"https://gitlab.com/dandi/dandi-cli", "", "", true},
	}
	for _, tt := range tests {
		owner, repo, err := ParseRepo(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidRepo) {
				t.Errorf("ParseRepo(%q) error = %v, want ErrInvalidRepo", tt.in, err)
			}
			continue
		}
		if err != nil || owner != tt.owner || repo != tt.repo {
			t.Errorf("ParseRepo(%q) = %q, %q, %v", tt.in, owner, repo, err)
		}
	}
}

func TestGitHubExpand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != `related.identifier:"https://github.com/dandi/dandi-cli"` {
			t.Errorf("q = %q", q.Get("q"))
		}
		w.Write([]byte(`{"hits":{"hits":[
			{"conceptdoi":"10.5281/zenodo.3692138","doi":"10.5281/zenodo.8403249"}
		]}}`))
	}))
	defer server.Close()

	g := NewGitHub(WithGitHubBaseURL(server.URL))
	refs, err := g.Expand(context.Background(), collection.Ref{
		Type:  citation.RefGitHub,
		Value: "dandi/dandi-cli",
	})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("len(refs) = %d, want 1", len(refs))
	}
	want := collection.Ref{Type: citation.RefZenodoConcept, Value: "10.5281/zenodo.3692138"}
	if refs[0] != want {
		t.Errorf("refs[0] = %v, want %v", refs[0], want)
	}
}

func TestGitHubExpand_FallsBackToVersionDOI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hits":{"hits":[{"doi":"10.5281/zenodo.8403249"}]}}`))
	}))
	defer server.Close()

	g := NewGitHub(WithGitHubBaseURL(server.URL))
	refs, err := g.Expand(context.Background(), collection.Ref{
		Type:  citation.RefGitHub,
		Value: "dandi/dandi-cli",
	})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if refs[0].Value != "10.5281/zenodo.8403249" {
		t.Errorf("refs[0].Value = %q", refs[0].Value)
	}
}

func TestGitHubExpand_NoArchive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hits":{"hits":[]}}`))
	}))
	defer server.Close()

	g := NewGitHub(WithGitHubBaseURL(server.URL))
	refs, err := g.Expand(context.Background(), collection.Ref{
		Type:  citation.RefGitHub,
		Value: "dandi/dandi-cli",
	})
	if err != nil {
		t.Fatalf("Expand() error = %v, want nil for unarchived repo", err)
	}
	if refs != nil {
		t.Errorf("refs = %v, want nil", refs)
	}
}

func TestGitHubExpand_InvalidRef(t *testing.T) {
	g := NewGitHub()
	_, err := g.Expand(context.Background(), collection.Ref{
		Type:  citation.RefGitHub,
		Value: "not a repo at all",
	})
	if !errors.Is(err, ErrInvalidRepo) {
		t.Errorf("Expand() error = %v, want ErrInvalidRepo", err)
	}
}
