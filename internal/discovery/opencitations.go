package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/collection"
)

// OpenCitationsURL is the OpenCitations index API citations endpoint.
const OpenCitationsURL = "https://opencitations.net/index/api/v2/citations"

// OpenCitations discovers citations via the OpenCitations (OCI) index.
// The index returns citing DOIs only; titles and authors arrive later from
// richer sources and are filled in by the merge.
type OpenCitations struct {
	httpClient *http.Client
	baseURL    string
	log        Logger
}

// OpenCitationsOption configures an OpenCitations adapter.
type OpenCitationsOption func(*OpenCitations)

// WithOpenCitationsBaseURL overrides the API endpoint (for testing).
func WithOpenCitationsBaseURL(u string) OpenCitationsOption {
	return func(o *OpenCitations) { o.baseURL = u }
}

// WithOpenCitationsHTTPClient sets a custom HTTP client.
func WithOpenCitationsHTTPClient(hc *http.Client) OpenCitationsOption {
	return func(o *OpenCitations) { o.httpClient = hc }
}

// WithOpenCitationsLogger sets the warning logger.
func WithOpenCitationsLogger(log Logger) OpenCitationsOption {
	return func(o *OpenCitations) { o.log = log }
}

// NewOpenCitations creates an OpenCitations discoverer.
func NewOpenCitations(opts ...OpenCitationsOption) *OpenCitations {
	o := &OpenCitations{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    OpenCitationsURL,
		log:        StderrLogger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name implements Discoverer.
func (o *OpenCitations) Name() citation.Source { return citation.SourceOpenCitations }

// Supports implements Discoverer.
func (o *OpenCitations) Supports(t citation.RefType) bool { return t == citation.RefDOI }

// Discover implements Discoverer.
func (o *OpenCitations) Discover(ctx context.Context, ref collection.Ref, since *time.Time) ([]citation.Record, error) {
	if !o.Supports(ref.Type) {
		o.log("opencitations only supports DOI refs, got %s", ref.Type)
		return nil, nil
	}

	u := o.baseURL + "/doi:" + ref.Value
	if since != nil {
		u += "?filter=date:>" + since.Format("2006-01-02")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent(""))

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("opencitations for %s: %w", ref.Value, err)
	}

	var entries []struct {
		Citing string `json:"citing"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: parsing citations: %v", ErrInvalidResponse, err)
	}

	date := today()
	var records []citation.Record
	seen := make(map[string]bool)

	for _, entry := range entries {
		doi := extractOCIDoi(entry.Citing)
		if doi == "" || seen[doi] {
			continue
		}
		seen[doi] = true

		rec, err := citation.New(citation.Record{
			CitationDOI:     doi,
			Relationship:    citation.RelCites,
			Source:          citation.SourceOpenCitations,
			Status:          citation.StatusActive,
			DiscoveredDates: map[citation.Source]string{citation.SourceOpenCitations: date},
		})
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, nil
}

// extractOCIDoi pulls a DOI out of an OpenCitations citing field, which
// uses the "omid:... doi:10.x/y" multi-identifier convention in v2.
func extractOCIDoi(citing string) string {
	for _, part := range strings.Fields(citing) {
		if doi := stripDOIPrefix(part); doi != "" {
			return doi
		}
	}
	return ""
}
