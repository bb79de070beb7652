// Package expand derives DOI refs from non-DOI identifiers ahead of a
// discovery run: Zenodo concept DOIs expand to their version DOIs, and
// GitHub repositories map to their archived-release DOI.
package expand

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/collection"
)

// ZenodoAPIURL is the Zenodo records endpoint.
const ZenodoAPIURL = "https://zenodo.org/api"

// Zenodo expands a concept DOI into the concept plus every version DOI,
// so discovery covers citations of any archived version.
type Zenodo struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// ZenodoOption configures a Zenodo expander.
type ZenodoOption func(*Zenodo)

// WithZenodoBaseURL overrides the API endpoint (for testing).
func WithZenodoBaseURL(u string) ZenodoOption {
	return func(z *Zenodo) { z.baseURL = strings.TrimRight(u, "/") }
}

// WithZenodoToken sets an access token for authenticated requests.
func WithZenodoToken(token string) ZenodoOption {
	return func(z *Zenodo) { z.token = token }
}

// WithZenodoHTTPClient sets a custom HTTP client.
func WithZenodoHTTPClient(hc *http.Client) ZenodoOption {
	return func(z *Zenodo) { z.httpClient = hc }
}

// NewZenodo creates a Zenodo expander.
func NewZenodo(opts ...ZenodoOption) *Zenodo {
	z := &Zenodo{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    ZenodoAPIURL,
	}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// Expands implements collector.RefExpander.
func (z *Zenodo) Expands(t citation.RefType) bool { return t == citation.RefZenodoConcept }

type zenodoSearchResponse struct {
	Hits struct {
		Hits []struct {
			DOI string `json:"doi"`
		} `json:"hits"`
	} `json:"hits"`
}

// Expand implements collector.RefExpander. The returned refs include the
// concept DOI itself followed by each version DOI, newest first as Zenodo
// returns them.
func (z *Zenodo) Expand(ctx context.Context, ref collection.Ref) ([]collection.Ref, error) {
	conceptDOI := citation.NormalizeDOI(ref.Value)

	params := url.Values{}
	params.Set("q", fmt.Sprintf(`conceptdoi:"%s"`, conceptDOI))
	params.Set("all_versions", "true")
	params.Set("size", "100")
	if z.token != "" {
		params.Set("access_token", z.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, z.baseURL+"/records?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := z.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying zenodo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("zenodo records for %s: status %d", conceptDOI, resp.StatusCode)
	}

	var search zenodoSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("parsing zenodo response: %w", err)
	}

	refs := []collection.Ref{{Type: citation.RefDOI, Value: conceptDOI}}
	seen := map[string]bool{conceptDOI: true}

	for _, hit := range search.Hits.Hits {
		doi := citation.NormalizeDOI(hit.DOI)
		if doi == "" || seen[doi] {
			continue
		}
		seen[doi] = true
		refs = append(refs, collection.Ref{Type: citation.RefDOI, Value: doi})
	}

	return refs, nil
}
