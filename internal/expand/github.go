package expand

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/collection"
)

// ErrInvalidRepo marks a ref value that is not a GitHub URL or
// owner/repo shorthand.
var ErrInvalidRepo = errors.New("invalid GitHub repository reference")

// GitHub maps a GitHub repository ref to the Zenodo concept DOI of its
// archived releases. Zenodo's GitHub integration records the repository
// URL as a related identifier, which is what the lookup searches on.
type GitHub struct {
	httpClient *http.Client
	baseURL    string
}

// GitHubOption configures a GitHub mapper.
type GitHubOption func(*GitHub)

// WithGitHubBaseURL overrides the Zenodo API endpoint (for testing).
func WithGitHubBaseURL(u string) GitHubOption {
	return func(g *GitHub) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithGitHubHTTPClient sets a custom HTTP client.
func WithGitHubHTTPClient(hc *http.Client) GitHubOption {
	return func(g *GitHub) { g.httpClient = hc }
}

// NewGitHub creates a GitHub-to-Zenodo mapper.
func NewGitHub(opts ...GitHubOption) *GitHub {
	g := &GitHub{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    ZenodoAPIURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// repoPatterns for parsing repository refs.
var (
	// Matches: https://github.com/owner/repo, https://github.com/owner/repo.git, github.com/owner/repo
	repoURLPattern = regexp.MustCompile(`^(?:https?://)?github\.com/([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+?)(?:\.git)?/?$`)
	// Matches: owner/repo
	repoShorthandPattern = regexp.MustCompile(`^([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+)$`)
)

// ParseRepo parses a GitHub URL or owner/repo shorthand and returns
// (owner, repo).
func ParseRepo(input string) (owner, repo string, err error) {
	input = strings.TrimSpace(input)

	if matches := repoURLPattern.FindStringSubmatch(input); matches != nil {
		return matches[1], matches[2], nil
	}
	if matches := repoShorthandPattern.FindStringSubmatch(input); matches != nil {
		return matches[1], matches[2], nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrInvalidRepo, input)
}

// Expands implements collector.RefExpander.
func (g *GitHub) Expands(t citation.RefType) bool { return t == citation.RefGitHub }

type zenodoConceptResponse struct {
	Hits struct {
		Hits []struct {
			ConceptDOI string `json:"conceptdoi"`
			DOI        string `json:"doi"`
		} `json:"hits"`
	} `json:"hits"`
}

// Expand implements collector.RefExpander. The returned ref is the Zenodo
// concept DOI for the repository, which a Zenodo expander pass then grows
// into version DOIs. A repository with no Zenodo archive yields no refs
// and no error.
func (g *GitHub) Expand(ctx context.Context, ref collection.Ref) ([]collection.Ref, error) {
	owner, repo, err := ParseRepo(ref.Value)
	if err != nil {
		return nil, err
	}
	repoURL := fmt.Sprintf("https://github.com/%s/%s", owner, repo)

	params := url.Values{}
	params.Set("q", fmt.Sprintf(`related.identifier:"%s"`, repoURL))
	params.Set("sort", "mostrecent")
	params.Set("size", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/records?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying zenodo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("zenodo lookup for %s: status %d", repoURL, resp.StatusCode)
	}

	var search zenodoConceptResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("parsing zenodo response: %w", err)
	}

	for _, hit := range search.Hits.Hits {
		doi := citation.NormalizeDOI(hit.ConceptDOI)
		if doi == "" {
			doi = citation.NormalizeDOI(hit.DOI)
		}
		if doi == "" {
			continue
		}
		return []collection.Ref{{Type: citation.RefZenodoConcept, Value: doi}}, nil
	}

	return nil, nil
}
