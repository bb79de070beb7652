package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/collection"
	"golang.org/x/time/rate"
)

const (
	// CrossRefEventsURL is the CrossRef Event Data API endpoint.
	CrossRefEventsURL = "https://api.eventdata.crossref.org/v1/events"

	// DOIResolverURL is used for citing-work metadata via content negotiation.
	DOIResolverURL = "https://doi.org"

	// crossrefPageSize is the maximum rows requested per query.
	crossrefPageSize = 1000

	// crossrefMetadataRate bounds the per-citing-DOI metadata lookups.
	crossrefMetadataRate = 5.0
)

// CrossRef discovers citations via the CrossRef Event Data API. Each event
// names a citing work; metadata for the citing DOI is fetched separately
// through doi.org content negotiation.
type CrossRef struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	doiURL     string
	email      string
	log        Logger
}

// CrossRefOption configures a CrossRef adapter.
type CrossRefOption func(*CrossRef)

// WithCrossRefBaseURL overrides the Event Data endpoint (for testing).
func WithCrossRefBaseURL(u string) CrossRefOption {
	return func(c *CrossRef) { c.baseURL = u }
}

// WithCrossRefDOIURL overrides the metadata resolver endpoint (for testing).
func WithCrossRefDOIURL(u string) CrossRefOption {
	return func(c *CrossRef) { c.doiURL = u }
}

// WithCrossRefEmail sets the polite-pool contact email.
func WithCrossRefEmail(email string) CrossRefOption {
	return func(c *CrossRef) { c.email = email }
}

// WithCrossRefHTTPClient sets a custom HTTP client.
func WithCrossRefHTTPClient(hc *http.Client) CrossRefOption {
	return func(c *CrossRef) { c.httpClient = hc }
}

// WithCrossRefLogger sets the warning logger.
func WithCrossRefLogger(log Logger) CrossRefOption {
	return func(c *CrossRef) { c.log = log }
}

// NewCrossRef creates a CrossRef Event Data discoverer.
func NewCrossRef(opts ...CrossRefOption) *CrossRef {
	c := &CrossRef{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(crossrefMetadataRate), 1),
		baseURL:    CrossRefEventsURL,
		doiURL:     DOIResolverURL,
		log:        StderrLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Discoverer.
func (c *CrossRef) Name() citation.Source { return citation.SourceCrossRef }

// Supports implements Discoverer. CrossRef Event Data is queried by DOI only.
func (c *CrossRef) Supports(t citation.RefType) bool { return t == citation.RefDOI }

type crossrefEventsResponse struct {
	Message struct {
		Events []struct {
			Subj struct {
				PID string `json:"pid"`
			} `json:"subj"`
		} `json:"events"`
	} `json:"message"`
}

// Discover implements Discoverer.
func (c *CrossRef) Discover(ctx context.Context, ref collection.Ref, since *time.Time) ([]citation.Record, error) {
	if !c.Supports(ref.Type) {
		c.log("crossref only supports DOI refs, got %s", ref.Type)
		return nil, nil
	}

	params := url.Values{}
	params.Set("obj-id", ref.Value)
	params.Set("rows", fmt.Sprint(crossrefPageSize))
	if since != nil {
		params.Set("from-updated-date", since.Format("2006-01-02"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent(c.email))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("crossref events for %s: %w", ref.Value, err)
	}

	var events crossrefEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("%w: parsing events: %v", ErrInvalidResponse, err)
	}

	date := today()
	var records []citation.Record
	seen := make(map[string]bool)

	for _, event := range events.Message.Events {
		doi := stripDOIPrefix(event.Subj.PID)
		if doi == "" || seen[doi] {
			continue
		}
		seen[doi] = true

		meta := c.fetchMetadata(ctx, doi)

		rec, err := citation.New(citation.Record{
			CitationDOI:     doi,
			CitationTitle:   meta.title,
			CitationAuthors: meta.authors,
			CitationYear:    meta.year,
			CitationJournal: meta.journal,
			Relationship:    citation.RelCites,
			Source:          citation.SourceCrossRef,
			Status:          citation.StatusActive,
			DiscoveredDates: map[citation.Source]string{citation.SourceCrossRef: date},
		})
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, nil
}

type doiMetadata struct {
	title   string
	authors string
	year    int
	journal string
}

// fetchMetadata resolves citing-work metadata via doi.org content
// negotiation. Failures degrade to empty metadata; the citation itself is
// still recorded.
func (c *CrossRef) fetchMetadata(ctx context.Context, doi string) doiMetadata {
	var meta doiMetadata

	if err := c.limiter.Wait(ctx); err != nil {
		return meta
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.doiURL+"/"+doi, nil)
	if err != nil {
		return meta
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent(c.email))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log("fetching metadata for %s: %v", doi, err)
		return meta
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		c.log("fetching metadata for %s: %v", doi, err)
		return meta
	}

	var payload struct {
		Title  string `json:"title"`
		Author []struct {
			Given  string `json:"given"`
			Family string `json:"family"`
		} `json:"author"`
		Published struct {
			DateParts [][]int `json:"date-parts"`
		} `json:"published"`
		ContainerTitle json.RawMessage `json:"container-title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log("parsing metadata for %s: %v", doi, err)
		return meta
	}

	meta.title = sanitizeText(payload.Title)

	var names []string
	for _, a := range payload.Author {
		name := sanitizeText(a.Given + " " + a.Family)
		if name != "" {
			names = append(names, name)
		}
	}
	meta.authors = joinAuthors(names)

	if len(payload.Published.DateParts) > 0 && len(payload.Published.DateParts[0]) > 0 {
		meta.year = payload.Published.DateParts[0][0]
	}

	// container-title may be a string or a list of strings.
	if len(payload.ContainerTitle) > 0 {
		var container string
		if err := json.Unmarshal(payload.ContainerTitle, &container); err == nil {
			meta.journal = sanitizeText(container)
		} else {
			var containers []string
			if err := json.Unmarshal(payload.ContainerTitle, &containers); err == nil && len(containers) > 0 {
				meta.journal = sanitizeText(containers[0])
			}
		}
	}

	return meta
}
