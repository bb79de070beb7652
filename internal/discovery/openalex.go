package discovery

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
	"golang.org/x/time/rate"
)

const (
	// OpenAlexWorksURL is the OpenAlex works endpoint.
	OpenAlexWorksURL = "https://api.openalex.org/works"

	// openAlexPageSize is the maximum works per page.
	openAlexPageSize = 200

	// openAlexRate bounds requests to stay inside the polite-pool limit.
	openAlexRate = 10.0
)

// OpenAlex discovers citations via the OpenAlex works API, paging through
// cursor results. OpenAlex returns full work metadata in one pass, so no
// secondary lookups are needed.
type OpenAlex struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	email      string
	log        Logger
}

// OpenAlexOption configures an OpenAlex adapter.
type OpenAlexOption func(*OpenAlex)

// WithOpenAlexBaseURL overrides the works endpoint (for testing).
func WithOpenAlexBaseURL(u string) OpenAlexOption {
	return func(o *OpenAlex) { o.baseURL = u }
}

// WithOpenAlexEmail sets the polite-pool contact email.
func WithOpenAlexEmail(email string) OpenAlexOption {
	return func(o *OpenAlex) { o.email = email }
}

// WithOpenAlexHTTPClient sets a custom HTTP client.
func WithOpenAlexHTTPClient(hc *http.Client) OpenAlexOption {
	return func(o *OpenAlex) { o.httpClient = hc }
}

// WithOpenAlexLogger sets the warning logger.
func WithOpenAlexLogger(log Logger) OpenAlexOption {
	return func(o *OpenAlex) { o.log = log }
}

// NewOpenAlex creates an OpenAlex discoverer.
func NewOpenAlex(opts ...OpenAlexOption) *OpenAlex {
	o := &OpenAlex{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(openAlexRate), 1),
		baseURL:    OpenAlexWorksURL,
		log:        StderrLogger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name implements Discoverer.
func (o *OpenAlex) Name() citation.Source { return citation.SourceOpenAlex }

// Supports implements Discoverer.
func (o *OpenAlex) Supports(t citation.RefType) bool { return t == citation.RefDOI }

type openAlexWork struct {
	DOI             string `json:"doi"`
	Title           string `json:"title"`
	PublicationYear int    `json:"publication_year"`
	Type            string `json:"type"`
	Authorships     []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	PrimaryLocation struct {
		Source struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	OpenAccess struct {
		OAStatus string `json:"oa_status"`
	} `json:"open_access"`
	BestOALocation struct {
		PDFURL string `json:"pdf_url"`
	} `json:"best_oa_location"`
	IDs struct {
		PMID string `json:"pmid"`
	} `json:"ids"`
}

type openAlexPage struct {
	Results []openAlexWork `json:"results"`
	Meta    struct {
		NextCursor string `json:"next_cursor"`
	} `json:"meta"`
}

// Discover implements Discoverer.
func (o *OpenAlex) Discover(ctx context.Context, ref collection.Ref, since *time.Time) ([]citation.Record, error) {
	if !o.Supports(ref.Type) {
		o.log("openalex only supports DOI refs, got %s", ref.Type)
		return nil, nil
	}

	filter := "cites:https://doi.org/" + ref.Value
	if since != nil {
		filter += ",from_publication_date:" + since.Format("2006-01-02")
	}

	date := today()
	var records []citation.Record
	seen := make(map[string]bool)

	cursor := "*"
	for cursor != "" {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		params := url.Values{}
		params.Set("filter", filter)
		params.Set("per-page", fmt.Sprint(openAlexPageSize))
		params.Set("cursor", cursor)
		if o.email != "" {
			params.Set("mailto", o.email)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent(o.email))

		resp, err := o.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
		}

		var page openAlexPage
		err = json.NewDecoder(resp.Body).Decode(&page)
		statusErr := checkStatus(resp)
		resp.Body.Close()
		if statusErr != nil {
			return nil, fmt.Errorf("openalex works for %s: %w", ref.Value, statusErr)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parsing works: %v", ErrInvalidResponse, err)
		}

		for _, work := range page.Results {
			doi := stripDOIPrefix(work.DOI)
			if doi == "" || seen[doi] {
				continue
			}
			seen[doi] = true

			rec, err := citation.New(o.parseWork(work, doi, date))
			if err != nil {
				return nil, err
			}
			records = append(records, *rec)
		}

		if len(page.Results) == 0 {
			break
		}
		cursor = page.Meta.NextCursor
	}

	return records, nil
}

// parseWork maps an OpenAlex work into a citation record.
func (o *OpenAlex) parseWork(work openAlexWork, doi, date string) citation.Record {
	var names []string
	for _, a := range work.Authorships {
		name := sanitizeText(a.Author.DisplayName)
		if name != "" {
			names = append(names, name)
		}
	}

	pmid := work.IDs.PMID
	if pmid != "" {
		// The ids block carries a resolver URL, keep only the number.
		if i := strings.LastIndexByte(pmid, '/'); i >= 0 {
			pmid = pmid[i+1:]
		}
	}

	return citation.Record{
		CitationDOI:     doi,
		CitationPMID:    pmid,
		CitationTitle:   sanitizeText(work.Title),
		CitationAuthors: joinAuthors(names),
		CitationYear:    work.PublicationYear,
		CitationJournal: sanitizeText(work.PrimaryLocation.Source.DisplayName),
		CitationType:    mapWorkType(work.Type),
		Relationship:    citation.RelCites,
		Source:          citation.SourceOpenAlex,
		Status:          citation.StatusActive,
		OAStatus:        work.OpenAccess.OAStatus,
		PDFURL:          work.BestOALocation.PDFURL,
		DiscoveredDates: map[citation.Source]string{citation.SourceOpenAlex: date},
	}
}

// mapWorkType maps OpenAlex work types onto the citation type vocabulary.
func mapWorkType(t string) citation.Type {
	switch t {
	case "article", "journal-article", "review", "letter", "editorial":
		return citation.TypePublication
	case "preprint", "posted-content":
		return citation.TypePreprint
	case "book", "book-chapter", "monograph":
		return citation.TypeBook
	case "dataset":
		return citation.TypeDataset
	case "dissertation":
		return citation.TypeThesis
	default:
		return citation.TypeOther
	}
}
