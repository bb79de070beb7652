// Package discovery queries external citation indexes for works citing a
// tracked identifier and maps the results into citation records.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/collection"
)

const (
	// DefaultTimeout is the per-request HTTP timeout for all adapters.
	DefaultTimeout = 30 * time.Second

	// UserAgentBase identifies this tool to the citation APIs.
	UserAgentBase = "citecollect"
)

// Common errors returned by discovery adapters.
var (
	// ErrNetworkError indicates a transport-level failure.
	ErrNetworkError = errors.New("network error")

	// ErrInvalidResponse indicates a payload that could not be parsed.
	ErrInvalidResponse = errors.New("invalid response")
)

// Logger receives non-fatal warnings from adapters. A single source's
// outage must never abort a discovery run, so adapters report trouble here
// instead of failing loudly.
type Logger func(format string, args ...any)

// StderrLogger writes warnings to standard error.
func StderrLogger(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

// Discoverer queries one external citation API for works citing a ref.
//
// Discover returns partially populated records: the identity fields
// ItemID/ItemFlavor are left blank for the caller to stamp. A ref type the
// adapter does not support yields an empty list and a logged warning, not
// an error. Transport and parse failures surface as errors; callers treat
// them as a zero-record result for that ref.
type Discoverer interface {
	Name() citation.Source
	Supports(t citation.RefType) bool
	Discover(ctx context.Context, ref collection.Ref, since *time.Time) ([]citation.Record, error)
}

// userAgent builds the User-Agent string, appending a mailto for polite
// pools when an email is configured.
func userAgent(email string) string {
	if email == "" {
		return UserAgentBase
	}
	return fmt.Sprintf("%s (mailto:%s)", UserAgentBase, email)
}

// checkStatus returns an error for non-2xx responses.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	return nil
}

// today returns the discovery date stamp used in discovered_dates.
func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

var (
	controlRe = regexp.MustCompile(`[\n\r\t]+`)
	spacesRe  = regexp.MustCompile(` +`)
)

// sanitizeText normalizes whitespace and strips control characters so
// titles and author lists are safe for tab-separated output.
func sanitizeText(text string) string {
	text = controlRe.ReplaceAllString(text, " ")
	text = spacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// joinAuthors renders an author list in the "A; B; C" convention used by
// the citations file.
func joinAuthors(names []string) string {
	return strings.Join(names, "; ")
}

// stripDOIPrefix removes resolver URL and scheme prefixes from a citing
// DOI and lower-cases it. Returns "" when the remainder is not DOI-shaped.
func stripDOIPrefix(raw string) string {
	doi := citation.NormalizeDOI(raw)
	if !citation.IsDOI(doi) {
		return ""
	}
	return doi
}
