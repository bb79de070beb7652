// Package pdftext locates dataset mentions in paper PDFs and extracts the
// surrounding text as classification context.
package pdftext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dandi/citecollect/internal/classify"
	"github.com/ledongthuc/pdf"
)

const (
	// windowSize is the target context size around a mention, in
	// characters, when no clean paragraph boundaries exist.
	windowSize = 800

	// maxContextLength caps a single extracted context.
	maxContextLength = 1000
)

// patternTemplates maps a dataset namespace to the textual forms its IDs
// take in papers. %s is replaced with the dataset number.
var patternTemplates = map[string][]string{
	"dandi": {
		`DANDI[:\s]+%s`,
		`dandiarchive\.org/dandiset/%s`,
		`doi\.org/10\.48324/dandi\.%s`,
	},
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// ExtractFromPDF scans a PDF for mentions of the target datasets and
// returns the extracted-citations structure, one citation per dataset
// that appears, with page-stamped mention contexts.
func ExtractFromPDF(path string, targetDatasets []string) (*classify.ExtractedPaper, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	byDataset := make(map[string]*classify.ExtractedCitation)
	var order []string

	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		for _, datasetID := range targetDatasets {
			for _, pos := range FindMentions(text, datasetID) {
				cit, ok := byDataset[datasetID]
				if !ok {
					cit = &classify.ExtractedCitation{DatasetID: datasetID}
					byDataset[datasetID] = cit
					order = append(order, datasetID)
				}

				context := ExtractParagraph(text, pos)
				if hasDuplicateContext(cit.Mentions, context, pageNum) {
					continue
				}
				cit.Mentions = append(cit.Mentions, classify.Mention{
					Context: context,
					Page:    pageNum,
				})
			}
		}
	}

	paper := &classify.ExtractedPaper{}
	for _, id := range order {
		paper.Citations = append(paper.Citations, *byDataset[id])
	}
	return paper, nil
}

// FindMentions returns the byte offsets of every mention of a dataset in
// the text. The dataset ID is "namespace:number"; the namespace selects
// the pattern set, and the literal ID is always tried too.
func FindMentions(text, datasetID string) []int {
	namespace, number, ok := strings.Cut(datasetID, ":")
	if !ok {
		namespace, number = "dandi", datasetID
	}

	var positions []int
	seen := make(map[int]bool)
	add := func(pos int) {
		if !seen[pos] {
			seen[pos] = true
			positions = append(positions, pos)
		}
	}

	for _, tmpl := range patternTemplates[strings.ToLower(namespace)] {
		re, err := regexp.Compile(`(?i)` + fmt.Sprintf(tmpl, regexp.QuoteMeta(number)))
		if err != nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			add(loc[0])
		}
	}

	literal := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(datasetID))
	for _, loc := range literal.FindAllStringIndex(text, -1) {
		add(loc[0])
	}

	return positions
}

// ExtractParagraph returns the context around a mention position. Natural
// paragraph boundaries (blank lines) are preferred; short or unbounded
// paragraphs fall back to a fixed window centered on the mention. The
// result is whitespace-collapsed and capped at maxContextLength.
func ExtractParagraph(text string, position int) string {
	start := strings.LastIndex(text[:position], "\n\n")
	end := strings.Index(text[position:], "\n\n")
	if end != -1 {
		end += position
	}

	if start == -1 || end == -1 || end-start < windowSize/2 {
		start = max(0, position-windowSize/2)
		end = min(len(text), position+windowSize/2)
	}

	paragraph := strings.TrimSpace(text[start:end])
	paragraph = whitespaceRe.ReplaceAllString(paragraph, " ")

	if len(paragraph) > maxContextLength {
		mention := position - start
		cStart := max(0, mention-maxContextLength/2)
		cEnd := min(len(paragraph), mention+maxContextLength/2)
		paragraph = "..." + paragraph[cStart:cEnd] + "..."
	}

	return paragraph
}

func hasDuplicateContext(mentions []classify.Mention, context string, page int) bool {
	for _, m := range mentions {
		if m.Context == context && m.Page == page {
			return true
		}
	}
	return false
}
