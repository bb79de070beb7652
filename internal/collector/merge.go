package collector

import "github.com/dandi/citecollect/internal/citation"

// Merge folds a freshly discovered batch into the persisted citation set.
// Records with an unknown key are appended as new citations. For a known
// key, the incoming sources and their discovery dates are folded into the
// record's provenance, and citing-work metadata is refreshed only when the
// existing record has not been human-curated (status active and no
// comment), and only for fields the incoming record actually supplies.
// Curation fields, classification fields, and the identity key are never
// touched; a curated record keeps its provenance growing but discards
// incoming metadata outright. Re-merging the same batch is a no-op.
//
// Merge expects incoming to have passed through Deduplicate, so its source
// lists are already consolidated.
func Merge(existing, incoming []citation.Record) []citation.Record {
	index := make(map[citation.Key]int, len(existing))
	for i := range existing {
		index[citation.RecordKey(&existing[i])] = i
	}

	for _, in := range incoming {
		key := citation.RecordKey(&in)
		i, ok := index[key]
		if !ok {
			existing = append(existing, in)
			index[key] = len(existing) - 1
			continue
		}

		cur := &existing[i]

		// Provenance is not a curated field: a later run finding the same
		// citation through another source is recorded either way.
		for _, src := range in.Sources {
			cur.AddSource(src, in.DiscoveredDates[src])
		}

		if cur.Curated() {
			continue
		}

		if in.CitationTitle != "" {
			cur.CitationTitle = in.CitationTitle
		}
		if in.CitationAuthors != "" {
			cur.CitationAuthors = in.CitationAuthors
		}
		if in.CitationYear != 0 {
			cur.CitationYear = in.CitationYear
		}
		if in.CitationJournal != "" {
			cur.CitationJournal = in.CitationJournal
		}
	}

	return existing
}
