package collector

import "github.com/dandi/citecollect/internal/citation"

// Deduplicate collapses one discovery batch into a unique set keyed by
// (item_id, item_flavor, citation_doi). The first record of each group is
// kept as the representative; every distinct source observed across the
// group is folded into its sources list in first-seen order, with the
// discovery dates folded alongside so the two stay in step. Output order
// follows first appearance of each key. Running Deduplicate on its own
// output is a no-op.
func Deduplicate(records []citation.Record) []citation.Record {
	grouped := make(map[citation.Key][]citation.Record)
	var order []citation.Key

	for _, rec := range records {
		key := citation.RecordKey(&rec)
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], rec)
	}

	unique := make([]citation.Record, 0, len(order))
	for _, key := range order {
		group := grouped[key]
		rep := group[0]
		rep.Sources = append([]citation.Source(nil), rep.Sources...)
		rep.DiscoveredDates = cloneDates(rep.DiscoveredDates)

		for _, member := range group[1:] {
			for _, src := range member.Sources {
				rep.AddSource(src, member.DiscoveredDates[src])
			}
		}
		if len(rep.Sources) > 0 {
			rep.Source = rep.Sources[0]
		}

		unique = append(unique, rep)
	}

	return unique
}

func cloneDates(dates map[citation.Source]string) map[citation.Source]string {
	if dates == nil {
		return nil
	}
	out := make(map[citation.Source]string, len(dates))
	for k, v := range dates {
		out[k] = v
	}
	return out
}
