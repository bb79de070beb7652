package classify

import "github.com/dandi/citecollect/internal/storage"

// HighestConfidence picks the verdict with the greatest confidence from a
// set of per-model verdicts for one item. Ties keep the earlier entry.
// Returns nil for an empty set.
func HighestConfidence(verdicts []storage.StoredClassification) *storage.StoredClassification {
	var best *storage.StoredClassification
	for i := range verdicts {
		if best == nil || verdicts[i].Confidence > best.Confidence {
			best = &verdicts[i]
		}
	}
	return best
}

// PreferModel picks the verdict from the first preferred model that has
// one, falling back to highest confidence when none of the preferred
// models appear. Returns nil for an empty set.
func PreferModel(verdicts []storage.StoredClassification, preferred ...string) *storage.StoredClassification {
	for _, model := range preferred {
		for i := range verdicts {
			if verdicts[i].Model == model {
				return &verdicts[i]
			}
		}
	}
	return HighestConfidence(verdicts)
}
