// Package citation defines the core domain types for tracked citations.
package citation

import "strings"

// RefType identifies the kind of external identifier used to query
// discovery sources.
type RefType string

const (
	RefDOI           RefType = "doi"
	RefRRID          RefType = "rrid"
	RefArXiv         RefType = "arxiv"
	RefPMID          RefType = "pmid"
	RefPMCID         RefType = "pmcid"
	RefURL           RefType = "url"
	RefZenodoConcept RefType = "zenodo_concept"
	RefZenodoVersion RefType = "zenodo_version"
	RefGitHub        RefType = "github"
)

// ValidRefTypes lists the supported identifier reference types.
var ValidRefTypes = []RefType{
	RefDOI, RefRRID, RefArXiv, RefPMID, RefPMCID, RefURL,
	RefZenodoConcept, RefZenodoVersion, RefGitHub,
}

// IsValid reports whether t is a known ref type.
func (t RefType) IsValid() bool {
	for _, v := range ValidRefTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Relationship is the relationship between a citing work and the cited item,
// aligned with CiTO and DataCite relationship types.
type Relationship string

const (
	RelCites            Relationship = "Cites"
	RelIsDocumentedBy   Relationship = "IsDocumentedBy"
	RelDescribes        Relationship = "Describes"
	RelIsSupplementedBy Relationship = "IsSupplementedBy"
	RelReferences       Relationship = "References"
	RelUses             Relationship = "Uses"
	RelIsDerivedFrom    Relationship = "IsDerivedFrom"
)

// ValidRelationships is the closed relationship vocabulary.
var ValidRelationships = []Relationship{
	RelCites, RelIsDocumentedBy, RelDescribes, RelIsSupplementedBy,
	RelReferences, RelUses, RelIsDerivedFrom,
}

// IsValid reports whether r belongs to the closed vocabulary.
func (r Relationship) IsValid() bool {
	for _, v := range ValidRelationships {
		if r == v {
			return true
		}
	}
	return false
}

// Type is the type of citing work.
type Type string

const (
	TypePublication Type = "Publication"
	TypePreprint    Type = "Preprint"
	TypeProtocol    Type = "Protocol"
	TypeThesis      Type = "Thesis"
	TypeBook        Type = "Book"
	TypeSoftware    Type = "Software"
	TypeDataset     Type = "Dataset"
	TypeOther       Type = "Other"
)

// Source is the discovery source that found a citation.
type Source string

const (
	SourceCrossRef        Source = "crossref"
	SourceOpenCitations   Source = "opencitations"
	SourceDataCite        Source = "datacite"
	SourceOpenAlex        Source = "openalex"
	SourceEuropePMC       Source = "europepmc"
	SourceSemanticScholar Source = "semantic_scholar"
	SourceSciCrunch       Source = "scicrunch"
	SourceManual          Source = "manual"
)

// Status is the curation status of a citation.
type Status string

const (
	StatusActive  Status = "active"
	StatusIgnored Status = "ignored"
	StatusMerged  Status = "merged"
	StatusPending Status = "pending"
)

// NormalizeDOI lower-cases a DOI and strips resolver and scheme prefixes.
// Lower-casing happens first so upper-cased prefixes are stripped too.
func NormalizeDOI(doi string) string {
	doi = strings.ToLower(strings.TrimSpace(doi))
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	return strings.TrimPrefix(doi, "doi:")
}

// IsDOI performs basic shape validation on a DOI: a "10." registrant
// prefix followed by a slash with a non-empty suffix.
func IsDOI(doi string) bool {
	if !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash > 3 && slash < len(doi)-1
}
