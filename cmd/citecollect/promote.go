package main

import (
	"fmt"
	"path/filepath"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/classify"
	"github.com/dandi/citecollect/internal/collector"
	"github.com/dandi/citecollect/internal/storage"
	"github.com/spf13/cobra"
)

var (
	promoteItem      string
	promoteFlavor    string
	promoteModel     string
	promoteCurator   string
	promotePapersDir string
	promoteForce     bool
)

func init() {
	promoteCmd.Flags().StringVar(&promoteItem, "item", "", "Item ID (required)")
	promoteCmd.Flags().StringVar(&promoteFlavor, "flavor", "draft", "Item flavor")
	promoteCmd.Flags().StringVar(&promoteModel, "model", "", "Model whose verdict to promote (default: selection strategy winner)")
	promoteCmd.Flags().StringVar(&promoteCurator, "curator", "", "Curator name for the curation stamp (required)")
	promoteCmd.Flags().StringVar(&promotePapersDir, "papers-dir", "papers", "Root directory for per-paper classification files")
	promoteCmd.Flags().BoolVar(&promoteForce, "force", false, "Overwrite an already curated record")
	promoteCmd.MarkFlagRequired("item")
	promoteCmd.MarkFlagRequired("curator")
	rootCmd.AddCommand(promoteCmd)
}

var promoteCmd = &cobra.Command{
	Use:   "promote <paper-doi>",
	Short: "Promote a stored verdict into the citation record",
	Long: `Promote a stored classification verdict into the citations TSV.

The verdict's relationship becomes the record's curated relationship and the
record is stamped as reviewed. Labels outside the record vocabulary collapse
to the generic Cites. Curated records are refused unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runPromote,
}

// PromoteResult is the response for the promote command.
type PromoteResult struct {
	Status       string  `json:"status"`
	PaperDOI     string  `json:"paper_doi"`
	ItemID       string  `json:"item_id"`
	Relationship string  `json:"relationship"`
	Model        string  `json:"model"`
	Confidence   float64 `json:"confidence"`
	ExactLabel   bool    `json:"exact_label"`
}

func runPromote(cmd *cobra.Command, args []string) error {
	doi := citation.NormalizeDOI(args[0])

	coll := mustLoadCollection()
	tsvPath := citationsPath(coll)

	lock := mustAcquireLock(tsvPath)
	defer lock.Release()

	records := mustLoadCitations(tsvPath)

	papersDir := promotePapersDir
	if !filepath.IsAbs(papersDir) {
		papersDir = filepath.Join(filepath.Dir(collectionPath), papersDir)
	}
	store := storage.NewClassificationStore(papersDir)

	verdict := mustPickVerdict(store, doi)
	rel, exact := classify.CoerceRelationship(verdict.RelationshipType)

	key := citation.Key{ItemID: promoteItem, ItemFlavor: promoteFlavor, CitationDOI: doi}
	for i := range records {
		if citation.RecordKey(&records[i]) == key && records[i].Curated() && !promoteForce {
			exitWithError(ExitCurated, "citation %s is curated; pass --force to overwrite", key)
		}
	}

	c := collector.New(coll)
	c.SetCitations(records)
	if err := c.Promote(key, rel, verdict.Model, verdict.Confidence, promoteCurator); err != nil {
		exitWithError(ExitNotFound, "%v", err)
	}

	if err := storage.SaveCitations(tsvPath, c.Citations()); err != nil {
		exitWithError(ExitDataError, "saving citations: %v", err)
	}

	if humanOutput {
		note := ""
		if !exact {
			note = fmt.Sprintf(" (label %q collapsed to cites)", verdict.RelationshipType)
		}
		fmt.Printf("Promoted %s for %s: %s (%.2f)%s\n", verdict.Model, key, rel, verdict.Confidence, note)
	} else {
		outputJSON(PromoteResult{
			Status:       "promoted",
			PaperDOI:     doi,
			ItemID:       promoteItem,
			Relationship: string(rel),
			Model:        verdict.Model,
			Confidence:   verdict.Confidence,
			ExactLabel:   exact,
		})
	}

	return nil
}

// mustPickVerdict finds the verdict to promote: the named model's, or the
// highest-confidence one when no model is given. Exits when none exists.
func mustPickVerdict(store *storage.ClassificationStore, doi string) *storage.StoredClassification {
	if promoteModel != "" {
		verdict, err := store.Get(doi, promoteItem, promoteFlavor, promoteModel)
		if err != nil {
			exitWithError(ExitError, "loading verdict: %v", err)
		}
		if verdict == nil {
			exitWithError(ExitNotFound, "no verdict from %s for %s / %s/%s", promoteModel, doi, promoteItem, promoteFlavor)
		}
		return verdict
	}

	verdicts, err := store.ForItem(doi, promoteItem, promoteFlavor)
	if err != nil {
		exitWithError(ExitError, "loading verdicts: %v", err)
	}
	verdict := classify.HighestConfidence(verdicts)
	if verdict == nil {
		exitWithError(ExitNotFound, "no verdicts for %s / %s/%s", doi, promoteItem, promoteFlavor)
	}
	return verdict
}
