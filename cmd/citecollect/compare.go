package main

import (
	"fmt"
	"path/filepath"

	"github.com/dandi/citecollect/internal/classify"
	"github.com/dandi/citecollect/internal/storage"
	"github.com/spf13/cobra"
)

var (
	compareItem      string
	compareFlavor    string
	comparePapersDir string
	compareStrategy  string
	comparePrefer    []string
)

func init() {
	compareCmd.Flags().StringVar(&compareItem, "item", "", "Item ID (required)")
	compareCmd.Flags().StringVar(&compareFlavor, "flavor", "draft", "Item flavor")
	compareCmd.Flags().StringVar(&comparePapersDir, "papers-dir", "papers", "Root directory for per-paper classification files")
	compareCmd.Flags().StringVar(&compareStrategy, "strategy", "highest-confidence", "Selection strategy (highest-confidence or prefer-model)")
	compareCmd.Flags().StringSliceVar(&comparePrefer, "prefer", nil, "Model preference order for prefer-model strategy")
	compareCmd.MarkFlagRequired("item")
	rootCmd.AddCommand(compareCmd)
}

var compareCmd = &cobra.Command{
	Use:   "compare <paper-doi>",
	Short: "Compare model verdicts for one citation",
	Long: `Compare the stored classification verdicts from different models for
one paper's citation of an item, and show which verdict the selection
strategy would promote.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

// CompareResult is the response for the compare command.
type CompareResult struct {
	PaperDOI string                         `json:"paper_doi"`
	ItemID   string                         `json:"item_id"`
	Flavor   string                         `json:"item_flavor"`
	Verdicts []storage.StoredClassification `json:"verdicts"`
	Selected *storage.StoredClassification  `json:"selected,omitempty"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	doi := args[0]

	papersDir := comparePapersDir
	if !filepath.IsAbs(papersDir) {
		papersDir = filepath.Join(filepath.Dir(collectionPath), papersDir)
	}
	store := storage.NewClassificationStore(papersDir)

	verdicts, err := store.ForItem(doi, compareItem, compareFlavor)
	if err != nil {
		exitWithError(ExitError, "loading verdicts: %v", err)
	}
	if len(verdicts) == 0 {
		exitWithError(ExitNotFound, "no verdicts for %s / %s/%s", doi, compareItem, compareFlavor)
	}

	var selected *storage.StoredClassification
	switch compareStrategy {
	case "highest-confidence":
		selected = classify.HighestConfidence(verdicts)
	case "prefer-model":
		selected = classify.PreferModel(verdicts, comparePrefer...)
	default:
		exitWithError(ExitError, "unknown strategy %q", compareStrategy)
	}

	if humanOutput {
		for _, v := range verdicts {
			marker := " "
			if selected != nil && v.Model == selected.Model {
				marker = "*"
			}
			fmt.Printf("%s %-24s %-20s %.2f  %s\n",
				marker, v.Model, v.RelationshipType, v.Confidence, truncateString(v.Reasoning, ListTitleMaxLen))
		}
	} else {
		outputJSON(CompareResult{
			PaperDOI: doi,
			ItemID:   compareItem,
			Flavor:   compareFlavor,
			Verdicts: verdicts,
			Selected: selected,
		})
	}

	return nil
}
