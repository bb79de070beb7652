package main

import (
	"fmt"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/storage"
	"github.com/spf13/cobra"
)

var (
	listItem   string
	listStatus string
)

func init() {
	listCmd.Flags().StringVar(&listItem, "item", "", "List citations for this item ID")
	listCmd.Flags().StringVar(&listStatus, "status", "", "List citations with this status (active, ignored, merged, pending)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed citations",
	Long: `List citations from the SQLite query cache.

Filter by --item or --status. Run 'citecollect rebuild' first if the cache
is missing or stale.`,
	RunE: runList,
}

// ListResult is the response for the list command.
type ListResult struct {
	Count     int                   `json:"count"`
	Citations []storage.CitationRow `json:"citations"`
}

func runList(cmd *cobra.Command, args []string) error {
	if listItem == "" && listStatus == "" {
		exitWithError(ExitError, "pass --item or --status to select citations")
	}

	coll := mustLoadCollection()
	db := mustOpenCache(citationsPath(coll))
	defer db.Close()

	var rows []storage.CitationRow
	var err error
	switch {
	case listItem != "":
		rows, err = db.ListByItem(listItem)
	default:
		rows, err = db.ListByStatus(citation.Status(listStatus))
	}
	if err != nil {
		exitWithError(ExitError, "querying citations: %v", err)
	}

	if humanOutput {
		for _, r := range rows {
			fmt.Printf("%s/%s  %s  [%s]\n", r.ItemID, r.ItemFlavor, r.CitationDOI, r.Status)
			fmt.Printf("  %s (%d)\n", truncateString(r.Title, ListTitleMaxLen), r.Year)
		}
		fmt.Printf("%d citations\n", len(rows))
	} else {
		outputJSON(ListResult{Count: len(rows), Citations: rows})
	}

	return nil
}
