package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query cache from the citations TSV",
	Long: `Rebuild the SQLite query cache from the citations TSV.

Use this after pulling changes from git or if the cache becomes stale.`,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status    string `json:"status"`
	Citations int    `json:"citations"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	coll := mustLoadCollection()
	tsvPath := citationsPath(coll)

	db := mustOpenCache(tsvPath)
	defer db.Close()

	count, err := db.RebuildFromTSV(tsvPath)
	if err != nil {
		exitWithError(ExitDataError, "rebuilding cache: %v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt query cache with %d citations\n", count)
	} else {
		outputJSON(RebuildResult{Status: "rebuilt", Citations: count})
	}

	return nil
}
