package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show citation counts",
	Long:  `Show citation counts from the SQLite query cache, total and broken down by status and by item.`,
	RunE:  runStats,
}

// StatsResult is the response for the stats command.
type StatsResult struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByItem   map[string]int `json:"by_item"`
	BySource map[string]int `json:"by_source"`
}

func runStats(cmd *cobra.Command, args []string) error {
	coll := mustLoadCollection()
	db := mustOpenCache(citationsPath(coll))
	defer db.Close()

	total, err := db.Count()
	if err != nil {
		exitWithError(ExitError, "counting citations: %v", err)
	}
	byStatus, err := db.CountByStatus()
	if err != nil {
		exitWithError(ExitError, "counting by status: %v", err)
	}
	byItem, err := db.CountByItem()
	if err != nil {
		exitWithError(ExitError, "counting by item: %v", err)
	}
	bySource, err := db.CountBySource()
	if err != nil {
		exitWithError(ExitError, "counting by source: %v", err)
	}

	if humanOutput {
		fmt.Printf("Total citations: %d\n\nBy status:\n", total)
		for status, n := range byStatus {
			fmt.Printf("  %-10s %d\n", status, n)
		}
		fmt.Println("\nBy item:")
		for item, n := range byItem {
			fmt.Printf("  %-20s %d\n", item, n)
		}
		fmt.Println("\nBy source:")
		for src, n := range bySource {
			fmt.Printf("  %-15s %d\n", src, n)
		}
	} else {
		outputJSON(StatsResult{Total: total, ByStatus: byStatus, ByItem: byItem, BySource: bySource})
	}

	return nil
}
