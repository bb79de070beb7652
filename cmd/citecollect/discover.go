package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dandi/citecollect/internal/collector"
	"github.com/spf13/cobra"
)

var (
	discoverSources     []string
	discoverIncremental bool
	discoverEmail       string
)

func init() {
	discoverCmd.Flags().StringSliceVar(&discoverSources, "sources", nil, "Discovery sources to query (default: all)")
	discoverCmd.Flags().BoolVar(&discoverIncremental, "incremental", false, "Only query citations indexed since the last run")
	discoverCmd.Flags().StringVar(&discoverEmail, "email", "", "Contact email for polite-pool APIs (default: $CROSSREF_EMAIL or collection setting)")
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover citations for every tracked item",
	Long: `Discover citations for every (item, flavor, ref) in the collection.

Queries the enabled discovery sources, consolidates duplicate findings, and
merges the batch into the citations TSV without touching curated records.
The collection's last-updated watermark advances after the run.`,
	RunE: runDiscover,
}

// DiscoverResult is the response for the discover command.
type DiscoverResult struct {
	Status  string   `json:"status"`
	Total   int      `json:"total"`
	New     int      `json:"new"`
	Sources []string `json:"sources,omitempty"`
}

func runDiscover(cmd *cobra.Command, args []string) error {
	coll := mustLoadCollection()
	tsvPath := citationsPath(coll)

	lock := mustAcquireLock(tsvPath)
	defer lock.Release()

	sources := discoverSources
	if sources == nil {
		sources = coll.Discovery.Sources
	}
	email := discoverEmail
	if email == "" {
		email = os.Getenv("CROSSREF_EMAIL")
	}
	if email == "" {
		email = coll.Discovery.Email
	}

	c := collector.New(coll)
	if err := c.LoadExisting(tsvPath); err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	before := len(c.Citations())

	err := c.DiscoverAll(context.Background(), collector.Options{
		Sources:     sources,
		Incremental: discoverIncremental,
		Email:       email,
	})
	if err != nil {
		exitWithError(ExitError, "discovery run: %v", err)
	}

	records := c.Citations()
	if err := c.Save(collectionPath, tsvPath); err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	newCount := len(records) - before
	if humanOutput {
		fmt.Printf("Discovered %d new citations (%d total)\n", newCount, len(records))
	} else {
		outputJSON(DiscoverResult{
			Status:  "discovered",
			Total:   len(records),
			New:     newCount,
			Sources: sources,
		})
	}

	return nil
}
