// Package main provides the citecollect CLI entry point.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/collection"
	"github.com/dandi/citecollect/internal/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// collectionPath is the collection YAML file commands operate on
var collectionPath string

func main() {
	// Credentials (CROSSREF_EMAIL, OPENAI_API_KEY, ZENODO_TOKEN) may live
	// in a .env next to the collection; absence is fine.
	godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "citecollect",
	Short: "Track scholarly citations of datasets and software",
	Long: `citecollect discovers, deduplicates, and curates scholarly citations
of tracked items (datasets, software) across their versions.

Core features:
  - Citation discovery from CrossRef, OpenCitations, DataCite, and OpenAlex
  - Ref expansion (Zenodo concept DOIs, GitHub repositories)
  - LLM classification of citation relationships with multi-model comparison
  - Curation-preserving merge into a git-versionable TSV

Data is stored in a flat TSV with ephemeral SQLite for queries.
All commands output JSON by default for scripted use.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVarP(&collectionPath, "collection", "c", "collection.yaml", "Path to the collection YAML file")
	rootCmd.Version = Version
}

// mustLoadCollection loads and validates the collection YAML, exits on error.
func mustLoadCollection() *collection.Collection {
	coll, err := collection.Load(collectionPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading collection: %v", err)
	}
	return coll
}

// citationsPath resolves the collection's citations TSV path relative to
// the collection file's directory.
func citationsPath(coll *collection.Collection) string {
	name := coll.CitationsFile
	if name == "" {
		name = "citations.tsv"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(collectionPath), name)
}

// cachePath returns the SQLite cache path for a citations TSV.
func cachePath(tsvPath string) string {
	return tsvPath + ".db"
}

// mustLoadCitations loads the citations TSV, exits on error. A missing
// file yields an empty set.
func mustLoadCitations(tsvPath string) []citation.Record {
	records, err := storage.LoadCitations(tsvPath)
	if err != nil {
		exitWithError(ExitDataError, "loading citations: %v", err)
	}
	return records
}

// mustAcquireLock takes the single-writer lock for a data file, exits if
// another run holds it.
func mustAcquireLock(dataPath string) *storage.Lock {
	lock, err := storage.AcquireLock(dataPath + ".lock")
	if err != nil {
		if errors.Is(err, storage.ErrLocked) {
			exitWithError(ExitLocked, "another citecollect run holds the lock on %s", dataPath)
		}
		exitWithError(ExitError, "acquiring lock: %v", err)
	}
	return lock
}

// mustOpenCache opens the SQLite query cache, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenCache(tsvPath string) *storage.DB {
	db, err := storage.OpenDB(cachePath(tsvPath))
	if err != nil {
		exitWithError(ExitError, "opening cache database: %v", err)
	}
	return db
}
