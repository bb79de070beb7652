package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dandi/citecollect/internal/classify"
	"github.com/dandi/citecollect/internal/llm"
	"github.com/dandi/citecollect/internal/pdftext"
	"github.com/dandi/citecollect/internal/storage"
	"github.com/spf13/cobra"
)

var (
	classifyBackend   string
	classifyModel     string
	classifyOllamaURL string
	classifyFlavor    string
	classifyPapersDir string
	classifyThreshold float64
	classifyPDF       string
	classifyDOI       string
)

func init() {
	classifyCmd.Flags().StringVar(&classifyBackend, "backend", "ollama", "LLM backend (ollama or openai)")
	classifyCmd.Flags().StringVar(&classifyModel, "model", "", "Model name (default: backend default)")
	classifyCmd.Flags().StringVar(&classifyOllamaURL, "ollama-url", "", "Ollama server URL (default: http://localhost:11434)")
	classifyCmd.Flags().StringVar(&classifyFlavor, "flavor", "draft", "Item flavor to record verdicts under")
	classifyCmd.Flags().StringVar(&classifyPapersDir, "papers-dir", "papers", "Root directory for per-paper classification files")
	classifyCmd.Flags().Float64Var(&classifyThreshold, "threshold", classify.DefaultConfidenceThreshold, "Confidence below which a verdict is flagged for review")
	classifyCmd.Flags().StringVar(&classifyPDF, "pdf", "", "Extract contexts from this PDF instead of reading extracted files")
	classifyCmd.Flags().StringVar(&classifyDOI, "doi", "", "Paper DOI (required with --pdf)")
	rootCmd.AddCommand(classifyCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify [extracted-file...]",
	Short: "Classify citation relationships with an LLM",
	Long: `Classify how papers relate to the datasets they cite.

Each argument is an extracted-contexts JSON file produced by PDF scanning.
With --pdf, the PDF is scanned for mentions of every tracked item first and
the extracted contexts are written next to the classifications.

Verdicts are stored per paper under --papers-dir; re-running with the same
model replaces its prior verdict while other models' verdicts are kept for
comparison. Low-confidence verdicts are flagged for human review.`,
	RunE: runClassify,
}

// ClassifyVerdict is one classification in the command response.
type ClassifyVerdict struct {
	PaperDOI     string  `json:"paper_doi"`
	DatasetID    string  `json:"dataset_id"`
	Relationship string  `json:"relationship_type"`
	Confidence   float64 `json:"confidence"`
	NeedsReview  bool    `json:"needs_review"`
}

// ClassifyResult is the response for the classify command.
type ClassifyResult struct {
	Status   string            `json:"status"`
	Model    string            `json:"model"`
	Verdicts []ClassifyVerdict `json:"verdicts"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	backend := mustBuildBackend()
	classifier := classify.New(backend, classify.WithConfidenceThreshold(classifyThreshold))

	papersDir := classifyPapersDir
	if !filepath.IsAbs(papersDir) {
		papersDir = filepath.Join(filepath.Dir(collectionPath), papersDir)
	}
	store := storage.NewClassificationStore(papersDir)

	files := args
	if classifyPDF != "" {
		if classifyDOI == "" {
			exitWithError(ExitError, "--doi is required with --pdf")
		}
		files = append(files, mustExtractPDF(store, classifyPDF, classifyDOI))
	}
	if len(files) == 0 {
		exitWithError(ExitError, "no extracted files given (pass files or --pdf)")
	}

	ctx := context.Background()
	result := ClassifyResult{Status: "classified", Model: backend.Model()}

	for _, path := range files {
		paper, err := classify.LoadExtracted(path)
		if err != nil {
			exitWithError(ExitDataError, "loading %s: %v", path, err)
		}

		verdicts, err := classifier.ClassifyExtractedFile(ctx, path)
		if err != nil {
			exitWithError(ExitError, "classifying %s: %v", path, err)
		}

		for _, v := range verdicts {
			err := store.Add(paper.PaperDOI, storage.StoredClassification{
				ItemID:           v.DatasetID,
				ItemFlavor:       classifyFlavor,
				Model:            backend.Model(),
				Backend:          backend.Name(),
				RelationshipType: v.Result.RelationshipType,
				Confidence:       v.Result.Confidence,
				Reasoning:        v.Result.Reasoning,
				Mode:             storage.ModeShortContext,
			})
			if err != nil {
				exitWithError(ExitError, "storing verdict for %s: %v", paper.PaperDOI, err)
			}

			result.Verdicts = append(result.Verdicts, ClassifyVerdict{
				PaperDOI:     paper.PaperDOI,
				DatasetID:    v.DatasetID,
				Relationship: v.Result.RelationshipType,
				Confidence:   v.Result.Confidence,
				NeedsReview:  classifier.ShouldReview(v.Result),
			})
		}
	}

	if humanOutput {
		for _, v := range result.Verdicts {
			flag := ""
			if v.NeedsReview {
				flag = " [review]"
			}
			fmt.Printf("%s -> %s: %s (%.2f)%s\n", v.PaperDOI, v.DatasetID, v.Relationship, v.Confidence, flag)
		}
	} else {
		outputJSON(result)
	}

	return nil
}

// mustBuildBackend constructs the requested LLM backend, exits on error.
func mustBuildBackend() llm.Backend {
	switch classifyBackend {
	case "ollama":
		var opts []llm.OllamaOption
		if classifyModel != "" {
			opts = append(opts, llm.WithOllamaModel(classifyModel))
		}
		if classifyOllamaURL != "" {
			opts = append(opts, llm.WithOllamaBaseURL(classifyOllamaURL))
		}
		return llm.NewOllama(opts...)
	case "openai":
		var opts []llm.OpenAIOption
		if classifyModel != "" {
			opts = append(opts, llm.WithOpenAIModel(classifyModel))
		}
		backend, err := llm.NewOpenAI(opts...)
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		return backend
	default:
		exitWithError(ExitError, "unknown backend %q (want ollama or openai)", classifyBackend)
		return nil
	}
}

// mustExtractPDF scans a PDF for mentions of every tracked item and writes
// the extracted contexts into the paper's directory. Returns the path of
// the written file.
func mustExtractPDF(store *storage.ClassificationStore, pdfPath, doi string) string {
	coll := mustLoadCollection()
	var datasets []string
	for _, item := range coll.Items {
		datasets = append(datasets, item.ItemID)
	}

	paper, err := pdftext.ExtractFromPDF(pdfPath, datasets)
	if err != nil {
		exitWithError(ExitDataError, "extracting from %s: %v", pdfPath, err)
	}
	paper.PaperDOI = doi

	if err := os.MkdirAll(store.PaperDir(doi), 0755); err != nil {
		exitWithError(ExitError, "creating paper directory: %v", err)
	}
	out := filepath.Join(store.PaperDir(doi), "extracted_citations.json")
	if err := classify.SaveExtracted(out, paper); err != nil {
		exitWithError(ExitError, "writing extracted contexts: %v", err)
	}
	return out
}
