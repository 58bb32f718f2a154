package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/matsen/bibmerge/internal/config"
	"github.com/matsen/bibmerge/internal/export"
	"github.com/matsen/bibmerge/internal/importer"
	"github.com/matsen/bibmerge/internal/storage"
	"github.com/spf13/cobra"
)

var (
	mergeFormat  string
	mergeWorkers int
	mergeOut     string
	mergeAppend  bool
	mergeJSONL   string
	mergeDB      string
	mergeDryRun  bool
)

func init() {
	mergeCmd.Flags().StringVar(&mergeFormat, "format", "", "Read every file as this format instead of detecting it")
	mergeCmd.Flags().IntVar(&mergeWorkers, "workers", 0, "Files to read in parallel (default from config, 4)")
	mergeCmd.Flags().StringVarP(&mergeOut, "out", "o", "", "Write the merged database as BibTeX to this file")
	mergeCmd.Flags().BoolVar(&mergeAppend, "append", false, "Append only entries not already in --out (matched by DOI or key)")
	mergeCmd.Flags().StringVar(&mergeJSONL, "jsonl", "", "Write merged entries as JSONL to this file")
	mergeCmd.Flags().StringVar(&mergeDB, "db", "", "Rebuild a SQLite search index at this path")
	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "Merge and report without writing anything")
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge <file>...",
	Short: "Merge bibliographic files into one database",
	Long: `Merge bibliographic files into one database.

Each file's format is detected from its extension (see 'bibmerge formats').
Files that cannot be read or parsed are skipped and reported. Entries from
all other files are combined in argument order without deduplication.
Groups, string constants and other metadata are merged from BibTeX files
only; each file's groups are placed under an "Imported <file>" group.

Usage:
  bibmerge merge refs.bib paperpile.json --out merged.bib
  bibmerge merge *.bib --out library.bib --append
  bibmerge merge export.json notes.csv --jsonl entries.jsonl --db index.db
  bibmerge merge --format csv table.txt --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

// SourceSummary reports what happened to one input file.
type SourceSummary struct {
	Path    string `json:"path"`
	Format  string `json:"format,omitempty"`
	Status  string `json:"status"` // merged, skipped
	Entries int    `json:"entries"`
	Error   string `json:"error,omitempty"`
}

// MergeResult is the response for the merge command.
type MergeResult struct {
	Entries  int                `json:"entries"`
	Merged   int                `json:"merged"`
	Skipped  int                `json:"skipped"`
	Sources  []SourceSummary    `json:"sources"`
	Warnings []importer.Warning `json:"warnings"`
	DryRun   bool               `json:"dry_run,omitempty"`
	Out      string             `json:"out,omitempty"`
	Appended *int               `json:"appended,omitempty"`
	JSONL    string             `json:"jsonl,omitempty"`
	DB       string             `json:"db,omitempty"`
}

func runMerge(cmd *cobra.Command, args []string) error {
	if mergeFormat != "" {
		if _, err := importer.FormatByName(mergeFormat); err != nil {
			exitWithError(ExitError, "%v", err)
		}
	}
	if mergeAppend && mergeOut == "" {
		exitWithError(ExitError, "--append requires --out")
	}

	mergeOut = config.ExpandPath(mergeOut)
	mergeJSONL = config.ExpandPath(mergeJSONL)
	mergeDB = config.ExpandPath(mergeDB)

	cfg := mustLoadGlobalConfig()
	prefs := cfg.Preferences()

	workers := mergeWorkers
	if workers <= 0 {
		workers = cfg.WorkerCount()
	}

	outcomes := importer.ReadFiles(cmd.Context(), args, importer.ReadOptions{
		Workers: workers,
		Format:  mergeFormat,
	})
	result := importer.Merge(outcomes, prefs)

	sources := summarizeSources(args, outcomes)
	res := MergeResult{
		Entries:  result.Database.Len(),
		Sources:  sources,
		Warnings: result.Warnings,
		DryRun:   mergeDryRun,
	}
	for _, s := range sources {
		if s.Status == "merged" {
			res.Merged++
		} else {
			res.Skipped++
		}
	}
	if res.Warnings == nil {
		res.Warnings = []importer.Warning{}
	}

	if res.Merged == 0 {
		var reasons []string
		for _, s := range sources {
			reasons = append(reasons, s.Error)
		}
		exitWithError(ExitDataError, "no readable sources: %s", strings.Join(reasons, "; "))
	}

	if !mergeDryRun {
		if err := writeOutputs(result, &res); err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
	}

	reportMerge(res)
	return nil
}

// summarizeSources describes each outcome in input order.
func summarizeSources(paths []string, outcomes []importer.Outcome) []SourceSummary {
	sources := make([]SourceSummary, len(outcomes))
	for i, o := range outcomes {
		s := SourceSummary{Path: paths[i], Status: "skipped"}
		switch v := importer.Normalize(o).(type) {
		case importer.Success:
			s.Format = v.Format.Name
			if v.Result == nil || v.Result.Database == nil {
				s.Error = "parsed without a database"
				break
			}
			s.Status = "merged"
			s.Entries = v.Result.Database.Len()
		case importer.Absent:
			if v.Err != nil {
				s.Error = v.Err.Error()
			}
		}
		sources[i] = s
	}
	return sources
}

// writeOutputs writes the merged result to every requested destination.
func writeOutputs(result *importer.ParserResult, res *MergeResult) error {
	entries := result.Database.Entries()

	if mergeOut != "" {
		if mergeAppend {
			added, _, err := export.AppendNew(mergeOut, entries)
			if err != nil {
				return err
			}
			res.Appended = &added
		} else if err := writeBibTeXFile(mergeOut, result); err != nil {
			return err
		}
		res.Out = mergeOut
	}

	if mergeJSONL != "" {
		if err := storage.WriteAll(mergeJSONL, entries); err != nil {
			return fmt.Errorf("writing JSONL: %w", err)
		}
		res.JSONL = mergeJSONL
	}

	if mergeDB != "" {
		db, err := storage.OpenDB(mergeDB)
		if err != nil {
			return err
		}
		defer db.Close()
		if _, err := db.RebuildFromEntries(entries); err != nil {
			return fmt.Errorf("rebuilding index: %w", err)
		}
		res.DB = mergeDB
	}

	return nil
}

func writeBibTeXFile(path string, result *importer.ParserResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.WriteDatabase(f, result.Database, result.MetaData); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func reportMerge(res MergeResult) {
	if !humanOutput {
		outputJSON(res)
		return
	}

	if res.DryRun {
		fmt.Println("Dry run - nothing written")
	}
	fmt.Printf("Merged %d entries from %d of %d sources\n", res.Entries, res.Merged, len(res.Sources))
	for _, s := range res.Sources {
		if s.Status == "merged" {
			fmt.Printf("  %-8s %s (%s, %d entries)\n", s.Status, s.Path, s.Format, s.Entries)
		} else {
			fmt.Printf("  %-8s %s: %s\n", s.Status, s.Path, s.Error)
		}
	}
	if res.Out != "" {
		if res.Appended != nil {
			fmt.Printf("Appended %d new entries to %s\n", *res.Appended, res.Out)
		} else {
			fmt.Printf("Wrote %s\n", res.Out)
		}
	}
	if res.JSONL != "" {
		fmt.Printf("Wrote %s\n", res.JSONL)
	}
	if res.DB != "" {
		fmt.Printf("Indexed %s\n", res.DB)
	}
	printWarnings(res.Warnings)
}
