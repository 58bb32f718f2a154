// Package main provides the bibmerge CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/matsen/bibmerge/internal/config"
	"github.com/matsen/bibmerge/internal/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibmerge",
	Short: "Merge bibliographic sources into one database",
	Long: `bibmerge reads bibliographic sources in several formats and merges them
into a single database.

Supported inputs include BibTeX, Paperpile JSON, CSV and PDF files. Entries
from every readable source are combined in order; metadata (groups, string
constants, save order) is merged from metadata-bearing formats only. Merged
entries are stamped with owner and creation date according to your
preferences.

All commands output JSON by default; use --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env may override BIBMERGE_* preferences; a missing file is fine.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// mustLoadGlobalConfig loads the global configuration, exits on error.
func mustLoadGlobalConfig() *config.GlobalConfig {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenIndex opens an existing search index, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenIndex(path string) *storage.DB {
	db, err := storage.OpenExistingDB(path)
	if err != nil {
		if errors.Is(err, storage.ErrIndexNotFound) {
			exitWithError(ExitConfigError, "Search index not found: %s\n\nRun 'bibmerge merge --db %s <files>...' to create it.", path, path)
		}
		exitWithError(ExitError, "opening index: %v", err)
	}
	return db
}
