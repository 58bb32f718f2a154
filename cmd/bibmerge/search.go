package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/bibmerge/internal/config"
	"github.com/matsen/bibmerge/internal/entry"
	"github.com/matsen/bibmerge/internal/storage"
	"github.com/spf13/cobra"
)

// DefaultIndexPath is the search index used when --db is not given.
const DefaultIndexPath = "bibmerge.db"

var (
	searchDB      string
	searchLimit   int
	searchAuthors []string
	searchYear    string
	searchTitle   string
	searchType    string
	searchDOI     string
	searchKey     string
)

func init() {
	searchCmd.Flags().StringVar(&searchDB, "db", DefaultIndexPath, "Search index built by 'merge --db'")
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return")
	searchCmd.Flags().StringArrayVarP(&searchAuthors, "author", "a", nil, "Search by author name (can be repeated, uses AND logic)")
	searchCmd.Flags().StringVar(&searchYear, "year", "", "Filter by year: exact (2024), range (2020:2024), or open (2020: or :2024)")
	searchCmd.Flags().StringVarP(&searchTitle, "title", "t", "", "Search in title only")
	searchCmd.Flags().StringVar(&searchType, "type", "", "Filter by entry type (article, book, ...)")
	searchCmd.Flags().StringVar(&searchDOI, "doi", "", "Lookup by exact DOI")
	searchCmd.Flags().StringVar(&searchKey, "key", "", "Lookup by exact citation key")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search merged entries by keyword, author, or year",
	Long: `Search a merged index with flexible filtering options.

The positional query searches citation keys, titles, authors and keywords.

Author names are "Last", "First Last" or "Last, First". Last names must
match exactly and first names by prefix, so "Tim Yu" matches "Timothy C Yu"
but "Yu" does not match "Yujia Chan". When multiple authors are specified,
all must match (AND logic).

Year syntax:
  --year 2024         - Exact year
  --year 2020:2024    - Range (inclusive)
  --year 2020:        - 2020 and later
  --year :2020        - 2020 and earlier

Examples:
  bibmerge search "phylogenetics"
  bibmerge search -a "Bloom" --year 2023: --db library.db
  bibmerge search --type book
  bibmerge search --key Smith2026`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	filters := storage.SearchFilters{
		Authors: searchAuthors,
		Title:   searchTitle,
		Type:    searchType,
		DOI:     searchDOI,
	}
	if len(args) > 0 {
		filters.Keyword = args[0]
	}
	if searchYear != "" {
		from, to, err := parseYearRange(searchYear)
		if err != nil {
			exitWithError(ExitError, "invalid year format: %v", err)
		}
		filters.YearFrom = from
		filters.YearTo = to
	}

	if searchKey == "" && !hasFilter(filters) {
		exitWithError(ExitError, "must specify a query, --key, or at least one filter (--author, --year, --type)")
	}

	db := mustOpenIndex(config.ExpandPath(searchDB))
	defer db.Close()

	var entries []*entry.Entry
	var err error
	if searchKey != "" {
		entries, err = db.GetByKey(searchKey)
	} else {
		entries, err = db.SearchWithFilters(filters, searchLimit)
	}
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}

	// Empty result is not an error
	if entries == nil {
		entries = []*entry.Entry{}
	}

	if humanOutput {
		if len(entries) == 0 {
			fmt.Println("No entries found")
		} else {
			fmt.Printf("Found %d entries:\n\n", len(entries))
			for i, e := range entries {
				printEntrySummary(i+1, e)
			}
		}
	} else {
		outputJSON(entries)
	}

	return nil
}

func hasFilter(f storage.SearchFilters) bool {
	return strings.TrimSpace(f.Keyword) != "" || len(f.Authors) > 0 || f.Title != "" ||
		f.YearFrom > 0 || f.YearTo > 0 || f.Type != "" || f.DOI != ""
}

// parseYearRange parses a year specification into from/to values.
// Supported formats: "2024", "2020:2024", "2020:", ":2024"
func parseYearRange(spec string) (from, to int, err error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0, nil
	}

	// Check for range syntax
	if strings.Contains(spec, ":") {
		parts := strings.SplitN(spec, ":", 2)

		if parts[0] != "" {
			from, err = strconv.Atoi(parts[0])
			if err != nil {
				return 0, 0, fmt.Errorf("invalid start year %q", parts[0])
			}
		}

		if parts[1] != "" {
			to, err = strconv.Atoi(parts[1])
			if err != nil {
				return 0, 0, fmt.Errorf("invalid end year %q", parts[1])
			}
		}

		return from, to, nil
	}

	// Single year - exact match
	year, err := strconv.Atoi(spec)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", spec)
	}

	return year, year, nil
}
