package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/bibmerge/internal/author"
	"github.com/matsen/bibmerge/internal/entry"
	"github.com/matsen/bibmerge/internal/importer"
)

// Constants for output formatting.
const (
	DefaultSearchLimit = 50 // Default limit for search results

	SearchTitleMaxLen = 70 // Used in search result summaries
	AuthorMaxLen      = 60 // Used for author lines in summaries
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// printWarnings writes warnings to stderr, one per line.
func printWarnings(warnings []importer.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// printEntrySummary prints one entry as a numbered summary block.
func printEntrySummary(num int, e *entry.Entry) {
	fmt.Printf("[%d] %s (%s)\n", num, e.Key, e.Type)
	if title, ok := e.Field(entry.FieldTitle); ok {
		fmt.Printf("    %s\n", truncateString(title, SearchTitleMaxLen))
	}
	if author, ok := e.Field(entry.FieldAuthor); ok {
		fmt.Printf("    %s\n", truncateString(formatAuthorsShort(author, 3), AuthorMaxLen))
	}
	if year, ok := e.Field(entry.FieldYear); ok {
		fmt.Printf("    (%s)\n", year)
	}
	fmt.Println()
}

// formatAuthorsShort shortens a BibTeX author list to its first max last
// names, adding "et al." when more authors follow.
func formatAuthorsShort(authors string, max int) string {
	names := author.ParseNames(authors)
	var lasts []string
	for i, n := range names {
		if i == max {
			break
		}
		lasts = append(lasts, n.Last)
	}

	result := strings.Join(lasts, ", ")
	if len(names) > max {
		result += " et al."
	}
	return result
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
