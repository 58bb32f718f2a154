package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/matsen/bibmerge/internal/entry"
	"github.com/matsen/bibmerge/internal/importer"
)

// BibTeXIndex indexes existing BibTeX entries for deduplication.
type BibTeXIndex struct {
	// Keys maps citation keys to true for existence check
	Keys map[string]bool
	// DOIs maps normalized DOI values to citation keys
	DOIs map[string]string
}

// NewBibTeXIndex creates an empty BibTeX index.
func NewBibTeXIndex() *BibTeXIndex {
	return &BibTeXIndex{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

// Add records an entry's key and DOI.
func (idx *BibTeXIndex) Add(e *entry.Entry) {
	if e.Key != "" {
		idx.Keys[e.Key] = true
	}
	if doi, ok := e.Field(entry.FieldDOI); ok {
		if n := normalizeDOI(doi); n != "" {
			idx.DOIs[n] = e.Key
		}
	}
}

// HasEntry returns true if the entry already exists (by DOI or key).
// DOI is the primary match; citation key is the fallback if no DOI.
func (idx *BibTeXIndex) HasEntry(e *entry.Entry) bool {
	// Primary: match by DOI if available
	if doi, ok := e.Field(entry.FieldDOI); ok {
		if _, exists := idx.DOIs[normalizeDOI(doi)]; exists {
			return true
		}
	}

	// Fallback: match by citation key
	return e.Key != "" && idx.Keys[e.Key]
}

// ParseBibTeXFile builds an index from an existing .bib file.
// Returns an empty index if the file doesn't exist.
func ParseBibTeXFile(path string) (*BibTeXIndex, error) {
	idx := NewBibTeXIndex()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	result, err := importer.ParseBibTeX(data, path)
	if err != nil {
		return nil, err
	}
	for _, e := range result.Database.Entries() {
		idx.Add(e)
	}
	return idx, nil
}

// normalizeDOI normalizes a DOI for comparison.
// Removes common prefixes like "https://doi.org/" and lowercases.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi.org/")
	doi = strings.TrimPrefix(doi, "DOI:")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(doi)
}

// AppendNew appends entries not already present in the .bib file at path,
// creating the file if needed. Entries duplicated within the batch are
// appended once. It returns how many entries were written and skipped.
func AppendNew(path string, entries []*entry.Entry) (added, skipped int, err error) {
	idx, err := ParseBibTeXFile(path)
	if err != nil {
		return 0, 0, err
	}

	var fresh []*entry.Entry
	for _, e := range entries {
		if e == nil {
			continue
		}
		if idx.HasEntry(e) {
			skipped++
			continue
		}
		idx.Add(e)
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return 0, skipped, nil
	}

	if err := AppendToBibFile(path, ToBibTeXList(fresh)); err != nil {
		return 0, skipped, fmt.Errorf("appending to %s: %w", path, err)
	}
	return len(fresh), skipped, nil
}

// AppendToBibFile appends BibTeX content to a file.
func AppendToBibFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	// Ensure we start on a new line
	_, err = file.WriteString("\n" + content)
	return err
}
