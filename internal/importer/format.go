package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnknownFormat is returned when no format matches a name or file extension.
var ErrUnknownFormat = errors.New("unknown import format")

// ParseFunc parses the contents of one source. An error means the whole
// source is unusable; per-entry problems are reported as result warnings.
type ParseFunc func(data []byte, path string) (*ParserResult, error)

// Format describes one importable source format.
type Format struct {
	Name        string
	Description string
	Extensions  []string // Lower-case, with leading dot

	// MetadataBearing formats carry database-level metadata (groups, save
	// order, string constants) worth merging into the aggregate.
	MetadataBearing bool

	Parse ParseFunc
}

// Formats returns the built-in formats.
func Formats() []Format {
	return []Format{
		{
			Name:            "bibtex",
			Description:     "BibTeX database with @String macros and bibmerge metadata",
			Extensions:      []string{".bib", ".bibtex"},
			MetadataBearing: true,
			Parse:           ParseBibTeX,
		},
		{
			Name:        "paperpile",
			Description: "Paperpile JSON export",
			Extensions:  []string{".json"},
			Parse:       ParsePaperpile,
		},
		{
			Name:        "csv",
			Description: "CSV with a header row naming the fields",
			Extensions:  []string{".csv"},
			Parse:       ParseCSV,
		},
		{
			Name:        "pdf",
			Description: "PDF file (DOI and title extracted from the first pages)",
			Extensions:  []string{".pdf"},
			Parse:       ParsePDF,
		},
	}
}

// FormatByName looks up a built-in format by name (case-insensitive).
func FormatByName(name string) (Format, error) {
	for _, f := range Formats() {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
}

// DetectFormat picks a built-in format from the file extension.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range Formats() {
		for _, e := range f.Extensions {
			if e == ext {
				return f, nil
			}
		}
	}
	return Format{}, fmt.Errorf("%w: cannot detect format of %s", ErrUnknownFormat, path)
}
