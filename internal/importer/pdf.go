package importer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/matsen/bibmerge/internal/entry"
	"github.com/matsen/bibmerge/internal/pdf"
)

// ParsePDF creates one entry for a PDF file, using the DOI and title found
// on its first pages. The citation key is the file name without extension.
func ParsePDF(data []byte, path string) (*ParserResult, error) {
	info, err := pdf.Extract(data)
	if err != nil {
		return nil, fmt.Errorf("parsing PDF: %w", err)
	}

	result := NewParserResult(path)
	key := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if path == "" {
		key = ""
	}

	e := entry.New("misc", key)
	e.SetField(entry.FieldDOI, info.DOI)
	e.SetField(entry.FieldTitle, info.Title)
	if path != "" {
		e.SetField(entry.FieldFile, path)
	}

	if info.DOI == "" && info.Title == "" {
		result.warnf("no DOI or title found in %d pages", info.Pages)
	}
	result.Database.InsertEntry(e)
	return result, nil
}
