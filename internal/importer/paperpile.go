package importer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/bibmerge/internal/entry"
)

// FlexibleString can unmarshal from either string or number JSON values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	// Handle null
	if string(data) == "null" {
		*f = ""
		return nil
	}

	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	// Try number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// PaperpileEntry represents a single entry from a Paperpile JSON export.
type PaperpileEntry struct {
	ID        string `json:"_id"`
	Citekey   string `json:"citekey"`
	Pubtype   string `json:"pubtype"`
	DOI       string `json:"doi"`
	Title     string `json:"title"`
	Abstract  string `json:"abstract"`
	Journal   string `json:"journal"`
	Published struct {
		Year  FlexibleString `json:"year"`
		Month FlexibleString `json:"month"`
		Day   FlexibleString `json:"day"`
	} `json:"published"`
	Author []struct {
		First string `json:"first"`
		Last  string `json:"last"`
		ORCID string `json:"orcid"`
	} `json:"author"`
	Keywords    []string `json:"keywords"`
	Attachments []struct {
		ID         string `json:"_id"`
		ArticlePDF int    `json:"article_pdf"` // 1 = main PDF, 0 = supplement
		Filename   string `json:"filename"`
	} `json:"attachments"`
}

// ParsePaperpile parses a Paperpile JSON export. Entries missing required
// fields are skipped with a warning; invalid JSON fails the whole source.
func ParsePaperpile(data []byte, path string) (*ParserResult, error) {
	var records []PaperpileEntry
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing Paperpile JSON: %w", err)
	}

	result := NewParserResult(path)
	for i, rec := range records {
		e, err := paperpileEntryToEntry(rec)
		if err != nil {
			result.warnf("entry %d (%s): %v", i+1, rec.Citekey, err)
			continue
		}
		result.Database.InsertEntry(e)
	}

	return result, nil
}

// paperpileEntryToEntry converts a Paperpile record to an Entry.
func paperpileEntryToEntry(rec PaperpileEntry) (*entry.Entry, error) {
	// Validate required fields
	if rec.Title == "" {
		return nil, fmt.Errorf("missing required field 'title'")
	}
	if len(rec.Author) == 0 {
		return nil, fmt.Errorf("missing required field 'author'")
	}
	if rec.Published.Year.String() == "" {
		return nil, fmt.Errorf("missing required field 'published.year'")
	}

	year, err := strconv.Atoi(rec.Published.Year.String())
	if err != nil {
		return nil, fmt.Errorf("invalid year: %s", rec.Published.Year.String())
	}

	// Use citekey as key, falling back to Paperpile ID if no citekey
	key := rec.Citekey
	if key == "" {
		key = rec.ID
	}

	entryType := rec.Pubtype
	if entryType == "" {
		entryType = "article"
	}

	e := entry.New(entryType, key)
	e.SetField(entry.FieldTitle, rec.Title)
	e.SetField(entry.FieldAuthor, formatPaperpileAuthors(rec))
	e.SetField(entry.FieldYear, strconv.Itoa(year))
	e.SetField(entry.FieldDOI, rec.DOI)
	e.SetField("abstract", rec.Abstract)
	e.SetField("journal", rec.Journal)

	if month, err := strconv.Atoi(rec.Published.Month.String()); err == nil && month >= 1 && month <= 12 {
		e.SetField("month", strconv.Itoa(month))
	}
	if day, err := strconv.Atoi(rec.Published.Day.String()); err == nil && day >= 1 && day <= 31 {
		e.SetField("day", strconv.Itoa(day))
	}
	if len(rec.Keywords) > 0 {
		e.SetField(entry.FieldKeywords, strings.Join(rec.Keywords, ", "))
	}

	// Main PDF first, supplements after
	var files []string
	for _, att := range rec.Attachments {
		if att.ArticlePDF == 1 {
			files = append([]string{att.Filename}, files...)
		} else if att.Filename != "" {
			files = append(files, att.Filename)
		}
	}
	if len(files) > 0 {
		e.SetField(entry.FieldFile, strings.Join(files, ";"))
	}

	return e, nil
}

// formatPaperpileAuthors formats authors in BibTeX style: "Last, First and Last, First"
func formatPaperpileAuthors(rec PaperpileEntry) string {
	names := make([]string, 0, len(rec.Author))
	for _, a := range rec.Author {
		if a.First != "" {
			names = append(names, a.Last+", "+a.First)
		} else {
			names = append(names, a.Last)
		}
	}
	return strings.Join(names, " and ")
}
