// Package export writes merged entries and their metadata as BibTeX.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/matsen/bibmerge/internal/entry"
	"github.com/matsen/bibmerge/internal/metadata"
)

// leadingFields are written first, in this order; the rest follow sorted.
var leadingFields = []string{"author", "editor", "title", "journal", "booktitle", "year", "month"}

// ToBibTeX converts an entry to BibTeX format. Every set field is written
// as a braced value.
func ToBibTeX(e *entry.Entry) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", determineEntryType(e), e.Key))
	for _, name := range orderedFields(e) {
		value, _ := e.Field(name)
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", name, balanceBraces(value)))
	}
	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts multiple entries to BibTeX format.
func ToBibTeXList(entries []*entry.Entry) string {
	var out []string
	for _, e := range entries {
		if e == nil {
			continue
		}
		out = append(out, ToBibTeX(e))
	}
	return strings.Join(out, "\n")
}

// WriteDatabase writes string constants, then entries, then the remaining
// metadata as bibmerge-meta comments. md may be nil.
func WriteDatabase(w io.Writer, db *entry.Database, md *metadata.MetaData) error {
	bw := bufio.NewWriter(w)

	if md != nil && len(md.Strings) > 0 {
		for _, s := range md.Strings {
			fmt.Fprintf(bw, "@String{%s = {%s}}\n", s.Name, balanceBraces(s.Content))
		}
		bw.WriteString("\n")
	}

	if db != nil {
		if list := ToBibTeXList(db.Entries()); list != "" {
			bw.WriteString(list)
			bw.WriteString("\n")
		}
	}

	if md != nil {
		for _, item := range md.Items() {
			fmt.Fprintf(bw, "@Comment{%s %s: %s}\n", metadata.CommentPrefix, item.Key, balanceBraces(item.Value))
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing BibTeX: %w", err)
	}
	return nil
}

func orderedFields(e *entry.Entry) []string {
	names := e.FieldNames()
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}

	ordered := make([]string, 0, len(names))
	for _, n := range leadingFields {
		if set[n] {
			ordered = append(ordered, n)
			delete(set, n)
		}
	}
	for _, n := range names {
		if set[n] {
			ordered = append(ordered, n)
		}
	}
	return ordered
}

// determineEntryType returns the entry's type, or guesses one from the
// venue when the type is missing.
func determineEntryType(e *entry.Entry) string {
	if e.Type != "" {
		return e.Type
	}
	if _, ok := e.Field("booktitle"); ok {
		return "inproceedings"
	}

	venue, _ := e.Field("journal")
	venue = strings.ToLower(venue)

	// Conference proceedings
	if strings.Contains(venue, "proceedings") ||
		strings.Contains(venue, "conference") ||
		strings.Contains(venue, "workshop") ||
		strings.Contains(venue, "symposium") {
		return "inproceedings"
	}
	if venue != "" {
		return "article"
	}
	return "misc"
}

// balanceBraces drops unmatched closing braces and closes unmatched opening
// ones, so the value can be wrapped in braces and read back.
func balanceBraces(s string) string {
	if !strings.ContainsAny(s, "{}") {
		return s
	}

	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
		}
		b.WriteRune(r)
	}
	b.WriteString(strings.Repeat("}", depth))
	return b.String()
}
