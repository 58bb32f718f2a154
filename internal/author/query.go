// Package author provides author name parsing and matching for search queries.
package author

import (
	"strings"
)

// Name is one author of an entry.
type Name struct {
	First string
	Last  string
}

// ParseNames splits a BibTeX author or editor field into names.
// Each name is either "Last, First" or "First Last". Braced groups are
// kept whole, so "{van Gogh}, Vincent" has last name "van Gogh".
func ParseNames(field string) []Name {
	var names []Name
	for _, part := range splitOutsideBraces(field, isAndSeparator) {
		var n Name
		if comma := splitOutsideBraces(part, isComma); len(comma) > 1 {
			n = Name{Last: stripBraces(comma[0]), First: stripBraces(strings.Join(comma[1:], ","))}
		} else if words := splitOutsideBraces(part, isSpaceAt); len(words) > 0 {
			n = Name{Last: stripBraces(words[len(words)-1]), First: stripBraces(strings.Join(words[:len(words)-1], " "))}
		}
		if n.Last != "" {
			names = append(names, n)
		}
	}
	return names
}

// splitOutsideBraces splits s wherever sep reports a separator of width
// n at brace depth zero. Empty pieces are dropped.
func splitOutsideBraces(s string, sep func(s string, i int) int) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
			continue
		case '}':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth > 0 {
			continue
		}
		if n := sep(s, i); n > 0 {
			if p := strings.TrimSpace(s[start:i]); p != "" {
				parts = append(parts, p)
			}
			start = i + n
			i += n - 1
		}
	}
	if p := strings.TrimSpace(s[start:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}

func isAndSeparator(s string, i int) int {
	if isSpace(s[i]) && i+5 <= len(s) && strings.EqualFold(s[i+1:i+4], "and") && isSpace(s[i+4]) {
		return 5
	}
	return 0
}

func isComma(s string, i int) int {
	if s[i] == ',' {
		return 1
	}
	return 0
}

func isSpaceAt(s string, i int) int {
	if isSpace(s[i]) {
		return 1
	}
	return 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func stripBraces(s string) string {
	return strings.TrimSpace(strings.NewReplacer("{", "", "}", "").Replace(s))
}

// Query represents a parsed author search query.
type Query struct {
	First string // First name (may be empty for last-name-only queries)
	Last  string // Last name (required)
}

// ParseQuery parses an author search string into a structured Query.
//
// Supported formats:
//   - "Yu"           → last="Yu" (single word = last name only)
//   - "Timothy Yu"   → first="Timothy", last="Yu" (space-separated = First Last)
//   - "Yu, Timothy"  → first="Timothy", last="Yu" (comma = Last, First)
//
// Names are trimmed but case is preserved (matching is case-insensitive).
func ParseQuery(input string) Query {
	input = strings.TrimSpace(input)
	if input == "" {
		return Query{}
	}

	// Check for comma format: "Last, First"
	if idx := strings.Index(input, ","); idx > 0 {
		last := strings.TrimSpace(input[:idx])
		first := strings.Join(strings.Fields(input[idx+1:]), " ")
		return Query{First: first, Last: last}
	}

	// Check for space format: "First Last"
	parts := strings.Fields(input)
	if len(parts) == 1 {
		// Single word = last name only
		return Query{Last: parts[0]}
	}

	// Multiple words: last word is last name, rest is first name
	// e.g., "Timothy C Yu" → first="Timothy C", last="Yu"
	last := parts[len(parts)-1]
	first := strings.Join(parts[:len(parts)-1], " ")
	return Query{First: first, Last: last}
}

// Matches checks if the query matches a given author.
//
// Matching rules:
//   - Last name: case-insensitive exact match (required)
//   - First name: case-insensitive prefix match (if query has first name)
//
// "Tim Yu" matches "Timothy C Yu" but "Yu" does not match "Yujia Chan".
func (q Query) Matches(n Name) bool {
	if !strings.EqualFold(q.Last, n.Last) {
		return false
	}
	if q.First == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(n.First), strings.ToLower(q.First))
}

// MatchesAny checks if the query matches any author in the list.
func (q Query) MatchesAny(names []Name) bool {
	for _, n := range names {
		if q.Matches(n) {
			return true
		}
	}
	return false
}

// AllMatch checks if all queries match at least one author each.
func AllMatch(queries []Query, names []Name) bool {
	for _, q := range queries {
		if !q.MatchesAny(names) {
			return false
		}
	}
	return true
}
