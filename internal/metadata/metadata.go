// Package metadata holds database-level configuration shared by all entries
// of a bibliography (groups, save order, string constants, content selectors)
// and merges metadata coming from several sources.
package metadata

import (
	"fmt"
	"sort"
	"strings"
)

// Database modes.
const (
	ModeBibTeX   = "bibtex"
	ModeBibLaTeX = "biblatex"
)

// StringConstant is a named @String macro.
type StringConstant struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// SortCriterion orders entries by one field.
type SortCriterion struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// SaveOrder is the entry order used when writing a database.
type SaveOrder struct {
	Criteria []SortCriterion `json:"criteria"`
}

// MetaData is the cross-entry configuration of one database.
type MetaData struct {
	Groups           *GroupTreeNode      `json:"groups,omitempty"`
	SaveOrder        *SaveOrder          `json:"save_order,omitempty"`
	Strings          []StringConstant    `json:"strings,omitempty"`
	ContentSelectors map[string][]string `json:"content_selectors,omitempty"`

	// Single-valued settings; empty means unset.
	Mode          string `json:"mode,omitempty"`
	Encoding      string `json:"encoding,omitempty"`
	FileDirectory string `json:"file_directory,omitempty"`
}

// New creates empty metadata.
func New() *MetaData {
	return &MetaData{ContentSelectors: make(map[string][]string)}
}

// IsEmpty reports whether no metadata is set.
func (m *MetaData) IsEmpty() bool {
	if m == nil {
		return true
	}
	return m.Groups == nil &&
		m.SaveOrder == nil &&
		len(m.Strings) == 0 &&
		len(m.ContentSelectors) == 0 &&
		m.Mode == "" && m.Encoding == "" && m.FileDirectory == ""
}

// StringByName looks up a string constant. Names are case-insensitive.
func (m *MetaData) StringByName(name string) (StringConstant, bool) {
	for _, s := range m.Strings {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return StringConstant{}, false
}

// AddString appends a string constant unless one with the same name exists.
// Returns false if the name was already defined.
func (m *MetaData) AddString(name, content string) bool {
	if _, exists := m.StringByName(name); exists {
		return false
	}
	m.Strings = append(m.Strings, StringConstant{Name: name, Content: content})
	return true
}

// AddSelectorValue adds an allowed value for a field's content selector.
// Duplicate values are ignored.
func (m *MetaData) AddSelectorValue(field, value string) {
	field = strings.ToLower(strings.TrimSpace(field))
	value = strings.TrimSpace(value)
	if field == "" || value == "" {
		return
	}
	if m.ContentSelectors == nil {
		m.ContentSelectors = make(map[string][]string)
	}
	for _, v := range m.ContentSelectors[field] {
		if v == value {
			return
		}
	}
	m.ContentSelectors[field] = append(m.ContentSelectors[field], value)
}

// SelectorFields returns the fields with content selectors in sorted order.
func (m *MetaData) SelectorFields() []string {
	fields := make([]string, 0, len(m.ContentSelectors))
	for f := range m.ContentSelectors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ParseSaveOrder parses "field;-field" notation, where a leading '-' means descending.
func ParseSaveOrder(s string) (*SaveOrder, error) {
	var order SaveOrder
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c := SortCriterion{Field: part}
		if strings.HasPrefix(part, "-") {
			c = SortCriterion{Field: strings.TrimSpace(part[1:]), Descending: true}
		}
		if c.Field == "" {
			return nil, fmt.Errorf("empty field in save order %q", s)
		}
		c.Field = strings.ToLower(c.Field)
		order.Criteria = append(order.Criteria, c)
	}
	if len(order.Criteria) == 0 {
		return nil, fmt.Errorf("save order %q has no fields", s)
	}
	return &order, nil
}

// String formats the save order in the notation accepted by ParseSaveOrder.
func (o *SaveOrder) String() string {
	parts := make([]string, len(o.Criteria))
	for i, c := range o.Criteria {
		if c.Descending {
			parts[i] = "-" + c.Field
		} else {
			parts[i] = c.Field
		}
	}
	return strings.Join(parts, ";")
}

// Equal reports whether two save orders have the same criteria.
func (o *SaveOrder) Equal(other *SaveOrder) bool {
	if o == nil || other == nil {
		return o == other
	}
	if len(o.Criteria) != len(other.Criteria) {
		return false
	}
	for i := range o.Criteria {
		if o.Criteria[i] != other.Criteria[i] {
			return false
		}
	}
	return true
}
