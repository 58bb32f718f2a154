// Package entry defines the core domain types for bibliographic entries.
package entry

import (
	"sort"
	"strings"
)

// System-managed field names.
const (
	FieldOwner        = "owner"        // User who imported the entry
	FieldCreationDate = "creationdate" // Default creation timestamp field
	FieldGroups       = "groups"       // Explicit group membership, keyword-delimited
)

// Commonly used field names.
const (
	FieldAuthor   = "author"
	FieldTitle    = "title"
	FieldYear     = "year"
	FieldDOI      = "doi"
	FieldKeywords = "keywords"
	FieldFile     = "file"
)

// Entry represents one bibliographic record.
type Entry struct {
	// Identity
	ID  string `json:"id"`  // Internal identifier, assigned by the owning Database
	Key string `json:"key"` // Citation key (may be empty, need not be unique)

	Type   string            `json:"type"`   // article, book, inproceedings, ...
	Fields map[string]string `json:"fields"` // Lower-case field name -> value
}

// New creates an entry with the given type and citation key.
func New(entryType, key string) *Entry {
	return &Entry{
		Type:   strings.ToLower(entryType),
		Key:    key,
		Fields: make(map[string]string),
	}
}

// Field returns the value of a field and whether it is set.
// An empty value counts as unset.
func (e *Entry) Field(name string) (string, bool) {
	v, ok := e.Fields[normalize(name)]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// HasField reports whether the field is set to a non-empty value.
func (e *Entry) HasField(name string) bool {
	_, ok := e.Field(name)
	return ok
}

// SetField sets a field, replacing any existing value.
func (e *Entry) SetField(name, value string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[normalize(name)] = value
}

// ClearField removes a field.
func (e *Entry) ClearField(name string) {
	delete(e.Fields, normalize(name))
}

// FieldNames returns the names of all set fields in sorted order.
func (e *Entry) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name, v := range e.Fields {
		if v != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the entry with the internal ID cleared,
// so the copy can be inserted into another database.
func (e *Entry) Clone() *Entry {
	c := &Entry{
		Key:    e.Key,
		Type:   e.Type,
		Fields: make(map[string]string, len(e.Fields)),
	}
	for k, v := range e.Fields {
		c.Fields[k] = v
	}
	return c
}

// AddKeyword adds value to a delimiter-separated field unless it is already present.
// Returns true if the field changed.
func (e *Entry) AddKeyword(field, value, delimiter string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	existing, _ := e.Field(field)
	for _, kw := range SplitKeywords(existing, delimiter) {
		if kw == value {
			return false
		}
	}
	if existing == "" {
		e.SetField(field, value)
	} else {
		e.SetField(field, existing+delimiter+" "+value)
	}
	return true
}

// SplitKeywords splits a delimiter-separated value into trimmed, non-empty parts.
func SplitKeywords(value, delimiter string) []string {
	if value == "" {
		return nil
	}
	if delimiter == "" {
		delimiter = ","
	}
	var out []string
	for _, part := range strings.Split(value, delimiter) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
