package entry

import "github.com/google/uuid"

// Database is an ordered collection of entries.
// Insertion order is preserved and duplicates are allowed.
type Database struct {
	entries []*Entry
	byID    map[string]*Entry
}

// NewDatabase creates an empty database.
func NewDatabase() *Database {
	return &Database{byID: make(map[string]*Entry)}
}

// InsertEntry appends an entry, assigning a fresh internal ID when it has none
// or when its ID is already taken in this database.
func (d *Database) InsertEntry(e *Entry) {
	if e == nil {
		return
	}
	if d.byID == nil {
		d.byID = make(map[string]*Entry)
	}
	if _, taken := d.byID[e.ID]; e.ID == "" || taken {
		e.ID = uuid.New().String()
	}
	d.entries = append(d.entries, e)
	d.byID[e.ID] = e
}

// InsertEntries appends entries in order.
func (d *Database) InsertEntries(entries []*Entry) {
	for _, e := range entries {
		d.InsertEntry(e)
	}
}

// Entries returns the entries in insertion order.
// The slice is a copy; the entries are shared.
func (d *Database) Entries() []*Entry {
	out := make([]*Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Len returns the number of entries.
func (d *Database) Len() int {
	return len(d.entries)
}

// EntryByID returns the entry with the given internal ID.
func (d *Database) EntryByID(id string) (*Entry, bool) {
	e, ok := d.byID[id]
	return e, ok
}

// EntriesByKey returns all entries with the given citation key, in order.
func (d *Database) EntriesByKey(key string) []*Entry {
	var out []*Entry
	for _, e := range d.entries {
		if e.Key == key {
			out = append(out, e)
		}
	}
	return out
}
