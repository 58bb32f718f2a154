// Package autofield stamps system-managed fields (owner, creation date)
// onto imported entries.
package autofield

import (
	"github.com/matsen/bibmerge/internal/config"
	"github.com/matsen/bibmerge/internal/entry"
)

// ApplyAutomaticFields sets the owner and creation-date fields on every entry
// that does not already have them. Existing values are never overwritten, so
// calling it again on the same entries changes nothing.
//
// The timestamp is computed once, so all entries stamped in one call share it.
func ApplyAutomaticFields(entries []*entry.Entry, owner config.OwnerPreferences, timestamp config.TimestampPreferences) {
	setOwner := owner.UseOwner && owner.DefaultOwner != ""
	if !setOwner && !timestamp.AddCreationDate {
		return
	}

	var stamp, stampField string
	if timestamp.AddCreationDate {
		stamp = timestamp.Timestamp()
		stampField = timestamp.TimestampField()
	}

	for _, e := range entries {
		if e == nil {
			continue
		}
		if setOwner && !e.HasField(entry.FieldOwner) {
			e.SetField(entry.FieldOwner, owner.DefaultOwner)
		}
		if stamp != "" && !e.HasField(stampField) {
			e.SetField(stampField, stamp)
		}
	}
}
