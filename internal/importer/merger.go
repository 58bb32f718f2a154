package importer

import (
	"fmt"

	"github.com/matsen/bibmerge/internal/autofield"
	"github.com/matsen/bibmerge/internal/config"
	"github.com/matsen/bibmerge/internal/entry"
	"github.com/matsen/bibmerge/internal/metadata"
)

// Merge folds per-source outcomes into one fresh result.
//
// Entries from every Success are cloned into the aggregate in input order,
// with no deduplication. Metadata is merged only for formats that are
// metadata-bearing. Absent outcomes are skipped. Owner and creation-date
// fields are applied once, after all sources are folded in.
//
// Merge never fails: anything that goes wrong with one source is recorded
// in the result's Warnings and the remaining sources are still merged.
// Inputs are not modified.
func Merge(outcomes []Outcome, prefs config.ImportPreferences) *ParserResult {
	aggregate := NewParserResult("")
	for _, o := range outcomes {
		mergeOutcome(aggregate, o, prefs)
	}

	autofield.ApplyAutomaticFields(aggregate.Database.Entries(), prefs.Owner, prefs.Timestamp)
	return aggregate
}

// mergeOutcome folds one outcome into the aggregate.
func mergeOutcome(aggregate *ParserResult, o Outcome, prefs config.ImportPreferences) {
	if p, isPtr := o.(*Success); isPtr && p == nil {
		aggregate.Warnings = append(aggregate.Warnings, Warning{
			Source:  UnknownSource,
			Message: "nil success outcome; skipped",
		})
		return
	}
	success, ok := Normalize(o).(Success)
	if !ok {
		// Absent, or a nil outcome: contributes nothing.
		return
	}

	result := success.Result
	if result == nil || result.Database == nil {
		source := UnknownSource
		if result != nil {
			source = result.Label()
		}
		aggregate.Warnings = append(aggregate.Warnings, Warning{
			Source:  source,
			Message: fmt.Sprintf("%s result has no database; skipped", formatName(success.Format)),
		})
		return
	}

	aggregate.Warnings = append(aggregate.Warnings, result.Warnings...)

	inserted := make([]*entry.Entry, 0, result.Database.Len())
	for _, e := range result.Database.Entries() {
		if e == nil {
			continue
		}
		c := e.Clone()
		aggregate.Database.InsertEntry(c)
		inserted = append(inserted, c)
	}

	if !success.Format.MetadataBearing {
		return
	}
	label := result.Label()
	for _, msg := range mergeMetaData(aggregate.MetaData, result.MetaData, label, inserted, prefs.KeywordDelimiter) {
		aggregate.Warnings = append(aggregate.Warnings, Warning{Source: label, Message: msg})
	}
}

// mergeMetaData runs the metadata merge, turning a panic on malformed
// metadata into a warning so entries already merged are kept.
func mergeMetaData(target, source *metadata.MetaData, label string, entries []*entry.Entry, delimiter string) (warnings []string) {
	defer func() {
		if r := recover(); r != nil {
			warnings = append(warnings, fmt.Sprintf("metadata merge aborted: %v", r))
		}
	}()
	return metadata.Merge(target, source, label, entries, metadata.MergeOptions{KeywordDelimiter: delimiter})
}

func formatName(f Format) string {
	if f.Name == "" {
		return "unnamed format"
	}
	return f.Name
}
