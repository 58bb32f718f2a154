package metadata

import (
	"fmt"

	"github.com/matsen/bibmerge/internal/entry"
)

// ImportedGroupPrefix prefixes the group that receives a merged source's groups.
const ImportedGroupPrefix = "Imported "

// DefaultKeywordDelimiter separates values in keyword-style fields.
const DefaultKeywordDelimiter = ","

// MergeOptions configures Merge.
type MergeOptions struct {
	KeywordDelimiter string // Delimiter for the groups field (default ",")
}

// MergeMetaData merges source into target with default options.
func MergeMetaData(target, source *MetaData, sourceLabel string, sourceEntries []*entry.Entry) []string {
	return Merge(target, source, sourceLabel, sourceEntries, MergeOptions{})
}

// Merge folds source metadata into target. Target always takes precedence:
// string constants, save order and single-valued settings already present
// in target are kept. Source groups are placed under a new explicit group
// named after sourceLabel, and every entry in sourceEntries joins it.
//
// Merge never fails. Conflicts that drop source data are returned as
// warning messages. A nil or empty source is a no-op.
func Merge(target, source *MetaData, sourceLabel string, sourceEntries []*entry.Entry, opts MergeOptions) []string {
	if target == nil || source.IsEmpty() {
		return nil
	}
	if opts.KeywordDelimiter == "" {
		opts.KeywordDelimiter = DefaultKeywordDelimiter
	}

	var warnings []string
	warnings = append(warnings, mergeStrings(target, source)...)
	mergeSelectors(target, source)
	warnings = append(warnings, mergeSettings(target, source)...)
	if source.Groups != nil {
		warnings = append(warnings, mergeGroups(target, source.Groups, sourceLabel, sourceEntries, opts.KeywordDelimiter)...)
	}
	return warnings
}

func mergeStrings(target, source *MetaData) []string {
	var warnings []string
	for _, s := range source.Strings {
		existing, exists := target.StringByName(s.Name)
		if !exists {
			target.Strings = append(target.Strings, s)
			continue
		}
		if existing.Content != s.Content {
			warnings = append(warnings, fmt.Sprintf(
				"string %q already defined as %q; ignoring %q", s.Name, existing.Content, s.Content))
		}
	}
	return warnings
}

func mergeSelectors(target, source *MetaData) {
	for _, field := range source.SelectorFields() {
		for _, v := range source.ContentSelectors[field] {
			target.AddSelectorValue(field, v)
		}
	}
}

func mergeSettings(target, source *MetaData) []string {
	var warnings []string

	if source.SaveOrder != nil {
		switch {
		case target.SaveOrder == nil:
			order := *source.SaveOrder
			order.Criteria = append([]SortCriterion(nil), source.SaveOrder.Criteria...)
			target.SaveOrder = &order
		case !target.SaveOrder.Equal(source.SaveOrder):
			warnings = append(warnings, fmt.Sprintf(
				"save order %q already set; ignoring %q", target.SaveOrder, source.SaveOrder))
		}
	}

	settings := []struct {
		name   string
		target *string
		source string
	}{
		{"mode", &target.Mode, source.Mode},
		{"encoding", &target.Encoding, source.Encoding},
		{"file directory", &target.FileDirectory, source.FileDirectory},
	}
	for _, s := range settings {
		if s.source == "" {
			continue
		}
		if *s.target == "" {
			*s.target = s.source
		} else if *s.target != s.source {
			warnings = append(warnings, fmt.Sprintf("%s already set to %q; ignoring %q", s.name, *s.target, s.source))
		}
	}

	return warnings
}

func mergeGroups(target *MetaData, sourceRoot *GroupTreeNode, label string, sourceEntries []*entry.Entry, delimiter string) []string {
	if target.Groups == nil {
		target.Groups = NewRoot()
	}

	byKey := make(map[string][]*entry.Entry)
	var keys []string
	for _, e := range sourceEntries {
		if e == nil {
			continue
		}
		key := e.Key
		if key == "" {
			key = e.ID
		}
		if key == "" {
			continue
		}
		if _, seen := byKey[key]; !seen {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], e)
	}

	imported := NewExplicit(uniqueChildName(target.Groups, ImportedGroupPrefix+label), keys...)
	for _, child := range sourceRoot.Children {
		imported.AddChild(child.Copy())
	}
	target.Groups.AddChild(imported)

	var warnings []string
	imported.Walk(func(n *GroupTreeNode, _ int) bool {
		if n.Group.Kind != KindExplicit {
			return true
		}
		var kept []string
		for _, key := range n.Members {
			matches := byKey[key]
			if len(matches) == 0 {
				warnings = append(warnings, fmt.Sprintf(
					"group %q references unknown entry %q; dropping membership", n.Group.Name, key))
				continue
			}
			kept = append(kept, key)
			for _, e := range matches {
				e.AddKeyword(entry.FieldGroups, n.Group.Name, delimiter)
			}
		}
		n.Members = kept
		return true
	})

	return warnings
}

// uniqueChildName returns name, or name with a " (n)" suffix if parent
// already has a child called name.
func uniqueChildName(parent *GroupTreeNode, name string) string {
	if _, taken := parent.FindChild(name); !taken {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", name, i)
		if _, taken := parent.FindChild(candidate); !taken {
			return candidate
		}
	}
}
