package metadata

import (
	"fmt"
	"strings"
)

// CommentPrefix marks a BibTeX @Comment block that carries metadata.
const CommentPrefix = "bibmerge-meta:"

// Metadata item keys.
const (
	KeyGroups         = "groups"
	KeySaveOrder      = "saveorder"
	KeySelectorPrefix = "selector_"
	KeyMode           = "mode"
	KeyEncoding       = "encoding"
	KeyFileDirectory  = "filedirectory"
)

// Item is one serialized metadata setting.
type Item struct {
	Key   string
	Value string
}

// Items serializes everything except string constants, in a stable order.
func (m *MetaData) Items() []Item {
	var items []Item
	add := func(key, value string) {
		if value != "" {
			items = append(items, Item{Key: key, Value: value})
		}
	}

	add(KeyMode, m.Mode)
	add(KeyEncoding, m.Encoding)
	add(KeyFileDirectory, m.FileDirectory)
	if m.SaveOrder != nil {
		add(KeySaveOrder, m.SaveOrder.String())
	}
	for _, field := range m.SelectorFields() {
		values := make([]string, len(m.ContentSelectors[field]))
		for i, v := range m.ContentSelectors[field] {
			values[i] = escapeGroupValue(v)
		}
		add(KeySelectorPrefix+field, strings.Join(values, ";"))
	}
	if m.Groups != nil {
		add(KeyGroups, "\n"+FormatGroupTree(m.Groups))
	}
	return items
}

// SetItem applies one serialized setting.
func (m *MetaData) SetItem(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	switch {
	case key == KeyMode:
		if value != ModeBibTeX && value != ModeBibLaTeX {
			return fmt.Errorf("unknown database mode %q", value)
		}
		m.Mode = value
	case key == KeyEncoding:
		m.Encoding = value
	case key == KeyFileDirectory:
		m.FileDirectory = value
	case key == KeySaveOrder:
		order, err := ParseSaveOrder(value)
		if err != nil {
			return err
		}
		m.SaveOrder = order
	case strings.HasPrefix(key, KeySelectorPrefix):
		field := strings.TrimPrefix(key, KeySelectorPrefix)
		if field == "" {
			return fmt.Errorf("content selector without field")
		}
		for _, v := range splitEscaped(value, ';') {
			m.AddSelectorValue(field, v)
		}
	case key == KeyGroups:
		root, err := ParseGroupTree(value)
		if err != nil {
			return err
		}
		m.Groups = root
	default:
		return fmt.Errorf("unknown metadata key %q", key)
	}
	return nil
}
