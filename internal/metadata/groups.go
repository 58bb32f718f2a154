package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupKind identifies how a group selects its entries.
type GroupKind string

const (
	KindAll      GroupKind = "all"      // Root group containing every entry
	KindExplicit GroupKind = "explicit" // Members listed by citation key
	KindKeyword  GroupKind = "keyword"  // Entries whose Field contains Term
	KindSearch   GroupKind = "search"   // Entries matching Query
)

// AllEntriesName is the name of the root group.
const AllEntriesName = "All Entries"

// Group describes one node of the group hierarchy.
type Group struct {
	Name  string    `json:"name"`
	Kind  GroupKind `json:"kind"`
	Field string    `json:"field,omitempty"` // keyword groups
	Term  string    `json:"term,omitempty"`  // keyword groups
	Query string    `json:"query,omitempty"` // search groups
}

// GroupTreeNode is a group with its children.
type GroupTreeNode struct {
	Group    Group            `json:"group"`
	Members  []string         `json:"members,omitempty"` // Citation keys, explicit groups only
	Children []*GroupTreeNode `json:"children,omitempty"`
}

// NewRoot creates a root node of kind all.
func NewRoot() *GroupTreeNode {
	return &GroupTreeNode{Group: Group{Name: AllEntriesName, Kind: KindAll}}
}

// NewExplicit creates an explicit group node.
func NewExplicit(name string, members ...string) *GroupTreeNode {
	return &GroupTreeNode{Group: Group{Name: name, Kind: KindExplicit}, Members: members}
}

// AddChild appends child and returns it.
func (n *GroupTreeNode) AddChild(child *GroupTreeNode) *GroupTreeNode {
	n.Children = append(n.Children, child)
	return child
}

// FindChild returns the direct child with the given name.
func (n *GroupTreeNode) FindChild(name string) (*GroupTreeNode, bool) {
	for _, c := range n.Children {
		if c.Group.Name == name {
			return c, true
		}
	}
	return nil, false
}

// HasMember reports whether key is listed as a member.
func (n *GroupTreeNode) HasMember(key string) bool {
	for _, m := range n.Members {
		if m == key {
			return true
		}
	}
	return false
}

// Walk visits the node and its descendants depth-first.
// Returning false from fn skips the node's children.
func (n *GroupTreeNode) Walk(fn func(node *GroupTreeNode, depth int) bool) {
	n.walk(fn, 0)
}

func (n *GroupTreeNode) walk(fn func(*GroupTreeNode, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Copy returns a deep copy of the subtree.
func (n *GroupTreeNode) Copy() *GroupTreeNode {
	c := &GroupTreeNode{Group: n.Group}
	if len(n.Members) > 0 {
		c.Members = append([]string(nil), n.Members...)
	}
	for _, child := range n.Children {
		c.Children = append(c.Children, child.Copy())
	}
	return c
}

// FormatGroupTree serializes a tree, one node per line:
//
//	<depth> <kind>:<name>;<attr>=<value>;...
//
// Semicolons and backslashes inside names and values are escaped with '\'.
func FormatGroupTree(root *GroupTreeNode) string {
	var b strings.Builder
	root.Walk(func(n *GroupTreeNode, depth int) bool {
		b.WriteString(strconv.Itoa(depth))
		b.WriteString(" ")
		b.WriteString(string(n.Group.Kind))
		b.WriteString(":")
		b.WriteString(escapeGroupValue(n.Group.Name))
		writeAttr(&b, "field", n.Group.Field)
		writeAttr(&b, "term", n.Group.Term)
		writeAttr(&b, "query", n.Group.Query)
		writeAttr(&b, "members", strings.Join(n.Members, ","))
		b.WriteString("\n")
		return true
	})
	return b.String()
}

func writeAttr(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(";")
	b.WriteString(name)
	b.WriteString("=")
	b.WriteString(escapeGroupValue(value))
}

// ParseGroupTree parses the format written by FormatGroupTree.
func ParseGroupTree(text string) (*GroupTreeNode, error) {
	var root *GroupTreeNode
	var stack []*GroupTreeNode // stack[d] is the most recent node at depth d

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		depth, node, err := parseGroupLine(line)
		if err != nil {
			return nil, fmt.Errorf("group line %d: %w", i+1, err)
		}

		if root == nil {
			if depth != 0 {
				return nil, fmt.Errorf("group line %d: first group must have depth 0", i+1)
			}
			root = node
			stack = []*GroupTreeNode{root}
			continue
		}
		if depth == 0 {
			return nil, fmt.Errorf("group line %d: more than one root group", i+1)
		}
		if depth > len(stack) {
			return nil, fmt.Errorf("group line %d: depth %d skips a level", i+1, depth)
		}

		stack = stack[:depth]
		stack[depth-1].AddChild(node)
		stack = append(stack, node)
	}

	if root == nil {
		return nil, fmt.Errorf("no groups defined")
	}
	return root, nil
}

func parseGroupLine(line string) (int, *GroupTreeNode, error) {
	depthStr, rest, ok := strings.Cut(line, " ")
	if !ok {
		return 0, nil, fmt.Errorf("missing depth in %q", line)
	}
	depth, err := strconv.Atoi(depthStr)
	if err != nil || depth < 0 {
		return 0, nil, fmt.Errorf("invalid depth %q", depthStr)
	}

	kind, rest, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, nil, fmt.Errorf("missing group kind in %q", line)
	}

	parts := splitEscaped(rest, ';')
	node := &GroupTreeNode{Group: Group{Name: parts[0], Kind: GroupKind(kind)}}

	switch node.Group.Kind {
	case KindAll, KindExplicit, KindKeyword, KindSearch:
	default:
		return 0, nil, fmt.Errorf("unknown group kind %q", kind)
	}
	if node.Group.Name == "" {
		return 0, nil, fmt.Errorf("group without name")
	}

	for _, attr := range parts[1:] {
		name, value, ok := strings.Cut(attr, "=")
		if !ok {
			return 0, nil, fmt.Errorf("malformed attribute %q", attr)
		}
		switch name {
		case "field":
			node.Group.Field = value
		case "term":
			node.Group.Term = value
		case "query":
			node.Group.Query = value
		case "members":
			for _, m := range strings.Split(value, ",") {
				if m = strings.TrimSpace(m); m != "" {
					node.Members = append(node.Members, m)
				}
			}
		default:
			return 0, nil, fmt.Errorf("unknown attribute %q", name)
		}
	}

	return depth, node, nil
}

func escapeGroupValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, ";", `\;`)
}

// splitEscaped splits s on sep, honoring backslash escapes, and unescapes the parts.
func splitEscaped(s string, sep byte) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case s[i] == sep:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(s[i])
		}
	}
	return append(parts, cur.String())
}
