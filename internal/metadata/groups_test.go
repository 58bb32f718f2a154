package metadata

import (
	"reflect"
	"strings"
	"testing"
)

func sampleTree() *GroupTreeNode {
	root := NewRoot()
	reading := root.AddChild(NewExplicit("Reading; to do", "Smith2026", "Doe2020"))
	reading.AddChild(&GroupTreeNode{Group: Group{Name: "ML", Kind: KindKeyword, Field: "keywords", Term: `a\b`}})
	root.AddChild(&GroupTreeNode{Group: Group{Name: "Recent", Kind: KindSearch, Query: "year >= 2020"}})
	return root
}

func TestGroupTree_RoundTrip(t *testing.T) {
	root := sampleTree()
	text := FormatGroupTree(root)

	parsed, err := ParseGroupTree(text)
	if err != nil {
		t.Fatalf("ParseGroupTree() error = %v\n%s", err, text)
	}
	if !reflect.DeepEqual(parsed, root) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v\ntext:\n%s", parsed, root, text)
	}
}

func TestFormatGroupTree_Lines(t *testing.T) {
	text := FormatGroupTree(sampleTree())
	lines := strings.Split(strings.TrimSpace(text), "\n")

	want := []string{
		"0 all:All Entries",
		`1 explicit:Reading\; to do;members=Smith2026,Doe2020`,
		`2 keyword:ML;field=keywords;term=a\\b`,
		"1 search:Recent;query=year >= 2020",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("FormatGroupTree() lines = %q, want %q", lines, want)
	}
}

func TestParseGroupTree_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"root not depth zero", "1 all:All Entries"},
		{"two roots", "0 all:A\n0 all:B"},
		{"skipped level", "0 all:A\n2 explicit:B"},
		{"unknown kind", "0 all:A\n1 smart:B"},
		{"bad depth", "x all:A"},
		{"unknown attribute", "0 all:A\n1 explicit:B;color=red"},
		{"missing name", "0 all:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGroupTree(tt.text); err == nil {
				t.Errorf("ParseGroupTree(%q) expected error", tt.text)
			}
		})
	}
}

func TestGroupTree_CopyIsDeep(t *testing.T) {
	root := sampleTree()
	c := root.Copy()
	c.Children[0].Members[0] = "changed"
	c.Children[0].Children = nil

	if root.Children[0].Members[0] != "Smith2026" {
		t.Error("Copy() shares members with original")
	}
	if len(root.Children[0].Children) != 1 {
		t.Error("Copy() shares children with original")
	}
}

func TestGroupTree_WalkDepths(t *testing.T) {
	var got []int
	sampleTree().Walk(func(_ *GroupTreeNode, depth int) bool {
		got = append(got, depth)
		return true
	})
	if want := []int{0, 1, 2, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("Walk depths = %v, want %v", got, want)
	}
}
