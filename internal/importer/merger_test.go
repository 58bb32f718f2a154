package importer

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/matsen/bibmerge/internal/config"
	"github.com/matsen/bibmerge/internal/entry"
	"github.com/matsen/bibmerge/internal/metadata"
)

var (
	bibtexFormat = Format{Name: "bibtex", MetadataBearing: true}
	otherFormat  = Format{Name: "other"}
)

func testPrefs(owner string) config.ImportPreferences {
	return config.ImportPreferences{
		Owner: config.OwnerPreferences{UseOwner: owner != "", DefaultOwner: owner},
		Timestamp: config.TimestampPreferences{
			AddCreationDate: true,
			Now:             func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) },
		},
		KeywordDelimiter: ",",
	}
}

func success(format Format, path string, md *metadata.MetaData, keys ...string) Success {
	result := NewParserResult(path)
	if md != nil {
		result.MetaData = md
	}
	for _, k := range keys {
		e := entry.New("article", k)
		e.SetField("title", "Title of "+k)
		result.Database.InsertEntry(e)
	}
	return Success{Result: result, Format: format}
}

func keysOf(r *ParserResult) []string {
	var keys []string
	for _, e := range r.Database.Entries() {
		keys = append(keys, e.Key)
	}
	return keys
}

func TestMerge_AliceScenario(t *testing.T) {
	m1 := metadata.New()
	m1.AddString("nat", "Nature")
	m1.SaveOrder, _ = metadata.ParseSaveOrder("year")

	m2 := metadata.New()
	m2.AddString("sci", "Science")
	m2.Mode = metadata.ModeBibLaTeX

	outcomes := []Outcome{
		success(bibtexFormat, "/lib/a.bib", m1, "EntryA", "EntryB"),
		Absent{Source: "broken.bib", Err: errors.New("parse failed")},
		success(otherFormat, "/lib/c.json", m2, "EntryC"),
	}

	result := Merge(outcomes, testPrefs("alice"))

	if got, want := keysOf(result), []string{"EntryA", "EntryB", "EntryC"}; !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(result.MetaData.Strings, m1.Strings) {
		t.Errorf("Strings = %v, want %v (M1 only)", result.MetaData.Strings, m1.Strings)
	}
	if !result.MetaData.SaveOrder.Equal(m1.SaveOrder) {
		t.Errorf("SaveOrder = %v, want %v", result.MetaData.SaveOrder, m1.SaveOrder)
	}
	if result.MetaData.Mode != "" {
		t.Errorf("Mode = %q, want unset (M2 ignored)", result.MetaData.Mode)
	}
	for _, e := range result.Database.Entries() {
		if got, _ := e.Field(entry.FieldOwner); got != "alice" {
			t.Errorf("%s owner = %q, want alice", e.Key, got)
		}
		if got, _ := e.Field(entry.FieldCreationDate); got != "2026-01-02" {
			t.Errorf("%s creationdate = %q, want 2026-01-02", e.Key, got)
		}
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", result.Warnings)
	}
}

func TestMerge_ZeroOutcomes(t *testing.T) {
	result := Merge(nil, testPrefs("alice"))

	if result.Database.Len() != 0 {
		t.Errorf("Len() = %d, want 0", result.Database.Len())
	}
	if !result.MetaData.IsEmpty() {
		t.Errorf("MetaData = %+v, want empty", result.MetaData)
	}
	if result.Path != "" {
		t.Errorf("Path = %q, want empty", result.Path)
	}
}

func TestMerge_AllAbsent(t *testing.T) {
	outcomes := []Outcome{Absent{Source: "a"}, nil, Absent{Source: "b", Err: errors.New("boom")}}
	result := Merge(outcomes, testPrefs("alice"))

	if result.Database.Len() != 0 {
		t.Errorf("Len() = %d, want 0", result.Database.Len())
	}
	if !result.MetaData.IsEmpty() {
		t.Errorf("MetaData = %+v, want empty", result.MetaData)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", result.Warnings)
	}
}

func TestMerge_EntryCountIsSum(t *testing.T) {
	outcomes := []Outcome{
		success(bibtexFormat, "a.bib", nil, "A", "B", "C"),
		success(otherFormat, "b.csv", nil, "A", "D"),
		success(bibtexFormat, "c.bib", nil),
		success(otherFormat, "d.json", nil, "E"),
	}

	result := Merge(outcomes, testPrefs(""))
	if result.Database.Len() != 6 {
		t.Errorf("Len() = %d, want 6 (no deduplication)", result.Database.Len())
	}
	if got := len(result.Database.EntriesByKey("A")); got != 2 {
		t.Errorf("entries with key A = %d, want 2", got)
	}
}

func TestMerge_AbsentDoesNotChangeResult(t *testing.T) {
	build := func(withAbsent bool) []Outcome {
		m := metadata.New()
		m.AddString("x", "X")
		var out []Outcome
		if withAbsent {
			out = append(out, Absent{Source: "first"})
		}
		out = append(out, success(bibtexFormat, "a.bib", m, "A"))
		if withAbsent {
			out = append(out, Absent{Source: "mid", Err: errors.New("gone")}, nil)
		}
		out = append(out, success(otherFormat, "b.csv", nil, "B"))
		if withAbsent {
			out = append(out, Absent{Source: "last"})
		}
		return out
	}

	plain := Merge(build(false), testPrefs("alice"))
	mixed := Merge(build(true), testPrefs("alice"))

	if !reflect.DeepEqual(keysOf(plain), keysOf(mixed)) {
		t.Errorf("keys differ: %v vs %v", keysOf(plain), keysOf(mixed))
	}
	if !reflect.DeepEqual(plain.MetaData, mixed.MetaData) {
		t.Errorf("metadata differs:\n%+v\n%+v", plain.MetaData, mixed.MetaData)
	}
	for i, e := range plain.Database.Entries() {
		if !reflect.DeepEqual(e.Fields, mixed.Database.Entries()[i].Fields) {
			t.Errorf("entry %d fields differ: %v vs %v", i, e.Fields, mixed.Database.Entries()[i].Fields)
		}
	}
	if !reflect.DeepEqual(plain.Warnings, mixed.Warnings) {
		t.Errorf("warnings differ: %v vs %v", plain.Warnings, mixed.Warnings)
	}
}

func TestMerge_FirstStringDefinitionWins(t *testing.T) {
	m1 := metadata.New()
	m1.AddString("jcb", "J. Comput. Biol.")
	m2 := metadata.New()
	m2.AddString("jcb", "Journal of Computational Biology")

	result := Merge([]Outcome{
		success(bibtexFormat, "first.bib", m1, "A"),
		success(bibtexFormat, "second.bib", m2, "B"),
	}, testPrefs(""))

	s, ok := result.MetaData.StringByName("jcb")
	if !ok || s.Content != "J. Comput. Biol." {
		t.Errorf("jcb = %+v, want first definition", s)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Source != "second.bib" {
		t.Errorf("Warnings = %v, want one from second.bib", result.Warnings)
	}
}

func TestMerge_NeverOverwritesExistingAutomaticFields(t *testing.T) {
	o := success(otherFormat, "a.csv", nil, "A", "B")
	first := o.Result.Database.Entries()[0]
	first.SetField(entry.FieldOwner, "bob")
	first.SetField(entry.FieldCreationDate, "2001-01-01")

	result := Merge([]Outcome{o}, testPrefs("alice"))
	entries := result.Database.Entries()

	if got, _ := entries[0].Field(entry.FieldOwner); got != "bob" {
		t.Errorf("A owner = %q, want bob", got)
	}
	if got, _ := entries[0].Field(entry.FieldCreationDate); got != "2001-01-01" {
		t.Errorf("A creationdate = %q, want 2001-01-01", got)
	}
	if got, _ := entries[1].Field(entry.FieldOwner); got != "alice" {
		t.Errorf("B owner = %q, want alice", got)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	o := success(bibtexFormat, "a.bib", nil, "A")
	o.Result.MetaData.Groups = metadata.NewRoot()
	o.Result.MetaData.Groups.AddChild(metadata.NewExplicit("Reading", "A"))

	result := Merge([]Outcome{o}, testPrefs("alice"))

	src := o.Result.Database.Entries()[0]
	if src.HasField(entry.FieldOwner) || src.HasField(entry.FieldGroups) {
		t.Errorf("source entry mutated: %v", src.Fields)
	}
	merged := result.Database.Entries()[0]
	if merged == src {
		t.Error("aggregate shares the source entry")
	}
	if got, _ := merged.Field(entry.FieldGroups); got != "Imported a.bib, Reading" {
		t.Errorf("merged groups = %q, want %q", got, "Imported a.bib, Reading")
	}
}

func TestMerge_ReapplyingIsIdempotent(t *testing.T) {
	first := Merge([]Outcome{success(otherFormat, "a.csv", nil, "A", "B")}, testPrefs("alice"))
	again := Merge([]Outcome{Success{Result: first, Format: otherFormat}}, testPrefs("eve"))

	for i, e := range first.Database.Entries() {
		if !reflect.DeepEqual(e.Fields, again.Database.Entries()[i].Fields) {
			t.Errorf("entry %d changed on re-merge: %v -> %v", i, e.Fields, again.Database.Entries()[i].Fields)
		}
	}
}

func TestMerge_MissingDatabaseIsWarning(t *testing.T) {
	outcomes := []Outcome{
		success(bibtexFormat, "a.bib", nil, "A"),
		Success{Result: &ParserResult{Path: "/x/broken.bib"}, Format: bibtexFormat},
		Success{Result: nil, Format: otherFormat},
		success(otherFormat, "b.csv", nil, "B"),
	}

	result := Merge(outcomes, testPrefs(""))

	if got, want := keysOf(result), []string{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("Warnings = %v, want 2", result.Warnings)
	}
	if result.Warnings[0].Source != "broken.bib" || result.Warnings[1].Source != UnknownSource {
		t.Errorf("warning sources = %q, %q, want broken.bib, unknown",
			result.Warnings[0].Source, result.Warnings[1].Source)
	}
}

func TestMerge_PointerOutcomes(t *testing.T) {
	md := metadata.New()
	md.AddString("jcb", "J. Comput. Biol.")
	s := success(bibtexFormat, "a.bib", md, "A", "B")
	outcomes := []Outcome{
		&s,
		&Absent{Source: "gone.bib", Err: errors.New("no such file")},
		(*Absent)(nil),
		(*Success)(nil),
		success(otherFormat, "c.csv", nil, "C"),
	}

	result := Merge(outcomes, testPrefs("alice"))

	if got, want := keysOf(result), []string{"A", "B", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if _, ok := result.MetaData.StringByName("jcb"); !ok {
		t.Error("metadata from *Success was not merged")
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Source != UnknownSource {
		t.Errorf("Warnings = %v, want one for the nil *Success", result.Warnings)
	}
}

func TestNormalize(t *testing.T) {
	s := success(otherFormat, "a.csv", nil, "A")
	a := Absent{Source: "b.bib", Err: errors.New("boom")}

	tests := []struct {
		name string
		in   Outcome
		want Outcome
	}{
		{"value success", s, s},
		{"pointer success", &s, s},
		{"pointer absent", &a, a},
		{"nil success pointer", (*Success)(nil), Absent{Source: UnknownSource, Err: ErrNilOutcome}},
		{"nil absent pointer", (*Absent)(nil), Absent{Source: UnknownSource, Err: ErrNilOutcome}},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestMerge_NilMetaDataOnBearingFormat(t *testing.T) {
	o := success(bibtexFormat, "a.bib", nil, "A")
	o.Result.MetaData = nil

	result := Merge([]Outcome{o}, testPrefs(""))
	if result.Database.Len() != 1 {
		t.Errorf("Len() = %d, want 1", result.Database.Len())
	}
	if !result.MetaData.IsEmpty() {
		t.Errorf("MetaData = %+v, want empty", result.MetaData)
	}
}

func TestMerge_MalformedMetaDataKeepsEntries(t *testing.T) {
	o := success(bibtexFormat, "a.bib", nil, "A")
	// A nil child makes the group copy panic.
	o.Result.MetaData.Groups = &metadata.GroupTreeNode{
		Group:    metadata.Group{Name: metadata.AllEntriesName, Kind: metadata.KindAll},
		Children: []*metadata.GroupTreeNode{nil},
	}

	result := Merge([]Outcome{o, success(otherFormat, "b.csv", nil, "B")}, testPrefs("alice"))

	if got, want := keysOf(result), []string{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Source == "a.bib" && strings.Contains(w.Message, "metadata merge aborted") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want metadata merge aborted from a.bib", result.Warnings)
	}
	for _, e := range result.Database.Entries() {
		if !e.HasField(entry.FieldOwner) {
			t.Errorf("%s has no owner after recovered merge", e.Key)
		}
	}
}

func TestMerge_ParseWarningsCarriedOver(t *testing.T) {
	o := success(otherFormat, "a.csv", nil, "A")
	o.Result.warnf("row 3: bad")

	result := Merge([]Outcome{o}, testPrefs(""))
	if len(result.Warnings) != 1 || result.Warnings[0].String() != "a.csv: row 3: bad" {
		t.Errorf("Warnings = %v, want [a.csv: row 3: bad]", result.Warnings)
	}
}

func TestMerge_UnknownLabelForPathlessSource(t *testing.T) {
	m := metadata.New()
	m.Groups = metadata.NewRoot()

	result := Merge([]Outcome{success(bibtexFormat, "", m, "A")}, testPrefs(""))

	if _, ok := result.MetaData.Groups.FindChild("Imported unknown"); !ok {
		t.Errorf("groups = %+v, want Imported unknown", result.MetaData.Groups.Children)
	}
}

func TestMerge_ConcurrentCallsAreIndependent(t *testing.T) {
	done := make(chan *ParserResult, 8)
	for i := 0; i < cap(done); i++ {
		go func() {
			m := metadata.New()
			m.Groups = metadata.NewRoot()
			done <- Merge([]Outcome{success(bibtexFormat, "a.bib", m, "A", "B")}, testPrefs("alice"))
		}()
	}
	for i := 0; i < cap(done); i++ {
		r := <-done
		if r.Database.Len() != 2 || len(r.MetaData.Groups.Children) != 1 {
			t.Errorf("result %d: %d entries, %d groups, want 2 and 1",
				i, r.Database.Len(), len(r.MetaData.Groups.Children))
		}
	}
}
