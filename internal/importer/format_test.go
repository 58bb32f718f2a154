package importer

import (
	"errors"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path     string
		want     string
		metadata bool
	}{
		{"refs.bib", "bibtex", true},
		{"/a/b/REFS.BIB", "bibtex", true},
		{"refs.bibtex", "bibtex", true},
		{"export.json", "paperpile", false},
		{"table.csv", "csv", false},
		{"paper.pdf", "pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f, err := DetectFormat(tt.path)
			if err != nil {
				t.Fatalf("DetectFormat() error = %v", err)
			}
			if f.Name != tt.want {
				t.Errorf("DetectFormat() = %v, want %v", f.Name, tt.want)
			}
			if f.MetadataBearing != tt.metadata {
				t.Errorf("MetadataBearing = %v, want %v", f.MetadataBearing, tt.metadata)
			}
			if f.Parse == nil {
				t.Error("Parse = nil")
			}
		})
	}
}

func TestDetectFormat_Unknown(t *testing.T) {
	for _, path := range []string{"notes.txt", "noext", ""} {
		if _, err := DetectFormat(path); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("DetectFormat(%q) error = %v, want ErrUnknownFormat", path, err)
		}
	}
}

func TestFormatByName(t *testing.T) {
	f, err := FormatByName("BibTeX")
	if err != nil {
		t.Fatalf("FormatByName() error = %v", err)
	}
	if f.Name != "bibtex" {
		t.Errorf("FormatByName() = %v, want bibtex", f.Name)
	}

	if _, err := FormatByName("endnote"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("FormatByName(endnote) error = %v, want ErrUnknownFormat", err)
	}
}

func TestFormats_OnlyBibTeXBearsMetadata(t *testing.T) {
	for _, f := range Formats() {
		if f.MetadataBearing != (f.Name == "bibtex") {
			t.Errorf("%s MetadataBearing = %v", f.Name, f.MetadataBearing)
		}
	}
}
