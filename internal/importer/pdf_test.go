package importer

import "testing"

func TestParsePDF_NotAPDF(t *testing.T) {
	if _, err := ParsePDF([]byte("plain text, not a pdf"), "/papers/smith.pdf"); err == nil {
		t.Error("ParsePDF() expected error for non-PDF input")
	}
}
