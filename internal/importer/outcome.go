// Package importer reads bibliographic sources in several formats and merges
// the per-source parse results into a single database.
package importer

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/matsen/bibmerge/internal/entry"
	"github.com/matsen/bibmerge/internal/metadata"
)

// UnknownSource labels results that have no originating path.
const UnknownSource = "unknown"

// Warning is a non-fatal problem found while parsing or merging a source.
type Warning struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return w.Source + ": " + w.Message
}

// ParserResult is a parsed database with its metadata.
type ParserResult struct {
	Database *entry.Database
	MetaData *metadata.MetaData
	Path     string // Originating file, empty if unknown
	Warnings []Warning
}

// NewParserResult creates an empty result for the given path.
func NewParserResult(path string) *ParserResult {
	return &ParserResult{
		Database: entry.NewDatabase(),
		MetaData: metadata.New(),
		Path:     path,
	}
}

// Label returns the file name of the result's path, or "unknown".
func (r *ParserResult) Label() string {
	if r.Path == "" {
		return UnknownSource
	}
	return filepath.Base(r.Path)
}

func (r *ParserResult) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Warning{Source: r.Label(), Message: fmt.Sprintf(format, args...)})
}

// Outcome is the result of attempting to read one source: Success or Absent.
type Outcome interface {
	outcome()
}

// Success is a source that parsed, tagged with the format it was read as.
type Success struct {
	Result *ParserResult
	Format Format
}

// Absent is a source that produced nothing usable.
// Err, when set, tells the caller why; the merge ignores it.
type Absent struct {
	Source string
	Err    error
}

func (Success) outcome() {}
func (Absent) outcome()  {}

// ErrNilOutcome is carried by the Absent that Normalize returns for a nil pointer.
var ErrNilOutcome = errors.New("nil outcome")

// Normalize returns the value form of a *Success or *Absent outcome, so
// callers only need to match Success and Absent. Nil pointers become Absent.
func Normalize(o Outcome) Outcome {
	switch v := o.(type) {
	case *Success:
		if v == nil {
			return Absent{Source: UnknownSource, Err: ErrNilOutcome}
		}
		return *v
	case *Absent:
		if v == nil {
			return Absent{Source: UnknownSource, Err: ErrNilOutcome}
		}
		return *v
	}
	return o
}
