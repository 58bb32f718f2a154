package config

import (
	"fmt"
	"os"
	"time"
)

// Preference defaults.
const (
	DefaultTimestampField   = "creationdate"
	DefaultTimestampFormat  = "2006-01-02"
	DefaultKeywordDelimiter = ","
	DefaultWorkers          = 4
)

// OwnerPreferences controls stamping of the owner field.
type OwnerPreferences struct {
	UseOwner     bool   `json:"use_owner" yaml:"use_owner"`
	DefaultOwner string `json:"default_owner" yaml:"default_owner"`
}

// TimestampPreferences controls stamping of the creation timestamp field.
type TimestampPreferences struct {
	AddCreationDate bool   `json:"add_creation_date" yaml:"add_creation_date"`
	Field           string `json:"field" yaml:"field"`
	Format          string `json:"format" yaml:"format"` // Go time layout

	// Now returns the current time; nil means time.Now.
	Now func() time.Time `json:"-" yaml:"-"`
}

// Timestamp returns the current time formatted with the configured layout.
func (p TimestampPreferences) Timestamp() string {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	layout := p.Format
	if layout == "" {
		layout = DefaultTimestampFormat
	}
	return now().Format(layout)
}

// TimestampField returns the configured field, or the default.
func (p TimestampPreferences) TimestampField() string {
	if p.Field == "" {
		return DefaultTimestampField
	}
	return p.Field
}

// ImportPreferences is everything an import merge needs from the user's settings.
type ImportPreferences struct {
	Owner            OwnerPreferences     `json:"owner" yaml:"owner"`
	Timestamp        TimestampPreferences `json:"timestamp" yaml:"timestamp"`
	KeywordDelimiter string               `json:"keyword_delimiter" yaml:"keyword_delimiter"`
}

// DefaultImportPreferences returns preferences used when no config exists.
// The owner defaults to the login name of the current user.
func DefaultImportPreferences() ImportPreferences {
	return ImportPreferences{
		Owner: OwnerPreferences{
			UseOwner:     true,
			DefaultOwner: systemUser(),
		},
		Timestamp: TimestampPreferences{
			AddCreationDate: true,
			Field:           DefaultTimestampField,
			Format:          DefaultTimestampFormat,
		},
		KeywordDelimiter: DefaultKeywordDelimiter,
	}
}

// Preferences resolves the config into import preferences.
// Unset values take defaults; environment variables override the file.
func (c *GlobalConfig) Preferences() ImportPreferences {
	prefs := DefaultImportPreferences()

	if c.Owner.Enabled != nil {
		prefs.Owner.UseOwner = *c.Owner.Enabled
	}
	if c.Owner.Name != "" {
		prefs.Owner.DefaultOwner = c.Owner.Name
	}
	prefs.Owner.DefaultOwner = GetConfigValue(EnvOwner, prefs.Owner.DefaultOwner)

	if c.Timestamp.Enabled != nil {
		prefs.Timestamp.AddCreationDate = *c.Timestamp.Enabled
	}
	if c.Timestamp.Field != "" {
		prefs.Timestamp.Field = c.Timestamp.Field
	}
	if c.Timestamp.Format != "" {
		prefs.Timestamp.Format = c.Timestamp.Format
	}
	if f := os.Getenv(EnvTimestampFormat); f != "" && ValidateTimestampFormat(f) == nil {
		prefs.Timestamp.Format = f
	}

	if c.KeywordDelimiter != "" {
		prefs.KeywordDelimiter = c.KeywordDelimiter
	}

	return prefs
}

// WorkerCount returns the configured number of parallel readers.
func (c *GlobalConfig) WorkerCount() int {
	if c.Workers <= 0 {
		return DefaultWorkers
	}
	return c.Workers
}

// ValidateTimestampFormat checks that layout is a Go time layout that
// actually varies with the time.
func ValidateTimestampFormat(layout string) error {
	a := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC).Format(layout)
	b := time.Date(2009, 8, 7, 16, 15, 14, 0, time.UTC).Format(layout)
	if a == b {
		return fmt.Errorf("invalid timestamp format %q: not a Go time layout (example: %s)", layout, DefaultTimestampFormat)
	}
	return nil
}

func systemUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}
