package config

import (
	"os"
	"path/filepath"
	"testing"
)

// withConfigHome points XDG_CONFIG_HOME at a temp dir and clears the cache.
func withConfigHome(t *testing.T) string {
	t.Helper()
	ResetGlobalConfigCache()
	t.Cleanup(ResetGlobalConfigCache)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	return tmpDir
}

func writeConfig(t *testing.T, home, content string) {
	t.Helper()
	configDir := filepath.Join(home, GlobalConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, GlobalConfigFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGlobalConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	path := GlobalConfigPath()
	want := "/custom/config/bibmerge/config.yml"
	if path != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", path, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	path = GlobalConfigPath()
	want = filepath.Join(home, ".config", "bibmerge", "config.yml")
	if path != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", path, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	withConfigHome(t)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadGlobalConfig() returned nil")
	}
	if cfg.Owner.Name != "" || cfg.Owner.Enabled != nil {
		t.Errorf("Owner = %+v, want zero value", cfg.Owner)
	}
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	home := withConfigHome(t)
	writeConfig(t, home, `
owner:
  enabled: false
  name: alice
timestamp:
  field: timestamp
  format: "2006-01-02 15:04"
keyword_delimiter: ";"
workers: 8
`)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg.Owner.Enabled == nil || *cfg.Owner.Enabled {
		t.Errorf("Owner.Enabled = %v, want false", cfg.Owner.Enabled)
	}
	if cfg.Owner.Name != "alice" {
		t.Errorf("Owner.Name = %q, want alice", cfg.Owner.Name)
	}
	if cfg.Timestamp.Field != "timestamp" {
		t.Errorf("Timestamp.Field = %q, want timestamp", cfg.Timestamp.Field)
	}
	if cfg.KeywordDelimiter != ";" {
		t.Errorf("KeywordDelimiter = %q, want ;", cfg.KeywordDelimiter)
	}
	if cfg.WorkerCount() != 8 {
		t.Errorf("WorkerCount() = %d, want 8", cfg.WorkerCount())
	}
}

func TestLoadGlobalConfig_InvalidYAML(t *testing.T) {
	home := withConfigHome(t)
	writeConfig(t, home, "owner: [unclosed")

	if _, err := LoadGlobalConfig(); err == nil {
		t.Error("LoadGlobalConfig() should return error for invalid YAML")
	}
}

func TestLoadGlobalConfig_InvalidTimestampFormat(t *testing.T) {
	home := withConfigHome(t)
	writeConfig(t, home, "timestamp:\n  format: yyyy-MM-dd\n")

	if _, err := LoadGlobalConfig(); err == nil {
		t.Error("LoadGlobalConfig() should reject a non-Go timestamp layout")
	}
}

func TestGetConfigValue(t *testing.T) {
	t.Setenv("TEST_CONFIG_KEY", "from-env")
	if got := GetConfigValue("TEST_CONFIG_KEY", "from-config"); got != "from-env" {
		t.Errorf("GetConfigValue() = %q, want from-env", got)
	}

	t.Setenv("TEST_CONFIG_KEY", "")
	if got := GetConfigValue("TEST_CONFIG_KEY", "from-config"); got != "from-config" {
		t.Errorf("GetConfigValue() = %q, want from-config", got)
	}
}

func TestGlobalConfigCache(t *testing.T) {
	home := withConfigHome(t)
	writeConfig(t, home, "owner:\n  name: cached\n")

	cfg1, _ := LoadGlobalConfig()
	if cfg1.Owner.Name != "cached" {
		t.Errorf("First load: Owner.Name = %q, want cached", cfg1.Owner.Name)
	}

	writeConfig(t, home, "owner:\n  name: modified\n")

	cfg2, _ := LoadGlobalConfig()
	if cfg2.Owner.Name != "cached" {
		t.Errorf("Second load: Owner.Name = %q, want cached (cached)", cfg2.Owner.Name)
	}

	ResetGlobalConfigCache()

	cfg3, _ := LoadGlobalConfig()
	if cfg3.Owner.Name != "modified" {
		t.Errorf("Third load: Owner.Name = %q, want modified", cfg3.Owner.Name)
	}
}

func TestGlobalConfig_SaveRoundTrip(t *testing.T) {
	withConfigHome(t)

	disabled := false
	cfg := &GlobalConfig{
		Owner:     OwnerConfig{Enabled: &disabled, Name: "bob"},
		Timestamp: TimestampConfig{Format: "2006"},
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if loaded.Owner.Name != "bob" || loaded.Owner.Enabled == nil || *loaded.Owner.Enabled {
		t.Errorf("Owner = %+v, want bob disabled", loaded.Owner)
	}
	if loaded.Timestamp.Format != "2006" {
		t.Errorf("Timestamp.Format = %q, want 2006", loaded.Timestamp.Format)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/papers", filepath.Join(home, "papers")},
		{"/abs/path", "/abs/path"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.input); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
