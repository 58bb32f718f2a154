package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/bibmerge/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set merge preferences",
	Long: `Get or set merge preferences.

Without arguments, prints the effective preferences after applying
defaults, the config file and environment overrides (BIBMERGE_OWNER,
BIBMERGE_TIMESTAMP_FORMAT, also read from .env).

Usage:
  bibmerge config                          # Show effective preferences
  bibmerge config owner                    # Get specific value
  bibmerge config owner alice              # Set value
  bibmerge config timestamp-format 2006-01-02T15:04:05

Keys:
  owner              Name stamped into the owner field
  owner-enabled      Stamp owner on merged entries (true/false)
  timestamp-enabled  Stamp creation date on merged entries (true/false)
  timestamp-field    Field that receives the creation date
  timestamp-format   Go time layout for the creation date
  keyword-delimiter  Delimiter for keyword-style fields such as groups
  workers            Files read in parallel by merge

The config file is ` + "`$XDG_CONFIG_HOME/bibmerge/config.yml`" + `.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	Path        string                   `json:"path"`
	Preferences config.ImportPreferences `json:"preferences"`
	Workers     int                      `json:"workers"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadGlobalConfig()

	// No args: show effective preferences
	if len(args) == 0 {
		prefs := cfg.Preferences()
		if humanOutput {
			fmt.Printf("config:            %s\n", config.GlobalConfigPath())
			for _, key := range configKeys {
				fmt.Printf("%-18s %s\n", key+":", configValue(cfg, key))
			}
		} else {
			outputJSON(ConfigResponse{
				Path:        config.GlobalConfigPath(),
				Preferences: prefs,
				Workers:     cfg.WorkerCount(),
			})
		}
		return nil
	}

	key := normalizeKey(args[0])
	if !isConfigKey(key) {
		exitWithError(ExitError, "unknown configuration key: %s", args[0])
	}

	// One arg: get specific value
	if len(args) == 1 {
		value := configValue(cfg, key)
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{strings.ReplaceAll(key, "-", "_"): value})
		}
		return nil
	}

	// Two args: set value
	value := args[1]
	if err := setConfigValue(cfg, key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	if err := cfg.Save(); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Set %s = %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value})
	}
	return nil
}

var configKeys = []string{
	"owner",
	"owner-enabled",
	"timestamp-enabled",
	"timestamp-field",
	"timestamp-format",
	"keyword-delimiter",
	"workers",
}

func isConfigKey(key string) bool {
	for _, k := range configKeys {
		if k == key {
			return true
		}
	}
	return false
}

// configValue returns the effective value of key as a string.
func configValue(cfg *config.GlobalConfig, key string) string {
	prefs := cfg.Preferences()
	switch key {
	case "owner":
		return prefs.Owner.DefaultOwner
	case "owner-enabled":
		return strconv.FormatBool(prefs.Owner.UseOwner)
	case "timestamp-enabled":
		return strconv.FormatBool(prefs.Timestamp.AddCreationDate)
	case "timestamp-field":
		return prefs.Timestamp.TimestampField()
	case "timestamp-format":
		return prefs.Timestamp.Format
	case "keyword-delimiter":
		return prefs.KeywordDelimiter
	case "workers":
		return strconv.Itoa(cfg.WorkerCount())
	}
	return ""
}

// setConfigValue validates value and stores it in cfg.
func setConfigValue(cfg *config.GlobalConfig, key, value string) error {
	switch key {
	case "owner":
		cfg.Owner.Name = value
	case "owner-enabled", "timestamp-enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false, got %q", key, value)
		}
		if key == "owner-enabled" {
			cfg.Owner.Enabled = &b
		} else {
			cfg.Timestamp.Enabled = &b
		}
	case "timestamp-field":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("timestamp-field cannot be empty")
		}
		cfg.Timestamp.Field = strings.ToLower(strings.TrimSpace(value))
	case "timestamp-format":
		if err := config.ValidateTimestampFormat(value); err != nil {
			return err
		}
		cfg.Timestamp.Format = value
	case "keyword-delimiter":
		if value == "" {
			return fmt.Errorf("keyword-delimiter cannot be empty")
		}
		cfg.KeywordDelimiter = value
	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("workers must be a positive integer, got %q", value)
		}
		cfg.Workers = n
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// normalizeKey converts various key formats to the canonical form.
// e.g., "timestamp_format", "Timestamp-Format" -> "timestamp-format"
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}
