package main

import (
	"fmt"
	"strings"

	"github.com/matsen/bibmerge/internal/importer"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(formatsCmd)
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported input formats",
	Long: `List supported input formats.

Metadata-bearing formats contribute groups, string constants and other
database settings to a merge; the rest contribute entries only.`,
	Args: cobra.NoArgs,
	RunE: runFormats,
}

// FormatInfo describes one input format.
type FormatInfo struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Extensions      []string `json:"extensions"`
	MetadataBearing bool     `json:"metadata_bearing"`
}

func runFormats(cmd *cobra.Command, args []string) error {
	var infos []FormatInfo
	for _, f := range importer.Formats() {
		infos = append(infos, FormatInfo{
			Name:            f.Name,
			Description:     f.Description,
			Extensions:      f.Extensions,
			MetadataBearing: f.MetadataBearing,
		})
	}

	if !humanOutput {
		outputJSON(infos)
		return nil
	}

	for _, f := range infos {
		marker := ""
		if f.MetadataBearing {
			marker = " [metadata]"
		}
		fmt.Printf("%-10s %-14s %s%s\n", f.Name, strings.Join(f.Extensions, ","), f.Description, marker)
	}
	return nil
}
