package commands

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/nmsio/internal/collection"
	"github.com/thoreinstein/nmsio/internal/errors"
)

var detectOutput string

func init() {
	detectCmd.Flags().StringVarP(&detectOutput, "output", "o", outputText, "output format: text, json, yaml, toml")
	rootCmd.AddCommand(detectCmd)
}

var detectCmd = &cobra.Command{
	Use:   "detect <file>...",
	Short: "Detect the platform and slot of single save files",
	Long: `Detect the platform and meta index of save data files from their
content and name, without a surrounding save directory.

Useful for files exported from consoles or shared by other players.`,
	Example: `  # Detect an exported file
  nmsio detect savedata02.hg

  See Also: nmsio list`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

// detectResult is one detected file in structured output.
type detectResult struct {
	File       string `json:"file" yaml:"file" toml:"file"`
	Platform   string `json:"platform" yaml:"platform" toml:"platform"`
	MetaIndex  int    `json:"meta_index" yaml:"meta_index" toml:"meta_index"`
	MemoryDat  bool   `json:"memory_dat,omitempty" yaml:"memory_dat,omitempty" toml:"memory_dat,omitempty"`
	SaveWizard bool   `json:"save_wizard,omitempty" yaml:"save_wizard,omitempty" toml:"save_wizard,omitempty"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	if err := validOutput(detectOutput); err != nil {
		return err
	}

	results := make([]detectResult, 0, len(args))
	for _, path := range args {
		d, err := collection.DetectFile(path)
		if err != nil {
			return errors.NewUserError(errors.Wrapf(err, "detecting %s", path), "Pass a save data file")
		}
		results = append(results, detectResult{
			File:       path,
			Platform:   d.Kind.String(),
			MetaIndex:  d.MetaIndex,
			MemoryDat:  d.MemoryDat,
			SaveWizard: d.SaveWizard,
		})
	}

	w := cmd.OutOrStdout()
	if detectOutput != outputText {
		// TOML has no top-level arrays.
		return encode(w, detectOutput, struct {
			Files []detectResult `json:"files" yaml:"files" toml:"files"`
		}{results})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tPLATFORM\tMETA INDEX\tNOTES")
	for _, r := range results {
		notes := ""
		if r.MemoryDat {
			notes = "memory.dat"
		}
		if r.SaveWizard {
			notes += " SaveWizard"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", filepath.Base(r.File), r.Platform, r.MetaIndex, notes)
	}
	return errors.Wrap(tw.Flush(), "writing table")
}
