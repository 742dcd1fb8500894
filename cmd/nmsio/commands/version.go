package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/nmsio/cmd"
	"github.com/thoreinstein/nmsio/internal/gameversion"
	"github.com/thoreinstein/nmsio/internal/paths"
	"github.com/thoreinstein/nmsio/internal/platform"
)

var versionOutput string

func init() {
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", outputText, "output format: text, json, yaml, toml")
	rootCmd.AddCommand(versionCmd)
}

// versionReport is the structured form of the version command.
type versionReport struct {
	cmd.Build `yaml:",inline"`

	// Game is the newest game release whose save format nmsio knows.
	Game  string            `json:"game" yaml:"game" toml:"game"`
	Roots map[string]string `json:"save_roots" yaml:"save_roots" toml:"save_roots"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long: `Print the version, commit and build date of nmsio, the newest game
release whose saves it reads, and the save root of each platform on this
computer.`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		if err := validOutput(versionOutput); err != nil {
			return err
		}

		newest := gameversion.WorldsPartII
		r := versionReport{
			Build: cmd.Info(),
			Game:  fmt.Sprintf("%s (%d)", newest, int(newest)),
			Roots: map[string]string{},
		}
		for _, k := range platform.Kinds() {
			r.Roots[k.String()] = paths.SaveRoot(k.String())
		}

		w := c.OutOrStdout()
		if versionOutput != outputText {
			return encode(w, versionOutput, r)
		}

		commit := r.Commit
		if r.Dirty {
			commit += " (modified)"
		}
		fmt.Fprintf(w, "nmsio version %s\n", r.Version)
		fmt.Fprintf(w, "  commit:    %s\n", commit)
		fmt.Fprintf(w, "  built:     %s\n", r.Date)
		fmt.Fprintf(w, "  go:        %s\n", r.Go)
		fmt.Fprintf(w, "  game:      %s\n", r.Game)
		fmt.Fprintln(w, "  platforms:")
		tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
		for _, k := range platform.Kinds() {
			root := r.Roots[k.String()]
			if root == "" {
				root = "(no local saves)"
			}
			fmt.Fprintf(tw, "    %s:\t%s\n", k, root)
		}
		return tw.Flush()
	},
}
