package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/nmsio/internal/cli"
	"github.com/thoreinstein/nmsio/internal/errors"
)

var (
	listAll    bool
	listOutput string
)

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include empty slots")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", outputText, "output format: text, json, yaml, toml")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the containers of a save directory",
	Long: `List the account data and save slots of a save directory with their
name, game mode, version and play time.

Containers that cannot be read are shown with the reason. Empty slots are
left out unless --all is given.`,
	Example: `  # List the saves of the default directory
  nmsio list

  # Include empty slots, as YAML
  nmsio list --all --output yaml

  See Also: nmsio detect, nmsio backup list`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := validOutput(listOutput); err != nil {
		return err
	}
	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	info := cli.DescribePlatform(p, listAll)
	if listOutput != outputText {
		return encode(cmd.OutOrStdout(), listOutput, info)
	}
	return printPlatform(cmd.OutOrStdout(), info)
}

func printPlatform(w io.Writer, info cli.PlatformInfo) error {
	fmt.Fprintf(w, "%s %s\n", cyan("Platform: "+info.Kind), gray(info.Root))

	if info.Account != nil {
		fmt.Fprintf(w, "  %s %s\n", bold("Account:"), status(*info.Account))
	}
	if len(info.Containers) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("(no saves)"))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  SLOT\tNAME\tMODE\tVERSION\tPLAYED\tWRITTEN\tBACKUPS")
	for _, c := range info.Containers {
		if !c.Exists || !c.Compatible {
			fmt.Fprintf(tw, "  %s\t%s\t\t\t\t\t%d\n", c.Identifier, status(c), c.Backups)
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			c.Identifier,
			c.SaveName,
			c.GameMode,
			versionLabel(c),
			time.Duration(c.TotalPlayTime)*time.Second,
			written(c.LastWriteTime),
			c.Backups)
	}
	return errors.Wrap(tw.Flush(), "writing table")
}

// status is the short state of a container for text output.
func status(c cli.ContainerInfo) string {
	switch {
	case !c.Exists:
		return gray("(empty)")
	case !c.Compatible:
		return "[" + c.Incompatibility + "]"
	case c.SaveName != "":
		return green(c.SaveName)
	default:
		return green("ok")
	}
}

func versionLabel(c cli.ContainerInfo) string {
	if c.Era == "" {
		return fmt.Sprint(c.BaseVersion)
	}
	return fmt.Sprintf("%d (%s)", c.BaseVersion, c.Era)
}

func written(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
