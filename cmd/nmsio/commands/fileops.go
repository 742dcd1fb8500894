package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/platform"
)

func init() {
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(swapCmd)
	rootCmd.AddCommand(deleteCmd)
}

// pairOperation is Copy, Move or Swap of a platform.
type pairOperation func(p *platform.Platform, sources, destinations []*container.Container) error

var copyCmd = &cobra.Command{
	Use:   "copy [<source> <destination>]...",
	Short: "Copy containers onto other containers",
	Long: `Copy the content of each source container onto its destination. A
source that does not exist deletes its destination. Without arguments you
are asked for one pair.`,
	Example: `  # Copy the first auto save into the third slot
  nmsio copy Slot1Auto Slot3Auto

  # Same, by meta index
  nmsio copy 2 6`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPairs(cmd, args, "Copied", (*platform.Platform).Copy)
	},
}

var moveCmd = &cobra.Command{
	Use:   "move [<source> <destination>]...",
	Short: "Move containers onto other containers",
	Long: `Copy the content of each source container onto its destination and
delete the source.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPairs(cmd, args, "Moved", (*platform.Platform).Move)
	},
}

var swapCmd = &cobra.Command{
	Use:   "swap [<a> <b>]...",
	Short: "Exchange the content of containers",
	Long:  `Exchange the content of each pair of containers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPairs(cmd, args, "Swapped", (*platform.Platform).Swap)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [slot]...",
	Short: "Delete containers",
	Long: `Delete the files of containers. Run 'nmsio backup create' first if
the save may be needed again.`,
	RunE: runDelete,
}

func runPairs(cmd *cobra.Command, args []string, done string, op pairOperation) error {
	if len(args)%2 != 0 {
		return errors.NewUserError(errors.Newf("%d arguments", len(args)), "Pass sources and destinations in pairs")
	}
	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	var sources, destinations []*container.Container
	if len(args) == 0 {
		src, err := containerArg(p, "", "Source", existing(p))
		if err != nil {
			return err
		}
		dst, err := containerArg(p, "", "Destination", p.Containers())
		if err != nil {
			return err
		}
		sources, destinations = []*container.Container{src}, []*container.Container{dst}
	}
	for i := 0; i+1 < len(args); i += 2 {
		src, err := containerArg(p, args[i], "", nil)
		if err != nil {
			return err
		}
		dst, err := containerArg(p, args[i+1], "", nil)
		if err != nil {
			return err
		}
		sources = append(sources, src)
		destinations = append(destinations, dst)
	}

	for _, c := range append(append([]*container.Container{}, sources...), destinations...) {
		if c.Exists() {
			p.Load(c)
		}
	}
	if err := op(p, sources, destinations); err != nil {
		if errors.Is(err, errors.ErrOperationAborted) {
			return errors.NewUserError(err, "Run 'nmsio list --all' to check the slots")
		}
		return errors.NewSystemError(err, "")
	}

	if !quiet {
		pairs := make([]string, len(sources))
		for i := range sources {
			pairs[i] = fmt.Sprintf("%s -> %s", sources[i].Identifier(), destinations[i].Identifier())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green(done), strings.Join(pairs, ", "))
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	var cs []*container.Container
	if len(args) == 0 {
		c, err := containerArg(p, "", "Delete", existing(p))
		if err != nil {
			return err
		}
		cs = append(cs, c)
	}
	for _, arg := range args {
		c, err := containerArg(p, arg, "", nil)
		if err != nil {
			return err
		}
		cs = append(cs, c)
	}

	if err := p.Delete(cs); err != nil {
		return errors.NewSystemError(err, "")
	}
	if !quiet {
		for _, c := range cs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("Deleted"), c.Identifier())
		}
	}
	return nil
}
