package commands

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/nmsio/internal/cli"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/logging"
)

var (
	transferFrom         string
	transferFromPlatform string
	transferTake         []string
	transferTakeAll      bool
	transferKeepOthers   bool
)

func init() {
	transferCmd.Flags().StringVar(&transferFrom, "from", "", "source save directory (required)")
	transferCmd.Flags().StringVar(&transferFromPlatform, "from-platform", "", "platform of the source directory (default: detected)")
	transferCmd.Flags().StringSliceVar(&transferTake, "take", nil, "user ids of other players whose bases become yours too")
	transferCmd.Flags().BoolVar(&transferTakeAll, "take-all", false, "take over the bases of every other player")
	transferCmd.Flags().BoolVar(&transferKeepOthers, "keep-others", false, "leave the bases of other players untouched")
	_ = transferCmd.MarkFlagRequired("from")
	transferCmd.MarkFlagsMutuallyExclusive("take-all", "keep-others")
	rootCmd.AddCommand(transferCmd)
}

var transferCmd = &cobra.Command{
	Use:   "transfer <source-slot> <destination-slot>",
	Short: "Transfer a slot from another save directory",
	Long: `Copy both containers of a slot from another save directory, possibly of
another platform, into a slot of this one. Bases owned by the source user
are rewritten to the user of this directory.

Bases of other players need a decision: --take lists the players whose
bases become yours, --take-all and --keep-others decide for everyone.
Slots are numbered from 1.`,
	Example: `  # Move slot 1 of a Switch export into slot 3 of the Steam saves
  nmsio transfer 1 3 --from ./switch-export --from-platform switch

  See Also: nmsio list`,
	Args: cobra.ExactArgs(2),
	RunE: runTransfer,
}

func runTransfer(cmd *cobra.Command, args []string) error {
	from, err := slotNumber(args[0])
	if err != nil {
		return err
	}
	to, err := slotNumber(args[1])
	if err != nil {
		return err
	}
	kind, err := cli.ParseKind(transferFromPlatform)
	if err != nil {
		return errors.NewUserError(err, "Run 'nmsio --help' to see valid platforms")
	}

	dst, err := openPlatform(cmd)
	if err != nil {
		return err
	}
	defer dst.Close()

	settings, err := cfg.PlatformSettings()
	if err != nil {
		return errors.NewConfigError(err)
	}
	settings.Watcher = false
	src, err := cli.OpenPlatform(cmd.Context(), transferFrom, kind, cfg.Preferred(), settings,
		logging.FromContext(cmd.Context()))
	if err != nil {
		return errors.NewUserError(err, "Check --from and --from-platform")
	}
	defer src.Close()

	auto, manual, err := src.Slot(from)
	if err != nil {
		return errors.NewUserError(err, "Run 'nmsio list --dir <source>' to see the slots")
	}
	for _, c := range [...]*container.Container{auto, manual} {
		if c.Exists() {
			src.Load(c)
		}
	}
	for _, c := range existing(dst) {
		dst.Load(c)
	}

	data, err := src.GetSourceTransferData(from)
	if err != nil {
		return errors.NewUserError(err, "The source slot must hold a readable save")
	}
	if err := dst.PrepareTransferDestination(to); err != nil {
		return errors.NewUserError(err, "The destination needs a save that identifies its user")
	}
	for _, uid := range dst.TransferDecisions(data) {
		switch {
		case transferTakeAll:
			data.Decisions[uid] = true
		case transferKeepOthers:
			data.Decisions[uid] = false
		default:
			data.Decisions[uid] = slices.Contains(transferTake, uid)
		}
	}

	if pending, err := dst.Transfer(data, to); err != nil {
		if len(pending) > 0 {
			return errors.NewUserError(err, "Decide with --take, --take-all or --keep-others: "+strings.Join(pending, ", "))
		}
		return errors.NewSystemError(err, "")
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%s slot %d of %s to slot %d of %s (%d bases)\n",
			green("Transferred"), from+1, data.Source, to+1, dst.Kind(), len(data.Bases))
	}
	return nil
}

// slotNumber parses a 1-based slot number into a slot index.
func slotNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, errors.NewUserError(errors.Newf("invalid slot %q", arg), "Slots are numbered from 1")
	}
	return n - 1, nil
}
