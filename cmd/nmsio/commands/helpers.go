package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/nmsio/internal/cli"
	"github.com/thoreinstein/nmsio/internal/cli/prompt"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/logging"
	"github.com/thoreinstein/nmsio/internal/paths"
	"github.com/thoreinstein/nmsio/internal/platform"
)

// Terminal styles for command output.
var (
	bold  = color.New(color.Bold).SprintFunc()
	cyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
)

// saveDir returns the directory a command works on: --dir, the first
// configured directory, or the save root of the selected platform.
func saveDir(kind platform.Kind) (string, error) {
	if dirFlag != "" {
		return dirFlag, nil
	}
	if len(cfg.Directories) > 0 {
		return cfg.Directories[0], nil
	}
	if kind == platform.KindUnknown {
		kind = cfg.Preferred()
	}
	if dir := paths.SaveRoot(kind.String()); dir != "" {
		return dir, nil
	}
	return "", errors.NewUserError(
		errors.Newf("no save directory known for %s", kind),
		"Pass the directory with --dir")
}

// openPlatform opens the save directory selected by the global flags.
func openPlatform(cmd *cobra.Command) (*platform.Platform, error) {
	kind, err := cli.ParseKind(platformFlag)
	if err != nil {
		return nil, errors.NewUserError(err, "Run 'nmsio --help' to see valid platforms")
	}
	dir, err := saveDir(kind)
	if err != nil {
		return nil, err
	}
	settings, err := cfg.PlatformSettings()
	if err != nil {
		return nil, errors.NewConfigError(err)
	}
	// Commands exit after one operation.
	settings.Watcher = false
	logger := logging.FromContext(cmd.Context())

	p, err := cli.OpenPlatform(cmd.Context(), dir, kind, cfg.Preferred(), settings, logger)
	if err != nil {
		if errors.Is(err, cli.ErrNoPlatformsAvailable) {
			return nil, errors.NewUserError(err, "Check --dir or pass --platform")
		}
		return nil, errors.NewSystemError(err, "")
	}
	logger.Debug("platform opened", "kind", p.Kind().String(), "root", p.Root())
	return p, nil
}

// containerArg resolves a slot argument, or prompts for one among cs when
// the argument is empty.
func containerArg(p *platform.Platform, arg, label string, cs []*container.Container) (*container.Container, error) {
	if arg != "" {
		c, err := cli.FindContainer(p, arg)
		if err != nil {
			return nil, errors.NewUserError(err, "Run 'nmsio list' to see the slots")
		}
		return c, nil
	}
	c, err := prompt.SelectContainerDefault(label, cs)
	if err != nil {
		return nil, errors.NewUserError(err, "Pass the slot as an argument")
	}
	return c, nil
}

// existing returns the save containers holding a save.
func existing(p *platform.Platform) []*container.Container {
	var out []*container.Container
	for _, c := range p.Containers() {
		if c.Exists() {
			out = append(out, c)
		}
	}
	return out
}

// argAt returns args[i] or "".
func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
