package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/nmsio/internal/config"
	"github.com/thoreinstein/nmsio/internal/editor"
	"github.com/thoreinstein/nmsio/internal/errors"
)

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing configuration file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage nmsio configuration",
	Long: `Manage nmsio configuration stored in <config home>/nmsio/config.yaml.

Every key can be overridden by an environment variable with the NMSIO_
prefix, e.g. NMSIO_SETTINGS_LOADING_STRATEGY=full.

Without a subcommand, shows the effective configuration.`,
	Example: `  # Write the default configuration
  nmsio config init

  # Show the effective configuration
  nmsio config show

See Also: nmsio list`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after defaults, file and environment are merged, in YAML format.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), configPath())
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open configuration in $EDITOR",
	Long: `Open the configuration file in your default editor and validate it
when the editor exits.

Uses $EDITOR, then $VISUAL, then nano or vi. If no configuration file
exists, the default configuration is written first.`,
	Example: `  # Open config in default editor
  nmsio config edit

  # Open with specific editor
  EDITOR=nano nmsio config edit

See Also: nmsio config show, nmsio doctor`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	return config.DefaultPath()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := configPath()
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return errors.NewUserError(errors.Newf("%s already exists", path), "Pass --force to overwrite it")
	}
	if err := config.Save(config.Default(), path); err != nil {
		return errors.NewSystemError(err, "")
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("Wrote"), path)
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	_, err = cmd.OutOrStdout().Write(data)
	return errors.Wrap(err, "writing config")
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	path := configPath()
	if _, err := os.Stat(path); err != nil {
		if err := config.Save(config.Default(), path); err != nil {
			return errors.NewSystemError(err, "")
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Location: %s\n", path)
	ed := &editor.Editor{Stdin: cmd.InOrStdin(), Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
	if err := ed.Open(cmd.Context(), path); err != nil {
		return errors.NewUserError(err, "Set $EDITOR to your editor")
	}

	config.Init()
	if _, err := config.Load(path); err != nil {
		return errors.NewConfigError(err)
	}
	return nil
}
