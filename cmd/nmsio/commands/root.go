// Package commands implements the CLI commands for nmsio.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/nmsio/cmd"
	"github.com/thoreinstein/nmsio/internal/config"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/logging"
	"github.com/thoreinstein/nmsio/internal/platform"
)

// debugEnv raises the log level when no -v flag is given.
const debugEnv = config.EnvPrefix + "_DEBUG"

// platformFlag holds the value of the --platform flag.
var platformFlag string

// dirFlag holds the value of the --dir flag.
var dirFlag string

// configFlag holds the path given with --config.
var configFlag string

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// cfg is the loaded configuration. It falls back to config.Default.
var cfg = config.Default()

// configLoadErr holds any error that occurred during config loading.
var configLoadErr error

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&platformFlag, "platform", "p", "",
		`platform of the save directory: steam, microsoft, playstation, switch, gog (default: detected)`)
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "d", "",
		"save directory (default: first configured directory, then the platform's save root)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"configuration file (default: <config home>/nmsio/config.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format: text, json (default: from config)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")

	rootCmd.Version = cmd.Info().Version
	rootCmd.SetVersionTemplate("nmsio version {{.Version}}\n")

	// Silence errors and usage so we can control error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func initConfig() {
	config.Init()
	loaded, err := config.Load(configFlag)
	configLoadErr = err
	if err == nil {
		cfg = loaded
	}
}

var rootCmd = &cobra.Command{
	Use:   "nmsio",
	Short: "Inspect and manage No Man's Sky save files",
	Long: `nmsio reads and writes No Man's Sky saves of every platform the game
ships on: Steam, GOG, Microsoft Store, PlayStation and Switch.

It lists the slots of a save directory, detects the platform of a single
file, backs up and restores containers, copies, moves, swaps and deletes
slots, and transfers a slot between platforms with its bases.

Use --dir to point at a save directory and --platform to skip detection.`,
	Example: `  # List the saves of the default Steam directory
  nmsio list

  # List a PlayStation copy
  nmsio list --dir ./ps4-export --platform playstation

  # Back up the first auto save
  nmsio backup create Slot1Auto

  See Also: nmsio config init, nmsio detect`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		return validatePlatformFlag(cmd, args)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(nil, "cannot use --quiet and --verbose together")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity

		// CLI flags take precedence, but if not set, check env var
		if v == 0 {
			if val, ok := os.LookupEnv(debugEnv); ok {
				switch val {
				case "1", "true":
					v = 2 // Debug
				case "2":
					v = 3 // Trace
				}
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	format := logFormat
	if format == "" {
		format = cfg.Log.Format
	}

	primary := logging.New(logging.Config{
		Level:  level,
		Format: logging.Format(format),
		Output: cmd.ErrOrStderr(),
	})

	handlers := []slog.Handler{primary.Handler()}

	file := logFile
	if file == "" {
		file = cfg.Log.File
	}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return errors.NewUserError(err, "failed to open log file")
		}
		// File output uses JSON format
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: level,
		}))
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = logging.NewMultiHandler(handlers...)
	} else {
		handler = handlers[0]
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))

	return nil
}

// validatePlatformFlag checks the --platform flag and the loaded config.
func validatePlatformFlag(cmd *cobra.Command, _ []string) error {
	// Commands that work without a valid configuration
	switch cmd.Name() {
	case "help", "version", "init", "path", "edit", "doctor":
		return nil
	}

	if configLoadErr != nil {
		return errors.NewConfigError(configLoadErr)
	}

	if platformFlag == "" {
		return nil
	}
	if _, err := platform.ParseKind(platformFlag); err != nil {
		names := make([]string, 0, len(platform.Kinds()))
		for _, k := range platform.Kinds() {
			names = append(names, k.String())
		}
		err := errors.Newf("invalid platform: %s (valid: %s)", platformFlag, strings.Join(names, ", "))
		return errors.NewUserError(err, "Run 'nmsio --help' to see valid platforms")
	}
	return nil
}

// Execute runs the root command and reports a failure on stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(os.Stderr, err)
	}
	return errors.Wrap(err, "executing root command")
}

// ExitCode returns the process exit code for an error from Execute.
func ExitCode(err error) int {
	var exitErr *errors.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return errors.ExitSystem
}

func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %v\n", red("error:"), err)

	var exitErr *errors.ExitError
	if errors.As(err, &exitErr) && exitErr.Suggestion != "" {
		fmt.Fprintf(w, "  %s\n", color.YellowString(exitErr.Suggestion))
	}
}
