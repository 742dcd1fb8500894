package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/nmsio/internal/doctor"
	"github.com/thoreinstein/nmsio/internal/errors"
)

var (
	doctorOutput string
	doctorAll    bool
	doctorFix    bool
)

func init() {
	doctorCmd.Flags().StringVarP(&doctorOutput, "output", "o", outputText, "output format: text, json, yaml")
	doctorCmd.Flags().BoolVarP(&doctorAll, "all", "a", false, "show passed checks too")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "repair fixable issues")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and save directory issues",
	Long: `Run diagnostic checks on the configuration, the save roots of this
computer, the backup directory and the save directory.

Output shows errors and warnings; --all shows every check.
With --fix, missing backup directories are created and read-only save
files are made writable.

Exit codes:
  0 - All checks passed (no errors or warnings)
  1 - Warnings present, no errors
  2 - Errors present`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

// errDoctorWarnings is a sentinel error for exit code 1.
var errDoctorWarnings = errors.New("warnings found")

// errDoctorErrors is a sentinel error for exit code 2.
var errDoctorErrors = errors.New("errors found")

// openFailure reports a save directory that could not be opened.
type openFailure struct{ err error }

func (c openFailure) Name() string     { return "save-directory" }
func (c openFailure) Category() string { return "saves" }
func (c openFailure) Run() *doctor.CheckResult {
	return &doctor.CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   doctor.SeverityError,
		Message:  c.err.Error(),
		FixHint:  "pass the save directory with --dir and --platform",
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	if doctorOutput == outputTOML {
		return errors.NewUserError(errors.New("doctor has no toml output"), "Use one of: text, json, yaml")
	}
	if err := validOutput(doctorOutput); err != nil {
		return err
	}

	runner := doctor.NewRunner()
	runner.AddCheck(doctor.NewConfigCheck(configPath()))
	runner.AddCheck(doctor.NewSaveRootCheck())

	p, err := openPlatform(cmd)
	if err != nil {
		runner.AddCheck(openFailure{err})
	} else {
		defer p.Close()
		runner.SetTarget(doctor.Target{Platform: p.Kind().String(), Dir: p.Root()})
		runner.AddCheck(doctor.NewBackupDirectoryCheck(p.BackupManager().Dir()))
		runner.AddCheck(doctor.NewSaveDirectoryCheck(p))
	}

	report := runner.Run()
	w := cmd.OutOrStdout()

	var fixes []doctor.FixResult
	if doctorFix {
		fixes = runner.Fix()
		if len(fixes) > 0 {
			report = runner.Run()
		}
	}

	switch {
	case quiet:
	case doctorOutput == outputText:
		printFixes(w, fixes)
		printReport(w, report)
	default:
		if err := encode(w, doctorOutput, struct {
			doctor.Report `yaml:",inline"`
			Fixes []doctor.FixResult `json:"fixes,omitempty" yaml:"fixes,omitempty"`
		}{*report, fixes}); err != nil {
			return err
		}
	}

	if report.HasErrors() {
		return errors.NewExitError(errDoctorErrors, errors.ExitSystem)
	}
	if report.HasWarnings() {
		return errors.NewExitError(errDoctorWarnings, errors.ExitUser)
	}
	return nil
}

func printFixes(w io.Writer, fixes []doctor.FixResult) {
	for _, f := range fixes {
		mark := green("fixed")
		if !f.Fixed {
			mark = "failed"
		}
		fmt.Fprintf(w, "%s %s: %s\n", mark, f.Path, f.Description)
	}
	if len(fixes) > 0 {
		fmt.Fprintln(w)
	}
}

func printReport(w io.Writer, report *doctor.Report) {
	if t := report.Target; t.Dir != "" {
		fmt.Fprintf(w, "Checking %s saves in %s\n\n", t.Platform, t.Dir)
	}

	results := report.Problems()
	if doctorAll {
		results = report.Results
	}
	for _, result := range results {
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(result.Status), result.Category, result.Name, result.Message)

		if result.FixHint != "" && result.Status.NeedsAttention() {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
	}

	if len(results) > 0 {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return "✓"
	case doctor.SeverityInfo:
		return "ℹ"
	case doctor.SeverityWarning:
		return "⚠"
	case doctor.SeverityError:
		return "✗"
	default:
		return "?"
	}
}
