package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/nmsio/internal/backup"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/platform"
)

var backupListOutput string

func init() {
	backupListCmd.Flags().StringVarP(&backupListOutput, "output", "o", outputText, "output format: text, json, yaml, toml")
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage container backups",
	Long: `Manage backups of single containers.

A backup is a zip archive with the raw data and meta files of one container
as they are on disk. Every archive is kept unless settings.max_backup_count
caps the number per container.`,
	Example: `  # Back up a slot
  nmsio backup create Slot1Auto

  # List the backups of every slot
  nmsio backup list

  # Restore an archive into the slot it was taken from
  nmsio backup restore backup.steam.02.20260101120000000.4135.zip

  See Also:
    nmsio backup create  - Back up a container
    nmsio backup list    - List available backups
    nmsio backup restore - Restore from a backup`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [slot]",
	Short: "Back up a container",
	Long: `Archive the files of a container. The slot is a meta index, an
identifier such as Slot1Auto, or "account". Without a slot you are asked
to pick one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list [slot]",
	Short: "List available backups",
	Long: `List the backups of every container of the save directory, or of one
container, newest first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackupList,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Restore a container from a backup",
	Long: `Restore an archive into the container it was taken from and write it.
The archive is a path, or a file name in the backup directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupRestore,
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	cs := existing(p)
	if a := p.Account(); a != nil && a.Exists() {
		cs = append([]*container.Container{a}, cs...)
	}
	c, err := containerArg(p, argAt(args, 0), "Back up", cs)
	if err != nil {
		return err
	}
	a, err := p.Backup(c)
	if err != nil {
		return errors.NewUserError(err, "Only existing containers can be backed up")
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s to %s\n", green("Backed up"), c.Identifier(), a.Path)
	}
	return nil
}

// backupInfo is one archive in structured output.
type backupInfo struct {
	Container string    `json:"container" yaml:"container" toml:"container"`
	Name      string    `json:"name" yaml:"name" toml:"name"`
	Path      string    `json:"path" yaml:"path" toml:"path"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`
	Version   int       `json:"version" yaml:"version" toml:"version"`
}

func runBackupList(cmd *cobra.Command, args []string) error {
	if err := validOutput(backupListOutput); err != nil {
		return err
	}
	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	cs := append([]*container.Container{p.Account()}, p.Containers()...)
	if arg := argAt(args, 0); arg != "" {
		c, err := containerArg(p, arg, "", nil)
		if err != nil {
			return err
		}
		cs = []*container.Container{c}
	}

	var list []backupInfo
	for _, c := range cs {
		if c == nil {
			continue
		}
		for _, a := range c.Backups() {
			list = append(list, backupInfo{
				Container: c.Identifier(),
				Name:      a.Name(),
				Path:      a.Path,
				CreatedAt: a.CreatedAt,
				Version:   a.Version,
			})
		}
	}

	w := cmd.OutOrStdout()
	if backupListOutput != outputText {
		return encode(w, backupListOutput, struct {
			Backups []backupInfo `json:"backups" yaml:"backups" toml:"backups"`
		}{list})
	}

	fmt.Fprintf(w, "%s %s\n", cyan("Backups: "+p.Kind().String()), gray(p.BackupManager().Dir()))
	if len(list) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("(no backups available)"))
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  CONTAINER\tCREATED\tVERSION\tNAME")
	for _, b := range list {
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n", b.Container, b.CreatedAt.Local().Format(time.DateTime), b.Version, b.Name)
	}
	return errors.Wrap(tw.Flush(), "writing table")
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	a, err := resolveArchive(p, args[0])
	if err != nil {
		return errors.NewUserError(err, "Run 'nmsio backup list' to see the archives")
	}
	c, err := p.Restore(a)
	if err != nil {
		return errors.NewUserError(err, "The archive must belong to this platform")
	}
	if err := p.Write(c, time.Now()); err != nil {
		return errors.NewSystemError(err, "")
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s from %s\n", green("Restored"), c.Identifier(), a.Name())
	}
	return nil
}

// resolveArchive turns a path or an archive name into an Archive.
func resolveArchive(p *platform.Platform, arg string) (backup.Archive, error) {
	path := arg
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(p.BackupManager().Dir(), filepath.Base(arg))
		if _, err := os.Stat(path); err != nil {
			return backup.Archive{}, errors.Wrapf(errors.ErrNotFound, "archive %s", arg)
		}
	}
	a, err := backup.ParseName(filepath.Base(path))
	if err != nil {
		return backup.Archive{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return backup.Archive{}, errors.Wrap(err, "resolving archive path")
	}
	a.Path = abs
	return a, nil
}
