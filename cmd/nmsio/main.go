// Package main is the entry point for the nmsio CLI.
package main

import (
	"os"

	"github.com/thoreinstein/nmsio/cmd"
	"github.com/thoreinstein/nmsio/cmd/nmsio/commands"
	"github.com/thoreinstein/nmsio/internal/backup"
)

func main() {
	backup.Version = cmd.Info().Version
	if err := commands.Execute(); err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
