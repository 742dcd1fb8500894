// Package editor launches the user's preferred text editor on a file.
package editor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/thoreinstein/nmsio/internal/errors"
)

// Editor runs an editor command with its standard streams attached.
type Editor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New returns an Editor attached to the process's terminal.
func New() *Editor {
	return &Editor{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Open launches the editor for path and waits for it to exit.
func (e *Editor) Open(ctx context.Context, path string) error {
	cmd := e.Command(ctx, path)
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running editor %s", cmd.Path)
	}
	return nil
}

// Command returns the editor command for path. Editor settings may carry
// arguments, e.g. EDITOR="code --wait".
func (e *Editor) Command(ctx context.Context, path string) *exec.Cmd {
	fields := strings.Fields(detectEditor())
	args := append(fields[1:], path)
	cmd := exec.CommandContext(ctx, fields[0], args...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	return cmd
}

// detectEditor returns the editor command to use based on environment variables
// and available binaries. Fallback chain: $EDITOR → $VISUAL → nano → vi
func detectEditor() string {
	if editor := strings.TrimSpace(os.Getenv("EDITOR")); editor != "" {
		return editor
	}
	if visual := strings.TrimSpace(os.Getenv("VISUAL")); visual != "" {
		return visual
	}
	if _, err := exec.LookPath("nano"); err == nil {
		return "nano"
	}
	return "vi"
}
