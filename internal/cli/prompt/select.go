// Package prompt provides interactive CLI prompts for user input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"

	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/logging"
)

// Sentinel errors for container selection.
var (
	ErrNoContainers       = errors.New("no containers to select from")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrSelectionCancelled = errors.New("selection cancelled")
)

// Selector handles interactive container selection prompts.
type Selector struct {
	reader io.Reader
	writer io.Writer
	fuzzy  bool
}

// NewSelector creates a new Selector using stdin and stdout. It uses the
// fuzzy finder when both are terminals.
func NewSelector() *Selector {
	return &Selector{
		reader: os.Stdin,
		writer: os.Stdout,
		fuzzy:  logging.Interactive(os.Stdin, os.Stdout),
	}
}

// NewSelectorWithIO creates a Selector with custom reader and writer for
// testing. It always uses the numbered prompt.
func NewSelectorWithIO(r io.Reader, w io.Writer) *Selector {
	return &Selector{
		reader: r,
		writer: w,
	}
}

// Label is the one-line description of a container in a prompt.
func Label(c *container.Container) string {
	e := c.Extra()
	switch {
	case !c.Exists():
		return fmt.Sprintf("%s (empty)", c.Identifier())
	case !c.IsCompatible():
		return fmt.Sprintf("%s [%s]", c.Identifier(), c.IncompatibilityTag())
	case e.SaveName != "":
		return fmt.Sprintf("%s %q %s", c.Identifier(), e.SaveName, c.GameMode())
	default:
		return fmt.Sprintf("%s %s", c.Identifier(), c.GameMode())
	}
}

// SelectContainer prompts the user to choose from a list of containers.
//
// Returns:
//   - ErrNoContainers if the list is empty
//   - The container if only one exists (auto-selects without prompting)
//   - The selected container based on user input
//   - ErrInvalidSelection if the selection is out of range
//   - ErrSelectionCancelled if input is EOF (e.g., Ctrl+D) or the finder
//     is aborted
func (s *Selector) SelectContainer(prompt string, cs []*container.Container) (*container.Container, error) {
	if len(cs) == 0 {
		return nil, ErrNoContainers
	}

	// Auto-select if only one container
	if len(cs) == 1 {
		return cs[0], nil
	}

	if s.fuzzy {
		return s.find(prompt, cs)
	}

	// Display selection prompt
	fmt.Fprintf(s.writer, "%s:\n", prompt)
	for i, c := range cs {
		fmt.Fprintf(s.writer, "  [%d] %s\n", i+1, Label(c))
	}
	fmt.Fprintf(s.writer, "Select [1]: ")

	// Read user input
	reader := bufio.NewReader(s.reader)
	input, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrSelectionCancelled
		}
		return nil, errors.Wrap(err, "reading selection")
	}

	input = strings.TrimSpace(input)

	// Default to first option if empty
	if input == "" {
		return cs[0], nil
	}

	// Parse selection number
	selection, err := strconv.Atoi(input)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSelection, "%q is not a number", input)
	}

	// Validate range (1-indexed)
	if selection < 1 || selection > len(cs) {
		return nil, errors.Wrapf(ErrInvalidSelection, "%d is out of range [1-%d]", selection, len(cs))
	}

	return cs[selection-1], nil
}

func (s *Selector) find(prompt string, cs []*container.Container) (*container.Container, error) {
	idx, err := fuzzyfinder.Find(
		cs,
		func(i int) string { return Label(cs[i]) },
		fuzzyfinder.WithPromptString(prompt+"> "),
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			return preview(cs[i])
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, ErrSelectionCancelled
		}
		return nil, errors.Wrap(err, "interactive selection failed")
	}
	return cs[idx], nil
}

func preview(c *container.Container) string {
	e := c.Extra()
	var b strings.Builder
	fmt.Fprintf(&b, "Container: %s\nMeta index: %d\n", c.Identifier(), c.MetaIndex())
	if !c.Exists() {
		b.WriteString("\nEmpty slot")
		return b.String()
	}
	if tag := c.IncompatibilityTag(); tag != "" {
		fmt.Fprintf(&b, "\nIncompatible: %s", tag)
		return b.String()
	}
	fmt.Fprintf(&b, "Name: %s\nSummary: %s\nVersion: %d (%s)\nPlay time: %ds\nWritten: %s\nBackups: %d",
		e.SaveName, e.SaveSummary, c.BaseVersion(), c.Era(), e.TotalPlayTime,
		c.LastWriteTime().Format("2006-01-02 15:04:05"), len(c.Backups()))
	return b.String()
}

// SelectContainerDefault is a convenience function that uses stdin/stdout.
func SelectContainerDefault(prompt string, cs []*container.Container) (*container.Container, error) {
	return NewSelector().SelectContainer(prompt, cs)
}
