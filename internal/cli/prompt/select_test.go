package prompt

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/gameversion"
	"github.com/thoreinstein/nmsio/internal/meta"
)

func saves() []*container.Container {
	a := container.New(2)
	a.SetExists(true)
	a.SetExtra(meta.Extra{SaveName: "Home", GameMode: gameversion.Normal, BaseVersion: 4135})

	b := container.New(3)
	b.SetExists(true)
	b.SetExtra(meta.Extra{GameMode: gameversion.Survival, BaseVersion: 4135})

	return []*container.Container{a, b}
}

func TestSelectContainer_EmptyList(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewSelectorWithIO(strings.NewReader(""), &buf)

	_, err := s.SelectContainer("Source", nil)
	if !errors.Is(err, ErrNoContainers) {
		t.Errorf("expected ErrNoContainers, got: %v", err)
	}
}

func TestSelectContainer_SingleItem(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewSelectorWithIO(strings.NewReader(""), &buf)

	only := saves()[:1]
	result, err := s.SelectContainer("Source", only)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != only[0] {
		t.Errorf("expected %s, got %s", only[0], result)
	}
	// Should not prompt for single item
	if buf.Len() > 0 {
		t.Errorf("expected no output for single item, got: %s", buf.String())
	}
}

func TestSelectContainer_ValidSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantIdx int
	}{
		{"explicit first", "1\n", 0},
		{"explicit second", "2\n", 1},
		{"default on empty", "\n", 0},
		{"whitespace trimmed", "  2  \n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cs := saves()
			var buf bytes.Buffer
			s := NewSelectorWithIO(strings.NewReader(tt.input), &buf)

			result, err := s.SelectContainer("Source", cs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != cs[tt.wantIdx] {
				t.Errorf("expected %s, got %s", cs[tt.wantIdx], result)
			}
		})
	}
}

func TestSelectContainer_InvalidSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"too low", "0\n", "out of range"},
		{"too high", "3\n", "out of range"},
		{"negative", "-1\n", "out of range"},
		{"not a number", "abc\n", "not a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			s := NewSelectorWithIO(strings.NewReader(tt.input), &buf)

			_, err := s.SelectContainer("Source", saves())
			if !errors.Is(err, ErrInvalidSelection) {
				t.Fatalf("expected ErrInvalidSelection, got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestSelectContainer_Cancelled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewSelectorWithIO(&eofReader{}, &buf)

	_, err := s.SelectContainer("Source", saves())
	if !errors.Is(err, ErrSelectionCancelled) {
		t.Errorf("expected ErrSelectionCancelled, got: %v", err)
	}
}

func TestSelectContainer_OutputFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewSelectorWithIO(strings.NewReader("1\n"), &buf)

	if _, err := s.SelectContainer("Copy from", saves()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Copy from:",
		`[1] Slot1Auto "Home" Normal`,
		"[2] Slot1Manual Survival",
		"Select [1]:",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("missing %q in output: %s", want, output)
		}
	}
}

func TestLabel(t *testing.T) {
	empty := container.New(4)
	if got := Label(empty); got != "Slot2Auto (empty)" {
		t.Errorf("Label(empty) = %q", got)
	}

	broken := container.New(5)
	broken.SetExists(true)
	broken.SetIncompatible(errors.New("boom"))
	if got := Label(broken); got != "Slot2Manual [boom]" {
		t.Errorf("Label(broken) = %q", got)
	}

	if p := preview(saves()[0]); !strings.Contains(p, "Name: Home") || !strings.Contains(p, "Version: 4135") {
		t.Errorf("preview() = %q", p)
	}
}

// eofReader simulates immediate EOF (like Ctrl+D).
type eofReader struct{}

func (r *eofReader) Read(_ []byte) (int, error) {
	return 0, io.EOF
}
