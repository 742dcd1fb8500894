package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ExitError
		want string
	}{
		{
			name: "with underlying error",
			err:  NewExitError(ErrNotFound, ExitUser),
			want: "resource not found",
		},
		{
			name: "with wrapped error",
			err:  NewExitError(fmt.Errorf("loading config: %w", ErrInvalidConfig), ExitUser),
			want: "loading config: invalid configuration",
		},
		{
			name: "nil underlying error",
			err:  NewExitError(nil, ExitUser),
			want: "exit code 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ExitError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitError_As(t *testing.T) {
	err := fmt.Errorf("command failed: %w", NewSystemError(ErrDecompress, "re-export the save"))

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatal("errors.As() = false, want true")
	}
	if exitErr.Code != ExitSystem {
		t.Errorf("Code = %d, want %d", exitErr.Code, ExitSystem)
	}
	if exitErr.Suggestion != "re-export the save" {
		t.Errorf("Suggestion = %q", exitErr.Suggestion)
	}
}

func TestIncompatibilityTags(t *testing.T) {
	tags := []error{
		ErrHeaderMismatch,
		ErrUnknownMetaLength,
		ErrKeySearchExhausted,
		ErrDecompress,
		ErrJSON,
		ErrMissingFile,
		ErrDeleted,
	}
	for _, tag := range tags {
		t.Run(tag.Error(), func(t *testing.T) {
			if !Is(tag, ErrIncompatible) {
				t.Errorf("Is(%v, ErrIncompatible) = false", tag)
			}
			if Is(tag, ErrOperationAborted) {
				t.Errorf("Is(%v, ErrOperationAborted) = true", tag)
			}
			wrapped := Wrap(tag, "slot 3")
			if !Is(wrapped, ErrIncompatible) {
				t.Errorf("wrapped tag lost its mark: %v", wrapped)
			}
			for _, other := range tags {
				if other != tag && Is(wrapped, other) {
					t.Errorf("Is(%v, %v) = true", wrapped, other)
				}
			}
		})
	}
}

func TestAborted(t *testing.T) {
	err := Aborted("source count %d does not match destination count %d", 2, 1)
	if !Is(err, ErrOperationAborted) {
		t.Fatalf("Aborted() is not ErrOperationAborted: %v", err)
	}
	want := "source count 2 does not match destination count 1: operation aborted"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewConfigError(t *testing.T) {
	e := NewConfigError(errors.New("config error"))
	if e.Code != ExitUser {
		t.Errorf("Code = %d, want %d", e.Code, ExitUser)
	}
	if e.Suggestion != "Run: nmsio config init" {
		t.Errorf("Suggestion = %q", e.Suggestion)
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		code int
		want int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitUser", ExitUser, 1},
		{"ExitSystem", ExitSystem, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.code, tt.want)
			}
		})
	}
}
