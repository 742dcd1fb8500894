package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// Exit codes for CLI applications.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitUser indicates a user-related error (invalid input, configuration, etc.).
	ExitUser = 1

	// ExitSystem indicates a system-related error (I/O, corrupt saves, permissions, etc.).
	ExitSystem = 2
)

// Re-exported constructors and inspectors from cockroachdb/errors so that
// callers only import this package.
var (
	New    = crdb.New
	Newf   = crdb.Newf
	Wrap   = crdb.Wrap
	Wrapf  = crdb.Wrapf
	Is     = crdb.Is
	As     = crdb.As
	Mark   = crdb.Mark
	Join   = crdb.Join
	Unwrap = crdb.Unwrap
)

// Sentinel errors for common failure conditions.
var (
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = crdb.New("resource not found")

	// ErrInvalidConfig indicates configuration validation failed.
	ErrInvalidConfig = crdb.New("invalid configuration")

	// ErrOperationAborted indicates a caller-controlled precondition was
	// violated before any state was mutated.
	ErrOperationAborted = crdb.New("operation aborted")

	// ErrIncompatible is the root of every decode-time incompatibility. It is
	// recorded on a container and never returned from Load.
	ErrIncompatible = crdb.New("incompatible save")
)

// Incompatibility tags. Each one matches ErrIncompatible under errors.Is
// while staying distinct from the other tags.
var (
	ErrHeaderMismatch     error = &incompatibleError{"meta header mismatch"}
	ErrUnknownMetaLength  error = &incompatibleError{"unknown meta length"}
	ErrKeySearchExhausted error = &incompatibleError{"no slot key decrypts meta"}
	ErrDecompress         error = &incompatibleError{"data decompression failed"}
	ErrJSON               error = &incompatibleError{"invalid json payload"}
	ErrMissingFile        error = &incompatibleError{"save file missing"}
	ErrDeleted            error = &incompatibleError{"container deleted"}
)

type incompatibleError struct {
	msg string
}

func (e *incompatibleError) Error() string { return e.msg }

// Is reports ErrIncompatible as an ancestor of every tag.
func (e *incompatibleError) Is(target error) bool { return target == ErrIncompatible }

// Aborted wraps ErrOperationAborted with a formatted reason.
func Aborted(format string, args ...any) error {
	return crdb.Wrapf(ErrOperationAborted, format, args...)
}

// ExitError wraps an error with an exit code and optional suggestion for CLI applications.
// It implements the error interface and supports unwrapping via errors.Unwrap.
type ExitError struct {
	// Err is the underlying error that caused the exit.
	Err error

	// Code is the exit code to return to the operating system.
	Code int

	// Suggestion is an optional actionable suggestion for the user.
	Suggestion string
}

// NewExitError creates an ExitError with the given underlying error and exit code.
// If err is nil, the returned ExitError will have a nil Err field.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{
		Err:  err,
		Code: code,
	}
}

// NewUserError creates an ExitError with ExitUser code and a suggestion.
func NewUserError(err error, suggestion string) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       ExitUser,
		Suggestion: suggestion,
	}
}

// NewSystemError creates an ExitError with ExitSystem code and a suggestion.
func NewSystemError(err error, suggestion string) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       ExitSystem,
		Suggestion: suggestion,
	}
}

// NewConfigError creates an ExitError with ExitUser code and a standard suggestion.
func NewConfigError(err error) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       ExitUser,
		Suggestion: "Run: nmsio config init",
	}
}

// Error returns the error message from the underlying error.
// If the underlying error is nil, it returns a generic message with the exit code.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As
// to examine the error chain.
func (e *ExitError) Unwrap() error {
	return e.Err
}
