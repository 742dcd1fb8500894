// Package errors provides error handling conventions for nmsio.
//
// The package re-exports the constructors of github.com/cockroachdb/errors
// so that every package wraps errors the same way, and defines the two error
// families the save engine distinguishes:
//
//   - Incompatibilities ([ErrIncompatible] and its tags) are decode-time
//     problems. They are recorded on a container and never returned from a
//     load, leaving the container inspectable.
//   - [ErrOperationAborted] marks caller misuse (mismatched source and
//     destination counts, operating on an unloaded container). It is
//     returned before any state is mutated.
//
// # Exit Codes
//
//   - ExitSuccess (0): Command completed successfully
//   - ExitUser (1): User-related error (invalid input, configuration, etc.)
//   - ExitSystem (2): System-related error (I/O, corrupt saves, permissions, etc.)
//
// [ExitError] wraps an underlying error with an exit code and optional
// suggestion for the CLI:
//
//	err := nmserrors.NewUserError(nmserrors.ErrInvalidConfig, "Check your config file")
//	var exitErr *nmserrors.ExitError
//	if errors.As(err, &exitErr) {
//	    os.Exit(exitErr.Code)
//	}
package errors
