// Package logging provides structured logging for nmsio using slog.
//
// The package supports both text and JSON output formats, configurable log
// levels, and helpers for testing. All loggers are based on the standard
// library's [log/slog] package.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{
//		Level:  slog.LevelInfo,
//		Format: logging.FormatText,
//		Output: os.Stderr,
//	})
//	logger.Info("starting", "version", "1.0.0")
//
// # Testing
//
// For tests, use [ForTest] to capture log output via the testing framework:
//
//	func TestSomething(t *testing.T) {
//		logger := logging.ForTest(t)
//		// logs appear in test output on failure
//	}
//
// # Account ids
//
// The text handler masks attributes whose key names an account (uid,
// steam_id, account) and string values shaped like a Steam id, keeping the
// last four characters.
//
// # Fan-out
//
// [MultiHandler] sends each record to several handlers, e.g. colored text
// on stderr and JSON lines in a log file.
package logging
