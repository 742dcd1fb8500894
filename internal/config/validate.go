package config

import (
	"path/filepath"
	"strings"

	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/platform"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// Validation errors for configuration fields.
var (
	// ErrUnsupportedVersion indicates a version this build cannot read.
	ErrUnsupportedVersion = errors.New("unsupported config version")

	// ErrInvalidPlatform indicates an unrecognized platform name.
	ErrInvalidPlatform = errors.New("invalid default platform")

	// ErrInvalidStrategy indicates an unrecognized loading strategy.
	ErrInvalidStrategy = errors.New("invalid loading strategy")

	// ErrNegativeBackupCount indicates max_backup_count below zero.
	ErrNegativeBackupCount = errors.New("max_backup_count must be >= 0")

	// ErrInvalidLogFormat indicates a log format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log format")

	// ErrInvalidPath indicates a path value is malformed.
	ErrInvalidPath = errors.New("invalid path")
)

// Validate checks a Config for validity.
// Returns nil if valid, or a slice of validation errors.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, errors.Wrapf(ErrUnsupportedVersion, "%d", cfg.Version))
	}

	if _, err := platform.ParseKind(cfg.DefaultPlatform); err != nil {
		errs = append(errs, &PlatformError{Platform: cfg.DefaultPlatform, Err: ErrInvalidPlatform})
	}

	if _, err := platform.ParseLoadingStrategy(cfg.Settings.LoadingStrategy); err != nil {
		errs = append(errs, errors.Wrapf(ErrInvalidStrategy, "%q", cfg.Settings.LoadingStrategy))
	}

	if cfg.Settings.MaxBackupCount < 0 {
		errs = append(errs, ErrNegativeBackupCount)
	}

	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, errors.Wrapf(ErrInvalidLogFormat, "%q", cfg.Log.Format))
	}

	for field, path := range map[string]string{
		"settings.backup_directory": cfg.Settings.BackupDirectory,
		"log.file":                  cfg.Log.File,
	} {
		if err := validatePath(path); err != nil {
			errs = append(errs, &PathError{Field: field, Path: path, Err: err})
		}
	}
	for _, dir := range cfg.Directories {
		err := validatePath(dir)
		if dir == "" {
			err = ErrInvalidPath
		}
		if err != nil {
			errs = append(errs, &PathError{Field: "directories", Path: dir, Err: err})
		}
	}

	return errs
}

// validatePath checks if a path string is well-formed.
// It does not check if the path exists, only that it's syntactically valid.
func validatePath(path string) error {
	// Empty paths are valid (they mean "use default")
	if path == "" {
		return nil
	}

	// Check for null bytes which are never valid in paths
	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}

	// Clean the path and check it's not empty after cleaning
	cleaned := filepath.Clean(path)
	if cleaned == "" || cleaned == "." {
		return ErrInvalidPath
	}

	return nil
}

// PlatformError represents an error for a specific platform.
type PlatformError struct {
	Platform string
	Err      error
}

func (e *PlatformError) Error() string {
	return e.Err.Error() + ": " + e.Platform
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// PathError represents an error for a specific path field.
type PathError struct {
	Field string
	Path  string
	Err   error
}

func (e *PathError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Path
}

func (e *PathError) Unwrap() error {
	return e.Err
}
