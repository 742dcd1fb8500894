package platform

import (
	"strings"

	"github.com/thoreinstein/nmsio/internal/errors"
)

// LoadingStrategy decides how much of a platform is decoded up front and
// when payloads are parsed or dropped.
type LoadingStrategy int

// Strategies from least to most eager.
const (
	// Empty decodes nothing at construction. Load decodes the meta block.
	Empty LoadingStrategy = iota
	// Hollow decodes every meta block at construction and never parses a
	// payload.
	Hollow
	// Current parses a payload on Load and unloads the previously current
	// container.
	Current
	// Partial parses a payload on Load and keeps every loaded container.
	Partial
	// Full parses every payload at construction.
	Full
)

var strategyNames = [...]string{"empty", "hollow", "current", "partial", "full"}

// ErrUnknownStrategy is returned by ParseLoadingStrategy.
var ErrUnknownStrategy = errors.New("unknown loading strategy")

func (s LoadingStrategy) String() string {
	if s < Empty || s > Full {
		return "unknown"
	}
	return strategyNames[s]
}

// ParseLoadingStrategy parses a strategy name, case insensitively.
func ParseLoadingStrategy(s string) (LoadingStrategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range strategyNames {
		if name == s {
			return LoadingStrategy(i), nil
		}
	}
	return Empty, errors.Wrapf(ErrUnknownStrategy, "%q", s)
}

// DefaultMaxBackupCount is the number of archives kept per container.
const DefaultMaxBackupCount = 3

// Settings control a Platform.
type Settings struct {
	LoadingStrategy LoadingStrategy

	// MaxBackupCount is the number of archives kept per container. Zero keeps
	// every archive.
	MaxBackupCount int
	// BackupDirectory defaults to <root>/backup.
	BackupDirectory string

	// WriteAlways writes containers that are already synced.
	WriteAlways bool
	// SetLastWriteTime sets file times to the time passed to Write.
	SetLastWriteTime bool

	// UseExternalSourcesForUserIdentification allows the Steam persona lookup.
	UseExternalSourcesForUserIdentification bool
	// UseMapping runs payloads through the deobfuscator.
	UseMapping bool

	// Watcher enables the external change watcher.
	Watcher bool
	// WatcherIgnore lists extra path patterns the watcher ignores, relative
	// to the platform root.
	WatcherIgnore []string
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		LoadingStrategy:  Hollow,
		MaxBackupCount:   DefaultMaxBackupCount,
		SetLastWriteTime: true,
		UseMapping:       true,
	}
}
