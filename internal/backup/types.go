package backup

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/thoreinstein/nmsio/internal/errors"
)

// ManifestVersion is the format version of the manifest stored in each
// archive.
const ManifestVersion = 1

// DefaultRetentionCount is the number of archives kept per container when
// no count is configured.
const DefaultRetentionCount = 3

// Archive entry names.
const (
	EntryData     = "data"
	EntryMeta     = "meta"
	EntryManifest = "manifest.json"
)

const (
	namePrefix = "backup"
	nameSuffix = ".zip"
	timeLayout = "20060102150405"
)

// Sentinel errors for backup operations.
var (
	// ErrNoBackupsFound indicates no archive exists for the container.
	ErrNoBackupsFound = errors.New("no backups found")

	// ErrBackupCorrupted indicates an entry does not match the hash recorded
	// in the archive manifest.
	ErrBackupCorrupted = errors.New("backup corrupted")

	// ErrInvalidName indicates a file name that is not a backup archive name.
	ErrInvalidName = errors.New("invalid backup name")
)

// Archive describes one backup archive on disk.
type Archive struct {
	// Path is the absolute path of the zip file.
	Path string

	// Platform is the platform name, e.g. "steam".
	Platform string

	// MetaIndex is the meta index of the archived container.
	MetaIndex int

	// CreatedAt is the creation time with millisecond precision.
	CreatedAt time.Time

	// Version is the base game version of the archived save.
	Version int
}

// Manifest is stored as manifest.json inside every archive.
type Manifest struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Platform   string    `json:"platform"`
	MetaIndex  int       `json:"meta_index"`
	Identifier string    `json:"identifier"`
	GameVer    int       `json:"game_version"`
	DataSHA256 string    `json:"data_sha256"`
	MetaSHA256 string    `json:"meta_sha256,omitempty"`
	Tool       string    `json:"tool_version"`
}

// Name returns the archive file name:
// backup.<platform>.<NN>.<yyyyMMddHHmmssfff>.<version>.zip.
func (a Archive) Name() string {
	return fmt.Sprintf("%s.%s.%02d.%s.%d%s",
		namePrefix, a.Platform, a.MetaIndex, formatTime(a.CreatedAt), a.Version, nameSuffix)
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout) + fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))
}

// ParseName parses an archive file name. The returned Archive has no Path.
func ParseName(name string) (Archive, error) {
	trimmed, ok := strings.CutSuffix(name, nameSuffix)
	if !ok {
		return Archive{}, errors.Wrap(ErrInvalidName, name)
	}
	parts := strings.Split(trimmed, ".")
	if len(parts) != 5 || parts[0] != namePrefix || parts[1] == "" {
		return Archive{}, errors.Wrap(ErrInvalidName, name)
	}

	index, err := strconv.Atoi(parts[2])
	if err != nil || len(parts[2]) < 2 {
		return Archive{}, errors.Wrapf(ErrInvalidName, "%s: meta index", name)
	}

	stamp := parts[3]
	if len(stamp) != len(timeLayout)+3 {
		return Archive{}, errors.Wrapf(ErrInvalidName, "%s: timestamp", name)
	}
	created, err := time.ParseInLocation(timeLayout, stamp[:len(timeLayout)], time.Local)
	if err != nil {
		return Archive{}, errors.Wrapf(ErrInvalidName, "%s: timestamp", name)
	}
	ms, err := strconv.Atoi(stamp[len(timeLayout):])
	if err != nil {
		return Archive{}, errors.Wrapf(ErrInvalidName, "%s: timestamp", name)
	}
	created = created.Add(time.Duration(ms) * time.Millisecond)

	version, err := strconv.Atoi(parts[4])
	if err != nil {
		return Archive{}, errors.Wrapf(ErrInvalidName, "%s: version", name)
	}

	return Archive{
		Platform:  parts[1],
		MetaIndex: index,
		CreatedAt: created,
		Version:   version,
	}, nil
}

// SortNewestFirst sorts archives by creation time, newest first.
func SortNewestFirst(list []Archive) {
	slices.SortStableFunc(list, func(a, b Archive) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
