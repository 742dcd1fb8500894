package backup

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/pkg/fileutil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Manager creates, lists and extracts backup archives in one directory.
type Manager struct {
	dir            string
	retentionCount int
	now            func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithBackupDir sets the directory archives are stored in.
func WithBackupDir(dir string) Option {
	return func(m *Manager) {
		m.dir = dir
	}
}

// WithRetentionCount sets the number of archives kept per container. Zero
// keeps every archive.
func WithRetentionCount(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.retentionCount = n
		}
	}
}

// WithClock overrides the time source used for archive names.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		retentionCount: DefaultRetentionCount,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the backup directory.
func (m *Manager) Dir() string { return m.dir }

// RetentionCount returns the configured number of archives kept per
// container; zero means unlimited.
func (m *Manager) RetentionCount() int { return m.retentionCount }

// Content is what gets archived for one container.
type Content struct {
	Platform   string
	MetaIndex  int
	Identifier string
	GameVer    int
	Data       []byte
	Meta       []byte
}

// Create writes a new archive. Archives created within the same millisecond
// get distinct names by advancing the timestamp.
func (m *Manager) Create(c Content) (Archive, error) {
	if c.Platform == "" {
		return Archive{}, errors.New("platform is required")
	}
	if len(c.Data) == 0 {
		return Archive{}, errors.New("no data to back up")
	}
	if m.dir == "" {
		return Archive{}, errors.New("backup directory is not set")
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Archive{}, errors.Wrap(err, "creating backup directory")
	}

	a := Archive{
		Platform:  c.Platform,
		MetaIndex: c.MetaIndex,
		CreatedAt: m.now().Truncate(time.Millisecond),
		Version:   c.GameVer,
	}
	for {
		a.Path = filepath.Join(m.dir, a.Name())
		if _, err := os.Stat(a.Path); os.IsNotExist(err) {
			break
		}
		a.CreatedAt = a.CreatedAt.Add(time.Millisecond)
	}

	manifest := Manifest{
		Version:    ManifestVersion,
		CreatedAt:  a.CreatedAt.UTC(),
		Platform:   c.Platform,
		MetaIndex:  c.MetaIndex,
		Identifier: c.Identifier,
		GameVer:    c.GameVer,
		DataSHA256: hashBytes(c.Data),
		Tool:       Version,
	}
	if c.Meta != nil {
		manifest.MetaSHA256 = hashBytes(c.Meta)
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Archive{}, errors.Wrap(err, "marshaling manifest")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := []struct {
		name string
		data []byte
	}{
		{EntryData, c.Data},
		{EntryMeta, c.Meta},
		{EntryManifest, manifestData},
	}
	for _, e := range entries {
		if e.name == EntryMeta && e.data == nil {
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: a.CreatedAt,
		})
		if err != nil {
			return Archive{}, errors.Wrapf(err, "adding %s", e.name)
		}
		if _, err := w.Write(e.data); err != nil {
			return Archive{}, errors.Wrapf(err, "writing %s", e.name)
		}
	}
	if err := zw.Close(); err != nil {
		return Archive{}, errors.Wrap(err, "finishing archive")
	}

	if err := fileutil.AtomicWriteFile(a.Path, buf.Bytes(), 0o644); err != nil {
		return Archive{}, errors.Wrap(err, "writing archive")
	}
	return a, nil
}

// List returns the archives of one container, newest first.
func (m *Manager) List(platform string, metaIndex int) ([]Archive, error) {
	all, err := m.ListAll(platform)
	if err != nil {
		return nil, err
	}
	list := all[metaIndex]
	if len(list) == 0 {
		return nil, ErrNoBackupsFound
	}
	return list, nil
}

// ListAll returns the archives of every container of a platform, keyed by
// meta index and sorted newest first. A missing directory yields an empty
// map.
func (m *Manager) ListAll(platform string) (map[int][]Archive, error) {
	out := make(map[int][]Archive)
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, errors.Wrap(err, "reading backup directory")
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		a, err := ParseName(entry.Name())
		if err != nil || a.Platform != platform {
			continue
		}
		a.Path = filepath.Join(m.dir, entry.Name())
		out[a.MetaIndex] = append(out[a.MetaIndex], a)
	}
	for _, list := range out {
		SortNewestFirst(list)
	}
	return out, nil
}

// Remove deletes an archive file. A file that is already gone is not an
// error.
func (m *Manager) Remove(a Archive) error {
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing backup %s", filepath.Base(a.Path))
	}
	return nil
}

// Extract reads the data and meta entries of an archive and verifies them
// against the manifest when one is present. meta is nil for platforms
// without a separate meta block.
func (m *Manager) Extract(a Archive) (data, meta []byte, err error) {
	zr, err := zip.OpenReader(a.Path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening backup %s", filepath.Base(a.Path))
	}
	defer zr.Close()

	var manifest *Manifest
	for _, f := range zr.File {
		content, err := readEntry(f)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading %s", f.Name)
		}
		switch f.Name {
		case EntryData:
			data = content
		case EntryMeta:
			meta = content
		case EntryManifest:
			manifest = &Manifest{}
			if err := json.Unmarshal(content, manifest); err != nil {
				return nil, nil, errors.Wrap(err, "parsing manifest")
			}
		}
	}
	if data == nil {
		return nil, nil, errors.Wrapf(ErrBackupCorrupted, "%s has no data entry", filepath.Base(a.Path))
	}

	if manifest != nil {
		if hashBytes(data) != manifest.DataSHA256 {
			return nil, nil, errors.Wrap(ErrBackupCorrupted, "data hash mismatch")
		}
		if manifest.MetaSHA256 != "" && hashBytes(meta) != manifest.MetaSHA256 {
			return nil, nil, errors.Wrap(ErrBackupCorrupted, "meta hash mismatch")
		}
	}
	return data, meta, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
