package platform

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/meta"
	"github.com/thoreinstein/nmsio/pkg/fileutil"
)

// FileNames names the data and meta file of a container, relative to the
// platform root. An empty meta name means the platform keeps no meta file.
type FileNames interface {
	DataName(metaIndex int) string
	MetaName(metaIndex int) string
}

// PerFile implements the Hooks methods shared by platforms that store every
// container in its own pair of files. Platform hooks embed it and supply
// the codec methods.
type PerFile struct {
	Names FileNames
	// HasAccount is false for layouts without an account container.
	HasAccount bool
}

// Discover implements Hooks.
func (f PerFile) Discover(p *Platform) (*container.Container, []*container.Container, error) {
	var account *container.Container
	if f.HasAccount {
		account = container.New(container.AccountIndex)
		f.refresh(p, account)
	}
	saves := make([]*container.Container, container.SaveCount)
	for i := range saves {
		c := container.NewForCollectionIndex(i)
		f.refresh(p, c)
		saves[i] = c
	}
	return account, saves, nil
}

// Refresh implements Hooks.
func (f PerFile) Refresh(p *Platform, c *container.Container) error {
	f.refresh(p, c)
	return nil
}

func (f PerFile) refresh(p *Platform, c *container.Container) {
	data := filepath.Join(p.Root(), f.Names.DataName(c.MetaIndex()))
	var metaFile string
	if name := f.Names.MetaName(c.MetaIndex()); name != "" {
		metaFile = filepath.Join(p.Root(), name)
	}
	c.SetFiles(data, metaFile)
	mtime, ok := StatFile(data)
	c.SetExists(ok)
	c.SetLastWriteTime(mtime)
}

// ReadMeta implements Hooks. A missing meta file yields nil.
func (f PerFile) ReadMeta(_ *Platform, c *container.Container) ([]byte, error) {
	if c.MetaFile() == "" {
		return nil, nil
	}
	b, err := os.ReadFile(c.MetaFile())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filepath.Base(c.MetaFile()))
	}
	return b, nil
}

// ReadData implements Hooks.
func (f PerFile) ReadData(_ *Platform, c *container.Container) ([]byte, error) {
	return ReadFile(c.DataFile())
}

// WritePlatformSpecific implements Hooks.
func (f PerFile) WritePlatformSpecific(p *Platform, c *container.Container, e meta.Extra, data, metaBlock []byte, t time.Time) (meta.Extra, time.Time, error) {
	if c.DataFile() == "" {
		f.refresh(p, c)
	}
	if err := fileutil.AtomicWriteFile(c.DataFile(), data, 0o644); err != nil {
		return e, time.Time{}, err
	}
	paths := []string{c.DataFile()}
	if c.MetaFile() != "" && metaBlock != nil {
		if err := fileutil.AtomicWriteFile(c.MetaFile(), metaBlock, 0o644); err != nil {
			return e, time.Time{}, err
		}
		paths = append(paths, c.MetaFile())
	}
	stamp, err := p.FinishFiles(t, paths...)
	return e, stamp, err
}

// DeletePlatformSpecific implements Hooks.
func (f PerFile) DeletePlatformSpecific(_ *Platform, c *container.Container) error {
	for _, path := range []string{c.DataFile(), c.MetaFile()} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing %s", filepath.Base(path))
		}
	}
	return nil
}

// AffectedByChange implements Hooks. Only the container whose data or meta
// file changed is reported, and only when the change is newer than what the
// container last saw.
func (f PerFile) AffectedByChange(p *Platform, cs []*container.Container, name string) []Change {
	for _, c := range cs {
		mi := c.MetaIndex()
		if name != f.Names.DataName(mi) && (f.Names.MetaName(mi) == "" || name != f.Names.MetaName(mi)) {
			continue
		}
		if t := FileChange(c, filepath.Join(p.Root(), f.Names.DataName(mi))); t != container.ChangeNone {
			return []Change{{Container: c, Type: t}}
		}
		return nil
	}
	return nil
}

// ReadFile reads a whole file. A missing file is an ErrMissingFile
// incompatibility.
func ReadFile(path string) ([]byte, error) {
	b, err := fileutil.ReadFileWithLimit(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(errors.ErrMissingFile, filepath.Base(path))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filepath.Base(path))
	}
	return b, nil
}

// StatFile returns the modification time of a regular file and whether it
// exists.
func StatFile(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// FileChange compares a data file with what c last saw.
func FileChange(c *container.Container, path string) container.ChangeType {
	mtime, ok := StatFile(path)
	switch {
	case ok && !c.Exists():
		return container.ChangeCreated
	case !ok && c.Exists():
		return container.ChangeDeleted
	case ok && mtime.After(c.LastWriteTime()):
		return container.ChangeModified
	default:
		return container.ChangeNone
	}
}

// FinishFiles applies the write time policy to freshly written files and
// returns the last write time the container carries: t when
// SetLastWriteTime is on, the first file's modification time otherwise.
func (p *Platform) FinishFiles(t time.Time, paths ...string) (time.Time, error) {
	if p.settings.SetLastWriteTime {
		for _, path := range paths {
			if err := os.Chtimes(path, t, t); err != nil {
				return time.Time{}, errors.Wrapf(err, "setting time of %s", filepath.Base(path))
			}
		}
		return t, nil
	}
	if len(paths) == 0 {
		return p.now(), nil
	}
	mtime, _ := StatFile(paths[0])
	return mtime, nil
}
