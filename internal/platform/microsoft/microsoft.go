// Package microsoft implements the Microsoft Store save layout: a shared
// containers.index listing every container, and per container a directory
// holding a blob container file and the data and meta blobs it names.
package microsoft

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thoreinstein/nmsio/internal/compress"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/meta"
	"github.com/thoreinstein/nmsio/internal/platform"
	"github.com/thoreinstein/nmsio/pkg/fileutil"
)

// AccountIdentifier is the index identifier of the account container.
const AccountIdentifier = "Settings"

// Hooks implements platform.Hooks for the Microsoft Store layout. It keeps
// the parsed index; every mutation rewrites it as a whole.
type Hooks struct {
	format *meta.Format

	mu    sync.RWMutex
	index *Index
}

// New returns the Microsoft hooks.
func New() *Hooks {
	return &Hooks{format: meta.Microsoft()}
}

// Factory is the platform.HooksFactory of the Microsoft Store.
func Factory(string) platform.Hooks { return New() }

// Open creates a Microsoft platform for root, the wgs account directory.
func Open(root string, opts ...platform.Option) (*platform.Platform, error) {
	return platform.New(root, New(), opts...)
}

// Kind implements platform.Hooks.
func (h *Hooks) Kind() platform.Kind { return platform.KindMicrosoft }

// Anchors implements platform.Hooks.
func (h *Hooks) Anchors() []string { return []string{IndexName} }

// SharedIndex implements platform.SharedIndex.
func (h *Hooks) SharedIndex() bool { return true }

// Identifier returns the index identifier of a container.
func Identifier(c *container.Container) string {
	if c.IsAccount() {
		return AccountIdentifier
	}
	return c.Identifier()
}

// Index returns a copy of the parsed index.
func (h *Hooks) Index() *Index {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.index == nil {
		return nil
	}
	x := *h.index
	x.Entries = append([]Entry(nil), h.index.Entries...)
	return &x
}

// Discover implements platform.Hooks.
func (h *Hooks) Discover(p *platform.Platform) (*container.Container, []*container.Container, error) {
	x, err := readIndex(p.Root())
	if err != nil {
		return nil, nil, err
	}
	h.mu.Lock()
	h.index = x
	h.mu.Unlock()

	account := container.New(container.AccountIndex)
	h.apply(p, account, x)
	saves := make([]*container.Container, container.SaveCount)
	for i := range saves {
		c := container.NewForCollectionIndex(i)
		h.apply(p, c, x)
		saves[i] = c
	}
	return account, saves, nil
}

// Refresh implements platform.Hooks. The index is read again from disk.
func (h *Hooks) Refresh(p *platform.Platform, c *container.Container) error {
	x, err := readIndex(p.Root())
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.index = x
	h.mu.Unlock()
	h.apply(p, c, x)
	return nil
}

// apply gives c the state its index entry and blob container describe.
func (h *Hooks) apply(p *platform.Platform, c *container.Container, x *Index) {
	e := c.Extra()
	entry, ok := x.Entry(Identifier(c))
	if !ok {
		e.Microsoft = meta.MicrosoftBlob{}
		c.SetExtra(e)
		c.SetFiles("", "")
		c.SetExists(false)
		c.SetLastWriteTime(time.Time{})
		return
	}

	dir := filepath.Join(p.Root(), FileName(entry.Directory))
	bc, err := readBlobContainer(dir, entry.BlobExtension)
	if err != nil {
		p.Logger().Debug("blob container unreadable", "container", c.Identifier(), "error", err)
		bc = &BlobContainer{}
	}
	data, _ := bc.Blob(BlobData)
	metaBlob, _ := bc.Blob(BlobMeta)

	var dataFile, metaFile string
	if data.Local != uuid.Nil {
		dataFile = filepath.Join(dir, FileName(data.Local))
	}
	if metaBlob.Local != uuid.Nil {
		metaFile = filepath.Join(dir, FileName(metaBlob.Local))
	}
	_, exists := platform.StatFile(dataFile)

	e.Microsoft = blobOf(entry, data, metaBlob)
	c.SetExtra(e)
	c.SetFiles(dataFile, metaFile)
	c.SetExists(exists)
	c.SetLastWriteTime(entry.LastModified)
}

func blobOf(entry *Entry, data, metaBlob Blob) meta.MicrosoftBlob {
	return meta.MicrosoftBlob{
		SyncTime:      entry.SyncTime,
		BlobExtension: entry.BlobExtension,
		SyncState:     entry.SyncState,
		Directory:     entry.Directory,
		LastModified:  toFiletime(entry.LastModified),
		TotalSize:     entry.TotalSize,
		CloudData:     data.Cloud,
		CloudMeta:     metaBlob.Cloud,
		LocalData:     data.Local,
		LocalMeta:     metaBlob.Local,
	}
}

// ReadMeta implements platform.Hooks.
func (h *Hooks) ReadMeta(_ *platform.Platform, c *container.Container) ([]byte, error) {
	if c.MetaFile() == "" {
		return nil, nil
	}
	return platform.ReadFile(c.MetaFile())
}

// ReadData implements platform.Hooks.
func (h *Hooks) ReadData(_ *platform.Platform, c *container.Container) ([]byte, error) {
	return platform.ReadFile(c.DataFile())
}

// DecodeMeta implements platform.Hooks. The index bookkeeping of c is kept.
func (h *Hooks) DecodeMeta(c *container.Container, raw []byte) (meta.Extra, error) {
	current := c.Extra()
	if raw == nil {
		return current, nil
	}
	e, err := h.format.Decode(raw, c.PersistentStorageSlot())
	if err != nil {
		return meta.Extra{}, err
	}
	e.Microsoft = current.Microsoft
	return e, nil
}

// DecodeData implements platform.Hooks.
func (h *Hooks) DecodeData(_ *container.Container, _ meta.Extra, raw []byte) ([]byte, error) {
	if len(raw) > 0 && raw[0] == '{' {
		return raw, nil
	}
	plain, err := compress.DecompressStream(raw, 0)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDecompress, err.Error())
	}
	return plain, nil
}

// EncodeData implements platform.Hooks.
func (h *Hooks) EncodeData(_ *container.Container, _ meta.Extra, plain []byte) ([]byte, error) {
	return compress.CompressStream(plain)
}

// EncodeMeta implements platform.Hooks.
func (h *Hooks) EncodeMeta(c *container.Container, e meta.Extra, plain, data []byte, _ time.Time) ([]byte, meta.Extra, error) {
	e.DecompressedSize = uint32(len(plain))
	e.SizeDisk = uint32(len(data))
	return h.format.Seal(e, c.PersistentStorageSlot())
}

// WritePlatformSpecific implements platform.Hooks. The blobs get new local
// GUIDs and the blob container a new extension; the files they replace are
// removed and the index is rewritten.
func (h *Hooks) WritePlatformSpecific(p *platform.Platform, c *container.Container, e meta.Extra, data, metaBlock []byte, t time.Time) (meta.Extra, time.Time, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == nil {
		return e, time.Time{}, errors.New("containers.index not loaded")
	}

	id := Identifier(c)
	entry, ok := h.index.Entry(id)
	if !ok {
		h.index.Entries = append(h.index.Entries, Entry{
			Identifier:  id,
			Identifier2: id,
			SyncState:   SyncCreated,
			Directory:   uuid.New(),
		})
		entry = &h.index.Entries[len(h.index.Entries)-1]
	}

	dir := filepath.Join(p.Root(), FileName(entry.Directory))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return e, time.Time{}, errors.Wrap(err, "creating container directory")
	}
	old, _ := readBlobContainer(dir, entry.BlobExtension)

	bc := &BlobContainer{Blobs: []Blob{
		{Name: BlobData, Cloud: e.Microsoft.CloudData, Local: uuid.New()},
		{Name: BlobMeta, Cloud: e.Microsoft.CloudMeta, Local: uuid.New()},
	}}
	dataFile := filepath.Join(dir, FileName(bc.Blobs[0].Local))
	metaFile := filepath.Join(dir, FileName(bc.Blobs[1].Local))
	if err := fileutil.AtomicWriteFile(dataFile, data, 0o644); err != nil {
		return e, time.Time{}, err
	}
	if err := fileutil.AtomicWriteFile(metaFile, metaBlock, 0o644); err != nil {
		return e, time.Time{}, err
	}
	stamp, err := p.FinishFiles(t, dataFile, metaFile)
	if err != nil {
		return e, time.Time{}, err
	}
	stamp = Truncate(stamp)

	ext := nextExtension(entry.BlobExtension)
	raw, err := bc.Marshal()
	if err != nil {
		return e, time.Time{}, err
	}
	if err := fileutil.AtomicWriteFile(filepath.Join(dir, BlobContainerName(ext)), raw, 0o644); err != nil {
		return e, time.Time{}, err
	}
	if old != nil {
		stale := []string{filepath.Join(dir, BlobContainerName(entry.BlobExtension))}
		for _, b := range old.Blobs {
			stale = append(stale, filepath.Join(dir, FileName(b.Local)))
		}
		removeStale(p, c, stale)
	}

	entry.BlobExtension = ext
	entry.LastModified = stamp
	entry.TotalSize = uint64(len(data) + len(metaBlock))
	if entry.SyncState != SyncCreated {
		entry.SyncState = SyncModified
	}
	h.index.LastModified = stamp
	if err := writeIndex(p.Root(), h.index); err != nil {
		return e, time.Time{}, err
	}

	c.SetFiles(dataFile, metaFile)
	e.Microsoft = blobOf(entry, bc.Blobs[0], bc.Blobs[1])
	return e, stamp, nil
}

// removeStale deletes the files a write replaced and logs the ones that
// stay behind.
func removeStale(p *platform.Platform, c *container.Container, paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.Logger().Debug("removing replaced blob",
				"container", c.Identifier(), "path", path, "error", err)
		}
	}
}

// DeletePlatformSpecific implements platform.Hooks. The container directory
// and its index entry are removed.
func (h *Hooks) DeletePlatformSpecific(p *platform.Platform, c *container.Container) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == nil {
		return errors.New("containers.index not loaded")
	}
	entry, ok := h.index.Entry(Identifier(c))
	if !ok {
		return nil
	}
	if err := os.RemoveAll(filepath.Join(p.Root(), FileName(entry.Directory))); err != nil {
		return errors.Wrap(err, "removing container directory")
	}
	h.index.Remove(Identifier(c))
	if err := writeIndex(p.Root(), h.index); err != nil {
		return err
	}
	c.SetFiles("", "")
	return nil
}

// AffectedByChange implements platform.Hooks. Only changes of the index
// count: a container is reported when its entry appeared, disappeared or
// carries a time newer than the container last saw.
func (h *Hooks) AffectedByChange(p *platform.Platform, cs []*container.Container, name string) []platform.Change {
	if name != IndexName {
		return nil
	}
	x, err := readIndex(p.Root())
	if err != nil {
		p.Logger().Debug("index unreadable", "error", err)
		return nil
	}
	h.mu.Lock()
	h.index = x
	h.mu.Unlock()

	var changes []platform.Change
	for _, c := range cs {
		entry, ok := x.Entry(Identifier(c))
		var t container.ChangeType
		switch {
		case ok && !c.Exists():
			t = container.ChangeCreated
		case !ok && c.Exists():
			t = container.ChangeDeleted
		case ok && entry.LastModified.After(c.LastWriteTime()):
			t = container.ChangeModified
		default:
			continue
		}
		changes = append(changes, platform.Change{Container: c, Type: t})
	}
	return changes
}

// Identity implements platform.Hooks.
func (h *Hooks) Identity(*platform.Platform) platform.Identity {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id := platform.Identity{PTK: platform.KindMicrosoft.UserTag()}
	if h.index != nil {
		id.UID = h.index.UserID()
	}
	return id
}

func nextExtension(ext uint8) uint8 {
	if ext == 255 {
		return 1
	}
	return ext + 1
}

func readIndex(root string) (*Index, error) {
	b, err := platform.ReadFile(filepath.Join(root, IndexName))
	if err != nil {
		return nil, err
	}
	return ParseIndex(b)
}

func writeIndex(root string, x *Index) error {
	b, err := x.Marshal()
	if err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(filepath.Join(root, IndexName), b, 0o644)
}

func readBlobContainer(dir string, ext uint8) (*BlobContainer, error) {
	b, err := platform.ReadFile(filepath.Join(dir, BlobContainerName(ext)))
	if err != nil {
		return nil, err
	}
	return ParseBlobContainer(b)
}
