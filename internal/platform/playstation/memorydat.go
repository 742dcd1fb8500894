package playstation

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/thoreinstein/nmsio/internal/compress"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/meta"
	"github.com/thoreinstein/nmsio/internal/platform"
	"github.com/thoreinstein/nmsio/pkg/fileutil"
)

// memory.dat layout. The meta table holds one entry per meta index; the
// account and every save own a fixed region behind it.
const (
	metaEntrySize = 0x20
	metaTableSize = metaEntrySize * (container.LastSaveIndex + 1)
	accountOffset = 0x20000
	accountSize   = 0x40000
	saveOffset    = 0x60000
	saveSize      = 0x300000
)

// region returns the offset and capacity of the data region of a meta
// index.
func region(metaIndex int) (offset, size int) {
	if metaIndex == container.AccountIndex {
		return accountOffset, accountSize
	}
	return saveOffset + (metaIndex-container.FirstSaveIndex)*saveSize, saveSize
}

// placement returns where the data of a meta index lives: the chunk the
// meta entry records when it lies inside the region, the whole region
// otherwise.
func placement(metaIndex int, e meta.Extra) (offset, size int) {
	off, size := region(metaIndex)
	co, cs := int(e.ChunkOffset), int(e.ChunkSize)
	if cs > 0 && co >= off && co+cs <= off+size {
		return co, cs
	}
	return off, size
}

// MemoryDat implements platform.Hooks for the legacy single file layout.
// The whole file is cached; every mutation rewrites it.
type MemoryDat struct {
	format *meta.Format

	mu  sync.RWMutex
	buf []byte
}

// NewMemoryDat returns the memory.dat hooks.
func NewMemoryDat() *MemoryDat {
	return &MemoryDat{format: meta.MemoryDat()}
}

// Kind implements platform.Hooks.
func (h *MemoryDat) Kind() platform.Kind { return platform.KindPlayStation }

// Anchors implements platform.Hooks.
func (h *MemoryDat) Anchors() []string { return []string{MemoryDatName} }

// SharedIndex implements platform.SharedIndex.
func (h *MemoryDat) SharedIndex() bool { return true }

func (h *MemoryDat) path(p *platform.Platform) string {
	return filepath.Join(p.Root(), MemoryDatName)
}

// Discover implements platform.Hooks.
func (h *MemoryDat) Discover(p *platform.Platform) (*container.Container, []*container.Container, error) {
	if err := h.reload(p); err != nil {
		return nil, nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	account := container.New(container.AccountIndex)
	h.apply(p, account)
	saves := make([]*container.Container, container.SaveCount)
	for i := range saves {
		c := container.NewForCollectionIndex(i)
		h.apply(p, c)
		saves[i] = c
	}
	return account, saves, nil
}

// Refresh implements platform.Hooks.
func (h *MemoryDat) Refresh(p *platform.Platform, c *container.Container) error {
	if err := h.reload(p); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.apply(p, c)
	return nil
}

func (h *MemoryDat) reload(p *platform.Platform) error {
	b, err := platform.ReadFile(h.path(p))
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.buf = b
	h.mu.Unlock()
	return nil
}

// entry returns the meta table entry of a meta index, nil when the slot is
// empty. Callers hold mu.
func (h *MemoryDat) entry(metaIndex int) []byte {
	off := metaIndex * metaEntrySize
	if off+metaEntrySize > len(h.buf) {
		return nil
	}
	e := h.buf[off : off+metaEntrySize]
	if meta.Peek(e) == 0 {
		return nil
	}
	return e
}

// apply sets what the cached file says about c. Callers hold mu.
func (h *MemoryDat) apply(p *platform.Platform, c *container.Container) {
	path := h.path(p)
	c.SetFiles(path, path)
	raw := h.entry(c.MetaIndex())
	c.SetExists(raw != nil)
	c.SetLastWriteTime(h.stamp(c, raw))
}

// stamp returns the write time an entry records, in whole seconds.
func (h *MemoryDat) stamp(c *container.Container, raw []byte) time.Time {
	if raw == nil {
		return time.Time{}
	}
	e, err := h.format.Decode(raw, c.PersistentStorageSlot())
	if err != nil || e.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(int64(e.Timestamp), 0)
}

// ReadMeta implements platform.Hooks.
func (h *MemoryDat) ReadMeta(_ *platform.Platform, c *container.Container) ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.entry(c.MetaIndex())), nil
}

// ReadData implements platform.Hooks. The decoded meta entry locates the
// data inside the container's region.
func (h *MemoryDat) ReadData(_ *platform.Platform, c *container.Container) ([]byte, error) {
	e := c.Extra()
	off, size := region(c.MetaIndex())
	if e.ChunkOffset != 0 {
		off = int(e.ChunkOffset)
	}
	n := int(e.CompressedSize)
	if n == 0 {
		return nil, errors.Wrapf(errors.ErrMissingFile, "%s: empty region", c.Identifier())
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if n > size || off+n > len(h.buf) {
		return nil, errors.Wrapf(errors.ErrDecompress, "%s: %d bytes at %#x exceed the file", c.Identifier(), n, off)
	}
	return slices.Clone(h.buf[off : off+n]), nil
}

// DecodeMeta implements platform.Hooks.
func (h *MemoryDat) DecodeMeta(c *container.Container, raw []byte) (meta.Extra, error) {
	if raw == nil {
		return meta.Extra{}, nil
	}
	return h.format.Decode(raw, c.PersistentStorageSlot())
}

// DecodeData implements platform.Hooks.
func (h *MemoryDat) DecodeData(_ *container.Container, e meta.Extra, raw []byte) ([]byte, error) {
	if len(raw) > 0 && raw[0] == '{' {
		return raw, nil
	}
	plain, err := compress.DecompressBlock(raw, int(e.DecompressedSize))
	if err != nil {
		return nil, errors.Wrap(errors.ErrDecompress, err.Error())
	}
	return plain, nil
}

// EncodeData implements platform.Hooks.
func (h *MemoryDat) EncodeData(_ *container.Container, _ meta.Extra, plain []byte) ([]byte, error) {
	return compress.CompressBlock(plain)
}

// EncodeMeta implements platform.Hooks. The chunk the entry records is
// kept; data larger than it aborts the write.
func (h *MemoryDat) EncodeMeta(c *container.Container, e meta.Extra, plain, data []byte, t time.Time) ([]byte, meta.Extra, error) {
	off, size := placement(c.MetaIndex(), e)
	if len(data) > size {
		return nil, e, errors.Aborted("%s needs %d bytes, its memory.dat chunk holds %d", c.Identifier(), len(data), size)
	}
	e.CompressedSize = uint32(len(data))
	e.DecompressedSize = uint32(len(plain))
	e.ChunkOffset = uint32(off)
	e.ChunkSize = uint32(size)
	e.MetaIndex = uint32(c.MetaIndex())
	e.Timestamp = uint32(t.Unix())
	return h.format.Seal(e, c.PersistentStorageSlot())
}

// WritePlatformSpecific implements platform.Hooks. Only the chunk EncodeMeta
// placed the data in is replaced; the file grows to cover it when shorter.
func (h *MemoryDat) WritePlatformSpecific(p *platform.Platform, c *container.Container, e meta.Extra, data, metaBlock []byte, t time.Time) (meta.Extra, time.Time, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	off, size := placement(c.MetaIndex(), e)
	buf := h.grow(off + size)
	clear(buf[off : off+size])
	copy(buf[off:], data)
	entry := c.MetaIndex() * metaEntrySize
	clear(buf[entry : entry+metaEntrySize])
	copy(buf[entry:], metaBlock)

	path := h.path(p)
	if err := fileutil.AtomicWriteFile(path, buf, 0o644); err != nil {
		return e, time.Time{}, err
	}
	h.buf = buf
	c.SetFiles(path, path)
	if _, err := p.FinishFiles(t, path); err != nil {
		return e, time.Time{}, err
	}
	return e, time.Unix(int64(e.Timestamp), 0), nil
}

// grow returns a copy of the cached file at least n bytes long. Callers
// hold mu.
func (h *MemoryDat) grow(n int) []byte {
	size := max(len(h.buf), n, metaTableSize)
	buf := make([]byte, size)
	copy(buf, h.buf)
	return buf
}

// DeletePlatformSpecific implements platform.Hooks. The meta entry and the
// chunk it records are zeroed.
func (h *MemoryDat) DeletePlatformSpecific(p *platform.Platform, c *container.Container) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf := slices.Clone(h.buf)
	entry := c.MetaIndex() * metaEntrySize
	if entry+metaEntrySize <= len(buf) {
		clear(buf[entry : entry+metaEntrySize])
	}
	off, size := placement(c.MetaIndex(), c.Extra())
	if off < len(buf) {
		clear(buf[off:min(off+size, len(buf))])
	}
	if err := fileutil.AtomicWriteFile(h.path(p), buf, 0o644); err != nil {
		return err
	}
	h.buf = buf
	return nil
}

// AffectedByChange implements platform.Hooks. A change of memory.dat is
// compared entry by entry with what the containers last saw.
func (h *MemoryDat) AffectedByChange(p *platform.Platform, cs []*container.Container, name string) []platform.Change {
	if name != MemoryDatName {
		return nil
	}
	b, err := os.ReadFile(h.path(p))
	if err != nil {
		p.Logger().Debug("re-reading memory.dat", "error", err)
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if bytes.Equal(b, h.buf) {
		return nil
	}
	h.buf = b

	var out []platform.Change
	for _, c := range cs {
		raw := h.entry(c.MetaIndex())
		var t container.ChangeType
		switch {
		case raw != nil && !c.Exists():
			t = container.ChangeCreated
		case raw == nil && c.Exists():
			t = container.ChangeDeleted
		case raw != nil && h.stamp(c, raw).After(c.LastWriteTime()):
			t = container.ChangeModified
		default:
			continue
		}
		out = append(out, platform.Change{Container: c, Type: t})
	}
	return out
}

// Identity implements platform.Hooks.
func (h *MemoryDat) Identity(*platform.Platform) platform.Identity {
	return identity()
}
