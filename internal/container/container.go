package container

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thoreinstein/nmsio/internal/backup"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/gameversion"
	"github.com/thoreinstein/nmsio/internal/meta"
)

// Meta index layout shared by every platform.
const (
	AccountIndex   = 0
	FirstSaveIndex = 2
	LastSaveIndex  = 31

	// SaveCount is the number of save containers (auto and manual of every
	// slot).
	SaveCount = LastSaveIndex - FirstSaveIndex + 1
	// SlotCount is the number of save slots.
	SlotCount = SaveCount / 2
)

// SaveType distinguishes the two containers of a slot.
type SaveType int

const (
	Auto SaveType = iota
	Manual
)

func (t SaveType) String() string {
	if t == Manual {
		return "Manual"
	}
	return "Auto"
}

// ChangeType describes an external file change seen by the watcher.
type ChangeType int

const (
	ChangeNone ChangeType = iota
	ChangeCreated
	ChangeModified
	ChangeDeleted
	ChangeRenamed
)

func (t ChangeType) String() string {
	switch t {
	case ChangeCreated:
		return "created"
	case ChangeModified:
		return "modified"
	case ChangeDeleted:
		return "deleted"
	case ChangeRenamed:
		return "renamed"
	default:
		return "none"
	}
}

// Container is one save slot or the account data slot.
type Container struct {
	metaIndex int
	isBackup  bool

	mu            sync.RWMutex
	exists        bool
	dataFile      string
	metaFile      string
	payload       map[string]any
	order         *KeyOrder
	trailingNUL   bool
	synced        bool
	incompat      error
	watcherChange ChangeType
	lastWrite     time.Time
	backups       []backup.Archive
	unknownKeys   map[string]struct{}

	extra atomic.Pointer[meta.Extra]

	baseVersion memo[int]
	gameMode    memo[gameversion.GameMode]
	season      memo[gameversion.Season]

	observers observers
}

// New returns an empty container for a meta index. Indices outside the valid
// range panic; they indicate a programming error in the caller.
func New(metaIndex int) *Container {
	if metaIndex != AccountIndex && (metaIndex < FirstSaveIndex || metaIndex > LastSaveIndex) {
		panic(fmt.Sprintf("container: invalid meta index %d", metaIndex))
	}
	c := &Container{metaIndex: metaIndex}
	c.extra.Store(&meta.Extra{})
	return c
}

// NewForCollectionIndex returns an empty save container.
func NewForCollectionIndex(collectionIndex int) *Container {
	return New(collectionIndex + FirstSaveIndex)
}

// NewBackup returns a container that holds the content of a backup archive
// for meta index metaIndex.
func NewBackup(metaIndex int) *Container {
	c := New(metaIndex)
	c.isBackup = true
	return c
}

// MetaIndex is the absolute index: 0 for the account, 2..31 for saves.
func (c *Container) MetaIndex() int { return c.metaIndex }

// CollectionIndex is the zero based save index. It is -1 for the account.
func (c *Container) CollectionIndex() int {
	if c.IsAccount() {
		return -1
	}
	return c.metaIndex - FirstSaveIndex
}

// SlotIndex is the zero based slot the container belongs to. It is -1 for
// the account.
func (c *Container) SlotIndex() int {
	if c.IsAccount() {
		return -1
	}
	return c.CollectionIndex() / 2
}

// SaveType reports whether the container is the auto or manual save of its
// slot.
func (c *Container) SaveType() SaveType {
	if c.IsAccount() {
		return Auto
	}
	return SaveType(c.CollectionIndex() % 2)
}

// PersistentStorageSlot is the platform independent slot used as cipher key
// material: AccountData for the account, the meta index for saves.
func (c *Container) PersistentStorageSlot() uint32 {
	if c.IsAccount() {
		return meta.SlotAccountData
	}
	return uint32(c.metaIndex)
}

// Identifier is the display name of the container, e.g. "Slot3Manual".
func (c *Container) Identifier() string {
	if c.IsAccount() {
		return "AccountData"
	}
	return fmt.Sprintf("Slot%d%s", c.SlotIndex()+1, c.SaveType())
}

func (c *Container) String() string { return c.Identifier() }

func (c *Container) IsAccount() bool { return c.metaIndex == AccountIndex }
func (c *Container) IsSave() bool    { return c.metaIndex >= FirstSaveIndex }
func (c *Container) IsBackup() bool  { return c.isBackup }

// Exists reports whether the container has data on disk.
func (c *Container) Exists() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exists
}

// IsCompatible reports whether the container exists and no incompatibility
// has been recorded.
func (c *Container) IsCompatible() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exists && c.incompat == nil
}

// IsLoaded reports whether the container is compatible and its payload has
// been parsed.
func (c *Container) IsLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exists && c.incompat == nil && c.payload != nil
}

// IsSynced reports whether the in-memory state matches the files on disk.
func (c *Container) IsSynced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}

// SetExists records whether the container has data on disk.
func (c *Container) SetExists(exists bool) {
	c.mu.Lock()
	changed := c.exists != exists
	c.exists = exists
	c.mu.Unlock()
	if changed {
		c.notifyPropertyChanged(PropertyExists)
	}
}

// SetFiles records the data and meta file locations. Either may be empty,
// both may name the same shared file.
func (c *Container) SetFiles(data, metaFile string) {
	c.mu.Lock()
	c.dataFile, c.metaFile = data, metaFile
	c.mu.Unlock()
}

func (c *Container) DataFile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dataFile
}

func (c *Container) MetaFile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metaFile
}

// MarkSynced records that memory and disk agree.
func (c *Container) MarkSynced() { c.setSynced(true) }

// MarkUnsynced records that memory holds changes not on disk.
func (c *Container) MarkUnsynced() { c.setSynced(false) }

func (c *Container) setSynced(v bool) {
	c.mu.Lock()
	changed := c.synced != v
	c.synced = v
	c.mu.Unlock()
	if changed {
		c.notifyPropertyChanged(PropertySynced)
	}
}

// Incompatibility returns the recorded decode failure, or nil.
func (c *Container) Incompatibility() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.incompat
}

var incompatibilityTags = []error{
	errors.ErrHeaderMismatch,
	errors.ErrUnknownMetaLength,
	errors.ErrKeySearchExhausted,
	errors.ErrDecompress,
	errors.ErrJSON,
	errors.ErrMissingFile,
	errors.ErrDeleted,
}

// IncompatibilityTag returns a short reason for the recorded failure, or ""
// when the container is compatible.
func (c *Container) IncompatibilityTag() string {
	err := c.Incompatibility()
	if err == nil {
		return ""
	}
	for _, tag := range incompatibilityTags {
		if errors.Is(err, tag) {
			return tag.Error()
		}
	}
	return err.Error()
}

// SetIncompatible records a decode failure. Errors that are not already
// incompatibility tags are marked as such.
func (c *Container) SetIncompatible(err error) {
	if err != nil && !errors.Is(err, errors.ErrIncompatible) {
		err = errors.Mark(err, errors.ErrIncompatible)
	}
	c.mu.Lock()
	c.incompat = err
	if err != nil {
		c.payload = nil
	}
	c.mu.Unlock()
	c.notifyPropertyChanged(PropertyCompatibility)
}

// ClearIncompatible removes a recorded failure before a fresh decode.
func (c *Container) ClearIncompatible() {
	c.mu.Lock()
	had := c.incompat != nil
	c.incompat = nil
	c.mu.Unlock()
	if had {
		c.notifyPropertyChanged(PropertyCompatibility)
	}
}

// Extra returns the current meta snapshot.
func (c *Container) Extra() meta.Extra {
	return c.extra.Load().Clone()
}

// SetExtra replaces the meta snapshot.
func (c *Container) SetExtra(e meta.Extra) {
	e = e.Clone()
	c.extra.Store(&e)
	c.clearMemos()
	c.notifyPropertyChanged(PropertyExtra)
}

// UpdateExtra replaces the meta snapshot with fn applied to the current one.
// fn may run more than once when updates race.
func (c *Container) UpdateExtra(fn func(meta.Extra) meta.Extra) meta.Extra {
	for {
		old := c.extra.Load()
		next := fn(old.Clone())
		if c.extra.CompareAndSwap(old, &next) {
			c.clearMemos()
			c.notifyPropertyChanged(PropertyExtra)
			return next.Clone()
		}
	}
}

// LastWriteTime is the modification time of the container's data.
func (c *Container) LastWriteTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastWrite
}

func (c *Container) SetLastWriteTime(t time.Time) {
	c.mu.Lock()
	c.lastWrite = t
	c.mu.Unlock()
	c.notifyPropertyChanged(PropertyLastWriteTime)
}

// Backups returns the container's backup archives, newest first.
func (c *Container) Backups() []backup.Archive {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.backups)
}

// SetBackups replaces the backup list. It is sorted newest first.
func (c *Container) SetBackups(list []backup.Archive) {
	list = slices.Clone(list)
	backup.SortNewestFirst(list)
	c.mu.Lock()
	c.backups = list
	c.mu.Unlock()
	c.notifyPropertyChanged(PropertyBackups)
}

// AddBackup records a new archive and notifies subscribers. When max is
// positive and exceeded, the oldest entries are removed from the list and
// returned so the caller can delete their files.
func (c *Container) AddBackup(a backup.Archive, max int) (evicted []backup.Archive) {
	c.mu.Lock()
	c.backups = append([]backup.Archive{a}, c.backups...)
	backup.SortNewestFirst(c.backups)
	if max > 0 && len(c.backups) > max {
		evicted = slices.Clone(c.backups[max:])
		c.backups = c.backups[:max]
	}
	c.mu.Unlock()
	c.notifyPropertyChanged(PropertyBackups)
	c.notifyBackupCreated(a)
	return evicted
}

// HasWatcherChange reports whether an external change awaits a decision.
func (c *Container) HasWatcherChange() bool {
	return c.WatcherChangeType() != ChangeNone
}

func (c *Container) WatcherChangeType() ChangeType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.watcherChange
}

// SetWatcherChange flags an external change. ChangeNone clears the flag.
func (c *Container) SetWatcherChange(t ChangeType) {
	c.mu.Lock()
	c.watcherChange = t
	c.mu.Unlock()
	c.notifyPropertyChanged(PropertyWatcherChange)
}

// UnknownKeys returns the payload keys the deobfuscator could not map.
func (c *Container) UnknownKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.unknownKeys))
	for k := range c.unknownKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (c *Container) SetUnknownKeys(keys map[string]struct{}) {
	c.mu.Lock()
	c.unknownKeys = keys
	c.mu.Unlock()
}

// GameMode returns the game mode from the meta block, or inferred from the
// save version for saves whose meta predates the field.
func (c *Container) GameMode() gameversion.GameMode {
	return c.gameMode.get(func() gameversion.GameMode {
		e := c.extra.Load()
		if e.GameMode != gameversion.Unspecified {
			return e.GameMode
		}
		if save, ok := c.jsonSaveVersion(); ok {
			_, mode, _ := gameversion.Infer(save)
			return mode
		}
		return gameversion.Unspecified
	})
}

// Season returns the expedition season, zero when there is none.
func (c *Container) Season() gameversion.Season {
	return c.season.get(func() gameversion.Season {
		e := c.extra.Load()
		if e.GameMode != gameversion.Unspecified {
			return e.Season
		}
		if save, ok := c.jsonSaveVersion(); ok {
			_, _, season := gameversion.Infer(save)
			return season
		}
		return gameversion.SeasonNone
	})
}

// BaseVersion returns the game build version the save was written by.
func (c *Container) BaseVersion() int {
	return c.baseVersion.get(func() int {
		if base := c.extra.Load().BaseVersion; base != 0 {
			return int(base)
		}
		save, ok := c.jsonSaveVersion()
		if !ok {
			return 0
		}
		mode := c.GameMode()
		if c.extra.Load().GameMode == gameversion.Unspecified {
			base, _, _ := gameversion.Infer(save)
			return base
		}
		return gameversion.BaseVersion(save, mode, c.Season())
	})
}

// SaveVersion returns the version stored in the payload, or the one implied
// by the meta block when the payload is not loaded.
func (c *Container) SaveVersion() int {
	if save, ok := c.jsonSaveVersion(); ok {
		return save
	}
	base := c.BaseVersion()
	if base == 0 {
		return 0
	}
	return gameversion.SaveVersion(base, c.GameMode(), c.Season())
}

// Era returns the meta era of the container's base version.
func (c *Container) Era() gameversion.Era {
	return gameversion.EraFor(c.BaseVersion())
}

func (c *Container) clearMemos() {
	c.baseVersion.clear()
	c.gameMode.clear()
	c.season.clear()
}

// Unload drops the parsed payload and keeps everything else.
func (c *Container) Unload() {
	c.mu.Lock()
	had := c.payload != nil
	c.payload = nil
	c.mu.Unlock()
	if had {
		c.clearMemos()
		c.notifyJSONChanged()
	}
}

// Reset returns the container to its freshly constructed state. Identity,
// file locations, backups and subscribers are kept.
func (c *Container) Reset() {
	c.mu.Lock()
	c.exists = false
	c.payload = nil
	c.order = nil
	c.trailingNUL = false
	c.synced = false
	c.incompat = nil
	c.watcherChange = ChangeNone
	c.lastWrite = time.Time{}
	c.unknownKeys = nil
	c.mu.Unlock()
	c.extra.Store(&meta.Extra{})
	c.clearMemos()
	c.notifyPropertyChanged(PropertyExtra)
}
