package platform

import (
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/thoreinstein/nmsio/internal/backup"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/meta"
	"github.com/thoreinstein/nmsio/internal/steamid"
)

// Hooks is the platform specific part of a Platform. Each storage platform
// provides one implementation; the Platform drives it and owns every
// container state transition.
//
// Hooks never mark containers synced or incompatible themselves. Read and
// decode methods return errors and the Platform records them.
type Hooks interface {
	// Kind returns the platform kind.
	Kind() Kind

	// Anchors returns glob patterns, relative to a root directory, whose
	// presence identifies the layout.
	Anchors() []string

	// Discover creates the account container and all save containers with
	// their file locations, existence and last write time.
	Discover(p *Platform) (account *container.Container, saves []*container.Container, err error)

	// Refresh re-reads the on-disk state of one container: existence, file
	// locations and last write time.
	Refresh(p *Platform, c *container.Container) error

	// ReadMeta returns the raw meta block of a container.
	ReadMeta(p *Platform, c *container.Container) ([]byte, error)

	// ReadData returns the raw data file content of a container.
	ReadData(p *Platform, c *container.Container) ([]byte, error)

	// DecodeMeta decodes a raw meta block. The current Extra of c carries
	// platform bookkeeping that must survive the decode.
	DecodeMeta(c *container.Container, raw []byte) (meta.Extra, error)

	// DecodeData turns raw data into the plain JSON payload.
	DecodeData(c *container.Container, e meta.Extra, raw []byte) ([]byte, error)

	// EncodeData turns a plain JSON payload into raw data.
	EncodeData(c *container.Container, e meta.Extra, plain []byte) ([]byte, error)

	// EncodeMeta builds the meta block for freshly encoded data and returns
	// the Extra it describes.
	EncodeMeta(c *container.Container, e meta.Extra, plain, data []byte, t time.Time) ([]byte, meta.Extra, error)

	// WritePlatformSpecific stores encoded data and meta and returns the
	// last write time the container now carries.
	WritePlatformSpecific(p *Platform, c *container.Container, e meta.Extra, data, metaBlock []byte, t time.Time) (meta.Extra, time.Time, error)

	// DeletePlatformSpecific removes the container's files, updating shared
	// indexes.
	DeletePlatformSpecific(p *Platform, c *container.Container) error

	// AffectedByChange returns which of cs an external change to the file
	// name, relative to the root, touched. It runs with the platform locked
	// and must not call Platform methods that lock.
	AffectedByChange(p *Platform, cs []*container.Container, name string) []Change

	// Identity returns what the platform knows about its user without
	// looking into payloads.
	Identity(p *Platform) Identity
}

// SharedIndex is implemented by hooks whose containers live in one shared
// file. Their bootstrap decodes containers concurrently.
type SharedIndex interface {
	SharedIndex() bool
}

// RootFilter is implemented by hooks that accept only some directories even
// when the anchors match.
type RootFilter interface {
	AcceptsRoot(root string) bool
}

// Change is one container touched by an external file change.
type Change struct {
	Container *container.Container
	Type      container.ChangeType
}

// Platform is one save directory of one storage platform.
//
// Only one Platform may work on a root directory at a time.
type Platform struct {
	root     string
	hooks    Hooks
	settings Settings
	logger   *slog.Logger
	mapper   container.Deobfuscator
	resolver steamid.Resolver
	backups  *backup.Manager
	now      func() time.Time

	mu      sync.Mutex
	account *container.Container
	saves   []*container.Container
	current *container.Container
	hollow  map[*container.Container]bool
	watcher *watcher

	destination     *Identity
	destinationSlot int
}

// Option configures a Platform.
type Option func(*Platform)

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(p *Platform) {
		p.settings = s
	}
}

// WithLogger sets the logger. The default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(p *Platform) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDeobfuscator sets the key mapper used when UseMapping is on.
func WithDeobfuscator(d container.Deobfuscator) Option {
	return func(p *Platform) {
		if d != nil {
			p.mapper = d
		}
	}
}

// WithResolver sets the user name lookup used when external sources are
// allowed.
func WithResolver(r steamid.Resolver) Option {
	return func(p *Platform) {
		p.resolver = r
	}
}

// WithClock overrides the time source for backups and file operations.
func WithClock(now func() time.Time) Option {
	return func(p *Platform) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Platform for root, discovers its containers and decodes
// them as far as the loading strategy asks.
func New(root string, hooks Hooks, opts ...Option) (*Platform, error) {
	if hooks == nil {
		return nil, errors.New("platform hooks are required")
	}
	p := &Platform{
		root:     filepath.Clean(root),
		hooks:    hooks,
		settings: DefaultSettings(),
		logger:   slog.Default(),
		mapper:   container.IdentityMapper{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("platform", hooks.Kind().String(), "root", p.root)

	backupDir := p.settings.BackupDirectory
	if backupDir == "" {
		backupDir = filepath.Join(p.root, "backup")
	}
	p.backups = backup.NewManager(
		backup.WithBackupDir(backupDir),
		backup.WithRetentionCount(p.settings.MaxBackupCount),
		backup.WithClock(p.now),
	)

	p.mu.Lock()
	err := p.bootstrap()
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if p.settings.Watcher {
		if err := p.startWatcher(); err != nil {
			p.logger.Warn("watcher not started", "error", err)
		}
	}
	return p, nil
}

// Close stops the watcher.
func (p *Platform) Close() error {
	p.mu.Lock()
	w := p.watcher
	p.watcher = nil
	p.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.close()
}

// Kind returns the platform kind.
func (p *Platform) Kind() Kind { return p.hooks.Kind() }

// Root returns the platform directory.
func (p *Platform) Root() string { return p.root }

// Settings returns the active settings.
func (p *Platform) Settings() Settings { return p.settings }

// Logger returns the platform logger, for hooks.
func (p *Platform) Logger() *slog.Logger { return p.logger }

// BackupManager returns the archive manager.
func (p *Platform) BackupManager() *backup.Manager { return p.backups }

// Account returns the account container, or nil when the platform has none.
func (p *Platform) Account() *container.Container {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.account
}

// Containers returns the save containers ordered by collection index.
func (p *Platform) Containers() []*container.Container {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.saves)
}

// Container returns the container with a meta index, or nil.
func (p *Platform) Container(metaIndex int) *container.Container {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.containerLocked(metaIndex)
}

func (p *Platform) containerLocked(metaIndex int) *container.Container {
	if metaIndex == container.AccountIndex {
		return p.account
	}
	ci := metaIndex - container.FirstSaveIndex
	if ci < 0 || ci >= len(p.saves) {
		return nil
	}
	return p.saves[ci]
}

// Slot returns the auto and manual containers of a slot.
func (p *Platform) Slot(slotIndex int) (auto, manual *container.Container, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slotLocked(slotIndex)
}

func (p *Platform) slotLocked(slotIndex int) (auto, manual *container.Container, err error) {
	if slotIndex < 0 || slotIndex*2+1 >= len(p.saves) {
		return nil, nil, errors.Aborted("slot %d out of range", slotIndex)
	}
	return p.saves[slotIndex*2], p.saves[slotIndex*2+1], nil
}

// Reset discards every container and discovers the directory again.
func (p *Platform) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	p.destination = nil
	return p.bootstrap()
}

// HasAnyCompatible reports whether at least one container decoded.
func (p *Platform) HasAnyCompatible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.account != nil && p.account.IsCompatible() {
		return true
	}
	for _, c := range p.saves {
		if c.IsCompatible() {
			return true
		}
	}
	return false
}

func (p *Platform) all() []*container.Container {
	out := make([]*container.Container, 0, len(p.saves)+1)
	if p.account != nil {
		out = append(out, p.account)
	}
	return append(out, p.saves...)
}
