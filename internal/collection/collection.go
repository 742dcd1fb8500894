package collection

import (
	"context"
	"io/fs"
	"log/slog"
	"maps"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/platform"
)

// Collection holds the platforms found below one or more directories,
// keyed by their root directory. It is safe for concurrent use.
type Collection struct {
	registry *platform.Registry
	settings platform.Settings
	logger   *slog.Logger
	extra    []platform.Option

	mu        sync.Mutex
	platforms map[string]*platform.Platform
}

// Option configures a Collection.
type Option func(*Collection)

// WithRegistry sets the kinds the collection tries. It defaults to
// NewRegistry.
func WithRegistry(r *platform.Registry) Option {
	return func(c *Collection) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithSettings sets the settings every platform is opened with. Strategies
// below Hollow are raised to Hollow so a directory can be judged.
func WithSettings(s platform.Settings) Option {
	return func(c *Collection) {
		c.settings = s
	}
}

// WithLogger sets the logger of the collection and its platforms.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collection) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPlatformOptions adds options passed to every platform.
func WithPlatformOptions(opts ...platform.Option) Option {
	return func(c *Collection) {
		c.extra = append(c.extra, opts...)
	}
}

// New creates an empty collection.
func New(opts ...Option) *Collection {
	c := &Collection{
		settings:  platform.DefaultSettings(),
		logger:    slog.Default(),
		platforms: make(map[string]*platform.Platform),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	if c.settings.LoadingStrategy < platform.Hollow {
		c.settings.LoadingStrategy = platform.Hollow
	}
	return c
}

// Analyze walks root and opens a platform for every directory holding a
// layout, trying preferred first. Directories already in the collection
// are kept as they are. It returns the platforms found by this call,
// ordered by directory.
func (c *Collection) Analyze(ctx context.Context, root string, preferred platform.Kind) ([]*platform.Platform, error) {
	dirs, err := c.candidates(ctx, root)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	found := make(map[string]*platform.Platform)
	wp := pool.New().WithContext(ctx).WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for _, dir := range dirs {
		if c.Get(dir) != nil {
			continue
		}
		wp.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := c.openFirst(dir, preferred)
			if p == nil {
				return nil
			}
			mu.Lock()
			found[dir] = p
			mu.Unlock()
			return nil
		})
	}
	if err := wp.Wait(); err != nil {
		for _, p := range found {
			_ = p.Close()
		}
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*platform.Platform, 0, len(found))
	for _, dir := range slices.Sorted(maps.Keys(found)) {
		if _, ok := c.platforms[dir]; ok {
			_ = found[dir].Close()
			continue
		}
		c.platforms[dir] = found[dir]
		out = append(out, found[dir])
	}
	return out, nil
}

// candidates returns every directory below root, root included, where any
// registered kind finds an anchor.
func (c *Collection) candidates(ctx context.Context, root string) ([]string, error) {
	kinds := c.registry.All()
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			c.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		for _, k := range kinds {
			f, _ := c.registry.Get(k)
			if platform.DetectLayout(path, f(path)).Status == platform.StatusFound {
				dirs = append(dirs, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", root)
	}
	return dirs, nil
}

// openFirst opens dir with the first kind that accepts it and decodes at least
// one container.
func (c *Collection) openFirst(dir string, preferred platform.Kind) *platform.Platform {
	for _, k := range c.registry.Ordered(preferred) {
		f, ok := c.registry.Get(k)
		if !ok {
			continue
		}
		hooks := f(dir)
		if platform.DetectLayout(dir, hooks).Status != platform.StatusFound {
			continue
		}
		p, err := platform.New(dir, hooks, c.options()...)
		if err != nil {
			c.logger.Debug("layout does not open", "dir", dir, "kind", k, "error", err)
			continue
		}
		if !p.HasAnyCompatible() {
			c.logger.Debug("layout has no compatible container", "dir", dir, "kind", k)
			_ = p.Close()
			continue
		}
		c.logger.Info("platform found", "dir", dir, "kind", k)
		return p
	}
	return nil
}

func (c *Collection) options() []platform.Option {
	opts := []platform.Option{
		platform.WithSettings(c.settings),
		platform.WithLogger(c.logger),
	}
	return append(opts, c.extra...)
}

// Get returns the platform of a directory, or nil.
func (c *Collection) Get(dir string) *platform.Platform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.platforms[filepath.Clean(dir)]
}

// Platforms returns every platform in the collection ordered by directory.
func (c *Collection) Platforms() []*platform.Platform {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*platform.Platform, 0, len(c.platforms))
	for _, dir := range slices.Sorted(maps.Keys(c.platforms)) {
		out = append(out, c.platforms[dir])
	}
	return out
}

// Remove closes and drops the platform of a directory.
func (c *Collection) Remove(dir string) error {
	c.mu.Lock()
	p, ok := c.platforms[filepath.Clean(dir)]
	delete(c.platforms, filepath.Clean(dir))
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return p.Close()
}

// Close closes every platform.
func (c *Collection) Close() error {
	c.mu.Lock()
	platforms := c.platforms
	c.platforms = make(map[string]*platform.Platform)
	c.mu.Unlock()

	var errs []error
	for _, p := range platforms {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
