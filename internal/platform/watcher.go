package platform

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/woozymasta/pathrules"

	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
)

// defaultIgnore lists paths the watcher never reports, relative to the root.
var defaultIgnore = []string{
	"backup/**",
	"**/*.tmp",
	"**/.nmsio-*",
	"**/*.zip",
}

type watcher struct {
	fs      *fsnotify.Watcher
	include interface{ Included(string, bool) bool }
	paused  atomic.Int32
	done    chan struct{}
	wg      sync.WaitGroup
}

// startWatcher watches the root directory and flags containers whose files
// change outside this Platform.
func (p *Platform) startWatcher() error {
	rules := make([]pathrules.Rule, 0, len(defaultIgnore)+len(p.settings.WatcherIgnore))
	for _, pattern := range append(defaultIgnore, p.settings.WatcherIgnore...) {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: pattern})
	}
	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionInclude,
	})
	if err != nil {
		return errors.Wrap(err, "compiling watcher ignore rules")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	if err := fw.Add(p.root); err != nil {
		_ = fw.Close()
		return errors.Wrapf(err, "watching %s", p.root)
	}

	w := &watcher{fs: fw, include: matcher, done: make(chan struct{})}
	w.wg.Add(1)
	go w.run(p)

	p.mu.Lock()
	p.watcher = w
	p.mu.Unlock()
	return nil
}

func (w *watcher) run(p *Platform) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.paused.Load() > 0 || ev.Op == fsnotify.Chmod {
				continue
			}
			rel, err := filepath.Rel(p.root, ev.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if !w.include.Included(rel, false) {
				continue
			}
			p.handleChange(rel)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			p.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *watcher) close() error {
	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

// handleChange flags the containers an external change touched.
func (p *Platform) handleChange(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watcher != nil && p.watcher.paused.Load() > 0 {
		return
	}
	for _, ch := range p.hooks.AffectedByChange(p, p.all(), name) {
		if ch.Type == container.ChangeNone {
			continue
		}
		p.logger.Info("external change", "container", ch.Container.Identifier(), "change", ch.Type.String(), "file", name)
		ch.Container.SetWatcherChange(ch.Type)
	}
}

// OnWatcherDecision resolves a flagged external change: execute reloads the
// container from disk, otherwise the in-memory state is kept and marked
// unsynced so the next Write overwrites the external change.
func (p *Platform) OnWatcherDecision(c *container.Container, execute bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c == nil || !c.HasWatcherChange() {
		return nil
	}
	if execute {
		return p.reload(c)
	}
	c.SetWatcherChange(container.ChangeNone)
	c.MarkUnsynced()
	return nil
}

func (p *Platform) pauseWatcher() {
	if p.watcher != nil {
		p.watcher.paused.Add(1)
	}
}

func (p *Platform) resumeWatcher() {
	if p.watcher != nil {
		p.watcher.paused.Add(-1)
	}
}
