package platform

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
)

// bootstrap discovers the containers and decodes them as the strategy asks.
// p.mu must be held.
func (p *Platform) bootstrap() error {
	account, saves, err := p.hooks.Discover(p)
	if err != nil {
		return errors.Wrapf(err, "discovering %s containers", p.hooks.Kind())
	}
	p.account, p.saves = account, saves
	p.hollow = make(map[*container.Container]bool, len(saves)+1)

	archives, err := p.backups.ListAll(p.hooks.Kind().String())
	if err != nil {
		p.logger.Warn("listing backups", "error", err)
	}
	for _, c := range p.all() {
		if list := archives[c.MetaIndex()]; len(list) > 0 {
			c.SetBackups(list)
		}
	}

	if p.settings.LoadingStrategy == Empty {
		return nil
	}

	work := func(c *container.Container) {
		p.decodeMeta(c)
		if p.settings.LoadingStrategy == Full {
			p.parse(c)
		}
	}
	targets := p.all()
	if si, ok := p.hooks.(SharedIndex); ok && si.SharedIndex() {
		wp := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
		for _, c := range targets {
			wp.Go(func() { work(c) })
		}
		wp.Wait()
	} else {
		for _, c := range targets {
			work(c)
		}
	}
	for _, c := range targets {
		p.hollow[c] = c.Exists()
	}

	p.logger.Debug("platform loaded",
		"strategy", p.settings.LoadingStrategy.String(),
		"containers", len(targets))
	return nil
}

// Load decodes c as far as the loading strategy allows. Failures are
// recorded on the container, never returned.
func (p *Platform) Load(c *container.Container) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.load(c)
}

func (p *Platform) load(c *container.Container) {
	if c == nil || !c.Exists() || c.Incompatibility() != nil {
		return
	}
	if !p.hollow[c] {
		p.decodeMeta(c)
		p.hollow[c] = true
		if !c.IsCompatible() {
			return
		}
	}
	if p.settings.LoadingStrategy <= Hollow {
		return
	}
	if !c.IsLoaded() {
		p.parse(c)
	}
	if c.IsLoaded() {
		p.markCurrent(c)
	}
}

// Reload discards the in-memory state of c and decodes it from disk again.
func (p *Platform) Reload(c *container.Container) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reload(c)
}

func (p *Platform) reload(c *container.Container) error {
	if c == nil {
		return errors.Aborted("no container")
	}
	wasLoaded := c.IsLoaded()
	if err := p.hooks.Refresh(p, c); err != nil {
		return errors.Wrapf(err, "refreshing %s", c)
	}
	c.Unload()
	c.ClearIncompatible()
	c.SetWatcherChange(container.ChangeNone)
	p.hollow[c] = false
	if !c.Exists() {
		c.MarkSynced()
		return nil
	}
	if p.settings.LoadingStrategy == Empty && !wasLoaded {
		return nil
	}
	p.decodeMeta(c)
	p.hollow[c] = true
	if c.IsCompatible() && (wasLoaded || p.settings.LoadingStrategy == Full) {
		p.parse(c)
	}
	return nil
}

// decodeMeta reads and decodes the meta block of c into its Extra.
func (p *Platform) decodeMeta(c *container.Container) {
	if !c.Exists() {
		return
	}
	raw, err := p.hooks.ReadMeta(p, c)
	if err != nil {
		p.markIncompatible(c, err, errors.ErrMissingFile)
		return
	}
	e, err := p.hooks.DecodeMeta(c, raw)
	if err != nil {
		p.markIncompatible(c, err, errors.ErrIncompatible)
		return
	}
	c.SetExtra(e)
	if c.IsLoaded() {
		return
	}
	c.MarkSynced()
}

// parse reads, decodes and parses the payload of c.
func (p *Platform) parse(c *container.Container) {
	if !c.IsCompatible() {
		return
	}
	raw, err := p.hooks.ReadData(p, c)
	if err != nil {
		p.markIncompatible(c, err, errors.ErrMissingFile)
		return
	}
	plain, err := p.hooks.DecodeData(c, c.Extra(), raw)
	if err != nil {
		p.markIncompatible(c, err, errors.ErrDecompress)
		return
	}
	var mapper container.Deobfuscator
	if p.settings.UseMapping {
		mapper = p.mapper
	}
	if err := c.LoadMappedPayload(plain, mapper); err != nil {
		p.markIncompatible(c, err, errors.ErrJSON)
		return
	}
	c.MarkSynced()
}

// markIncompatible records err on c, tagging it with tag unless it already
// carries an incompatibility tag.
func (p *Platform) markIncompatible(c *container.Container, err, tag error) {
	if !errors.Is(err, errors.ErrIncompatible) {
		err = errors.Wrap(tag, err.Error())
	}
	p.logger.Debug("container incompatible", "container", c.Identifier(), "error", err)
	c.SetIncompatible(err)
}

// markCurrent makes c the current container. Under the Current strategy the
// previous one is unloaded unless it holds unwritten changes.
func (p *Platform) markCurrent(c *container.Container) {
	if p.settings.LoadingStrategy != Current || c.IsAccount() {
		return
	}
	prev := p.current
	p.current = c
	if prev == nil || prev == c {
		return
	}
	if prev.IsSynced() {
		prev.Unload()
	}
}
