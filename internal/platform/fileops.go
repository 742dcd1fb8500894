package platform

import (
	"github.com/thoreinstein/nmsio/internal/backup"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/meta"
)

// Backup archives the on-disk files of c. Archives beyond MaxBackupCount are
// removed, oldest first.
func (p *Platform) Backup(c *container.Container) (backup.Archive, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backup(c)
}

func (p *Platform) backup(c *container.Container) (backup.Archive, error) {
	if c == nil || !c.Exists() {
		return backup.Archive{}, errors.Aborted("nothing to back up")
	}
	if !p.hollow[c] {
		p.decodeMeta(c)
		p.hollow[c] = true
	}
	data, err := p.hooks.ReadData(p, c)
	if err != nil {
		return backup.Archive{}, errors.Wrapf(err, "reading %s data", c)
	}
	metaRaw, err := p.hooks.ReadMeta(p, c)
	if err != nil {
		return backup.Archive{}, errors.Wrapf(err, "reading %s meta", c)
	}

	a, err := p.backups.Create(backup.Content{
		Platform:   p.hooks.Kind().String(),
		MetaIndex:  c.MetaIndex(),
		Identifier: c.Identifier(),
		GameVer:    c.BaseVersion(),
		Data:       data,
		Meta:       metaRaw,
	})
	if err != nil {
		return backup.Archive{}, err
	}
	for _, old := range c.AddBackup(a, p.settings.MaxBackupCount) {
		if err := p.backups.Remove(old); err != nil {
			p.logger.Warn("removing old backup", "path", old.Path, "error", err)
		}
	}
	p.logger.Info("backup created", "container", c.Identifier(), "path", a.Path)
	return a, nil
}

// Restore loads the content of an archive into the container it was taken
// from. The container is left unsynced; Write stores it.
func (p *Platform) Restore(a backup.Archive) (*container.Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if a.Platform != "" && a.Platform != p.hooks.Kind().String() {
		return nil, errors.Aborted("backup of %s cannot be restored to %s", a.Platform, p.hooks.Kind())
	}
	target := p.containerLocked(a.MetaIndex)
	if target == nil {
		return nil, errors.Aborted("no container with meta index %d", a.MetaIndex)
	}
	data, metaRaw, err := p.backups.Extract(a)
	if err != nil {
		return nil, err
	}

	src := container.NewBackup(a.MetaIndex)
	src.SetExists(true)
	src.SetExtra(target.Extra())
	e, err := p.hooks.DecodeMeta(src, metaRaw)
	if err != nil {
		return nil, errors.Wrap(err, "decoding backup meta")
	}
	src.SetExtra(e)
	plain, err := p.hooks.DecodeData(src, e, data)
	if err != nil {
		return nil, errors.Wrap(err, "decoding backup data")
	}
	var mapper container.Deobfuscator
	if p.settings.UseMapping {
		mapper = p.mapper
	}
	if err := src.LoadMappedPayload(plain, mapper); err != nil {
		return nil, errors.Wrap(err, "parsing backup payload")
	}

	p.copyInto(src, target)
	p.logger.Info("backup restored", "container", target.Identifier(), "path", a.Path)
	return target, nil
}

// Copy copies the content of every source onto the destination at the same
// position. A source that does not exist deletes its destination.
func (p *Platform) Copy(sources, destinations []*container.Container) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.validatePairs(sources, destinations); err != nil {
		return err
	}
	return p.copyPairs(sources, destinations)
}

// Move copies every source onto its destination and deletes the source.
func (p *Platform) Move(sources, destinations []*container.Container) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.validatePairs(sources, destinations); err != nil {
		return err
	}
	if err := p.copyPairs(sources, destinations); err != nil {
		return err
	}
	var moved []*container.Container
	for i, src := range sources {
		if src != destinations[i] {
			moved = append(moved, src)
		}
	}
	return p.delete(moved)
}

// Swap exchanges the content of each source and destination pair.
func (p *Platform) Swap(sources, destinations []*container.Container) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.validatePairs(sources, destinations); err != nil {
		return err
	}
	for _, dst := range destinations {
		if err := p.checkSource(dst); err != nil {
			return err
		}
	}

	p.pauseWatcher()
	defer p.resumeWatcher()

	for i, a := range sources {
		b := destinations[i]
		if a == b {
			continue
		}
		sa, sb := snapshotOf(a), snapshotOf(b)
		if err := p.apply(sb, a); err != nil {
			return err
		}
		if err := p.apply(sa, b); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the files of every container and leaves each one empty and
// tagged as deleted.
func (p *Platform) Delete(cs []*container.Container) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range cs {
		if err := p.checkOwned(c); err != nil {
			return err
		}
	}
	return p.delete(cs)
}

func (p *Platform) delete(cs []*container.Container) error {
	p.pauseWatcher()
	defer p.resumeWatcher()

	for _, c := range cs {
		if c.Exists() {
			if err := p.hooks.DeletePlatformSpecific(p, c); err != nil {
				return errors.Wrapf(err, "deleting %s", c)
			}
		}
		c.Reset()
		c.SetIncompatible(errors.ErrDeleted)
		c.MarkSynced()
		p.hollow[c] = false
		if p.current == c {
			p.current = nil
		}
		p.logger.Info("container deleted", "container", c.Identifier())
	}
	return nil
}

// validatePairs checks arity, ownership and source state before anything
// is changed.
func (p *Platform) validatePairs(sources, destinations []*container.Container) error {
	if len(sources) != len(destinations) {
		return errors.Aborted("%d sources for %d destinations", len(sources), len(destinations))
	}
	for i, src := range sources {
		if err := p.checkOwned(src); err != nil {
			return err
		}
		if err := p.checkOwned(destinations[i]); err != nil {
			return err
		}
		if destinations[i].IsAccount() != src.IsAccount() {
			return errors.Aborted("%s and %s are not the same kind of container", src, destinations[i])
		}
		if err := p.checkSource(src); err != nil {
			return err
		}
	}
	return nil
}

func (p *Platform) checkOwned(c *container.Container) error {
	if c == nil {
		return errors.Aborted("no container")
	}
	if c.IsBackup() || p.containerLocked(c.MetaIndex()) != c {
		return errors.Aborted("%s does not belong to this platform", c)
	}
	return nil
}

// checkSource accepts containers that do not exist and loaded ones.
func (p *Platform) checkSource(c *container.Container) error {
	if c == nil {
		return errors.Aborted("no container")
	}
	if !c.Exists() {
		return nil
	}
	if !c.IsCompatible() {
		return errors.Aborted("%s is incompatible: %s", c, c.IncompatibilityTag())
	}
	if !c.IsLoaded() {
		return errors.Aborted("%s is not loaded", c)
	}
	return nil
}

func (p *Platform) copyPairs(sources, destinations []*container.Container) error {
	p.pauseWatcher()
	defer p.resumeWatcher()

	for i, src := range sources {
		dst := destinations[i]
		if src == dst {
			continue
		}
		if err := p.apply(snapshotOf(src), dst); err != nil {
			return err
		}
	}
	return nil
}

// snapshot is the content of a container that file operations move around.
type snapshot struct {
	exists  bool
	extra   meta.Extra
	payload map[string]any
	order   *container.KeyOrder
}

func snapshotOf(c *container.Container) snapshot {
	return snapshot{
		exists:  c.Exists(),
		extra:   c.Extra(),
		payload: c.JSON(),
		order:   c.KeyOrder(),
	}
}

// apply installs s into dst and writes it, or deletes dst when s is empty.
func (p *Platform) apply(s snapshot, dst *container.Container) error {
	if !s.exists || s.payload == nil {
		if !dst.Exists() {
			return nil
		}
		return p.delete([]*container.Container{dst})
	}
	src := container.NewBackup(dst.MetaIndex())
	src.SetExtra(s.extra)
	src.ReplaceJSON(s.payload)
	src.SetKeyOrder(s.order)
	p.copyInto(src, dst)
	return p.write(dst, p.now())
}

// copyInto gives dst the content of src. Bookkeeping tied to where dst is
// stored stays with dst.
func (p *Platform) copyInto(src, dst *container.Container) {
	e := src.Extra()
	d := dst.Extra()
	e.Microsoft = d.Microsoft
	e.MetaIndex = uint32(dst.MetaIndex())
	e.KeySlot = dst.PersistentStorageSlot()
	e.ChunkOffset, e.ChunkSize = d.ChunkOffset, d.ChunkSize

	dst.ClearIncompatible()
	dst.SetExtra(e)
	dst.ReplaceJSON(src.JSON())
	dst.SetKeyOrder(src.KeyOrder())
	dst.SetExists(true)
	p.hollow[dst] = true
}
