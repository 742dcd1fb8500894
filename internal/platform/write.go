package platform

import (
	"time"

	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/gameversion"
	"github.com/thoreinstein/nmsio/internal/meta"
)

// Write encodes the payload of c and stores it with a new meta block. t
// becomes the last write time, and the file time too when SetLastWriteTime
// is set. A synced container is skipped unless WriteAlways or
// SetLastWriteTime is set; with SetLastWriteTime alone it is rewritten so
// the meta timestamps and any shared index carry t as well.
func (p *Platform) Write(c *container.Container, t time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write(c, t)
}

func (p *Platform) write(c *container.Container, t time.Time) error {
	if c == nil {
		return errors.Aborted("no container")
	}
	if c.IsBackup() {
		return errors.Aborted("%s is a backup", c)
	}
	if !c.IsLoaded() {
		return errors.Aborted("%s is not loaded", c)
	}
	if c.IsSynced() && !p.settings.WriteAlways && !p.settings.SetLastWriteTime {
		p.logger.Debug("container synced, write skipped", "container", c.Identifier())
		return nil
	}

	p.pauseWatcher()
	defer p.resumeWatcher()

	var mapper container.Deobfuscator
	if p.settings.UseMapping {
		mapper = p.mapper
	}
	plain, err := c.MappedPayload(mapper)
	if err != nil {
		return err
	}

	e := extraFromPayload(c)
	data, err := p.hooks.EncodeData(c, e, plain)
	if err != nil {
		return errors.Wrapf(err, "encoding %s data", c)
	}
	metaBlock, e, err := p.hooks.EncodeMeta(c, e, plain, data, t)
	if err != nil {
		return errors.Wrapf(err, "encoding %s meta", c)
	}
	e, stamp, err := p.hooks.WritePlatformSpecific(p, c, e, data, metaBlock, t)
	if err != nil {
		return errors.Wrapf(err, "writing %s", c)
	}

	c.SetExtra(e)
	c.SetExists(true)
	c.SetLastWriteTime(stamp)
	c.SetWatcherChange(container.ChangeNone)
	c.MarkSynced()
	p.hollow[c] = true
	p.logger.Debug("container written", "container", c.Identifier(), "bytes", len(data))
	return nil
}

// extraFromPayload returns the Extra of c with the fields the payload also
// carries brought up to date. A payload from a newer game moves the meta
// block to that game's layout.
func extraFromPayload(c *container.Container) meta.Extra {
	e := c.Extra()
	if base := c.BaseVersion(); base != 0 {
		e.BaseVersion = int32(base)
		if era := gameversion.EraFor(base); era > e.Era || e.MetaLength == 0 {
			if era != e.Era {
				e.Bytes = nil
			}
			e.Era = era
			e.MetaLength = 0
		}
	}
	e.GameMode = c.GameMode()
	e.Season = c.Season()
	for _, path := range []string{"CommonStateData.TotalPlayTime", "PlayerStateData.TotalPlayTime"} {
		if v, ok := c.Int(path); ok && v >= 0 {
			e.TotalPlayTime = uint64(v)
			break
		}
	}
	if name, ok := c.Str("CommonStateData.SaveName"); ok {
		e.SaveName = name
	}
	return e
}
