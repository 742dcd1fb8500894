// Package nswitch implements the Nintendo Switch save layout: per container
// a savedataNN.hg data file and a plain manifestNN.hg meta file.
package nswitch

import (
	"fmt"
	"time"

	"github.com/thoreinstein/nmsio/internal/compress"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/meta"
	"github.com/thoreinstein/nmsio/internal/platform"
)

// Hooks implements platform.Hooks for the Switch.
type Hooks struct {
	platform.PerFile

	format *meta.Format
}

// New returns the Switch hooks.
func New() *Hooks {
	h := &Hooks{format: meta.Switch()}
	h.PerFile = platform.PerFile{Names: h, HasAccount: true}
	return h
}

// Factory is the platform.HooksFactory of the Switch.
func Factory(string) platform.Hooks { return New() }

// Open creates a Switch platform for root.
func Open(root string, opts ...platform.Option) (*platform.Platform, error) {
	return platform.New(root, New(), opts...)
}

// Kind implements platform.Hooks.
func (h *Hooks) Kind() platform.Kind { return platform.KindSwitch }

// Anchors implements platform.Hooks.
func (h *Hooks) Anchors() []string { return []string{"manifest[0-9][0-9].hg"} }

// DataName implements platform.FileNames.
func (h *Hooks) DataName(metaIndex int) string {
	return fmt.Sprintf("savedata%02d.hg", metaIndex)
}

// MetaName implements platform.FileNames.
func (h *Hooks) MetaName(metaIndex int) string {
	return fmt.Sprintf("manifest%02d.hg", metaIndex)
}

// DecodeMeta implements platform.Hooks.
func (h *Hooks) DecodeMeta(_ *container.Container, raw []byte) (meta.Extra, error) {
	if raw == nil {
		return meta.Extra{}, nil
	}
	return h.format.Decode(raw, 0)
}

// DecodeData implements platform.Hooks. Files copied from other platforms
// may hold a chunked stream or plain JSON instead of an LZ4 block.
func (h *Hooks) DecodeData(_ *container.Container, e meta.Extra, raw []byte) ([]byte, error) {
	var (
		plain []byte
		err   error
	)
	switch {
	case len(raw) > 0 && raw[0] == '{':
		return raw, nil
	case compress.IsStream(raw):
		plain, err = compress.DecompressStream(raw, len(raw))
	default:
		plain, err = compress.DecompressBlock(raw, int(e.DecompressedSize))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrDecompress, err.Error())
	}
	return plain, nil
}

// EncodeData implements platform.Hooks.
func (h *Hooks) EncodeData(_ *container.Container, _ meta.Extra, plain []byte) ([]byte, error) {
	return compress.CompressBlock(plain)
}

// EncodeMeta implements platform.Hooks.
func (h *Hooks) EncodeMeta(c *container.Container, e meta.Extra, plain, _ []byte, t time.Time) ([]byte, meta.Extra, error) {
	e.DecompressedSize = uint32(len(plain))
	e.MetaIndex = uint32(c.MetaIndex())
	e.Timestamp = uint32(t.Unix())
	return h.format.Seal(e, 0)
}

// Identity implements platform.Hooks.
func (h *Hooks) Identity(*platform.Platform) platform.Identity {
	return platform.Identity{PTK: platform.KindSwitch.UserTag()}
}
