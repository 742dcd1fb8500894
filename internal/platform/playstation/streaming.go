package playstation

import (
	"fmt"
	"time"

	"github.com/thoreinstein/nmsio/internal/compress"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/meta"
	"github.com/thoreinstein/nmsio/internal/platform"
)

// Streaming implements platform.Hooks for PlayStation save streaming:
// savedataNN.hg holds a chunked stream, optionally behind the SaveWizard
// signature, and savedataNN.hg.meta the encrypted meta block.
type Streaming struct {
	platform.PerFile

	format *meta.Format
}

// NewStreaming returns the save streaming hooks.
func NewStreaming() *Streaming {
	h := &Streaming{format: meta.PlayStation()}
	h.PerFile = platform.PerFile{Names: h, HasAccount: true}
	return h
}

// Kind implements platform.Hooks.
func (h *Streaming) Kind() platform.Kind { return platform.KindPlayStation }

// Anchors implements platform.Hooks.
func (h *Streaming) Anchors() []string {
	return []string{"savedata[0-9][0-9].hg.meta"}
}

// DataName implements platform.FileNames.
func (h *Streaming) DataName(metaIndex int) string {
	return fmt.Sprintf("savedata%02d.hg", metaIndex)
}

// MetaName implements platform.FileNames.
func (h *Streaming) MetaName(metaIndex int) string {
	return h.DataName(metaIndex) + ".meta"
}

// DecodeMeta implements platform.Hooks.
func (h *Streaming) DecodeMeta(c *container.Container, raw []byte) (meta.Extra, error) {
	if raw == nil {
		return meta.Extra{}, nil
	}
	return h.format.Decode(raw, c.PersistentStorageSlot())
}

// DecodeData implements platform.Hooks. Whether the file carried the
// SaveWizard signature is recorded on c so writes keep it.
func (h *Streaming) DecodeData(c *container.Container, e meta.Extra, raw []byte) ([]byte, error) {
	wizard := compress.IsSaveWizard(raw)
	if wizard {
		raw = compress.UnwrapSaveWizard(raw)
	}
	if e.SaveWizard != wizard {
		c.UpdateExtra(func(x meta.Extra) meta.Extra {
			x.SaveWizard = wizard
			return x
		})
	}

	switch {
	case len(raw) > 0 && raw[0] == '{':
		return raw, nil
	case compress.IsStream(raw):
		plain, err := compress.DecompressStream(raw, int(e.CompressedSize))
		if err != nil {
			return nil, errors.Wrap(errors.ErrDecompress, err.Error())
		}
		return plain, nil
	default:
		return nil, errors.Wrap(errors.ErrDecompress, "not a chunked stream")
	}
}

// EncodeData implements platform.Hooks.
func (h *Streaming) EncodeData(_ *container.Container, e meta.Extra, plain []byte) ([]byte, error) {
	stream, err := compress.CompressStream(plain)
	if err != nil {
		return nil, err
	}
	if e.SaveWizard {
		return compress.WrapSaveWizard(stream), nil
	}
	return stream, nil
}

// EncodeMeta implements platform.Hooks.
func (h *Streaming) EncodeMeta(c *container.Container, e meta.Extra, plain, data []byte, t time.Time) ([]byte, meta.Extra, error) {
	stream := len(data)
	if e.SaveWizard {
		stream -= len(compress.SaveWizardMagic)
	}
	e.CompressedSize = uint32(stream)
	e.DecompressedSize = uint32(len(plain))
	e.ChunkOffset = 0
	e.ChunkSize = uint32(len(data))
	e.MetaIndex = uint32(c.MetaIndex())
	e.Timestamp = uint32(t.Unix())
	return h.format.Seal(e, c.PersistentStorageSlot())
}

// Identity implements platform.Hooks. The user id is only known from the
// owner records in the saves.
func (h *Streaming) Identity(*platform.Platform) platform.Identity {
	return identity()
}
