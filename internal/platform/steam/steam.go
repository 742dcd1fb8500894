// Package steam implements the Steam save layout: one data file and one
// encrypted meta file per container, data compressed as a single LZ4 block.
package steam

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/thoreinstein/nmsio/internal/compress"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/gameversion"
	"github.com/thoreinstein/nmsio/internal/meta"
	"github.com/thoreinstein/nmsio/internal/platform"
	"github.com/thoreinstein/nmsio/internal/steamid"
)

// DefaultUserDirectory is the directory name GOG uses instead of st_<id>.
const DefaultUserDirectory = "DefaultUser"

// Hooks implements platform.Hooks for the Steam layout.
type Hooks struct {
	platform.PerFile

	kind   platform.Kind
	format *meta.Format
}

// New returns the Steam hooks.
func New() *Hooks {
	return NewLayout(platform.KindSteam, meta.Steam())
}

// NewLayout returns hooks for a platform that stores saves in the Steam file
// layout with its own kind and meta format.
func NewLayout(kind platform.Kind, format *meta.Format) *Hooks {
	h := &Hooks{kind: kind, format: format}
	h.PerFile = platform.PerFile{Names: h, HasAccount: true}
	return h
}

// Factory is the platform.HooksFactory of Steam.
func Factory(string) platform.Hooks { return New() }

// Open creates a Steam platform for root.
func Open(root string, opts ...platform.Option) (*platform.Platform, error) {
	return platform.New(root, New(), opts...)
}

// Kind implements platform.Hooks.
func (h *Hooks) Kind() platform.Kind { return h.kind }

// Anchors implements platform.Hooks.
func (h *Hooks) Anchors() []string {
	return []string{"mf_accountdata.hg", "mf_save.hg", "mf_save[0-9]*.hg"}
}

// AcceptsRoot implements platform.RootFilter. The GOG directory is left to
// the GOG hooks.
func (h *Hooks) AcceptsRoot(root string) bool {
	return filepath.Base(root) != DefaultUserDirectory
}

// DataName implements platform.FileNames.
func (h *Hooks) DataName(metaIndex int) string {
	switch {
	case metaIndex == container.AccountIndex:
		return "accountdata.hg"
	case metaIndex == container.FirstSaveIndex:
		return "save.hg"
	default:
		return fmt.Sprintf("save%d.hg", metaIndex-1)
	}
}

// MetaName implements platform.FileNames.
func (h *Hooks) MetaName(metaIndex int) string {
	return "mf_" + h.DataName(metaIndex)
}

// DecodeMeta implements platform.Hooks. Saves from before meta files
// existed have none and decode to an empty Extra.
func (h *Hooks) DecodeMeta(c *container.Container, raw []byte) (meta.Extra, error) {
	if raw == nil {
		return meta.Extra{}, nil
	}
	return h.format.Decode(raw, c.PersistentStorageSlot())
}

// DecodeData implements platform.Hooks.
func (h *Hooks) DecodeData(_ *container.Container, e meta.Extra, raw []byte) ([]byte, error) {
	switch {
	case isPlain(raw):
		return raw, nil
	case compress.IsStream(raw):
		return decodeErr(compress.DecompressStream(raw, 0))
	case e.DecompressedSize == 0:
		return nil, errors.Wrap(errors.ErrDecompress, "meta has no decompressed size")
	default:
		return decodeErr(compress.DecompressBlock(raw, int(e.DecompressedSize)))
	}
}

// EncodeData implements platform.Hooks. Saves of games before Frontiers are
// stored as plain JSON.
func (h *Hooks) EncodeData(_ *container.Container, e meta.Extra, plain []byte) ([]byte, error) {
	if e.BaseVersion != 0 && gameversion.Version(e.BaseVersion) < gameversion.Frontiers {
		return plain, nil
	}
	return compress.CompressBlock(plain)
}

// EncodeMeta implements platform.Hooks. The hash fields of the block are
// carried over unchanged; the game does not check them.
func (h *Hooks) EncodeMeta(c *container.Container, e meta.Extra, plain, data []byte, _ time.Time) ([]byte, meta.Extra, error) {
	e.DecompressedSize = uint32(len(plain))
	e.CompressedSize = uint32(len(data))
	if isPlain(data) {
		e.DecompressedSize = 0
	}
	return h.format.Seal(e, c.PersistentStorageSlot())
}

// Identity implements platform.Hooks.
func (h *Hooks) Identity(p *platform.Platform) platform.Identity {
	id := platform.Identity{PTK: h.kind.UserTag()}
	if uid, ok := steamid.FromDirectory(filepath.Base(p.Root())); ok {
		id.UID = uid
		id.LID = uid
	}
	return id
}

func isPlain(b []byte) bool {
	return len(b) > 0 && b[0] == '{'
}

func decodeErr(b []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, errors.Wrap(errors.ErrDecompress, err.Error())
	}
	return b, nil
}
