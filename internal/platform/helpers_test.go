package platform

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/logging"
	"github.com/thoreinstein/nmsio/internal/meta"
)

// plainHooks is a layout that stores payloads as plain JSON next to a four
// byte meta file holding the payload length.
type plainHooks struct {
	PerFile
	kind Kind
}

func newPlainHooks(kind Kind) *plainHooks {
	h := &plainHooks{kind: kind}
	h.PerFile = PerFile{Names: h, HasAccount: true}
	return h
}

func (h *plainHooks) Kind() Kind        { return h.kind }
func (h *plainHooks) Anchors() []string { return []string{"save*.json"} }

func (h *plainHooks) Identity(*Platform) Identity {
	return Identity{UID: "1000", LID: "1000"}
}

func (h *plainHooks) DataName(metaIndex int) string {
	if metaIndex == container.AccountIndex {
		return "account.json"
	}
	return fmt.Sprintf("save%02d.json", metaIndex)
}

func (h *plainHooks) MetaName(metaIndex int) string {
	return h.DataName(metaIndex) + ".meta"
}

func (h *plainHooks) DecodeMeta(c *container.Container, raw []byte) (meta.Extra, error) {
	e := c.Extra()
	if raw == nil {
		return e, nil
	}
	if len(raw) != 4 {
		return meta.Extra{}, errors.Wrapf(errors.ErrUnknownMetaLength, "%d bytes", len(raw))
	}
	e.MetaLength = 4
	e.DecompressedSize = binary.LittleEndian.Uint32(raw)
	return e, nil
}

func (h *plainHooks) DecodeData(_ *container.Container, e meta.Extra, raw []byte) ([]byte, error) {
	if e.DecompressedSize != 0 && int(e.DecompressedSize) != len(raw) {
		return nil, errors.Wrapf(errors.ErrDecompress, "want %d bytes, got %d", e.DecompressedSize, len(raw))
	}
	return raw, nil
}

func (h *plainHooks) EncodeData(_ *container.Container, _ meta.Extra, plain []byte) ([]byte, error) {
	return plain, nil
}

func (h *plainHooks) EncodeMeta(_ *container.Container, e meta.Extra, plain, _ []byte, _ time.Time) ([]byte, meta.Extra, error) {
	e.MetaLength = 4
	e.DecompressedSize = uint32(len(plain))
	return binary.LittleEndian.AppendUint32(nil, e.DecompressedSize), e, nil
}

func writePlain(t *testing.T, root string, metaIndex int, payload string) {
	t.Helper()
	h := newPlainHooks(KindSteam)
	if err := os.WriteFile(filepath.Join(root, h.DataName(metaIndex)), []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	m := binary.LittleEndian.AppendUint32(nil, uint32(len(payload)))
	if err := os.WriteFile(filepath.Join(root, h.MetaName(metaIndex)), m, 0o644); err != nil {
		t.Fatal(err)
	}
}

func openPlain(t *testing.T, root string, strategy LoadingStrategy) *Platform {
	t.Helper()
	s := DefaultSettings()
	s.LoadingStrategy = strategy
	p, err := New(root, newPlainHooks(KindSteam), WithSettings(s), WithLogger(logging.ForTest(t)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}
