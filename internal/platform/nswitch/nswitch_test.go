package nswitch_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/nmsio/internal/compress"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/logging"
	"github.com/thoreinstein/nmsio/internal/meta"
	"github.com/thoreinstein/nmsio/internal/platform"
	"github.com/thoreinstein/nmsio/internal/platform/nswitch"
)

func payload(units int) []byte {
	return fmt.Appendf(nil, `{"F2P":4647,"6f=":{"wGS":%d},"<h0":{"Lg8":120,"Pk4":"Handheld"}}`, units)
}

func writeSave(t *testing.T, dir string, metaIndex int, data []byte, plainSize int) {
	t.Helper()
	block, _, err := meta.Switch().Seal(meta.Extra{
		BaseVersion:      4135,
		DecompressedSize: uint32(plainSize),
		MetaIndex:        uint32(metaIndex),
		Timestamp:        1_650_000_000,
	}, 0)
	require.NoError(t, err)

	h := nswitch.New()
	require.NoError(t, os.WriteFile(filepath.Join(dir, h.DataName(metaIndex)), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, h.MetaName(metaIndex)), block, 0o644))
}

func open(t *testing.T, dir string) *platform.Platform {
	t.Helper()
	s := platform.DefaultSettings()
	s.LoadingStrategy = platform.Partial
	p, err := nswitch.Open(dir, platform.WithSettings(s), platform.WithLogger(logging.ForTest(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestFileNames(t *testing.T) {
	h := nswitch.New()
	assert.Equal(t, "savedata00.hg", h.DataName(container.AccountIndex))
	assert.Equal(t, "manifest00.hg", h.MetaName(container.AccountIndex))
	assert.Equal(t, "savedata02.hg", h.DataName(2))
	assert.Equal(t, "manifest31.hg", h.MetaName(31))
	assert.Equal(t, []string{"manifest[0-9][0-9].hg"}, h.Anchors())
}

func TestDecodeData_Encodings(t *testing.T) {
	plain := payload(7)
	block, err := compress.CompressBlock(plain)
	require.NoError(t, err)
	stream, err := compress.CompressStream(plain)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"lz4 block", block},
		{"chunked stream", stream},
		{"plain json", plain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSave(t, dir, 2, tt.data, len(plain))
			p := open(t, dir)
			c := p.Container(2)
			p.Load(c)
			require.Truef(t, c.IsLoaded(), "not loaded: %s", c.IncompatibilityTag())
			n, ok := c.Int("PlayerStateData.Units")
			require.True(t, ok)
			assert.Equal(t, int64(7), n)
		})
	}
}

func TestDecodeData_Garbage(t *testing.T) {
	dir := t.TempDir()
	writeSave(t, dir, 2, []byte("not a save"), 64)
	p := open(t, dir)
	c := p.Container(2)
	p.Load(c)
	assert.False(t, c.IsLoaded())
	assert.True(t, errors.Is(c.Incompatibility(), errors.ErrDecompress))
}

func TestWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	plain := payload(100)
	block, err := compress.CompressBlock(plain)
	require.NoError(t, err)
	writeSave(t, dir, 3, block, len(plain))

	p := open(t, dir)
	c := p.Container(3)
	p.Load(c)
	require.True(t, c.IsLoaded())
	require.NoError(t, c.SetValue("PlayerStateData.Units", 200))
	written := time.Unix(1_700_000_000, 0)
	require.NoError(t, p.Write(c, written))

	e := c.Extra()
	assert.Equal(t, uint32(3), e.MetaIndex)
	assert.Equal(t, uint32(written.Unix()), e.Timestamp)

	fresh := open(t, dir)
	c2 := fresh.Container(3)
	fresh.Load(c2)
	n, ok := c2.Int("PlayerStateData.Units")
	require.True(t, ok)
	assert.Equal(t, int64(200), n)

	assert.Equal(t, "NX", nswitch.New().Identity(p).PTK)
}
