package microsoft_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/nmsio/internal/compress"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/logging"
	"github.com/thoreinstein/nmsio/internal/meta"
	"github.com/thoreinstein/nmsio/internal/platform"
	"github.com/thoreinstein/nmsio/internal/platform/microsoft"
)

var baseTime = time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

// fixture assembles a wgs account directory the way the game leaves it.
type fixture struct {
	t     *testing.T
	root  string
	index *microsoft.Index
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		t:    t,
		root: t.TempDir(),
		index: &microsoft.Index{
			ProcessIdentifier: "NMS.exe",
			LastModified:      baseTime,
			SyncState:         microsoft.SyncSynced,
			AccountGUID:       "000901F4D5E2B6A7_0000000000000000000000007AB13A7F",
			Unknown:           0x10000000,
		},
	}
}

func (f *fixture) add(identifier string, slot uint32, payload string) {
	t := f.t
	t.Helper()
	plain := []byte(payload)
	data, err := compress.CompressStream(plain)
	require.NoError(t, err)
	block, _, err := meta.Microsoft().Seal(meta.Extra{
		BaseVersion:      4135,
		DecompressedSize: uint32(len(plain)),
		SizeDisk:         uint32(len(data)),
	}, slot)
	require.NoError(t, err)

	dirID := uuid.New()
	dir := filepath.Join(f.root, microsoft.FileName(dirID))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	bc := &microsoft.BlobContainer{Blobs: []microsoft.Blob{
		{Name: microsoft.BlobData, Cloud: uuid.New(), Local: uuid.New()},
		{Name: microsoft.BlobMeta, Cloud: uuid.New(), Local: uuid.New()},
	}}
	raw, err := bc.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, microsoft.BlobContainerName(1)), raw, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, microsoft.FileName(bc.Blobs[0].Local)), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, microsoft.FileName(bc.Blobs[1].Local)), block, 0o644))

	f.index.Entries = append(f.index.Entries, microsoft.Entry{
		Identifier:    identifier,
		Identifier2:   identifier,
		SyncTime:      "0x8DCB1E3A1B2C3D4",
		BlobExtension: 1,
		SyncState:     microsoft.SyncSynced,
		Directory:     dirID,
		LastModified:  baseTime,
		TotalSize:     uint64(len(data) + len(block)),
	})
}

func (f *fixture) save() string {
	raw, err := f.index.Marshal()
	require.NoError(f.t, err)
	require.NoError(f.t, os.WriteFile(filepath.Join(f.root, microsoft.IndexName), raw, 0o644))
	return f.root
}

func open(t *testing.T, root string, strategy platform.LoadingStrategy) (*platform.Platform, *microsoft.Hooks) {
	t.Helper()
	s := platform.DefaultSettings()
	s.LoadingStrategy = strategy
	h := microsoft.New()
	p, err := platform.New(root, h, platform.WithSettings(s), platform.WithLogger(logging.ForTest(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, h
}

func standardFixture(t *testing.T) string {
	f := newFixture(t)
	f.add("Settings", meta.SlotAccountData, `{"F2P":4647,"UserSettingsData":{}}`)
	f.add("Slot1Auto", 2, `{"F2P":4647,"6f=":{"wGS":100}}`)
	f.add("Slot1Manual", 3, `{"F2P":4647,"6f=":{"wGS":200}}`)
	return f.save()
}

func TestDiscover(t *testing.T) {
	root := standardFixture(t)
	p, h := open(t, root, platform.Full)

	require.True(t, p.Account().IsLoaded())
	for _, mi := range []int{2, 3} {
		c := p.Container(mi)
		require.Truef(t, c.IsLoaded(), "%s: %s", c, c.IncompatibilityTag())
		assert.Equal(t, uint8(1), c.Extra().Microsoft.BlobExtension)
		assert.True(t, c.LastWriteTime().Equal(baseTime))
		assert.Equal(t, 0x18, c.Extra().MetaLength)
	}
	assert.False(t, p.Container(4).Exists())

	units, _ := p.Container(3).Int("PlayerStateData.Units")
	assert.Equal(t, int64(200), units)
	assert.Equal(t, "2535425862448807", h.Identity(p).UID)
	assert.Equal(t, "XB", h.Identity(p).PTK)
}

func TestDiscover_MissingIndex(t *testing.T) {
	_, err := microsoft.Open(t.TempDir())
	assert.Error(t, err)
}

func TestWrite_RotatesBlobs(t *testing.T) {
	root := standardFixture(t)
	p, h := open(t, root, platform.Partial)
	c := p.Container(2)
	p.Load(c)
	require.True(t, c.IsLoaded())

	before := c.Extra().Microsoft
	dir := filepath.Join(root, microsoft.FileName(before.Directory))

	require.NoError(t, c.SetValue("PlayerStateData.Units", 29070100))
	written := time.Now()
	require.NoError(t, p.Write(c, written))

	after := c.Extra().Microsoft
	assert.Equal(t, uint8(2), after.BlobExtension)
	assert.Equal(t, before.Directory, after.Directory)
	assert.Equal(t, before.CloudData, after.CloudData)
	assert.NotEqual(t, before.LocalData, after.LocalData)
	assert.Equal(t, microsoft.SyncModified, after.SyncState)

	assert.NoFileExists(t, filepath.Join(dir, microsoft.BlobContainerName(1)))
	assert.NoFileExists(t, filepath.Join(dir, microsoft.FileName(before.LocalData)))
	assert.NoFileExists(t, filepath.Join(dir, microsoft.FileName(before.LocalMeta)))
	assert.FileExists(t, filepath.Join(dir, microsoft.BlobContainerName(2)))
	assert.FileExists(t, filepath.Join(dir, microsoft.FileName(after.LocalData)))

	entry, ok := h.Index().Entry("Slot1Auto")
	require.True(t, ok)
	assert.True(t, entry.LastModified.Equal(microsoft.Truncate(written)))
	assert.True(t, c.LastWriteTime().Equal(entry.LastModified))

	fresh, fh := open(t, root, platform.Full)
	units, _ := fresh.Container(2).Int("PlayerStateData.Units")
	assert.Equal(t, int64(29070100), units)
	units, _ = fresh.Container(3).Int("PlayerStateData.Units")
	assert.Equal(t, int64(200), units)
	freshEntry, _ := fh.Index().Entry("Slot1Auto")
	assert.Equal(t, entry.TotalSize, freshEntry.TotalSize)
	assert.Equal(t, "NMS.exe", fh.Index().ProcessIdentifier)
}

func TestWrite_SyncedAppliesTime(t *testing.T) {
	root := standardFixture(t)
	p, h := open(t, root, platform.Partial)
	c := p.Container(2)
	p.Load(c)
	require.True(t, c.IsSynced())

	stamp := baseTime.Add(3 * time.Hour)
	require.NoError(t, p.Write(c, stamp))

	entry, ok := h.Index().Entry("Slot1Auto")
	require.True(t, ok)
	assert.True(t, entry.LastModified.Equal(stamp), "index time = %v, want %v", entry.LastModified, stamp)
	assert.True(t, c.LastWriteTime().Equal(stamp))

	_, fh := open(t, root, platform.Hollow)
	freshEntry, _ := fh.Index().Entry("Slot1Auto")
	assert.True(t, freshEntry.LastModified.Equal(stamp))
	other, _ := fh.Index().Entry("Slot1Manual")
	assert.True(t, other.LastModified.Equal(baseTime))
}

func TestWrite_LogsStaleBlobs(t *testing.T) {
	root := standardFixture(t)
	var logs bytes.Buffer
	s := platform.DefaultSettings()
	s.LoadingStrategy = platform.Full
	p, err := platform.New(root, microsoft.New(),
		platform.WithSettings(s),
		platform.WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	c := p.Container(2)
	require.True(t, c.IsLoaded())
	before := c.Extra().Microsoft
	dir := filepath.Join(root, microsoft.FileName(before.Directory))

	// A non-empty directory in place of the old data blob cannot be removed.
	stuck := filepath.Join(dir, microsoft.FileName(before.LocalData))
	require.NoError(t, os.Remove(stuck))
	require.NoError(t, os.MkdirAll(filepath.Join(stuck, "pinned"), 0o755))

	require.NoError(t, c.SetValue("PlayerStateData.Units", 5))
	require.NoError(t, p.Write(c, time.Now()))

	assert.Contains(t, logs.String(), "removing replaced blob")
	assert.Contains(t, logs.String(), microsoft.FileName(before.LocalData))
	assert.NoFileExists(t, filepath.Join(dir, microsoft.FileName(before.LocalMeta)))
	assert.Equal(t, uint8(2), c.Extra().Microsoft.BlobExtension)
}

func TestCopyDelete_MaintainIndex(t *testing.T) {
	root := standardFixture(t)
	p, h := open(t, root, platform.Full)

	require.NoError(t, p.Copy(
		[]*container.Container{p.Container(3)},
		[]*container.Container{p.Container(5)}))
	entry, ok := h.Index().Entry("Slot2Manual")
	require.True(t, ok)
	assert.Equal(t, microsoft.SyncCreated, entry.SyncState)
	assert.Equal(t, uint8(1), entry.BlobExtension)
	assert.DirExists(t, filepath.Join(root, microsoft.FileName(entry.Directory)))

	oldDir := filepath.Join(root, microsoft.FileName(p.Container(2).Extra().Microsoft.Directory))
	require.NoError(t, p.Delete([]*container.Container{p.Container(2)}))
	assert.NoDirExists(t, oldDir)
	_, ok = h.Index().Entry("Slot1Auto")
	assert.False(t, ok)

	fresh, fh := open(t, root, platform.Full)
	assert.False(t, fresh.Container(2).Exists())
	units, _ := fresh.Container(5).Int("PlayerStateData.Units")
	assert.Equal(t, int64(200), units)
	assert.Len(t, fh.Index().Entries, 3)
}

func TestAffectedByChange(t *testing.T) {
	root := standardFixture(t)
	p, h := open(t, root, platform.Partial)

	// Another process (the game) writes Slot1Manual and creates Slot3Auto.
	game, _ := open(t, root, platform.Full)
	c := game.Container(3)
	require.NoError(t, c.SetValue("PlayerStateData.Units", 1))
	require.NoError(t, game.Write(c, baseTime.Add(time.Hour)))
	require.NoError(t, game.Copy(
		[]*container.Container{game.Container(2)},
		[]*container.Container{game.Container(6)}))

	assert.Empty(t, h.AffectedByChange(p, p.Containers(), "unrelated"))
	changes := h.AffectedByChange(p, p.Containers(), microsoft.IndexName)
	got := map[string]container.ChangeType{}
	for _, ch := range changes {
		got[ch.Container.Identifier()] = ch.Type
	}
	assert.Equal(t, map[string]container.ChangeType{
		"Slot1Manual": container.ChangeModified,
		"Slot3Auto":   container.ChangeCreated,
	}, got)
}
