package doctor

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/nmsio/internal/compress"
	"github.com/thoreinstein/nmsio/internal/config"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/logging"
	"github.com/thoreinstein/nmsio/internal/meta"
	"github.com/thoreinstein/nmsio/internal/platform"
	"github.com/thoreinstein/nmsio/internal/platform/steam"
)

func TestConfigCheck(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.yaml")
	require.NoError(t, config.Save(config.Default(), valid))
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("version: [1"), 0o600))
	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("version: 9\nsettings:\n  loading_strategy: eager\n"), 0o600))

	tests := []struct {
		name     string
		path     string
		want     Severity
		problems int
	}{
		{"missing file", filepath.Join(dir, "missing.yaml"), SeverityInfo, 0},
		{"valid file", valid, SeverityPass, 0},
		{"not yaml", broken, SeverityError, 0},
		{"invalid values", invalid, SeverityError, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfigCheck(tt.path)
			result := c.Run()
			assert.Equal(t, tt.want, result.Status, result.Message)
			assert.Equal(t, "config-file", result.Name)
			assert.Equal(t, tt.path, result.Details["path"])
			if tt.problems > 0 {
				assert.Len(t, result.Details["problems"], tt.problems)
			}
		})
	}
}

func TestSaveRootCheck(t *testing.T) {
	found := t.TempDir()

	c := &SaveRootCheck{root: func(string) string { return filepath.Join(found, "missing") }}
	result := c.Run()
	assert.Equal(t, SeverityWarning, result.Status)
	assert.NotEmpty(t, result.FixHint)

	c = &SaveRootCheck{root: func(name string) string {
		if name == "steam" {
			return found
		}
		return ""
	}}
	result = c.Run()
	assert.Equal(t, SeverityPass, result.Status)
	roots := result.Details["roots"].(map[string]any)
	assert.Equal(t, map[string]any{"path": found, "exists": true}, roots["steam"])
	assert.Equal(t, map[string]any{"path": "", "exists": false}, roots["gog"])
}

func TestBackupDirectoryCheck(t *testing.T) {
	t.Run("missing directory is created by fix", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "backup")
		c := NewBackupDirectoryCheck(dir)
		result := c.Run()
		assert.Equal(t, SeverityInfo, result.Status)
		assert.True(t, result.Fixable)
		require.True(t, c.CanFix())

		fixes := c.Fix()
		require.Len(t, fixes, 1)
		assert.True(t, fixes[0].Fixed, fixes[0].Description)
		assert.DirExists(t, dir)

		assert.Equal(t, SeverityPass, c.Run().Status)
		assert.False(t, c.CanFix())
	})

	t.Run("file in the way", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "backup")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		c := NewBackupDirectoryCheck(path)
		assert.Equal(t, SeverityError, c.Run().Status)
		assert.False(t, c.CanFix())
	})

	t.Run("read-only directory", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("permissions are not enforced")
		}
		dir := t.TempDir()
		require.NoError(t, os.Chmod(dir, 0o555))
		t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

		c := NewBackupDirectoryCheck(dir)
		result := c.Run()
		assert.Equal(t, SeverityError, result.Status)
		require.True(t, c.CanFix())
		fixes := c.Fix()
		require.Len(t, fixes, 1)
		assert.True(t, fixes[0].Fixed)
		assert.Equal(t, SeverityPass, c.Run().Status)
	})
}

// steamPlatform opens a Steam directory holding the given saves. A nil
// payload writes a container that cannot be decoded.
func steamPlatform(t *testing.T, saves map[int][]byte) *platform.Platform {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "st_76561198000000001")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	h := steam.New()
	for mi, plain := range saves {
		data := []byte("junk")
		if plain != nil {
			var err error
			data, err = compress.CompressBlock(plain)
			require.NoError(t, err)
		}
		slot := uint32(mi)
		if mi == container.AccountIndex {
			slot = meta.SlotAccountData
		}
		block, _, err := meta.Steam().Seal(meta.Extra{
			BaseVersion:      4135,
			DecompressedSize: uint32(len(plain)),
			CompressedSize:   uint32(len(data)),
		}, slot)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, h.DataName(mi)), data, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, h.MetaName(mi)), block, 0o644))
	}

	s := platform.DefaultSettings()
	s.LoadingStrategy = platform.Full
	p, err := steam.Open(dir, platform.WithSettings(s), platform.WithLogger(logging.ForTest(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

var plainSave = []byte(`{"F2P":4647,"6f=":{"wGS":1},"<h0":{"Lg8":1,"Pk4":"Home"}}`)

func TestSaveDirectoryCheck(t *testing.T) {
	t.Run("readable saves", func(t *testing.T) {
		c := NewSaveDirectoryCheck(steamPlatform(t, map[int][]byte{2: plainSave, 5: plainSave}))
		result := c.Run()
		assert.Equal(t, SeverityPass, result.Status, result.Message)
		assert.Equal(t, 2, result.Details["saves"])
		assert.Equal(t, "steam", result.Details["platform"])
	})

	t.Run("no saves", func(t *testing.T) {
		c := NewSaveDirectoryCheck(steamPlatform(t, map[int][]byte{container.AccountIndex: plainSave}))
		assert.Equal(t, SeverityWarning, c.Run().Status)
	})

	t.Run("unreadable container", func(t *testing.T) {
		c := NewSaveDirectoryCheck(steamPlatform(t, map[int][]byte{2: plainSave, 3: nil}))
		result := c.Run()
		assert.Equal(t, SeverityWarning, result.Status)
		incompatible := result.Details["incompatible"].(map[string]any)
		assert.Contains(t, incompatible, "Slot1Manual")
	})

	t.Run("read-only file is fixed", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("permissions are not enforced")
		}
		p := steamPlatform(t, map[int][]byte{2: plainSave})
		data := p.Container(2).DataFile()
		require.NoError(t, os.Chmod(data, 0o444))

		c := NewSaveDirectoryCheck(p)
		result := c.Run()
		assert.Equal(t, SeverityError, result.Status)
		assert.Equal(t, []string{data}, result.Details["read_only"])
		require.Equal(t, 1, c.CountFixable())

		fixes := c.Fix()
		require.Len(t, fixes, 1)
		assert.True(t, fixes[0].Fixed, fixes[0].Description)
		info, err := os.Stat(data)
		require.NoError(t, err)
		assert.Equal(t, secureFilePerm, info.Mode().Perm())
		assert.Equal(t, SeverityPass, c.Run().Status)
	})
}

func TestDedupIssues(t *testing.T) {
	issues := dedupIssues([]pathIssue{
		{Path: "/a/memory.dat", Problem: "first"},
		{Path: "/a/memory.dat", Problem: "second"},
		{Path: "/a/./b"},
		{Path: "/a/b"},
	})
	require.Len(t, issues, 2)
	assert.Equal(t, "first", issues[0].Problem)
}

func TestPermissionFixer_UnknownType(t *testing.T) {
	f := &PermissionFixer{}
	f.setIssues([]pathIssue{{Path: "/x", Type: "socket", Fixable: true}, {Path: "/y", Fixable: false}})
	assert.Equal(t, 1, f.CountFixable())
	fixes := f.Fix()
	require.Len(t, fixes, 1)
	assert.False(t, fixes[0].Fixed)
	assert.Error(t, fixes[0].Error)
}
