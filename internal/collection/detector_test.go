package collection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/nmsio/internal/compress"
	"github.com/thoreinstein/nmsio/internal/platform"
)

func stream(t *testing.T, payload string) []byte {
	t.Helper()
	s, err := compress.CompressStream([]byte(payload))
	require.NoError(t, err)
	return s
}

func TestDetectFile(t *testing.T) {
	const (
		ps4    = `{"F2P":4647,"8>q":"PS4|Final","6f=":{"wGS":1}}`
		ps5    = `{"F2P":4647,"8>q":"PS5|Final","6f=":{"wGS":1}}`
		nx     = `{"F2P":4647,"8>q":"NX1|Final","6f=":{"wGS":1}}`
		pc     = `{"F2P":4647,"8>q":"PC|Final","6f=":{"wGS":1}}`
		plain  = `{"Version":4135,"Platform":"PC|Final"}`
		plainX = `{"Version":4135,"Platform":"NX1|Final"}`
	)
	block, err := compress.CompressBlock([]byte(pc))
	require.NoError(t, err)

	tests := []struct {
		name    string
		file    string
		content []byte
		want    Detection
	}{
		{
			name:    "save wizard",
			file:    "savedata05.hg",
			content: compress.WrapSaveWizard(stream(t, ps4)),
			want:    Detection{Kind: platform.KindPlayStation, MetaIndex: 5, SaveWizard: true},
		},
		{
			name:    "ps4 stream",
			file:    "savedata03.hg",
			content: stream(t, ps4),
			want:    Detection{Kind: platform.KindPlayStation, MetaIndex: 3},
		},
		{
			name:    "ps5 stream without slot number",
			file:    "memory.dat",
			content: stream(t, ps5),
			want:    Detection{Kind: platform.KindPlayStation, MetaIndex: 2, MemoryDat: true},
		},
		{
			name:    "switch stream",
			file:    "savedata07.hg",
			content: stream(t, nx),
			want:    Detection{Kind: platform.KindSwitch, MetaIndex: 7},
		},
		{
			name:    "switch plain json",
			file:    "savedata00.hg",
			content: []byte(plainX),
			want:    Detection{Kind: platform.KindSwitch, MetaIndex: 0},
		},
		{
			name:    "steam stream",
			file:    "save2.hg",
			content: stream(t, pc),
			want:    Detection{Kind: platform.KindSteam, MetaIndex: 3},
		},
		{
			name:    "steam plain first save",
			file:    "save.hg",
			content: []byte(plain),
			want:    Detection{Kind: platform.KindSteam, MetaIndex: 2},
		},
		{
			name:    "steam account",
			file:    "accountdata.hg",
			content: []byte(`{"F2P":4647}`),
			want:    Detection{Kind: platform.KindSteam, MetaIndex: 0},
		},
		{
			name:    "steam out of range wraps",
			file:    "save99.hg",
			content: []byte(plain),
			want:    Detection{Kind: platform.KindSteam, MetaIndex: 2},
		},
		{
			name:    "microsoft blob",
			file:    "5A7B9C0D1E2F30415263748596A7B8C9",
			content: block,
			want:    Detection{Kind: platform.KindMicrosoft, MetaIndex: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, tt.content, 0o644))
			got, err := DetectFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFile_Missing(t *testing.T) {
	_, err := DetectFile(filepath.Join(t.TempDir(), "nope.hg"))
	assert.Error(t, err)
}

func TestDetect_OnlyHeadCounts(t *testing.T) {
	head := make([]byte, HeadLength+64)
	copy(head[HeadLength:], `{"F2P":`)
	got := Detect("save.hg", head, nil)
	assert.Equal(t, platform.KindMicrosoft, got.Kind)
}

func TestMetaIndexFromName(t *testing.T) {
	tests := []struct {
		kind   platform.Kind
		name   string
		want   int
		wantOK bool
	}{
		{platform.KindSteam, "mf_save.hg", 2, true},
		{platform.KindSteam, "mf_save30.hg", 31, true},
		{platform.KindSteam, "save31.hg", 2, true},
		{platform.KindGOG, "accountdata.hg", 0, true},
		{platform.KindSteam, "notes.txt", 2, false},
		{platform.KindSwitch, "manifest12.hg", 12, true},
		{platform.KindSwitch, "savedata01.hg", 2, true},
		{platform.KindPlayStation, "savedata31.hg.meta", 31, true},
		{platform.KindPlayStation, "savedata32.hg", 2, true},
		{platform.KindPlayStation, "memory.dat", 2, false},
		{platform.KindMicrosoft, "0123456789", 2, false},
	}
	for _, tt := range tests {
		got, ok := MetaIndexFromName(tt.kind, tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("MetaIndexFromName(%s, %q) = %d, %v; want %d, %v", tt.kind, tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDetection_String(t *testing.T) {
	d := Detection{Kind: platform.KindPlayStation, MetaIndex: 2, MemoryDat: true}
	assert.Equal(t, "playstation meta index 2 (memory.dat)", d.String())
}
