package meta

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/thoreinstein/nmsio/internal/cipher"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/gameversion"
)

func allFormats() []*Format {
	return []*Format{Steam(), GOG(), Microsoft(), Switch(), PlayStation(), MemoryDat()}
}

// sampleBlock builds a plain, well-formed block: random content everywhere,
// the magic header, a known format tag and NUL-terminated names followed by
// zero padding.
func sampleBlock(t *testing.T, f *Format, length int, seed uint64) []byte {
	t.Helper()
	layout, ok := f.Layout(length)
	if !ok {
		t.Fatalf("%s: no layout for %d", f.Name, length)
	}
	rng := rand.New(rand.NewPCG(seed, uint64(length)))
	b := make([]byte, length)
	for i := range b {
		b[i] = byte(rng.IntN(256))
	}
	for _, s := range layout.spans {
		region := b[s.offset : s.offset+s.size]
		switch s.field {
		case fieldHeader:
			binary.LittleEndian.PutUint32(region, f.Header)
		case fieldFormat:
			binary.LittleEndian.PutUint32(region, gameversion.MetaFormat2)
		case fieldSaveName, fieldSaveSummary:
			clear(region)
			copy(region, "Expedition Alpha")
		}
	}
	return b
}

func TestFormat_Lengths(t *testing.T) {
	tests := []struct {
		format *Format
		want   []int
	}{
		{Steam(), []int{0x68, 0x168, 0x180, 0x1B0}},
		{GOG(), []int{0x68, 0x168, 0x180, 0x1B0}},
		{Microsoft(), []int{0x18, 0x138, 0x150, 0x180}},
		{Switch(), []int{0x64, 0x138, 0x150, 0x180}},
		{PlayStation(), []int{0x20, 0x144, 0x15C, 0x18C}},
		{MemoryDat(), []int{0x20}},
	}
	for _, tt := range tests {
		t.Run(tt.format.Name, func(t *testing.T) {
			got := tt.format.Lengths()
			if len(got) != len(tt.want) {
				t.Fatalf("Lengths() = %#x, want %#x", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Lengths()[%d] = %#x, want %#x", i, got[i], tt.want[i])
				}
				if got[i]%4 != 0 {
					t.Errorf("length %#x is not word aligned", got[i])
				}
			}
		})
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	for _, f := range allFormats() {
		for _, length := range f.Lengths() {
			for _, slot := range []uint32{SlotAccountData, SlotFirstSave, 17, SlotLastSave} {
				plain := sampleBlock(t, f, length, uint64(slot))
				raw := plain
				if f.Encrypted {
					var err error
					raw, err = cipher.Encrypt(plain, f.Key, slot, cipher.Rounds(length, f.VanillaLength))
					if err != nil {
						t.Fatal(err)
					}
				}

				e, err := f.Decode(raw, slot)
				if err != nil {
					t.Fatalf("%s/%#x/slot %d: Decode() error = %v", f.Name, length, slot, err)
				}
				if e.MetaLength != length {
					t.Errorf("MetaLength = %#x, want %#x", e.MetaLength, length)
				}
				if e.KeySlot != slot {
					t.Errorf("KeySlot = %d, want %d", e.KeySlot, slot)
				}
				layout, _ := f.Layout(length)
				if len(e.Bytes) != layout.GapLength() {
					t.Errorf("len(Bytes) = %d, want %d", len(e.Bytes), layout.GapLength())
				}

				got, err := f.Encode(e, slot)
				if err != nil {
					t.Fatalf("%s/%#x: Encode() error = %v", f.Name, length, err)
				}
				if !bytes.Equal(got, raw) {
					t.Errorf("%s/%#x/slot %d: Encode(Decode(b)) != b", f.Name, length, slot)
				}
			}
		}
	}
}

func TestDecode_Fields(t *testing.T) {
	f := Steam()
	want := Extra{
		MetaLength:       0x1B0,
		Era:              gameversion.EraWorldsPartII,
		MetaFormat:       gameversion.MetaFormat4,
		DecompressedSize: 123456,
		CompressedSize:   65432,
		ProfileHash:      0xDEADBEEF,
		BaseVersion:      4153,
		GameMode:         gameversion.Survival,
		Season:           0,
		TotalPlayTime:    987654,
		SaveName:         "Home",
		SaveSummary:      "On freighter (Hyperion)",
		DifficultyPreset: 3,
		SlotIdentifier:   0x1122334455667788,
		SlotTimestamp:    1_700_000_000,
		SlotFormat:       gameversion.MetaFormat4,
		DifficultyTag:    7,
		KeySlot:          5,
	}
	raw, err := f.Encode(want, 5)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(raw) != 0x1B0 {
		t.Fatalf("len = %#x", len(raw))
	}

	got, err := f.Decode(raw, 5)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	layout, _ := f.Layout(0x1B0)
	want.Bytes = make([]byte, layout.GapLength())
	if !got.Equal(want) {
		t.Errorf("Decode() = %+v\nwant %+v", got, want)
	}
}

func TestEncode_EraSelectsLength(t *testing.T) {
	f := Microsoft()
	raw, err := f.Encode(Extra{Era: gameversion.EraWaypoint, BaseVersion: 4140}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 0x138 {
		t.Errorf("len = %#x, want 0x138", len(raw))
	}
	if got := binary.LittleEndian.Uint32(raw[4:]); got != 0 {
		t.Errorf("format = %#x, want the zero tag it was given", got)
	}
}

func TestSeal_KeepsDecodedFormatTag(t *testing.T) {
	f := Steam()
	plain := sampleBlock(t, f, 0x1B0, 3)
	binary.LittleEndian.PutUint32(plain[4:], 0)
	raw, err := cipher.Encrypt(plain, f.Key, 2, cipher.Rounds(0x1B0, f.VanillaLength))
	if err != nil {
		t.Fatal(err)
	}

	e, err := f.Decode(raw, 2)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if e.MetaFormat != 0 {
		t.Fatalf("MetaFormat = %#x, want 0", e.MetaFormat)
	}
	e.BaseVersion = 4153

	again, sealed, err := f.Seal(e, 2)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if sealed.MetaFormat != 0 {
		t.Errorf("Seal() MetaFormat = %#x, want 0", sealed.MetaFormat)
	}
	got, err := f.Decode(again, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got.MetaFormat != 0 {
		t.Errorf("re-decoded MetaFormat = %#x, want 0", got.MetaFormat)
	}
}

func TestDecode_KeySearch(t *testing.T) {
	f := Steam()
	plain := sampleBlock(t, f, 0x180, 1)
	raw, err := cipher.Encrypt(plain, f.Key, 12, cipher.RoundsExtended)
	if err != nil {
		t.Fatal(err)
	}

	e, err := f.Decode(raw, 4)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if e.KeySlot != 12 {
		t.Errorf("KeySlot = %d, want 12", e.KeySlot)
	}

	// Re-encoding for the slot the block now lives in uses that slot's key.
	moved, err := f.Encode(e, 4)
	if err != nil {
		t.Fatal(err)
	}
	again, err := f.Decode(moved, 4)
	if err != nil {
		t.Fatal(err)
	}
	if again.KeySlot != 4 {
		t.Errorf("KeySlot after re-encode = %d, want 4", again.KeySlot)
	}
}

func TestDecode_Incompatible(t *testing.T) {
	steam := Steam()
	ms := Microsoft()

	badHeader := sampleBlock(t, ms, 0x18, 1)
	binary.LittleEndian.PutUint32(badHeader, 0x12345678)

	garbage := make([]byte, 0x68)
	for i := range garbage {
		garbage[i] = byte(i * 7)
	}

	tests := []struct {
		name   string
		format *Format
		raw    []byte
		want   error
	}{
		{"unknown length", steam, make([]byte, 0x70), errors.ErrUnknownMetaLength},
		{"header mismatch", ms, badHeader, errors.ErrHeaderMismatch},
		{"no key matches", steam, garbage, errors.ErrKeySearchExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.format.Decode(tt.raw, 2)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, errors.ErrIncompatible) {
				t.Errorf("Decode() error = %v is not an incompatibility", err)
			}
		})
	}
}

func TestNames(t *testing.T) {
	b := make([]byte, NameLength)
	copy(b, "Base\x00junkjunk")
	if got := readName(b); got != "Base" {
		t.Errorf("readName() = %q, want %q", got, "Base")
	}

	writeName(b, "Base")
	if !bytes.Equal(b[:5], []byte("Base\x00")) || bytes.ContainsAny(b[5:], "junk") {
		t.Errorf("writeName() did not zero pad: %q", b)
	}

	long := strings.Repeat("é", 100) // 200 bytes
	writeName(b, long)
	got := readName(b)
	if len(got) > NameLength-1 {
		t.Errorf("name not truncated: %d bytes", len(got))
	}
	if !strings.HasPrefix(long, got) || len(got)%2 != 0 {
		t.Errorf("name truncated inside a rune: %q", got)
	}
}

func TestKeyCandidates(t *testing.T) {
	save := KeyCandidates(5)
	if len(save) != 30 {
		t.Fatalf("len = %d, want 30", len(save))
	}
	if save[0] != SlotFirstSave || save[len(save)-1] != SlotAccountData {
		t.Errorf("save candidates should list saves first and the account last: %v", save)
	}
	for _, s := range save {
		if s == 5 {
			t.Error("expected slot must be excluded")
		}
	}

	account := KeyCandidates(SlotAccountData)
	if account[0] != SlotUserSettings {
		t.Errorf("account candidates start with %d", account[0])
	}
	if len(account) > 31 {
		t.Errorf("search is bounded to 31 candidates, got %d", len(account))
	}
}

func TestExtra_CloneIsIndependent(t *testing.T) {
	e := Extra{Bytes: []byte{1, 2, 3}}
	c := e.Clone()
	c.Bytes[0] = 9
	if e.Bytes[0] != 1 {
		t.Error("Clone() shares Bytes")
	}
	if e.Equal(c) {
		t.Error("Equal() should see the difference")
	}
}

func TestSeal(t *testing.T) {
	f := Steam()
	in := Extra{Era: gameversion.EraWaypoint, BaseVersion: 4140, SaveName: "Home", Bytes: []byte{1, 2, 3}}
	raw, e, err := f.Seal(in, 5)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if len(raw) != 0x168 || e.MetaLength != 0x168 {
		t.Errorf("length = %#x, MetaLength = %#x, want 0x168", len(raw), e.MetaLength)
	}
	if e.Era != gameversion.EraWaypoint || e.KeySlot != 5 {
		t.Errorf("Era = %v, KeySlot = %d", e.Era, e.KeySlot)
	}
	if e.MetaFormat != gameversion.MetaFormat2 {
		t.Errorf("MetaFormat = %#x, want %#x", e.MetaFormat, gameversion.MetaFormat2)
	}
	layout, _ := f.Layout(0x168)
	if len(e.Bytes) != layout.GapLength() || !bytes.HasPrefix(e.Bytes, []byte{1, 2, 3}) {
		t.Errorf("Bytes = %d bytes, want %d starting with the input", len(e.Bytes), layout.GapLength())
	}

	got, err := f.Decode(raw, 5)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !got.Equal(e) {
		t.Errorf("Decode(Seal()) = %+v\nwant %+v", got, e)
	}
}
