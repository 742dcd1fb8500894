package meta

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"

	"github.com/thoreinstein/nmsio/internal/cipher"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/gameversion"
)

// Persistent storage slots used as cipher key material.
const (
	SlotUserSettings uint32 = 0
	SlotAccountData  uint32 = 1
	SlotFirstSave    uint32 = 2
	SlotLastSave     uint32 = 31
)

// KeyCandidates returns the slots to try when the expected key fails, same
// category first (save slots for a save, the account slot for the account).
func KeyCandidates(expected uint32) []uint32 {
	saves := make([]uint32, 0, SlotLastSave-SlotFirstSave+1)
	for s := SlotFirstSave; s <= SlotLastSave; s++ {
		if s != expected {
			saves = append(saves, s)
		}
	}
	if expected == SlotAccountData {
		return append([]uint32{SlotUserSettings}, saves...)
	}
	return append(saves, SlotAccountData)
}

// Decode parses a meta block that belongs to the persistent storage slot.
// Encrypted formats are decrypted first; when the slot's own key does not
// reveal the magic header every other slot key is tried.
func (f *Format) Decode(raw []byte, slot uint32) (Extra, error) {
	layout, ok := f.layouts[len(raw)]
	if !ok {
		return Extra{}, errors.Wrapf(errors.ErrUnknownMetaLength, "%s: %d bytes", f.Name, len(raw))
	}

	plain := raw
	keySlot := slot
	if f.Encrypted {
		rounds := cipher.Rounds(len(raw), f.VanillaLength)
		var err error
		plain, keySlot, err = cipher.DecryptSearch(raw, f.Key, rounds, slot, KeyCandidates(slot), f.hasHeader)
		if err != nil {
			if errors.Is(err, cipher.ErrNoKey) {
				return Extra{}, errors.Wrapf(errors.ErrKeySearchExhausted, "%s: slot %d", f.Name, slot)
			}
			return Extra{}, errors.Wrap(err, "decrypting meta")
		}
	} else if !f.hasHeader(plain) {
		return Extra{}, errors.Wrapf(errors.ErrHeaderMismatch, "%s: got %#08x", f.Name, binary.LittleEndian.Uint32(plain))
	}

	e := Extra{
		MetaLength: len(raw),
		Era:        layout.Era,
		KeySlot:    keySlot,
	}
	for _, s := range layout.spans {
		readField(&e, s, plain[s.offset:s.offset+s.size])
	}
	for _, g := range layout.gaps() {
		e.Bytes = append(e.Bytes, plain[g[0]:g[1]]...)
	}
	return e, nil
}

// Encode lays out e and, for encrypted formats, encrypts the block with the
// key of slot. The length is taken from e.MetaLength, or from the era when
// the length is not one the format knows.
func (f *Format) Encode(e Extra, slot uint32) ([]byte, error) {
	length := e.MetaLength
	layout, ok := f.layouts[length]
	if !ok {
		length = f.LengthFor(e.Era)
		layout, ok = f.layouts[length]
		if !ok {
			return nil, errors.Wrapf(errors.ErrUnknownMetaLength, "%s: era %v", f.Name, e.Era)
		}
	}

	buf := make([]byte, length)
	e.MetaLength = length
	for _, s := range layout.spans {
		writeField(f, e, s, buf[s.offset:s.offset+s.size])
	}

	rest := e.Bytes
	for _, g := range layout.gaps() {
		n := copy(buf[g[0]:g[1]], rest)
		rest = rest[n:]
	}

	if !f.Encrypted {
		return buf, nil
	}
	return cipher.Encrypt(buf, f.Key, slot, cipher.Rounds(length, f.VanillaLength))
}

// Seal encodes e like Encode and returns e updated to describe the block
// that was written. A new block, one with no MetaLength yet, gets the format
// tag the game writes for its base version; a decoded block keeps its tag.
func (f *Format) Seal(e Extra, slot uint32) ([]byte, Extra, error) {
	if e.MetaLength == 0 && e.MetaFormat == 0 {
		e.MetaFormat = gameversion.MetaFormatFor(int(e.BaseVersion))
	}
	b, err := f.Encode(e, slot)
	if err != nil {
		return nil, e, err
	}
	layout := f.layouts[len(b)]
	e.MetaLength = len(b)
	e.Era = layout.Era
	e.KeySlot = slot
	gap := make([]byte, layout.GapLength())
	copy(gap, e.Bytes)
	e.Bytes = gap
	return b, e, nil
}

func (f *Format) hasHeader(b []byte) bool {
	return len(b) >= 4 && binary.LittleEndian.Uint32(b) == f.Header
}

// Peek reports the header value of a plain block, for diagnostics.
func Peek(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func readField(e *Extra, s span, b []byte) {
	le := binary.LittleEndian
	switch s.field {
	case fieldHeader:
		// validated by the caller
	case fieldFormat:
		e.MetaFormat = le.Uint32(b)
	case fieldDecompressedSize:
		e.DecompressedSize = le.Uint32(b)
	case fieldCompressedSize:
		e.CompressedSize = le.Uint32(b)
	case fieldSizeDisk:
		e.SizeDisk = le.Uint32(b)
	case fieldProfileHash:
		e.ProfileHash = le.Uint32(b)
	case fieldMetaIndex:
		e.MetaIndex = le.Uint32(b)
	case fieldTimestamp:
		e.Timestamp = le.Uint32(b)
	case fieldChunkOffset:
		e.ChunkOffset = le.Uint32(b)
	case fieldChunkSize:
		e.ChunkSize = le.Uint32(b)
	case fieldBaseVersion:
		e.BaseVersion = int32(le.Uint32(b))
	case fieldGameMode:
		e.GameMode = gameversion.GameMode(le.Uint16(b))
	case fieldSeason:
		e.Season = gameversion.Season(le.Uint16(b))
	case fieldTotalPlayTime:
		e.TotalPlayTime = le.Uint64(b)
	case fieldSaveName:
		e.SaveName = readName(b)
	case fieldSaveSummary:
		e.SaveSummary = readName(b)
	case fieldDifficultyPreset:
		e.DifficultyPreset = b[0]
	case fieldSlotIdentifier:
		e.SlotIdentifier = le.Uint64(b)
	case fieldSlotTimestamp:
		e.SlotTimestamp = le.Uint32(b)
	case fieldSlotFormat:
		e.SlotFormat = le.Uint32(b)
	case fieldDifficultyTag:
		e.DifficultyTag = le.Uint32(b)
	}
}

func writeField(f *Format, e Extra, s span, b []byte) {
	le := binary.LittleEndian
	switch s.field {
	case fieldHeader:
		le.PutUint32(b, f.Header)
	case fieldFormat:
		le.PutUint32(b, e.MetaFormat)
	case fieldDecompressedSize:
		le.PutUint32(b, e.DecompressedSize)
	case fieldCompressedSize:
		le.PutUint32(b, e.CompressedSize)
	case fieldSizeDisk:
		le.PutUint32(b, e.SizeDisk)
	case fieldProfileHash:
		le.PutUint32(b, e.ProfileHash)
	case fieldMetaIndex:
		le.PutUint32(b, e.MetaIndex)
	case fieldTimestamp:
		le.PutUint32(b, e.Timestamp)
	case fieldChunkOffset:
		le.PutUint32(b, e.ChunkOffset)
	case fieldChunkSize:
		le.PutUint32(b, e.ChunkSize)
	case fieldBaseVersion:
		le.PutUint32(b, uint32(e.BaseVersion))
	case fieldGameMode:
		le.PutUint16(b, uint16(e.GameMode))
	case fieldSeason:
		le.PutUint16(b, uint16(e.Season))
	case fieldTotalPlayTime:
		le.PutUint64(b, e.TotalPlayTime)
	case fieldSaveName:
		writeName(b, e.SaveName)
	case fieldSaveSummary:
		writeName(b, e.SaveSummary)
	case fieldDifficultyPreset:
		b[0] = e.DifficultyPreset
	case fieldSlotIdentifier:
		le.PutUint64(b, e.SlotIdentifier)
	case fieldSlotTimestamp:
		le.PutUint32(b, e.SlotTimestamp)
	case fieldSlotFormat:
		le.PutUint32(b, e.SlotFormat)
	case fieldDifficultyTag:
		le.PutUint32(b, e.DifficultyTag)
	}
}

// readName returns the text before the first NUL. The game leaves junk after
// the terminator; it is dropped.
func readName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// writeName writes s NUL terminated and zero padded, truncated on a rune
// boundary to leave room for the terminator.
func writeName(b []byte, s string) {
	clear(b)
	limit := len(b) - 1
	if len(s) > limit {
		s = s[:limit]
		for len(s) > 0 && !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
	}
	copy(b, s)
}
