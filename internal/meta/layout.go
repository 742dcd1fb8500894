package meta

import (
	"slices"

	"github.com/thoreinstein/nmsio/internal/gameversion"
)

type field int

const (
	fieldHeader field = iota
	fieldFormat
	fieldDecompressedSize
	fieldCompressedSize
	fieldSizeDisk
	fieldProfileHash
	fieldMetaIndex
	fieldTimestamp
	fieldChunkOffset
	fieldChunkSize
	fieldBaseVersion
	fieldGameMode
	fieldSeason
	fieldTotalPlayTime
	fieldSaveName
	fieldSaveSummary
	fieldDifficultyPreset
	fieldSlotIdentifier
	fieldSlotTimestamp
	fieldSlotFormat
	fieldDifficultyTag
)

// NameLength is the fixed size of the save name and summary fields.
const NameLength = 128

type span struct {
	field  field
	offset int
	size   int
}

// Extended tail sizes relative to the platform prefix.
const (
	tailWaypoint     = 292
	tailWorldsPartI  = 316
	tailWorldsPartII = 364
)

// tail returns the extended fields of an era, placed after a prefix of the
// given length. Unlisted regions (+16..+24, +281..+292, +308..+316,
// +320..+364) are opaque.
func tail(prefix int, era gameversion.Era) []span {
	if era < gameversion.EraWaypoint {
		return nil
	}
	spans := []span{
		{fieldBaseVersion, prefix + 0, 4},
		{fieldGameMode, prefix + 4, 2},
		{fieldSeason, prefix + 6, 2},
		{fieldTotalPlayTime, prefix + 8, 8},
		{fieldSaveName, prefix + 24, NameLength},
		{fieldSaveSummary, prefix + 152, NameLength},
		{fieldDifficultyPreset, prefix + 280, 1},
	}
	if era >= gameversion.EraWorldsPartI {
		spans = append(spans,
			span{fieldSlotIdentifier, prefix + 292, 8},
			span{fieldSlotTimestamp, prefix + 300, 4},
			span{fieldSlotFormat, prefix + 304, 4},
		)
	}
	if era >= gameversion.EraWorldsPartII {
		spans = append(spans, span{fieldDifficultyTag, prefix + 316, 4})
	}
	return spans
}

// Layout is the byte table of one meta length.
type Layout struct {
	Era    gameversion.Era
	Length int
	spans  []span
}

func newLayout(prefix []span, prefixLength, length int, era gameversion.Era) Layout {
	spans := slices.Clone(prefix)
	spans = append(spans, tail(prefixLength, era)...)
	slices.SortFunc(spans, func(a, b span) int { return a.offset - b.offset })
	return Layout{Era: era, Length: length, spans: spans}
}

// gaps returns the [start, end) ranges of the block no span covers.
func (l Layout) gaps() [][2]int {
	var out [][2]int
	pos := 0
	for _, s := range l.spans {
		if s.offset > pos {
			out = append(out, [2]int{pos, s.offset})
		}
		pos = max(pos, s.offset+s.size)
	}
	if pos < l.Length {
		out = append(out, [2]int{pos, l.Length})
	}
	return out
}

// GapLength is the number of opaque bytes in the layout.
func (l Layout) GapLength() int {
	n := 0
	for _, g := range l.gaps() {
		n += g[1] - g[0]
	}
	return n
}
