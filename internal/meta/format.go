package meta

import (
	"github.com/thoreinstein/nmsio/internal/cipher"
	"github.com/thoreinstein/nmsio/internal/gameversion"
)

// Magic headers.
const (
	HeaderSteam     uint32 = 0xEEEEEEBE
	HeaderMicrosoft uint32 = 0xCA55E77E
)

// KeySteam is the base cipher key of Steam, GOG and PlayStation meta blocks.
var KeySteam = cipher.KeyFromString("NAESEVADNAYRTNRG")

// Format describes the meta block encoding of one platform variant.
type Format struct {
	Name          string
	Header        uint32
	PrefixLength  int
	VanillaLength int
	Encrypted     bool
	Key           cipher.Key

	layouts map[int]Layout
	byEra   map[gameversion.Era]int
}

func newFormat(name string, header uint32, prefix []span, prefixLength, vanillaLength int, eras []gameversion.Era) *Format {
	f := &Format{
		Name:          name,
		Header:        header,
		PrefixLength:  prefixLength,
		VanillaLength: vanillaLength,
		layouts:       make(map[int]Layout),
		byEra:         make(map[gameversion.Era]int),
	}
	for _, era := range eras {
		length := vanillaLength
		switch era {
		case gameversion.EraWaypoint:
			length = prefixLength + tailWaypoint
		case gameversion.EraWorldsPartI:
			length = prefixLength + tailWorldsPartI
		case gameversion.EraWorldsPartII:
			length = prefixLength + tailWorldsPartII
		}
		f.layouts[length] = newLayout(prefix, prefixLength, length, era)
		f.byEra[era] = length
	}
	return f
}

func (f *Format) withKey(key cipher.Key) *Format {
	f.Encrypted = true
	f.Key = key
	return f
}

var allEras = []gameversion.Era{
	gameversion.EraVanilla,
	gameversion.EraWaypoint,
	gameversion.EraWorldsPartI,
	gameversion.EraWorldsPartII,
}

// Steam layout prefix: header, format, 16 byte SpookyHash and 32 byte SHA256
// (both opaque), decompressed size, compressed size, profile hash.
var steamPrefix = []span{
	{fieldHeader, 0, 4},
	{fieldFormat, 4, 4},
	{fieldDecompressedSize, 56, 4},
	{fieldCompressedSize, 60, 4},
	{fieldProfileHash, 64, 4},
}

var microsoftPrefix = []span{
	{fieldHeader, 0, 4},
	{fieldFormat, 4, 4},
	{fieldDecompressedSize, 8, 4},
	{fieldSizeDisk, 12, 4},
	{fieldProfileHash, 16, 4},
}

var switchPrefix = []span{
	{fieldHeader, 0, 4},
	{fieldFormat, 4, 4},
	{fieldDecompressedSize, 8, 4},
	{fieldMetaIndex, 12, 4},
	{fieldTimestamp, 16, 4},
}

var playstationPrefix = []span{
	{fieldHeader, 0, 4},
	{fieldFormat, 4, 4},
	{fieldCompressedSize, 8, 4},
	{fieldChunkOffset, 12, 4},
	{fieldChunkSize, 16, 4},
	{fieldMetaIndex, 20, 4},
	{fieldTimestamp, 24, 4},
	{fieldDecompressedSize, 28, 4},
}

// Steam returns the Steam meta format (mf_save*.hg).
func Steam() *Format {
	return newFormat("steam", HeaderSteam, steamPrefix, 68, 0x68, allEras).withKey(KeySteam)
}

// GOG returns the GOG meta format, which is identical to Steam's.
func GOG() *Format {
	f := Steam()
	f.Name = "gog"
	return f
}

// Microsoft returns the Microsoft Store meta format (meta blob).
func Microsoft() *Format {
	return newFormat("microsoft", HeaderMicrosoft, microsoftPrefix, 20, 0x18, allEras)
}

// Switch returns the Nintendo Switch meta format (manifestNN.hg).
func Switch() *Format {
	return newFormat("switch", HeaderMicrosoft, switchPrefix, 20, 0x64, allEras)
}

// PlayStation returns the encrypted meta format of PlayStation save
// streaming (savedataNN.hg.meta).
func PlayStation() *Format {
	return newFormat("playstation", HeaderSteam, playstationPrefix, 32, 0x20, allEras).withKey(KeySteam)
}

// MemoryDat returns the plain per-slot meta entry of a legacy PlayStation
// memory.dat.
func MemoryDat() *Format {
	return newFormat("memorydat", HeaderMicrosoft, playstationPrefix, 32, 0x20, []gameversion.Era{gameversion.EraVanilla})
}

// Layout returns the layout for a block length.
func (f *Format) Layout(length int) (Layout, bool) {
	l, ok := f.layouts[length]
	return l, ok
}

// LengthFor returns the block length the format uses for an era. Eras the
// format does not support map to the longest supported length below them.
func (f *Format) LengthFor(era gameversion.Era) int {
	for e := era; e >= gameversion.EraVanilla; e-- {
		if n, ok := f.byEra[e]; ok {
			return n
		}
	}
	return f.VanillaLength
}

// Lengths returns every supported block length, shortest first.
func (f *Format) Lengths() []int {
	out := make([]int, 0, len(f.layouts))
	for _, era := range allEras {
		if n, ok := f.byEra[era]; ok {
			out = append(out, n)
		}
	}
	return out
}
