// Package gameversion holds the version arithmetic shared by the meta codec
// and containers.
//
// The version integer stored in a save (the save version) overlays the
// game's build version (the base version) with the game mode and, for some
// modes, the expedition season:
//
//	save = base + 512*mode                    ordinary modes
//	save = base + 512*mode + 65536*season     Permadeath, and Seasonal saves
//	                                          older than Waypoint
package gameversion

import "fmt"

const (
	// OffsetGameMode is the save version step per game mode.
	OffsetGameMode = 512
	// OffsetSeason is the save version step per season for the wide offset.
	OffsetSeason = 128 * OffsetGameMode

	// SeasonalCutoff is the first base version whose Seasonal saves use the
	// ordinary mode offset.
	SeasonalCutoff = int(Waypoint)

	// minimumBase is the lowest base version a released game wrote; used to
	// infer the mode of saves without meta fields.
	minimumBase = 4096
)

// GameMode is the preset game mode of a save.
type GameMode uint16

// Game modes in the order the game enumerates them.
const (
	Unspecified GameMode = iota
	Normal
	Creative
	Survival
	Ambient
	Permadeath
	Seasonal
)

var gameModeNames = [...]string{"Unspecified", "Normal", "Creative", "Survival", "Ambient", "Permadeath", "Seasonal"}

func (m GameMode) String() string {
	if int(m) < len(gameModeNames) {
		return gameModeNames[m]
	}
	return fmt.Sprintf("GameMode(%d)", uint16(m))
}

// GameModes returns every known game mode.
func GameModes() []GameMode {
	return []GameMode{Unspecified, Normal, Creative, Survival, Ambient, Permadeath, Seasonal}
}

// Season identifies an expedition. Zero means no season.
type Season uint16

// SeasonNone is the season of every non-expedition save.
const SeasonNone Season = 0

// wideOffset reports whether the mode/season/base combination uses the
// season-indexed offset.
func wideOffset(mode GameMode, base int) bool {
	switch mode {
	case Permadeath:
		return true
	case Seasonal:
		return base < SeasonalCutoff
	default:
		return false
	}
}

func offset(mode GameMode, season Season, wide bool) int {
	off := OffsetGameMode * int(mode)
	if wide {
		off += OffsetSeason * int(season)
	}
	return off
}

// SaveVersion computes the save version from a base version, game mode and
// season.
func SaveVersion(base int, mode GameMode, season Season) int {
	return base + offset(mode, season, wideOffset(mode, base))
}

// BaseVersion recovers the base version from a save version. It is the
// inverse of SaveVersion for base versions in [0, 65536).
func BaseVersion(save int, mode GameMode, season Season) int {
	switch mode {
	case Permadeath:
		return save - offset(mode, season, true)
	case Seasonal:
		if season != SeasonNone {
			candidate := save - offset(mode, season, true)
			if candidate >= 0 && candidate < SeasonalCutoff {
				return candidate
			}
		}
	}
	return save - offset(mode, season, false)
}

// Infer derives mode, season and base version from a bare save version. It
// is used for saves whose meta block predates the mode/season fields.
func Infer(save int) (base int, mode GameMode, season Season) {
	if save < minimumBase {
		return save, Unspecified, SeasonNone
	}
	low := save % OffsetSeason
	season = Season(save / OffsetSeason)
	mode = GameMode((low - minimumBase) / OffsetGameMode)
	if mode > Seasonal {
		return save, Unspecified, SeasonNone
	}
	base = low - OffsetGameMode*int(mode)
	if season != SeasonNone && !wideOffset(mode, base) {
		// A season-sized offset on a mode that never carries one means the
		// number is not a save version we understand.
		return save, Unspecified, SeasonNone
	}
	return base, mode, season
}
