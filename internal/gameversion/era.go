package gameversion

// Version names the first base version of a game release that changed the
// save format.
type Version int

// Releases relevant to the save format.
const (
	Unknown      Version = 0
	Vanilla      Version = 4098
	Foundation   Version = 4109
	Frontiers    Version = 4135
	Waypoint     Version = 4140
	WorldsPartI  Version = 4152
	WorldsPartII Version = 4153
)

func (v Version) String() string {
	switch {
	case v >= WorldsPartII:
		return "WorldsPartII"
	case v >= WorldsPartI:
		return "WorldsPartI"
	case v >= Waypoint:
		return "Waypoint"
	case v >= Frontiers:
		return "Frontiers"
	case v >= Foundation:
		return "Foundation"
	case v >= Vanilla:
		return "Vanilla"
	default:
		return "Unknown"
	}
}

// Era is the meta block layout generation.
type Era int

// Meta layout generations, shortest first.
const (
	EraVanilla Era = iota
	EraWaypoint
	EraWorldsPartI
	EraWorldsPartII
)

func (e Era) String() string {
	switch e {
	case EraWaypoint:
		return "Waypoint"
	case EraWorldsPartI:
		return "WorldsPartI"
	case EraWorldsPartII:
		return "WorldsPartII"
	default:
		return "Vanilla"
	}
}

// EraFor returns the meta layout the game writes for a base version.
func EraFor(base int) Era {
	switch v := Version(base); {
	case v >= WorldsPartII:
		return EraWorldsPartII
	case v >= WorldsPartI:
		return EraWorldsPartI
	case v >= Waypoint:
		return EraWaypoint
	default:
		return EraVanilla
	}
}

// Meta format tags written into the second word of a meta block.
const (
	MetaFormat0 uint32 = 0x7D0 // pre-Foundation, plaintext data
	MetaFormat1 uint32 = 0x7D1 // Foundation
	MetaFormat2 uint32 = 0x7D2 // Frontiers
	MetaFormat3 uint32 = 0x7D3 // Worlds Part I
	MetaFormat4 uint32 = 0x7D4 // Worlds Part II
)

// MetaFormatFor returns the format tag the game writes for a base version.
func MetaFormatFor(base int) uint32 {
	switch v := Version(base); {
	case v >= WorldsPartII:
		return MetaFormat4
	case v >= WorldsPartI:
		return MetaFormat3
	case v >= Frontiers:
		return MetaFormat2
	case v >= Foundation:
		return MetaFormat1
	default:
		return MetaFormat0
	}
}
