package platform

import (
	"strings"

	"github.com/thoreinstein/nmsio/internal/errors"
)

// Kind identifies a storage platform.
type Kind int

// Supported platforms. The order is the default detection preference.
const (
	KindUnknown Kind = iota
	KindSteam
	KindMicrosoft
	KindPlayStation
	KindSwitch
	KindGOG
)

var kindNames = map[Kind]string{
	KindUnknown:     "unknown",
	KindSteam:       "steam",
	KindMicrosoft:   "microsoft",
	KindPlayStation: "playstation",
	KindSwitch:      "switch",
	KindGOG:         "gog",
}

// ErrUnknownKind is returned by ParseKind for names that are not a platform.
var ErrUnknownKind = errors.New("unknown platform kind")

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// ParseKind returns the kind for a name as printed by Kind.String. Matching
// is case insensitive.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return KindUnknown, errors.Wrapf(ErrUnknownKind, "%q", s)
}

// Kinds returns every known platform in detection preference order.
func Kinds() []Kind {
	return []Kind{KindSteam, KindMicrosoft, KindPlayStation, KindSwitch, KindGOG}
}

// UserTag is the platform token stored in the PTK field of user identities.
func (k Kind) UserTag() string {
	switch k {
	case KindSteam:
		return "ST"
	case KindGOG:
		return "GX"
	case KindMicrosoft:
		return "XB"
	case KindPlayStation:
		return "PS"
	case KindSwitch:
		return "NX"
	default:
		return ""
	}
}
