package collection

import (
	"github.com/thoreinstein/nmsio/internal/platform"
	"github.com/thoreinstein/nmsio/internal/platform/gog"
	"github.com/thoreinstein/nmsio/internal/platform/microsoft"
	"github.com/thoreinstein/nmsio/internal/platform/nswitch"
	"github.com/thoreinstein/nmsio/internal/platform/playstation"
	"github.com/thoreinstein/nmsio/internal/platform/steam"
)

// NewRegistry returns a registry holding every supported platform.
func NewRegistry() *platform.Registry {
	r := platform.NewRegistry()
	for kind, f := range map[platform.Kind]platform.HooksFactory{
		platform.KindSteam:       steam.Factory,
		platform.KindGOG:         gog.Factory,
		platform.KindMicrosoft:   microsoft.Factory,
		platform.KindPlayStation: playstation.Factory,
		platform.KindSwitch:      nswitch.Factory,
	} {
		// Kinds are distinct and valid; Register cannot fail here.
		_ = r.Register(kind, f)
	}
	return r
}
