// Package gog implements the GOG save layout. It is the Steam layout in a
// DefaultUser directory, without a platform account id.
package gog

import (
	"path/filepath"

	"github.com/thoreinstein/nmsio/internal/meta"
	"github.com/thoreinstein/nmsio/internal/platform"
	"github.com/thoreinstein/nmsio/internal/platform/steam"
)

// Hooks implements platform.Hooks for GOG.
type Hooks struct {
	*steam.Hooks
}

// New returns the GOG hooks.
func New() *Hooks {
	return &Hooks{Hooks: steam.NewLayout(platform.KindGOG, meta.GOG())}
}

// Factory is the platform.HooksFactory of GOG.
func Factory(string) platform.Hooks { return New() }

// Open creates a GOG platform for root.
func Open(root string, opts ...platform.Option) (*platform.Platform, error) {
	return platform.New(root, New(), opts...)
}

// AcceptsRoot implements platform.RootFilter.
func (h *Hooks) AcceptsRoot(root string) bool {
	return filepath.Base(root) == steam.DefaultUserDirectory
}

// Identity implements platform.Hooks. GOG directories carry no user id;
// it comes from the owner records of the saves.
func (h *Hooks) Identity(*platform.Platform) platform.Identity {
	return platform.Identity{PTK: platform.KindGOG.UserTag()}
}
