// Package playstation implements the two PlayStation save layouts: save
// streaming, with one data file and one encrypted meta file per container,
// and the legacy memory.dat holding every container at fixed offsets.
package playstation

import (
	"path/filepath"

	"github.com/thoreinstein/nmsio/internal/platform"
)

// MemoryDatName is the file name of the legacy layout.
const MemoryDatName = "memory.dat"

// Factory is the platform.HooksFactory of PlayStation. A directory holding
// memory.dat uses the legacy layout, any other save streaming.
func Factory(root string) platform.Hooks {
	if _, ok := platform.StatFile(filepath.Join(root, MemoryDatName)); ok {
		return NewMemoryDat()
	}
	return NewStreaming()
}

// Open creates a PlayStation platform for root with the layout Factory
// picks.
func Open(root string, opts ...platform.Option) (*platform.Platform, error) {
	return platform.New(root, Factory(root), opts...)
}

func identity() platform.Identity {
	return platform.Identity{PTK: platform.KindPlayStation.UserTag()}
}
