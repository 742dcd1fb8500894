// Package cli provides CLI-specific types and utilities for the nmsio
// command.
package cli

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/thoreinstein/nmsio/internal/collection"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/platform"
)

// Sentinel errors for platform operations.
var (
	// ErrUnknownPlatform is returned when an unknown platform name is provided.
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrNoPlatformsAvailable is returned when no directory holds saves.
	ErrNoPlatformsAvailable = errors.New("no platforms available")

	// ErrUnknownContainer is returned when a slot argument names nothing.
	ErrUnknownContainer = errors.New("unknown container")
)

// ContainerInfo is a platform-agnostic view of one container for display.
type ContainerInfo struct {
	Identifier      string    `json:"identifier" yaml:"identifier" toml:"identifier"`
	MetaIndex       int       `json:"meta_index" yaml:"meta_index" toml:"meta_index"`
	Exists          bool      `json:"exists" yaml:"exists" toml:"exists"`
	Compatible      bool      `json:"compatible" yaml:"compatible" toml:"compatible"`
	Incompatibility string    `json:"incompatibility,omitempty" yaml:"incompatibility,omitempty" toml:"incompatibility,omitempty"`
	SaveName        string    `json:"save_name,omitempty" yaml:"save_name,omitempty" toml:"save_name,omitempty"`
	SaveSummary     string    `json:"save_summary,omitempty" yaml:"save_summary,omitempty" toml:"save_summary,omitempty"`
	GameMode        string    `json:"game_mode,omitempty" yaml:"game_mode,omitempty" toml:"game_mode,omitempty"`
	BaseVersion     int       `json:"base_version,omitempty" yaml:"base_version,omitempty" toml:"base_version,omitempty"`
	Era             string    `json:"era,omitempty" yaml:"era,omitempty" toml:"era,omitempty"`
	TotalPlayTime   uint64    `json:"total_play_time,omitempty" yaml:"total_play_time,omitempty" toml:"total_play_time,omitempty"`
	LastWriteTime   time.Time `json:"last_write_time,omitzero" yaml:"last_write_time,omitempty" toml:"last_write_time,omitempty"`
	Backups         int       `json:"backups" yaml:"backups" toml:"backups"`
}

// PlatformInfo describes one save directory for display.
type PlatformInfo struct {
	Kind       string          `json:"kind" yaml:"kind" toml:"kind"`
	Root       string          `json:"root" yaml:"root" toml:"root"`
	Account    *ContainerInfo  `json:"account,omitempty" yaml:"account,omitempty" toml:"account,omitempty"`
	Containers []ContainerInfo `json:"containers" yaml:"containers" toml:"containers"`
}

// Describe returns the display view of a container. Meta fields are only
// filled for compatible containers.
func Describe(c *container.Container) ContainerInfo {
	info := ContainerInfo{
		Identifier:      c.Identifier(),
		MetaIndex:       c.MetaIndex(),
		Exists:          c.Exists(),
		Compatible:      c.IsCompatible(),
		Incompatibility: c.IncompatibilityTag(),
		LastWriteTime:   c.LastWriteTime(),
		Backups:         len(c.Backups()),
	}
	if !info.Exists {
		info.Incompatibility = ""
		return info
	}
	if info.Compatible {
		e := c.Extra()
		info.SaveName = e.SaveName
		info.SaveSummary = e.SaveSummary
		info.TotalPlayTime = e.TotalPlayTime
		info.BaseVersion = c.BaseVersion()
		info.Era = c.Era().String()
		if c.IsSave() {
			info.GameMode = c.GameMode().String()
		}
	}
	return info
}

// DescribePlatform returns the display view of a platform. Containers that
// do not exist are left out unless all is set.
func DescribePlatform(p *platform.Platform, all bool) PlatformInfo {
	info := PlatformInfo{
		Kind:       p.Kind().String(),
		Root:       p.Root(),
		Containers: []ContainerInfo{},
	}
	if a := p.Account(); a != nil && (all || a.Exists()) {
		ai := Describe(a)
		info.Account = &ai
	}
	for _, c := range p.Containers() {
		if c.IsAccount() || (!all && !c.Exists()) {
			continue
		}
		info.Containers = append(info.Containers, Describe(c))
	}
	return info
}

// ParseKind parses a platform name. An empty name yields KindUnknown, which
// lets detection decide.
func ParseKind(name string) (platform.Kind, error) {
	if name == "" {
		return platform.KindUnknown, nil
	}
	k, err := platform.ParseKind(name)
	if err != nil {
		return platform.KindUnknown, errors.Wrap(ErrUnknownPlatform, err.Error())
	}
	return k, nil
}

// OpenPlatform opens the save directory dir. A known kind opens dir with
// that kind's hooks; KindUnknown walks dir and returns the first platform
// found, preferred kind first.
func OpenPlatform(ctx context.Context, dir string, kind, preferred platform.Kind, settings platform.Settings, logger *slog.Logger) (*platform.Platform, error) {
	registry := collection.NewRegistry()
	if kind != platform.KindUnknown {
		f, ok := registry.Get(kind)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownPlatform, "%s", kind)
		}
		return platform.New(dir, f(dir), platform.WithSettings(settings), platform.WithLogger(logger))
	}

	c := collection.New(
		collection.WithRegistry(registry),
		collection.WithSettings(settings),
		collection.WithLogger(logger),
	)
	found, err := c.Analyze(ctx, dir, preferred)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, errors.Wrapf(ErrNoPlatformsAvailable, "below %s", dir)
	}
	for _, p := range found[1:] {
		_ = p.Close()
	}
	return found[0], nil
}

// FindContainer resolves a slot argument: "account", a container
// identifier such as Slot3Manual, or a meta index.
func FindContainer(p *platform.Platform, arg string) (*container.Container, error) {
	arg = strings.TrimSpace(arg)
	if strings.EqualFold(arg, "account") || strings.EqualFold(arg, "accountdata") {
		if a := p.Account(); a != nil {
			return a, nil
		}
		return nil, errors.Wrapf(ErrUnknownContainer, "%s has no account container", p.Kind())
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if c := p.Container(n); c != nil {
			return c, nil
		}
		return nil, errors.Wrapf(ErrUnknownContainer, "meta index %d", n)
	}
	for _, c := range p.Containers() {
		if strings.EqualFold(c.Identifier(), arg) {
			return c, nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownContainer, "%q", arg)
}
