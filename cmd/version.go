// Package cmd holds the build identity of nmsio. Release builds set the
// variables with -ldflags "-X"; other builds fall back to the module and VCS
// data the Go toolchain embeds.
package cmd

import (
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Build describes the running binary.
type Build struct {
	Version string `json:"version" yaml:"version" toml:"version"`
	Commit  string `json:"commit" yaml:"commit" toml:"commit"`
	Date    string `json:"date" yaml:"date" toml:"date"`
	Dirty   bool   `json:"dirty,omitempty" yaml:"dirty,omitempty" toml:"dirty,omitempty"`
	Go      string `json:"go" yaml:"go" toml:"go"`
}

// Info returns the build identity. Values not set through ldflags are read
// from the embedded build info when the binary has it.
func Info() Build {
	b := Build{Version: Version, Commit: Commit, Date: Date, Go: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	return fillFromBuildInfo(b, bi)
}

func fillFromBuildInfo(b Build, bi *debug.BuildInfo) Build {
	if bi.GoVersion != "" {
		b.Go = bi.GoVersion
	}
	if b.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		b.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "none" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == "unknown" {
				b.Date = s.Value
			}
		case "vcs.modified":
			b.Dirty = s.Value == "true"
		}
	}
	return b
}
