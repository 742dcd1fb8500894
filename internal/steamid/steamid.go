// Package steamid resolves Steam account ids to the names users see.
package steamid

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/c12h/steam-stuff/sVDF"

	"github.com/thoreinstein/nmsio/internal/paths"
)

// Resolver looks up the persona name of a Steam account. Failures yield an
// empty string.
type Resolver interface {
	PersonaName(ctx context.Context, steamID string) string
}

// Nop resolves nothing.
type Nop struct{}

// PersonaName implements Resolver.
func (Nop) PersonaName(context.Context, string) string { return "" }

// VDFResolver reads persona names from Steam's loginusers.vdf. The file is
// parsed once, on the first lookup.
type VDFResolver struct {
	path string

	once  sync.Once
	names map[string]string
}

// NewVDFResolver returns a resolver for a loginusers.vdf file. An empty path
// selects the file of the local Steam installation.
func NewVDFResolver(path string) *VDFResolver {
	if path == "" {
		path = paths.SteamLoginUsers()
	}
	return &VDFResolver{path: path}
}

// Path returns the file the resolver reads.
func (r *VDFResolver) Path() string { return r.path }

// PersonaName implements Resolver.
func (r *VDFResolver) PersonaName(ctx context.Context, steamID string) string {
	if ctx.Err() != nil {
		return ""
	}
	r.once.Do(r.parse)
	return r.names[NormalizeID(steamID)]
}

func (r *VDFResolver) parse() {
	r.names = make(map[string]string)
	// The parser indexes past the end of some truncated files.
	defer func() { _ = recover() }()
	f, err := sVDF.FromFile(r.path)
	if err != nil || !strings.EqualFold(f.TopName, "users") {
		return
	}
	users, ok := asList(f.TopValue)
	if !ok {
		return
	}
	for id, v := range users {
		user, ok := asList(v)
		if !ok {
			continue
		}
		for key, name := range user {
			if s, ok := name.(string); ok && strings.EqualFold(key, "PersonaName") {
				r.names[id] = s
			}
		}
	}
}

func asList(v sVDF.Value) (sVDF.NamesValuesList, bool) {
	switch l := v.(type) {
	case sVDF.NamesValuesList:
		return l, true
	case *sVDF.NamesValuesList:
		if l == nil {
			return nil, false
		}
		return *l, true
	default:
		return nil, false
	}
}

// steamID64Base is the offset between 32-bit account ids and SteamID64
// values of individual accounts.
const steamID64Base = 76561197960265728

// NormalizeID turns the id forms found in save directories and payloads
// (st_<id64>, plain id64 or a 32-bit account id) into a SteamID64 string.
// Anything else is returned unchanged.
func NormalizeID(id string) string {
	id = strings.TrimPrefix(strings.TrimSpace(id), "st_")
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return id
	}
	if n < 1<<32 {
		n += steamID64Base
	}
	return strconv.FormatUint(n, 10)
}

// FromDirectory extracts the SteamID64 from a save directory name of the
// form st_<id64>.
func FromDirectory(name string) (string, bool) {
	if !strings.HasPrefix(name, "st_") {
		return "", false
	}
	id := strings.TrimPrefix(name, "st_")
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", false
	}
	return id, true
}
