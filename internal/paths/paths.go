package paths

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// AppName is the directory name used below the XDG base directories.
const AppName = "nmsio"

// Platform identifiers for the save locations this package knows.
const (
	PlatformSteam     = "steam"
	PlatformGOG       = "gog"
	PlatformMicrosoft = "microsoft"
)

// steamAppID is the game's Steam application id. Proton prefixes are named
// after it.
const steamAppID = "275850"

// microsoftPackage is the game's package family name on the Microsoft Store.
const microsoftPackage = "HelloGames.NoMansSky_bs190hzg1sesy"

// ErrHomeDirNotFound indicates the user's home directory could not be determined.
var ErrHomeDirNotFound = errors.New("home directory not found")

// DefaultDirPerm is the default permission for newly created directories (private).
const DefaultDirPerm = 0o700

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm (0700) is used.
// This function is idempotent; it returns nil if the directory already exists.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// Home returns the user's home directory.
// This is a thin wrapper around os.UserHomeDir for consistency.
// Returns an empty string if the home directory cannot be determined.
// Use ResolveHome for proper error handling.
func Home() string {
	h, _ := ResolveHome()
	return h
}

// ResolveHome returns the user's home directory.
// Returns ErrHomeDirNotFound if the directory cannot be determined.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(ErrHomeDirNotFound, err.Error())
	}
	return home, nil
}

// ConfigHome returns the XDG config home directory.
// On Linux: ~/.config
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func ConfigHome() string {
	return xdg.ConfigHome
}

// DataHome returns the XDG data home directory.
// On Linux: ~/.local/share
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func DataHome() string {
	return xdg.DataHome
}

// ConfigDir returns the directory holding the configuration file.
// Returns: <ConfigHome>/nmsio/
func ConfigDir() string {
	return filepath.Join(ConfigHome(), AppName)
}

// ConfigFile returns the default configuration file path.
// Returns: <ConfigHome>/nmsio/config.yaml
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Platforms returns the platforms whose save locations can be resolved on
// a computer. Console saves only exist as copies the user points at.
func Platforms() []string {
	return []string{
		PlatformSteam,
		PlatformGOG,
		PlatformMicrosoft,
	}
}

// SaveRoot returns the directory holding the account directories of a
// platform, e.g. the directory with the st_<steamid> folders for Steam.
//
// Platform paths:
//   - steam, gog on Windows: %APPDATA%\HelloGames\NMS
//   - steam, gog on macOS: ~/Library/Application Support/HelloGames/NMS
//   - steam on Linux: the Proton prefix of the game
//   - microsoft: %LOCALAPPDATA%\Packages\<package>\SystemAppData\wgs
//
// Returns an empty string for unknown platforms or when the home directory
// cannot be determined.
func SaveRoot(platform string) string {
	home := Home()
	if home == "" {
		return ""
	}
	switch platform {
	case PlatformSteam, PlatformGOG:
		switch runtime.GOOS {
		case "windows":
			return filepath.Join(roamingAppData(home), "HelloGames", "NMS")
		case "darwin":
			return filepath.Join(home, "Library", "Application Support", "HelloGames", "NMS")
		default:
			if platform == PlatformGOG {
				return ""
			}
			return filepath.Join(SteamRoot(), "steamapps", "compatdata", steamAppID,
				"pfx", "drive_c", "users", "steamuser", "AppData", "Roaming", "HelloGames", "NMS")
		}
	case PlatformMicrosoft:
		if runtime.GOOS != "windows" {
			return ""
		}
		local := os.Getenv("LOCALAPPDATA")
		if local == "" {
			local = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(local, "Packages", microsoftPackage, "SystemAppData", "wgs")
	default:
		return ""
	}
}

// SteamRoot returns the Steam installation directory of the current user.
//
//   - Windows: C:\Program Files (x86)\Steam
//   - macOS: ~/Library/Application Support/Steam
//   - Linux: ~/.steam/steam, falling back to <DataHome>/Steam
func SteamRoot() string {
	switch runtime.GOOS {
	case "windows":
		if pf := os.Getenv("ProgramFiles(x86)"); pf != "" {
			return filepath.Join(pf, "Steam")
		}
		return filepath.Join(`C:\Program Files (x86)`, "Steam")
	case "darwin":
		return filepath.Join(Home(), "Library", "Application Support", "Steam")
	default:
		dotSteam := filepath.Join(Home(), ".steam", "steam")
		if info, err := os.Stat(dotSteam); err == nil && info.IsDir() {
			return dotSteam
		}
		return filepath.Join(DataHome(), "Steam")
	}
}

// SteamLoginUsers returns the path of Steam's loginusers.vdf.
func SteamLoginUsers() string {
	return filepath.Join(SteamRoot(), "config", "loginusers.vdf")
}

func roamingAppData(home string) string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return appData
	}
	return filepath.Join(home, "AppData", "Roaming")
}
