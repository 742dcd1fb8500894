// Package paths provides cross-platform path resolution for the tool's own
// files and for the game's save locations.
//
// # XDG Base Directory Compliance
//
// The package wraps github.com/adrg/xdg for cross-platform XDG Base Directory
// Specification compliance. On Linux and macOS, paths follow XDG conventions
// (~/.config, ~/.local/share, ~/.cache).
//
//	paths.ConfigFile()       // <ConfigHome>/nmsio/config.yaml
//	paths.DefaultBackupDir() // <DataHome>/nmsio/backup/
//
// # Save Locations
//
// [SaveRoot] returns the directory holding the account directories of a PC
// platform:
//
//	| Platform  | Save root                                         |
//	|-----------|---------------------------------------------------|
//	| steam     | %APPDATA%\HelloGames\NMS or the Proton prefix     |
//	| gog       | %APPDATA%\HelloGames\NMS (DefaultUser)            |
//	| microsoft | %LOCALAPPDATA%\Packages\<package>\SystemAppData\wgs |
//
// Console saves have no fixed location; callers pass their directory.
//
// # Error Handling
//
// Functions that accept a platform parameter return empty strings for
// unknown platforms. Use [ValidPlatform] to check validity before calling.
package paths
