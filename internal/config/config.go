// Package config provides configuration management for nmsio using Viper.
package config

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/paths"
	"github.com/thoreinstein/nmsio/internal/platform"
	"github.com/thoreinstein/nmsio/pkg/fileutil"
)

// AppName is the application name used for config file naming.
const AppName = paths.AppName

// EnvPrefix prefixes every environment variable that overrides a key, e.g.
// NMSIO_SETTINGS_LOADING_STRATEGY.
const EnvPrefix = "NMSIO"

// configDirEnv overrides the directory searched for config.yaml.
const configDirEnv = EnvPrefix + "_CONFIG_DIR"

// Config represents the top-level configuration structure.
type Config struct {
	Version int `mapstructure:"version" yaml:"version"`
	// DefaultPlatform is tried first when a directory is analyzed.
	DefaultPlatform string   `mapstructure:"default_platform" yaml:"default_platform"`
	Directories     []string `mapstructure:"directories" yaml:"directories,omitempty"`
	Settings        Settings `mapstructure:"settings" yaml:"settings"`
	Log             Log      `mapstructure:"log" yaml:"log"`
}

// Settings mirrors platform.Settings with names fit for a file.
type Settings struct {
	LoadingStrategy    string   `mapstructure:"loading_strategy" yaml:"loading_strategy"`
	MaxBackupCount     int      `mapstructure:"max_backup_count" yaml:"max_backup_count"`
	BackupDirectory    string   `mapstructure:"backup_directory" yaml:"backup_directory,omitempty"`
	WriteAlways        bool     `mapstructure:"write_always" yaml:"write_always"`
	SetLastWriteTime   bool     `mapstructure:"set_last_write_time" yaml:"set_last_write_time"`
	UseExternalSources bool     `mapstructure:"use_external_sources" yaml:"use_external_sources"`
	UseMapping         bool     `mapstructure:"use_mapping" yaml:"use_mapping"`
	Watcher            bool     `mapstructure:"watcher" yaml:"watcher"`
	WatcherIgnore      []string `mapstructure:"watcher_ignore" yaml:"watcher_ignore,omitempty"`
}

// Log configures where diagnostics go besides stderr.
type Log struct {
	Format string `mapstructure:"format" yaml:"format"`
	// File receives a JSON copy of every record when set.
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// Default returns the configuration used when no file exists. Unlike the
// library default it keeps every backup.
func Default() *Config {
	s := platform.DefaultSettings()
	return &Config{
		Version:         1,
		DefaultPlatform: platform.KindSteam.String(),
		Settings: Settings{
			LoadingStrategy:    platform.Partial.String(),
			MaxBackupCount:     0,
			SetLastWriteTime:   s.SetLastWriteTime,
			UseExternalSources: s.UseExternalSourcesForUserIdentification,
			UseMapping:         s.UseMapping,
			Watcher:            s.Watcher,
		},
		Log: Log{Format: "text"},
	}
}

// Init initializes Viper with default configuration. It clears any state of
// a previous Init. Call this once at application startup before accessing
// config values.
func Init() {
	viper.Reset()

	// Config file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths (in order of precedence)
	if dir := os.Getenv(configDirEnv); dir != "" {
		viper.AddConfigPath(dir)
	}
	viper.AddConfigPath(".") // Current directory
	viper.AddConfigPath(paths.ConfigDir())

	// Environment variable support
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// Defaults
	d := Default()
	viper.SetDefault("version", d.Version)
	viper.SetDefault("default_platform", d.DefaultPlatform)
	viper.SetDefault("settings.loading_strategy", d.Settings.LoadingStrategy)
	viper.SetDefault("settings.max_backup_count", d.Settings.MaxBackupCount)
	viper.SetDefault("settings.write_always", d.Settings.WriteAlways)
	viper.SetDefault("settings.set_last_write_time", d.Settings.SetLastWriteTime)
	viper.SetDefault("settings.use_external_sources", d.Settings.UseExternalSources)
	viper.SetDefault("settings.use_mapping", d.Settings.UseMapping)
	viper.SetDefault("settings.watcher", d.Settings.Watcher)
	viper.SetDefault("log.format", d.Log.Format)
}

// DefaultPath is the file Save writes when no path is given: config.yaml
// in NMSIO_CONFIG_DIR, or the XDG config file.
func DefaultPath() string {
	if dir := os.Getenv(configDirEnv); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return paths.ConfigFile()
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations.
// Returns the loaded configuration or default values if no file is found (when path is empty).
// The result is validated; the first problem is returned as an error.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			// Implicit load, defaults apply
		case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
			return nil, errors.Wrapf(errors.ErrNotFound, "config file %s", path)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.Wrap(errs[0], "validating config")
	}
	return &cfg, nil
}

// Save writes cfg as YAML to path, creating its directory.
func Save(cfg *Config, path string) error {
	if errs := Validate(cfg); len(errs) > 0 {
		return errors.Wrap(errs[0], "validating config")
	}
	if err := paths.EnsureDir(filepath.Dir(path), 0); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	return fileutil.AtomicWriteYAML(path, cfg, 0o600)
}

// PlatformSettings converts the file settings into platform.Settings.
func (c *Config) PlatformSettings() (platform.Settings, error) {
	strategy, err := platform.ParseLoadingStrategy(c.Settings.LoadingStrategy)
	if err != nil {
		return platform.Settings{}, err
	}
	return platform.Settings{
		LoadingStrategy:                         strategy,
		MaxBackupCount:                          c.Settings.MaxBackupCount,
		BackupDirectory:                         c.Settings.BackupDirectory,
		WriteAlways:                             c.Settings.WriteAlways,
		SetLastWriteTime:                        c.Settings.SetLastWriteTime,
		UseExternalSourcesForUserIdentification: c.Settings.UseExternalSources,
		UseMapping:                              c.Settings.UseMapping,
		Watcher:                                 c.Settings.Watcher,
		WatcherIgnore:                           c.Settings.WatcherIgnore,
	}, nil
}

// Preferred returns the kind named by DefaultPlatform.
func (c *Config) Preferred() platform.Kind {
	k, err := platform.ParseKind(c.DefaultPlatform)
	if err != nil {
		return platform.KindSteam
	}
	return k
}
