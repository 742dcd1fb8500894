// Package config provides configuration management for the nmsio CLI.
//
// # Configuration File
//
// The default configuration file location is <ConfigHome>/nmsio/config.yaml.
// NMSIO_CONFIG_DIR adds a directory searched before it. The file uses YAML:
//
//	version: 1
//	default_platform: steam
//	directories:
//	  - /path/to/NMS
//	settings:
//	  loading_strategy: partial
//	  max_backup_count: 0
//	  set_last_write_time: true
//	  use_mapping: true
//	  watcher: false
//	log:
//	  format: text
//
// Every key can be overridden from the environment with the NMSIO_ prefix,
// dots replaced by underscores: NMSIO_SETTINGS_LOADING_STRATEGY=full.
//
// # Loading Configuration
//
//	config.Init()
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	settings, err := cfg.PlatformSettings()
//
// Load validates the result. [Validate] can be called directly and
// returns every problem found.
package config
