// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bpowers/sycoca"
	"github.com/bpowers/sycoca/scan"
)

// Config is the sycoca.yaml configuration.  Every key can also be set
// from the environment, e.g. SYCOCA_LOG_LEVEL or SYCOCA_DATABASE_PATH.
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	// DataDirs are searched for the standard resource directories when
	// Dirs is empty.  Defaults to the XDG data directories.
	DataDirs []string  `yaml:"data_dirs" mapstructure:"data_dirs"`
	Dirs     scan.Dirs `yaml:"dirs" mapstructure:"dirs"`
	Language string    `yaml:"language" mapstructure:"language"`
	Log      LogConfig `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig configures where databases live and how they're read.
type DatabaseConfig struct {
	Path           string        `yaml:"path" mapstructure:"path"`
	GlobalPath     string        `yaml:"global_path" mapstructure:"global_path"`
	Strategy       string        `yaml:"strategy" mapstructure:"strategy"`
	RebuildTimeout time.Duration `yaml:"rebuild_timeout" mapstructure:"rebuild_timeout"`
	EntryCacheSize int           `yaml:"entry_cache_size" mapstructure:"entry_cache_size"`
}

// LogConfig configures logging.  With File set, logs go to stderr and to
// a size-rotated file.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "")
	v.SetDefault("database.global_path", sycoca.DefaultGlobalPath)
	v.SetDefault("database.strategy", "")
	v.SetDefault("database.rebuild_timeout", "2m")
	v.SetDefault("database.entry_cache_size", 512)
	v.SetDefault("data_dirs", []string{})
	v.SetDefault("dirs.applications", []string{})
	v.SetDefault("dirs.services", []string{})
	v.SetDefault("dirs.servicetypes", []string{})
	v.SetDefault("dirs.mimetypes", []string{})
	v.SetDefault("language", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
}

// LoadConfig reads configFile, or sycoca.yaml from the user and system
// configuration directories if configFile is empty.  A missing default
// config file is not an error.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SYCOCA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("sycoca")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "sycoca"))
		}
		v.AddConfigPath("/etc/sycoca")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if len(cfg.DataDirs) == 0 {
		cfg.DataDirs = scan.DataDirs()
	}
	if len(cfg.Dirs.All()) == 0 {
		cfg.Dirs = scan.DirsFor(cfg.DataDirs)
	}
	return cfg, nil
}

// Validate rejects values the library would silently replace.
func (c *Config) Validate() error {
	if _, ok := sycoca.ParseStrategy(c.Database.Strategy); !ok && c.Database.Strategy != "" {
		return fmt.Errorf("database.strategy %q: want \"mmap\" or \"file\"", c.Database.Strategy)
	}
	if c.Database.RebuildTimeout <= 0 {
		return fmt.Errorf("database.rebuild_timeout must be positive, got %s", c.Database.RebuildTimeout)
	}
	if c.Database.EntryCacheSize < 0 {
		return fmt.Errorf("database.entry_cache_size must not be negative, got %d", c.Database.EntryCacheSize)
	}
	return nil
}
