package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	appDirName     = "gitlogue"
	themesDirName  = "themes"
	configFileName = "config"
	configFileType = "toml"
	databaseName   = "cache.db"
	envPrefix      = "GITLOGUE"
)

// Load loads the configuration from the default config file location.
// Values are resolved in order of precedence:
// 1. Environment variables (GITLOGUE_ prefix)
// 2. Configuration file (<user config dir>/gitlogue/config.toml)
// 3. Default values
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from the given TOML file.
// A missing file is not an error: defaults are returned instead.
func LoadFrom(configPath string) (*Config, error) {
	v, err := initViper(configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	// Expand home directory paths in the loaded config
	expandConfigPaths(&cfg)

	return &cfg, nil
}

// initViper builds a Viper instance bound to the config file, the environment and the defaults
func initViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType(configFileType)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// Replace dots and dashes with underscores in env var names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)

	// Try to read the config file (it's okay if it doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) || os.IsNotExist(err) {
			return v, nil
		}

		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return v, nil
}

// setDefaults registers every key with its default so env overrides and Unmarshal see them
func setDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("theme", def.Theme)

	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.console", def.Logging.Console)
	v.SetDefault("logging.file_path", def.Logging.FilePath)

	v.SetDefault("diff.context_lines", def.Diff.ContextLines)
	v.SetDefault("diff.detect_renames", def.Diff.DetectRenames)

	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.database_path", def.Cache.DatabasePath)
}

// configBaseDir returns <user config dir>/gitlogue without creating it
func configBaseDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	return filepath.Join(dir, appDirName), nil
}

func defaultDatabasePath(baseDir string) string {
	return filepath.Join(baseDir, databaseName)
}

// expandHomeDir expands ~ in a path to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// If we can't get home dir, return path as-is
			return path
		}
		if path == "~" {
			return homeDir
		}
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// expandConfigPaths expands all ~ paths in the configuration struct
func expandConfigPaths(cfg *Config) {
	cfg.Logging.FilePath = expandHomeDir(cfg.Logging.FilePath)
	cfg.Cache.DatabasePath = expandHomeDir(cfg.Cache.DatabasePath)
}
