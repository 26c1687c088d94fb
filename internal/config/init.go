package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	configFilePerm = 0600 // Read/write for user only
	configDirPerm  = 0755 // Read/write/execute for user, read/execute for group/others
)

// ConfigDir returns <user config dir>/gitlogue, creating it if needed
func ConfigDir() (string, error) {
	dir, err := configBaseDir()
	if err != nil {
		return "", err
	}

	if err := ensureDirectory(dir); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	return dir, nil
}

// ConfigPath returns the full path to config.toml inside ConfigDir
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName+"."+configFileType), nil
}

// ThemesDir returns the directory holding user theme files, creating it if needed
func ThemesDir() (string, error) {
	dir, err := configBaseDir()
	if err != nil {
		return "", err
	}

	themesDir := filepath.Join(dir, themesDirName)
	if err := ensureDirectory(themesDir); err != nil {
		return "", fmt.Errorf("failed to create themes directory %s: %w", themesDir, err)
	}

	return themesDir, nil
}

// EnsureConfigFile writes a default config file if none exists yet.
// It returns the config file path.
func EnsureConfigFile() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := SaveTo(configPath, Default()); err != nil {
		return "", fmt.Errorf("failed to create default config: %w", err)
	}

	return configPath, nil
}

// ensureDirectory creates dir if it is missing and checks that it is a directory
func ensureDirectory(dir string) error {
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory: %s", dir)
		}
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	return os.MkdirAll(dir, configDirPerm)
}
