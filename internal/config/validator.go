package config

import (
	"fmt"
	"strings"
	"unicode"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// ValidateConfig checks that the configuration can be used as-is
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := ValidateThemeName(cfg.Theme); err != nil {
		return fmt.Errorf("theme: %w", err)
	}

	if !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging: unknown level %q", cfg.Logging.Level)
	}

	if cfg.Diff.ContextLines < 0 {
		return fmt.Errorf("diff: context_lines must not be negative, got %d", cfg.Diff.ContextLines)
	}

	if cfg.Cache.Enabled && cfg.Cache.DatabasePath == "" {
		return fmt.Errorf("cache: database_path is required when the cache is enabled")
	}

	return nil
}

// ValidateThemeName checks that name can be used to look up a theme file
func ValidateThemeName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}

	// Theme names map to files in the themes directory
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("name %q must not contain path separators", name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name contains control character")
		}
	}

	return nil
}
