package config

// Config represents the root configuration structure for gitlogue
type Config struct {
	Theme   string        `mapstructure:"theme" toml:"theme" yaml:"theme"`
	Logging LoggingConfig `mapstructure:"logging" toml:"logging" yaml:"logging"`
	Diff    DiffConfig    `mapstructure:"diff" toml:"diff" yaml:"diff"`
	Cache   CacheConfig   `mapstructure:"cache" toml:"cache" yaml:"cache"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level" toml:"level" yaml:"level"`
	Console  bool   `mapstructure:"console" toml:"console" yaml:"console"`
	FilePath string `mapstructure:"file_path" toml:"file_path" yaml:"file_path"`
}

// DiffConfig controls how commit diffs are computed
type DiffConfig struct {
	ContextLines  int  `mapstructure:"context_lines" toml:"context_lines" yaml:"context_lines"`
	DetectRenames bool `mapstructure:"detect_renames" toml:"detect_renames" yaml:"detect_renames"`
}

// CacheConfig contains settings for the extracted commit cache
type CacheConfig struct {
	Enabled      bool   `mapstructure:"enabled" toml:"enabled" yaml:"enabled"`
	DatabasePath string `mapstructure:"database_path" toml:"database_path" yaml:"database_path"`
}

const (
	// DefaultTheme is the theme used when none is configured
	DefaultTheme = "tokyo-night"
	// DefaultContextLines is the number of unchanged lines around each hunk
	DefaultContextLines = 3
	// DefaultLogLevel keeps the CLI quiet unless something goes wrong
	DefaultLogLevel = "warn"
)

// Default returns the in-memory configuration used when no file exists
func Default() *Config {
	dbPath := ""
	if dir, err := configBaseDir(); err == nil {
		dbPath = defaultDatabasePath(dir)
	}

	return &Config{
		Theme: DefaultTheme,
		Logging: LoggingConfig{
			Level:   DefaultLogLevel,
			Console: true,
		},
		Diff: DiffConfig{
			ContextLines: DefaultContextLines,
		},
		Cache: CacheConfig{
			Enabled:      false,
			DatabasePath: dbPath,
		},
	}
}
