package cli

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/gitlogue/internal/config"
	"github.com/stwalsh4118/gitlogue/internal/db"
	"github.com/stwalsh4118/gitlogue/internal/git"
	"github.com/stwalsh4118/gitlogue/internal/logging"
)

const (
	version = "0.1.0"
)

// rootOptions holds the persistent flags shared by every subcommand
type rootOptions struct {
	repoPath   string
	output     string
	configPath string
	noCache    bool
}

// NewRootCmd creates and returns the root command for gitlogue
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "gitlogue",
		Short: "Replay git commits file by file",
		Long: `Gitlogue extracts a commit from a git repository, including its author,
date, message and the unified diff of every file it touched.

Without a revision a random non-merge commit reachable from HEAD is picked.`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.repoPath, "path", "p", ".", "Path to the git repository")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", string(formatText), "Output format (text, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default is <user config dir>/gitlogue/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&opts.noCache, "no-cache", false, "Bypass the commit cache")

	rootCmd.AddCommand(newShowCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))

	return rootCmd
}

// configFile returns the config file in effect for this invocation
func (o *rootOptions) configFile() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ConfigPath()
}

// loadConfig loads and validates the configuration
func (o *rootOptions) loadConfig() (*config.Config, error) {
	configPath, err := o.configFile()
	if err != nil {
		return nil, fmt.Errorf("failed to locate configuration: %w", err)
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// session bundles the collaborators a repository command needs
type session struct {
	cfg      *config.Config
	logger   logging.Logger
	repo     *git.Repository
	storage  git.CommitStorage // nil when the cache is disabled
	db       *sql.DB
	diffOpts git.DiffOptions
	out      io.Writer
	format   outputFormat
}

// openSession loads configuration, sets up logging, opens the repository and, when enabled, the cache
func (o *rootOptions) openSession(cmd *cobra.Command) (*session, error) {
	format, err := parseOutputFormat(o.output)
	if err != nil {
		return nil, err
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	diffOpts := git.DiffOptions{
		ContextLines:  cfg.Diff.ContextLines,
		DetectRenames: cfg.Diff.DetectRenames,
	}
	extractor, err := git.NewCommitExtractor(logger, diffOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create commit extractor: %w", err)
	}

	repo, err := git.Open(o.repoPath, logger, git.WithExtractor(extractor))
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:      cfg,
		logger:   logger.With("component", "cli"),
		repo:     repo,
		diffOpts: diffOpts,
		out:      cmd.OutOrStdout(),
		format:   format,
	}

	if cfg.Cache.Enabled && !o.noCache {
		database, err := db.Open(cfg.Cache.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open commit cache: %w", err)
		}
		storage, err := git.NewCommitStorage(database, logger)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to create commit storage: %w", err)
		}
		s.db = database
		s.storage = storage
	}

	s.logger.Debug("session ready", "repository", repo.Path(), "cache", s.storage != nil)
	return s, nil
}

// Close releases the cache database if one was opened
func (s *session) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
