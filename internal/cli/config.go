package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/gitlogue/internal/config"
)

// newConfigCmd creates the config command for viewing and modifying configuration
func newConfigCmd(opts *rootOptions) *cobra.Command {
	var showFlag bool
	var pathFlag bool
	var initFlag bool
	var setTheme string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long: `View and modify gitlogue configuration settings.

Use --show to display the effective configuration, --print-path to print the
config file location, --init to write a default config file, or
--set-theme to change the theme.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flagCount := 0
			for _, set := range []bool{showFlag, pathFlag, initFlag, setTheme != ""} {
				if set {
					flagCount++
				}
			}

			if flagCount == 0 {
				return cmd.Help()
			}

			if flagCount > 1 {
				return fmt.Errorf("only one flag can be used at a time")
			}

			switch {
			case pathFlag:
				return handlePath(cmd, opts)
			case initFlag:
				return handleInit(cmd, opts)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			if showFlag {
				return handleShow(cmd, cfg)
			}
			return handleSetTheme(cmd, opts, cfg, setTheme)
		},
	}

	cmd.Flags().BoolVarP(&showFlag, "show", "s", false, "Display current configuration")
	cmd.Flags().BoolVar(&pathFlag, "print-path", false, "Print the config file path")
	cmd.Flags().BoolVar(&initFlag, "init", false, "Write a default config file if none exists")
	cmd.Flags().StringVar(&setTheme, "set-theme", "", "Set the theme name")

	return cmd
}

// handleShow displays the effective configuration as TOML
func handleShow(cmd *cobra.Command, cfg *config.Config) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// handlePath prints the config file location
func handlePath(cmd *cobra.Command, opts *rootOptions) error {
	configPath, err := opts.configFile()
	if err != nil {
		return fmt.Errorf("failed to locate configuration: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configPath)
	return nil
}

// handleInit writes a default config file unless one already exists
func handleInit(cmd *cobra.Command, opts *rootOptions) error {
	if opts.configPath == "" {
		configPath, err := config.EnsureConfigFile()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", configPath)
		return nil
	}

	if _, err := os.Stat(opts.configPath); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Config file already exists: %s\n", opts.configPath)
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if err := config.SaveTo(opts.configPath, config.Default()); err != nil {
		return fmt.Errorf("failed to create default config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", opts.configPath)
	return nil
}

// handleSetTheme validates and stores a new theme name
func handleSetTheme(cmd *cobra.Command, opts *rootOptions, cfg *config.Config, theme string) error {
	if err := config.ValidateThemeName(theme); err != nil {
		return fmt.Errorf("invalid theme: %w", err)
	}

	cfg.Theme = theme

	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var err error
	if opts.configPath == "" {
		err = config.Save(cfg)
	} else {
		err = config.SaveTo(opts.configPath, cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set theme to %s\n", theme)
	return nil
}
