package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 20

// newHistoryCmd creates the history command, which lists recently shown commits
func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently shown commits",
		Long: `List the commits most recently shown for this repository, newest first.

History is kept in the commit cache, so cache.enabled must be set in the
configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.noCache {
				return fmt.Errorf("history is read from the commit cache and cannot be used with --no-cache")
			}

			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if s.storage == nil {
				return fmt.Errorf("commit cache is disabled; set cache.enabled = true in the configuration")
			}

			views, err := s.storage.ListViews(s.repo.Path(), limit)
			if err != nil {
				return fmt.Errorf("failed to list history: %w", err)
			}

			return renderViews(s.out, s.format, views)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Maximum number of entries (0 for all)")

	return cmd
}
