package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/gitlogue/internal/git"
)

// newShowCmd creates the show command, which prints one commit
func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [revision]",
		Short: "Show a commit and its file diffs",
		Long: `Show a commit's metadata and the unified diff of every changed file.

The revision may be a full or short hash, a branch or tag name, or an
expression such as HEAD~2. Without a revision a random non-merge commit
reachable from HEAD is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			revision := ""
			if len(args) == 1 {
				revision = args[0]
			}

			metadata, err := s.showCommit(revision)
			if err != nil {
				return err
			}

			return renderCommit(s.out, s.format, metadata)
		},
	}
}

// showCommit selects the commit, serves it from the cache when possible and records the view
func (s *session) showCommit(revision string) (*git.CommitMetadata, error) {
	var (
		metadata *git.CommitMetadata
		err      error
	)

	if revision == "" {
		metadata, err = s.randomCommit()
	} else {
		metadata, err = s.commitByRevision(revision)
	}
	if err != nil {
		return nil, err
	}

	if s.storage != nil {
		if err := s.storage.RecordView(s.repo.Path(), metadata.Hash); err != nil {
			s.logger.Warn("failed to record commit view", "commit", metadata.Hash, "error", err)
		}
	}

	return metadata, nil
}

func (s *session) commitByRevision(revision string) (*git.CommitMetadata, error) {
	if s.storage == nil {
		return s.repo.GetCommit(revision)
	}

	commit, err := s.repo.Resolve(revision)
	if err != nil {
		return nil, err
	}
	return s.extractCached(commit.Hash.String(), func() (*git.CommitMetadata, error) {
		return s.repo.Extract(commit)
	})
}

func (s *session) randomCommit() (*git.CommitMetadata, error) {
	if s.storage == nil {
		return s.repo.RandomCommit()
	}

	commit, err := s.repo.RandomNonMergeCommit()
	if err != nil {
		return nil, err
	}
	return s.extractCached(commit.Hash.String(), func() (*git.CommitMetadata, error) {
		return s.repo.Extract(commit)
	})
}

// extractCached returns the cached record for hash, or extracts and stores it.
// Cache failures are logged and never fail the command.
func (s *session) extractCached(hash string, extract func() (*git.CommitMetadata, error)) (*git.CommitMetadata, error) {
	cached, err := s.storage.GetCommit(s.repo.Path(), hash, s.diffOpts)
	if err == nil {
		s.logger.Debug("serving commit from cache", "commit", hash)
		return cached, nil
	}
	if !errors.Is(err, git.ErrCommitNotCached) {
		s.logger.Warn("failed to read commit cache", "commit", hash, "error", err)
	}

	metadata, err := extract()
	if err != nil {
		return nil, fmt.Errorf("failed to extract commit %s: %w", hash, err)
	}

	if err := s.storage.StoreCommit(s.repo.Path(), s.diffOpts, metadata); err != nil {
		s.logger.Warn("failed to cache commit", "commit", hash, "error", err)
	}

	return metadata, nil
}
