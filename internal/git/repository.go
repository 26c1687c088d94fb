package git

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stwalsh4118/gitlogue/internal/logging"
)

// maxPeelDepth bounds how many tag objects are followed to reach a commit
const maxPeelDepth = 16

// Repository is a read-only handle on an on-disk git repository.
// go-git repositories are not safe for concurrent use, so every operation
// on a handle is serialized; open one handle per worker for parallelism.
type Repository struct {
	path      string // Repository root path
	name      string // Repository name (derived from directory name)
	repo      *git.Repository
	extractor CommitExtractor
	logger    logging.Logger
	intN      func(n int) int
	mu        sync.Mutex
}

// Option configures a Repository handle
type Option func(*Repository)

// WithExtractor replaces the default commit extractor
func WithExtractor(extractor CommitExtractor) Option {
	return func(r *Repository) {
		r.extractor = extractor
	}
}

// WithRandomSource replaces the source used to pick random commits.
// intN must return a uniformly distributed value in [0, n).
func WithRandomSource(intN func(n int) int) Option {
	return func(r *Repository) {
		r.intN = intN
	}
}

// Open opens the repository containing path.
// Paths inside a work tree are accepted; the enclosing .git directory is discovered.
func Open(path string, logger logging.Logger, opts ...Option) (*Repository, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w: %w", path, ErrNotARepository, err)
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		logger.Debug("failed to open repository", "path", absPath, "error", err)
		return nil, fmt.Errorf("failed to open repository %s: %w: %w", path, ErrNotARepository, err)
	}

	root := absPath
	if worktree, err := repo.Worktree(); err == nil {
		root = worktree.Filesystem.Root()
	}

	r := &Repository{
		path:   root,
		name:   filepath.Base(root),
		repo:   repo,
		logger: logger.With("component", "git_repository", "repository", root),
		intN:   rand.IntN,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.extractor == nil {
		extractor, err := NewCommitExtractor(logger, DefaultDiffOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to create commit extractor: %w", err)
		}
		r.extractor = extractor
	}

	r.logger.Debug("opened repository", "name", r.name)
	return r, nil
}

// Path returns the repository root directory
func (r *Repository) Path() string {
	return r.path
}

// Name returns the repository directory name
func (r *Repository) Name() string {
	return r.name
}

// Resolve resolves a revision (hash, short hash, branch, tag, HEAD~n, ...) to its commit.
// go-git's ResolveRevision already peels annotated tags; the hash it returns
// is still checked to name a commit object before it is handed out.
func (r *Repository) Resolve(revision string) (*object.Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.resolve(revision)
}

func (r *Repository) resolve(revision string) (*object.Commit, error) {
	if strings.TrimSpace(revision) == "" {
		return nil, fmt.Errorf("failed to resolve revision %q: %w: empty revision", revision, ErrInvalidReference)
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		r.logger.Debug("failed to resolve revision", "revision", revision, "error", err)
		return nil, fmt.Errorf("failed to resolve revision %q: %w: %w", revision, ErrInvalidReference, err)
	}

	obj, err := r.repo.Object(plumbing.AnyObject, *hash)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w: %w", revision, ErrInvalidReference, err)
	}

	commit, err := peelToCommit(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w: %w", revision, ErrInvalidReference, err)
	}

	r.logger.Debug("resolved revision", "revision", revision, "commit", commit.Hash.String())
	return commit, nil
}

// peelToCommit returns obj as a commit, following tag objects if any remain.
// Anything other than a commit or tag is an error.
func peelToCommit(obj object.Object) (*object.Commit, error) {
	for depth := 0; depth < maxPeelDepth; depth++ {
		switch o := obj.(type) {
		case *object.Commit:
			return o, nil
		case *object.Tag:
			target, err := o.Object()
			if err != nil {
				return nil, fmt.Errorf("failed to read target of tag %s: %w", o.Name, err)
			}
			obj = target
		default:
			return nil, fmt.Errorf("object %s is a %s, not a commit", obj.ID(), obj.Type())
		}
	}
	return nil, fmt.Errorf("tag chain deeper than %d objects", maxPeelDepth)
}

// RandomNonMergeCommit picks uniformly at random among all commits reachable
// from HEAD that have at most one parent.
func (r *Repository) RandomNonMergeCommit() (*object.Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.randomNonMergeCommit()
}

func (r *Repository) randomNonMergeCommit() (*object.Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("failed to select random commit: %w: repository has no commits", ErrNoEligibleCommits)
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	commitIter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history from %s: %w", head.Hash().String(), err)
	}
	defer commitIter.Close()

	eligible, err := collectNonMergeCommits(commitIter)
	if err != nil {
		return nil, fmt.Errorf("failed to walk history from %s: %w", head.Hash().String(), err)
	}

	if len(eligible) == 0 {
		return nil, fmt.Errorf("failed to select random commit: %w: no non-merge commits reachable from HEAD", ErrNoEligibleCommits)
	}

	picked := eligible[r.intN(len(eligible))]
	r.logger.Debug("selected random commit", "commit", picked.String(), "eligible_count", len(eligible))

	commit, err := r.repo.CommitObject(picked)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object %s: %w", picked.String(), err)
	}
	return commit, nil
}

// collectNonMergeCommits drains the iterator, keeping root and single-parent commits
func collectNonMergeCommits(commitIter object.CommitIter) ([]plumbing.Hash, error) {
	var eligible []plumbing.Hash

	err := commitIter.ForEach(func(c *object.Commit) error {
		if c.NumParents() <= 1 {
			eligible = append(eligible, c.Hash)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return eligible, nil
}

// Extract builds the metadata record for a commit obtained from this handle
func (r *Repository) Extract(commit *object.Commit) (*CommitMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.extractor.Extract(commit)
}

// GetCommit resolves a revision and extracts its metadata
func (r *Repository) GetCommit(revision string) (*CommitMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	commit, err := r.resolve(revision)
	if err != nil {
		return nil, err
	}
	return r.extractor.Extract(commit)
}

// RandomCommit selects a random non-merge commit and extracts its metadata
func (r *Repository) RandomCommit() (*CommitMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	commit, err := r.randomNonMergeCommit()
	if err != nil {
		return nil, err
	}
	return r.extractor.Extract(commit)
}
