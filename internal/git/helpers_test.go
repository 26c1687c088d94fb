package git

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stwalsh4118/gitlogue/internal/logging"
)

// testRepo builds small repositories with deterministic author times
type testRepo struct {
	t        *testing.T
	path     string
	repo     *git.Repository
	worktree *git.Worktree
	clock    time.Time
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	repoPath := filepath.Join(t.TempDir(), "test-repo")
	repo, err := git.PlainInit(repoPath, false)
	if err != nil {
		t.Fatalf("failed to init repository: %v", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	return &testRepo{
		t:        t,
		path:     repoPath,
		repo:     repo,
		worktree: worktree,
		clock:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (tr *testRepo) writeFile(name, content string) {
	tr.t.Helper()

	fullPath := filepath.Join(tr.path, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		tr.t.Fatalf("failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		tr.t.Fatalf("failed to write %s: %v", name, err)
	}
}

func (tr *testRepo) removeFile(name string) {
	tr.t.Helper()

	if err := os.Remove(filepath.Join(tr.path, name)); err != nil {
		tr.t.Fatalf("failed to remove %s: %v", name, err)
	}
}

func (tr *testRepo) renameFile(from, to string) {
	tr.t.Helper()

	if err := os.Rename(filepath.Join(tr.path, from), filepath.Join(tr.path, to)); err != nil {
		tr.t.Fatalf("failed to rename %s to %s: %v", from, to, err)
	}
}

func (tr *testRepo) signature(name string) *object.Signature {
	tr.clock = tr.clock.Add(time.Hour)
	return &object.Signature{
		Name:  name,
		Email: "test@example.com",
		When:  tr.clock,
	}
}

// commit stages every change in the work tree and commits it on HEAD
func (tr *testRepo) commit(message string) plumbing.Hash {
	tr.t.Helper()
	return tr.commitAs("Test Author", message)
}

func (tr *testRepo) commitAs(author, message string) plumbing.Hash {
	tr.t.Helper()

	if err := tr.worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		tr.t.Fatalf("failed to stage changes: %v", err)
	}

	hash, err := tr.worktree.Commit(message, &git.CommitOptions{
		Author: tr.signature(author),
	})
	if err != nil {
		tr.t.Fatalf("failed to commit %q: %v", message, err)
	}
	return hash
}

// commitWithParents commits the current index with explicit parents, moving HEAD to it
func (tr *testRepo) commitWithParents(message string, parents ...plumbing.Hash) plumbing.Hash {
	tr.t.Helper()

	if err := tr.worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		tr.t.Fatalf("failed to stage changes: %v", err)
	}

	hash, err := tr.worktree.Commit(message, &git.CommitOptions{
		Author:            tr.signature("Test Author"),
		Parents:           parents,
		AllowEmptyCommits: true,
	})
	if err != nil {
		tr.t.Fatalf("failed to commit %q: %v", message, err)
	}
	return hash
}

// commitModeChange commits parent's tree with the mode of a top-level file replaced.
// The blob stays the same, so only the mode differs from parent.
func (tr *testRepo) commitModeChange(parent plumbing.Hash, name string, mode filemode.FileMode) plumbing.Hash {
	tr.t.Helper()

	tree, err := tr.commitObject(parent).Tree()
	if err != nil {
		tr.t.Fatalf("failed to get parent tree: %v", err)
	}

	entries := make([]object.TreeEntry, len(tree.Entries))
	copy(entries, tree.Entries)
	found := false
	for i := range entries {
		if entries[i].Name == name {
			entries[i].Mode = mode
			found = true
		}
	}
	if !found {
		tr.t.Fatalf("no entry %s in parent tree", name)
	}

	treeObj := tr.repo.Storer.NewEncodedObject()
	if err := (&object.Tree{Entries: entries}).Encode(treeObj); err != nil {
		tr.t.Fatalf("failed to encode tree: %v", err)
	}
	treeHash, err := tr.repo.Storer.SetEncodedObject(treeObj)
	if err != nil {
		tr.t.Fatalf("failed to store tree: %v", err)
	}

	sig := tr.signature("Test Author")
	commit := &object.Commit{
		Author:       *sig,
		Committer:    *sig,
		Message:      "chmod " + name,
		TreeHash:     treeHash,
		ParentHashes: []plumbing.Hash{parent},
	}
	commitObj := tr.repo.Storer.NewEncodedObject()
	if err := commit.Encode(commitObj); err != nil {
		tr.t.Fatalf("failed to encode commit: %v", err)
	}
	hash, err := tr.repo.Storer.SetEncodedObject(commitObj)
	if err != nil {
		tr.t.Fatalf("failed to store commit: %v", err)
	}
	return hash
}

func (tr *testRepo) commitObject(hash plumbing.Hash) *object.Commit {
	tr.t.Helper()

	commit, err := tr.repo.CommitObject(hash)
	if err != nil {
		tr.t.Fatalf("failed to load commit %s: %v", hash, err)
	}
	return commit
}

func (tr *testRepo) open(opts ...Option) *Repository {
	tr.t.Helper()

	r, err := Open(tr.path, logging.NewNoopLogger(), opts...)
	if err != nil {
		tr.t.Fatalf("failed to open repository: %v", err)
	}
	return r
}

func newTestExtractor(t *testing.T, opts DiffOptions) CommitExtractor {
	t.Helper()

	extractor, err := NewCommitExtractor(logging.NewNoopLogger(), opts)
	if err != nil {
		t.Fatalf("failed to create extractor: %v", err)
	}
	return extractor
}

func findChange(t *testing.T, changes []FileChange, path string) FileChange {
	t.Helper()

	for _, change := range changes {
		if change.Path == path {
			return change
		}
	}
	t.Fatalf("no change for path %s in %+v", path, changes)
	return FileChange{}
}

// sliceCommitIter serves a fixed list of commits
type sliceCommitIter struct {
	commits []*object.Commit
	pos     int
}

func (it *sliceCommitIter) Next() (*object.Commit, error) {
	if it.pos >= len(it.commits) {
		return nil, io.EOF
	}
	c := it.commits[it.pos]
	it.pos++
	return c, nil
}

func (it *sliceCommitIter) ForEach(cb func(*object.Commit) error) error {
	for {
		c, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := cb(c); err != nil {
			return err
		}
	}
}

func (it *sliceCommitIter) Close() {
	it.pos = len(it.commits)
}
