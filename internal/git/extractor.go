package git

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing"
	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/samber/lo"
	"github.com/stwalsh4118/gitlogue/internal/logging"
	"golang.org/x/text/encoding/unicode"
)

const (
	defaultContextLines = 3
	unknownAuthor       = "Unknown"
	unknownPath         = "unknown"
)

// CommitExtractor turns a resolved commit into a CommitMetadata record
type CommitExtractor interface {
	Extract(commit *object.Commit) (*CommitMetadata, error)
}

// commitExtractor implements CommitExtractor
type commitExtractor struct {
	logger logging.Logger
	opts   DiffOptions
}

// NewCommitExtractor creates a new commit extractor instance
func NewCommitExtractor(logger logging.Logger, opts DiffOptions) (CommitExtractor, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if opts.ContextLines < 0 {
		return nil, fmt.Errorf("context lines cannot be negative: %d", opts.ContextLines)
	}

	return &commitExtractor{
		logger: logger.With("component", "git_extractor"),
		opts:   opts,
	}, nil
}

// Extract reads the commit's metadata and diffs it against its first parent,
// or against the empty tree for a root commit.
func (ce *commitExtractor) Extract(commit *object.Commit) (*CommitMetadata, error) {
	if commit == nil {
		return nil, fmt.Errorf("commit cannot be nil")
	}

	hash := commit.Hash.String()
	ce.logger.Debug("extracting commit metadata", "commit", hash)

	parentHashes := lo.Map(commit.ParentHashes, func(parent plumbing.Hash, _ int) string {
		return parent.String()
	})

	metadata := &CommitMetadata{
		Hash:         hash,
		Author:       authorName(commit.Author),
		Email:        commit.Author.Email,
		Date:         authorDate(commit.Author),
		Message:      strings.TrimSpace(commit.Message),
		ParentHashes: parentHashes,
		IsMerge:      len(parentHashes) > 1,
	}

	changes, err := ce.extractChanges(commit)
	if err != nil {
		ce.logger.Error("failed to extract changes", "commit", hash, "error", err)
		return nil, fmt.Errorf("failed to extract changes for commit %s: %w", hash, err)
	}
	metadata.Changes = changes

	ce.logger.Debug("extracted commit metadata", "commit", hash, "file_count", len(changes), "is_merge", metadata.IsMerge)
	return metadata, nil
}

// extractChanges diffs the commit tree against its baseline and builds one FileChange per tree change
func (ce *commitExtractor) extractChanges(commit *object.Commit) ([]FileChange, error) {
	commitTree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get commit tree: %w", err)
	}

	// A nil tree is the empty tree: root commits report every file as added
	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("failed to get first parent: %w", err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, fmt.Errorf("failed to get parent tree: %w", err)
		}
	}

	treeOpts := *object.DefaultDiffTreeOptions
	treeOpts.DetectRenames = ce.opts.DetectRenames

	treeChanges, err := object.DiffTreeWithOptions(context.Background(), parentTree, commitTree, &treeOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	changes := make([]FileChange, 0, len(treeChanges))
	for _, change := range treeChanges {
		action, err := change.Action()
		if err != nil {
			ce.logger.Debug("unclassifiable change, treating as modified", "commit", commit.Hash.String(), "error", err)
		}

		path := changePath(change)
		fileChange := FileChange{
			Path:   path,
			Status: statusFromAction(action, change.From.Name, change.To.Name),
		}
		if change.From.Name != "" && change.From.Name != path {
			fileChange.OldPath = change.From.Name
		}

		changes = append(changes, fileChange)
	}

	for i := range changes {
		changes[i].Diff = ce.patchText(treeChanges[i], commit.Hash.String(), changes[i].Path)
	}

	return changes, nil
}

// patchText renders the unified diff of a single change.
// Any failure degrades to an empty string so one file cannot block the rest of the commit.
func (ce *commitExtractor) patchText(change *object.Change, commitHash, path string) string {
	patch, err := change.Patch()
	if err != nil {
		ce.logger.Debug("failed to generate patch, leaving diff empty", "commit", commitHash, "file", path, "error", err)
		return ""
	}

	if !hasContent(patch) {
		ce.logger.Debug("patch has no content changes", "commit", commitHash, "file", path)
		return ""
	}

	var buf bytes.Buffer
	if err := fdiff.NewUnifiedEncoder(&buf, ce.opts.ContextLines).Encode(patch); err != nil {
		ce.logger.Debug("failed to encode patch, leaving diff empty", "commit", commitHash, "file", path, "error", err)
		return ""
	}

	return decodeLossy(buf.Bytes())
}

// hasContent reports whether a patch changes file content.
// Pure renames and mode-only changes carry only equal chunks.
func hasContent(patch *object.Patch) bool {
	for _, filePatch := range patch.FilePatches() {
		if filePatch.IsBinary() {
			return true
		}
		for _, chunk := range filePatch.Chunks() {
			if chunk.Type() != fdiff.Equal {
				return true
			}
		}
	}
	return false
}

// decodeLossy converts patch bytes to a string, replacing invalid UTF-8 with U+FFFD
func decodeLossy(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	decoded, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError))
	}
	return string(decoded)
}

// changePath prefers the new-tree path and falls back to the old one for deletions
func changePath(change *object.Change) string {
	if change.To.Name != "" {
		return change.To.Name
	}
	if change.From.Name != "" {
		return change.From.Name
	}
	return unknownPath
}

func authorName(sig object.Signature) string {
	if sig.Name == "" {
		return unknownAuthor
	}
	return sig.Name
}

// authorDate truncates the author time to whole seconds in UTC.
// A zero time means the timestamp could not be parsed.
func authorDate(sig object.Signature) time.Time {
	if sig.When.IsZero() {
		return time.Now().UTC()
	}
	return time.Unix(sig.When.Unix(), 0).UTC()
}
