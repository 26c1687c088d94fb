package git

import (
	"time"
)

// CommitMetadata is a fully materialized snapshot of one commit.
// It holds no references into the repository and outlives the handle that produced it.
type CommitMetadata struct {
	Hash         string       `json:"hash" yaml:"hash"`
	Author       string       `json:"author" yaml:"author"`
	Email        string       `json:"email,omitempty" yaml:"email,omitempty"`
	Date         time.Time    `json:"date" yaml:"date"`
	Message      string       `json:"message" yaml:"message"`
	ParentHashes []string     `json:"parent_hashes,omitempty" yaml:"parent_hashes,omitempty"`
	IsMerge      bool         `json:"is_merge" yaml:"is_merge"`
	Changes      []FileChange `json:"changes" yaml:"changes"`
}

// FileChange is one path's delta within a commit
type FileChange struct {
	Path    string     `json:"path" yaml:"path"`
	OldPath string     `json:"old_path,omitempty" yaml:"old_path,omitempty"`
	Status  FileStatus `json:"status" yaml:"status"`
	Diff    string     `json:"diff" yaml:"diff"`
}

// DiffOptions controls how the tree comparison and patch text are produced
type DiffOptions struct {
	ContextLines  int  // Unchanged lines kept around each hunk
	DetectRenames bool // Pair deleted and added files into renames
}

// DefaultDiffOptions returns the options used when none are configured
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		ContextLines:  defaultContextLines,
		DetectRenames: false,
	}
}
