package git

import "errors"

var (
	// ErrNotARepository is returned when a path does not designate an openable repository
	ErrNotARepository = errors.New("not a git repository")

	// ErrInvalidReference is returned when a revision does not resolve to a commit
	ErrInvalidReference = errors.New("invalid reference")

	// ErrNoEligibleCommits is returned when history reachable from HEAD has no non-merge commit
	ErrNoEligibleCommits = errors.New("no eligible commits")

	// ErrCommitNotCached is returned by CommitStorage when a commit has not been stored
	ErrCommitNotCached = errors.New("commit not cached")
)
