package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// FileStatus classifies a path's change between two trees
type FileStatus int

const (
	StatusModified FileStatus = iota
	StatusAdded
	StatusDeleted
	StatusRenamed
	StatusCopied
	StatusUnmodified
)

var statusNames = map[FileStatus]string{
	StatusAdded:      "Added",
	StatusDeleted:    "Deleted",
	StatusModified:   "Modified",
	StatusRenamed:    "Renamed",
	StatusCopied:     "Copied",
	StatusUnmodified: "Unmodified",
}

var statusCodes = map[FileStatus]string{
	StatusAdded:      "A",
	StatusDeleted:    "D",
	StatusModified:   "M",
	StatusRenamed:    "R",
	StatusCopied:     "C",
	StatusUnmodified: "U",
}

// String returns the status name, e.g. "Added"
func (s FileStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[StatusModified]
}

// Code returns the one-letter status code, e.g. "A"
func (s FileStatus) Code() string {
	if code, ok := statusCodes[s]; ok {
		return code
	}
	return statusCodes[StatusModified]
}

// MarshalText encodes the status as its name for JSON and YAML output
func (s FileStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts either the status name or its one-letter code
func (s *FileStatus) UnmarshalText(text []byte) error {
	status, err := ParseFileStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// ParseFileStatus parses a status name ("Added") or code ("A")
func ParseFileStatus(value string) (FileStatus, error) {
	for status, name := range statusNames {
		if value == name || value == statusCodes[status] {
			return status, nil
		}
	}
	return StatusModified, fmt.Errorf("unknown file status %q", value)
}

// statusFromAction maps a tree-diff action onto a FileStatus.
// The mapping is total: Modified is the catch-all for every action it does
// not name, including changes the diff engine may report in the future.
func statusFromAction(action merkletrie.Action, fromName, toName string) FileStatus {
	switch action {
	case merkletrie.Insert:
		return StatusAdded
	case merkletrie.Delete:
		return StatusDeleted
	case merkletrie.Modify:
		if fromName != "" && toName != "" && fromName != toName {
			return StatusRenamed
		}
		return StatusModified
	default:
		return StatusModified
	}
}
