package git

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/gitlogue/internal/logging"
)

// CommitStorage caches extracted commits and records which commits were shown
type CommitStorage interface {
	StoreCommit(repoPath string, opts DiffOptions, metadata *CommitMetadata) error
	GetCommit(repoPath, hash string, opts DiffOptions) (*CommitMetadata, error)
	RecordView(repoPath, hash string) error
	ListViews(repoPath string, limit int) ([]CommitView, error)
}

// CommitView is one entry of the shown-commits history
type CommitView struct {
	Hash     string    `json:"hash" yaml:"hash"`
	Author   string    `json:"author" yaml:"author"`
	Message  string    `json:"message" yaml:"message"`
	ViewedAt time.Time `json:"viewed_at" yaml:"viewed_at"`
}

// commitStorage implements CommitStorage on top of SQLite
type commitStorage struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

// NewCommitStorage creates a new commit storage instance
func NewCommitStorage(db *sql.DB, logger logging.Logger) (CommitStorage, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &commitStorage{
		db:     db,
		logger: logger.With("component", "commit_storage"),
		now:    time.Now,
	}, nil
}

// StoreCommit upserts a commit and replaces its file changes in a single transaction
func (cs *commitStorage) StoreCommit(repoPath string, opts DiffOptions, metadata *CommitMetadata) error {
	if metadata == nil {
		return fmt.Errorf("commit metadata cannot be nil")
	}
	if repoPath == "" {
		return fmt.Errorf("repository path cannot be empty")
	}

	cs.logger.Debug("storing commit", "hash", metadata.Hash, "repository", repoPath, "file_count", len(metadata.Changes))

	tx, err := cs.db.Begin()
	if err != nil {
		cs.logger.Error("failed to begin transaction", "hash", metadata.Hash, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var parentHashesJSON sql.NullString
	if len(metadata.ParentHashes) > 0 {
		parentHashesBytes, err := json.Marshal(metadata.ParentHashes)
		if err != nil {
			return fmt.Errorf("failed to marshal parent hashes: %w", err)
		}
		parentHashesJSON = sql.NullString{String: string(parentHashesBytes), Valid: true}
	}

	isMergeInt := boolToInt(metadata.IsMerge)
	detectRenamesInt := boolToInt(opts.DetectRenames)

	now := cs.now().Unix()

	var commitID string
	err = tx.QueryRow("SELECT id FROM commits WHERE repository_path = ? AND hash = ?", repoPath, metadata.Hash).Scan(&commitID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		commitID = uuid.New().String()
		_, err = tx.Exec(`
			INSERT INTO commits (
				id, repository_path, hash, author_name, author_email, authored_at,
				message, parent_hashes, is_merge, context_lines, detect_renames,
				created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			commitID,
			repoPath,
			metadata.Hash,
			metadata.Author,
			metadata.Email,
			metadata.Date.Unix(),
			metadata.Message,
			parentHashesJSON,
			isMergeInt,
			opts.ContextLines,
			detectRenamesInt,
			now,
			now,
		)
	case err == nil:
		_, err = tx.Exec(`
			UPDATE commits SET
				author_name = ?, author_email = ?, authored_at = ?, message = ?,
				parent_hashes = ?, is_merge = ?, context_lines = ?, detect_renames = ?,
				updated_at = ?
			WHERE id = ?
		`,
			metadata.Author,
			metadata.Email,
			metadata.Date.Unix(),
			metadata.Message,
			parentHashesJSON,
			isMergeInt,
			opts.ContextLines,
			detectRenamesInt,
			now,
			commitID,
		)
	}
	if err != nil {
		cs.logger.Error("failed to store commit", "hash", metadata.Hash, "error", err)
		return fmt.Errorf("failed to store commit %s: %w", metadata.Hash, err)
	}

	if _, err := tx.Exec("DELETE FROM commit_files WHERE commit_id = ?", commitID); err != nil {
		return fmt.Errorf("failed to clear file changes for %s: %w", metadata.Hash, err)
	}

	for position, change := range metadata.Changes {
		if err := cs.storeFileChangeInTx(tx, commitID, position, change); err != nil {
			cs.logger.Error("failed to store file change", "hash", metadata.Hash, "file_path", change.Path, "error", err)
			return fmt.Errorf("failed to store file change %s: %w", change.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		cs.logger.Error("failed to commit transaction", "hash", metadata.Hash, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	cs.logger.Info("stored commit", "hash", metadata.Hash, "file_count", len(metadata.Changes))
	return nil
}

// storeFileChangeInTx stores a file change within an existing transaction
func (cs *commitStorage) storeFileChangeInTx(tx *sql.Tx, commitID string, position int, change FileChange) error {
	var oldPathNull sql.NullString
	if change.OldPath != "" {
		oldPathNull = sql.NullString{String: change.OldPath, Valid: true}
	}

	_, err := tx.Exec(`
		INSERT INTO commit_files (id, commit_id, position, path, old_path, status, diff)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.New().String(),
		commitID,
		position,
		change.Path,
		oldPathNull,
		change.Status.Code(),
		change.Diff,
	)
	return err
}

// GetCommit returns a cached commit, or ErrCommitNotCached when none was stored
// for hash or the stored one was extracted with different diff options
func (cs *commitStorage) GetCommit(repoPath, hash string, opts DiffOptions) (*CommitMetadata, error) {
	if hash == "" {
		return nil, fmt.Errorf("commit hash cannot be empty")
	}

	cs.logger.Debug("retrieving cached commit", "hash", hash, "repository", repoPath)

	var commitID string
	var authoredAt int64
	var isMergeInt, contextLines, detectRenamesInt int
	var emailNull, parentHashesJSON sql.NullString
	metadata := &CommitMetadata{}

	err := cs.db.QueryRow(`
		SELECT id, hash, author_name, author_email, authored_at, message, parent_hashes, is_merge,
			context_lines, detect_renames
		FROM commits
		WHERE repository_path = ? AND hash = ?
	`, repoPath, hash).Scan(
		&commitID,
		&metadata.Hash,
		&metadata.Author,
		&emailNull,
		&authoredAt,
		&metadata.Message,
		&parentHashesJSON,
		&isMergeInt,
		&contextLines,
		&detectRenamesInt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			cs.logger.Debug("commit not cached", "hash", hash)
			return nil, fmt.Errorf("%w: %s", ErrCommitNotCached, hash)
		}
		cs.logger.Error("failed to query commit", "hash", hash, "error", err)
		return nil, fmt.Errorf("failed to query commit: %w", err)
	}

	if contextLines != opts.ContextLines || detectRenamesInt != boolToInt(opts.DetectRenames) {
		cs.logger.Debug("cached commit has different diff options", "hash", hash,
			"cached_context_lines", contextLines, "context_lines", opts.ContextLines)
		return nil, fmt.Errorf("%w: %s", ErrCommitNotCached, hash)
	}

	metadata.Email = emailNull.String
	metadata.Date = time.Unix(authoredAt, 0).UTC()
	metadata.IsMerge = isMergeInt == 1

	metadata.ParentHashes = []string{}
	if parentHashesJSON.Valid && parentHashesJSON.String != "" {
		if err := json.Unmarshal([]byte(parentHashesJSON.String), &metadata.ParentHashes); err != nil {
			return nil, fmt.Errorf("failed to parse parent hashes for %s: %w", hash, err)
		}
	}

	changes, err := cs.getFileChanges(commitID)
	if err != nil {
		cs.logger.Error("failed to get file changes", "hash", hash, "error", err)
		return nil, fmt.Errorf("failed to get file changes: %w", err)
	}
	metadata.Changes = changes

	cs.logger.Debug("retrieved cached commit", "hash", hash, "file_count", len(changes))
	return metadata, nil
}

// getFileChanges loads a commit's file changes in their original order
func (cs *commitStorage) getFileChanges(commitID string) ([]FileChange, error) {
	rows, err := cs.db.Query(`
		SELECT path, old_path, status, diff
		FROM commit_files
		WHERE commit_id = ?
		ORDER BY position ASC
	`, commitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query file changes: %w", err)
	}
	defer rows.Close()

	changes := []FileChange{}
	for rows.Next() {
		var change FileChange
		var oldPathNull, diffNull sql.NullString
		var statusCode string

		if err := rows.Scan(&change.Path, &oldPathNull, &statusCode, &diffNull); err != nil {
			return nil, fmt.Errorf("failed to scan file change: %w", err)
		}

		status, err := ParseFileStatus(statusCode)
		if err != nil {
			cs.logger.Warn("unknown cached file status, treating as modified", "status", statusCode, "file_path", change.Path)
		}
		change.Status = status
		change.OldPath = oldPathNull.String
		change.Diff = diffNull.String

		changes = append(changes, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file changes: %w", err)
	}

	return changes, nil
}

// RecordView appends a commit to the shown-commits history
func (cs *commitStorage) RecordView(repoPath, hash string) error {
	if hash == "" {
		return fmt.Errorf("commit hash cannot be empty")
	}

	_, err := cs.db.Exec(`
		INSERT INTO commit_views (id, repository_path, hash, viewed_at)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), repoPath, hash, cs.now().UnixNano())
	if err != nil {
		cs.logger.Error("failed to record commit view", "hash", hash, "error", err)
		return fmt.Errorf("failed to record view of %s: %w", hash, err)
	}

	cs.logger.Debug("recorded commit view", "hash", hash, "repository", repoPath)
	return nil
}

// ListViews returns the most recently shown commits first.
// A limit of zero or less returns the whole history.
func (cs *commitStorage) ListViews(repoPath string, limit int) ([]CommitView, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as no limit
	}

	rows, err := cs.db.Query(`
		SELECT v.hash, COALESCE(c.author_name, ''), COALESCE(c.message, ''), v.viewed_at
		FROM commit_views v
		LEFT JOIN commits c ON c.repository_path = v.repository_path AND c.hash = v.hash
		WHERE v.repository_path = ?
		ORDER BY v.viewed_at DESC
		LIMIT ?
	`, repoPath, limit)
	if err != nil {
		cs.logger.Error("failed to query commit views", "repository", repoPath, "error", err)
		return nil, fmt.Errorf("failed to query commit views: %w", err)
	}
	defer rows.Close()

	views := []CommitView{}
	for rows.Next() {
		var view CommitView
		var viewedAt int64
		if err := rows.Scan(&view.Hash, &view.Author, &view.Message, &viewedAt); err != nil {
			return nil, fmt.Errorf("failed to scan commit view: %w", err)
		}
		view.ViewedAt = time.Unix(0, viewedAt).UTC()
		views = append(views, view)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commit views: %w", err)
	}

	return views, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
