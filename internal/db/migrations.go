package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationPattern matches NNN_name.up.sql and NNN_name.down.sql
var migrationPattern = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

type migration struct {
	version int
	name    string
	upSQL   string
	downSQL string
}

// RunMigrations applies every migration newer than the recorded schema version.
// Each migration runs in its own transaction.
func RunMigrations(db *sql.DB) error {
	currentVersion, err := cleanVersion(db)
	if err != nil {
		return err
	}

	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if err := applyInTx(db, m.version, m.upSQL, func(tx *sql.Tx) error {
			return setMigrationVersion(tx, m.version)
		}); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.name, err)
		}
	}

	return nil
}

// RollbackMigrations reverts count migrations, newest first, and returns the resulting version.
// A count of zero or less rolls back one migration.
func RollbackMigrations(db *sql.DB, count int) (int, error) {
	if count <= 0 {
		count = 1
	}

	currentVersion, err := cleanVersion(db)
	if err != nil {
		return 0, err
	}
	if currentVersion == 0 {
		return 0, fmt.Errorf("no migrations to rollback")
	}

	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		return 0, fmt.Errorf("failed to load migrations: %w", err)
	}

	rolledBack := 0
	for i := len(migrations) - 1; i >= 0 && rolledBack < count; i-- {
		m := migrations[i]
		if m.version > currentVersion || m.downSQL == "" {
			continue
		}
		if err := applyInTx(db, m.version, m.downSQL, func(tx *sql.Tx) error {
			return removeMigrationVersion(tx, m.version)
		}); err != nil {
			return currentVersion, fmt.Errorf("failed to roll back migration %d (%s): %w", m.version, m.name, err)
		}
		currentVersion = m.version - 1
		rolledBack++
	}

	if rolledBack == 0 {
		return currentVersion, fmt.Errorf("no migrations found to rollback")
	}

	return currentVersion, nil
}

// CurrentVersion reports the highest applied migration version, zero for a fresh database
func CurrentVersion(db *sql.DB) (int, error) {
	version, _, err := getMigrationVersion(db)
	return version, err
}

func cleanVersion(db *sql.DB) (int, error) {
	version, dirty, err := getMigrationVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database is in a dirty migration state (version %d), manual intervention required", version)
	}
	return version, nil
}

func applyInTx(db *sql.DB, version int, script string, record func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for version %d: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if err := record(tx); err != nil {
		return fmt.Errorf("failed to record version %d: %w", version, err)
	}

	return tx.Commit()
}

// loadMigrations reads migration scripts from fsys, sorted by version
func loadMigrations(fsys fs.FS) ([]migration, error) {
	files, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int]*migration)
	for _, file := range files {
		matches := migrationPattern.FindStringSubmatch(path.Base(file))
		if matches == nil {
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("invalid migration version in %s: %w", file, err)
		}

		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{version: version, name: matches[2]}
			byVersion[version] = m
		} else if m.name != matches[2] {
			return nil, fmt.Errorf("migration version %d used by both %s and %s", version, m.name, matches[2])
		}

		if matches[3] == "up" {
			m.upSQL = string(content)
		} else {
			m.downSQL = string(content)
		}
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.upSQL == "" {
			return nil, fmt.Errorf("migration %d (%s) has no up script", m.version, m.name)
		}
		migrations = append(migrations, *m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})

	return migrations, nil
}

func removeMigrationVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_migrations WHERE version = ?", version)
	return err
}

// getMigrationVersion creates schema_migrations if needed and reads the latest row
func getMigrationVersion(db *sql.DB) (version int, dirty bool, err error) {
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER NOT NULL PRIMARY KEY,
			dirty BOOLEAN NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var v sql.NullInt64
	var d sql.NullBool
	err = db.QueryRow("SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&v, &d)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query migration version: %w", err)
	}

	return int(v.Int64), d.Valid && d.Bool, nil
}

func setMigrationVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT OR REPLACE INTO schema_migrations (version, dirty) VALUES (?, 0)", version)
	return err
}
