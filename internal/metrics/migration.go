package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
)

// keepBackups is how many schema backups survive a migration.
const keepBackups = 5

// ValidateAndUpdateSchema makes sure db carries SchemaVersion. A database
// with another version is copied into backupDir, then its tables are
// dropped and recreated; snapshots are not converted between versions.
func ValidateAndUpdateSchema(db *sql.DB, backupDir string, log logger.Logger) error {
	errFactory := errors.New()

	version, err := GetSchemaVersion(db)
	if err != nil {
		return errFactory.Wrap(ErrSchemaValidationFailed, err)
	}

	switch version {
	case SchemaVersion:
		log.Debug().Int("version", version).Msg("Schema version is current")
		return nil
	case 0:
		log.Debug().Msg("Empty metrics database")
	default:
		log.Warn().
			Int("found", version).
			Int("expected", SchemaVersion).
			Msg("Metrics schema version mismatch, recreating")

		if _, err := backupDatabase(db, backupDir, version, log); err != nil {
			return errFactory.Wrap(ErrSchemaMigrationFailed, err)
		}
		pruneBackups(backupDir, keepBackups, log)
	}

	if err := dropTables(db, log); err != nil {
		return err
	}
	return InitSchema(db, log)
}

func backupDatabase(db *sql.DB, backupDir string, version int, log logger.Logger) (string, error) {
	if err := os.MkdirAll(backupDir, defaultDirPerm); err != nil {
		return "", errors.New().Wrap(ErrSchemaMigrationFailed, err).
			WithData(failure{Phase: "create_backup_dir", Path: backupDir, Error: err.Error()})
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	path := filepath.Join(backupDir, fmt.Sprintf("metrics_v%d_%s.db", version, stamp))

	// VACUUM INTO needs a path that does not exist yet and no open transaction
	if _, err := db.Exec("VACUUM INTO ?", path); err != nil {
		return "", errors.New().Wrap(ErrSchemaMigrationFailed, err).
			WithData(failure{Phase: "create_backup", Path: path, Error: err.Error()})
	}

	log.Info().Str("path", path).Int("version", version).Msg("Database backup created")

	return path, nil
}

// pruneBackups removes all but the newest keep backups. Failures only log,
// a stale backup never blocks start-up.
func pruneBackups(backupDir string, keep int, log logger.Logger) {
	paths, err := filepath.Glob(filepath.Join(backupDir, "metrics_v*_*.db"))
	if err != nil || len(paths) <= keep {
		return
	}

	sort.Slice(paths, func(i, j int) bool {
		return backupStamp(paths[i]) < backupStamp(paths[j])
	})

	for _, path := range paths[:len(paths)-keep] {
		if err := os.Remove(path); err != nil {
			log.Debug().Err(err).Str("path", path).Msg("Failed to remove old backup")
			continue
		}
		log.Debug().Str("path", path).Msg("Removed old backup")
	}
}

// backupStamp is the timestamp part of a backup file name, which sorts
// chronologically.
func backupStamp(path string) string {
	base := filepath.Base(path)
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '_' {
			return base[i+1:]
		}
	}
	return base
}

func dropTables(db *sql.DB, log logger.Logger) error {
	tx, err := db.Begin()
	if err != nil {
		return phaseError(ErrSchemaMigrationFailed, "begin", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Debug().Err(err).Msg("Failed to rollback drop tables")
		}
	}()

	for _, table := range []string{"snapshots", "schema_versions"} {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return errors.New().Wrap(ErrSchemaMigrationFailed, err).
				WithData(failure{Phase: "drop_table", Table: table, Error: err.Error()})
		}
	}

	if err := tx.Commit(); err != nil {
		return phaseError(ErrSchemaMigrationFailed, "commit_changes", err)
	}
	committed = true

	return nil
}
