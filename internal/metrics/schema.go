package metrics

import (
	"database/sql"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS snapshots (
	       id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	       session             TEXT    NOT NULL,
	       timestamp           INTEGER NOT NULL CHECK (typeof(timestamp) = 'integer'),
	       cpu_percent         REAL,
	       cpu_average         REAL    NOT NULL,
	       frames_produced     INTEGER NOT NULL CHECK (frames_produced >= 0),
	       frames_skipped      INTEGER NOT NULL CHECK (frames_skipped >= 0),
	       frames_rejected     INTEGER NOT NULL CHECK (frames_rejected >= 0),
	       pts                 REAL    NOT NULL,
	       gpu_utilization     INTEGER,
	       gpu_temperature     INTEGER,
	       gpu_power           INTEGER,
	       battery_percent     INTEGER CHECK (battery_percent BETWEEN 0 AND 100),
	       battery_drained     INTEGER,
	       battery_discharging INTEGER CHECK (battery_discharging IN (0, 1)),
	       draining            INTEGER NOT NULL CHECK (draining IN (0, 1))
	   );
	   CREATE INDEX IF NOT EXISTS snapshots_session ON snapshots (session, timestamp);`

	insertSnapshotSQL = `
    INSERT INTO snapshots (
        session, timestamp,
        cpu_percent, cpu_average,
        frames_produced, frames_skipped, frames_rejected, pts,
        gpu_utilization, gpu_temperature, gpu_power,
        battery_percent, battery_drained, battery_discharging,
        draining
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	recordVersionSQL = "INSERT INTO schema_versions (version, applied_at) VALUES (?, datetime('now'))"
)

// InitSchema creates the tables and records SchemaVersion in a single
// transaction.
func InitSchema(db *sql.DB, log logger.Logger) error {
	tx, err := db.Begin()
	if err != nil {
		return phaseError(ErrSchemaInitFailed, "begin", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Debug().Err(err).Msg("Failed to rollback schema creation")
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return phaseError(ErrSchemaInitFailed, "create_tables", err)
	}
	if _, err := tx.Exec(recordVersionSQL, SchemaVersion); err != nil {
		return phaseError(ErrSchemaInitFailed, "record_version", err)
	}
	if err := tx.Commit(); err != nil {
		return phaseError(ErrSchemaInitFailed, "commit", err)
	}

	log.Info().Int("version", SchemaVersion).Msg("Metrics schema created")

	return nil
}

// GetSchemaVersion returns the newest recorded schema version, or 0 for a
// database without one.
func GetSchemaVersion(db *sql.DB) (int, error) {
	exists, err := TableExists(db, "schema_versions")
	if err != nil || !exists {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_versions ORDER BY version DESC LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, phaseError(ErrSchemaValidationFailed, "get_version", err)
	}

	return version, nil
}

// TableExists reports whether name is a table in db.
func TableExists(db *sql.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)",
		name,
	).Scan(&exists)
	if err != nil {
		return false, errors.New().Wrap(ErrSchemaValidationFailed, err).
			WithData(failure{Phase: "check_table_exists", Table: name, Error: err.Error()})
	}
	return exists, nil
}

func GetInsertSnapshotSQL() string {
	return insertSnapshotSQL
}
