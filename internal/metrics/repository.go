package metrics

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

// repository writes snapshots to SQLite. With batching on, snapshots are
// buffered until BatchSize is reached or BatchTimeout passes.
type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config

	mu      sync.Mutex
	pending []*Snapshot

	stop      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	if cfg.DBPath == "" {
		return nil, errors.New().New(ErrInvalidDBPath)
	}

	db, err := openDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	repo := &repository{
		db:      db,
		logger:  log,
		cfg:     cfg,
		pending: make([]*Snapshot, 0, cfg.BatchSize),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	if repo.batching() {
		go repo.flusher(time.NewTicker(cfg.BatchTimeout))
	} else {
		close(repo.stopped)
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Msg("Metrics repository opened")

	return repo, nil
}

func openDatabase(cfg Config, log logger.Logger) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errors.New().Wrap(ErrStorageInit, err).
			WithData(failure{Phase: "create_directory", Path: cfg.DBPath, Error: err.Error()})
	}

	// WAL keeps the UI responsive while a batch commits
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal=WAL&_auto_vacuum=2")
	if err != nil {
		return nil, phaseError(ErrStorageInit, "open_database", err)
	}

	if err := ValidateAndUpdateSchema(db, cfg.backupDir(), log); err != nil {
		if cerr := db.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("Failed to close database after schema error")
		}
		return nil, phaseError(ErrStorageInit, "schema_version", err)
	}

	return db, nil
}

func (r *repository) batching() bool {
	return r.cfg.BatchSize > 0 && r.cfg.BatchTimeout > 0
}

// Record queues snapshot and writes the queue once it holds BatchSize
// snapshots. Without batching every snapshot is written immediately.
func (r *repository) Record(snapshot *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = append(r.pending, snapshot)
	if len(r.pending) < r.cfg.BatchSize {
		return nil
	}
	return r.flushLocked()
}

func (r *repository) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

// Close stops the flusher, writes what is pending and closes the database.
// Later calls return the first result.
func (r *repository) Close() error {
	r.closeOnce.Do(func() {
		close(r.stop)
		<-r.stopped

		if err := r.Flush(); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to flush metrics on close")
		}

		if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			r.closeErr = phaseError(ErrStorageClose, "checkpoint_wal", err)
			return
		}
		if err := r.db.Close(); err != nil {
			r.closeErr = phaseError(ErrStorageClose, "close_database", err)
			return
		}

		r.logger.Info().Msg("Metrics repository closed")
	})
	return r.closeErr
}

func (r *repository) flusher(ticker *time.Ticker) {
	defer close(r.stopped)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Flush(); err != nil {
				r.logger.Warn().Err(err).Msg("Periodic metrics flush failed")
			}
		case <-r.stop:
			return
		}
	}
}

// flushLocked writes pending snapshots in one transaction. On failure the
// snapshots stay queued for the next attempt. r.mu must be held.
func (r *repository) flushLocked() error {
	if len(r.pending) == 0 {
		return nil
	}

	if err := r.insert(r.pending); err != nil {
		r.logger.Error().Err(err).Int("pending", len(r.pending)).Msg("Failed to write metrics batch")
		return err
	}

	r.logger.Debug().Int("records", len(r.pending)).Msg("Flushed metrics to database")
	r.pending = r.pending[:0]

	return nil
}

func (r *repository) insert(batch []*Snapshot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return phaseError(ErrTransactionFailed, "begin", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.Debug().Err(err).Msg("Failed to roll back metrics batch")
		}
	}()

	stmt, err := tx.Prepare(GetInsertSnapshotSQL())
	if err != nil {
		return phaseError(ErrTransactionFailed, "prepare", err)
	}
	defer stmt.Close()

	for _, snapshot := range batch {
		if _, err := stmt.Exec(snapshotValues(snapshot)...); err != nil {
			return phaseError(ErrTransactionFailed, "insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return phaseError(ErrTransactionFailed, "commit", err)
	}
	return nil
}

// snapshotValues orders a snapshot's columns for insertSnapshotSQL.
// Unavailable readings become NULL.
func snapshotValues(s *Snapshot) []interface{} {
	var cpu, gpuUtil, gpuTemp, gpuPower, battPercent, battDrained, battDischarging interface{}

	if s.CPU.Valid {
		cpu = s.CPU.Percent
	}
	if s.GPU != nil {
		gpuUtil = int64(s.GPU.Utilization)
		gpuTemp = int64(s.GPU.Temperature)
		gpuPower = int64(s.GPU.Power)
	}
	if s.Battery != nil {
		battPercent = int64(s.Battery.Percent)
		battDrained = int64(s.Battery.Drained)
		battDischarging = int64(boolToInt(s.Battery.Discharging))
	}

	return []interface{}{
		s.Session,
		s.Timestamp.UnixMilli(),
		cpu,
		s.CPU.Average,
		s.Frames.Produced,
		s.Frames.Skipped,
		s.Frames.Rejected,
		s.Frames.PTS,
		gpuUtil,
		gpuTemp,
		gpuPower,
		battPercent,
		battDrained,
		battDischarging,
		int64(boolToInt(s.Draining)),
	}
}
