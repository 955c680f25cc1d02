package storage

import (
	"database/sql"
	"fmt"

	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	payloadTable
	Config *models.MConfig
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		payloadTable: payloadTable{
			Logger:  log,
			Table:   "refresh_payloads",
			Bind:    questionMark,
			Retains: cfg.Storage.RetentionDays,
		},
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		d.Logger.Warning("Failed to set busy timeout: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS refresh_payloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			payload TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create refresh_payloads: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_refresh_payloads_op_time ON refresh_payloads (operation, fetched_at)`
	if _, err := d.DB.Exec(index); err != nil {
		return fmt.Errorf("failed to index refresh_payloads: %w", err)
	}

	d.Logger.Info("SQLite archive ready at %s", d.Config.Storage.DBPath)
	return nil
}
