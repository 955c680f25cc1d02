package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	payloadTable
	Config *models.MConfig
	Schema string
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Each deployed binary archives into its own schema
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return newPostgresDB(cfg, log, name), nil
}

func newPostgresDB(cfg *models.MConfig, log *logger.Logger, schema string) *PostgresDB {
	return &PostgresDB{
		Config: cfg,
		Schema: schema,
		payloadTable: payloadTable{
			Logger:  log,
			Table:   fmt.Sprintf(`"%s"."refresh_payloads"`, schema),
			Bind:    dollar,
			Retains: cfg.Storage.RetentionDays,
		},
	}
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			tick_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			payload TEXT NOT NULL,
			fetched_at BIGINT NOT NULL
		);
	`, d.Table)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create refresh_payloads: %w", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_refresh_payloads_op_time ON %s (operation, fetched_at)`, d.Table)
	if _, err := d.DB.Exec(index); err != nil {
		return fmt.Errorf("failed to index refresh_payloads: %w", err)
	}
	return nil
}
