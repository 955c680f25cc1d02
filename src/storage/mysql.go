package storage

import (
	"database/sql"
	"fmt"
	"time"

	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"

	_ "github.com/go-sql-driver/mysql"
)

// -----------------------------------------------------------------------------

type MySQLDB struct {
	payloadTable
	Config *models.MConfig
}

// -----------------------------------------------------------------------------

func NewMySQLDB(cfg *models.MConfig, log *logger.Logger) (*MySQLDB, error) {
	return &MySQLDB{
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

func (d *MySQLDB) Initialize() error {
	db, err := sql.Open("mysql", d.Config.Storage.DBConnectionString)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db
	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *MySQLDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS refresh_payloads (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			tick_id VARCHAR(36) NOT NULL,
			operation VARCHAR(64) NOT NULL,
			payload LONGTEXT NOT NULL,
			fetched_at BIGINT NOT NULL,
			INDEX idx_refresh_payloads_op_time (operation, fetched_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create refresh_payloads: %w", err)
	}

	d.Logger.Info("MySQL archive ready")
	return nil
}
