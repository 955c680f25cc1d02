package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"portfolio-dashboard/src/helpers"
	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"
)

// -----------------------------------------------------------------------------

// payloadTable holds the SQL shared by every dialect. Dialects differ in the
// CREATE statement, the qualified table name and the placeholder style.
type payloadTable struct {
	DB      *sql.DB
	Logger  *logger.Logger
	Table   string
	Bind    func(n int) string
	Retains int
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// -----------------------------------------------------------------------------

func (p *payloadTable) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = p.Bind(i + 1)
	}
	return strings.Join(marks, ", ")
}

// -----------------------------------------------------------------------------

func (p *payloadTable) Archive(ctx context.Context, payload models.MArchivedPayload) error {
	if p.DB == nil {
		return helpers.NewDatabaseError("archive", fmt.Errorf("database not initialized"))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (tick_id, operation, payload, fetched_at) VALUES (%s)",
		p.Table, p.placeholders(4),
	)
	_, err := p.DB.ExecContext(ctx, query,
		payload.TickID,
		payload.Operation,
		string(payload.Payload),
		payload.FetchedAt.UTC().Unix(),
	)
	if err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("insert %s payload", payload.Operation), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (p *payloadTable) RecentPayloads(ctx context.Context, operation string, limit int) ([]models.MArchivedPayload, error) {
	if p.DB == nil {
		return nil, helpers.NewDatabaseError("recent payloads", fmt.Errorf("database not initialized"))
	}
	if limit <= 0 {
		limit = 1
	}

	query := fmt.Sprintf(
		"SELECT tick_id, operation, payload, fetched_at FROM %s WHERE operation = %s ORDER BY fetched_at DESC, id DESC LIMIT %s",
		p.Table, p.Bind(1), p.Bind(2),
	)
	rows, err := p.DB.QueryContext(ctx, query, operation, limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("query payloads", err)
	}
	defer rows.Close()

	var out []models.MArchivedPayload
	for rows.Next() {
		var (
			item    models.MArchivedPayload
			payload string
			fetched int64
		)
		if err := rows.Scan(&item.TickID, &item.Operation, &payload, &fetched); err != nil {
			return nil, helpers.NewDatabaseError("scan payload", err)
		}
		item.Payload = json.RawMessage(payload)
		item.FetchedAt = time.Unix(fetched, 0).UTC()
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate payloads", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (p *payloadTable) CleanupOldData() error {
	if p.DB == nil {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -p.Retains).Unix()

	p.Logger.Info("Cleaning up payloads older than %d days (fetched_at < %d)...", p.Retains, cutoff)

	res, err := p.DB.Exec(fmt.Sprintf("DELETE FROM %s WHERE fetched_at < %s", p.Table, p.Bind(1)), cutoff)
	if err != nil {
		return helpers.NewDatabaseError("cleanup payloads", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		p.Logger.Info("Cleanup completed, %d rows removed", n)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (p *payloadTable) Close() error {
	if p.DB != nil {
		return p.DB.Close()
	}
	return nil
}
