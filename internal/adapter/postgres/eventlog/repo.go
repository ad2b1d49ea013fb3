// Package eventlog implements the NBA event log using PostgreSQL.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/nba-backend/internal/adapter/postgres"
	"github.com/heartmarshall/nba-backend/internal/domain"
)

const insertSQL = `
INSERT INTO nba_event_logs (id, nba_id, status, context, acted_by, action_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, nba_id, status, context, acted_by, action_at`

// seq is a bigserial so ORDER BY seq reproduces insertion order even when
// two entries share the same action_at.
const listSQL = `
SELECT id, nba_id, status, context, acted_by, action_at
FROM nba_event_logs
WHERE nba_id = $1
ORDER BY seq`

const findActionSQL = `
SELECT id, nba_id, status, context, acted_by, action_at
FROM nba_event_logs
WHERE nba_id = $1 AND status = $2 AND acted_by IS NOT NULL
ORDER BY seq
LIMIT 1`

// Repo provides event log persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new event log repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Add appends an entry to an NBA's history.
func (r *Repo) Add(ctx context.Context, rec domain.NbaEventLogRecord) (domain.NbaEventLogRecord, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	contextJSON, err := json.Marshal(normalizeContext(rec.Context))
	if err != nil {
		return domain.NbaEventLogRecord{}, fmt.Errorf("event log marshal context: %w", err)
	}

	stored, err := scanEntry(q.QueryRow(ctx, insertSQL,
		rec.ID, rec.NbaID, string(rec.Status), contextJSON, rec.ActedBy, rec.ActionAt,
	))
	if err != nil {
		return domain.NbaEventLogRecord{}, postgres.MapError(err, "nba_event_log", rec.ID)
	}
	return stored, nil
}

// ListForNba returns every entry for the NBA in insertion order.
func (r *Repo) ListForNba(ctx context.Context, nbaID string) ([]domain.NbaEventLogRecord, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rows, err := q.Query(ctx, listSQL, nbaID)
	if err != nil {
		return nil, fmt.Errorf("list event logs for nba %s: %w", nbaID, err)
	}
	defer rows.Close()

	var entries []domain.NbaEventLogRecord
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list event logs for nba %s: %w", nbaID, err)
	}

	return entries, nil
}

// FindActionEvent returns the first human action entry for the NBA with the
// given status. Returns domain.ErrNotFound when no such entry exists.
func (r *Repo) FindActionEvent(ctx context.Context, nbaID string, status domain.Status) (domain.NbaEventLogRecord, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	entry, err := scanEntry(q.QueryRow(ctx, findActionSQL, nbaID, string(status)))
	if err != nil {
		return domain.NbaEventLogRecord{}, postgres.MapError(err, "nba_event_log", nbaID)
	}
	return entry, nil
}

func scanEntry(row pgx.Row) (domain.NbaEventLogRecord, error) {
	var (
		entry       domain.NbaEventLogRecord
		status      string
		contextJSON []byte
	)

	err := row.Scan(&entry.ID, &entry.NbaID, &status, &contextJSON, &entry.ActedBy, &entry.ActionAt)
	if err != nil {
		return domain.NbaEventLogRecord{}, err
	}

	entry.Status = domain.Status(status)

	if len(contextJSON) > 0 {
		entry.Context = make(map[string]any)
		if err := json.Unmarshal(contextJSON, &entry.Context); err != nil {
			return domain.NbaEventLogRecord{}, fmt.Errorf("event log %s unmarshal context: %w", entry.ID, err)
		}
	}

	return entry, nil
}

func normalizeContext(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
