// Package processed implements the processed-event ledger using PostgreSQL.
package processed

import (
	"context"
	"fmt"

	postgres "github.com/heartmarshall/nba-backend/internal/adapter/postgres"
	"github.com/heartmarshall/nba-backend/internal/domain"
)

const existsSQL = `
SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id = $1)`

// ON CONFLICT DO NOTHING keeps redelivered events from failing the
// transaction that marks them.
const markSQL = `
INSERT INTO processed_events (event_id, processed_at)
VALUES ($1, $2)
ON CONFLICT (event_id) DO NOTHING`

// Repo provides the processed-event ledger backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new processed-event ledger repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// IsProcessed reports whether the event id has already been handled.
func (r *Repo) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var exists bool
	if err := q.QueryRow(ctx, existsSQL, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check processed event %s: %w", eventID, err)
	}
	return exists, nil
}

// MarkProcessed records the event id in the ledger. Marking an already
// recorded id is a no-op.
func (r *Repo) MarkProcessed(ctx context.Context, eventID string) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	if _, err := q.Exec(ctx, markSQL, eventID, domain.UTCNow()); err != nil {
		return fmt.Errorf("mark processed event %s: %w", eventID, err)
	}
	return nil
}
