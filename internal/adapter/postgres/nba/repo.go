// Package nba implements the NBA store using PostgreSQL. The dynamic
// list query is built with squirrel; everything else is raw SQL.
package nba

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/nba-backend/internal/adapter/postgres"
	"github.com/heartmarshall/nba-backend/internal/domain"
)

const columns = `id, nba_definition_id, enterprise_number, account_id, contact_id,
       active, status, priority, context, created_at, updated_at`

const getSQL = `
SELECT id, nba_definition_id, enterprise_number, account_id, contact_id,
       active, status, priority, context, created_at, updated_at
FROM nbas WHERE id = $1`

const findByEventSQL = `
SELECT nba_id FROM nba_creation_events WHERE event_id = $1`

const insertSQL = `
INSERT INTO nbas (id, nba_definition_id, enterprise_number, account_id, contact_id,
                  active, status, priority, context, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, true, 'new', 0, $6, $7, $7)
RETURNING id, nba_definition_id, enterprise_number, account_id, contact_id,
          active, status, priority, context, created_at, updated_at`

const insertCreationEventSQL = `
INSERT INTO nba_creation_events (event_id, nba_id) VALUES ($1, $2)`

const updateStatusSQL = `
UPDATE nbas SET status = $2, updated_at = $3
WHERE id = $1 AND status = 'new'
RETURNING id, nba_definition_id, enterprise_number, account_id, contact_id,
          active, status, priority, context, created_at, updated_at`

// IS NOT DISTINCT FROM makes NULL scope identifiers match NULL exactly,
// never act as a wildcard.
const supersedeScopeSQL = `
UPDATE nbas SET active = false, updated_at = $1
WHERE id <> $2
  AND active
  AND status = 'new'
  AND nba_definition_id = $3
  AND enterprise_number IS NOT DISTINCT FROM $4
  AND account_id IS NOT DISTINCT FROM $5
  AND contact_id IS NOT DISTINCT FROM $6`

const deactivateByIDsSQL = `
UPDATE nbas SET active = false, updated_at = $1
WHERE id = ANY($2) AND active`

// Repo provides NBA persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new NBA repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// List returns active records matching the filter, newest first, plus the
// total count of the full filtered set.
func (r *Repo) List(ctx context.Context, filter domain.NbaFilter) ([]*domain.NbaRecord, int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	filter.Normalize()

	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	where := sq.And{sq.Eq{"active": true}}
	if filter.AccountID != nil {
		where = append(where, sq.Eq{"account_id": *filter.AccountID})
	}
	if filter.EnterpriseNumber != nil {
		where = append(where, sq.Eq{"enterprise_number": *filter.EnterpriseNumber})
	}
	if filter.Status != nil {
		where = append(where, sq.Eq{"status": string(*filter.Status)})
	}

	countSQL, countArgs, err := psql.Select("count(*)").From("nbas").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count nbas: %w", err)
	}

	pageSQL, pageArgs, err := psql.Select(columns).
		From("nbas").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	rows, err := q.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list nbas: %w", err)
	}
	defer rows.Close()

	var records []*domain.NbaRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list nbas: %w", err)
	}

	return records, total, nil
}

// Get returns a record by id. Returns domain.ErrNotFound if absent.
func (r *Repo) Get(ctx context.Context, id string) (*domain.NbaRecord, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rec, err := scanRecord(q.QueryRow(ctx, getSQL, id))
	if err != nil {
		return nil, postgres.MapError(err, "nba", id)
	}
	return rec, nil
}

// UpsertFromEvent creates a recommendation for a calculation event,
// idempotent on the event id. The event→nba association is written in the
// same statement batch and is never reused for a different NBA; the
// primary key on nba_creation_events is the backstop against races.
func (r *Repo) UpsertFromEvent(ctx context.Context, eventID string, scope domain.Scope, eventContext map[string]any) (*domain.NbaRecord, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var existingID string
	err := q.QueryRow(ctx, findByEventSQL, eventID).Scan(&existingID)
	switch {
	case err == nil:
		return r.Get(ctx, existingID)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("find nba by event %s: %w", eventID, err)
	}

	contextJSON, err := marshalContext(eventContext)
	if err != nil {
		return nil, fmt.Errorf("nba marshal context: %w", err)
	}

	id := domain.NewNbaID()
	now := domain.UTCNow()

	rec, err := scanRecord(q.QueryRow(ctx, insertSQL,
		id, scope.NbaDefinitionID, scope.EnterpriseNumber, scope.AccountID, scope.ContactID,
		contextJSON, now,
	))
	if err != nil {
		return nil, postgres.MapError(err, "nba", id)
	}

	if _, err := q.Exec(ctx, insertCreationEventSQL, eventID, rec.ID); err != nil {
		return nil, postgres.MapError(err, "nba_creation_event", eventID)
	}

	return rec, nil
}

// UpdateStatus transitions a record to the given status. The UPDATE is
// conditional on the record still being "new", so two racing decisions
// cannot both win: the loser gets ErrConflict, a missing record
// ErrNotFound.
func (r *Repo) UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.NbaRecord, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rec, err := scanRecord(q.QueryRow(ctx, updateStatusSQL, id, string(status), domain.UTCNow()))
	if err == nil {
		return rec, nil
	}
	mapped := postgres.MapError(err, "nba", id)
	if !errors.Is(mapped, domain.ErrNotFound) {
		return nil, mapped
	}

	// No row matched: either the record does not exist or it already
	// reached a terminal status. Re-read to tell the cases apart.
	current, getErr := r.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("nba %s is already %s: %w", id, current.Status, domain.ErrConflict)
}

// DeactivateOtherActiveNewForScope deactivates every other active "new"
// record in the exact same scope. Returns the number of rows affected.
func (r *Repo) DeactivateOtherActiveNewForScope(ctx context.Context, keepID string, scope domain.Scope) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	tag, err := q.Exec(ctx, supersedeScopeSQL,
		domain.UTCNow(), keepID, scope.NbaDefinitionID,
		scope.EnterpriseNumber, scope.AccountID, scope.ContactID,
	)
	if err != nil {
		return 0, fmt.Errorf("supersede scope for nba %s: %w", keepID, err)
	}
	return int(tag.RowsAffected()), nil
}

// DeactivateByIDs deactivates each listed record that is still active.
// Missing or already-inactive ids are skipped silently.
func (r *Repo) DeactivateByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q := postgres.QuerierFromCtx(ctx, r.db)

	tag, err := q.Exec(ctx, deactivateByIDsSQL, domain.UTCNow(), ids)
	if err != nil {
		return 0, fmt.Errorf("deactivate nbas by ids: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ---------------------------------------------------------------------------
// Row mapping
// ---------------------------------------------------------------------------

func scanRecord(row pgx.Row) (*domain.NbaRecord, error) {
	var (
		rec         domain.NbaRecord
		status      string
		contextJSON []byte
	)

	err := row.Scan(
		&rec.ID, &rec.NbaDefinitionID, &rec.EnterpriseNumber, &rec.AccountID, &rec.ContactID,
		&rec.Active, &status, &rec.Priority, &contextJSON, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = domain.Status(status)

	if len(contextJSON) > 0 {
		rec.Context = make(map[string]any)
		if err := json.Unmarshal(contextJSON, &rec.Context); err != nil {
			return nil, fmt.Errorf("nba %s unmarshal context: %w", rec.ID, err)
		}
	}

	return &rec, nil
}

func marshalContext(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}
