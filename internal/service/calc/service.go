// Package calc implements the calculation event processor: the state
// machine that turns externally-produced calculation events into NBA
// creations, deduplications, supersessions and deactivations.
package calc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/nba-backend/internal/domain"
)

type nbaStore interface {
	UpsertFromEvent(ctx context.Context, eventID string, scope domain.Scope, eventContext map[string]any) (*domain.NbaRecord, error)
	DeactivateOtherActiveNewForScope(ctx context.Context, keepID string, scope domain.Scope) (int, error)
	DeactivateByIDs(ctx context.Context, ids []string) (int, error)
}

type eventLogStore interface {
	Add(ctx context.Context, rec domain.NbaEventLogRecord) (domain.NbaEventLogRecord, error)
}

type processedLedger interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

type enricher interface {
	Enrich(ctx context.Context, accountID, enterpriseNumber *string) (*string, *string, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Action is the outcome class of one processed event.
type Action string

const (
	// ActionDuplicateSkipped: the event id was already applied; no side effects.
	ActionDuplicateSkipped Action = "duplicate_skipped"
	// ActionDeactivatedOnly: the event only retired recommendations.
	ActionDeactivatedOnly Action = "deactivated_only"
	// ActionCreated: a recommendation was created (or resolved idempotently).
	ActionCreated Action = "created"
)

// Result describes what processing one event did. NbaID is set only for
// ActionCreated.
type Result struct {
	Action Action
	NbaID  string
}

// Service processes calculation events one at a time. Redelivery is safe:
// the processed-event ledger absorbs duplicates, and creation is keyed on
// the event id, so reprocessing after a crash cannot create a second
// record.
type Service struct {
	nbas      nbaStore
	events    eventLogStore
	processed processedLedger
	refdata   enricher
	tx        txManager
	log       *slog.Logger
}

// NewService creates the calculation event processor.
func NewService(
	log *slog.Logger,
	nbas nbaStore,
	events eventLogStore,
	processed processedLedger,
	refdata enricher,
	tx txManager,
) *Service {
	return &Service{
		nbas:      nbas,
		events:    events,
		processed: processed,
		refdata:   refdata,
		tx:        tx,
		log:       log.With("service", "calc"),
	}
}

// Process applies one calculation event:
//
//  1. duplicate event ids are skipped with no side effects;
//  2. identifiers are resolved through the reference-data hook;
//  3. requested deactivations run first, always;
//  4. if the event does not request creation, it is marked processed and
//     done;
//  5. otherwise the NBA is upserted (idempotent per event id), other
//     active "new" records in the same scope are superseded strictly
//     after the new record exists, and a system log entry is appended.
//
// Steps 3–5 run inside one transaction so a crash leaves no partial
// state visible.
func (s *Service) Process(ctx context.Context, ev domain.CalculationEvent) (Result, error) {
	done, err := s.processed.IsProcessed(ctx, ev.EventID)
	if err != nil {
		return Result{}, fmt.Errorf("check processed: %w", err)
	}
	if done {
		s.log.InfoContext(ctx, "duplicate event skipped", slog.String("event_id", ev.EventID))
		return Result{Action: ActionDuplicateSkipped}, nil
	}

	accountID, enterpriseNumber, err := s.refdata.Enrich(ctx, ev.AccountID, ev.EnterpriseNumber)
	if err != nil {
		return Result{}, fmt.Errorf("enrich identifiers: %w", err)
	}
	ev.AccountID = accountID
	ev.EnterpriseNumber = enterpriseNumber

	var result Result
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		result, txErr = s.apply(txCtx, ev)
		return txErr
	})
	if err != nil {
		return Result{}, err
	}

	s.log.InfoContext(ctx, "event processed",
		slog.String("event_id", ev.EventID),
		slog.String("action", string(result.Action)),
		slog.String("nba_id", result.NbaID),
	)
	return result, nil
}

func (s *Service) apply(ctx context.Context, ev domain.CalculationEvent) (Result, error) {
	// Deactivation-by-ids always runs before creation, so one event can
	// retire old recommendations and create a new one.
	if len(ev.DeactivateNbaIDs) > 0 {
		count, err := s.nbas.DeactivateByIDs(ctx, ev.DeactivateNbaIDs)
		if err != nil {
			return Result{}, fmt.Errorf("deactivate by ids: %w", err)
		}
		s.log.InfoContext(ctx, "nbas deactivated by ids",
			slog.String("event_id", ev.EventID),
			slog.Int("requested", len(ev.DeactivateNbaIDs)),
			slog.Int("deactivated", count),
		)
	}

	if !ev.CreateNba {
		if err := s.processed.MarkProcessed(ctx, ev.EventID); err != nil {
			return Result{}, fmt.Errorf("mark processed: %w", err)
		}
		return Result{Action: ActionDeactivatedOnly}, nil
	}

	nba, err := s.nbas.UpsertFromEvent(ctx, ev.EventID, ev.Scope(), ev.Context)
	if err != nil {
		return Result{}, fmt.Errorf("upsert nba: %w", err)
	}

	// Supersession runs strictly after the upsert so the new record is
	// never retired by its own scope match.
	superseded, err := s.nbas.DeactivateOtherActiveNewForScope(ctx, nba.ID, nba.Scope())
	if err != nil {
		return Result{}, fmt.Errorf("supersede scope: %w", err)
	}
	if superseded > 0 {
		s.log.InfoContext(ctx, "scope superseded",
			slog.String("event_id", ev.EventID),
			slog.String("keep_nba_id", nba.ID),
			slog.Int("deactivated", superseded),
		)
	}

	_, err = s.events.Add(ctx, domain.NbaEventLogRecord{
		ID:     domain.NewEventLogID(),
		NbaID:  nba.ID,
		Status: domain.StatusNew,
		Context: map[string]any{
			"source":      ev.Source,
			"occurred_at": ev.OccurredAt,
		},
		ActionAt: domain.UTCNow(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("append event log: %w", err)
	}

	if err := s.processed.MarkProcessed(ctx, ev.EventID); err != nil {
		return Result{}, fmt.Errorf("mark processed: %w", err)
	}

	return Result{Action: ActionCreated, NbaID: nba.ID}, nil
}
