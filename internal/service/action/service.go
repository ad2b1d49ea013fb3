// Package action implements the state-transition path triggered by human
// decisions: accepting or rejecting a recommendation.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/nba-backend/internal/domain"
)

type nbaStore interface {
	Get(ctx context.Context, id string) (*domain.NbaRecord, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.NbaRecord, error)
}

type eventLogStore interface {
	Add(ctx context.Context, rec domain.NbaEventLogRecord) (domain.NbaEventLogRecord, error)
	FindActionEvent(ctx context.Context, nbaID string, status domain.Status) (domain.NbaEventLogRecord, error)
}

type accessPolicy interface {
	AssertNbaAccess(ctx context.Context, user domain.UserContext, accountID, enterpriseNumber *string) error
}

// Service registers operator decisions against recommendations.
type Service struct {
	nbas   nbaStore
	events eventLogStore
	access accessPolicy
	log    *slog.Logger
}

// NewService creates the action service.
func NewService(log *slog.Logger, nbas nbaStore, events eventLogStore, access accessPolicy) *Service {
	return &Service{
		nbas:   nbas,
		events: events,
		access: access,
		log:    log.With("service", "action"),
	}
}

// Register applies an accept/reject decision.
//
// Resubmitting the decision an NBA already carries returns the original
// log entry unchanged. A decision that contradicts a terminal status
// fails with domain.ErrConflict — there is no un-accept or un-reject.
func (s *Service) Register(ctx context.Context, user domain.UserContext, in Input) (domain.NbaEventLogRecord, error) {
	if err := in.Validate(); err != nil {
		return domain.NbaEventLogRecord{}, err
	}

	nba, err := s.nbas.Get(ctx, in.NbaID)
	if err != nil {
		return domain.NbaEventLogRecord{}, err
	}

	if err := s.access.AssertNbaAccess(ctx, user, nba.AccountID, nba.EnterpriseNumber); err != nil {
		return domain.NbaEventLogRecord{}, err
	}

	if nba.Status.IsTerminal() {
		return s.resolveTerminal(ctx, nba, in)
	}

	actionAt := domain.UTCNow()
	if in.ActionAt != nil {
		actionAt = in.ActionAt.UTC()
	}

	if _, err := s.nbas.UpdateStatus(ctx, in.NbaID, in.Status); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// A concurrent decision won the conditional update between our
			// read and this write. Re-read and resolve as if the record had
			// been terminal on entry.
			current, getErr := s.nbas.Get(ctx, in.NbaID)
			if getErr != nil {
				return domain.NbaEventLogRecord{}, getErr
			}
			return s.resolveTerminal(ctx, current, in)
		}
		return domain.NbaEventLogRecord{}, fmt.Errorf("update status: %w", err)
	}

	entryContext := map[string]any{}
	if in.Comment != nil && *in.Comment != "" {
		entryContext["comment"] = *in.Comment
	}

	entry, err := s.events.Add(ctx, domain.NbaEventLogRecord{
		ID:       domain.NewEventLogID(),
		NbaID:    in.NbaID,
		Status:   in.Status,
		Context:  entryContext,
		ActedBy:  &user.Username,
		ActionAt: actionAt,
	})
	if err != nil {
		return domain.NbaEventLogRecord{}, fmt.Errorf("append event log: %w", err)
	}

	s.log.InfoContext(ctx, "action registered",
		slog.String("nba_id", in.NbaID),
		slog.String("status", in.Status.String()),
		slog.String("acted_by", user.Username),
		slog.String("event_id", entry.ID),
	)
	return entry, nil
}

// resolveTerminal handles a decision against a record that already
// carries a terminal status: resubmitting the same decision resolves to
// the original log entry, a contradicting one is a conflict.
func (s *Service) resolveTerminal(ctx context.Context, nba *domain.NbaRecord, in Input) (domain.NbaEventLogRecord, error) {
	if nba.Status == in.Status {
		existing, err := s.events.FindActionEvent(ctx, in.NbaID, in.Status)
		if err == nil {
			s.log.InfoContext(ctx, "idempotent action resubmission",
				slog.String("nba_id", in.NbaID),
				slog.String("status", in.Status.String()),
				slog.String("event_id", existing.ID),
			)
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.NbaEventLogRecord{}, fmt.Errorf("find action event: %w", err)
		}
		// Terminal status without a matching log entry means the record
		// was mutated out-of-band. Treated as a conflict below rather
		// than inventing a synthetic entry.
	}
	return domain.NbaEventLogRecord{}, fmt.Errorf(
		"nba %s is already %s: %w", in.NbaID, nba.Status, domain.ErrConflict)
}
