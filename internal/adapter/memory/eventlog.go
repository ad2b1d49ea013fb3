package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/heartmarshall/nba-backend/internal/domain"
)

// EventLogStore is the append-only in-memory audit trail. Entries keep
// insertion order and are never mutated after Add.
type EventLogStore struct {
	mu      sync.RWMutex
	entries []domain.NbaEventLogRecord
}

// NewEventLogStore creates an empty event log.
func NewEventLogStore() *EventLogStore {
	return &EventLogStore{}
}

// Add appends an entry and returns it.
func (s *EventLogStore) Add(ctx context.Context, rec domain.NbaEventLogRecord) (domain.NbaEventLogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Context = maps.Clone(rec.Context)
	s.entries = append(s.entries, rec)
	return copyEntry(rec), nil
}

// ListForNba returns all entries for one NBA in insertion order.
func (s *EventLogStore) ListForNba(ctx context.Context, nbaID string) ([]domain.NbaEventLogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.NbaEventLogRecord
	for _, rec := range s.entries {
		if rec.NbaID == nbaID {
			out = append(out, copyEntry(rec))
		}
	}
	return out, nil
}

// FindActionEvent returns the first human-originated entry for the NBA
// with the given status, or domain.ErrNotFound. System-generated creation
// entries (acted_by null) never match.
func (s *EventLogStore) FindActionEvent(ctx context.Context, nbaID string, status domain.Status) (domain.NbaEventLogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.entries {
		if rec.NbaID == nbaID && rec.Status == status && rec.IsHumanAction() {
			return copyEntry(rec), nil
		}
	}
	return domain.NbaEventLogRecord{}, fmt.Errorf("action event for nba %s status %s: %w", nbaID, status, domain.ErrNotFound)
}

func copyEntry(rec domain.NbaEventLogRecord) domain.NbaEventLogRecord {
	rec.Context = maps.Clone(rec.Context)
	return rec
}
