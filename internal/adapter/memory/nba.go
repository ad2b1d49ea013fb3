// Package memory implements the NBA stores with mutex-guarded in-process
// state. It is the reference storage backend; the postgres adapter offers
// the same contract durably.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/heartmarshall/nba-backend/internal/domain"
)

// NbaStore holds recommendation state keyed by generated id. All mutations
// run under one exclusive critical section so read-modify-write sequences
// are atomic with respect to each other.
type NbaStore struct {
	mu         sync.RWMutex
	nbas       map[string]domain.NbaRecord
	eventToNba map[string]string
}

// NewNbaStore creates an empty store.
func NewNbaStore() *NbaStore {
	return &NbaStore{
		nbas:       make(map[string]domain.NbaRecord),
		eventToNba: make(map[string]string),
	}
}

// List returns active records matching the filter, sorted by created_at
// descending, plus the total size of the filtered set.
func (s *NbaStore) List(ctx context.Context, filter domain.NbaFilter) ([]*domain.NbaRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter.Normalize()

	var matched []domain.NbaRecord
	for _, rec := range s.nbas {
		if rec.Active && filter.Matches(&rec) {
			matched = append(matched, rec)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		// Tie-break on id so pagination is stable.
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)

	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}

	page := make([]*domain.NbaRecord, 0, end-start)
	for i := start; i < end; i++ {
		page = append(page, copyRecord(matched[i]))
	}
	return page, total, nil
}

// Get returns a record by id, or domain.ErrNotFound.
func (s *NbaStore) Get(ctx context.Context, id string) (*domain.NbaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.nbas[id]
	if !ok {
		return nil, fmt.Errorf("nba %s: %w", id, domain.ErrNotFound)
	}
	return copyRecord(rec), nil
}

// UpsertFromEvent creates a recommendation for a calculation event,
// idempotent on the event id: the first call creates the record and pins
// the event→nba association forever, subsequent calls return the existing
// record unchanged.
func (s *NbaStore) UpsertFromEvent(ctx context.Context, eventID string, scope domain.Scope, eventContext map[string]any) (*domain.NbaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nbaID, ok := s.eventToNba[eventID]; ok {
		rec, ok := s.nbas[nbaID]
		if !ok {
			return nil, fmt.Errorf("nba %s for event %s: %w", nbaID, eventID, domain.ErrNotFound)
		}
		return copyRecord(rec), nil
	}

	now := domain.UTCNow()
	rec := domain.NbaRecord{
		ID:               domain.NewNbaID(),
		NbaDefinitionID:  scope.NbaDefinitionID,
		EnterpriseNumber: scope.EnterpriseNumber,
		AccountID:        scope.AccountID,
		ContactID:        scope.ContactID,
		Active:           true,
		Status:           domain.StatusNew,
		Context:          maps.Clone(eventContext),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.nbas[rec.ID] = rec
	s.eventToNba[eventID] = rec.ID

	return copyRecord(rec), nil
}

// UpdateStatus transitions a record to the given status and refreshes
// updated_at. The transition only applies while the record is still
// "new": a record that already reached a terminal status is left
// untouched and ErrConflict is returned, so two racing decisions cannot
// both win.
func (s *NbaStore) UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.NbaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.nbas[id]
	if !ok {
		return nil, fmt.Errorf("nba %s: %w", id, domain.ErrNotFound)
	}
	if rec.Status.IsTerminal() {
		return nil, fmt.Errorf("nba %s is already %s: %w", id, rec.Status, domain.ErrConflict)
	}

	rec.Status = status
	rec.UpdatedAt = domain.UTCNow()
	s.nbas[id] = rec

	return copyRecord(rec), nil
}

// DeactivateOtherActiveNewForScope deactivates every other active "new"
// record in the exact same scope (nil identifiers match nil, not
// wildcard). Returns the number of records deactivated.
func (s *NbaStore) DeactivateOtherActiveNewForScope(ctx context.Context, keepID string, scope domain.Scope) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deactivated := 0
	for id, rec := range s.nbas {
		if id == keepID || !rec.Active || rec.Status != domain.StatusNew {
			continue
		}
		if !rec.Scope().Equal(scope) {
			continue
		}
		rec.Active = false
		rec.UpdatedAt = domain.UTCNow()
		s.nbas[id] = rec
		deactivated++
	}
	return deactivated, nil
}

// DeactivateByIDs deactivates each listed record that exists and is
// active. Missing or already-inactive ids are silently skipped.
func (s *NbaStore) DeactivateByIDs(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(ids))
	deactivated := 0
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		rec, ok := s.nbas[id]
		if !ok || !rec.Active {
			continue
		}
		rec.Active = false
		rec.UpdatedAt = domain.UTCNow()
		s.nbas[id] = rec
		deactivated++
	}
	return deactivated, nil
}

// copyRecord returns a defensive copy so callers never share mutable state
// with the store.
func copyRecord(rec domain.NbaRecord) *domain.NbaRecord {
	rec.Context = maps.Clone(rec.Context)
	return &rec
}
