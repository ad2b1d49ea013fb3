package memory

import (
	"context"
	"sync"
)

// ProcessedLedger records which event ids have already been applied.
// Membership only; marking is irreversible. The set has no eviction —
// retention policy is an open question inherited from the reference
// design.
type ProcessedLedger struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewProcessedLedger creates an empty ledger.
func NewProcessedLedger() *ProcessedLedger {
	return &ProcessedLedger{ids: make(map[string]struct{})}
}

// IsProcessed reports whether the event id was already applied.
func (l *ProcessedLedger) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[eventID]
	return ok, nil
}

// MarkProcessed records the event id. Idempotent.
func (l *ProcessedLedger) MarkProcessed(ctx context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids[eventID] = struct{}{}
	return nil
}
