// Package domain holds the core entities and invariants of the NBA
// (Next Best Action) lifecycle: recommendations, their event log, and the
// calculation events that drive them.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a recommendation.
type Status string

const (
	StatusNew      Status = "new"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further status transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// IsAction reports whether the status is a valid human decision.
// Only new→accepted and new→rejected transitions exist.
func (s Status) IsAction() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Scope identifies "what recommendation, for whom". Two scopes are equal
// only on an exact match of all four parts; a nil identifier matches nil,
// never a wildcard.
type Scope struct {
	NbaDefinitionID  string
	EnterpriseNumber *string
	AccountID        *string
	ContactID        *string
}

// HasTarget reports whether at least one client identifier is set.
func (s Scope) HasTarget() bool {
	return s.EnterpriseNumber != nil || s.AccountID != nil || s.ContactID != nil
}

func (s Scope) Equal(other Scope) bool {
	return s.NbaDefinitionID == other.NbaDefinitionID &&
		ptrEqual(s.EnterpriseNumber, other.EnterpriseNumber) &&
		ptrEqual(s.AccountID, other.AccountID) &&
		ptrEqual(s.ContactID, other.ContactID)
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// NbaRecord is one recommendation instance surfaced to operators.
//
// Invariants:
//   - status transitions only new→accepted or new→rejected;
//   - at most one active record with status=new exists per scope,
//     enforced by supersession on creation;
//   - records are never deleted, only soft-deactivated (active=false).
type NbaRecord struct {
	ID               string
	NbaDefinitionID  string
	EnterpriseNumber *string
	AccountID        *string
	ContactID        *string
	Active           bool
	Status           Status
	Priority         int
	Context          map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Scope returns the scope tuple of the record.
func (n *NbaRecord) Scope() Scope {
	return Scope{
		NbaDefinitionID:  n.NbaDefinitionID,
		EnterpriseNumber: n.EnterpriseNumber,
		AccountID:        n.AccountID,
		ContactID:        n.ContactID,
	}
}

// UTCNow returns the current time in UTC. All timestamps in the system
// are stored UTC.
func UTCNow() time.Time {
	return time.Now().UTC()
}

// NewNbaID generates an identifier of the form "nba_<10 hex chars>".
func NewNbaID() string {
	return "nba_" + shortHex()
}

// NewEventLogID generates an identifier of the form "evt_<10 hex chars>".
func NewEventLogID() string {
	return "evt_" + shortHex()
}

func shortHex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
}
