package domain

import (
	"time"

	"github.com/google/uuid"
)

// CalculationEvent is an externally-produced instruction to create and/or
// deactivate NBAs. Events are delivered at-least-once; EventID is the
// idempotency key.
type CalculationEvent struct {
	EventID          string
	OccurredAt       time.Time
	Source           string
	NbaDefinitionID  string
	EnterpriseNumber *string
	AccountID        *string
	ContactID        *string
	CreateNba        bool
	DeactivateNbaIDs []string
	Context          map[string]any
}

// Scope returns the scope tuple the event targets.
func (e *CalculationEvent) Scope() Scope {
	return Scope{
		NbaDefinitionID:  e.NbaDefinitionID,
		EnterpriseNumber: e.EnterpriseNumber,
		AccountID:        e.AccountID,
		ContactID:        e.ContactID,
	}
}

// Validate checks the mandatory fields the transport boundary must enforce
// before an event is enqueued. Optional fields are defaulted, never errors.
func (e *CalculationEvent) Validate() error {
	var errs []FieldError

	if _, err := uuid.Parse(e.EventID); err != nil {
		errs = append(errs, FieldError{Field: "event_id", Message: "must be a UUID"})
	}
	if e.OccurredAt.IsZero() {
		errs = append(errs, FieldError{Field: "occurred_at", Message: "required"})
	}
	if e.Source == "" {
		errs = append(errs, FieldError{Field: "source", Message: "required"})
	}
	if e.NbaDefinitionID == "" {
		errs = append(errs, FieldError{Field: "nba_definition_id", Message: "required"})
	}
	if !e.Scope().HasTarget() {
		errs = append(errs, FieldError{
			Field:   "target",
			Message: "at least one of enterprise_number, account_id, contact_id is required",
		})
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
