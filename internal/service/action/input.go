package action

import (
	"time"

	"github.com/heartmarshall/nba-backend/internal/domain"
)

// Input holds the parameters of one operator decision. ActionAt defaults
// to now (UTC) when nil; a supplied timestamp is normalized to UTC.
type Input struct {
	NbaID    string
	Status   domain.Status
	ActionAt *time.Time
	Comment  *string
}

// Validate checks all fields and collects all errors.
func (i Input) Validate() error {
	var errs []domain.FieldError

	if i.NbaID == "" {
		errs = append(errs, domain.FieldError{Field: "nba_id", Message: "required"})
	}
	if !i.Status.IsAction() {
		errs = append(errs, domain.FieldError{Field: "status", Message: "must be accepted or rejected"})
	}
	if i.Comment != nil && len(*i.Comment) > 1000 {
		errs = append(errs, domain.FieldError{Field: "comment", Message: "max 1000 characters"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
