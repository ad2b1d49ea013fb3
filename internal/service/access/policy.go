// Package access holds the pluggable access-policy hook. The shipped
// policy is a deliberate pass-through: header-derived restrictions are
// disabled, but every query and action path already routes through the
// hook so a real policy can be dropped in without touching the services.
package access

import (
	"context"

	"github.com/heartmarshall/nba-backend/internal/domain"
)

// Policy decides whether a caller may query a scope or act on an NBA.
// Implementations fail with domain.ErrForbidden (or a wrapper of it).
type Policy interface {
	AssertQueryAccess(ctx context.Context, user domain.UserContext, accountID, enterpriseNumber *string) error
	AssertNbaAccess(ctx context.Context, user domain.UserContext, accountID, enterpriseNumber *string) error
}

// AllowAll is the current no-op policy.
type AllowAll struct{}

// NewAllowAll creates the pass-through policy.
func NewAllowAll() AllowAll { return AllowAll{} }

func (AllowAll) AssertQueryAccess(ctx context.Context, user domain.UserContext, accountID, enterpriseNumber *string) error {
	return nil
}

func (AllowAll) AssertNbaAccess(ctx context.Context, user domain.UserContext, accountID, enterpriseNumber *string) error {
	return nil
}
