// Package query implements the read path over the NBA store.
package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/nba-backend/internal/domain"
)

type nbaStore interface {
	List(ctx context.Context, filter domain.NbaFilter) ([]*domain.NbaRecord, int, error)
}

type accessPolicy interface {
	AssertQueryAccess(ctx context.Context, user domain.UserContext, accountID, enterpriseNumber *string) error
}

// Service serves scoped recommendation listings.
type Service struct {
	nbas   nbaStore
	access accessPolicy
	log    *slog.Logger
}

// NewService creates the query service.
func NewService(log *slog.Logger, nbas nbaStore, access accessPolicy) *Service {
	return &Service{
		nbas:   nbas,
		access: access,
		log:    log.With("service", "query"),
	}
}

// ListForUser enforces the access policy, normalizes pagination, and
// returns the matching page plus the total count of the filtered set.
func (s *Service) ListForUser(ctx context.Context, user domain.UserContext, filter domain.NbaFilter) ([]*domain.NbaRecord, int, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, domain.NewValidationError("status", "invalid status filter")
	}

	if err := s.access.AssertQueryAccess(ctx, user, filter.AccountID, filter.EnterpriseNumber); err != nil {
		return nil, 0, err
	}

	filter.Normalize()

	items, total, err := s.nbas.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list nbas: %w", err)
	}

	s.log.InfoContext(ctx, "nbas listed",
		slog.String("user", user.Username),
		slog.Int("total", total),
		slog.Int("page", len(items)),
	)
	return items, total, nil
}
