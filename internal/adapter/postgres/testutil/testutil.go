// Package testutil provides pgxmock helpers for repository tests.
package testutil

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	postgres "github.com/heartmarshall/nba-backend/internal/adapter/postgres"
)

// NewMockQuerier returns a mocked pool usable wherever a postgres.Querier
// is expected, plus the mock handle for setting expectations.
func NewMockQuerier(t *testing.T) (postgres.Querier, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create pgx mock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, mock
}

// ExpectationsWereMet fails the test if any declared expectation was not
// satisfied.
func ExpectationsWereMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgx expectations: %v", err)
	}
}
