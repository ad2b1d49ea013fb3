package processed

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/heartmarshall/nba-backend/internal/adapter/postgres/testutil"
)

const eventID = "3f1c9c0e-54c1-4b36-a917-40f9da923c6f"

func TestRepo_IsProcessed(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
	}{
		{name: "seen event", exists: true},
		{name: "new event", exists: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			querier, mock := testutil.NewMockQuerier(t)
			repo := New(querier)

			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs(eventID).
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			got, err := repo.IsProcessed(context.Background(), eventID)
			if err != nil {
				t.Fatalf("IsProcessed() error = %v", err)
			}
			if got != tt.exists {
				t.Errorf("IsProcessed() = %v, want %v", got, tt.exists)
			}

			testutil.ExpectationsWereMet(t, mock)
		})
	}
}

func TestRepo_MarkProcessed(t *testing.T) {
	t.Run("records the event", func(t *testing.T) {
		querier, mock := testutil.NewMockQuerier(t)
		repo := New(querier)

		mock.ExpectExec(`INSERT INTO processed_events`).
			WithArgs(eventID, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		if err := repo.MarkProcessed(context.Background(), eventID); err != nil {
			t.Fatalf("MarkProcessed() error = %v", err)
		}

		testutil.ExpectationsWereMet(t, mock)
	})

	t.Run("redelivery is a no-op", func(t *testing.T) {
		querier, mock := testutil.NewMockQuerier(t)
		repo := New(querier)

		mock.ExpectExec(`INSERT INTO processed_events`).
			WithArgs(eventID, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		if err := repo.MarkProcessed(context.Background(), eventID); err != nil {
			t.Fatalf("MarkProcessed() error = %v", err)
		}

		testutil.ExpectationsWereMet(t, mock)
	})
}
