package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"consultations/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		mock        func(mock sqlmock.Sqlmock)
		wantCreated bool
		wantErr     bool
	}{
		{
			name: "inserted",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`(?s)INSERT INTO notifications .+ ON CONFLICT \(recipient_id, event_id, category\) DO NOTHING`).
					WithArgs("stu-1", "evt-1", "hello", "status_change", false, now).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("n-1"))
			},
			wantCreated: true,
		},
		{
			name: "duplicate for the same event",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO notifications`).
					WillReturnError(sql.ErrNoRows)
			},
			wantCreated: false,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO notifications`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			n := &domain.Notification{
				RecipientID: "stu-1",
				EventID:     "evt-1",
				Message:     "hello",
				Category:    domain.CategoryStatusChange,
				CreatedAt:   now,
			}
			created, err := NewNotificationRepository(db).Create(ctx, n)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.wantCreated, created)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNotificationRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE recipient_id = \$1$`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WithArgs("stu-1", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipient_id", "event_id", "message", "category", "seen", "created_at"}).
			AddRow("n-2", "stu-1", nil, "b", "slot_update", false, now).
			AddRow("n-1", "stu-1", "evt-1", "a", "confirmation", true, now.Add(-time.Hour)))
	mock.ExpectQuery(`AND NOT seen`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	repo := NewNotificationRepository(db)
	page, err := repo.ListByRecipient(ctx, "stu-1", domain.PaginationParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Equal(t, "", page.Items[0].EventID)
	require.Equal(t, domain.CategoryConfirmation, page.Items[1].Category)

	unseen, err := repo.CountUnseen(ctx, "stu-1")
	require.NoError(t, err)
	require.Equal(t, 1, unseen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_MarkSeen(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE notifications SET seen = TRUE WHERE id = \$1`).
		WithArgs("n-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewNotificationRepository(db).MarkSeen(context.Background(), "n-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
