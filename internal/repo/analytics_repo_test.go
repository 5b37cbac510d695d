package repo

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/sealdoc/sealdoc/internal/model"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
)

func testViewRecord() *model.ViewRecord {
	return &model.ViewRecord{
		ID:          "view-1",
		DocumentID:  "doc-1",
		ShareKey:    "key-1",
		ViewerEmail: "alice@example.com",
		IPAddress:   "203.0.113.9",
		UserAgent:   "test-agent",
		Country:     "",
		ViewedAt:    1_700_000_000,
	}
}

func TestRecordView_IncrementsAndInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE share_links SET view_count = view_count \+ 1`).
		WithArgs(int64(1_700_000_000), "key-1", ShareStateActive).
		WillReturnRows(sqlmock.NewRows([]string{"view_count"}).AddRow(4))
	mock.ExpectExec(`INSERT INTO view_analytics`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	repo := NewAnalyticsRepo(db)
	count, err := repo.RecordView(context.Background(), testViewRecord(), 1_700_000_000)
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordView_CapReached(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE share_links SET view_count = view_count \+ 1`).
		WillReturnRows(sqlmock.NewRows([]string{"view_count"}))
	mock.ExpectQuery(`SELECT state, max_views, view_count FROM share_links`).
		WithArgs("key-1").
		WillReturnRows(sqlmock.NewRows([]string{"state", "max_views", "view_count"}).
			AddRow(ShareStateActive, 5, 5))
	mock.ExpectRollback()

	repo := NewAnalyticsRepo(db)
	_, err = repo.RecordView(context.Background(), testViewRecord(), 1_700_000_000)
	reason, ok := appErr.DenialReason(err)
	require.True(t, ok)
	require.Equal(t, appErr.ReasonExhausted, reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordView_DeactivatedLink(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE share_links SET view_count = view_count \+ 1`).
		WillReturnRows(sqlmock.NewRows([]string{"view_count"}))
	mock.ExpectQuery(`SELECT state, max_views, view_count FROM share_links`).
		WillReturnRows(sqlmock.NewRows([]string{"state", "max_views", "view_count"}).
			AddRow(ShareStateDeactivated, 0, 3))
	mock.ExpectRollback()

	repo := NewAnalyticsRepo(db)
	_, err = repo.RecordView(context.Background(), testViewRecord(), 1_700_000_000)
	reason, ok := appErr.DenialReason(err)
	require.True(t, ok)
	require.Equal(t, appErr.ReasonDeactivated, reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordView_UnknownKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE share_links SET view_count = view_count \+ 1`).
		WillReturnRows(sqlmock.NewRows([]string{"view_count"}))
	mock.ExpectQuery(`SELECT state, max_views, view_count FROM share_links`).
		WillReturnRows(sqlmock.NewRows([]string{"state", "max_views", "view_count"}))
	mock.ExpectRollback()

	repo := NewAnalyticsRepo(db)
	_, err = repo.RecordView(context.Background(), testViewRecord(), 1_700_000_000)
	reason, ok := appErr.DenialReason(err)
	require.True(t, ok)
	require.Equal(t, appErr.ReasonNotFound, reason)
	require.NoError(t, mock.ExpectationsWereMet())
}
