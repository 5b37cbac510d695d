package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/sealdoc/sealdoc/internal/model"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
)

func reconvertPages(docID string, version int64) []*model.Page {
	return []*model.Page{
		{DocumentID: docID, PageNumber: 1, Version: version, StoragePath: "pages/doc-1/v2/1"},
		{DocumentID: docID, PageNumber: 2, Version: version, StoragePath: "pages/doc-1/v2/2"},
	}
}

func TestBumpVersion_CommitsBumpAndPagesTogether(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE documents SET version = version \+ 1`).
		WithArgs(2, int64(1_700_000_000), "doc-1", "owner-1", DocumentStateActive).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(2)))
	mock.ExpectExec(`INSERT INTO pages`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	repo := NewDocumentRepo(db)
	version, err := repo.BumpVersion(context.Background(), "owner-1", "doc-1", 2, 1_700_000_000, func(version int64) []*model.Page {
		return reconvertPages("doc-1", version)
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBumpVersion_FailedInsertRollsBackBump(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE documents SET version = version \+ 1`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(2)))
	mock.ExpectExec(`INSERT INTO pages`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	repo := NewDocumentRepo(db)
	_, err = repo.BumpVersion(context.Background(), "owner-1", "doc-1", 2, 1_700_000_000, func(version int64) []*model.Page {
		return reconvertPages("doc-1", version)
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBumpVersion_UnknownDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE documents SET version = version \+ 1`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectRollback()

	repo := NewDocumentRepo(db)
	_, err = repo.BumpVersion(context.Background(), "owner-1", "missing", 2, 1_700_000_000, func(version int64) []*model.Page {
		return nil
	})
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
