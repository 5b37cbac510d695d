package job

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/sealdoc/sealdoc/internal/blobstore"
	"github.com/sealdoc/sealdoc/internal/pagecache"
	"github.com/sealdoc/sealdoc/internal/repo"
)

type blobDeleteStub struct {
	err     error
	deletes int
}

func (s *blobDeleteStub) Get(ctx context.Context, key string) (*blobstore.Object, error) {
	return nil, errors.New("not implemented")
}

func (s *blobDeleteStub) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	return errors.New("not implemented")
}

func (s *blobDeleteStub) Delete(ctx context.Context, key string) error {
	s.deletes++
	return s.err
}

func (s *blobDeleteStub) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

func stalePageRows(n int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"document_id", "page_number", "version", "storage_path", "mime_type", "file_size",
	})
	for i := 0; i < n; i++ {
		rows.AddRow("doc-1", i+1, int64(1), "pages/doc-1/v1", "image/png", int64(100))
	}
	return rows
}

func TestPageCleanupRun_RemovesStalePages(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT p\.document_id`).WillReturnRows(stalePageRows(2))
	mock.ExpectExec(`DELETE FROM pages`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM pages`).WillReturnResult(sqlmock.NewResult(0, 1))

	blobs := &blobDeleteStub{}
	cleanup := NewPageCleanupJob(repo.NewPageRepo(db), blobs, pagecache.New(4, time.Minute))
	require.NoError(t, cleanup.Run(context.Background()))
	require.Equal(t, 2, blobs.deletes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPageCleanupRun_StopsWhenNoProgress(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// A full batch where every blob delete fails would be listed again
	// unchanged; the run must stop after one pass instead of spinning on
	// the failing store.
	mock.ExpectQuery(`SELECT p\.document_id`).WillReturnRows(stalePageRows(200))

	blobs := &blobDeleteStub{err: errors.New("blob store down")}
	cleanup := NewPageCleanupJob(repo.NewPageRepo(db), blobs, pagecache.New(4, time.Minute))
	require.NoError(t, cleanup.Run(context.Background()))
	require.Equal(t, 200, blobs.deletes)
	require.NoError(t, mock.ExpectationsWereMet())
}
