package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/pkg/dbutil"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
)

var pageFields = []string{
	"document_id", "page_number", "version", "storage_path", "mime_type", "file_size",
}

type PageRepo struct {
	db *sql.DB
}

func NewPageRepo(db *sql.DB) *PageRepo {
	return &PageRepo{db: db}
}

func (r *PageRepo) CreateBatch(ctx context.Context, pages []*model.Page) error {
	return insertPages(ctx, r.db, pages)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertPages(ctx context.Context, db execer, pages []*model.Page) error {
	if len(pages) == 0 {
		return nil
	}
	data := make([]map[string]interface{}, 0, len(pages))
	for _, page := range pages {
		data = append(data, map[string]interface{}{
			"document_id":  page.DocumentID,
			"page_number":  page.PageNumber,
			"version":      page.Version,
			"storage_path": page.StoragePath,
			"mime_type":    page.MimeType,
			"file_size":    page.FileSize,
		})
	}
	sqlStr, args, err := builder.BuildInsert("pages", data)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *PageRepo) Get(ctx context.Context, docID string, pageNumber int, version int64) (*model.Page, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"page_number": pageNumber,
		"version":     version,
	}
	sqlStr, args, err := builder.BuildSelect("pages", where, pageFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var page model.Page
	if err := rows.Scan(&page.DocumentID, &page.PageNumber, &page.Version,
		&page.StoragePath, &page.MimeType, &page.FileSize); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListSuperseded returns pages whose version is older than their document's
// current one. The cleanup job reclaims their storage.
func (r *PageRepo) ListSuperseded(ctx context.Context, limit int) ([]*model.Page, error) {
	sqlStr := `
		SELECT p.document_id, p.page_number, p.version, p.storage_path, p.mime_type, p.file_size
		FROM pages p
		JOIN documents d ON d.id = p.document_id
		WHERE p.version < d.version
		LIMIT ?
	`
	args := []interface{}{limit}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*model.Page, 0)
	for rows.Next() {
		var page model.Page
		if err := rows.Scan(&page.DocumentID, &page.PageNumber, &page.Version,
			&page.StoragePath, &page.MimeType, &page.FileSize); err != nil {
			return nil, err
		}
		items = append(items, &page)
	}
	return items, rows.Err()
}

func (r *PageRepo) Delete(ctx context.Context, docID string, pageNumber int, version int64) error {
	where := map[string]interface{}{
		"document_id": docID,
		"page_number": pageNumber,
		"version":     version,
	}
	sqlStr, args, err := builder.BuildDelete("pages", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
