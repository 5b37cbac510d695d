package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/pkg/dbutil"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
)

const (
	DocumentStateActive      = 1
	DocumentStateSoftDeleted = 2
)

var documentFields = []string{
	"id", "owner_id", "title", "content_type", "meta",
	"page_count", "version", "state", "ctime", "mtime",
}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	meta, err := encodeMeta(doc)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":           doc.ID,
		"owner_id":     doc.OwnerID,
		"title":        doc.Title,
		"content_type": string(doc.ContentType),
		"meta":         meta,
		"page_count":   doc.PageCount,
		"version":      doc.Version,
		"state":        doc.State,
		"ctime":        doc.Ctime,
		"mtime":        doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

// GetActive returns the document regardless of owner; soft-deleted
// documents are invisible to every caller, including share links that still
// point at them.
func (r *DocumentRepo) GetActive(ctx context.Context, docID string) (*model.Document, error) {
	return r.getOne(ctx, map[string]interface{}{"id": docID, "state": DocumentStateActive})
}

func (r *DocumentRepo) GetByOwner(ctx context.Context, ownerID, docID string) (*model.Document, error) {
	return r.getOne(ctx, map[string]interface{}{"id": docID, "owner_id": ownerID, "state": DocumentStateActive})
}

func (r *DocumentRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Document, error) {
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
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
	return scanDocument(rows)
}

// BumpVersion moves the document to a new conversion version and registers
// the regenerated pages in the same transaction, so a failed insert never
// leaves the document pointing at a version with no pages. Cache keys at
// the old version simply become unreachable. buildPages receives the
// committed version and returns the page rows to insert under it.
func (r *DocumentRepo) BumpVersion(ctx context.Context, ownerID, docID string, pageCount int, mtime int64, buildPages func(version int64) []*model.Page) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	sqlStr := `UPDATE documents SET version = version + 1, page_count = ?, mtime = ?
		WHERE id = ? AND owner_id = ? AND state = ? RETURNING version`
	args := []interface{}{pageCount, mtime, docID, ownerID, DocumentStateActive}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var version int64
	if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&version); err != nil {
		if err == sql.ErrNoRows {
			return 0, appErr.ErrNotFound
		}
		return 0, err
	}
	if err := insertPages(ctx, tx, buildPages(version)); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return version, nil
}

func (r *DocumentRepo) SoftDelete(ctx context.Context, ownerID, docID string, mtime int64) error {
	where := map[string]interface{}{"id": docID, "owner_id": ownerID, "state": DocumentStateActive}
	update := map[string]interface{}{"state": DocumentStateSoftDeleted, "mtime": mtime}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func encodeMeta(doc *model.Document) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}
	raw, err := json.Marshal(doc.Meta)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func scanDocument(rows *sql.Rows) (*model.Document, error) {
	var doc model.Document
	var contentType, meta string
	if err := rows.Scan(
		&doc.ID, &doc.OwnerID, &doc.Title, &contentType, &meta,
		&doc.PageCount, &doc.Version, &doc.State, &doc.Ctime, &doc.Mtime,
	); err != nil {
		return nil, err
	}
	doc.ContentType = model.ContentType(contentType)
	if err := json.Unmarshal([]byte(meta), &doc.Meta); err != nil {
		return nil, fmt.Errorf("decode document meta: %w", err)
	}
	return &doc, nil
}
