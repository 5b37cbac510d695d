package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/pkg/dbutil"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
)

const (
	ShareStateActive      = 1
	ShareStateDeactivated = 2
)

var shareLinkFields = []string{
	"id", "owner_id", "document_id", "share_key", "password_hash",
	"expires_at", "max_views", "view_count", "restrict_to_email",
	"allow_download", "state", "ctime", "mtime",
}

type ShareLinkRepo struct {
	db *sql.DB
}

func NewShareLinkRepo(db *sql.DB) *ShareLinkRepo {
	return &ShareLinkRepo{db: db}
}

func (r *ShareLinkRepo) Create(ctx context.Context, link *model.ShareLink) error {
	data := map[string]interface{}{
		"id":                link.ID,
		"owner_id":          link.OwnerID,
		"document_id":       link.DocumentID,
		"share_key":         link.ShareKey,
		"password_hash":     link.PasswordHash,
		"expires_at":        link.ExpiresAt,
		"max_views":         link.MaxViews,
		"view_count":        link.ViewCount,
		"restrict_to_email": link.RestrictToEmail,
		"allow_download":    link.AllowDownload,
		"state":             link.State,
		"ctime":             link.Ctime,
		"mtime":             link.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("share_links", []map[string]interface{}{data})
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

func (r *ShareLinkRepo) GetByKey(ctx context.Context, shareKey string) (*model.ShareLink, error) {
	return r.getOne(ctx, map[string]interface{}{"share_key": shareKey})
}

func (r *ShareLinkRepo) GetActiveByDocument(ctx context.Context, ownerID, docID string) (*model.ShareLink, error) {
	return r.getOne(ctx, map[string]interface{}{
		"owner_id":    ownerID,
		"document_id": docID,
		"state":       ShareStateActive,
	})
}

func (r *ShareLinkRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.ShareLink, error) {
	sqlStr, args, err := builder.BuildSelect("share_links", where, shareLinkFields)
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
	var link model.ShareLink
	if err := scanShareLink(rows, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// Deactivate is terminal; the row is retained for the analytics that
// reference it.
func (r *ShareLinkRepo) Deactivate(ctx context.Context, ownerID, shareKey string, mtime int64) error {
	where := map[string]interface{}{"owner_id": ownerID, "share_key": shareKey, "state": ShareStateActive}
	update := map[string]interface{}{"state": ShareStateDeactivated, "mtime": mtime}
	sqlStr, args, err := builder.BuildUpdate("share_links", where, update)
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

func (r *ShareLinkRepo) DeactivateByDocument(ctx context.Context, ownerID, docID string, mtime int64) error {
	where := map[string]interface{}{"owner_id": ownerID, "document_id": docID, "state": ShareStateActive}
	update := map[string]interface{}{"state": ShareStateDeactivated, "mtime": mtime}
	sqlStr, args, err := builder.BuildUpdate("share_links", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ShareLinkRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.ShareLink, error) {
	where := map[string]interface{}{
		"owner_id": ownerID,
		"state":    ShareStateActive,
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("share_links", where, shareLinkFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*model.ShareLink, 0)
	for rows.Next() {
		var link model.ShareLink
		if err := scanShareLink(rows, &link); err != nil {
			return nil, err
		}
		items = append(items, &link)
	}
	return items, rows.Err()
}

func scanShareLink(rows *sql.Rows, link *model.ShareLink) error {
	return rows.Scan(
		&link.ID, &link.OwnerID, &link.DocumentID, &link.ShareKey,
		&link.PasswordHash, &link.ExpiresAt, &link.MaxViews, &link.ViewCount,
		&link.RestrictToEmail, &link.AllowDownload, &link.State,
		&link.Ctime, &link.Mtime,
	)
}
