package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/pkg/dbutil"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
)

var viewRecordFields = []string{
	"id", "document_id", "share_key", "viewer_email", "ip_address",
	"user_agent", "country", "viewed_at",
}

type AnalyticsRepo struct {
	db *sql.DB
}

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

// RecordView increments the share link's view counter and appends the view
// record in one transaction. The increment is conditioned on the cap inside
// the UPDATE itself, so concurrent sessions against a capped link cannot
// overshoot it.
func (r *AnalyticsRepo) RecordView(ctx context.Context, record *model.ViewRecord, mtime int64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	sqlStr := `UPDATE share_links SET view_count = view_count + 1, mtime = ?
		WHERE share_key = ? AND state = ? AND (max_views = 0 OR view_count < max_views)
		RETURNING view_count`
	args := []interface{}{mtime, record.ShareKey, ShareStateActive}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var viewCount int
	if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&viewCount); err != nil {
		if err == sql.ErrNoRows {
			return 0, r.classifyDenied(ctx, tx, record.ShareKey)
		}
		return 0, err
	}

	data := map[string]interface{}{
		"id":           record.ID,
		"document_id":  record.DocumentID,
		"share_key":    record.ShareKey,
		"viewer_email": record.ViewerEmail,
		"ip_address":   record.IPAddress,
		"user_agent":   record.UserAgent,
		"country":      record.Country,
		"viewed_at":    record.ViewedAt,
	}
	insStr, insArgs, err := builder.BuildInsert("view_analytics", []map[string]interface{}{data})
	if err != nil {
		return 0, err
	}
	insStr, insArgs = dbutil.Finalize(insStr, insArgs)
	if _, err := tx.ExecContext(ctx, insStr, insArgs...); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return viewCount, nil
}

// classifyDenied distinguishes why the conditional increment matched no row.
func (r *AnalyticsRepo) classifyDenied(ctx context.Context, tx *sql.Tx, shareKey string) error {
	sqlStr := `SELECT state, max_views, view_count FROM share_links WHERE share_key = ?`
	args := []interface{}{shareKey}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var state, maxViews, viewCount int
	if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&state, &maxViews, &viewCount); err != nil {
		if err == sql.ErrNoRows {
			return appErr.Denied(appErr.ReasonNotFound)
		}
		return err
	}
	if state != ShareStateActive {
		return appErr.Denied(appErr.ReasonDeactivated)
	}
	return appErr.Denied(appErr.ReasonExhausted)
}

func (r *AnalyticsRepo) ListByShareKey(ctx context.Context, shareKey string, limit, offset int) ([]*model.ViewRecord, error) {
	where := map[string]interface{}{
		"share_key": shareKey,
		"_orderby":  "viewed_at desc",
		"_limit":    []uint{uint(offset), uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("view_analytics", where, viewRecordFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*model.ViewRecord, 0)
	for rows.Next() {
		var record model.ViewRecord
		if err := rows.Scan(&record.ID, &record.DocumentID, &record.ShareKey,
			&record.ViewerEmail, &record.IPAddress, &record.UserAgent,
			&record.Country, &record.ViewedAt); err != nil {
			return nil, err
		}
		items = append(items, &record)
	}
	return items, rows.Err()
}
