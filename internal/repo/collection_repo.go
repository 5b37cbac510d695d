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
	CollectionItemStateActive  = 1
	CollectionItemStateRemoved = 2
)

type CollectionRepo struct {
	db *sql.DB
}

func NewCollectionRepo(db *sql.DB) *CollectionRepo {
	return &CollectionRepo{db: db}
}

func (r *CollectionRepo) Create(ctx context.Context, item *model.CollectionItem) error {
	data := map[string]interface{}{
		"id":          item.ID,
		"owner_id":    item.OwnerID,
		"document_id": item.DocumentID,
		"state":       item.State,
		"ctime":       item.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("collection_items", []map[string]interface{}{data})
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

func (r *CollectionRepo) Get(ctx context.Context, itemID string) (*model.CollectionItem, error) {
	where := map[string]interface{}{"id": itemID, "state": CollectionItemStateActive}
	sqlStr, args, err := builder.BuildSelect("collection_items", where,
		[]string{"id", "owner_id", "document_id", "state", "ctime"})
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
	var item model.CollectionItem
	if err := rows.Scan(&item.ID, &item.OwnerID, &item.DocumentID, &item.State, &item.Ctime); err != nil {
		return nil, err
	}
	return &item, nil
}
