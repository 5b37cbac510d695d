package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/sealdoc/sealdoc/internal/blobstore"
	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/pagecache"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
	"github.com/sealdoc/sealdoc/internal/recovery"
	"github.com/sealdoc/sealdoc/internal/watermark"
)

type DocumentGetter interface {
	GetActive(ctx context.Context, docID string) (*model.Document, error)
	GetByOwner(ctx context.Context, ownerID, docID string) (*model.Document, error)
}

type PageGetter interface {
	Get(ctx context.Context, docID string, pageNumber int, version int64) (*model.Page, error)
}

type CollectionGetter interface {
	Get(ctx context.Context, itemID string) (*model.CollectionItem, error)
}

// Authorization is the already-established caller identity: exactly one of
// the two fields is set. Share-link viewers carry the document their
// session was minted for; in-app viewers carry their owner id and are
// checked for membership.
type Authorization struct {
	SessionDocumentID string
	OwnerID           string
}

type DeliverRequest struct {
	// Exactly one of DocumentID / CollectionItemID identifies the target.
	DocumentID       string
	CollectionItemID string
	PageNumber       int
	Auth             Authorization
	ViewerIdentity   string
}

type Delivery struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// DeliveryService resolves a viewer request to one page, consults the page
// cache, fetches from blob storage on miss, and applies the per-viewer
// watermark. Signed storage URLs never leave this boundary.
type DeliveryService struct {
	docs      DocumentGetter
	pages     PageGetter
	items     CollectionGetter
	cache     *pagecache.Cache
	blobs     blobstore.Store
	recovery  *recovery.Coordinator
	watermark *watermark.Engine
	now       func() time.Time
}

func NewDeliveryService(docs DocumentGetter, pages PageGetter, items CollectionGetter,
	cache *pagecache.Cache, blobs blobstore.Store, coordinator *recovery.Coordinator,
	engine *watermark.Engine) *DeliveryService {
	return &DeliveryService{
		docs:      docs,
		pages:     pages,
		items:     items,
		cache:     cache,
		blobs:     blobs,
		recovery:  coordinator,
		watermark: engine,
		now:       time.Now,
	}
}

func (s *DeliveryService) Deliver(ctx context.Context, req DeliverRequest) (*Delivery, error) {
	docID, err := s.resolveDocumentID(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, req.Auth, docID); err != nil {
		return nil, err
	}
	doc, err := s.docs.GetActive(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !doc.Paged() {
		return nil, fmt.Errorf("%w: %s documents have no pages", appErr.ErrInvalid, doc.ContentType)
	}
	if req.PageNumber < 1 || req.PageNumber > doc.PageCount {
		return nil, fmt.Errorf("%w: page %d out of range 1..%d", appErr.ErrNotFound, req.PageNumber, doc.PageCount)
	}

	entry, err := s.cache.GetOrGenerate(ctx, doc.ID, req.PageNumber, doc.Version, s.generator(doc.ID, req.PageNumber, doc.Version))
	if err != nil {
		return nil, err
	}

	watermarked, err := s.watermark.Apply(entry.Data, entry.ContentType, req.ViewerIdentity, s.now())
	if err != nil {
		// A corrupt cached page gets one regeneration from source before
		// the failure is surfaced.
		logutil.GetLogger(ctx).Warn("cached page unusable, regenerating",
			zap.String("document", doc.ID),
			zap.Int("page", req.PageNumber),
			zap.Int64("version", doc.Version),
			zap.Error(err))
		s.cache.Invalidate(doc.ID, req.PageNumber, doc.Version)
		entry, err = s.cache.GetOrGenerate(ctx, doc.ID, req.PageNumber, doc.Version, s.generator(doc.ID, req.PageNumber, doc.Version))
		if err != nil {
			return nil, err
		}
		watermarked, err = s.watermark.Apply(entry.Data, entry.ContentType, req.ViewerIdentity, s.now())
		if err != nil {
			return nil, err
		}
	}

	return &Delivery{
		Data:        watermarked,
		ContentType: entry.ContentType,
		// Private: the watermark makes every response viewer-specific.
		CacheControl: "private, max-age=3600",
	}, nil
}

func (s *DeliveryService) resolveDocumentID(ctx context.Context, req DeliverRequest) (string, error) {
	if req.CollectionItemID != "" {
		item, err := s.items.Get(ctx, req.CollectionItemID)
		if err != nil {
			return "", err
		}
		return item.DocumentID, nil
	}
	if req.DocumentID == "" {
		return "", fmt.Errorf("%w: document identity is required", appErr.ErrInvalid)
	}
	return req.DocumentID, nil
}

// authorize pins the resolved document to the caller's authorization; an
// indirect identity may never drift to a different document than the one
// the viewer was authorized against.
func (s *DeliveryService) authorize(ctx context.Context, auth Authorization, docID string) error {
	switch {
	case auth.SessionDocumentID != "":
		if auth.SessionDocumentID != docID {
			return appErr.ErrForbidden
		}
		return nil
	case auth.OwnerID != "":
		if _, err := s.docs.GetByOwner(ctx, auth.OwnerID, docID); err != nil {
			if appErr.IsNotFound(err) {
				return appErr.ErrForbidden
			}
			return err
		}
		return nil
	default:
		return appErr.ErrUnauthorized
	}
}

func (s *DeliveryService) generator(docID string, pageNumber int, version int64) pagecache.GenerateFunc {
	return func(ctx context.Context) ([]byte, string, error) {
		page, err := s.pages.Get(ctx, docID, pageNumber, version)
		if err != nil {
			return nil, "", err
		}
		var obj *blobstore.Object
		err = s.recovery.Execute(ctx, "blob_get", func(ctx context.Context) error {
			var getErr error
			obj, getErr = s.blobs.Get(ctx, page.StoragePath)
			return getErr
		})
		if err != nil {
			return nil, "", err
		}
		contentType := page.MimeType
		if contentType == "" {
			contentType = obj.ContentType
		}
		return obj.Data, contentType, nil
	}
}
