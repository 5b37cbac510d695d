package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sealdoc/sealdoc/internal/blobstore"
	"github.com/sealdoc/sealdoc/internal/config"
	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/pagecache"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
	"github.com/sealdoc/sealdoc/internal/recovery"
	"github.com/sealdoc/sealdoc/internal/watermark"
)

type fakeDocs struct {
	docs map[string]*model.Document
}

func (f *fakeDocs) GetActive(ctx context.Context, docID string) (*model.Document, error) {
	doc, ok := f.docs[docID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return doc, nil
}

func (f *fakeDocs) GetByOwner(ctx context.Context, ownerID, docID string) (*model.Document, error) {
	doc, ok := f.docs[docID]
	if !ok || doc.OwnerID != ownerID {
		return nil, appErr.ErrNotFound
	}
	return doc, nil
}

type fakePages struct {
	pages map[string]*model.Page
}

func (f *fakePages) Get(ctx context.Context, docID string, pageNumber int, version int64) (*model.Page, error) {
	page, ok := f.pages[pagecache.Key(docID, pageNumber, version)]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return page, nil
}

type fakeItems struct {
	items map[string]*model.CollectionItem
}

func (f *fakeItems) Get(ctx context.Context, itemID string) (*model.CollectionItem, error) {
	item, ok := f.items[itemID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return item, nil
}

type fakeBlobs struct {
	objects map[string]*blobstore.Object
	gets    atomic.Int64
}

func (f *fakeBlobs) Get(ctx context.Context, key string) (*blobstore.Object, error) {
	f.gets.Add(1)
	obj, ok := f.objects[key]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return obj, nil
}

func (f *fakeBlobs) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	return nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error { return nil }

func (f *fakeBlobs) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", nil
}

func pagePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type deliveryFixture struct {
	svc   *DeliveryService
	blobs *fakeBlobs
}

func newDeliveryFixture(t *testing.T) *deliveryFixture {
	t.Helper()
	doc := &model.Document{
		ID:          "doc-1",
		OwnerID:     "owner-1",
		ContentType: model.ContentTypeImage,
		Meta:        model.DocumentMeta{Image: &model.ImageMeta{Width: 200, Height: 200}},
		PageCount:   2,
		Version:     1,
		State:       1,
	}
	blobs := &fakeBlobs{objects: map[string]*blobstore.Object{
		"pages/doc-1/1": {Data: pagePNG(t), ContentType: "image/png"},
		"pages/doc-1/2": {Data: pagePNG(t), ContentType: "image/png"},
	}}
	pages := &fakePages{pages: map[string]*model.Page{
		pagecache.Key("doc-1", 1, 1): {DocumentID: "doc-1", PageNumber: 1, Version: 1, StoragePath: "pages/doc-1/1", MimeType: "image/png"},
		pagecache.Key("doc-1", 2, 1): {DocumentID: "doc-1", PageNumber: 2, Version: 1, StoragePath: "pages/doc-1/2", MimeType: "image/png"},
	}}
	items := &fakeItems{items: map[string]*model.CollectionItem{
		"item-1": {ID: "item-1", OwnerID: "owner-1", DocumentID: "doc-1", State: 1},
	}}
	svc := NewDeliveryService(
		&fakeDocs{docs: map[string]*model.Document{"doc-1": doc}},
		pages, items,
		pagecache.New(16, time.Minute),
		blobs,
		recovery.New(config.RecoveryConfig{MaxAttempts: 2, BackoffMS: 1, BreakerFailures: 100, BreakerTimeoutMS: 1000}),
		watermark.New(config.WatermarkConfig{Opacity: 0.15, FontSize: 13}),
	)
	return &deliveryFixture{svc: svc, blobs: blobs}
}

func sessionRequest(page int) DeliverRequest {
	return DeliverRequest{
		DocumentID:     "doc-1",
		PageNumber:     page,
		Auth:           Authorization{SessionDocumentID: "doc-1"},
		ViewerIdentity: "alice@example.com",
	}
}

func TestDeliver_MissThenCacheHit(t *testing.T) {
	f := newDeliveryFixture(t)

	first, err := f.svc.Deliver(context.Background(), sessionRequest(1))
	require.NoError(t, err)
	require.Equal(t, "image/png", first.ContentType)
	require.Equal(t, "private, max-age=3600", first.CacheControl)
	require.Equal(t, int64(1), f.blobs.gets.Load())

	_, err = f.svc.Deliver(context.Background(), sessionRequest(1))
	require.NoError(t, err)
	// Second delivery is served from the page cache.
	require.Equal(t, int64(1), f.blobs.gets.Load())
}

func TestDeliver_DistinctViewersDistinctBytes(t *testing.T) {
	f := newDeliveryFixture(t)
	frozen := time.Unix(1_700_000_000, 0)
	f.svc.now = func() time.Time { return frozen }

	req := sessionRequest(1)
	a, err := f.svc.Deliver(context.Background(), req)
	require.NoError(t, err)

	req.ViewerIdentity = "bob@example.com"
	b, err := f.svc.Deliver(context.Background(), req)
	require.NoError(t, err)

	require.NotEqual(t, a.Data, b.Data)
	// Both came off the same cached entry.
	require.Equal(t, int64(1), f.blobs.gets.Load())
}

func TestDeliver_PageOutOfRange(t *testing.T) {
	f := newDeliveryFixture(t)
	for _, page := range []int{0, 3, -1} {
		_, err := f.svc.Deliver(context.Background(), sessionRequest(page))
		require.ErrorIs(t, err, appErr.ErrNotFound, "page %d", page)
	}
}

func TestDeliver_CollectionResolvesToPinnedDocument(t *testing.T) {
	f := newDeliveryFixture(t)

	req := DeliverRequest{
		CollectionItemID: "item-1",
		PageNumber:       1,
		Auth:             Authorization{SessionDocumentID: "doc-1"},
		ViewerIdentity:   "alice@example.com",
	}
	out, err := f.svc.Deliver(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, out.Data)
}

func TestDeliver_CollectionDriftRejected(t *testing.T) {
	f := newDeliveryFixture(t)

	// The session was minted for a different document than the one the
	// collection item points at.
	req := DeliverRequest{
		CollectionItemID: "item-1",
		PageNumber:       1,
		Auth:             Authorization{SessionDocumentID: "doc-other"},
		ViewerIdentity:   "alice@example.com",
	}
	_, err := f.svc.Deliver(context.Background(), req)
	require.ErrorIs(t, err, appErr.ErrForbidden)
}

func TestDeliver_OwnerAccess(t *testing.T) {
	f := newDeliveryFixture(t)

	req := DeliverRequest{
		DocumentID:     "doc-1",
		PageNumber:     1,
		Auth:           Authorization{OwnerID: "owner-1"},
		ViewerIdentity: "owner-1",
	}
	_, err := f.svc.Deliver(context.Background(), req)
	require.NoError(t, err)

	req.Auth.OwnerID = "intruder"
	_, err = f.svc.Deliver(context.Background(), req)
	require.ErrorIs(t, err, appErr.ErrForbidden)
}

func TestDeliver_NoAuthorization(t *testing.T) {
	f := newDeliveryFixture(t)

	req := DeliverRequest{DocumentID: "doc-1", PageNumber: 1}
	_, err := f.svc.Deliver(context.Background(), req)
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
}
