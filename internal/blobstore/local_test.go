package blobstore

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sealdoc/sealdoc/internal/config"
)

func newLocalTestStore(t *testing.T) Store {
	t.Helper()
	store, err := New(config.BlobStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	return store
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store := newLocalTestStore(t)
	ctx := context.Background()
	payload := []byte("%PDF-1.7 fake page payload")

	require.NoError(t, store.Put(ctx, "pages/doc-1/1", bytes.NewReader(payload), "application/pdf"))

	obj, err := store.Get(ctx, "pages/doc-1/1")
	require.NoError(t, err)
	require.Equal(t, payload, obj.Data)

	require.NoError(t, store.Delete(ctx, "pages/doc-1/1"))
	_, err = store.Get(ctx, "pages/doc-1/1")
	require.Error(t, err)
}

func TestLocalStoreDeleteMissingIsNoop(t *testing.T) {
	store := newLocalTestStore(t)
	require.NoError(t, store.Delete(context.Background(), "pages/never-existed"))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := newLocalTestStore(t)
	_, err := store.Get(context.Background(), "../escape")
	require.Error(t, err)
}

func TestLocalStoreSignURL(t *testing.T) {
	store := newLocalTestStore(t)
	url, err := store.SignURL(context.Background(), "pages/doc-1/1", time.Minute)
	require.NoError(t, err)
	require.Contains(t, url, "file://")
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(config.BlobStoreConfig{Type: "ftp"})
	require.Error(t, err)
}
