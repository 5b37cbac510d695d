package pagecache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
)

// Entry is one cached unwatermarked page. Watermarked output is never
// stored here.
type Entry struct {
	Data        []byte
	ContentType string
	GeneratedAt time.Time
	ExpiresAt   time.Time

	hits atomic.Int64
}

func (e *Entry) Hits() int64 {
	return e.hits.Load()
}

// GenerateFunc produces the page bytes on a cache miss.
type GenerateFunc func(ctx context.Context) ([]byte, string, error)

// Cache coalesces concurrent misses per (document, page, version) key: at
// most one generation runs at a time and every waiter observes its outcome.
type Cache struct {
	entries *expirable.LRU[string, *Entry]
	group   singleflight.Group
	ttl     time.Duration

	hitCount  atomic.Int64
	missCount atomic.Int64
}

func New(size int, ttl time.Duration) *Cache {
	return &Cache{
		entries: expirable.NewLRU[string, *Entry](size, nil, ttl),
		ttl:     ttl,
	}
}

func Key(docID string, pageNumber int, version int64) string {
	return fmt.Sprintf("%s:%d:%d", docID, pageNumber, version)
}

// GetOrGenerate returns the cached entry or runs generate under
// single-flight. A failed generation is not stored; the next caller retries
// it. The caller's deadline bounds only the wait: an in-flight generation
// keeps running so other waiters can still benefit from its result.
func (c *Cache) GetOrGenerate(ctx context.Context, docID string, pageNumber int, version int64, generate GenerateFunc) (*Entry, error) {
	key := Key(docID, pageNumber, version)
	if entry, ok := c.entries.Get(key); ok && time.Now().Before(entry.ExpiresAt) {
		entry.hits.Add(1)
		c.hitCount.Add(1)
		return entry, nil
	}
	c.missCount.Add(1)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		data, contentType, err := generate(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		now := time.Now()
		entry := &Entry{
			Data:        data,
			ContentType: contentType,
			GeneratedAt: now,
			ExpiresAt:   now.Add(c.ttl),
		}
		c.entries.Add(key, entry)
		return entry, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for page generation: %v", appErr.ErrStorageTransient, ctx.Err())
	}
}

// Invalidate drops a cached entry so the next request regenerates it. Used
// when a cached page turns out to be corrupt.
func (c *Cache) Invalidate(docID string, pageNumber int, version int64) {
	c.entries.Remove(Key(docID, pageNumber, version))
}

type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

func (c *Cache) Stats() Stats {
	return Stats{
		Entries: c.entries.Len(),
		Hits:    c.hitCount.Load(),
		Misses:  c.missCount.Load(),
	}
}
