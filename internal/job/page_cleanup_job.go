package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/sealdoc/sealdoc/internal/blobstore"
	"github.com/sealdoc/sealdoc/internal/pagecache"
	"github.com/sealdoc/sealdoc/internal/repo"
)

const cleanupBatchSize = 200

// PageCleanupJob reclaims page renditions left behind by reconversion.
// A reconverted document bumps its version; the old renditions stay in
// blob storage until this job deletes them.
type PageCleanupJob struct {
	pages *repo.PageRepo
	blobs blobstore.Store
	cache *pagecache.Cache
}

func NewPageCleanupJob(pages *repo.PageRepo, blobs blobstore.Store, cache *pagecache.Cache) *PageCleanupJob {
	return &PageCleanupJob{pages: pages, blobs: blobs, cache: cache}
}

func (j *PageCleanupJob) Name() string {
	return "page_cleanup"
}

func (j *PageCleanupJob) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	removed := 0
	for {
		stale, err := j.pages.ListSuperseded(ctx, cleanupBatchSize)
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			break
		}
		removedThisPass := 0
		for _, page := range stale {
			if err := j.blobs.Delete(ctx, page.StoragePath); err != nil {
				logger.Error("delete stale rendition failed",
					zap.String("document_id", page.DocumentID),
					zap.Int("page_number", page.PageNumber),
					zap.Int64("version", page.Version),
					zap.Error(err))
				continue
			}
			if err := j.pages.Delete(ctx, page.DocumentID, page.PageNumber, page.Version); err != nil {
				logger.Error("delete stale page record failed",
					zap.String("document_id", page.DocumentID),
					zap.Int("page_number", page.PageNumber),
					zap.Int64("version", page.Version),
					zap.Error(err))
				continue
			}
			j.cache.Invalidate(page.DocumentID, page.PageNumber, page.Version)
			removedThisPass++
		}
		removed += removedThisPass
		// A pass that removes nothing would list the same rows again;
		// stop and let the next scheduled run retry against a healthier
		// blob store.
		if removedThisPass == 0 {
			logger.Warn("page cleanup made no progress, stopping",
				zap.Int("stale", len(stale)))
			break
		}
		if len(stale) < cleanupBatchSize {
			break
		}
	}
	stats := j.cache.Stats()
	logger.Info("page cleanup done",
		zap.Int("removed", removed),
		zap.Int("cache_entries", stats.Entries),
		zap.Int64("cache_hits", stats.Hits),
		zap.Int64("cache_misses", stats.Misses))
	return nil
}
