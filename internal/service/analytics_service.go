package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/pkg/timeutil"
)

// GeoResolver enriches a view record with a country. Lookups are
// best-effort and never block or fail the core record.
type GeoResolver interface {
	Country(ctx context.Context, ip string) (string, error)
}

type NoopGeoResolver struct{}

func (NoopGeoResolver) Country(ctx context.Context, ip string) (string, error) {
	return "", nil
}

type ViewRecorder interface {
	RecordView(ctx context.Context, record *model.ViewRecord, mtime int64) (int, error)
	ListByShareKey(ctx context.Context, shareKey string, limit, offset int) ([]*model.ViewRecord, error)
}

// AnalyticsService appends view events and advances the share link's view
// counter, exactly once per viewing session.
type AnalyticsService struct {
	views ViewRecorder
	geo   GeoResolver
}

func NewAnalyticsService(views ViewRecorder, geo GeoResolver) *AnalyticsService {
	if geo == nil {
		geo = NoopGeoResolver{}
	}
	return &AnalyticsService{views: views, geo: geo}
}

// RecordView commits the increment and the record atomically. A capped link
// that is already exhausted at commit time yields Denied(Exhausted), which
// closes the race between concurrent session establishments.
func (s *AnalyticsService) RecordView(ctx context.Context, vc *model.ViewerContext, ipAddress, userAgent string) (int, error) {
	record := &model.ViewRecord{
		ID:          uuid.NewString(),
		DocumentID:  vc.DocumentID,
		ShareKey:    vc.ShareKey,
		ViewerEmail: vc.ViewerEmail,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Country:     s.lookupCountry(ctx, ipAddress),
		ViewedAt:    timeutil.NowUnix(),
	}
	return s.views.RecordView(ctx, record, record.ViewedAt)
}

func (s *AnalyticsService) lookupCountry(ctx context.Context, ip string) string {
	geoCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	country, err := s.geo.Country(geoCtx, ip)
	if err != nil {
		logutil.GetLogger(ctx).Debug("geo lookup skipped", zap.String("ip", ip), zap.Error(err))
		return ""
	}
	return country
}

func (s *AnalyticsService) ListViews(ctx context.Context, shareKey string, limit, offset int) ([]*model.ViewRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.views.ListByShareKey(ctx, shareKey, limit, offset)
}
