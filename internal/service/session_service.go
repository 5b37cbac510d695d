package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sealdoc/sealdoc/internal/pkg/jwt"
)

// Session is the established viewing session handed back to the viewer. The
// token is presented on every page request; its existence proves the view
// was already counted, so page navigation never touches the counter again.
type Session struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// SessionService establishes viewing sessions: authorize, record the view
// exactly once, mint the session token.
type SessionService struct {
	policy    *PolicyService
	analytics *AnalyticsService
	secret    []byte
	ttl       time.Duration
}

func NewSessionService(policy *PolicyService, analytics *AnalyticsService, secret []byte, ttl time.Duration) *SessionService {
	return &SessionService{policy: policy, analytics: analytics, secret: secret, ttl: ttl}
}

func (s *SessionService) Establish(ctx context.Context, shareKey, presentedPassword, presentedEmail, ipAddress, userAgent string) (*Session, error) {
	vc, err := s.policy.Authorize(ctx, shareKey, presentedPassword, presentedEmail)
	if err != nil {
		return nil, err
	}
	// The authorize above is an optimistic read; the transactional
	// check-and-increment below is what actually enforces the cap under
	// concurrency.
	if _, err := s.analytics.RecordView(ctx, vc, ipAddress, userAgent); err != nil {
		return nil, err
	}
	sessionID := uuid.NewString()
	token, err := jwt.GenerateSessionToken(jwt.SessionClaims{
		SessionID:     sessionID,
		ShareKey:      vc.ShareKey,
		DocumentID:    vc.DocumentID,
		ViewerEmail:   vc.ViewerEmail,
		AllowDownload: vc.AllowDownload,
	}, s.secret, s.ttl)
	if err != nil {
		return nil, err
	}
	return &Session{
		SessionID: sessionID,
		Token:     token,
		ExpiresIn: int64(s.ttl.Seconds()),
	}, nil
}
