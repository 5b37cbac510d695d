package service

import (
	"context"
	"strings"
	"time"

	"github.com/sealdoc/sealdoc/internal/model"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
	"github.com/sealdoc/sealdoc/internal/pkg/password"
	"github.com/sealdoc/sealdoc/internal/repo"
)

// ShareLinkGetter is the slice of the share link repo the policy engine
// needs.
type ShareLinkGetter interface {
	GetByKey(ctx context.Context, shareKey string) (*model.ShareLink, error)
}

// PolicyService validates a presented share key against the stored policy.
// It has no side effects: the view counter belongs to the analytics
// recorder, which runs once per established session.
type PolicyService struct {
	links ShareLinkGetter
	now   func() time.Time
}

func NewPolicyService(links ShareLinkGetter) *PolicyService {
	return &PolicyService{links: links, now: time.Now}
}

// Authorize checks policy in a fixed order; the first failing check wins so
// a caller learns no more than necessary.
func (s *PolicyService) Authorize(ctx context.Context, shareKey, presentedPassword, presentedEmail string) (*model.ViewerContext, error) {
	link, err := s.links.GetByKey(ctx, shareKey)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.Denied(appErr.ReasonNotFound)
		}
		return nil, err
	}
	if link.State != repo.ShareStateActive {
		return nil, appErr.Denied(appErr.ReasonDeactivated)
	}
	if link.ExpiresAt > 0 && s.now().Unix() >= link.ExpiresAt {
		return nil, appErr.Denied(appErr.ReasonExpired)
	}
	if link.MaxViews > 0 && link.ViewCount >= link.MaxViews {
		return nil, appErr.Denied(appErr.ReasonExhausted)
	}
	if link.PasswordHash != "" {
		if err := password.Compare(link.PasswordHash, presentedPassword); err != nil {
			return nil, appErr.Denied(appErr.ReasonWrongPassword)
		}
	}
	email := strings.TrimSpace(presentedEmail)
	if link.RestrictToEmail != "" && !strings.EqualFold(link.RestrictToEmail, email) {
		return nil, appErr.Denied(appErr.ReasonEmailMismatch)
	}
	return &model.ViewerContext{
		ShareKey:      link.ShareKey,
		DocumentID:    link.DocumentID,
		ViewerEmail:   email,
		AllowDownload: link.AllowDownload,
	}, nil
}
