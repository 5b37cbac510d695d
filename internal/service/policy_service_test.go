package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sealdoc/sealdoc/internal/model"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
	"github.com/sealdoc/sealdoc/internal/pkg/password"
	"github.com/sealdoc/sealdoc/internal/repo"
)

type fakeLinkGetter struct {
	link *model.ShareLink
	err  error
}

func (f *fakeLinkGetter) GetByKey(ctx context.Context, shareKey string) (*model.ShareLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.link, nil
}

func policyAt(getter *fakeLinkGetter, now time.Time) *PolicyService {
	s := NewPolicyService(getter)
	s.now = func() time.Time { return now }
	return s
}

func TestPolicyAuthorize_DenialOrder(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	hash, err := password.Hash("s3cret")
	require.NoError(t, err)

	tests := []struct {
		name       string
		link       *model.ShareLink
		getErr     error
		password   string
		email      string
		wantReason appErr.Reason
	}{
		{
			name:       "unknown key",
			getErr:     appErr.ErrNotFound,
			wantReason: appErr.ReasonNotFound,
		},
		{
			name: "deactivated link",
			link: &model.ShareLink{
				State: repo.ShareStateDeactivated,
			},
			wantReason: appErr.ReasonDeactivated,
		},
		{
			name: "expired before password is consulted",
			link: &model.ShareLink{
				State:        repo.ShareStateActive,
				ExpiresAt:    now.Unix() - 60,
				PasswordHash: hash,
			},
			password:   "wrong",
			wantReason: appErr.ReasonExpired,
		},
		{
			name: "expiry boundary is inclusive",
			link: &model.ShareLink{
				State:     repo.ShareStateActive,
				ExpiresAt: now.Unix(),
			},
			wantReason: appErr.ReasonExpired,
		},
		{
			name: "view cap reached",
			link: &model.ShareLink{
				State:     repo.ShareStateActive,
				MaxViews:  5,
				ViewCount: 5,
			},
			wantReason: appErr.ReasonExhausted,
		},
		{
			name: "wrong password",
			link: &model.ShareLink{
				State:        repo.ShareStateActive,
				PasswordHash: hash,
			},
			password:   "nope",
			wantReason: appErr.ReasonWrongPassword,
		},
		{
			name: "email mismatch",
			link: &model.ShareLink{
				State:           repo.ShareStateActive,
				RestrictToEmail: "alice@example.com",
			},
			email:      "bob@example.com",
			wantReason: appErr.ReasonEmailMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := policyAt(&fakeLinkGetter{link: tt.link, err: tt.getErr}, now)
			_, err := svc.Authorize(context.Background(), "key", tt.password, tt.email)
			reason, ok := appErr.DenialReason(err)
			require.True(t, ok, "expected a denial, got %v", err)
			require.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestPolicyAuthorize_Grants(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	hash, err := password.Hash("s3cret")
	require.NoError(t, err)

	link := &model.ShareLink{
		ShareKey:        "key",
		DocumentID:      "doc-1",
		State:           repo.ShareStateActive,
		ExpiresAt:       now.Unix() + 3600,
		MaxViews:        10,
		ViewCount:       9,
		PasswordHash:    hash,
		RestrictToEmail: "Alice@Example.com",
		AllowDownload:   true,
	}
	svc := policyAt(&fakeLinkGetter{link: link}, now)

	viewer, err := svc.Authorize(context.Background(), "key", "s3cret", " alice@example.com ")
	require.NoError(t, err)
	require.Equal(t, "doc-1", viewer.DocumentID)
	require.Equal(t, "alice@example.com", viewer.ViewerEmail)
	require.True(t, viewer.AllowDownload)
}

func TestPolicyAuthorize_UnrestrictedLink(t *testing.T) {
	link := &model.ShareLink{
		ShareKey:   "open",
		DocumentID: "doc-2",
		State:      repo.ShareStateActive,
	}
	svc := policyAt(&fakeLinkGetter{link: link}, time.Now())

	viewer, err := svc.Authorize(context.Background(), "open", "", "")
	require.NoError(t, err)
	require.Equal(t, "doc-2", viewer.DocumentID)
	require.False(t, viewer.AllowDownload)
}
