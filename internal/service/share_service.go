package service

import (
	"context"
	"fmt"

	"github.com/sealdoc/sealdoc/internal/model"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
	"github.com/sealdoc/sealdoc/internal/pkg/password"
	"github.com/sealdoc/sealdoc/internal/pkg/timeutil"
	"github.com/sealdoc/sealdoc/internal/repo"
)

type ShareConfigInput struct {
	ExpiresAt       int64
	Password        string
	MaxViews        int
	RestrictToEmail string
	AllowDownload   bool
}

// ShareDetail is the viewer-facing document metadata returned by a
// successful share authorization. It never carries storage paths.
type ShareDetail struct {
	DocumentID    string            `json:"document_id"`
	Title         string            `json:"title"`
	ContentType   model.ContentType `json:"content_type"`
	PageCount     int               `json:"page_count"`
	Version       int64             `json:"version"`
	AllowDownload bool              `json:"allow_download"`
	TargetURL     string            `json:"target_url,omitempty"`
	DurationSecs  int               `json:"duration_seconds,omitempty"`
}

// ShareService manages share links on behalf of document owners and
// resolves viewer-facing metadata.
type ShareService struct {
	links *repo.ShareLinkRepo
	docs  *repo.DocumentRepo
}

func NewShareService(links *repo.ShareLinkRepo, docs *repo.DocumentRepo) *ShareService {
	return &ShareService{links: links, docs: docs}
}

// CreateShare issues a fresh share link for the document, deactivating any
// previous one. One active link per document.
func (s *ShareService) CreateShare(ctx context.Context, ownerID, docID string, input ShareConfigInput) (*model.ShareLink, error) {
	if _, err := s.docs.GetByOwner(ctx, ownerID, docID); err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	if input.ExpiresAt > 0 && input.ExpiresAt <= now {
		return nil, fmt.Errorf("%w: expiry must be in the future", appErr.ErrInvalid)
	}
	if input.MaxViews < 0 {
		return nil, fmt.Errorf("%w: max views must not be negative", appErr.ErrInvalid)
	}
	if err := s.links.DeactivateByDocument(ctx, ownerID, docID, now); err != nil {
		return nil, err
	}
	passwordHash := ""
	if input.Password != "" {
		hashed, err := password.Hash(input.Password)
		if err != nil {
			return nil, err
		}
		passwordHash = hashed
	}
	link := &model.ShareLink{
		ID:              newID(),
		OwnerID:         ownerID,
		DocumentID:      docID,
		ShareKey:        newShareKey(),
		PasswordHash:    passwordHash,
		ExpiresAt:       input.ExpiresAt,
		MaxViews:        input.MaxViews,
		RestrictToEmail: input.RestrictToEmail,
		AllowDownload:   input.AllowDownload,
		State:           repo.ShareStateActive,
		Ctime:           now,
		Mtime:           now,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *ShareService) Deactivate(ctx context.Context, ownerID, shareKey string) error {
	return s.links.Deactivate(ctx, ownerID, shareKey, timeutil.NowUnix())
}

func (s *ShareService) GetActive(ctx context.Context, ownerID, docID string) (*model.ShareLink, error) {
	return s.links.GetActiveByDocument(ctx, ownerID, docID)
}

func (s *ShareService) List(ctx context.Context, ownerID string) ([]*model.ShareLink, error) {
	return s.links.ListByOwner(ctx, ownerID)
}

// VerifyOwnership guards owner-only access to a link's analytics.
func (s *ShareService) VerifyOwnership(ctx context.Context, ownerID, shareKey string) (*model.ShareLink, error) {
	link, err := s.links.GetByKey(ctx, shareKey)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != ownerID {
		return nil, appErr.ErrForbidden
	}
	return link, nil
}

// Resolve assembles the viewer-facing metadata for an authorized context.
func (s *ShareService) Resolve(ctx context.Context, vc *model.ViewerContext) (*ShareDetail, error) {
	doc, err := s.docs.GetActive(ctx, vc.DocumentID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.Denied(appErr.ReasonNotFound)
		}
		return nil, err
	}
	detail := &ShareDetail{
		DocumentID:    doc.ID,
		Title:         doc.Title,
		ContentType:   doc.ContentType,
		PageCount:     doc.PageCount,
		Version:       doc.Version,
		AllowDownload: vc.AllowDownload,
	}
	switch doc.ContentType {
	case model.ContentTypePDF, model.ContentTypeImage:
		// paged variants carry nothing beyond the page count
	case model.ContentTypeVideo:
		if doc.Meta.Video != nil {
			detail.DurationSecs = doc.Meta.Video.DurationSeconds
		}
	case model.ContentTypeLink:
		if doc.Meta.Link != nil {
			detail.TargetURL = doc.Meta.Link.TargetURL
		}
	}
	return detail, nil
}
