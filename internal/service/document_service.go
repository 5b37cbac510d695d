package service

import (
	"context"
	"fmt"

	"github.com/sealdoc/sealdoc/internal/model"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
	"github.com/sealdoc/sealdoc/internal/pkg/timeutil"
	"github.com/sealdoc/sealdoc/internal/repo"
)

type PageInput struct {
	PageNumber  int    `json:"page_number"`
	StoragePath string `json:"storage_path"`
	MimeType    string `json:"mime_type"`
	FileSize    int64  `json:"file_size"`
}

type DocumentRegisterInput struct {
	Title       string
	ContentType model.ContentType
	Meta        model.DocumentMeta
	Pages       []PageInput
}

// DocumentService is the hand-off point from the external upload/conversion
// pipeline: converted documents and their rendered pages get registered
// here.
type DocumentService struct {
	docs  *repo.DocumentRepo
	pages *repo.PageRepo
	links *repo.ShareLinkRepo
	items *repo.CollectionRepo
}

func NewDocumentService(docs *repo.DocumentRepo, pages *repo.PageRepo, links *repo.ShareLinkRepo, items *repo.CollectionRepo) *DocumentService {
	return &DocumentService{docs: docs, pages: pages, links: links, items: items}
}

func (s *DocumentService) Register(ctx context.Context, ownerID string, input DocumentRegisterInput) (*model.Document, error) {
	now := timeutil.NowUnix()
	doc := &model.Document{
		ID:          newID(),
		OwnerID:     ownerID,
		Title:       input.Title,
		ContentType: input.ContentType,
		Meta:        input.Meta,
		PageCount:   len(input.Pages),
		Version:     1,
		State:       repo.DocumentStateActive,
		Ctime:       now,
		Mtime:       now,
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}
	pages, err := buildPages(doc.ID, 1, doc.Paged(), input.Pages)
	if err != nil {
		return nil, err
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.pages.CreateBatch(ctx, pages); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reconvert registers the regenerated pages under a bumped version. Cached
// entries at the old version become unreachable rather than being purged;
// their storage is reclaimed by the cleanup job.
func (s *DocumentService) Reconvert(ctx context.Context, ownerID, docID string, pageInputs []PageInput) (*model.Document, error) {
	doc, err := s.docs.GetByOwner(ctx, ownerID, docID)
	if err != nil {
		return nil, err
	}
	if !doc.Paged() {
		return nil, fmt.Errorf("%w: %s documents have no pages to reconvert", appErr.ErrInvalid, doc.ContentType)
	}
	pages, err := buildPages(docID, doc.Version, true, pageInputs)
	if err != nil {
		return nil, err
	}
	version, err := s.docs.BumpVersion(ctx, ownerID, docID, len(pageInputs), timeutil.NowUnix(), func(version int64) []*model.Page {
		for _, page := range pages {
			page.Version = version
		}
		return pages
	})
	if err != nil {
		return nil, err
	}
	doc.Version = version
	doc.PageCount = len(pageInputs)
	return doc, nil
}

// Delete soft-deletes the document and deactivates its share links. The
// analytics trail stays intact.
func (s *DocumentService) Delete(ctx context.Context, ownerID, docID string) error {
	now := timeutil.NowUnix()
	if err := s.docs.SoftDelete(ctx, ownerID, docID, now); err != nil {
		return err
	}
	return s.links.DeactivateByDocument(ctx, ownerID, docID, now)
}

func (s *DocumentService) Get(ctx context.Context, ownerID, docID string) (*model.Document, error) {
	return s.docs.GetByOwner(ctx, ownerID, docID)
}

// AddCollectionItem creates the indirection handle used by in-app viewer
// collections.
func (s *DocumentService) AddCollectionItem(ctx context.Context, ownerID, docID string) (*model.CollectionItem, error) {
	if _, err := s.docs.GetByOwner(ctx, ownerID, docID); err != nil {
		return nil, err
	}
	item := &model.CollectionItem{
		ID:         newID(),
		OwnerID:    ownerID,
		DocumentID: docID,
		State:      repo.CollectionItemStateActive,
		Ctime:      timeutil.NowUnix(),
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// buildPages validates the 1..N contiguity invariant.
func buildPages(docID string, version int64, paged bool, inputs []PageInput) ([]*model.Page, error) {
	if !paged {
		if len(inputs) > 0 {
			return nil, fmt.Errorf("%w: non-paged document cannot carry pages", appErr.ErrInvalid)
		}
		return nil, nil
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: paged document requires at least one page", appErr.ErrInvalid)
	}
	seen := make(map[int]bool, len(inputs))
	pages := make([]*model.Page, 0, len(inputs))
	for _, input := range inputs {
		if input.PageNumber < 1 || input.PageNumber > len(inputs) || seen[input.PageNumber] {
			return nil, fmt.Errorf("%w: page numbers must be contiguous 1..%d", appErr.ErrInvalid, len(inputs))
		}
		if input.StoragePath == "" {
			return nil, fmt.Errorf("%w: page %d has no storage path", appErr.ErrInvalid, input.PageNumber)
		}
		seen[input.PageNumber] = true
		pages = append(pages, &model.Page{
			DocumentID:  docID,
			PageNumber:  input.PageNumber,
			Version:     version,
			StoragePath: input.StoragePath,
			MimeType:    input.MimeType,
			FileSize:    input.FileSize,
		})
	}
	return pages, nil
}
