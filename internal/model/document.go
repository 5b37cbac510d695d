package model

import "fmt"

// ContentType is a closed variant; every consumer switches exhaustively.
type ContentType string

const (
	ContentTypePDF   ContentType = "pdf"
	ContentTypeImage ContentType = "image"
	ContentTypeVideo ContentType = "video"
	ContentTypeLink  ContentType = "link"
)

type Document struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"owner_id"`
	Title       string       `json:"title"`
	ContentType ContentType  `json:"content_type"`
	Meta        DocumentMeta `json:"meta"`
	PageCount   int          `json:"page_count"`
	Version     int64        `json:"version"`
	State       int          `json:"state"`
	Ctime       int64        `json:"ctime"`
	Mtime       int64        `json:"mtime"`
}

// DocumentMeta holds exactly one variant matching the document's content
// type.
type DocumentMeta struct {
	PDF   *PDFMeta   `json:"pdf,omitempty"`
	Image *ImageMeta `json:"image,omitempty"`
	Video *VideoMeta `json:"video,omitempty"`
	Link  *LinkMeta  `json:"link,omitempty"`
}

type PDFMeta struct {
	SourcePages int `json:"source_pages"`
}

type ImageMeta struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type VideoMeta struct {
	DurationSeconds int    `json:"duration_seconds"`
	PreviewPath     string `json:"preview_path"`
}

type LinkMeta struct {
	TargetURL string `json:"target_url"`
}

// Validate checks that the meta variant matches the content type.
func (d *Document) Validate() error {
	switch d.ContentType {
	case ContentTypePDF:
		if d.Meta.PDF == nil {
			return fmt.Errorf("pdf document requires pdf metadata")
		}
	case ContentTypeImage:
		if d.Meta.Image == nil {
			return fmt.Errorf("image document requires image metadata")
		}
	case ContentTypeVideo:
		if d.Meta.Video == nil {
			return fmt.Errorf("video document requires video metadata")
		}
	case ContentTypeLink:
		if d.Meta.Link == nil || d.Meta.Link.TargetURL == "" {
			return fmt.Errorf("link document requires a target url")
		}
	default:
		return fmt.Errorf("unsupported content type: %s", d.ContentType)
	}
	return nil
}

// Paged reports whether the document delivers through the page pipeline.
func (d *Document) Paged() bool {
	switch d.ContentType {
	case ContentTypePDF, ContentTypeImage:
		return true
	case ContentTypeVideo, ContentTypeLink:
		return false
	}
	return false
}

// Page is one rendered page of a document at a specific conversion version.
// Pages of superseded versions stay in storage until the cleanup job
// reclaims them.
type Page struct {
	DocumentID  string `json:"document_id"`
	PageNumber  int    `json:"page_number"` // 1-indexed, contiguous 1..N
	Version     int64  `json:"version"`
	StoragePath string `json:"storage_path"`
	MimeType    string `json:"mime_type"`
	FileSize    int64  `json:"file_size"`
}

// CollectionItem is the indirection a viewer-collection route resolves
// through; it must always resolve to the same document the viewer was
// authorized against.
type CollectionItem struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id"`
	DocumentID string `json:"document_id"`
	State      int    `json:"state"`
	Ctime      int64  `json:"ctime"`
}
