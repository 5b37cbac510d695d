package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/pkg/errcode"
	"github.com/sealdoc/sealdoc/internal/pkg/response"
	"github.com/sealdoc/sealdoc/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type registerDocumentRequest struct {
	Title       string              `json:"title"`
	ContentType string              `json:"content_type"`
	Meta        model.DocumentMeta  `json:"meta"`
	Pages       []service.PageInput `json:"pages"`
}

type reconvertRequest struct {
	Pages []service.PageInput `json:"pages"`
}

type addCollectionItemRequest struct {
	DocumentID string `json:"document_id"`
}

// Register is the hand-off from the external conversion pipeline: it
// records an already-converted document and its rendered pages.
func (h *DocumentHandler) Register(c *gin.Context) {
	var req registerDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, errcode.Invalid, "invalid request")
		return
	}
	doc, err := h.documents.Register(c.Request.Context(), getUserID(c), service.DocumentRegisterInput{
		Title:       req.Title,
		ContentType: model.ContentType(req.ContentType),
		Meta:        req.Meta,
		Pages:       req.Pages,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, doc)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

// Reconvert registers regenerated pages under a bumped version.
func (h *DocumentHandler) Reconvert(c *gin.Context) {
	var req reconvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, errcode.Invalid, "invalid request")
		return
	}
	doc, err := h.documents.Reconvert(c.Request.Context(), getUserID(c), c.Param("id"), req.Pages)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *DocumentHandler) AddCollectionItem(c *gin.Context) {
	var req addCollectionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DocumentID == "" {
		response.Error(c, 400, errcode.Invalid, "invalid request")
		return
	}
	item, err := h.documents.AddCollectionItem(c.Request.Context(), getUserID(c), req.DocumentID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, item)
}
