package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sealdoc/sealdoc/internal/middleware"
	"github.com/sealdoc/sealdoc/internal/pkg/errcode"
	"github.com/sealdoc/sealdoc/internal/pkg/response"
	"github.com/sealdoc/sealdoc/internal/service"
)

type PageHandler struct {
	delivery *service.DeliveryService
}

func NewPageHandler(delivery *service.DeliveryService) *PageHandler {
	return &PageHandler{delivery: delivery}
}

// GetDocumentPage streams one watermarked page addressed by document id.
func (h *PageHandler) GetDocumentPage(c *gin.Context) {
	h.deliver(c, service.DeliverRequest{DocumentID: c.Param("id")})
}

// GetCollectionPage streams one watermarked page addressed through the
// collection-item indirection.
func (h *PageHandler) GetCollectionPage(c *gin.Context) {
	h.deliver(c, service.DeliverRequest{CollectionItemID: c.Param("itemID")})
}

func (h *PageHandler) deliver(c *gin.Context, req service.DeliverRequest) {
	pageNumber, err := strconv.Atoi(c.Param("page"))
	if err != nil || pageNumber < 1 {
		response.Error(c, http.StatusNotFound, errcode.PageNotFound, "page not found")
		return
	}
	req.PageNumber = pageNumber
	req.Auth, req.ViewerIdentity = callerIdentity(c)

	delivery, err := h.delivery.Deliver(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Cache-Control", delivery.CacheControl)
	if allow, ok := c.Get(middleware.ContextAllowDownloadKey); ok {
		if allowed, _ := allow.(bool); !allowed {
			c.Header("Content-Disposition", "inline")
		}
	}
	c.Data(http.StatusOK, delivery.ContentType, delivery.Data)
}

// callerIdentity extracts the authorization and the watermark identity from
// whichever auth path the middleware established.
func callerIdentity(c *gin.Context) (service.Authorization, string) {
	if docID, ok := c.Get(middleware.ContextSessionDocKey); ok {
		sessionDoc, _ := docID.(string)
		viewer, _ := c.Get(middleware.ContextSessionViewerKey)
		identity, _ := viewer.(string)
		if identity == "" {
			sessionID, _ := c.Get(middleware.ContextSessionIDKey)
			if id, _ := sessionID.(string); len(id) >= 8 {
				identity = "viewer-" + id[:8]
			} else {
				identity = "anonymous viewer"
			}
		}
		return service.Authorization{SessionDocumentID: sessionDoc}, identity
	}
	ownerID := getUserID(c)
	identity := getUserEmail(c)
	if identity == "" {
		identity = ownerID
	}
	return service.Authorization{OwnerID: ownerID}, identity
}
