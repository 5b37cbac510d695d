package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sealdoc/sealdoc/internal/pkg/errcode"
	"github.com/sealdoc/sealdoc/internal/pkg/response"
	"github.com/sealdoc/sealdoc/internal/service"
)

type ShareHandler struct {
	shares    *service.ShareService
	policy    *service.PolicyService
	sessions  *service.SessionService
	analytics *service.AnalyticsService
}

func NewShareHandler(shares *service.ShareService, policy *service.PolicyService,
	sessions *service.SessionService, analytics *service.AnalyticsService) *ShareHandler {
	return &ShareHandler{shares: shares, policy: policy, sessions: sessions, analytics: analytics}
}

type createShareRequest struct {
	ExpiresAt       int64  `json:"expires_at"`
	Password        string `json:"password"`
	MaxViews        int    `json:"max_views"`
	RestrictToEmail string `json:"restrict_to_email"`
	AllowDownload   *bool  `json:"allow_download"`
}

type establishSessionRequest struct {
	Password string `json:"password"`
	Email    string `json:"email"`
}

// PublicGet validates the presented share key and returns viewer-facing
// document metadata. It has no side effects; the view is counted only when
// a session is established.
func (h *ShareHandler) PublicGet(c *gin.Context) {
	vc, err := h.policy.Authorize(c.Request.Context(), c.Param("shareKey"), c.Query("password"), c.Query("email"))
	if err != nil {
		handleError(c, err)
		return
	}
	detail, err := h.shares.Resolve(c.Request.Context(), vc)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"document": detail})
}

// EstablishSession counts the view and mints the session token the viewer
// presents on subsequent page requests.
func (h *ShareHandler) EstablishSession(c *gin.Context) {
	var req establishSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, errcode.Invalid, "invalid request")
		return
	}
	session, err := h.sessions.Establish(c.Request.Context(), c.Param("shareKey"),
		req.Password, req.Email, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, session)
}

func (h *ShareHandler) Create(c *gin.Context) {
	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, errcode.Invalid, "invalid request")
		return
	}
	allowDownload := true
	if req.AllowDownload != nil {
		allowDownload = *req.AllowDownload
	}
	link, err := h.shares.CreateShare(c.Request.Context(), getUserID(c), c.Param("id"), service.ShareConfigInput{
		ExpiresAt:       req.ExpiresAt,
		Password:        req.Password,
		MaxViews:        req.MaxViews,
		RestrictToEmail: strings.TrimSpace(req.RestrictToEmail),
		AllowDownload:   allowDownload,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, link)
}

func (h *ShareHandler) GetActive(c *gin.Context) {
	link, err := h.shares.GetActive(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"share": link})
}

func (h *ShareHandler) Deactivate(c *gin.Context) {
	if err := h.shares.Deactivate(c.Request.Context(), getUserID(c), c.Param("shareKey")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ShareHandler) List(c *gin.Context) {
	items, err := h.shares.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

func (h *ShareHandler) ListAnalytics(c *gin.Context) {
	shareKey := c.Param("shareKey")
	if _, err := h.shares.VerifyOwnership(c.Request.Context(), getUserID(c), shareKey); err != nil {
		handleError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	items, err := h.analytics.ListViews(c.Request.Context(), shareKey, limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}
