package handler

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/sealdoc/sealdoc/internal/middleware"
)

type RouterDeps struct {
	Shares        *ShareHandler
	Pages         *PageHandler
	Documents     *DocumentHandler
	JWTSecret     []byte
	CORSAllowlist []string
	SessionWindow time.Duration
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(deps.CORSAllowlist))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	api := router.Group("/api/v1")

	api.GET("/share/:shareKey", deps.Shares.PublicGet)
	api.POST("/share/:shareKey/sessions",
		middleware.SessionRateLimit(deps.SessionWindow),
		deps.Shares.EstablishSession)

	viewerGroup := api.Group("")
	viewerGroup.Use(middleware.ViewerAuth(deps.JWTSecret))
	viewerGroup.GET("/documents/:id/pages/:page", deps.Pages.GetDocumentPage)
	viewerGroup.GET("/collections/:itemID/pages/:page", deps.Pages.GetCollectionPage)

	ownerGroup := api.Group("")
	ownerGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	ownerGroup.POST("/documents", deps.Documents.Register)
	ownerGroup.GET("/documents/:id", deps.Documents.Get)
	ownerGroup.POST("/documents/:id/reconvert", deps.Documents.Reconvert)
	ownerGroup.DELETE("/documents/:id", deps.Documents.Delete)
	ownerGroup.POST("/documents/:id/share", deps.Shares.Create)
	ownerGroup.GET("/documents/:id/share", deps.Shares.GetActive)
	ownerGroup.POST("/collections", deps.Documents.AddCollectionItem)
	ownerGroup.GET("/shares", deps.Shares.List)
	ownerGroup.DELETE("/shares/:shareKey", deps.Shares.Deactivate)
	ownerGroup.GET("/shares/:shareKey/analytics", deps.Shares.ListAnalytics)

	return router
}
