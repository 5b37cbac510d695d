package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sealdoc/sealdoc/internal/pkg/errcode"
	"github.com/sealdoc/sealdoc/internal/pkg/jwt"
	"github.com/sealdoc/sealdoc/internal/pkg/response"
)

const (
	ContextSessionIDKey     = "session_id"
	ContextSessionDocKey    = "session_document_id"
	ContextSessionViewerKey = "session_viewer"
	ContextSessionShareKey  = "session_share_key"
	ContextAllowDownloadKey = "session_allow_download"
)

// ViewerAuth accepts either an established viewing-session token or an
// owner token; page routes serve both caller kinds through the same
// delivery path.
func ViewerAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token = c.Query("session")
		}
		if token == "" {
			response.Error(c, http.StatusForbidden, errcode.Forbidden, "missing session")
			c.Abort()
			return
		}
		if claims, err := jwt.ParseSessionToken(token, secret); err == nil && claims.ShareKey != "" {
			c.Set(ContextSessionIDKey, claims.SessionID)
			c.Set(ContextSessionDocKey, claims.DocumentID)
			c.Set(ContextSessionViewerKey, claims.ViewerEmail)
			c.Set(ContextSessionShareKey, claims.ShareKey)
			c.Set(ContextAllowDownloadKey, claims.AllowDownload)
			c.Next()
			return
		}
		if claims, err := jwt.ParseOwnerToken(token, secret); err == nil {
			c.Set(ContextUserIDKey, claims.UserID)
			if claims.Email != "" {
				c.Set(ContextUserEmailKey, claims.Email)
			}
			c.Next()
			return
		}
		response.Error(c, http.StatusForbidden, errcode.Forbidden, "invalid session")
		c.Abort()
	}
}
