package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sealdoc/sealdoc/internal/pkg/errcode"
	"github.com/sealdoc/sealdoc/internal/pkg/jwt"
	"github.com/sealdoc/sealdoc/internal/pkg/response"
)

const (
	ContextUserIDKey    = "user_id"
	ContextUserEmailKey = "user_email"
)

// JWTAuth guards owner-only routes. Owner tokens are minted by the external
// identity provider; this middleware only verifies them.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, errcode.Unauthorized, "missing authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseOwnerToken(token, secret)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, errcode.Unauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, claims.UserID)
		if claims.Email != "" {
			c.Set(ContextUserEmailKey, claims.Email)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
