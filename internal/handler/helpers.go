package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/sealdoc/sealdoc/internal/middleware"
	"github.com/sealdoc/sealdoc/internal/pkg/errcode"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
	"github.com/sealdoc/sealdoc/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

func getUserEmail(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserEmailKey)
	email, _ := value.(string)
	return email
}

// handleError maps domain errors onto status codes and caller-safe
// messages. Internal diagnostics stay in the log, keyed by request id.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))

	if reason, ok := appErr.DenialReason(err); ok {
		handleDenied(c, reason)
		return
	}
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, errcode.Unauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, http.StatusForbidden, errcode.Forbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.NotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, errcode.Invalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, http.StatusConflict, errcode.Conflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		response.ErrorWithHint(c, http.StatusTooManyRequests, errcode.TooMany, "too many requests", "retry later")
	case errors.Is(err, appErr.ErrStorageTransient), errors.Is(err, appErr.ErrStorageFatal):
		response.ErrorWithHint(c, http.StatusServiceUnavailable, errcode.StorageFailed, "page temporarily unavailable", "retry")
	case errors.Is(err, appErr.ErrConversionFailed):
		response.ErrorWithHint(c, http.StatusInternalServerError, errcode.StorageFailed, "page could not be rendered", "contact the document owner")
	default:
		response.Error(c, http.StatusInternalServerError, errcode.Internal, "internal error")
	}
}

func handleDenied(c *gin.Context, reason appErr.Reason) {
	switch reason {
	case appErr.ReasonNotFound:
		response.Error(c, http.StatusNotFound, errcode.NotFound, "share link not found")
	case appErr.ReasonWrongPassword:
		response.ErrorWithHint(c, http.StatusUnauthorized, errcode.WrongPassword, "password required or incorrect", "check password")
	case appErr.ReasonExhausted:
		response.ErrorWithHint(c, http.StatusForbidden, errcode.Exhausted, "view limit reached", "contact the document owner")
	case appErr.ReasonEmailMismatch:
		response.ErrorWithHint(c, http.StatusForbidden, errcode.EmailMismatch, "this link is restricted to another viewer", "use the invited email address")
	case appErr.ReasonExpired:
		response.Error(c, http.StatusGone, errcode.Expired, "share link expired")
	case appErr.ReasonDeactivated:
		response.Error(c, http.StatusGone, errcode.Deactivated, "share link deactivated")
	default:
		response.Error(c, http.StatusForbidden, errcode.Forbidden, "access denied")
	}
}
