package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ambermind/chat-controller/internal/api/dto"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
)

// Recovery converts a handler panic into a 500 without dropping the
// connection. The request-scoped logger carries the request ID, so the
// panic can be matched to the access log line.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger := GetRequestLogger(c)
				logger.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("handler panicked")

				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
					Code:    "INTERNAL_ERROR",
					Message: "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// HandleError writes the HTTP rendering of an error and aborts the
// request. Domain errors carry their own status and code; anything else
// is logged and returned as an opaque 500.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if domainErr, ok := domainerrors.GetDomainError(err); ok {
		c.AbortWithStatusJSON(domainErr.HTTPStatus, dto.ErrorResponse{
			Code:    domainErr.Code,
			Message: domainErr.Message,
			Details: domainErr.Details,
		})
		return
	}

	logger := GetRequestLogger(c)
	logger.Error().Err(err).Msg("unhandled error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
	})
}

// NotFound handles requests for unknown routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Code:    domainerrors.ErrCodeNotFound,
			Message: "resource not found",
			Details: c.Request.URL.Path,
		})
	}
}

// MethodNotAllowed handles requests with an unsupported method.
func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.ErrorResponse{
			Code:    "METHOD_NOT_ALLOWED",
			Message: "method not allowed",
			Details: c.Request.Method,
		})
	}
}
