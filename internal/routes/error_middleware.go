package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ErrorHandler turns the last error on the context into a response. Browsers get
// the error page, everything else JSON.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status := GetErrorStatus(err)
		info := GetErrorInfo(err)

		logger := slog.With(
			"request_id", c.GetString(RequestIDKey),
			"status", status,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		if status >= 500 {
			logger.Error("Request failed with server error", "error", err)
		} else {
			logger.Warn("Request failed with client error", "error", err)
		}

		if c.Writer.Written() {
			return
		}

		switch c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) {
		case gin.MIMEHTML:
			c.HTML(status, "error", gin.H{
				"Title":   http.StatusText(status),
				"Message": info.Message,
				"SiteURL": c.GetString(SiteURLKey),
			})
			c.Abort()
		default:
			c.AbortWithStatusJSON(status, errorResponse{
				OK:      false,
				Message: info.Message,
				Field:   info.Field,
				Code:    info.Code,
			})
		}
	}
}

// AbortWithError hands err to ErrorHandler and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
	c.Status(GetErrorStatus(err))
}
