package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bp-admin-api/pkg/httputil"
)

const ReasonBodyTooLarge = "body_too_large"

// BodyLimit rejects requests that declare a body larger than maxBytes and
// caps the reader for those that don't declare one. A non-positive limit
// disables the check.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httputil.Response{
				Success: false,
				Error: &httputil.Error{
					Code:    http.StatusRequestEntityTooLarge,
					Reason:  ReasonBodyTooLarge,
					Message: fmt.Sprintf("request body exceeds %d bytes", maxBytes),
				},
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
