package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"
)

// RequestID tags each request with an id, reusing a client-supplied one. The
// id is also attached to a request-scoped logger so zerolog.Ctx picks it up.
func RequestID(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderXRequestID)
		if rid == "" || len(rid) > 128 {
			rid = uuid.New().String()
		}

		c.Set(ContextRequestID, rid)
		c.Header(HeaderXRequestID, rid)

		scoped := logger.With().Str("request_id", rid).Logger()
		c.Request = c.Request.WithContext(scoped.WithContext(c.Request.Context()))
		c.Next()
	}
}
