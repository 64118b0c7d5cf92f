package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/taskrank-backend-go/pkg/response"
)

// BodyLimit caps request bodies at maxBytes. Requests that declare a larger
// Content-Length are refused up front; others fail when the handler reads
// past the limit. maxBytes <= 0 disables the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.Abort(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
