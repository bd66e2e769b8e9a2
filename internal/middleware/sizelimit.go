package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labtrail/labtrail/internal/handler"
)

// SizeLimit rejects requests whose declared length exceeds maxBytes and caps
// the body reader at the same bound for requests without a declared length.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				handler.NewErrorResponse("request body exceeds size limit"))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
