package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per request with status, latency and the request ID
// assigned by the audit middleware.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		requestID := c.GetString(ContextRequestID)
		if requestID == "" {
			requestID = "-"
		}

		log.Printf("[Hub] %s %s %d %v rid=%s %s",
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start),
			requestID,
			c.Errors.String(),
		)
	}
}
