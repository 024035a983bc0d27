package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware 日志中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		log.Printf("[%s] %s %s | Status: %d | Latency: %v | Request: %s",
			c.Request.Method,
			path,
			query,
			c.Writer.Status(),
			latency,
			c.GetString("request_id"),
		)
	}
}
