package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// RecoveryMiddleware 捕获 handler 中的 panic，返回 500
// 错误体与 handler.Error 一致，请求 ID 写入日志便于对照
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[%s] %s panic: %v | Request: %s\n%s",
					c.Request.Method, c.Request.URL.Path, rec, c.GetString("request_id"), debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code": http.StatusInternalServerError,
					"msg":  "internal server error",
				})
			}
		}()
		c.Next()
	}
}
