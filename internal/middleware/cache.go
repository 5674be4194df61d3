package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// CacheControl sets the Cache-Control header for responses. scope is
// "public" or "private"; authenticated catalog reads use "private".
func CacheControl(scope string, maxAgeSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", fmt.Sprintf("%s, max-age=%d", scope, maxAgeSeconds))
		c.Next()
	}
}
