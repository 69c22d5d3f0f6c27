package middleware

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the portal frontend to call the API. Allowed
// origins come from ALLOWED_ORIGINS (comma separated); empty means any
// origin (development).
func CORSMiddleware() gin.HandlerFunc {
	allowed := strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowOrigin := "*"
		if len(allowed) > 0 && allowed[0] != "" {
			allowOrigin = ""
			for _, candidate := range allowed {
				if strings.TrimSpace(candidate) == origin {
					allowOrigin = origin
					break
				}
			}
		}
		if allowOrigin != "" {
			c.Header("Access-Control-Allow-Origin", allowOrigin)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
