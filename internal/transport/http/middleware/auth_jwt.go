package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"siteforge/internal/core/auth"
	resp "siteforge/internal/transport/http/response"
)

// AuthJWT 解析 Bearer 凭证并把 userId 写入上下文；后续 handler 只认 userId
func AuthJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		c.Set("userId", claims.UID)
		c.Next()
	}
}
