package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserAuth validates the customer bearer token and injects the
// authenticated user id into the request context. Tokens without a
// usable userId claim are rejected even when the signature checks out.
func UserAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, secret)
		if !ok {
			return
		}

		userID, ok := customerIDFromClaims(claims)
		if !ok {
			log.Println("[AUTH] [ERROR] userId claim missing or invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set("userId", userID)
		c.Next()
	}
}
