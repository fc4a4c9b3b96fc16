package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const anonymousUser = "anonymous"

// NoAuth lets every request through as the anonymous user
func NoAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id_str", anonymousUser)
		c.Next()
	}
}

// GatewayAuth trusts user info from gateway headers (X-User-ID, X-User-Email, X-User-Role).
// It is used when the API runs behind a gateway that validates sessions.
//
// When AUTH_MODE=gateway, the API trusts these headers unconditionally.
// This should ONLY be used in the hosted environment with proper network isolation.
func GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Missing X-User-ID header from gateway",
			})
			c.Abort()
			return
		}

		c.Set("user_id_str", userID)
		c.Set("user_email", c.GetHeader("X-User-Email"))
		c.Set("user_role", c.GetHeader("X-User-Role"))
		c.Next()
	}
}

// Auth selects the authentication middleware for the configured mode
func Auth(gatewayMode bool) gin.HandlerFunc {
	if gatewayMode {
		return GatewayAuth()
	}
	return NoAuth()
}

// GetUserIDFromGateway retrieves the user ID set by the auth middleware
func GetUserIDFromGateway(c *gin.Context) (string, bool) {
	id := c.GetString("user_id_str")
	return id, id != ""
}
