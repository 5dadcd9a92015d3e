package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"beamchat/backend/internal/auth"
)

// ContextUserIDKey is where the authenticated user ID lands in the gin
// context.
const ContextUserIDKey = "user_id"

// Auth rejects requests without a valid bearer token and stores the token's
// user ID for the handlers.
func Auth(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
			return
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user ID set by Auth.
func UserID(c *gin.Context) string {
	id, _ := c.Get(ContextUserIDKey)
	s, _ := id.(string)
	return s
}

// bearerToken pulls the token from the Authorization header, falling back
// to the token query parameter for browser WebSocket clients that cannot
// set headers on the upgrade request.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
