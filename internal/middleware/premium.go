package middleware

import (
	"net/http"

	"propdesk/internal/repository"

	"github.com/gin-gonic/gin"
)

// PremiumRequired gates the full board and backtesting behind the premium
// entitlement. The flag is read from the database, not the token, so a
// webhook-driven change takes effect on the next request.
func PremiumRequired(users *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		u, err := users.GetByID(userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !u.IsPremium {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "premium subscription required"})
			return
		}
		c.Next()
	}
}
