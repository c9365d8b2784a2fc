package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"social-service/internal/middleware"
	"social-service/internal/models"
	"social-service/internal/observability"
)

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(observability.RequestIDKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(observability.RequestIDKey, requestID)
	return requestID
}

// currentUser extracts the acting account the auth middleware resolved.
// Writes the 401 response itself when the principal is missing.
func currentUser(c *gin.Context) (models.User, bool) {
	val, ok := c.Get(middleware.CurrentUserKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return models.User{}, false
	}
	user, ok := val.(models.User)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return models.User{}, false
	}
	return user, true
}

func auditUserID(user models.User) *string {
	if user.Email == "" {
		return nil
	}
	email := user.Email
	return &email
}
