package handlers

import (
	"errors"
	"log"
	"net/http"

	"survey-backend/database"
	"survey-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserResponse is the public view of a user, password hash excluded
type UserResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	Username  string  `json:"username,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

func serializeUser(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
}

// requireUser resolves the X-User-ID header to a user or answers 401
func requireUser(c *gin.Context) (*models.User, bool) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user context"})
		return nil, false
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user"})
		} else {
			internalError(c, err)
		}
		return nil, false
	}
	return &user, true
}

// internalError reports an unexpected failure. Storage connectivity problems
// map to 503; everything else gets a correlation id that is logged server
// side and returned opaquely to the caller.
func internalError(c *gin.Context, err error) {
	if database.IsUnavailable(err) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database unavailable"})
		return
	}
	errorID := uuid.NewString()
	log.Printf("Unhandled error %s for %s %s: %v", errorID, c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":    "Internal server error. Check server logs with error_id for details.",
		"error_id": errorID,
	})
}
