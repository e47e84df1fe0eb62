package handlers

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"survey-backend/auth"
	"survey-backend/database"
	"survey-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisterInput defines the expected input for user registration
type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

// Register creates a password-based account. The user table is reconciled
// first so legacy databases pick up the auth columns before the insert.
func Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := database.Reconcile(database.DB); err != nil {
		log.Printf("Schema reconciliation failed during registration: %v", err)
		internalError(c, err)
		return
	}

	var existing models.User
	err := database.DB.Where("email = ? OR username = ?", input.Email, input.Username).
		First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email or username already exists"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		internalError(c, err)
		return
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if role == models.RoleAdmin {
		adminSecret := os.Getenv("ADMIN_SECRET")
		if adminSecret != "" {
			if c.GetHeader("X-Admin-Token") != adminSecret {
				c.JSON(http.StatusForbidden, gin.H{"error": "Admin token is invalid or missing"})
				return
			}
		} else {
			var adminCount int64
			if err := database.DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&adminCount).Error; err != nil {
				internalError(c, err)
				return
			}
			// without a configured secret only the first admin may self-register
			if adminCount > 0 {
				c.JSON(http.StatusForbidden, gin.H{"error": "Admin registration disabled"})
				return
			}
		}
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		internalError(c, err)
		return
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		Name:         input.Name,
		Role:         role,
		PasswordHash: hashed,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email or username already exists"})
			return
		}
		internalError(c, err)
		return
	}

	log.Printf("Registered new user %s (%s)", user.ID, user.Email)
	c.JSON(http.StatusCreated, serializeUser(&user))
}

// LoginInput defines the expected input for login
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and returns the user profile
func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := database.Reconcile(database.DB); err != nil {
		log.Printf("Schema reconciliation failed during login: %v", err)
		internalError(c, err)
		return
	}

	var user models.User
	err := database.DB.First(&user, "username = ?", input.Username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		internalError(c, err)
		return
	}
	if !auth.VerifyPassword(input.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	log.Printf("User %s logged in", user.ID)
	c.JSON(http.StatusOK, serializeUser(&user))
}

// GetProfile returns the authenticated user's profile
func GetProfile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, serializeUser(user))
}

// UpdateProfileInput defines the updatable profile fields
type UpdateProfileInput struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Name     *string `json:"name"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}

// UpdateProfile applies partial changes to the authenticated user
func UpdateProfile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changed := false

	if input.Email != nil && *input.Email != "" && *input.Email != user.Email {
		var other models.User
		err := database.DB.Where("email = ? AND id <> ?", *input.Email, user.ID).First(&other).Error
		if err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			internalError(c, err)
			return
		}
		user.Email = *input.Email
		changed = true
	}

	if input.Name != nil && *input.Name != "" && *input.Name != user.Name {
		user.Name = *input.Name
		changed = true
	}

	if input.Password != nil && *input.Password != "" {
		hashed, err := auth.HashPassword(*input.Password)
		if err != nil {
			internalError(c, err)
			return
		}
		user.PasswordHash = hashed
		changed = true
	}

	if changed {
		if err := database.DB.Save(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
				return
			}
			internalError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, serializeUser(user))
}

// UploadAvatar stores a new avatar image and updates the user's avatar URL
func UploadAvatar(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}

	var ext string
	switch file.Header.Get("Content-Type") {
	case "image/png":
		ext = ".png"
	case "image/jpeg", "image/jpg":
		ext = ".jpg"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type"})
		return
	}

	avatarDir := filepath.Join(staticDir(), "avatars")
	if err := os.MkdirAll(avatarDir, 0o755); err != nil {
		internalError(c, err)
		return
	}

	// remove the previous avatar file if present
	if user.AvatarURL != nil {
		oldName := filepath.Base(strings.SplitN(*user.AvatarURL, "?", 2)[0])
		if oldName != "" && oldName != "." && oldName != "/" {
			oldPath := filepath.Join(avatarDir, oldName)
			if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
				log.Printf("Failed to remove old avatar %s: %v", oldPath, err)
			}
		}
	}

	filename := user.ID + "_" + strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	if err := c.SaveUploadedFile(file, filepath.Join(avatarDir, filename)); err != nil {
		internalError(c, err)
		return
	}

	avatarURL := "/static/avatars/" + filename
	user.AvatarURL = &avatarURL
	if err := database.DB.Save(user).Error; err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializeUser(user))
}

// staticDir returns the root directory for served static files
func staticDir() string {
	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		return dir
	}
	return "static"
}
