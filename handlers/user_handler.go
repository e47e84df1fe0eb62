package handlers

import (
	"errors"
	"net/http"
	"strings"

	"survey-backend/auth"
	"survey-backend/database"
	"survey-backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateUserInput is the legacy user creation payload (no password). Prefer
// POST /auth/register; this endpoint assigns the default credential.
type CreateUserInput struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
	Role  string `json:"role" binding:"omitempty,oneof=admin user"`
}

// CreateUser handles the legacy user creation endpoint
func CreateUser(c *gin.Context) {
	var input CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.User
	err := database.DB.First(&existing, "email = ?", input.Email).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
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

	hashed, err := auth.HashPassword(auth.DefaultPassword)
	if err != nil {
		internalError(c, err)
		return
	}

	user := models.User{
		Username:     strings.SplitN(input.Email, "@", 2)[0],
		Email:        input.Email,
		Name:         input.Name,
		Role:         role,
		PasswordHash: hashed,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, serializeUser(&user))
}

// ListUsers returns all users
func ListUsers(c *gin.Context) {
	var users []models.User
	if err := database.DB.Find(&users).Error; err != nil {
		internalError(c, err)
		return
	}
	responses := make([]UserResponse, len(users))
	for i := range users {
		responses[i] = serializeUser(&users[i])
	}
	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user by ID
func GetUser(c *gin.Context) {
	var user models.User
	if err := database.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializeUser(&user))
}
