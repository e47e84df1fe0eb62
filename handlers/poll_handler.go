package handlers

import (
	"errors"
	"net/http"
	"time"

	"survey-backend/cache"
	"survey-backend/database"
	"survey-backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreatePollInput defines the expected input structure for creating a poll
type CreatePollInput struct {
	Title         string          `json:"title" binding:"required"`
	Description   string          `json:"description"`
	DeadlineISO   string          `json:"deadlineISO"`
	Type          models.PollType `json:"type" binding:"omitempty,oneof=single multi"`
	Variants      []string        `json:"variants" binding:"required,min=2,dive,required"`
	MaxSelections int             `json:"maxSelections"`
	IsAnonymous   *bool           `json:"isAnonymous"`
	OwnerUserID   *string         `json:"ownerUserId"`
}

// VariantResponse is one selectable option in API responses
type VariantResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// PollResponse is the API shape of a poll
type PollResponse struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	DeadlineISO   *string           `json:"deadlineISO,omitempty"`
	Type          models.PollType   `json:"type"`
	Variants      []VariantResponse `json:"variants"`
	MaxSelections int               `json:"maxSelections"`
	IsAnonymous   bool              `json:"isAnonymous"`
	OwnerUserID   *string           `json:"ownerUserId,omitempty"`
}

func serializePoll(p *models.Poll) PollResponse {
	variants := make([]VariantResponse, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = VariantResponse{ID: v.ID, Label: v.Label}
	}
	var deadline *string
	if p.Deadline != nil {
		iso := p.Deadline.UTC().Format(time.RFC3339)
		deadline = &iso
	}
	return PollResponse{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		DeadlineISO:   deadline,
		Type:          p.Type,
		Variants:      variants,
		MaxSelections: p.MaxSelections,
		IsAnonymous:   p.IsAnonymous,
		OwnerUserID:   p.OwnerUserID,
	}
}

func preloadVariants(db *gorm.DB) *gorm.DB {
	return db.Preload("Variants", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("poll_variants.position, poll_variants.created_at")
	})
}

// CreatePoll handles the creation of a new poll with its variants
func CreatePoll(c *gin.Context) {
	var input CreatePollInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pollType := input.Type
	if pollType == "" {
		pollType = models.SingleChoice
	}

	maxSelections := input.MaxSelections
	if maxSelections == 0 {
		maxSelections = 1
	}
	if pollType == models.MultiChoice && maxSelections < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "maxSelections must be >= 1 for multi polls"})
		return
	}

	if input.OwnerUserID != nil && *input.OwnerUserID != "" {
		var owner models.User
		if err := database.DB.First(&owner, "id = ?", *input.OwnerUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Owner user not found"})
				return
			}
			internalError(c, err)
			return
		}
	}

	var deadline *time.Time
	if input.DeadlineISO != "" {
		parsed, err := time.Parse(time.RFC3339, input.DeadlineISO)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deadline format"})
			return
		}
		utc := parsed.UTC()
		if !utc.After(time.Now().UTC()) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Deadline must be in the future"})
			return
		}
		deadline = &utc
	}

	isAnonymous := true
	if input.IsAnonymous != nil {
		isAnonymous = *input.IsAnonymous
	}

	poll := models.Poll{
		Title:         input.Title,
		Description:   input.Description,
		Deadline:      deadline,
		Type:          pollType,
		MaxSelections: maxSelections,
		IsAnonymous:   isAnonymous,
		OwnerUserID:   input.OwnerUserID,
	}

	// Poll and variants are created atomically
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&poll).Error; err != nil {
			return err
		}
		for i, label := range input.Variants {
			variant := models.PollVariant{
				PollID:   poll.ID,
				Label:    label,
				Position: i,
			}
			if err := tx.Create(&variant).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		internalError(c, err)
		return
	}

	var created models.Poll
	if err := preloadVariants(database.DB).First(&created, "id = ?", poll.ID).Error; err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, serializePoll(&created))
}

// GetPolls retrieves all polls
func GetPolls(c *gin.Context) {
	var polls []models.Poll
	if err := preloadVariants(database.DB).Order("created_at desc").Find(&polls).Error; err != nil {
		internalError(c, err)
		return
	}
	responses := make([]PollResponse, len(polls))
	for i := range polls {
		responses[i] = serializePoll(&polls[i])
	}
	c.JSON(http.StatusOK, responses)
}

// GetPoll retrieves a single poll by ID
func GetPoll(c *gin.Context) {
	var poll models.Poll
	if err := preloadVariants(database.DB).First(&poll, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializePoll(&poll))
}

// DeletePoll removes a poll with its variants and votes. Admin only.
func DeletePoll(c *gin.Context) {
	pollID := c.Param("id")

	var poll models.Poll
	if err := database.DB.First(&poll, "id = ?", pollID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		internalError(c, err)
		return
	}

	user, ok := requireUser(c)
	if !ok {
		return
	}
	if user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", pollID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", pollID).Delete(&models.PollVariant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&poll).Error
	})
	if err != nil {
		internalError(c, err)
		return
	}

	cache.InvalidatePollResult(pollID)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Poll deleted successfully"})
}
