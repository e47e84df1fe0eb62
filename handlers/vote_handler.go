package handlers

import (
	"errors"
	"net/http"

	"survey-backend/cache"
	"survey-backend/database"
	"survey-backend/service"

	"github.com/gin-gonic/gin"
)

// VoteInput defines the vote submission payload
type VoteInput struct {
	UserID  string   `json:"userId" binding:"required"`
	Choices []string `json:"choices" binding:"required"`
}

// SubmitVote replaces the user's vote set for a poll
func SubmitVote(c *gin.Context) {
	pollID := c.Param("id")

	var input VoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := service.SubmitVote(database.DB, pollID, input.UserID, input.Choices)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPollNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		case errors.Is(err, service.ErrPollClosed):
			c.JSON(http.StatusForbidden, gin.H{"error": "Poll is closed"})
		case errors.Is(err, service.ErrEmptyChoices),
			errors.Is(err, service.ErrUserNotFound),
			errors.Is(err, service.ErrInvalidChoices),
			errors.Is(err, service.ErrSingleChoiceRequired),
			errors.Is(err, service.ErrTooManyChoices):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			internalError(c, err)
		}
		return
	}

	cache.InvalidatePollResult(pollID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
