package service

import (
	"errors"
	"fmt"
	"time"

	"survey-backend/models"

	"gorm.io/gorm"
)

// SubmitVote atomically replaces the user's vote set for a poll: validation
// first, then delete-old plus insert-new inside a single transaction so a
// partial replacement is never observable.
func SubmitVote(db *gorm.DB, pollID, userID string, choices []string) error {
	var poll models.Poll
	err := db.Preload("Variants").First(&poll, "id = ?", pollID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPollNotFound
		}
		return err
	}

	if len(choices) == 0 {
		return ErrEmptyChoices
	}

	if poll.IsClosed(time.Now().UTC()) {
		return ErrPollClosed
	}

	var voter models.User
	if err := db.First(&voter, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	variantIDs := make(map[string]bool, len(poll.Variants))
	for _, v := range poll.Variants {
		variantIDs[v.ID] = true
	}
	var invalid []string
	for _, c := range choices {
		if !variantIDs[c] {
			invalid = append(invalid, c)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidChoices, invalid)
	}

	// dedupe, keeping first-occurrence order
	seen := make(map[string]bool, len(choices))
	unique := make([]string, 0, len(choices))
	for _, c := range choices {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}

	if poll.Type == models.SingleChoice && len(unique) != 1 {
		return ErrSingleChoiceRequired
	}
	if poll.Type == models.MultiChoice && len(unique) > poll.MaxSelections {
		return fmt.Errorf("%w: max %d", ErrTooManyChoices, poll.MaxSelections)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("poll_id = ? AND user_id = ?", pollID, userID).
			Delete(&models.Vote{}).Error
		if err != nil {
			return err
		}
		for _, choiceID := range unique {
			vote := models.Vote{
				PollID:    pollID,
				UserID:    userID,
				VariantID: choiceID,
			}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
