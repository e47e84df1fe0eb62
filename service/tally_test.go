package service

import (
	"fmt"
	"testing"

	"survey-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory SQLite database
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.Poll{}, &models.PollVariant{}, &models.Vote{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, name string) models.User {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com", Name: name, Role: models.RoleUser, PasswordHash: "x"}
	assert.NoError(t, db.Create(&user).Error)
	return user
}

func seedPoll(t *testing.T, db *gorm.DB, pollType models.PollType, isAnonymous bool, maxSelections int, labels ...string) models.Poll {
	t.Helper()
	poll := models.Poll{Title: "Seed Poll", Type: pollType, MaxSelections: maxSelections, IsAnonymous: isAnonymous}
	assert.NoError(t, db.Create(&poll).Error)
	for i, label := range labels {
		variant := models.PollVariant{PollID: poll.ID, Label: label, Position: i}
		assert.NoError(t, db.Create(&variant).Error)
		poll.Variants = append(poll.Variants, variant)
	}
	return poll
}

func TestBuildPollResult_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := BuildPollResult(db, "missing")
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestBuildPollResult_EmptyPoll(t *testing.T) {
	db := newTestDB(t)
	poll := seedPoll(t, db, models.SingleChoice, false, 1, "A", "B")

	result, err := BuildPollResult(db, poll.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), result.Total)
	assert.Equal(t, int64(0), result.TotalVoters)
	assert.Len(t, result.Results, 2)
	assert.Equal(t, int64(0), result.Results[0].Count)
	assert.Empty(t, result.Results[0].Voters)
}

func TestBuildPollResult_MultiSelectDoubleCount(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, "multi", "Multi Voter")
	poll := seedPoll(t, db, models.MultiChoice, true, 2, "A", "B")

	assert.NoError(t, SubmitVote(db, poll.ID, u.ID, []string{poll.Variants[0].ID, poll.Variants[1].ID}))

	result, err := BuildPollResult(db, poll.ID)
	assert.NoError(t, err)
	// total counts selections, not voters
	assert.Equal(t, int64(2), result.Total)
	assert.Equal(t, int64(1), result.TotalVoters)
}

func TestBuildPollResult_VoterDisclosure(t *testing.T) {
	db := newTestDB(t)
	named := seedUser(t, db, "named", "Grace Hopper")
	unnamed := models.User{Username: "noname", Email: "noname@example.com", Role: models.RoleUser, PasswordHash: "x"}
	assert.NoError(t, db.Create(&unnamed).Error)
	poll := seedPoll(t, db, models.SingleChoice, false, 1, "A", "B")

	assert.NoError(t, SubmitVote(db, poll.ID, named.ID, []string{poll.Variants[0].ID}))
	assert.NoError(t, SubmitVote(db, poll.ID, unnamed.ID, []string{poll.Variants[0].ID}))

	result, err := BuildPollResult(db, poll.ID)
	assert.NoError(t, err)
	assert.Len(t, result.Results[0].Voters, 2)

	// display name prefers the full name, falls back to the username
	assert.Equal(t, "Grace Hopper", result.Results[0].Voters[0].Username)
	assert.Equal(t, "noname", result.Results[0].Voters[1].Username)

	// every disclosed voter actually voted for that variant
	for _, voter := range result.Results[0].Voters {
		var count int64
		db.Model(&models.Vote{}).
			Where("poll_id = ? AND user_id = ? AND variant_id = ?", poll.ID, voter.ID, poll.Variants[0].ID).
			Count(&count)
		assert.Equal(t, int64(1), count)
	}
}

func TestRenderResultCSV(t *testing.T) {
	result := &PollResult{
		PollID:      "p1",
		Total:       3,
		IsAnonymous: false,
		Results: []ResultItem{
			{ID: "v1", Label: "Tea", Count: 2, Voters: []PublicVoter{
				{ID: "u1", Name: "Ada", Username: "Ada"},
				{ID: "u2", Username: "grace"},
			}},
			{ID: "v2", Label: "Coffee", Count: 1, Voters: []PublicVoter{{ID: "u3", Name: "Linus", Username: "Linus"}}},
			{ID: "v3", Label: "Water", Count: 0},
		},
	}

	body, err := RenderResultCSV(result)
	assert.NoError(t, err)

	csv := string(body)
	lines := []string{
		"Вариант,Количество голосов,Голосовали",
		"Tea,2,\"Ada, grace\"",
		"Coffee,1,Linus",
		"Water,0,—",
	}
	for _, line := range lines {
		assert.Contains(t, csv, line)
	}
}

func TestRenderResultCSV_AnonymousPlaceholders(t *testing.T) {
	result := &PollResult{
		PollID:      "p1",
		IsAnonymous: true,
		Results: []ResultItem{
			{ID: "v1", Label: "Yes", Count: 5},
			{ID: "v2", Label: "No", Count: 2},
		},
	}

	body, err := RenderResultCSV(result)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "Yes,5,—")
	assert.Contains(t, string(body), "No,2,—")
}

func TestResultCSVFilename(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Team Lunch 2024", "Team_Lunch_2024-results.csv"},
		{"what? really!", "what_really-results.csv"},
		{"under_score-dash", "under_score-dash-results.csv"},
		{"Опрос", "results.csv"}, // non-ASCII stripped, fallback
		{"", "results.csv"},
		{"///", "results.csv"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, ResultCSVFilename(tc.title), "title %q", tc.title)
	}
}
