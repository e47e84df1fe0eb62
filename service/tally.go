package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strconv"
	"strings"

	"survey-backend/models"

	"gorm.io/gorm"
)

// PublicVoter is the identity disclosed per variant for non-anonymous polls
type PublicVoter struct {
	ID        string  `json:"id"`
	Username  string  `json:"username,omitempty"`
	Name      string  `json:"name,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// ResultItem aggregates one variant. Voters is nil (and absent from JSON)
// for anonymous polls.
type ResultItem struct {
	ID     string        `json:"id"`
	Label  string        `json:"label"`
	Count  int64         `json:"count"`
	Voters []PublicVoter `json:"voters,omitempty"`
}

// PollResult is the aggregate view of all votes cast for a poll. Total counts
// (voter, variant) selections, so multi polls count a voter once per picked
// variant; TotalVoters carries the distinct voter count.
type PollResult struct {
	PollID      string       `json:"pollId"`
	Total       int64        `json:"total"`
	Results     []ResultItem `json:"results"`
	IsAnonymous bool         `json:"isAnonymous"`
	TotalVoters int64        `json:"totalVoters"`
	// ParticipationRate is a known stub: without an invitee roster there is
	// nothing to divide by, so it stays at 100.
	ParticipationRate float64 `json:"participationRate"`
}

// BuildPollResult computes the tally for a poll. Read-only. Variants appear
// in creation order, zero-vote variants included; voter lists follow vote
// creation order.
func BuildPollResult(db *gorm.DB, pollID string) (*PollResult, error) {
	var poll models.Poll
	err := db.Preload("Variants", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("poll_variants.position, poll_variants.created_at")
	}).First(&poll, "id = ?", pollID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, err
	}

	var countRows []struct {
		VariantID string
		Count     int64
	}
	err = db.Model(&models.Vote{}).
		Select("variant_id, COUNT(*) AS count").
		Where("poll_id = ?", pollID).
		Group("variant_id").
		Scan(&countRows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(countRows))
	var total int64
	for _, row := range countRows {
		counts[row.VariantID] = row.Count
		total += row.Count
	}

	var totalVoters int64
	err = db.Model(&models.Vote{}).
		Where("poll_id = ?", pollID).
		Distinct("user_id").
		Count(&totalVoters).Error
	if err != nil {
		return nil, err
	}

	voterMap := make(map[string][]PublicVoter)
	if !poll.IsAnonymous {
		var details []struct {
			VariantID string
			UserID    string
			Username  string
			Name      string
			AvatarURL *string
		}
		err = db.Table("votes").
			Select("votes.variant_id, users.id AS user_id, users.username, users.name, users.avatar_url").
			Joins("JOIN users ON users.id = votes.user_id").
			Where("votes.poll_id = ?", pollID).
			Order("votes.created_at, votes.id").
			Scan(&details).Error
		if err != nil {
			return nil, err
		}

		for _, d := range details {
			display := d.Name
			if display == "" {
				display = d.Username
			}
			voterMap[d.VariantID] = append(voterMap[d.VariantID], PublicVoter{
				ID:        d.UserID,
				Username:  display,
				Name:      d.Name,
				AvatarURL: d.AvatarURL,
			})
		}
	}

	items := make([]ResultItem, 0, len(poll.Variants))
	for _, v := range poll.Variants {
		item := ResultItem{
			ID:    v.ID,
			Label: v.Label,
			Count: counts[v.ID],
		}
		if !poll.IsAnonymous {
			item.Voters = voterMap[v.ID]
		}
		items = append(items, item)
	}

	return &PollResult{
		PollID:            pollID,
		Total:             total,
		Results:           items,
		IsAnonymous:       poll.IsAnonymous,
		TotalVoters:       totalVoters,
		ParticipationRate: 100.0,
	}, nil
}

// csvPlaceholder fills the voters column when nothing may be disclosed
const csvPlaceholder = "—"

// RenderResultCSV renders a tally as delimited text: one row per variant,
// voters joined by comma when disclosed, a dash otherwise.
func RenderResultCSV(result *PollResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Вариант", "Количество голосов", "Голосовали"}); err != nil {
		return nil, err
	}
	for _, item := range result.Results {
		voters := csvPlaceholder
		if !result.IsAnonymous && len(item.Voters) > 0 {
			names := make([]string, 0, len(item.Voters))
			for _, v := range item.Voters {
				name := strings.TrimSpace(v.Name)
				if name == "" {
					name = strings.TrimSpace(v.Username)
				}
				if name != "" {
					names = append(names, name)
				}
			}
			if len(names) > 0 {
				voters = strings.Join(names, ", ")
			}
		}
		if err := w.Write([]string{item.Label, strconv.FormatInt(item.Count, 10), voters}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ResultCSVFilename derives an attachment filename from the poll title:
// ASCII alphanumerics, hyphen and underscore survive, spaces become
// underscores, anything else is dropped.
func ResultCSVFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r > 127:
			// ASCII only
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	safe := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	if safe == "" {
		return "results.csv"
	}
	return safe + "-results.csv"
}
