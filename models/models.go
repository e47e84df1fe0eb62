package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PollType defines the selection policy of a poll
type PollType string

const (
	SingleChoice PollType = "single" // exactly one choice per vote
	MultiChoice  PollType = "multi"  // up to MaxSelections choices per vote
)

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a registered account. The password hash is never serialized.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"size:191;not null;uniqueIndex:uq_users_username" json:"username"`
	Email        string    `gorm:"size:191;not null;uniqueIndex:uq_users_email" json:"email"`
	Name         string    `gorm:"not null" json:"name"`
	Role         string    `gorm:"size:16;not null;default:user" json:"role"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
}

// BeforeCreate assigns a UUID primary key when none was provided
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Poll represents a survey question with an ordered set of variants
type Poll struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	Title         string        `gorm:"not null" json:"title"`
	Description   string        `gorm:"type:text" json:"description"`
	Deadline      *time.Time    `json:"deadline,omitempty"` // UTC; nil means the poll never closes
	Type          PollType      `gorm:"size:16;not null;default:single" json:"type"`
	MaxSelections int           `gorm:"default:1" json:"max_selections"` // meaningful only for multi polls
	IsAnonymous   bool          `gorm:"default:true" json:"is_anonymous"`
	CreatedAt     time.Time     `json:"created_at"`
	OwnerUserID   *string       `gorm:"size:36" json:"owner_user_id,omitempty"`
	Variants      []PollVariant `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE" json:"variants"`
	Votes         []Vote        `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE" json:"-"`
}

func (p *Poll) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IsClosed reports whether the poll deadline has passed
func (p *Poll) IsClosed(now time.Time) bool {
	return p.Deadline != nil && now.After(*p.Deadline)
}

// PollVariant is one selectable option of a poll. Variants are created
// atomically with their poll and removed only by the poll's cascade delete.
// Position preserves creation order; UUID keys carry no ordering of their own.
type PollVariant struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PollID    string    `gorm:"size:36;not null;index" json:"poll_id"`
	Label     string    `gorm:"not null" json:"label"`
	Position  int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (v *PollVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// Vote records that a user selected a variant of a poll. The composite unique
// index allows one row per (poll, user, variant); the full vote set of a user
// is replaced on every submission. UserID carries no foreign key on purpose:
// deleting a user keeps their votes.
type Vote struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PollID    string    `gorm:"size:36;not null;uniqueIndex:unique_user_poll_variant" json:"poll_id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:unique_user_poll_variant;index" json:"user_id"`
	VariantID string    `gorm:"size:36;not null;uniqueIndex:unique_user_poll_variant" json:"variant_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
