package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Interaction kinds.
const (
	InteractionLike    = "like"
	InteractionDislike = "dislike"
)

// Match states. Blocked is modeled and gates chat/discovery eligibility,
// but no transition into it is exposed yet.
const (
	MatchActive  = "active"
	MatchBlocked = "blocked"
)

// User table
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	FirstName    string `gorm:"size:64"`
	LastName     string `gorm:"size:64"`
	Bio          string `gorm:"size:500"`
	Major        string `gorm:"size:128"`
	Campus       string `gorm:"size:128"`
	Age          int
	Active       bool // no default tag: gorm would drop an explicit false on insert
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Interaction records a one-directional swipe from actor toward target.
//
// Unique index: idx_interaction_pair(actor_id, target_id)
//   - At most one row per ordered pair, ever. There is no overwrite path;
//     a second swipe on the same target fails with a duplicate-key error.
//
// Rows are never mutated; they are deleted only by the account-deletion
// cascade.
type Interaction struct {
	ID        string    `gorm:"primaryKey;size:36"`
	ActorID   string    `gorm:"size:36;not null;uniqueIndex:idx_interaction_pair,priority:1;index"`
	TargetID  string    `gorm:"size:36;not null;uniqueIndex:idx_interaction_pair,priority:2"`
	Kind      string    `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (i *Interaction) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Match is a confirmed bidirectional connection between two users.
//
// Unique index: idx_match_pair(user_a, user_b)
//   - Unordered-pair uniqueness is obtained by normalizing the pair before
//     insert (user_a < user_b lexicographically, see NormalizePair), so the
//     storage layer serializes concurrent creations on one ordered key.
type Match struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserA     string    `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:1;index"`
	UserB     string    `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:2;index"`
	Status    string    `gorm:"size:16;not null;default:active"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (m *Match) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Has reports whether userID is one of the match participants.
func (m *Match) Has(userID string) bool {
	return m.UserA == userID || m.UserB == userID
}

// Partner returns the other participant of the match.
func (m *Match) Partner(userID string) string {
	if m.UserA == userID {
		return m.UserB
	}
	return m.UserA
}

// NormalizePair orders two user IDs into the canonical (UserA, UserB) form.
func NormalizePair(x, y string) (string, string) {
	if x < y {
		return x, y
	}
	return y, x
}

// Message belongs to the match it was sent in.
type Message struct {
	ID          string    `gorm:"primaryKey;size:36"`
	SenderID    string    `gorm:"size:36;not null;index"`
	RecipientID string    `gorm:"size:36;not null;index"`
	MatchID     string    `gorm:"size:36;not null;index:idx_message_match_created,priority:1"`
	Content     string    `gorm:"size:1000;not null"`
	Read        bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_message_match_created,priority:2,sort:desc"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
