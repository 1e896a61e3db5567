package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	AvatarURL    string      `json:"avatarUrl"`
	PasswordHash string      `json:"-"`
	BlockedUsers []uuid.UUID `json:"blockedUsers"`
	Online       bool        `json:"online"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// HasBlocked reports whether id is on the user's own block list.
func (u *User) HasBlocked(id uuid.UUID) bool {
	return slices.Contains(u.BlockedUsers, id)
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}

// UserSummary is the public profile attached to sidebar entries and requests.
type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl"`
}

// Relation is the two-sided block state between a viewer and another user.
type Relation struct {
	IsBlocked   bool `json:"isBlocked"`
	IsBlockedBy bool `json:"isBlockedBy"`
}

func (r Relation) Either() bool {
	return r.IsBlocked || r.IsBlockedBy
}

// RelationBetween computes the relation as seen from viewer.
func RelationBetween(viewer, other *User) Relation {
	return Relation{
		IsBlocked:   viewer.HasBlocked(other.ID),
		IsBlockedBy: other.HasBlocked(viewer.ID),
	}
}

// BlockUpdate is pushed to both sides after a block toggle. Only one of the
// flags is set depending on the recipient.
type BlockUpdate struct {
	TargetUserID uuid.UUID `json:"targetUserId"`
	IsBlocked    *bool     `json:"isBlocked,omitempty"`
	IsBlockedBy  *bool     `json:"isBlockedBy,omitempty"`
}
