package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Conversation is the established channel between two users. SenderID and
// ReceiverID keep who opened it; UserLow/UserHigh is the canonical pair the
// store keys uniqueness on.
type Conversation struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender"`
	ReceiverID uuid.UUID `json:"receiver"`
	UserLow    uuid.UUID `json:"-"`
	UserHigh   uuid.UUID `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func NewConversation(senderID, receiverID uuid.UUID) *Conversation {
	low, high := OrderedPair(senderID, receiverID)
	now := time.Now().UTC()
	return &Conversation{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		UserLow:    low,
		UserHigh:   high,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Counterpart returns the participant that is not userID.
func (c *Conversation) Counterpart(userID uuid.UUID) uuid.UUID {
	if c.SenderID == userID {
		return c.ReceiverID
	}
	return c.SenderID
}

// OrderedPair returns the two ids in canonical order. Byte order matches the
// order of the canonical string form.
func OrderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

// PairKey is the string form of an unordered pair.
func PairKey(a, b uuid.UUID) string {
	low, high := OrderedPair(a, b)
	return low.String() + ":" + high.String()
}

// SidebarEntry is one row of a user's conversation list.
type SidebarEntry struct {
	ConversationID uuid.UUID   `json:"conversationId"`
	Counterpart    UserSummary `json:"counterpart"`
	UnseenCount    int         `json:"unseenCount"`
	LastMessage    *Message    `json:"lastMessage,omitempty"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// SortTime is the ordering key of an entry.
func (e *SidebarEntry) SortTime() time.Time {
	if !e.UpdatedAt.IsZero() {
		return e.UpdatedAt
	}
	if e.LastMessage != nil {
		return e.LastMessage.CreatedAt
	}
	return time.Time{}
}
