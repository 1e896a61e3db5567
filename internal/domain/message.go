package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageContent is the user-supplied part of a message. At least one field
// must be non-empty.
type MessageContent struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
	VideoURL string `json:"videoUrl,omitempty"`
}

func (c MessageContent) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == "" && c.ImageURL == "" && c.VideoURL == ""
}

type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversationId"`
	MessageContent
	MsgByUserID uuid.UUID `json:"msgByUserId"`
	Seen        bool      `json:"seen"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewMessage(conversationID, authorID uuid.UUID, content MessageContent) *Message {
	return &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		MessageContent: content,
		MsgByUserID:    authorID,
		CreatedAt:      time.Now().UTC(),
	}
}
