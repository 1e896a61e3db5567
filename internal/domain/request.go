package domain

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// MessageRequest gates the first contact between two users. Requests are
// never deleted; accepted and rejected are terminal.
type MessageRequest struct {
	ID           uuid.UUID      `json:"id"`
	SenderID     uuid.UUID      `json:"senderId"`
	ReceiverID   uuid.UUID      `json:"receiverId"`
	Status       RequestStatus  `json:"status"`
	FirstMessage MessageContent `json:"firstMessage"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`

	// Joined
	Sender *UserSummary `json:"sender,omitempty"`
}

func NewMessageRequest(senderID, receiverID uuid.UUID, first MessageContent) *MessageRequest {
	now := time.Now().UTC()
	return &MessageRequest{
		ID:           uuid.New(),
		SenderID:     senderID,
		ReceiverID:   receiverID,
		Status:       RequestPending,
		FirstMessage: first,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Counterpart returns the participant that is not userID.
func (r *MessageRequest) Counterpart(userID uuid.UUID) uuid.UUID {
	if r.SenderID == userID {
		return r.ReceiverID
	}
	return r.SenderID
}

// PeerPage describes another user as shown when a chat page is opened.
type PeerPage struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name,omitempty"`
	Email          string    `json:"email,omitempty"`
	AvatarURL      string    `json:"avatarUrl,omitempty"`
	Online         bool      `json:"online"`
	IsDeleted      bool      `json:"isDeleted"`
	IsBlocked      bool      `json:"isBlocked"`
	IsBlockedBy    bool      `json:"isBlockedBy"`
	MessagePending bool      `json:"messagePending"`
}
