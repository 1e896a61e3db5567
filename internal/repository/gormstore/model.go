package gormstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/parley/internal/domain"
)

// Identifiers are stored as their 36 character string form so the same
// models work on SQLite and MySQL.

type userRecord struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Name         string    `gorm:"size:100;not null;index"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"`
	AvatarURL    string    `gorm:"size:2048;not null;default:''"`
	PasswordHash string    `gorm:"size:255;not null"`
	Online       bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (userRecord) TableName() string {
	return "users"
}

type blockRecord struct {
	BlockerID string    `gorm:"primaryKey;size:36"`
	BlockedID string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"not null"`
}

func (blockRecord) TableName() string {
	return "user_blocks"
}

type conversationRecord struct {
	ID         string    `gorm:"primaryKey;size:36"`
	SenderID   string    `gorm:"size:36;not null;index"`
	ReceiverID string    `gorm:"size:36;not null;index"`
	UserLow    string    `gorm:"size:36;not null;uniqueIndex:idx_conversation_pair"`
	UserHigh   string    `gorm:"size:36;not null;uniqueIndex:idx_conversation_pair"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (conversationRecord) TableName() string {
	return "conversations"
}

type messageRecord struct {
	ID             string    `gorm:"primaryKey;size:36"`
	ConversationID string    `gorm:"size:36;not null;index:idx_message_conversation"`
	Text           string    `gorm:"type:text;not null"`
	ImageURL       string    `gorm:"size:1024;not null;default:''"`
	VideoURL       string    `gorm:"size:1024;not null;default:''"`
	MsgByUserID    string    `gorm:"size:36;not null"`
	Seen           bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"not null;index:idx_message_conversation"`
}

func (messageRecord) TableName() string {
	return "messages"
}

// requestRecord carries PendingKey only while the request is pending; the
// unique index on it enforces one pending request per pair.
type requestRecord struct {
	ID            string    `gorm:"primaryKey;size:36"`
	SenderID      string    `gorm:"size:36;not null;index"`
	ReceiverID    string    `gorm:"size:36;not null;index:idx_request_receiver"`
	Status        string    `gorm:"size:16;not null;index:idx_request_receiver"`
	PendingKey    *string   `gorm:"size:80;uniqueIndex"`
	FirstText     string    `gorm:"type:text;not null"`
	FirstImageURL string    `gorm:"size:1024;not null;default:''"`
	FirstVideoURL string    `gorm:"size:1024;not null;default:''"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (requestRecord) TableName() string {
	return "message_requests"
}

// models lists every table in migration order.
func models() []any {
	return []any{&userRecord{}, &blockRecord{}, &conversationRecord{}, &messageRecord{}, &requestRecord{}}
}

func parseID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}

func toUserRecord(u *domain.User) *userRecord {
	return &userRecord{
		ID:           u.ID.String(),
		Name:         u.Name,
		Email:        u.Email,
		AvatarURL:    u.AvatarURL,
		PasswordHash: u.PasswordHash,
		Online:       u.Online,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r *userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:           parseID(r.ID),
		Name:         r.Name,
		Email:        r.Email,
		AvatarURL:    r.AvatarURL,
		PasswordHash: r.PasswordHash,
		Online:       r.Online,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toConversationRecord(c *domain.Conversation) *conversationRecord {
	return &conversationRecord{
		ID:         c.ID.String(),
		SenderID:   c.SenderID.String(),
		ReceiverID: c.ReceiverID.String(),
		UserLow:    c.UserLow.String(),
		UserHigh:   c.UserHigh.String(),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func (r *conversationRecord) toDomain() *domain.Conversation {
	return &domain.Conversation{
		ID:         parseID(r.ID),
		SenderID:   parseID(r.SenderID),
		ReceiverID: parseID(r.ReceiverID),
		UserLow:    parseID(r.UserLow),
		UserHigh:   parseID(r.UserHigh),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func toMessageRecord(m *domain.Message) *messageRecord {
	return &messageRecord{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		Text:           m.Text,
		ImageURL:       m.ImageURL,
		VideoURL:       m.VideoURL,
		MsgByUserID:    m.MsgByUserID.String(),
		Seen:           m.Seen,
		CreatedAt:      m.CreatedAt,
	}
}

func (r *messageRecord) toDomain() domain.Message {
	return domain.Message{
		ID:             parseID(r.ID),
		ConversationID: parseID(r.ConversationID),
		MessageContent: domain.MessageContent{
			Text:     r.Text,
			ImageURL: r.ImageURL,
			VideoURL: r.VideoURL,
		},
		MsgByUserID: parseID(r.MsgByUserID),
		Seen:        r.Seen,
		CreatedAt:   r.CreatedAt,
	}
}

func toRequestRecord(req *domain.MessageRequest) *requestRecord {
	rec := &requestRecord{
		ID:            req.ID.String(),
		SenderID:      req.SenderID.String(),
		ReceiverID:    req.ReceiverID.String(),
		Status:        string(req.Status),
		FirstText:     req.FirstMessage.Text,
		FirstImageURL: req.FirstMessage.ImageURL,
		FirstVideoURL: req.FirstMessage.VideoURL,
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.UpdatedAt,
	}
	if req.Status == domain.RequestPending {
		key := domain.PairKey(req.SenderID, req.ReceiverID)
		rec.PendingKey = &key
	}
	return rec
}

func (r *requestRecord) toDomain() *domain.MessageRequest {
	return &domain.MessageRequest{
		ID:         parseID(r.ID),
		SenderID:   parseID(r.SenderID),
		ReceiverID: parseID(r.ReceiverID),
		Status:     domain.RequestStatus(r.Status),
		FirstMessage: domain.MessageContent{
			Text:     r.FirstText,
			ImageURL: r.FirstImageURL,
			VideoURL: r.FirstVideoURL,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
