package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vedran77/parley/internal/domain"
)

// ErrNotPending is returned when a conditional request transition finds the
// request already resolved.
var ErrNotPending = errors.New("message request is no longer pending")

// ErrConversationExists is returned by CreatePending when the pair already
// has a conversation, so no request may be opened.
var ErrConversationExists = errors.New("conversation already exists for pair")

// Lookups return (nil, nil) when the row does not exist.

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Search(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]domain.User, error)
	SetOnline(ctx context.Context, id uuid.UUID, online bool) error
	// UpdateProfile stores user's name, avatar and updated_at.
	UpdateProfile(ctx context.Context, user *domain.User) error
	// ToggleBlocked flips target in blocker's block list in one atomic
	// statement and returns the new membership.
	ToggleBlocked(ctx context.Context, blockerID, targetID uuid.UUID) (bool, error)
}

type RequestRepository interface {
	// CreatePending inserts req unless a pending request already exists for
	// the unordered pair, in which case the existing one is returned with
	// created=false. The check against an existing conversation runs in the
	// same transaction as the insert and yields ErrConversationExists.
	CreatePending(ctx context.Context, req *domain.MessageRequest) (stored *domain.MessageRequest, created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MessageRequest, error)
	GetPendingBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.MessageRequest, error)
	ListPendingForReceiver(ctx context.Context, receiverID uuid.UUID) ([]domain.MessageRequest, error)
	PendingCounterparts(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// Accept marks the request accepted, creates the pair's conversation if
	// absent and appends first, all in one transaction. first.ConversationID
	// is filled in.
	Accept(ctx context.Context, requestID uuid.UUID, first *domain.Message) (*domain.Conversation, error)
	Reject(ctx context.Context, requestID uuid.UUID) error
}

type ConversationRepository interface {
	GetBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	// AppendMessage stores msg and bumps the conversation's updated_at.
	AppendMessage(ctx context.Context, msg *domain.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
	LastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error)
	CountUnseen(ctx context.Context, conversationID, authorID uuid.UUID) (int, error)
	// MarkSeen flips every unseen message authored by authorID and returns
	// how many changed.
	MarkSeen(ctx context.Context, conversationID, authorID uuid.UUID) (int64, error)
}
