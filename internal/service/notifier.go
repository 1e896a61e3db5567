package service

import (
	"github.com/google/uuid"
	"github.com/vedran77/parley/internal/domain"
)

// Notifier pushes events to connected users. Every method is fire and forget:
// users without a live connection are skipped.
type Notifier interface {
	NotifyMessages(userID, withUserID, conversationID uuid.UUID, messages []domain.Message)
	NotifyNewRequest(userID uuid.UUID, req *domain.MessageRequest)
	NotifyRequests(userID uuid.UUID, reqs []domain.MessageRequest)
	NotifyRequestHandled(userID, requestID uuid.UUID, action domain.RequestStatus)
	NotifyConversations(userID uuid.UUID, entries []domain.SidebarEntry)
	NotifyBlockStatus(userID uuid.UUID, update domain.BlockUpdate)
	NotifyCall(userID uuid.UUID, signal domain.CallSignal)
}

// Presence answers whether a user currently has a live connection.
type Presence interface {
	IsOnline(userID uuid.UUID) bool
}

type nopNotifier struct{}

func (nopNotifier) NotifyMessages(uuid.UUID, uuid.UUID, uuid.UUID, []domain.Message) {}
func (nopNotifier) NotifyNewRequest(uuid.UUID, *domain.MessageRequest)              {}
func (nopNotifier) NotifyRequests(uuid.UUID, []domain.MessageRequest)               {}
func (nopNotifier) NotifyRequestHandled(uuid.UUID, uuid.UUID, domain.RequestStatus) {}
func (nopNotifier) NotifyConversations(uuid.UUID, []domain.SidebarEntry)            {}
func (nopNotifier) NotifyBlockStatus(uuid.UUID, domain.BlockUpdate)                 {}
func (nopNotifier) NotifyCall(uuid.UUID, domain.CallSignal)                         {}
