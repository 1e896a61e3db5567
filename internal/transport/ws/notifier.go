package ws

import (
	"github.com/google/uuid"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/vedran77/parley/internal/domain"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) push(userID uuid.UUID, eventType string, payload any) {
	evt, err := NewEvent(eventType, payload)
	if err != nil {
		jww.ERROR.Printf("[WS] notifier: marshal %s: %v", eventType, err)
		return
	}
	n.hub.SendToUser(userID, evt)
}

func (n *HubNotifier) NotifyMessages(userID, withUserID, conversationID uuid.UUID, messages []domain.Message) {
	n.push(userID, EventTypeMessage, MessagesPayload{
		ConversationID: conversationID,
		WithUserID:     withUserID,
		Messages:       messages,
	})
}

func (n *HubNotifier) NotifyNewRequest(userID uuid.UUID, req *domain.MessageRequest) {
	n.push(userID, EventTypeNewRequest, NewRequestPayload{Request: req})
}

func (n *HubNotifier) NotifyRequests(userID uuid.UUID, reqs []domain.MessageRequest) {
	n.push(userID, EventTypeRequests, reqs)
}

func (n *HubNotifier) NotifyRequestHandled(userID, requestID uuid.UUID, action domain.RequestStatus) {
	n.push(userID, EventTypeRequestHandled, RequestHandledPayload{RequestID: requestID, Action: action})
}

func (n *HubNotifier) NotifyConversations(userID uuid.UUID, entries []domain.SidebarEntry) {
	n.push(userID, EventTypeConversation, entries)
}

func (n *HubNotifier) NotifyBlockStatus(userID uuid.UUID, update domain.BlockUpdate) {
	n.push(userID, EventTypeBlockStatus, update)
}

func (n *HubNotifier) NotifyCall(userID uuid.UUID, signal domain.CallSignal) {
	switch signal.Kind {
	case domain.CallOffer:
		n.push(userID, EventTypeCallIncoming, CallIncomingPayload{From: signal.From, UserName: signal.FromName, Offer: signal.Payload})
	case domain.CallAnswer:
		n.push(userID, EventTypeCallAccepted, CallAcceptedPayload{From: signal.From, Answer: signal.Payload})
	case domain.CallReject:
		n.push(userID, EventTypeCallRejected, CallFromPayload{From: signal.From})
	case domain.CallICE:
		n.push(userID, EventTypeICECandidate, ICECandidateOutPayload{From: signal.From, Candidate: signal.Payload})
	case domain.CallEnd:
		n.push(userID, EventTypeCallEnded, CallFromPayload{From: signal.From})
	default:
		jww.WARN.Printf("[WS] notifier: unknown call signal %q", signal.Kind)
	}
}
