package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/service"
)

// Event types - Client → Server
const (
	EventTypeMessagePage       = "message-page"
	EventTypeNewMessage        = "new message"
	EventTypeGetRequests       = "get_message_requests"
	EventTypeHandleRequest     = "handle_message_request"
	EventTypeToggleBlock       = "toggle_block_user"
	EventTypeSidebar           = "sidebar"
	EventTypeSeen              = "seen"
	EventTypeCheckAvailability = "check_user_availability"
	EventTypeCallOffer         = "video_call_offer"
	EventTypeCallAnswer        = "video_call_answer"
	EventTypeCallReject        = "video_call_reject"
	EventTypeICECandidate      = "ice_candidate"
	EventTypeEndCall           = "end_video_call"
	EventTypePing              = "ping"
)

// Event types - Server → Client
const (
	EventTypeOnlineUser      = "onlineUser"
	EventTypeMessageUser     = "message-user"
	EventTypeMessage         = "message"
	EventTypeMessageError    = "message_error"
	EventTypeNewRequest      = "new_message_request"
	EventTypeRequests        = "message_requests"
	EventTypeRequestHandled  = "message_request_handled"
	EventTypeBlockStatus     = "block_status_updated"
	EventTypeConversation    = "conversation"
	EventTypeAvailability    = "user_availability_response"
	EventTypeCallIncoming    = "video_call_incoming"
	EventTypeCallAccepted    = "video_call_accepted"
	EventTypeCallRejected    = "video_call_rejected"
	EventTypeCallEnded       = "video_call_ended"
	EventTypeAck             = "ack"
	EventTypePong            = "pong"
)

// Event is the base envelope for all WebSocket messages. Clients may set ID;
// direct replies echo it back in Ref.
type Event struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Ref       string          `json:"ref,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

// TargetPayload is shared by every event that names one other user.
type TargetPayload struct {
	TargetUserID uuid.UUID `json:"targetUserId"`
}

func (p *TargetPayload) validate() string {
	if p.TargetUserID == uuid.Nil {
		return "targetUserId is required"
	}
	return ""
}

type NewMessagePayload struct {
	Sender   *uuid.UUID `json:"sender,omitempty"`
	Receiver uuid.UUID  `json:"receiver"`
	domain.MessageContent
}

func (p *NewMessagePayload) validate() string {
	if p.Receiver == uuid.Nil {
		return "receiver is required"
	}
	return ""
}

type HandleRequestPayload struct {
	RequestID uuid.UUID `json:"requestId"`
	Action    string    `json:"action"`
}

func (p *HandleRequestPayload) validate() string {
	if p.RequestID == uuid.Nil {
		return "requestId is required"
	}
	if p.Action == "" {
		return "action is required"
	}
	return ""
}

type SeenPayload struct {
	CounterpartID uuid.UUID `json:"counterpartId"`
}

func (p *SeenPayload) validate() string {
	if p.CounterpartID == uuid.Nil {
		return "counterpartId is required"
	}
	return ""
}

type CallOfferPayload struct {
	TargetPayload
	Offer json.RawMessage `json:"offer"`
}

type CallAnswerPayload struct {
	TargetPayload
	Answer json.RawMessage `json:"answer"`
}

type ICECandidatePayload struct {
	TargetPayload
	Candidate json.RawMessage `json:"candidate"`
}

type emptyPayload struct{}

func (emptyPayload) validate() string { return "" }

// --- Server → Client payloads ---

type MessagesPayload struct {
	ConversationID uuid.UUID        `json:"conversationId"`
	WithUserID     uuid.UUID        `json:"withUserId"`
	Messages       []domain.Message `json:"messages"`
}

type NewRequestPayload struct {
	Request *domain.MessageRequest `json:"request"`
}

type RequestHandledPayload struct {
	RequestID uuid.UUID            `json:"requestId"`
	Action    domain.RequestStatus `json:"action"`
}

type ErrorPayload struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType,omitempty"`
}

type AckPayload struct {
	Status  service.SubmitStatus   `json:"status"`
	Request *domain.MessageRequest `json:"request,omitempty"`
	Message *domain.Message        `json:"message,omitempty"`
}

type CallIncomingPayload struct {
	From     uuid.UUID       `json:"from"`
	UserName string          `json:"userName"`
	Offer    json.RawMessage `json:"offer"`
}

type CallAcceptedPayload struct {
	From   uuid.UUID       `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

type CallFromPayload struct {
	From uuid.UUID `json:"from"`
}

type ICECandidateOutPayload struct {
	From      uuid.UUID       `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
