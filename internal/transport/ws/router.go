package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/service"
)

const (
	CodeUnknownEvent = "UNKNOWN_EVENT"
	CodeInternal     = "INTERNAL"

	msgInternal = "Something went wrong"

	DefaultEventTimeout = 10 * time.Second
)

// Services groups the components the router dispatches to.
type Services struct {
	Gate    *service.MessageGate
	Blocks  *service.BlockService
	Sidebar *service.SidebarService
	Seen    *service.SeenService
	Calls   *service.CallService
	Peers   *service.PeerService
}

// Router decodes inbound events and hands each one to exactly one service.
type Router struct {
	svc     Services
	timeout time.Duration
}

func NewRouter(svc Services, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = DefaultEventTimeout
	}
	return &Router{svc: svc, timeout: timeout}
}

type payloadValidator interface {
	validate() string
}

// decode unmarshals the event payload into dst and runs its checks.
func decode(event *Event, dst payloadValidator) error {
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, dst); err != nil {
			return &service.PolicyError{
				Code:    service.CodeInvalidPayload,
				Message: "invalid " + event.Type + " payload",
			}
		}
	}
	if msg := dst.validate(); msg != "" {
		return &service.PolicyError{Code: service.CodeInvalidPayload, Message: msg}
	}
	return nil
}

// Dispatch handles one event for c. Errors go back to c only.
func (r *Router) Dispatch(ctx context.Context, c *Client, event *Event) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	jww.TRACE.Printf("[WS] %s -> %q", c.userID, event.Type)
	if err := r.handle(ctx, c, event); err != nil {
		r.sendError(c, event, err)
	}
}

func (r *Router) handle(ctx context.Context, c *Client, event *Event) error {
	switch event.Type {
	case EventTypeMessagePage:
		var p TargetPayload
		if err := decode(event, &p); err != nil {
			return err
		}
		return r.messagePage(ctx, c, event, p.TargetUserID)

	case EventTypeNewMessage:
		var p NewMessagePayload
		if err := decode(event, &p); err != nil {
			return err
		}
		if p.Sender != nil && *p.Sender != c.userID {
			return &service.PolicyError{Code: service.CodeNotAuthorized, Message: "sender does not match the connection"}
		}
		res, err := r.svc.Gate.Submit(ctx, c.userID, p.Receiver, p.MessageContent)
		if err != nil {
			return err
		}
		return r.reply(c, event, EventTypeAck, AckPayload{Status: res.Status, Request: res.Request, Message: res.Message})

	case EventTypeGetRequests:
		if err := decode(event, &emptyPayload{}); err != nil {
			return err
		}
		reqs, err := r.svc.Gate.PendingRequests(ctx, c.userID)
		if err != nil {
			return err
		}
		return r.reply(c, event, EventTypeRequests, reqs)

	case EventTypeHandleRequest:
		var p HandleRequestPayload
		if err := decode(event, &p); err != nil {
			return err
		}
		if _, err := r.svc.Gate.Decide(ctx, c.userID, p.RequestID, service.Decision(p.Action)); err != nil {
			return err
		}
		return nil

	case EventTypeToggleBlock:
		var p TargetPayload
		if err := decode(event, &p); err != nil {
			return err
		}
		_, err := r.svc.Blocks.Toggle(ctx, c.userID, p.TargetUserID)
		return err

	case EventTypeSidebar:
		if err := decode(event, &emptyPayload{}); err != nil {
			return err
		}
		entries, err := r.svc.Sidebar.List(ctx, c.userID)
		if err != nil {
			return err
		}
		return r.reply(c, event, EventTypeConversation, entries)

	case EventTypeSeen:
		var p SeenPayload
		if err := decode(event, &p); err != nil {
			return err
		}
		_, err := r.svc.Seen.MarkSeen(ctx, c.userID, p.CounterpartID)
		return err

	case EventTypeCheckAvailability:
		var p TargetPayload
		if err := decode(event, &p); err != nil {
			return err
		}
		res, err := r.svc.Calls.CheckAvailability(ctx, c.userID, p.TargetUserID)
		if err != nil {
			return err
		}
		return r.reply(c, event, EventTypeAvailability, res)

	case EventTypeCallOffer:
		var p CallOfferPayload
		if err := decode(event, &p); err != nil {
			return err
		}
		return r.svc.Calls.Relay(ctx, domain.CallOffer, c.userID, p.TargetUserID, p.Offer)

	case EventTypeCallAnswer:
		var p CallAnswerPayload
		if err := decode(event, &p); err != nil {
			return err
		}
		return r.svc.Calls.Relay(ctx, domain.CallAnswer, c.userID, p.TargetUserID, p.Answer)

	case EventTypeCallReject:
		var p TargetPayload
		if err := decode(event, &p); err != nil {
			return err
		}
		return r.svc.Calls.Relay(ctx, domain.CallReject, c.userID, p.TargetUserID, nil)

	case EventTypeICECandidate:
		var p ICECandidatePayload
		if err := decode(event, &p); err != nil {
			return err
		}
		return r.svc.Calls.Relay(ctx, domain.CallICE, c.userID, p.TargetUserID, p.Candidate)

	case EventTypeEndCall:
		var p TargetPayload
		if err := decode(event, &p); err != nil {
			return err
		}
		return r.svc.Calls.Relay(ctx, domain.CallEnd, c.userID, p.TargetUserID, nil)

	case EventTypePing:
		c.sendEvent(&Event{Type: EventTypePong, Ref: event.ID})
		return nil

	default:
		return &service.PolicyError{Code: CodeUnknownEvent, Message: "unknown event type: " + event.Type}
	}
}

// messagePage sends the target's profile and, when the pair can talk, the
// existing messages.
func (r *Router) messagePage(ctx context.Context, c *Client, event *Event, targetID uuid.UUID) error {
	view, err := r.svc.Peers.OpenPage(ctx, c.userID, targetID)
	if err != nil {
		return err
	}
	if err := r.reply(c, event, EventTypeMessageUser, view.Peer); err != nil {
		return err
	}
	if view.Messages == nil {
		return nil
	}
	return r.reply(c, event, EventTypeMessage, MessagesPayload{
		ConversationID: view.ConversationID,
		WithUserID:     targetID,
		Messages:       view.Messages,
	})
}

// reply sends a direct response correlated with the inbound event.
func (r *Router) reply(c *Client, inbound *Event, eventType string, payload any) error {
	evt, err := NewEvent(eventType, payload)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", eventType)
	}
	evt.Ref = inbound.ID
	c.sendEvent(evt)
	return nil
}

// sendError maps err onto a message_error frame for the caller.
func (r *Router) sendError(c *Client, inbound *Event, err error) {
	payload := ErrorPayload{Message: msgInternal, ErrorType: CodeInternal}

	var policy *service.PolicyError
	var notFound *service.NotFoundError
	switch {
	case errors.As(err, &policy):
		payload = ErrorPayload{Message: policy.Message, ErrorType: policy.Code}
	case errors.As(err, &notFound):
		payload = ErrorPayload{Message: notFound.Error(), ErrorType: service.CodeNotFound}
	case errors.Is(err, context.DeadlineExceeded):
		jww.WARN.Printf("[WS] %q from %s timed out", inbound.Type, c.userID)
	default:
		jww.ERROR.Printf("[WS] %q from %s failed: %+v", inbound.Type, c.userID, err)
	}

	evt, mErr := NewEvent(EventTypeMessageError, payload)
	if mErr != nil {
		return
	}
	evt.Ref = inbound.ID
	c.sendEvent(evt)
}
