package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/events"
	"github.com/vedran77/parley/internal/repository"
)

type SubmitStatus string

const (
	// SubmitDelivered means the message was appended to an existing conversation.
	SubmitDelivered SubmitStatus = "delivered"
	// SubmitPending means a new message request was created.
	SubmitPending SubmitStatus = "pending"
	// SubmitAlreadyPending means the sender's earlier request is still open
	// and nothing was stored.
	SubmitAlreadyPending SubmitStatus = "already_pending"
)

type SubmitResult struct {
	Status  SubmitStatus           `json:"status"`
	Message *domain.Message        `json:"message,omitempty"`
	Request *domain.MessageRequest `json:"request,omitempty"`
}

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// MessageGate decides whether a message is delivered, turned into a message
// request or refused, and resolves requests.
type MessageGate struct {
	userRepo    repository.UserRepository
	requestRepo repository.RequestRepository
	convRepo    repository.ConversationRepository
	sidebar     *SidebarService
	notifier    Notifier
	publisher   events.Publisher
}

func NewMessageGate(
	userRepo repository.UserRepository,
	requestRepo repository.RequestRepository,
	convRepo repository.ConversationRepository,
	sidebar *SidebarService,
) *MessageGate {
	return &MessageGate{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		convRepo:    convRepo,
		sidebar:     sidebar,
		notifier:    nopNotifier{},
		publisher:   events.Nop{},
	}
}

func (g *MessageGate) SetNotifier(n Notifier) {
	g.notifier = n
}

func (g *MessageGate) SetPublisher(p events.Publisher) {
	g.publisher = p
}

// Submit routes a message from senderID to receiverID according to the
// pair's state.
func (g *MessageGate) Submit(ctx context.Context, senderID, receiverID uuid.UUID, content domain.MessageContent) (*SubmitResult, error) {
	if content.IsEmpty() {
		return nil, ErrEmptyMessage
	}
	if senderID == receiverID {
		return nil, ErrCannotMessageSelf
	}

	sender, err := g.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up sender")
	}
	receiver, err := g.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up receiver")
	}
	if sender == nil || receiver == nil {
		return nil, ErrUserNotFound
	}

	if domain.RelationBetween(sender, receiver).Either() {
		return nil, ErrBlocked
	}

	conv, err := g.convRepo.GetBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up conversation")
	}
	if conv != nil {
		return g.deliver(ctx, conv, senderID, receiverID, content)
	}

	existing, err := g.requestRepo.GetPendingBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up pending request")
	}
	if existing != nil {
		return pendingOutcome(existing, senderID)
	}

	req, created, err := g.requestRepo.CreatePending(ctx, domain.NewMessageRequest(senderID, receiverID, content))
	if errors.Is(err, repository.ErrConversationExists) {
		// An accept landed after the conversation lookup above.
		return g.deliverExisting(ctx, senderID, receiverID, content)
	}
	if err != nil {
		return nil, errors.Wrap(err, "creating message request")
	}
	if !created {
		// Lost a race against another submit for the same pair.
		return pendingOutcome(req, senderID)
	}

	summary := sender.Summary()
	req.Sender = &summary
	jww.INFO.Printf("[GATE] request %s opened %s -> %s", req.ID, senderID, receiverID)

	g.notifier.NotifyNewRequest(receiverID, req)
	g.publisher.Publish(ctx, events.RequestCreated, req)

	return &SubmitResult{Status: SubmitPending, Request: req}, nil
}

func pendingOutcome(req *domain.MessageRequest, senderID uuid.UUID) (*SubmitResult, error) {
	if req.SenderID != senderID {
		return nil, ErrRequestPending
	}
	return &SubmitResult{Status: SubmitAlreadyPending, Request: req}, nil
}

func (g *MessageGate) deliverExisting(ctx context.Context, senderID, receiverID uuid.UUID, content domain.MessageContent) (*SubmitResult, error) {
	conv, err := g.convRepo.GetBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up conversation")
	}
	if conv == nil {
		return nil, errors.Errorf("conversation %s missing after insert refusal", domain.PairKey(senderID, receiverID))
	}
	return g.deliver(ctx, conv, senderID, receiverID, content)
}

func (g *MessageGate) deliver(ctx context.Context, conv *domain.Conversation, senderID, receiverID uuid.UUID, content domain.MessageContent) (*SubmitResult, error) {
	msg := domain.NewMessage(conv.ID, senderID, content)
	if err := g.convRepo.AppendMessage(ctx, msg); err != nil {
		return nil, errors.Wrap(err, "appending message")
	}

	if err := g.pushMessages(ctx, conv.ID, senderID, receiverID); err != nil {
		return nil, err
	}
	g.sidebar.RefreshPair(ctx, senderID, receiverID)
	g.publisher.Publish(ctx, events.MessageCreated, msg)

	return &SubmitResult{Status: SubmitDelivered, Message: msg}, nil
}

// pushMessages sends the conversation's full message list to both participants.
func (g *MessageGate) pushMessages(ctx context.Context, conversationID, a, b uuid.UUID) error {
	msgs, err := g.convRepo.ListMessages(ctx, conversationID)
	if err != nil {
		return errors.Wrap(err, "listing messages")
	}
	g.notifier.NotifyMessages(a, b, conversationID, msgs)
	g.notifier.NotifyMessages(b, a, conversationID, msgs)
	return nil
}

// Decide accepts or rejects a pending request addressed to deciderID.
func (g *MessageGate) Decide(ctx context.Context, deciderID, requestID uuid.UUID, decision Decision) (*domain.MessageRequest, error) {
	if decision != DecisionAccept && decision != DecisionReject {
		return nil, ErrInvalidAction
	}

	req, err := g.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up request")
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.ReceiverID != deciderID {
		return nil, ErrNotRequestReceiver
	}
	if req.Status != domain.RequestPending {
		return nil, ErrRequestHandled
	}

	if decision == DecisionAccept {
		err = g.accept(ctx, req)
	} else {
		err = g.reject(ctx, req)
	}
	if errors.Is(err, repository.ErrNotPending) {
		return nil, ErrRequestHandled
	}
	if err != nil {
		return nil, err
	}

	g.publisher.Publish(ctx, events.RequestResolved, req)

	if err := g.pushRequests(ctx, deciderID); err != nil {
		jww.ERROR.Printf("[GATE] refreshing requests for %s: %+v", deciderID, err)
	}
	return req, nil
}

func (g *MessageGate) accept(ctx context.Context, req *domain.MessageRequest) error {
	first := domain.NewMessage(uuid.Nil, req.SenderID, req.FirstMessage)
	conv, err := g.requestRepo.Accept(ctx, req.ID, first)
	if err != nil {
		return err
	}
	req.Status = domain.RequestAccepted
	jww.INFO.Printf("[GATE] request %s accepted, conversation %s", req.ID, conv.ID)

	g.notifier.NotifyRequestHandled(req.SenderID, req.ID, domain.RequestAccepted)
	g.notifier.NotifyRequestHandled(req.ReceiverID, req.ID, domain.RequestAccepted)

	if err := g.pushMessages(ctx, conv.ID, req.SenderID, req.ReceiverID); err != nil {
		jww.ERROR.Printf("[GATE] pushing messages after accept: %+v", err)
	}
	g.sidebar.RefreshPair(ctx, req.SenderID, req.ReceiverID)
	g.publisher.Publish(ctx, events.MessageCreated, first)
	return nil
}

func (g *MessageGate) reject(ctx context.Context, req *domain.MessageRequest) error {
	if err := g.requestRepo.Reject(ctx, req.ID); err != nil {
		return err
	}
	req.Status = domain.RequestRejected
	jww.INFO.Printf("[GATE] request %s rejected", req.ID)

	g.notifier.NotifyRequestHandled(req.SenderID, req.ID, domain.RequestRejected)
	g.notifier.NotifyRequestHandled(req.ReceiverID, req.ID, domain.RequestRejected)
	return nil
}

// PendingRequests lists the pending requests addressed to receiverID.
func (g *MessageGate) PendingRequests(ctx context.Context, receiverID uuid.UUID) ([]domain.MessageRequest, error) {
	reqs, err := g.requestRepo.ListPendingForReceiver(ctx, receiverID)
	if err != nil {
		return nil, errors.Wrap(err, "listing pending requests")
	}
	if reqs == nil {
		reqs = []domain.MessageRequest{}
	}
	return reqs, nil
}

func (g *MessageGate) pushRequests(ctx context.Context, userID uuid.UUID) error {
	reqs, err := g.PendingRequests(ctx, userID)
	if err != nil {
		return err
	}
	g.notifier.NotifyRequests(userID, reqs)
	return nil
}
