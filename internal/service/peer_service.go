package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/repository"
)

// PeerView is what a user sees when opening the chat page of another user.
// Messages is nil when the pair is blocked or a request is still pending.
type PeerView struct {
	Peer           domain.PeerPage
	ConversationID uuid.UUID
	Messages       []domain.Message
}

type PeerService struct {
	userRepo    repository.UserRepository
	requestRepo repository.RequestRepository
	convRepo    repository.ConversationRepository
	presence    Presence
}

func NewPeerService(
	userRepo repository.UserRepository,
	requestRepo repository.RequestRepository,
	convRepo repository.ConversationRepository,
	presence Presence,
) *PeerService {
	return &PeerService{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		convRepo:    convRepo,
		presence:    presence,
	}
}

// OpenPage describes targetID from viewerID's point of view. A missing target
// is reported as deleted rather than as an error.
func (s *PeerService) OpenPage(ctx context.Context, viewerID, targetID uuid.UUID) (*PeerView, error) {
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up target")
	}
	if target == nil {
		return &PeerView{Peer: domain.PeerPage{ID: targetID, IsDeleted: true}}, nil
	}

	viewer, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up viewer")
	}
	if viewer == nil {
		return nil, ErrUserNotFound
	}

	rel := domain.RelationBetween(viewer, target)
	pending, err := s.requestRepo.GetPendingBetween(ctx, viewerID, targetID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up pending request")
	}

	view := &PeerView{
		Peer: domain.PeerPage{
			ID:             target.ID,
			Name:           target.Name,
			Email:          target.Email,
			AvatarURL:      target.AvatarURL,
			Online:         s.presence.IsOnline(targetID),
			IsBlocked:      rel.IsBlocked,
			IsBlockedBy:    rel.IsBlockedBy,
			MessagePending: pending != nil,
		},
	}
	if rel.Either() || pending != nil {
		return view, nil
	}

	conv, err := s.convRepo.GetBetween(ctx, viewerID, targetID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up conversation")
	}
	if conv == nil {
		view.Messages = []domain.Message{}
		return view, nil
	}

	msgs, err := s.convRepo.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing messages")
	}
	view.ConversationID = conv.ID
	view.Messages = msgs
	return view, nil
}
