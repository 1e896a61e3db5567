package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/vedran77/parley/internal/repository"
)

type SeenService struct {
	convRepo repository.ConversationRepository
	sidebar  *SidebarService
	notifier Notifier
}

func NewSeenService(convRepo repository.ConversationRepository, sidebar *SidebarService) *SeenService {
	return &SeenService{
		convRepo: convRepo,
		sidebar:  sidebar,
		notifier: nopNotifier{},
	}
}

func (s *SeenService) SetNotifier(n Notifier) {
	s.notifier = n
}

// MarkSeen marks every message counterpartID sent to viewerID as seen, then
// pushes the message list and fresh sidebars to both. Without a
// conversation it does nothing.
func (s *SeenService) MarkSeen(ctx context.Context, viewerID, counterpartID uuid.UUID) (int64, error) {
	conv, err := s.convRepo.GetBetween(ctx, viewerID, counterpartID)
	if err != nil {
		return 0, errors.Wrap(err, "looking up conversation")
	}
	if conv == nil {
		return 0, nil
	}

	n, err := s.convRepo.MarkSeen(ctx, conv.ID, counterpartID)
	if err != nil {
		return 0, errors.Wrap(err, "marking seen")
	}
	jww.DEBUG.Printf("[SEEN] %s saw %d messages from %s", viewerID, n, counterpartID)

	msgs, err := s.convRepo.ListMessages(ctx, conv.ID)
	if err != nil {
		return n, errors.Wrap(err, "listing messages")
	}
	s.notifier.NotifyMessages(viewerID, counterpartID, conv.ID, msgs)
	s.notifier.NotifyMessages(counterpartID, viewerID, conv.ID, msgs)

	s.sidebar.RefreshPair(ctx, viewerID, counterpartID)
	return n, nil
}
