package service

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/repository"
	"golang.org/x/sync/errgroup"
)

// sidebarFanout bounds the per-entry store reads issued in parallel.
const sidebarFanout = 8

// SidebarService builds each user's conversation list.
type SidebarService struct {
	userRepo    repository.UserRepository
	requestRepo repository.RequestRepository
	convRepo    repository.ConversationRepository
	presence    Presence
	notifier    Notifier
}

func NewSidebarService(
	userRepo repository.UserRepository,
	requestRepo repository.RequestRepository,
	convRepo repository.ConversationRepository,
	presence Presence,
) *SidebarService {
	return &SidebarService{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		convRepo:    convRepo,
		presence:    presence,
		notifier:    nopNotifier{},
	}
}

func (s *SidebarService) SetNotifier(n Notifier) {
	s.notifier = n
}

// List returns userID's conversations, newest first. Counterparts with a
// pending request are left out and each counterpart appears once.
func (s *SidebarService) List(ctx context.Context, userID uuid.UUID) ([]domain.SidebarEntry, error) {
	convs, err := s.convRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing conversations")
	}

	pendingWith, err := s.requestRepo.PendingCounterparts(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing pending counterparts")
	}
	pending := make(map[uuid.UUID]struct{}, len(pendingWith))
	for _, id := range pendingWith {
		pending[id] = struct{}{}
	}

	latest := make(map[uuid.UUID]domain.Conversation, len(convs))
	for _, conv := range convs {
		counterpart := conv.Counterpart(userID)
		if _, ok := pending[counterpart]; ok {
			continue
		}
		if prev, ok := latest[counterpart]; ok && !conv.UpdatedAt.After(prev.UpdatedAt) {
			continue
		}
		latest[counterpart] = conv
	}

	entries := make([]domain.SidebarEntry, 0, len(latest))
	for counterpart, conv := range latest {
		entries = append(entries, domain.SidebarEntry{
			ConversationID: conv.ID,
			Counterpart:    domain.UserSummary{ID: counterpart},
			UpdatedAt:      conv.UpdatedAt,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sidebarFanout)
	for i := range entries {
		entry := &entries[i]
		g.Go(func() error {
			return s.fill(gctx, entry)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(entries, func(a, b domain.SidebarEntry) int {
		return b.SortTime().Compare(a.SortTime())
	})
	return entries, nil
}

// fill loads the counterpart profile, the last message and the unseen count.
func (s *SidebarService) fill(ctx context.Context, entry *domain.SidebarEntry) error {
	user, err := s.userRepo.GetByID(ctx, entry.Counterpart.ID)
	if err != nil {
		return errors.Wrapf(err, "loading user %s", entry.Counterpart.ID)
	}
	if user != nil {
		entry.Counterpart = user.Summary()
	}

	last, err := s.convRepo.LastMessage(ctx, entry.ConversationID)
	if err != nil {
		return errors.Wrapf(err, "loading last message of %s", entry.ConversationID)
	}
	entry.LastMessage = last

	unseen, err := s.convRepo.CountUnseen(ctx, entry.ConversationID, entry.Counterpart.ID)
	if err != nil {
		return errors.Wrapf(err, "counting unseen in %s", entry.ConversationID)
	}
	entry.UnseenCount = unseen
	return nil
}

// Refresh recomputes userID's sidebar and pushes it if the user is
// connected. Offline users are skipped.
func (s *SidebarService) Refresh(ctx context.Context, userID uuid.UUID) error {
	if !s.presence.IsOnline(userID) {
		return nil
	}
	entries, err := s.List(ctx, userID)
	if err != nil {
		return err
	}
	s.notifier.NotifyConversations(userID, entries)
	return nil
}

// RefreshPair refreshes both participants. Failures are logged: the
// operation that triggered the refresh has already been committed.
func (s *SidebarService) RefreshPair(ctx context.Context, a, b uuid.UUID) {
	var g errgroup.Group
	for _, id := range []uuid.UUID{a, b} {
		id := id
		g.Go(func() error {
			if err := s.Refresh(ctx, id); err != nil {
				jww.ERROR.Printf("[SIDEBAR] refresh for %s failed: %+v", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
