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

type BlockService struct {
	userRepo  repository.UserRepository
	notifier  Notifier
	publisher events.Publisher
}

func NewBlockService(userRepo repository.UserRepository) *BlockService {
	return &BlockService{
		userRepo:  userRepo,
		notifier:  nopNotifier{},
		publisher: events.Nop{},
	}
}

func (s *BlockService) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *BlockService) SetPublisher(p events.Publisher) {
	s.publisher = p
}

// Toggle flips targetID in actorID's block list and returns whether the
// target is now blocked. Both sides are told about the new state.
func (s *BlockService) Toggle(ctx context.Context, actorID, targetID uuid.UUID) (bool, error) {
	if actorID == targetID {
		return false, ErrCannotBlockSelf
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return false, errors.Wrap(err, "looking up target")
	}
	if target == nil {
		return false, ErrUserNotFound
	}

	blocked, err := s.userRepo.ToggleBlocked(ctx, actorID, targetID)
	if err != nil {
		return false, errors.Wrap(err, "toggling block")
	}
	jww.DEBUG.Printf("[BLOCK] %s -> %s blocked=%t", actorID, targetID, blocked)

	s.notifier.NotifyBlockStatus(targetID, domain.BlockUpdate{TargetUserID: actorID, IsBlockedBy: &blocked})
	s.notifier.NotifyBlockStatus(actorID, domain.BlockUpdate{TargetUserID: targetID, IsBlocked: &blocked})

	s.publisher.Publish(ctx, events.BlockToggled, map[string]any{
		"actorId":   actorID,
		"targetId":  targetID,
		"isBlocked": blocked,
	})
	return blocked, nil
}

// Relation reads both users' block lists and reports the relation from a's
// point of view.
func (s *BlockService) Relation(ctx context.Context, a, b uuid.UUID) (domain.Relation, error) {
	ua, err := s.userRepo.GetByID(ctx, a)
	if err != nil {
		return domain.Relation{}, err
	}
	ub, err := s.userRepo.GetByID(ctx, b)
	if err != nil {
		return domain.Relation{}, err
	}
	if ua == nil || ub == nil {
		return domain.Relation{}, ErrUserNotFound
	}
	return domain.RelationBetween(ua, ub), nil
}
