package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/repository"
)

const (
	unavailableNotFound = "User not found"
	unavailableOffline  = "User is not online"
	unavailableBlocked  = "Cannot start call with this user"
)

// CallService forwards call signaling between two connected users. It keeps
// no call state; payloads are passed through untouched.
type CallService struct {
	userRepo repository.UserRepository
	presence Presence
	notifier Notifier
}

func NewCallService(userRepo repository.UserRepository, presence Presence) *CallService {
	return &CallService{
		userRepo: userRepo,
		presence: presence,
		notifier: nopNotifier{},
	}
}

func (s *CallService) SetNotifier(n Notifier) {
	s.notifier = n
}

// CheckAvailability reports whether requesterID can call targetID right now.
func (s *CallService) CheckAvailability(ctx context.Context, requesterID, targetID uuid.UUID) (*domain.Availability, error) {
	res := &domain.Availability{TargetUserID: targetID}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up target")
	}
	if target == nil {
		res.Message = unavailableNotFound
		return res, nil
	}
	if !s.presence.IsOnline(targetID) {
		res.Message = unavailableOffline
		return res, nil
	}

	requester, err := s.userRepo.GetByID(ctx, requesterID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up requester")
	}
	if requester == nil {
		return nil, ErrUserNotFound
	}
	if domain.RelationBetween(requester, target).Either() {
		res.Message = unavailableBlocked
		return res, nil
	}

	res.Available = true
	return res, nil
}

// Relay forwards a signaling payload from fromID to toID. If toID is not
// connected the signal is dropped.
func (s *CallService) Relay(ctx context.Context, kind domain.CallKind, fromID, toID uuid.UUID, payload json.RawMessage) error {
	if !s.presence.IsOnline(toID) {
		jww.DEBUG.Printf("[CALL] dropping %s from %s: %s offline", kind, fromID, toID)
		return nil
	}

	signal := domain.CallSignal{Kind: kind, From: fromID, Payload: payload}
	if kind == domain.CallOffer {
		caller, err := s.userRepo.GetByID(ctx, fromID)
		if err != nil {
			return errors.Wrap(err, "looking up caller")
		}
		if caller != nil {
			signal.FromName = caller.Name
		}
	}

	s.notifier.NotifyCall(toID, signal)
	return nil
}
