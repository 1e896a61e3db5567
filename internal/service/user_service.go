package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/repository"
)

const searchLimit = 20

type UserService struct {
	userRepo repository.UserRepository
	presence Presence
}

func NewUserService(userRepo repository.UserRepository, presence Presence) *UserService {
	return &UserService{userRepo: userRepo, presence: presence}
}

func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	user.Online = s.presence.IsOnline(userID)
	return user, nil
}

// Search finds users by name or email, excluding the caller.
func (s *UserService) Search(ctx context.Context, callerID uuid.UUID, query string) ([]domain.UserSummary, error) {
	query = strings.TrimSpace(query)
	users, err := s.userRepo.Search(ctx, query, callerID, searchLimit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out, nil
}

// ProfileInput is a partial profile change. Nil fields are kept.
type ProfileInput struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}

// UpdateProfile changes the caller's name and/or avatar.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "looking up user")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*input.AvatarURL)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, errors.Wrap(err, "updating profile")
	}
	jww.INFO.Printf("[USER] %s updated profile", userID)

	user.Online = s.presence.IsOnline(userID)
	return user, nil
}
