package gormstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/repository"
	"gorm.io/gorm"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(toUserRecord(user)).Error
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(ctx, "id = ?", id.String())
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *UserRepo) Search(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]domain.User, error) {
	pattern := repository.ContainsPattern(query)
	var recs []userRecord
	err := r.db.WithContext(ctx).
		Where("id <> ? AND (name LIKE ? ESCAPE '!' OR email LIKE ? ESCAPE '!')", excludeID.String(), pattern, pattern).
		Order("name ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(recs))
	for i := range recs {
		users = append(users, *recs[i].toDomain())
	}
	return users, nil
}

func (r *UserRepo) SetOnline(ctx context.Context, id uuid.UUID, online bool) error {
	return r.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ?", id.String()).
		Update("online", online).Error
}

func (r *UserRepo) UpdateProfile(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ?", user.ID.String()).
		Updates(map[string]any{
			"name":       user.Name,
			"avatar_url": user.AvatarURL,
			"updated_at": user.UpdatedAt,
		}).Error
}

// ToggleBlocked removes the block row if present and inserts it otherwise,
// inside one transaction.
func (r *UserRepo) ToggleBlocked(ctx context.Context, blockerID, targetID uuid.UUID) (bool, error) {
	var blocked bool
	err := withTx(ctx, r.db, func(tx *gorm.DB) error {
		res := tx.Where("blocker_id = ? AND blocked_id = ?", blockerID.String(), targetID.String()).
			Delete(&blockRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			blocked = false
			return nil
		}

		blocked = true
		return tx.Create(&blockRecord{
			BlockerID: blockerID.String(),
			BlockedID: targetID.String(),
			CreatedAt: time.Now().UTC(),
		}).Error
	})
	return blocked, err
}

func (r *UserRepo) find(ctx context.Context, query string, arg any) (*domain.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).Where(query, arg).Take(&rec).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var blocked []string
	err = r.db.WithContext(ctx).Model(&blockRecord{}).
		Where("blocker_id = ?", rec.ID).
		Pluck("blocked_id", &blocked).Error
	if err != nil {
		return nil, err
	}

	user := rec.toDomain()
	for _, id := range blocked {
		user.BlockedUsers = append(user.BlockedUsers, parseID(id))
	}
	return user, nil
}
