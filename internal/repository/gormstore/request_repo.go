package gormstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RequestRepo struct {
	db *gorm.DB
}

func NewRequestRepo(db *gorm.DB) *RequestRepo {
	return &RequestRepo{db: db}
}

const createAttempts = 3

func (r *RequestRepo) CreatePending(ctx context.Context, req *domain.MessageRequest) (*domain.MessageRequest, bool, error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		var (
			stored  *domain.MessageRequest
			created bool
		)
		err := withTx(ctx, r.db, func(tx *gorm.DB) error {
			if err := lockPair(tx, req.SenderID, req.ReceiverID); err != nil {
				return err
			}
			exists, err := conversationExists(tx, req.SenderID, req.ReceiverID)
			if err != nil {
				return err
			}
			if exists {
				return repository.ErrConversationExists
			}

			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(toRequestRecord(req))
			if res.Error != nil {
				return errors.Wrap(res.Error, "inserting message request")
			}
			if res.RowsAffected == 1 {
				stored, created = req, true
				return nil
			}

			existing, err := pendingBetween(tx, req.SenderID, req.ReceiverID)
			stored = existing
			return err
		})
		if err != nil {
			return nil, false, err
		}
		if stored != nil {
			return stored, created, nil
		}
	}
	return nil, false, errors.New("pending request changed concurrently")
}

func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.MessageRequest, error) {
	var rec requestRecord
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).Take(&rec).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *RequestRepo) GetPendingBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.MessageRequest, error) {
	return pendingBetween(r.db.WithContext(ctx), userA, userB)
}

type pendingRow struct {
	requestRecord
	SenderName      string
	SenderAvatarURL string
}

func (r *RequestRepo) ListPendingForReceiver(ctx context.Context, receiverID uuid.UUID) ([]domain.MessageRequest, error) {
	var rows []pendingRow
	err := r.db.WithContext(ctx).
		Table("message_requests AS r").
		Select("r.*, u.name AS sender_name, u.avatar_url AS sender_avatar_url").
		Joins("JOIN users u ON u.id = r.sender_id").
		Where("r.receiver_id = ? AND r.status = ?", receiverID.String(), string(domain.RequestPending)).
		Order("r.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	reqs := make([]domain.MessageRequest, 0, len(rows))
	for i := range rows {
		req := rows[i].toDomain()
		req.Sender = &domain.UserSummary{
			ID:        req.SenderID,
			Name:      rows[i].SenderName,
			AvatarURL: rows[i].SenderAvatarURL,
		}
		reqs = append(reqs, *req)
	}
	return reqs, nil
}

func (r *RequestRepo) PendingCounterparts(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var recs []requestRecord
	id := userID.String()
	err := r.db.WithContext(ctx).
		Select("sender_id", "receiver_id").
		Where("status = ? AND (sender_id = ? OR receiver_id = ?)", string(domain.RequestPending), id, id).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(recs))
	for i := range recs {
		ids = append(ids, recs[i].toDomain().Counterpart(userID))
	}
	return ids, nil
}

func (r *RequestRepo) Accept(ctx context.Context, requestID uuid.UUID, first *domain.Message) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := withTx(ctx, r.db, func(tx *gorm.DB) error {
		var rec requestRecord
		err := tx.Select("sender_id", "receiver_id").Where("id = ?", requestID.String()).Take(&rec).Error
		if notFound(err) {
			return repository.ErrNotPending
		}
		if err != nil {
			return err
		}
		pair := rec.toDomain()
		if err := lockPair(tx, pair.SenderID, pair.ReceiverID); err != nil {
			return err
		}

		req, err := resolve(tx, requestID, domain.RequestAccepted)
		if err != nil {
			return err
		}

		conv, err = upsertConversation(tx, domain.NewConversation(req.SenderID, req.ReceiverID))
		if err != nil {
			return err
		}

		first.ConversationID = conv.ID
		if err := insertMessage(tx, first); err != nil {
			return err
		}
		if first.CreatedAt.After(conv.UpdatedAt) {
			conv.UpdatedAt = first.CreatedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *RequestRepo) Reject(ctx context.Context, requestID uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *gorm.DB) error {
		_, err := resolve(tx, requestID, domain.RequestRejected)
		return err
	})
}

// resolve moves a pending request to status. It returns ErrNotPending when
// another caller got there first.
func resolve(tx *gorm.DB, requestID uuid.UUID, status domain.RequestStatus) (*domain.MessageRequest, error) {
	res := tx.Model(&requestRecord{}).
		Where("id = ? AND status = ?", requestID.String(), string(domain.RequestPending)).
		Updates(map[string]any{
			"status":      string(status),
			"pending_key": nil,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "resolving request as %s", status)
	}
	if res.RowsAffected == 0 {
		return nil, repository.ErrNotPending
	}

	var rec requestRecord
	if err := tx.Where("id = ?", requestID.String()).Take(&rec).Error; err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func pendingBetween(db *gorm.DB, userA, userB uuid.UUID) (*domain.MessageRequest, error) {
	var rec requestRecord
	err := db.Where("pending_key = ?", domain.PairKey(userA, userB)).Take(&rec).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// lockPair serializes request and conversation writes for one pair by
// locking both user rows. SQLite runs on a single connection, so its
// transactions are already serial.
func lockPair(tx *gorm.DB, userA, userB uuid.UUID) error {
	if tx.Dialector.Name() == DriverSQLite {
		return nil
	}
	low, high := domain.OrderedPair(userA, userB)
	var ids []string
	err := tx.Model(&userRecord{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", []string{low.String(), high.String()}).
		Order("id").
		Pluck("id", &ids).Error
	return errors.Wrap(err, "locking pair")
}
