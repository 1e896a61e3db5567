package gormstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vedran77/parley/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) GetBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error) {
	low, high := domain.OrderedPair(userA, userB)
	var rec conversationRecord
	err := r.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", low.String(), high.String()).
		Take(&rec).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	var recs []conversationRecord
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID.String(), userID.String()).
		Order("updated_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	convs := make([]domain.Conversation, 0, len(recs))
	for i := range recs {
		convs = append(convs, *recs[i].toDomain())
	}
	return convs, nil
}

func (r *ConversationRepo) AppendMessage(ctx context.Context, msg *domain.Message) error {
	return withTx(ctx, r.db, func(tx *gorm.DB) error {
		return insertMessage(tx, msg)
	})
}

func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	var recs []messageRecord
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID.String()).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(recs))
	for i := range recs {
		messages = append(messages, recs[i].toDomain())
	}
	return messages, nil
}

func (r *ConversationRepo) LastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	var rec messageRecord
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID.String()).
		Order("created_at DESC").
		Take(&rec).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	msg := rec.toDomain()
	return &msg, nil
}

func (r *ConversationRepo) CountUnseen(ctx context.Context, conversationID, authorID uuid.UUID) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&messageRecord{}).
		Where("conversation_id = ? AND msg_by_user_id = ? AND seen = ?", conversationID.String(), authorID.String(), false).
		Count(&n).Error
	return int(n), err
}

func (r *ConversationRepo) MarkSeen(ctx context.Context, conversationID, authorID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&messageRecord{}).
		Where("conversation_id = ? AND msg_by_user_id = ? AND seen = ?", conversationID.String(), authorID.String(), false).
		Update("seen", true)
	return res.RowsAffected, res.Error
}

// upsertConversation inserts conv unless the pair already has one, then reads
// back whichever row is stored. Must run inside a transaction.
func upsertConversation(tx *gorm.DB, conv *domain.Conversation) (*domain.Conversation, error) {
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(toConversationRecord(conv)).Error
	if err != nil {
		return nil, errors.Wrap(err, "inserting conversation")
	}

	var rec conversationRecord
	err = tx.Where("user_low = ? AND user_high = ?", conv.UserLow.String(), conv.UserHigh.String()).
		Take(&rec).Error
	if err != nil {
		return nil, errors.Wrap(err, "reading conversation")
	}
	return rec.toDomain(), nil
}

func conversationExists(tx *gorm.DB, userA, userB uuid.UUID) (bool, error) {
	low, high := domain.OrderedPair(userA, userB)
	var n int64
	err := tx.Model(&conversationRecord{}).
		Where("user_low = ? AND user_high = ?", low.String(), high.String()).
		Count(&n).Error
	return n > 0, errors.Wrap(err, "checking conversation")
}

func insertMessage(tx *gorm.DB, msg *domain.Message) error {
	if err := tx.Create(toMessageRecord(msg)).Error; err != nil {
		return errors.Wrap(err, "inserting message")
	}

	err := tx.Model(&conversationRecord{}).
		Where("id = ? AND updated_at < ?", msg.ConversationID.String(), msg.CreatedAt).
		UpdateColumn("updated_at", msg.CreatedAt).Error
	return errors.Wrap(err, "touching conversation")
}
