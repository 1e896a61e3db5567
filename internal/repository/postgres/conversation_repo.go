package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/vedran77/parley/internal/domain"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

const (
	conversationColumns = "id, sender_id, receiver_id, user_low, user_high, created_at, updated_at"
	messageColumns      = "id, conversation_id, text, image_url, video_url, msg_by_user_id, seen, created_at"
)

func (r *ConversationRepo) GetBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error) {
	low, high := domain.OrderedPair(userA, userB)
	row := r.pool.QueryRow(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE user_low = $1 AND user_high = $2",
		low, high,
	)
	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return conv, err
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}
	return convs, rows.Err()
}

func (r *ConversationRepo) AppendMessage(ctx context.Context, msg *domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertMessage(ctx, tx, msg); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func (r *ConversationRepo) LastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, conversationID)
	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *ConversationRepo) CountUnseen(ctx context.Context, conversationID, authorID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM messages
		WHERE conversation_id = $1 AND msg_by_user_id = $2 AND NOT seen`,
		conversationID, authorID,
	).Scan(&n)
	return n, err
}

func (r *ConversationRepo) MarkSeen(ctx context.Context, conversationID, authorID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET seen = TRUE
		WHERE conversation_id = $1 AND msg_by_user_id = $2 AND NOT seen`,
		conversationID, authorID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// upsertConversation inserts conv unless the pair already has one, bumping
// the existing row's updated_at, and returns the stored row.
func upsertConversation(ctx context.Context, q querier, conv *domain.Conversation) (*domain.Conversation, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_low, user_high) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING `+conversationColumns,
		conv.ID, conv.SenderID, conv.ReceiverID, conv.UserLow, conv.UserHigh, conv.CreatedAt, conv.UpdatedAt,
	)
	return scanConversation(row)
}

func conversationExists(ctx context.Context, q querier, userA, userB uuid.UUID) (bool, error) {
	low, high := domain.OrderedPair(userA, userB)
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversations WHERE user_low = $1 AND user_high = $2)`,
		low, high,
	).Scan(&exists)
	return exists, errors.Wrap(err, "checking conversation")
}

func insertMessage(ctx context.Context, q querier, msg *domain.Message) error {
	_, err := q.Exec(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.ConversationID, msg.Text, msg.ImageURL, msg.VideoURL,
		msg.MsgByUserID, msg.Seen, msg.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "inserting message")
	}

	_, err = q.Exec(ctx,
		`UPDATE conversations SET updated_at = $1 WHERE id = $2 AND updated_at < $1`,
		msg.CreatedAt, msg.ConversationID,
	)
	return errors.Wrap(err, "touching conversation")
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(&c.ID, &c.SenderID, &c.ReceiverID, &c.UserLow, &c.UserHigh, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.Text, &m.ImageURL, &m.VideoURL,
		&m.MsgByUserID, &m.Seen, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
