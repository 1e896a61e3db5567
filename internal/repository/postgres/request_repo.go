package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/repository"
)

type RequestRepo struct {
	pool *pgxpool.Pool
}

func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

const requestColumns = `r.id, r.sender_id, r.receiver_id, r.status,
	r.first_text, r.first_image_url, r.first_video_url, r.created_at, r.updated_at`

// createAttempts bounds the insert/read loop in CreatePending. A second pass
// only happens when the conflicting request was rejected in between.
const createAttempts = 3

func (r *RequestRepo) CreatePending(ctx context.Context, req *domain.MessageRequest) (*domain.MessageRequest, bool, error) {
	key := domain.PairKey(req.SenderID, req.ReceiverID)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	if err := lockPair(ctx, tx, key); err != nil {
		return nil, false, err
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		exists, err := conversationExists(ctx, tx, req.SenderID, req.ReceiverID)
		if err != nil {
			return nil, false, err
		}
		if exists {
			return nil, false, repository.ErrConversationExists
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO message_requests (id, sender_id, receiver_id, status, pending_key,
				first_text, first_image_url, first_video_url, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (pending_key) DO NOTHING`,
			req.ID, req.SenderID, req.ReceiverID, domain.RequestPending, key,
			req.FirstMessage.Text, req.FirstMessage.ImageURL, req.FirstMessage.VideoURL,
			req.CreatedAt, req.UpdatedAt,
		)
		if err != nil {
			return nil, false, errors.Wrap(err, "inserting message request")
		}
		if tag.RowsAffected() == 1 {
			return req, true, tx.Commit(ctx)
		}

		existing, err := pendingByKey(ctx, tx, key)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, tx.Commit(ctx)
		}
	}
	return nil, false, errors.New("pending request changed concurrently")
}

func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.MessageRequest, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+requestColumns+" FROM message_requests r WHERE r.id = $1", id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

func (r *RequestRepo) GetPendingBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.MessageRequest, error) {
	return pendingByKey(ctx, r.pool, domain.PairKey(userA, userB))
}

func pendingByKey(ctx context.Context, q querier, key string) (*domain.MessageRequest, error) {
	row := q.QueryRow(ctx, "SELECT "+requestColumns+" FROM message_requests r WHERE r.pending_key = $1", key)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

func (r *RequestRepo) ListPendingForReceiver(ctx context.Context, receiverID uuid.UUID) ([]domain.MessageRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`, u.id, u.name, u.avatar_url
		FROM message_requests r
		JOIN users u ON r.sender_id = u.id
		WHERE r.receiver_id = $1 AND r.status = 'pending'
		ORDER BY r.created_at DESC`, receiverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := []domain.MessageRequest{}
	for rows.Next() {
		var req domain.MessageRequest
		var sender domain.UserSummary
		if err := rows.Scan(
			&req.ID, &req.SenderID, &req.ReceiverID, &req.Status,
			&req.FirstMessage.Text, &req.FirstMessage.ImageURL, &req.FirstMessage.VideoURL,
			&req.CreatedAt, &req.UpdatedAt,
			&sender.ID, &sender.Name, &sender.AvatarURL,
		); err != nil {
			return nil, err
		}
		req.Sender = &sender
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *RequestRepo) PendingCounterparts(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END
		FROM message_requests
		WHERE status = 'pending' AND (sender_id = $1 OR receiver_id = $1)`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *RequestRepo) Accept(ctx context.Context, requestID uuid.UUID, first *domain.Message) (*domain.Conversation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var senderID, receiverID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT sender_id, receiver_id FROM message_requests WHERE id = $1`, requestID,
	).Scan(&senderID, &receiverID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotPending
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading request")
	}
	if err := lockPair(ctx, tx, domain.PairKey(senderID, receiverID)); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE message_requests
		SET status = 'accepted', pending_key = NULL, updated_at = $2
		WHERE id = $1 AND status = 'pending'`,
		requestID, time.Now().UTC(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "accepting request")
	}
	if tag.RowsAffected() == 0 {
		return nil, repository.ErrNotPending
	}

	conv, err := upsertConversation(ctx, tx, domain.NewConversation(senderID, receiverID))
	if err != nil {
		return nil, errors.Wrap(err, "creating conversation")
	}

	first.ConversationID = conv.ID
	if err := insertMessage(ctx, tx, first); err != nil {
		return nil, err
	}
	if first.CreatedAt.After(conv.UpdatedAt) {
		conv.UpdatedAt = first.CreatedAt
	}

	return conv, tx.Commit(ctx)
}

func (r *RequestRepo) Reject(ctx context.Context, requestID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE message_requests
		SET status = 'rejected', pending_key = NULL, updated_at = $2
		WHERE id = $1 AND status = 'pending'`,
		requestID, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "rejecting request")
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotPending
	}
	return nil
}

func scanRequest(row pgx.Row) (*domain.MessageRequest, error) {
	var req domain.MessageRequest
	err := row.Scan(
		&req.ID, &req.SenderID, &req.ReceiverID, &req.Status,
		&req.FirstMessage.Text, &req.FirstMessage.ImageURL, &req.FirstMessage.VideoURL,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// lockPair takes a transaction-scoped advisory lock on the pair key. Opening
// a request and accepting one both hold it, so neither can miss the other.
func lockPair(ctx context.Context, tx pgx.Tx, key string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)
	return errors.Wrap(err, "locking pair")
}
