package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so helpers can run
// inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		avatar_url    TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		online        BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_blocks (
		blocker_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		blocked_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (blocker_id, blocked_id)
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id          UUID PRIMARY KEY,
		sender_id   UUID NOT NULL REFERENCES users(id),
		receiver_id UUID NOT NULL REFERENCES users(id),
		user_low    UUID NOT NULL,
		user_high   UUID NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		UNIQUE (user_low, user_high)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id              UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		text            TEXT NOT NULL DEFAULT '',
		image_url       TEXT NOT NULL DEFAULT '',
		video_url       TEXT NOT NULL DEFAULT '',
		msg_by_user_id  UUID NOT NULL,
		seen            BOOLEAN NOT NULL DEFAULT FALSE,
		created_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS message_requests (
		id              UUID PRIMARY KEY,
		sender_id       UUID NOT NULL REFERENCES users(id),
		receiver_id     UUID NOT NULL REFERENCES users(id),
		status          TEXT NOT NULL,
		pending_key     TEXT UNIQUE,
		first_text      TEXT NOT NULL DEFAULT '',
		first_image_url TEXT NOT NULL DEFAULT '',
		first_video_url TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_message_requests_receiver ON message_requests (receiver_id, status)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "applying schema")
		}
	}
	jww.INFO.Printf("[STORE] postgres schema up to date (%d statements)", len(schema))
	return nil
}
