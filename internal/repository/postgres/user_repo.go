package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/repository"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = "id, name, email, avatar_url, password_hash, online, created_at, updated_at"

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, avatar_url, password_hash, online, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.AvatarURL,
		user.PasswordHash, user.Online, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE lower(email) = lower($1)", email)
}

func (r *UserRepo) Search(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id <> $1 AND (name ILIKE $2 ESCAPE '!' OR email ILIKE $2 ESCAPE '!')
		ORDER BY name ASC
		LIMIT $3`, excludeID, repository.ContainsPattern(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.AvatarURL,
			&u.PasswordHash, &u.Online, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) SetOnline(ctx context.Context, id uuid.UUID, online bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET online = $1 WHERE id = $2`, online, id)
	return err
}

func (r *UserRepo) UpdateProfile(ctx context.Context, user *domain.User) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $1, avatar_url = $2, updated_at = $3 WHERE id = $4`,
		user.Name, user.AvatarURL, user.UpdatedAt, user.ID,
	)
	return err
}

// ToggleBlocked deletes the block row if present and inserts it otherwise,
// in a single statement. A returned row means the block now exists.
func (r *UserRepo) ToggleBlocked(ctx context.Context, blockerID, targetID uuid.UUID) (bool, error) {
	query := `
		WITH removed AS (
			DELETE FROM user_blocks WHERE blocker_id = $1 AND blocked_id = $2 RETURNING 1
		)
		INSERT INTO user_blocks (blocker_id, blocked_id)
		SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM removed)
		ON CONFLICT DO NOTHING
		RETURNING true`

	var blocked bool
	err := r.pool.QueryRow(ctx, query, blockerID, targetID).Scan(&blocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return blocked, err
}

func (r *UserRepo) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.AvatarURL,
		&u.PasswordHash, &u.Online, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	blocked, err := r.blockedBy(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.BlockedUsers = blocked
	return &u, nil
}

func (r *UserRepo) blockedBy(ctx context.Context, blockerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT blocked_id FROM user_blocks WHERE blocker_id = $1`, blockerID)
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
