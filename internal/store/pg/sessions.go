package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/tenantcore/internal/domain/repository"
)

type sessionRepo struct {
	pool *pgxpool.Pool
}

func (r *sessionRepo) Create(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	const q = `
INSERT INTO sessions (id, user_id, token_hash, user_agent, ip_address, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, user_id, token_hash, user_agent, ip_address, expires_at, created_at;`

	var s repository.Session
	err := r.pool.QueryRow(ctx, q,
		input.ID, input.UserID, input.TokenHash, input.UserAgent, input.IPAddress, input.ExpiresAt).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.UserAgent, &s.IPAddress, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*repository.Session, error) {
	const q = `
SELECT id, user_id, token_hash, user_agent, ip_address, expires_at, created_at
FROM sessions WHERE id = $1;`

	var s repository.Session
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.UserAgent, &s.IPAddress, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete es el DELETE condicional del que depende la garantía single-use:
// RowsAffected distingue al ganador cuando dos rotaciones del mismo refresh
// corren en paralelo. Nada de locks a nivel aplicación.
func (r *sessionRepo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1;`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now();`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
