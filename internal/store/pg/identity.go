package pg

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/tenantcore/internal/domain/repository"
)

type identityRepo struct {
	pool *pgxpool.Pool
}

func (r *identityRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	const q = `
INSERT INTO users (id, email, username, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING id, email, username, password_hash, created_at;`

	id := uuid.NewString()
	email := strings.TrimSpace(strings.ToLower(input.Email))
	username := strings.TrimSpace(input.Username)

	var u repository.User
	err := r.pool.QueryRow(ctx, q, id, email, username, input.PasswordHash).
		Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return &u, nil
}

func (r *identityRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	const q = `
SELECT id, email, username, password_hash, created_at
FROM users WHERE username = $1;`
	return r.one(ctx, q, strings.TrimSpace(username))
}

func (r *identityRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	const q = `
SELECT id, email, username, password_hash, created_at
FROM users WHERE id = $1;`
	return r.one(ctx, q, id)
}

func (r *identityRepo) one(ctx context.Context, q string, arg any) (*repository.User, error) {
	var u repository.User
	err := r.pool.QueryRow(ctx, q, arg).
		Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
