package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/tenantcore/internal/domain/repository"
)

type membershipRepo struct {
	pool *pgxpool.Pool
}

const membershipCols = `
SELECT m.tenant_id, m.user_id, m.role, u.email, u.username, m.created_at
FROM memberships m
JOIN users u ON u.id = m.user_id`

func (r *membershipRepo) Get(ctx context.Context, tenantID, userID string) (*repository.Membership, error) {
	q := membershipCols + `
WHERE m.tenant_id = $1 AND m.user_id = $2;`

	var m repository.Membership
	err := r.pool.QueryRow(ctx, q, tenantID, userID).
		Scan(&m.TenantID, &m.UserID, &m.Role, &m.Email, &m.Username, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepo) List(ctx context.Context, tenantID string) ([]repository.Membership, error) {
	q := membershipCols + `
WHERE m.tenant_id = $1
ORDER BY m.created_at, m.user_id;`

	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Membership
	for rows.Next() {
		var m repository.Membership
		if err := rows.Scan(&m.TenantID, &m.UserID, &m.Role, &m.Email, &m.Username, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *membershipRepo) Add(ctx context.Context, tenantID, userID, role string) (*repository.Membership, error) {
	const q = `
INSERT INTO memberships (tenant_id, user_id, role)
VALUES ($1, $2, $3);`

	if _, err := r.pool.Exec(ctx, q, tenantID, userID, role); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return r.Get(ctx, tenantID, userID)
}

// UpdateRole cambia el rol dentro de una transacción que primero bloquea
// TODAS las filas admin del tenant y después la fila objetivo. Bloquear solo
// el objetivo no alcanza: dos demociones concurrentes de los dos últimos
// admins contarían cada una "queda otro" y ambas commitearían (write skew).
// Con el set admin bloqueado, la segunda transacción espera a la primera y
// recuenta sobre el estado ya commiteado.
func (r *membershipRepo) UpdateRole(ctx context.Context, tenantID, userID, role string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	admins, err := lockAdmins(ctx, tx, tenantID)
	if err != nil {
		return err
	}
	current, err := lockRole(ctx, tx, tenantID, userID)
	if err != nil {
		return err
	}
	if current == repository.RoleAdmin && role != repository.RoleAdmin && !hasOtherAdmin(admins, userID) {
		return repository.ErrLastAdmin
	}
	if _, err := tx.Exec(ctx,
		`UPDATE memberships SET role = $3 WHERE tenant_id = $1 AND user_id = $2;`,
		tenantID, userID, role); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Remove elimina la membresía con el mismo esquema de bloqueo que
// UpdateRole.
func (r *membershipRepo) Remove(ctx context.Context, tenantID, userID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	admins, err := lockAdmins(ctx, tx, tenantID)
	if err != nil {
		return err
	}
	current, err := lockRole(ctx, tx, tenantID, userID)
	if err != nil {
		return err
	}
	if current == repository.RoleAdmin && !hasOtherAdmin(admins, userID) {
		return repository.ErrLastAdmin
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM memberships WHERE tenant_id = $1 AND user_id = $2;`,
		tenantID, userID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *membershipRepo) CountAdmins(ctx context.Context, tenantID, excludeUserID string) (int, error) {
	const q = `
SELECT count(*) FROM memberships
WHERE tenant_id = $1 AND role = $2 AND user_id <> $3;`

	var n int
	if err := r.pool.QueryRow(ctx, q, tenantID, repository.RoleAdmin, excludeUserID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// lockAdmins toma FOR UPDATE sobre todas las filas admin del tenant, en
// orden determinístico, y devuelve sus user_id. Bajo READ COMMITTED, una
// fila demovida por una transacción concurrente deja de satisfacer
// role = 'admin' al re-evaluarse tras el lock, así que el set devuelto
// refleja el estado commiteado.
func lockAdmins(ctx context.Context, tx pgx.Tx, tenantID string) ([]string, error) {
	rows, err := tx.Query(ctx,
		`SELECT user_id FROM memberships
WHERE tenant_id = $1 AND role = $2
ORDER BY user_id
FOR UPDATE;`,
		tenantID, repository.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func hasOtherAdmin(admins []string, userID string) bool {
	for _, id := range admins {
		if id != userID {
			return true
		}
	}
	return false
}

func lockRole(ctx context.Context, tx pgx.Tx, tenantID, userID string) (string, error) {
	var role string
	err := tx.QueryRow(ctx,
		`SELECT role FROM memberships WHERE tenant_id = $1 AND user_id = $2 FOR UPDATE;`,
		tenantID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	return role, err
}
