package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	migrations "github.com/dropDatabas3/tenantcore/migrations/postgres"
)

// Migrate aplica las migraciones *_up.sql embebidas que falten, en orden.
// Retorna cuántas aplicó. Cada migración corre en su propia transacción y
// queda registrada en schema_migrations.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	const bootstrap = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	if _, err := s.pool.Exec(ctx, bootstrap); err != nil {
		return 0, fmt.Errorf("migrate: bootstrap: %w", err)
	}

	entries, err := fs.Glob(migrations.FS, "*_up.sql")
	if err != nil {
		return 0, err
	}
	sort.Strings(entries)

	applied := 0
	for _, name := range entries {
		version := strings.TrimSuffix(name, "_up.sql")

		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1);`,
			version).Scan(&exists); err != nil {
			return applied, err
		}
		if exists {
			continue
		}

		sqlBytes, err := migrations.FS.ReadFile(name)
		if err != nil {
			return applied, err
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return applied, err
		}
		if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback(ctx)
			return applied, fmt.Errorf("migrate: %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1);`, version); err != nil {
			_ = tx.Rollback(ctx)
			return applied, err
		}
		if err := tx.Commit(ctx); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}
