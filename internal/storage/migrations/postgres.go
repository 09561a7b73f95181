package migrations

import (
	"context"

	"token-intel/internal/storage/postgres"
)

type pgTarget struct {
	pool *postgres.Pool
}

func (t pgTarget) ensureVersionTable(ctx context.Context) error {
	return t.exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
}

func (t pgTarget) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := t.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

func (t pgTarget) exec(ctx context.Context, stmt string) error {
	_, err := t.pool.Exec(ctx, stmt)
	return err
}

func (t pgTarget) record(ctx context.Context, version string) error {
	_, err := t.pool.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING`, version)
	return err
}

// RunPostgresMigrations applies the pending embedded chat schema files.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	_, err := apply(ctx, pgTarget{pool: pool}, PostgresFS, "postgres")
	return err
}
