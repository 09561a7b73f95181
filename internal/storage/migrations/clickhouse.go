package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	chstore "token-intel/internal/storage/clickhouse"
)

type chTarget struct {
	conn *chstore.Conn
}

func (t chTarget) ensureVersionTable(ctx context.Context) error {
	return t.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    String,
		applied_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree ORDER BY version`)
}

func (t chTarget) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := t.conn.Query(ctx, `SELECT DISTINCT version FROM schema_migrations`)
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

func (t chTarget) exec(ctx context.Context, stmt string) error {
	return t.conn.Exec(ctx, stmt)
}

func (t chTarget) record(ctx context.Context, version string) error {
	return t.conn.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version)
}

// RunClickhouseMigrations creates the DSN's database if needed, applies the
// pending embedded snapshot schema files and returns a connection to it.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return nil, fmt.Errorf("clickhouse dsn %q names no database", u.Redacted())
	}

	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+db)
	admin.Close()
	if err != nil {
		return nil, fmt.Errorf("create database %s: %w", db, err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, db)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}
	if _, err := apply(ctx, chTarget{conn: conn}, ClickhouseFS, "clickhouse"); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
