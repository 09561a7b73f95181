package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// target is one database the runner applies files to. Versions already
// recorded in schema_migrations are skipped.
type target interface {
	ensureVersionTable(ctx context.Context) error
	applied(ctx context.Context) (map[string]bool, error)
	exec(ctx context.Context, stmt string) error
	record(ctx context.Context, version string) error
}

// apply runs the pending .sql files of dir in lexical order, one statement
// at a time, and returns the versions it applied.
func apply(ctx context.Context, t target, fsys fs.FS, dir string) ([]string, error) {
	if err := t.ensureVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	done, err := t.applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}

	files, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var ran []string
	for _, file := range files {
		version := strings.TrimSuffix(path.Base(file), ".sql")
		if done[version] {
			continue
		}
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return ran, fmt.Errorf("read migration %s: %w", version, err)
		}
		for _, stmt := range statements(string(data)) {
			if err := t.exec(ctx, stmt); err != nil {
				return ran, fmt.Errorf("apply migration %s: %w", version, err)
			}
		}
		if err := t.record(ctx, version); err != nil {
			return ran, fmt.Errorf("record migration %s: %w", version, err)
		}
		ran = append(ran, version)
	}
	return ran, nil
}

// statements drops "--" comment lines and splits on ';'. The embedded DDL
// keeps semicolons out of literals.
func statements(sql string) []string {
	var lines []string
	for _, line := range strings.Split(sql, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			lines = append(lines, line)
		}
	}
	var out []string
	for _, part := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
