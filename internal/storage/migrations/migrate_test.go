package migrations

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	done     map[string]bool
	stmts    []string
	recorded []string
	failOn   string
}

func (f *fakeTarget) ensureVersionTable(context.Context) error { return nil }

func (f *fakeTarget) applied(context.Context) (map[string]bool, error) { return f.done, nil }

func (f *fakeTarget) exec(_ context.Context, stmt string) error {
	if stmt == f.failOn {
		return errors.New("syntax error")
	}
	f.stmts = append(f.stmts, stmt)
	return nil
}

func (f *fakeTarget) record(_ context.Context, version string) error {
	f.recorded = append(f.recorded, version)
	return nil
}

var testFS = fstest.MapFS{
	"pg/002_b.sql":  {Data: []byte("-- second\nCREATE TABLE b (id INT);\n")},
	"pg/001_a.sql":  {Data: []byte("CREATE TABLE a (id INT);\n\nCREATE INDEX a_id ON a (id);")},
	"pg/notes.txt":  {Data: []byte("ignored")},
	"other/001.sql": {Data: []byte("DROP TABLE a;")},
}

func TestApply_RunsPendingInOrder(t *testing.T) {
	target := &fakeTarget{done: map[string]bool{}}

	ran, err := apply(context.Background(), target, testFS, "pg")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a", "002_b"}, ran)
	assert.Equal(t, ran, target.recorded)
	assert.Equal(t, []string{
		"CREATE TABLE a (id INT)",
		"CREATE INDEX a_id ON a (id)",
		"CREATE TABLE b (id INT)",
	}, target.stmts)
}

func TestApply_SkipsRecordedVersions(t *testing.T) {
	target := &fakeTarget{done: map[string]bool{"001_a": true}}

	ran, err := apply(context.Background(), target, testFS, "pg")
	require.NoError(t, err)
	assert.Equal(t, []string{"002_b"}, ran)
	assert.Equal(t, []string{"CREATE TABLE b (id INT)"}, target.stmts)
}

func TestApply_StopsOnFailure(t *testing.T) {
	target := &fakeTarget{done: map[string]bool{}, failOn: "CREATE TABLE b (id INT)"}

	ran, err := apply(context.Background(), target, testFS, "pg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_b")
	assert.Equal(t, []string{"001_a"}, ran)
	assert.Equal(t, []string{"001_a"}, target.recorded)
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, tc := range []struct {
		dir   string
		first string
	}{
		{dir: "postgres", first: "CREATE TABLE IF NOT EXISTS chats"},
		{dir: "clickhouse", first: "CREATE TABLE IF NOT EXISTS volume_snapshots"},
	} {
		target := &fakeTarget{done: map[string]bool{}}
		fsys := PostgresFS
		if tc.dir == "clickhouse" {
			fsys = ClickhouseFS
		}
		ran, err := apply(context.Background(), target, fsys, tc.dir)
		require.NoError(t, err, tc.dir)
		require.Len(t, ran, 1, tc.dir)
		require.NotEmpty(t, target.stmts)
		assert.Contains(t, target.stmts[0], tc.first)
	}
}
