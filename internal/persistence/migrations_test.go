package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingExecer struct {
	statements []string
	failOn     int
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	if r.failOn > 0 && len(r.statements) == r.failOn {
		return pgconn.CommandTag{}, errors.New("syntax error")
	}
	return pgconn.CommandTag{}, nil
}

func writeMigrations(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "002_audit.sql"), []byte("CREATE TABLE b();"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("CREATE TABLE a();"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o700))
	return dir
}

func TestRunMigrations_AppliesSQLFilesInOrder(t *testing.T) {
	dir := writeMigrations(t)
	db := &recordingExecer{}

	require.NoError(t, RunMigrations(context.Background(), db, dir, zap.NewNop()))
	assert.Equal(t, []string{"CREATE TABLE a();", "CREATE TABLE b();"}, db.statements)
}

func TestRunMigrations_StopsOnFailure(t *testing.T) {
	dir := writeMigrations(t)
	db := &recordingExecer{failOn: 1}

	err := RunMigrations(context.Background(), db, dir, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_init.sql")
	assert.Len(t, db.statements, 1)
}

func TestRunMigrations_MissingDir(t *testing.T) {
	err := RunMigrations(context.Background(), &recordingExecer{}, filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	assert.Error(t, err)
}

func TestRepositoryMigrationsParse(t *testing.T) {
	files, err := MigrationFiles(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	assert.Contains(t, files, "001_init.sql")
}
