package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/club-kit/credit-service/internal/config"
)

func TestMigrationFilesSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_more.sql", "001_init.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))

	files, err := migrationFiles(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"001_init.sql", "002_more.sql"}, files)
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	err := RunMigrations(context.Background(), nil, "", zap.NewNop())
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestNilBackendsReportNotConfigured(t *testing.T) {
	var pg *Postgres
	var rd *Redis
	require.ErrorIs(t, pg.Ping(context.Background()), ErrNotConfigured)
	require.ErrorIs(t, rd.Ping(context.Background()), ErrNotConfigured)
	pg.Close()
	rd.Close()
}

func TestNewRedis(t *testing.T) {
	require.Nil(t, NewRedis(context.Background(), config.RedisConfig{}, zap.NewNop()))

	mr := miniredis.RunT(t)
	rd := NewRedis(context.Background(), config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NotNil(t, rd)
	t.Cleanup(rd.Close)
	require.NoError(t, rd.Ping(context.Background()))
}
