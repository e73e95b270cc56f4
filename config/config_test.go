package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/cinegraph/common/dataloader"
)

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(flags(t, "--mysql-dsn", "root@tcp(localhost:3306)/cinegraph"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, DatabaseMySQL, cfg.Database.Kind)
	assert.Equal(t, "root@tcp(localhost:3306)/cinegraph", cfg.Database.MySQL.DSN)
	assert.Equal(t, 16, cfg.Database.MySQL.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.MySQL.ConnMaxLifetime)
	assert.Equal(t, dataloader.DefaultWait, cfg.Loader.Wait)
	assert.Zero(t, cfg.Loader.MaxBatch, "windows are unbounded unless a cap is configured")
	assert.Len(t, cfg.Loader.Options(), 2)
}

func TestDefaultLoaderOptionsFetchOnce(t *testing.T) {
	cfg, err := Load(flags(t, "--mysql-dsn", "root@/cinegraph"))
	require.NoError(t, err)

	ctx := context.Background()
	var calls int
	l := dataloader.NewLoader(ctx, func(_ context.Context, keys []int) (map[int]int, error) {
		calls++
		out := make(map[int]int, len(keys))
		for _, k := range keys {
			out[k] = k
		}
		return out, nil
	}, append(cfg.Loader.Options(), dataloader.WithWait(0))...)

	keys := make([]int, 300)
	for i := range keys {
		keys[i] = i % 150
	}
	thunk := l.LoadManyThunk(keys)
	l.Flush()

	out, err := thunk(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 150)
	assert.Equal(t, 1, calls)
}

func TestLoadPrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cinegraph.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
level: debug
database:
  kind: mongo
  mongo:
    uri: mongodb://file:27017
    db: films
loader:
  wait: 5ms
  max_batch: 10
`), 0o600))

	t.Setenv("CINEGRAPH_DATABASE_MONGO_DB", "from_env")

	cfg, err := Load(flags(t, "--config", file, "--loader-max-batch", "25"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, DatabaseMongo, cfg.Database.Kind)
	assert.Equal(t, "mongodb://file:27017", cfg.Database.Mongo.URI)
	assert.Equal(t, "from_env", cfg.Database.Mongo.DB, "env overrides the file")
	assert.Equal(t, 5*time.Millisecond, cfg.Loader.Wait, "an unset flag does not override the file")
	assert.Equal(t, 25, cfg.Loader.MaxBatch, "a set flag overrides the file")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(flags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]Config{
		"unknown kind": {Database: Database{Kind: "postgres"}},
		"mysql dsn":    {Database: Database{Kind: DatabaseMySQL}},
		"mongo uri":    {Database: Database{Kind: DatabaseMongo}},
		"negative wait": {
			Database: Database{Kind: DatabaseMongo, Mongo: Mongo{URI: "mongodb://localhost"}},
			Loader:   Loader{Wait: -time.Millisecond},
		},
		"negative max batch": {
			Database: Database{Kind: DatabaseMySQL, MySQL: MySQL{DSN: "root@/db"}},
			Loader:   Loader{MaxBatch: -1},
		},
	}

	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLogger(t *testing.T) {
	cfg := &Config{Level: "warn"}
	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	cfg.Level = "loud"
	_, err = cfg.Logger()
	assert.Error(t, err)
}
