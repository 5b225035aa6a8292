package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(2000), cfg.BatchSize)
	assert.Equal(t, uint64(12), cfg.Confirmations)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.True(t, cfg.CheckpointEnabled)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("INDEXER_RPC", "http://env")
	t.Setenv("INDEXER_BATCH_SIZE", "50")
	t.Setenv("INDEXER_MARKETPLACE_DATA", "0xdata")

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.Uint64("batch-size", 2000, "")
	require.NoError(t, flags.Parse([]string{"--rpc", "http://flag"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "http://flag", cfg.RPCURL)
	assert.Equal(t, uint64(50), cfg.BatchSize)
	assert.Equal(t, "0xdata", cfg.MarketplaceData)
}

func TestLoadTimelineFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("job: 42\nredis-addr: localhost:6379\nfanout: 3\npubkey-ttl: 1h\n"), 0o644))

	cfg, err := LoadTimeline(path, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cfg.Job)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.Fanout)
	assert.Equal(t, time.Hour, cfg.PubkeyTTL)
	assert.Equal(t, 10.0, cfg.RPCRate)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := LoadIngest(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("INDEXER_PG_DSN", "")
	require.NoError(t, os.Unsetenv("INDEXER_PG_DSN"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("INDEXER_PG_DSN=postgres://dotenv\n"), 0o644))
	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "postgres://dotenv", os.Getenv("INDEXER_PG_DSN"))

	cfg, err := LoadMigrate("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://dotenv", cfg.PGDSN)

	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
