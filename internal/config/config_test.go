package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "https://bsky.social", cfg.Bluesky.Host)
	assert.Equal(t, "disabled", cfg.Bluesky.ReplyMode)
	assert.Equal(t, 1000, cfg.Thread.MinDelayMs)
	assert.Equal(t, 5000, cfg.Thread.MaxDelayMs)
	assert.Equal(t, "x", cfg.Feed.Platform)
	assert.Equal(t, time.Hour, cfg.Feed.Interval)
}

func TestLoadFileYAML(t *testing.T) {
	path := writeConfig(t, `
x:
  api_key: from-file
bluesky:
  handle: alice.bsky.social
  reply_mode: collapsed
thread:
  min_delay_ms: 200
  max_delay_ms: 800
feed:
  urls:
    - https://example.com/rss
  interval: 15m
queue:
  brokers: [localhost:9092]
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.X.APIKey)
	assert.Equal(t, "collapsed", cfg.Bluesky.ReplyMode)
	assert.Equal(t, 200, cfg.Thread.MinDelayMs)
	assert.Equal(t, 800, cfg.Thread.MaxDelayMs)
	assert.Equal(t, []string{"https://example.com/rss"}, cfg.Feed.URLs)
	assert.Equal(t, 15*time.Minute, cfg.Feed.Interval)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Queue.Brokers)
}

func TestLoadFileEnvOverlay(t *testing.T) {
	path := writeConfig(t, "x:\n  api_key: from-file\n")

	t.Setenv("THREADCAST_X__API_KEY", "from-env")
	t.Setenv("THREADCAST_QUEUE__BROKERS", "a:9092,b:9092")
	t.Setenv("THREADCAST_BLUESKY__PASSWORD", "secret")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.X.APIKey)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Queue.Brokers)
	assert.Equal(t, "secret", cfg.Bluesky.Password)
}

func TestLoadFileZeroDelay(t *testing.T) {
	path := writeConfig(t, "thread:\n  min_delay_ms: 0\n  max_delay_ms: 0\n")
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Thread.MinDelayMs)
	assert.Equal(t, 0, cfg.Thread.MaxDelayMs)

	t.Setenv("THREADCAST_THREAD__MIN_DELAY_MS", "0")
	t.Setenv("THREADCAST_THREAD__MAX_DELAY_MS", "0")
	cfg, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Thread.MinDelayMs)
	assert.Equal(t, 0, cfg.Thread.MaxDelayMs)
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, "thread:\n  min_delay_ms: 10\n  max_delay_ms: 5\n")
	_, err := LoadFile(path)
	assert.Error(t, err)

	path = writeConfig(t, "bluesky:\n  reply_mode: threaded\n")
	_, err = LoadFile(path)
	assert.Error(t, err)
}
