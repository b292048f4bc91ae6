package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_AppliesDefaultsToPartialFile(t *testing.T) {
	dir := t.TempDir()
	data := `
server:
  port: 9090
  watch: false
fetch:
  backoff: 250ms
storage:
  driver: redis
  redisURL: redis://localhost:6379/0
board:
  saveDebounce: 1s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Server.Watch)
	assert.Equal(t, "cards.json", cfg.Server.CardsFile)
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.Backoff)
	assert.Equal(t, 3, cfg.Fetch.Attempts)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "boardify:", cfg.Storage.Prefix)
	assert.Equal(t, time.Second, cfg.Board.SaveDebounce)
	assert.Equal(t, 200*time.Millisecond, cfg.Board.ViewDebounce)
	assert.Equal(t, 288.0, cfg.Board.CardWidth)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"syntax":        "server: [",
		"driver":        "storage:\n  driver: sqlite\n",
		"redis url":     "storage:\n  driver: redis\n",
		"scale bounds":  "board:\n  minScale: 4\n  maxScale: 2\n",
		"port":          "server:\n  port: 70000\n",
		"attempts":      "fetch:\n  attempts: 40\n",
		"duration type": "board:\n  saveDebounce: soon\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0644))
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Server.Port = 4000
	cfg.Board.ViewDebounce = 50 * time.Millisecond
	cfg.Storage.Driver = DriverMemory

	require.NoError(t, Save(cfg, dir))
	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:81", (&ServerConfig{Host: "0.0.0.0", Port: 81}).Addr())
}
