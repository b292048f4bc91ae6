package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/boardify/internal/config"
	"github.com/recera/boardify/pkg/board"
	"github.com/recera/boardify/pkg/card"
	"github.com/recera/boardify/pkg/positions"
)

const cardsJSON = `[
  {"id": 1, "title": "Auth", "description": "", "domain": "Security", "x": 10, "y": 20},
  {"id": 2, "title": "Billing", "description": "", "domain": "Finance", "x": 300, "y": 0}
]`

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	drivers := map[string]*config.StorageConfig{
		"memory": {Driver: config.DriverMemory},
		"file":   {Driver: config.DriverFile, Path: filepath.Join(t.TempDir(), "nested", "state.json")},
		"redis":  {Driver: config.DriverRedis, RedisURL: "redis://" + mr.Addr(), Prefix: "test:"},
	}
	for name, cfg := range drivers {
		t.Run(name, func(t *testing.T) {
			store, closeStore, err := openStore(cfg)
			require.NoError(t, err)
			defer closeStore()

			require.NoError(t, store.Set(ctx, "k", "v"))
			v, ok, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v", v)
		})
	}

	assert.True(t, mr.Exists("test:k"))

	_, _, err := openStore(&config.StorageConfig{Driver: "tape"})
	assert.Error(t, err)
}

type cli struct {
	env     *environment
	cfgPath string
	state   string
	url     string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, cardsJSON)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = filepath.Join(dir, "state.json")
	cfg.Board.ExportDir = dir
	cfg.Log.Level = "error"
	require.NoError(t, config.Save(cfg, dir))

	cfgPath := filepath.Join(dir, config.FileName)
	level := ""
	return &cli{
		env:     &environment{configPath: &cfgPath, logLevel: &level},
		cfgPath: cfgPath,
		state:   cfg.Storage.Path,
		url:     srv.URL + "/cards.json",
	}
}

func (c *cli) savePositions(t *testing.T, p card.Positions) {
	t.Helper()
	cfg, err := config.LoadFile(c.cfgPath)
	require.NoError(t, err)
	store, closeStore, err := openStore(cfg.Storage)
	require.NoError(t, err)
	defer closeStore()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), positions.PositionsKey, string(data)))
}

func TestExportCommand(t *testing.T) {
	c := newCLI(t)
	c.savePositions(t, card.Positions{2: {X: 5, Y: 6}})

	cmd := newExportCommand(c.env)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--url", c.url, "--stdout"})
	require.NoError(t, cmd.Execute())

	var layout []card.LayoutEntry
	require.NoError(t, json.Unmarshal(out.Bytes(), &layout))
	assert.Equal(t, []card.LayoutEntry{
		{ID: 1, Title: "Auth", X: 10, Y: 20},
		{ID: 2, Title: "Billing", X: 5, Y: 6},
	}, layout)

	cmd = newExportCommand(c.env)
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--url", c.url})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Exported 2 cards")
	_, err := os.Stat(filepath.Join(filepath.Dir(c.cfgPath), board.ExportFileName))
	assert.NoError(t, err)
}

func TestResetCommand(t *testing.T) {
	c := newCLI(t)
	c.savePositions(t, card.Positions{1: {X: 99, Y: 99}})

	cmd := newResetCommand(c.env)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--url", c.url})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Positions reset for 2 cards")

	data, err := os.ReadFile(c.state)
	require.NoError(t, err)
	assert.NotContains(t, string(data), positions.PositionsKey)
}
