package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/recera/boardify/internal/config"
	"github.com/recera/boardify/internal/logging"
	"github.com/recera/boardify/pkg/board"
	"github.com/recera/boardify/pkg/fetch"
	"github.com/recera/boardify/pkg/kv"
	"github.com/recera/boardify/pkg/positions"
	"github.com/recera/boardify/pkg/reactive"
)

// environment resolves the configuration and shared services for a command.
type environment struct {
	configPath *string
	logLevel   *string
}

func (e *environment) load(out io.Writer) (*config.Config, *log.Logger, error) {
	cfg, err := config.LoadFile(*e.configPath)
	if err != nil {
		return nil, nil, err
	}
	if *e.logLevel != "" {
		cfg.Log.Level = *e.logLevel
	}
	logger, err := logging.New(out, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	if logger.IsLevelEnabled(log.TraceLevel) {
		reactive.SetDebugLog(func(args ...interface{}) { logger.Trace(args...) })
	}
	return cfg, logger, nil
}

// openStore opens the configured storage backend. The returned close
// function releases it.
func openStore(cfg *config.StorageConfig) (kv.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case config.DriverMemory:
		return kv.NewMemory(0), noop, nil
	case config.DriverFile:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, err
			}
		}
		f, err := kv.OpenFile(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, noop, nil
	case config.DriverRedis:
		r, err := kv.DialRedis(cfg.RedisURL, cfg.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// newPositions builds the position store for cfg.
func newPositions(cfg *config.Config, store kv.Store, logger log.FieldLogger) *positions.Store {
	return positions.New(store,
		positions.WithLogger(logger),
		positions.WithScaleBounds(cfg.Board.MinScale, cfg.Board.MaxScale),
	)
}

// newManager builds a layout manager fetching from url.
func newManager(cfg *config.Config, url string, pos *positions.Store, logger log.FieldLogger) *board.Manager {
	return board.New(board.Config{
		URL: url,
		FetchOptions: []fetch.Option{
			fetch.WithAttempts(cfg.Fetch.Attempts),
			fetch.WithBackoff(cfg.Fetch.Backoff),
			fetch.WithNotify(func(err error, wait time.Duration) {
				logger.WithError(err).WithField("wait", wait).Warn("Fetch failed, retrying")
			}),
		},
		Store:     pos,
		SaveDelay: cfg.Board.SaveDebounce,
		Logger:    logger,
	})
}
