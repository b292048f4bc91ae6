// Package server hosts the board: it serves the card data, the static
// client and a websocket that tells clients to reload when the card data
// file changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/recera/boardify/internal/config"
	"github.com/recera/boardify/pkg/card"
)

// ReloadDebounce is how long the watcher waits for writes to settle before
// pushing a reload.
const ReloadDebounce = 100 * time.Millisecond

// Server is the board's HTTP host.
type Server struct {
	cfg      *config.ServerConfig
	echo     *echo.Echo
	hub      *Hub
	upgrader websocket.Upgrader
	logger   log.FieldLogger
}

// New builds the server and registers its routes.
func New(cfg *config.ServerConfig, logger log.FieldLogger) *Server {
	s := &Server{
		cfg:    cfg,
		echo:   echo.New(),
		hub:    NewHub(logger),
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.WithFields(log.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			}).Debug("Request")
			return nil
		},
	}))

	e.GET("/cards.json", s.serveCards)
	e.GET("/healthz", s.health)
	e.GET("/ws", s.serveWS)
	if cfg.StaticDir != "" {
		e.Static("/", cfg.StaticDir)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Hub returns the websocket client hub.
func (s *Server) Hub() *Hub { return s.hub }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Watch {
		if err := s.Watch(ctx); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.cfg.Addr()).Info("Board server listening")
		errCh <- s.echo.Start(s.cfg.Addr())
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// serveCards serves the card data file. The body is checked with the same
// decoder the board uses so clients get a 500 instead of data they would
// reject.
func (s *Server) serveCards(c echo.Context) error {
	data, err := os.ReadFile(s.cfg.CardsFile)
	if errors.Is(err, os.ErrNotExist) {
		return echo.NewHTTPError(http.StatusNotFound, "cards.json not found")
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to read card data")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read card data")
	}
	if _, err := card.Decode(data); err != nil {
		s.logger.WithError(err).WithField("path", s.cfg.CardsFile).Warn("Serving invalid card data refused")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.Len(),
	})
}

func (s *Server) serveWS(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade error")
		return nil
	}
	s.hub.serve(conn)
	return nil
}

// Watch starts watching the card data file and broadcasts a RELOAD message
// once writes settle. It returns after the watch is registered; the watcher
// stops when ctx is cancelled.
func (s *Server) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory so editors that replace the file are still seen.
	target, err := filepath.Abs(s.cfg.CardsFile)
	if err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	go s.watchLoop(ctx, watcher, target)
	return nil
}

func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, target string) {
	defer watcher.Close()

	debounce := time.NewTimer(0)
	<-debounce.C
	pending := false

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			pending = true
			debounce.Reset(ReloadDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.WithError(err).Warn("Watcher error")

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			s.logger.WithField("clients", s.hub.Len()).Info("Card data changed, notifying clients")
			s.hub.Broadcast(Message{Type: TypeReload})
		}
	}
}
