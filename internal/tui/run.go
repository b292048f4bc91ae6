package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/recera/boardify/internal/server"
)

// Run shows the board until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	m := New(ctx, opts)
	defer m.Close()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	if opts.ReloadURL != "" {
		go watchReload(ctx, opts.ReloadURL, m.opts.Logger, func() { p.Send(staleMsg{}) })
	}

	_, err := p.Run()
	return err
}

// ReloadURL derives the websocket endpoint from the card data URL.
func ReloadURL(cardsURL string) string {
	u := cardsURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return ""
	}
	if i := strings.LastIndex(u, "/"); i > len("wss://") {
		u = u[:i]
	}
	return u + "/ws"
}

// watchReload listens for RELOAD pushes and calls notify for each one. It
// reconnects with a fixed delay until ctx is cancelled.
func watchReload(ctx context.Context, url string, logger log.FieldLogger, notify func()) {
	const retryDelay = 5 * time.Second

	for {
		if err := listenReload(ctx, url, notify); err != nil {
			logger.WithError(err).WithField("url", url).Debug("Reload channel unavailable")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

func listenReload(ctx context.Context, url string, notify func()) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteJSON(server.Message{Type: server.TypeHello}); err != nil {
		return err
	}
	for {
		var msg server.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Type == server.TypeReload {
			notify()
		}
	}
}
