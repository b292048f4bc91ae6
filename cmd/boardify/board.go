package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recera/boardify/internal/tui"
)

func newBoardCommand(env *environment) *cobra.Command {
	var url string
	var logFile string

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the board in the terminal",
		Long: `Opens an interactive board. Drag cards with the mouse, zoom with +/- or
ctrl+wheel, pan with the arrow keys or alt+wheel.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the board; logs go to a file or nowhere.
			var out io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				out = f
			}

			cfg, logger, err := env.load(out)
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Fetch.URL
			}

			store, closeStore, err := openStore(cfg.Storage)
			if err != nil {
				return err
			}
			defer closeStore()

			pos := newPositions(cfg, store, logger)
			mgr := newManager(cfg, url, pos, logger)
			defer func() {
				pos.FlushPositions()
				pos.FlushView()
				mgr.Close()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return tui.Run(ctx, tui.Options{
				Manager:    mgr,
				Store:      pos,
				CardWidth:  cfg.Board.CardWidth,
				CardHeight: cfg.Board.CardHeight,
				MinScale:   cfg.Board.MinScale,
				MaxScale:   cfg.Board.MaxScale,
				ViewDelay:  cfg.Board.ViewDebounce,
				ExportDir:  cfg.Board.ExportDir,
				ReloadURL:  tui.ReloadURL(url),
				Logger:     logger,
			})
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "Card data URL (defaults to fetch.url)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file")

	return cmd
}
