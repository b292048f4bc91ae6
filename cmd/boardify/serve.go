package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recera/boardify/internal/server"
)

func newServeCommand(env *environment) *cobra.Command {
	var port int
	var host string
	var cardsFile string
	var staticDir string
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board and its card data",
		Long: `Serves cards.json, the static board client and a websocket that tells
connected boards to reload when cards.json changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env.load(os.Stderr)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("host") {
				cfg.Server.Host = host
			}
			if flags.Changed("cards") {
				cfg.Server.CardsFile = cardsFile
			}
			if flags.Changed("static") {
				cfg.Server.StaticDir = staticDir
			}
			if noWatch {
				cfg.Server.Watch = false
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(cfg.Server, logger).Start(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to serve on")
	cmd.Flags().StringVarP(&host, "host", "H", "localhost", "Host to bind to")
	cmd.Flags().StringVar(&cardsFile, "cards", "cards.json", "Card data file")
	cmd.Flags().StringVar(&staticDir, "static", "public", "Static client directory")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not push reloads when the card data changes")

	return cmd
}
