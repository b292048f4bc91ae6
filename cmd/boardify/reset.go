package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newResetCommand(env *environment) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard saved card positions",
		Long: `Re-fetches the card data and discards saved positions so every card
returns to its position in cards.json. Saved positions are kept if the
card data cannot be fetched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env.load(os.Stderr)
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

			mgr := newManager(cfg, url, newPositions(cfg, store, logger), logger)
			defer mgr.Close()

			if err := mgr.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Positions reset for %d cards\n", len(mgr.Cards()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "Card data URL (defaults to fetch.url)")

	return cmd
}
