package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCommand(env *environment) *cobra.Command {
	var url string
	var outDir string
	var stdout bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the saved layout to cardboard-layout.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env.load(os.Stderr)
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Fetch.URL
			}
			if outDir == "" {
				outDir = cfg.Board.ExportDir
			}

			store, closeStore, err := openStore(cfg.Storage)
			if err != nil {
				return err
			}
			defer closeStore()

			mgr := newManager(cfg, url, newPositions(cfg, store, logger), logger)
			defer mgr.Close()

			if err := mgr.Load(cmd.Context()); err != nil {
				return err
			}

			if stdout {
				return mgr.ExportLayout(cmd.OutOrStdout())
			}
			path, err := mgr.ExportLayoutFile(outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d cards to %s\n", len(mgr.Cards()), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "Card data URL (defaults to fetch.url)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (defaults to board.exportDir)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Write the layout to standard output")

	return cmd
}
