package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/librarian/internal/ui"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics and the indexed book list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := ui.NewPrinter(cmd.OutOrStdout())

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := openStore(cmd.Context(), cfg, p)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			stats, err := st.Stats()
			if err != nil {
				return err
			}
			docs, err := st.IndexedDocuments()
			if err != nil {
				return err
			}

			p.Stats(stats, docs)
			return nil
		},
	}
}
