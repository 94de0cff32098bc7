package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"appointment-monitor/services"
	"appointment-monitor/storage"
	"appointment-monitor/utils"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of events to show")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Prints recent appointment events from PostgreSQL.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		if historyLimit < 1 {
			return fmt.Errorf("--limit must be positive, got %d", historyLimit)
		}

		rec, err := storage.NewPostgresRecorder(cmd.Context(), cfg.DSN())
		if err != nil {
			return err
		}
		defer rec.Close()

		events, err := rec.FetchRecent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		logger := utils.NewNopLogger()
		services.NewInsightService(nil, logger).PrintHistory(os.Stdout, events)
		return nil
	},
}
