package commands

import (
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"appointment-monitor/services"
	"appointment-monitor/storage"
	"appointment-monitor/utils"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the recorded earliest appointment of every monitored location.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		logger := utils.NewNopLogger()

		state, err := storage.NewJSONFileStore(cfg.StateFile).LoadState()
		if err != nil {
			return err
		}
		names, err := storage.NewJSONFileStore(cfg.LocationsMapFile).LoadNames()
		if err != nil {
			return err
		}

		ids := cfg.LocationIDs
		if len(ids) == 0 {
			for id := range state {
				ids = append(ids, id)
			}
			sort.Strings(ids)
		}

		svc := services.NewInsightService(services.NewDateParser(cfg.Location(), logger), logger)
		report := svc.Generate(state, ids, services.NewLocationDirectory(names, logger), time.Now().In(cfg.Location()))
		svc.Print(os.Stdout, report)
		return nil
	},
}
