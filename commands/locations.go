package commands

import (
	"os"

	"github.com/spf13/cobra"

	"appointment-monitor/scraper/rmv"
	"appointment-monitor/services"
	"appointment-monitor/storage"
)

var refreshLocations bool

func init() {
	locationsCmd.Flags().BoolVar(&refreshLocations, "refresh", false, "fetch the catalog from the booking site and update the locations map")
	rootCmd.AddCommand(locationsCmd)
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Prints the known locations and marks the monitored ones.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		defer logger.Close()

		var dir *services.LocationDirectory
		if refreshLocations {
			dir, err = loadDirectory(cmd.Context(), cfg, rmv.New(cfg, logger), logger)
			if err != nil {
				return err
			}
		} else {
			names, err := storage.NewJSONFileStore(cfg.LocationsMapFile).LoadNames()
			if err != nil {
				return err
			}
			dir = services.NewLocationDirectory(names, logger)
		}

		services.NewInsightService(nil, logger).PrintLocations(os.Stdout, dir.Locations(), cfg.LocationIDs)
		return nil
	},
}
