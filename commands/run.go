package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"appointment-monitor/config"
	"appointment-monitor/models"
	"appointment-monitor/notify"
	"appointment-monitor/scraper/rmv"
	"appointment-monitor/services"
	"appointment-monitor/storage"
	"appointment-monitor/utils"
)

var (
	runOnce    bool
	resetState bool
)

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single check and exit")
	runCmd.Flags().BoolVar(&resetState, "reset-state", false, "delete the state file before starting")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Checks appointment availability on a schedule and sends notifications.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return fmt.Errorf("configuration: %w", err)
		}
		logger := newLogger(cfg)
		defer logger.Close()

		return runMonitor(cmd.Context(), cfg, logger)
	},
}

func runMonitor(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	logger.Info("=== Appointment monitor starting ===")
	logger.Info("Config: %d locations | every %d min | retries: %d | notify rate: %dms",
		len(cfg.LocationIDs), cfg.CheckFrequencyMinutes, cfg.MaxRetries, cfg.NotifyRateLimitMs)
	if !cfg.EnvFileLoaded {
		logger.Warn("No env file found at %s, using environment only", envFile)
	}

	metrics := utils.NewMetrics(cfg.MetricsListen != "")
	if cfg.MetricsListen != "" {
		srv := serveMetrics(cfg.MetricsListen, metrics, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	scraper := rmv.New(cfg, logger)
	dir, err := loadDirectory(ctx, cfg, scraper, logger)
	if err != nil {
		return err
	}

	logger.Info("Locations mapping:")
	for _, id := range cfg.LocationIDs {
		logger.Info("  %s -> %s", id, dir.Resolve(id))
	}

	stateStore := storage.NewJSONFileStore(cfg.StateFile)
	if resetState {
		if err := stateStore.Reset(); err != nil {
			return err
		}
		logger.Info("Deleted %s", cfg.StateFile)
	}

	session, err := openSession(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Error closing tracking session: %v", err)
		}
	}()

	parser := services.NewDateParser(cfg.Location(), logger)
	monitor, err := services.NewMonitor(services.MonitorDeps{
		Fetcher:   scraper,
		Engine:    services.NewDiffEngine(parser, logger),
		Store:     stateStore,
		Directory: dir,
		Sink:      notify.New(cfg, logger),
		Session:   session,
		Metrics:   metrics,
		Logger:    logger,
	}, monitorOptions(cfg, notify.LoadFooter(cfg.FooterFile, logger)))
	if err != nil {
		return err
	}

	if runOnce {
		return monitor.RunCycle(ctx)
	}
	if err := monitor.Run(ctx); err != nil {
		return err
	}
	logger.Info("Shutting down gracefully...")
	return nil
}

// monitorOptions stamps observations in the configured timezone so tracked
// weekday/hour/month match the local office hours.
func monitorOptions(cfg *config.Config, footer string) services.MonitorOptions {
	loc := cfg.Location()
	return services.MonitorOptions{
		LocationIDs: cfg.LocationIDs,
		Destination: cfg.NotifyURL,
		Footer:      footer,
		Interval:    cfg.CheckInterval(),
		RateLimitMs: cfg.NotifyRateLimitMs,
		Now:         func() time.Time { return time.Now().In(loc) },
	}
}

type catalogFetcher interface {
	FetchAll(ctx context.Context) ([]models.Location, error)
}

// loadDirectory loads the persisted location map and refreshes it from the
// catalog. Startup fails only when both are empty.
func loadDirectory(ctx context.Context, cfg *config.Config, scraper catalogFetcher, logger *utils.Logger) (*services.LocationDirectory, error) {
	var store storage.DirectoryStore = storage.NewJSONFileStore(cfg.LocationsMapFile)
	names, err := store.LoadNames()
	if err != nil {
		logger.Warn("Could not read %s: %v", cfg.LocationsMapFile, err)
		names = nil
	}
	dir := services.NewLocationDirectory(names, logger)
	if dir.Len() > 0 {
		logger.Info("Loaded existing locations mapping with %d locations", dir.Len())
	}

	logger.Info("Fetching all location data for friendly names...")
	catalog, err := scraper.FetchAll(ctx)
	if err != nil {
		logger.Error("Could not fetch location catalog: %v", err)
	}
	catalog = services.NewCleaner(logger).CleanCatalog(catalog)

	if len(catalog) == 0 && dir.Len() == 0 {
		return nil, errors.New("could not fetch location data and no locations map is available")
	}

	changed := dir.Bootstrap(catalog) || dir.Merge(catalog)
	if changed {
		if err := store.SaveNames(dir.Names()); err != nil {
			logger.Error("Could not save %s: %v", cfg.LocationsMapFile, err)
		}
	}
	return dir, nil
}

// openSession opens the event recorders enabled in the configuration.
func openSession(ctx context.Context, cfg *config.Config, metrics utils.Metrics, logger *utils.Logger) (*services.Session, error) {
	var recorders []storage.EventRecorder

	if cfg.EventsCSVPath != "" {
		rec, err := storage.NewCSVRecorder(cfg.EventsCSVPath)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, rec)
		logger.Info("Recording events to %s", cfg.EventsCSVPath)
	}

	if cfg.TrackingPostgres {
		rec, err := storage.NewPostgresRecorder(ctx, cfg.DSN())
		if err != nil {
			logger.Warn("Could not connect to PostgreSQL, event history disabled: %v", err)
		} else {
			recorders = append(recorders, rec)
			logger.Info("Recording events to PostgreSQL (table: appointment_events)")
		}
	}

	return services.NewSession(logger, metrics, recorders...), nil
}

func serveMetrics(addr string, metrics utils.Metrics, logger *utils.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped: %v", err)
		}
	}()
	return srv
}
