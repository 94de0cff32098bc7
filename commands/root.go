package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"appointment-monitor/config"
	"appointment-monitor/utils"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "appointment-monitor",
	Short: "appointment-monitor watches booking pages and notifies about earlier appointments.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to read settings from")
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the settings and, when validate is set, fails on missing
// or malformed values.
func loadConfig(validate bool) (*config.Config, error) {
	cfg := config.Load(envFile)
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger builds the application logger. A log file that cannot be opened
// is reported and console logging continues.
func newLogger(cfg *config.Config) *utils.Logger {
	logger, err := utils.NewLoggerWithOptions(utils.LoggerOptions{Level: cfg.LogLevel, FilePath: cfg.LogFile})
	if err != nil {
		logger.Warn("%v", err)
	}
	return logger
}
