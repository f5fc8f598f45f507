package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/tickerwatch/internal/client"
	"github.com/phrazzld/tickerwatch/internal/config"
	"github.com/phrazzld/tickerwatch/internal/platform/logger"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	baseURL    string

	cfg    *config.Config
	logger *slog.Logger
	api    *client.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "tickerwatch",
		Short: "Submit stock analyses and follow them live",
		Long: `tickerwatch submits stock analysis jobs to an analysis server and follows
their lifecycle over the server's live task stream.

Configuration is read from an optional YAML file (--config) and from
TICKERWATCH_* environment variables, e.g. TICKERWATCH_API_BASE_URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&a.baseURL, "base-url", "", "analysis server base URL override")

	root.AddCommand(
		newSubmitCmd(a),
		newStatusCmd(a),
		newTasksCmd(a),
		newWatchCmd(a),
		newWatchlistCmd(a),
		newHistoryCmd(a),
		newBacktestCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads configuration, applies flag overrides, and builds the logger
// and API client.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.baseURL != "" {
		cfg.API.BaseURL = a.baseURL
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	log, err := logger.Setup(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	api, err := client.New(cfg.API, log)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	a.cfg = cfg
	a.logger = log
	a.api = api

	log.Debug("configuration loaded",
		"config_file", a.configPath,
		"pid", os.Getpid(),
		"stream_enabled", cfg.Stream.Enabled,
		"reconnect_delay", cfg.Stream.ReconnectDelay)
	return nil
}
