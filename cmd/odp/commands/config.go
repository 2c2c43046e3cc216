package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opendatastudio/opendatago/pkg/datapackage"
	"github.com/opendatastudio/opendatago/pkg/engine"
	"github.com/opendatastudio/opendatago/pkg/executor"
	"github.com/opendatastudio/opendatago/pkg/runtime"
	"github.com/opendatastudio/opendatago/pkg/stores"
	"github.com/opendatastudio/opendatago/pkg/telemetry"
)

// defaultConfigFile is picked up from the working directory when --config
// is not given.
const defaultConfigFile = "opendatago.yaml"

// CLIConfig is the optional YAML configuration for the CLI.
type CLIConfig struct {
	// BasePath is the default datapackage base path. The --path flag
	// overrides it.
	BasePath string `yaml:"base_path"`

	// HistoryDB is the path of the SQLite run-history database. Empty
	// disables history recording.
	HistoryDB string `yaml:"history_db"`

	// LogLevel is the minimum log level.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// MetricsAddr is the listen address for the Prometheus metrics
	// endpoint (e.g. ":9090"). Empty disables metrics. Mostly useful in
	// watch mode, where the process is long-lived.
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

// loadCLIConfig reads the CLI config file. A missing default file is not
// an error; a missing explicit --config file is.
func loadCLIConfig() (*CLIConfig, error) {
	path := configFile
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return &CLIConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// resolveBasePath picks the datapackage base path: flag first, then config
// file, then the working directory.
func resolveBasePath(cfg *CLIConfig) string {
	if basePath != "." && basePath != "" {
		return basePath
	}
	if cfg.BasePath != "" {
		return cfg.BasePath
	}
	return basePath
}

// app bundles the collaborators a command needs.
type app struct {
	store   *datapackage.Store
	engine  *engine.Engine
	history *stores.SQLiteStore
}

// newStore builds a datapackage store from flags and config file.
func newStore() (*datapackage.Store, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, err
	}
	return datapackage.NewStore(resolveBasePath(cfg), log.Logger), nil
}

// newApp wires the store, docker runtime, executor and, when configured,
// the run-history database. Call close when done.
func newApp(cmd *cobra.Command) (*app, func(), error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, nil, err
	}

	if cfg.LogLevel != "" {
		logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
			Level:  cfg.LogLevel,
			Format: "console",
			Output: "stderr",
		})
		if err != nil {
			return nil, nil, err
		}
		log.Logger = logger
	}

	store := datapackage.NewStore(resolveBasePath(cfg), log.Logger)

	rt, err := runtime.NewDockerRuntime(log.Logger)
	if err != nil {
		return nil, nil, err
	}
	exec := executor.New(rt, log.Logger)

	var opts []engine.Option
	var history *stores.SQLiteStore
	if cfg.HistoryDB != "" {
		history, err = openHistory(cmd.Context(), cfg.HistoryDB)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, engine.WithHistory(history))
	}

	if cfg.MetricsAddr != "" {
		metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: true})
		if err != nil {
			return nil, nil, err
		}
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
				log.Warn().Err(err).Str("addr", cfg.MetricsAddr).Msg("Metrics endpoint stopped")
			}
		}()
		opts = append(opts, engine.WithMetrics(metrics))
	}

	eng := engine.New(store, exec, log.Logger, opts...)

	cleanup := func() {
		if history != nil {
			_ = history.Close()
		}
	}
	return &app{store: store, engine: eng, history: history}, cleanup, nil
}

// openHistory opens the history database, creating and migrating it as
// needed.
func openHistory(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	history, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := history.Init(ctx); err != nil {
		return nil, err
	}
	if err := history.Migrate(ctx); err != nil {
		_ = history.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return history, nil
}
