package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opendatastudio/opendatago/pkg/datapackage"
	"github.com/opendatastudio/opendatago/pkg/executor"
	"github.com/opendatastudio/opendatago/pkg/stores"
	"github.com/opendatastudio/opendatago/pkg/telemetry"
)

// Environment variable names by which the containerized program discovers
// what to execute. Exactly one is set per run.
const (
	EnvConfiguration = "CONFIGURATION"
	EnvView          = "VIEW"
)

// Engine resolves configurations and views to container runs.
type Engine struct {
	store   *datapackage.Store
	exec    *executor.Executor
	history *stores.SQLiteStore
	metrics *telemetry.Metrics
	logger  zerolog.Logger
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithHistory records every run in the given history store.
func WithHistory(history *stores.SQLiteStore) Option {
	return func(e *Engine) { e.history = history }
}

// WithMetrics publishes run metrics to the given collector.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// New creates an engine over a datapackage store and an executor.
func New(store *datapackage.Store, exec *executor.Executor, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		exec:   exec,
		logger: logger.With().Str("component", "engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteDatapackage runs the container named by a configuration and
// returns its captured logs. Resources need not be populated beforehand; a
// datapackage run is what populates them.
func (e *Engine) ExecuteDatapackage(ctx context.Context, configurationName string) (string, error) {
	cfg, err := e.store.LoadConfiguration(configurationName)
	if err != nil {
		return "", err
	}

	e.logger.Info().
		Str("configuration", configurationName).
		Str("image", cfg.Container).
		Msg("Executing datapackage")

	return e.run(ctx, stores.RunKindDatapackage, configurationName, cfg.Container, map[string]string{
		EnvConfiguration: configurationName,
	})
}

// ExecuteView renders the container named by a view and returns its
// captured logs. Every resource the view declares must hold data; the
// check walks the declared list in order and fails fast on the first empty
// resource, without starting the container. Resource records are read
// directly, bypassing format merging, since rendering needs no format.
func (e *Engine) ExecuteView(ctx context.Context, viewName string) (string, error) {
	view, err := e.store.LoadView(viewName)
	if err != nil {
		return "", err
	}

	for _, resourceName := range view.Resources {
		rec, err := e.store.LoadRawResource(resourceName)
		if err != nil {
			return "", err
		}
		if dataEmpty(rec["data"]) {
			return "", &datapackage.ResourceError{
				Resource: resourceName,
				Message: fmt.Sprintf(
					"can't render view %q with empty resource %q; has the datapackage been executed?",
					viewName, resourceName),
			}
		}
	}

	e.logger.Info().
		Str("view", viewName).
		Str("image", view.Container).
		Msg("Executing view")

	return e.run(ctx, stores.RunKindView, viewName, view.Container, map[string]string{
		EnvView: viewName,
	})
}

// run drives the executor and records the outcome in history and metrics.
func (e *Engine) run(ctx context.Context, kind stores.RunKind, target, image string, env map[string]string) (string, error) {
	started := time.Now().UTC()
	runID := e.recordStart(ctx, kind, target, image, started)
	e.metrics.RecordRunStarted(string(kind))

	logs, err := e.exec.Run(ctx, image, e.store.BasePath(), env)

	status := stores.RunStatusCompleted
	recordedLogs := logs
	if err != nil {
		status = stores.RunStatusFailed
		var execErr *executor.ExecutionError
		if errors.As(err, &execErr) {
			recordedLogs = execErr.Logs
		}
	}

	e.recordCompletion(ctx, runID, status, recordedLogs, err)
	e.metrics.RecordRunCompleted(string(kind), string(status), time.Since(started))

	return logs, err
}

// recordStart inserts a running history record. History failures are
// logged, never allowed to fail the run itself.
func (e *Engine) recordStart(ctx context.Context, kind stores.RunKind, target, image string, started time.Time) string {
	if e.history == nil {
		return ""
	}

	run := &stores.Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Target:    target,
		Image:     image,
		Status:    stores.RunStatusRunning,
		StartedAt: started,
		CreatedAt: started,
		UpdatedAt: started,
	}
	if err := e.history.CreateRun(ctx, run); err != nil {
		e.logger.Warn().Err(err).Str("target", target).Msg("Failed to record run start")
		return ""
	}
	return run.ID
}

func (e *Engine) recordCompletion(ctx context.Context, runID string, status stores.RunStatus, logs string, runErr error) {
	if e.history == nil || runID == "" {
		return
	}
	if err := e.history.CompleteRun(ctx, runID, status, logs, runErr); err != nil {
		e.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to record run completion")
	}
}

// dataEmpty reports whether a decoded JSON data payload holds nothing: a
// missing value, empty array, empty object or empty string all count.
func dataEmpty(data any) bool {
	switch v := data.(type) {
	case nil:
		return true
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case string:
		return v == ""
	case bool:
		return !v
	case float64:
		return v == 0
	default:
		return false
	}
}
