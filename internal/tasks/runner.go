package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Runner drives the periodic jobs. Each tick it checks the Redis toggle for
// a job and skips the work when the toggle is off, so operators can pause
// jobs without restarting the server.
type Runner struct {
	state     *StateStore
	weather   *WeatherClient
	locations []Location
	interval  time.Duration
	logger    *zap.Logger
}

// RunnerDeps carries the runner's collaborators.
type RunnerDeps struct {
	State     *StateStore
	Weather   *WeatherClient
	Locations []Location
	Interval  time.Duration
	Logger    *zap.Logger
}

// NewRunner validates the dependencies and builds a runner.
func NewRunner(deps RunnerDeps) (*Runner, error) {
	if deps.State == nil {
		return nil, fmt.Errorf("tasks.runner: state store is required")
	}
	if deps.Weather == nil {
		return nil, fmt.Errorf("tasks.runner: weather client is required")
	}
	if deps.Interval <= 0 {
		return nil, fmt.Errorf("tasks.runner: interval must be positive")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Runner{
		state:     deps.State,
		weather:   deps.Weather,
		locations: deps.Locations,
		interval:  deps.Interval,
		logger:    deps.Logger,
	}, nil
}

// Run ticks until the context is cancelled.
func (runner *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(runner.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runner.RunOnce(ctx)
		}
	}
}

// RunOnce executes one round of every job that is currently enabled.
func (runner *Runner) RunOnce(ctx context.Context) {
	runner.fetchWeatherOnce(ctx)
	runner.saveMessageOnce(ctx)
}

func (runner *Runner) fetchWeatherOnce(ctx context.Context) {
	enabled, stateErr := runner.state.TaskEnabled(ctx, TaskFetchWeather)
	if stateErr != nil {
		runner.logger.Warn("weather task state unavailable", zap.Error(stateErr))
		return
	}
	if !enabled {
		return
	}
	for _, location := range runner.locations {
		snapshot, fetchErr := runner.weather.FetchCurrent(ctx, location)
		if fetchErr != nil {
			runner.logger.Warn("weather fetch failed",
				zap.String("location", location.Name), zap.Error(fetchErr))
			continue
		}
		if saveErr := runner.state.SaveWeather(ctx, location.Name, snapshot); saveErr != nil {
			runner.logger.Warn("weather save failed",
				zap.String("location", location.Name), zap.Error(saveErr))
		}
	}
}

func (runner *Runner) saveMessageOnce(ctx context.Context) {
	enabled, stateErr := runner.state.TaskEnabled(ctx, TaskSaveMessage)
	if stateErr != nil {
		runner.logger.Warn("message task state unavailable", zap.Error(stateErr))
		return
	}
	if !enabled {
		return
	}
	message := fmt.Sprintf("heartbeat at %s", time.Now().UTC().Format(time.RFC3339))
	if appendErr := runner.state.AppendMessage(ctx, message); appendErr != nil {
		runner.logger.Warn("message append failed", zap.Error(appendErr))
	}
}
