// Package app wires the configuration, asset registry, timeline and script
// driver into one application and manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Tilix4/kdenlive/internal/config"
	"github.com/Tilix4/kdenlive/internal/effects/asset"
	"github.com/Tilix4/kdenlive/internal/event"
	"github.com/Tilix4/kdenlive/internal/logging"
	"github.com/Tilix4/kdenlive/internal/script"
	"github.com/Tilix4/kdenlive/internal/timeline"
)

// TopicAssetsReloaded is published after a watched definition file reloads.
const TopicAssetsReloaded event.Topic = "assets.reloaded"

// AssetReload is the payload of TopicAssetsReloaded.
type AssetReload struct {
	Path  string
	Count int
	Err   error
}

// Options configures the application.
type Options struct {
	// ConfigPath is the TOML file to load. Empty uses config.DefaultPath,
	// which may be absent.
	ConfigPath string

	// Config, when set, is used instead of loading a file.
	Config *config.Config

	// AssetDirs are scanned after the configured asset directories.
	AssetDirs []string

	// LogLevel overrides the configured level.
	LogLevel string

	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer

	// ScriptOutput receives print output of scripts. Defaults to stdout.
	ScriptOutput io.Writer
}

// Application owns one timeline and everything around it.
type Application struct {
	mu sync.Mutex

	config   *config.Config
	logger   *logging.Logger
	bus      *event.Bus
	metrics  *Metrics
	registry *asset.Registry
	watchers []*asset.Watcher
	timeline *timeline.Timeline
	script   *script.State

	closed bool
	opts   Options
}

// New builds and starts an application.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if err := newBootstrapper(app, opts).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Config returns the effective configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// Logger returns the root logger.
func (app *Application) Logger() *logging.Logger {
	return app.logger
}

// Bus returns the event bus.
func (app *Application) Bus() *event.Bus {
	return app.bus
}

// Metrics returns the event counters.
func (app *Application) Metrics() *Metrics {
	return app.metrics
}

// Registry returns the asset registry.
func (app *Application) Registry() *asset.Registry {
	return app.registry
}

// Timeline returns the timeline.
func (app *Application) Timeline() *timeline.Timeline {
	return app.timeline
}

// RunFile executes a Lua edit script.
func (app *Application) RunFile(ctx context.Context, path string) error {
	if app.isClosed() {
		return ErrClosed
	}
	app.logger.Info("running %s", path)
	if err := app.script.DoFile(ctx, path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// RunString executes a Lua chunk.
func (app *Application) RunString(ctx context.Context, code string) error {
	if app.isClosed() {
		return ErrClosed
	}
	return app.script.DoString(ctx, code)
}

// Check audits the timeline.
func (app *Application) Check() error {
	if err := app.timeline.CheckConsistency(); err != nil {
		app.logger.Error("consistency: %v", err)
		return fmt.Errorf("%w: %w", ErrInconsistent, err)
	}
	return nil
}

// DumpHistory writes the undo log as YAML.
func (app *Application) DumpHistory(w io.Writer) error {
	return app.timeline.History().Dump(w)
}

func (app *Application) isClosed() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.closed
}

// Shutdown stops the watchers and releases the interpreter. It is safe to
// call more than once.
func (app *Application) Shutdown() error {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return nil
	}
	app.closed = true
	watchers := app.watchers
	app.watchers = nil
	app.mu.Unlock()

	var errs []error
	for _, w := range watchers {
		errs = append(errs, w.Close())
	}
	if app.script != nil {
		errs = append(errs, app.script.Close())
	}
	app.logger.Debug("shut down")
	return errors.Join(errs...)
}
