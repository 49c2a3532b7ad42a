package app

import (
	"fmt"
	"os"

	"github.com/Tilix4/kdenlive/internal/config"
	"github.com/Tilix4/kdenlive/internal/effects/asset"
	"github.com/Tilix4/kdenlive/internal/event"
	"github.com/Tilix4/kdenlive/internal/logging"
	"github.com/Tilix4/kdenlive/internal/script"
	"github.com/Tilix4/kdenlive/internal/timeline"
)

// bootstrapper initializes components in dependency order and cleans up the
// ones already started when a later step fails.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{app: app, opts: opts}
}

func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", b.initConfig},
		{"logging", b.initLogging},
		{"event bus", b.initEventBus},
		{"assets", b.initAssets},
		{"timeline", b.initTimeline},
		{"script", b.initScript},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			b.cleanup()
			return &InitError{Component: step.name, Err: err}
		}
		b.initOrder = append(b.initOrder, step.name)
	}
	b.app.logger.Debug("started %v", b.initOrder)
	return nil
}

func (b *bootstrapper) initConfig() error {
	if b.opts.Config != nil {
		b.app.config = b.opts.Config
		return b.app.config.Validate()
	}
	path, opts := b.opts.ConfigPath, []config.Option(nil)
	if path == "" {
		path = config.DefaultPath()
		opts = append(opts, config.Optional())
	}
	cfg, err := config.Load(path, opts...)
	if err != nil {
		return err
	}
	b.app.config = cfg
	return nil
}

func (b *bootstrapper) initLogging() error {
	level := b.app.config.LogLevel()
	if b.opts.LogLevel != "" {
		l, ok := logging.ParseLevel(b.opts.LogLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", b.opts.LogLevel)
		}
		level = l
	}
	b.app.logger = logging.New(logging.Config{
		Level:  level,
		Output: b.opts.LogOutput,
		Prefix: b.app.config.Logging.Prefix,
	})
	return nil
}

func (b *bootstrapper) initEventBus() error {
	logger := b.app.logger.WithComponent("event")
	b.app.bus = event.NewBus(event.WithPanicHandler(func(err *event.PanicError) {
		logger.Error("%v", err)
	}))
	b.app.metrics = NewMetrics()
	_, err := b.app.bus.Subscribe(event.WildcardMulti, b.app.metrics.Observe)
	return err
}

func (b *bootstrapper) initAssets() error {
	b.app.registry = asset.Builtin()
	logger := b.app.logger.WithComponent("assets")

	dirs := append(append([]string(nil), b.app.config.Assets.Dirs...), b.opts.AssetDirs...)
	for _, dir := range dirs {
		n, err := b.app.registry.LoadDir(dir)
		if err != nil {
			return err
		}
		logger.Info("loaded %d definitions from %s", n, dir)
	}
	if !b.app.config.Assets.Watch {
		return nil
	}

	bus := b.app.bus
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			logger.Warn("not watching %s: %v", dir, err)
			continue
		}
		w, err := asset.NewWatcher(b.app.registry, dir,
			asset.WithDebounce(b.app.config.Assets.Debounce.Std()),
			asset.WithOnReload(func(path string, n int, err error) {
				if err != nil {
					logger.Warn("reload %s: %v", path, err)
				} else {
					logger.Info("reloaded %d definitions from %s", n, path)
				}
				_ = bus.Publish(event.New(TopicAssetsReloaded, AssetReload{Path: path, Count: n, Err: err}, "assets"))
			}))
		if err != nil {
			return err
		}
		b.app.watchers = append(b.app.watchers, w)
	}
	return nil
}

func (b *bootstrapper) initTimeline() error {
	cfg := b.app.config
	b.app.timeline = timeline.New(cfg.Profile, b.app.registry,
		timeline.WithBus(b.app.bus),
		timeline.WithLogger(b.app.logger),
		timeline.WithMaxUndoEntries(cfg.History.MaxEntries))
	return nil
}

func (b *bootstrapper) initScript() error {
	cfg := b.app.config.Script
	opts := []script.Option{
		script.WithTimeout(cfg.Timeout.Std()),
		script.WithCallStackSize(cfg.CallStackSize),
		script.WithRegistrySize(cfg.RegistrySize),
		script.WithLogger(b.app.logger),
	}
	if b.opts.ScriptOutput != nil {
		opts = append(opts, script.WithOutput(b.opts.ScriptOutput))
	}
	b.app.script = script.NewState(b.app.timeline, opts...)
	return nil
}

// cleanup releases what the completed steps started.
func (b *bootstrapper) cleanup() {
	for _, w := range b.app.watchers {
		_ = w.Close()
	}
	b.app.watchers = nil
	if b.app.script != nil {
		_ = b.app.script.Close()
	}
}
