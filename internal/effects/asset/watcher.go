package asset

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is called after a definition file was reloaded.
// n is the number of definitions loaded; err is set when the file failed.
type ReloadFunc func(path string, n int, err error)

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Debounce delays a reload until writes to a file have settled.
	Debounce time.Duration

	// OnReload receives the result of each reload.
	OnReload ReloadFunc
}

// WatcherOption configures a Watcher.
type WatcherOption func(*WatcherConfig)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) WatcherOption {
	return func(c *WatcherConfig) {
		c.Debounce = d
	}
}

// WithOnReload sets the reload callback.
func WithOnReload(fn ReloadFunc) WatcherOption {
	return func(c *WatcherConfig) {
		c.OnReload = fn
	}
}

// Watcher reloads definition files into a registry when they change on disk.
type Watcher struct {
	mu sync.Mutex

	registry *Registry
	watcher  *fsnotify.Watcher
	config   WatcherConfig

	pending map[string]*time.Timer

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// NewWatcher starts watching dir for definition file changes.
func NewWatcher(r *Registry, dir string, opts ...WatcherOption) (*Watcher, error) {
	config := WatcherConfig{Debounce: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(&config)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		registry: r,
		watcher:  fsw,
		config:   config,
		pending:  make(map[string]*time.Timer),
		closeCh:  make(chan struct{}),
	}

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Close stops the watcher and cancels pending reloads.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.closedWg.Wait()
	return w.watcher.Close()
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !IsDefinitionFile(ev.Name) {
				continue
			}
			w.schedule(filepath.Clean(ev.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report("", 0, err)
		}
	}
}

// schedule (re)arms the debounce timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.mu.Unlock()

		n, err := w.registry.LoadFile(path)
		w.report(path, n, err)
	})
}

func (w *Watcher) report(path string, n int, err error) {
	if w.config.OnReload != nil {
		w.config.OnReload(path, n, err)
	}
}
