package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/Tilix4/kdenlive/internal/logging"
	"github.com/Tilix4/kdenlive/internal/timeline"
)

// Default limits for a State.
const (
	DefaultTimeout       = 5 * time.Second
	DefaultCallStackSize = 256
	DefaultRegistrySize  = 1024 * 20
)

// State is a sandboxed Lua interpreter driving one timeline.
//
// gopher-lua states are not goroutine-safe; the mutex serializes every run.
type State struct {
	mu sync.Mutex

	L  *lua.LState
	tl *timeline.Timeline

	timeout       time.Duration
	callStackSize int
	registrySize  int
	output        io.Writer
	logger        *logging.Logger

	closed bool
}

// Option configures a State.
type Option func(*State)

// WithTimeout bounds each run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *State) {
		s.timeout = d
	}
}

// WithCallStackSize sets the Lua call stack depth.
func WithCallStackSize(n int) Option {
	return func(s *State) {
		if n > 0 {
			s.callStackSize = n
		}
	}
}

// WithRegistrySize sets the initial Lua registry size.
func WithRegistrySize(n int) Option {
	return func(s *State) {
		if n > 0 {
			s.registrySize = n
		}
	}
}

// WithOutput redirects print.
func WithOutput(w io.Writer) Option {
	return func(s *State) {
		s.output = w
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewState creates a sandboxed state with the timeline module installed.
func NewState(tl *timeline.Timeline, opts ...Option) *State {
	s := &State{
		tl:            tl,
		timeout:       DefaultTimeout,
		callStackSize: DefaultCallStackSize,
		registrySize:  DefaultRegistrySize,
		output:        os.Stdout,
		logger:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("script")

	s.L = lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: s.callStackSize,
		RegistrySize:  s.registrySize,
	})
	openSafeLibraries(s.L)
	s.L.PreloadModule(ModuleName, newModule(tl).loader)
	installSandbox(s.L, s.output)
	return s
}

// openSafeLibraries opens the libraries that cannot reach the host.
// io, os and debug stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenPackage(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// DoString runs a chunk.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.run(ctx, func() error { return s.L.DoString(code) })
}

// DoFile runs a script file.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.run(ctx, func() error { return s.L.DoFile(path) })
}

func (s *State) run(ctx context.Context, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	start := time.Now()
	err = fn()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return &Error{Message: strings.TrimSpace(err.Error()), Err: err}
	}
	s.logger.Debug("script ran in %s", time.Since(start))
	return nil
}

// Global returns a global value converted to Go: nil, bool, float64, string
// or, for tables, a map or slice.
func (s *State) Global(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return toGo(s.L.GetGlobal(name), make(map[*lua.LTable]bool))
}

// Timeline returns the driven timeline.
func (s *State) Timeline() *timeline.Timeline {
	return s.tl
}

// Close releases the interpreter.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

func toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		if n := v.Len(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, toGo(v.RawGetInt(i), visited))
			}
			return out
		}
		out := make(map[string]any)
		v.ForEach(func(k, val lua.LValue) {
			out[k.String()] = toGo(val, visited)
		})
		return out
	default:
		return nil
	}
}
