package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/Tilix4/kdenlive/internal/config/loader"
	"github.com/Tilix4/kdenlive/internal/engine/history"
	"github.com/Tilix4/kdenlive/internal/logging"
	"github.com/Tilix4/kdenlive/internal/media"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KDENLIVE_"

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = EnvPrefix + "CONFIG"

// Errors returned while loading.
var (
	ErrFileNotFound = errors.New("config file not found")
	ErrInvalid      = errors.New("invalid configuration")
)

// Duration is a time.Duration written as a string such as "250ms".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete configuration.
type Config struct {
	Profile media.Profile `toml:"profile"`
	History History       `toml:"history"`
	Assets  Assets        `toml:"assets"`
	Logging Logging       `toml:"logging"`
	Script  Script        `toml:"script"`
}

// History bounds the undo stack.
type History struct {
	MaxEntries int `toml:"max_entries"`
}

// Assets locates effect definition files.
type Assets struct {
	// Dirs are scanned for .toml and .yaml definitions after the builtins.
	Dirs []string `toml:"dirs"`
	// Watch reloads definitions when files in Dirs change.
	Watch    bool     `toml:"watch"`
	Debounce Duration `toml:"debounce"`
}

// Logging configures the root logger.
type Logging struct {
	Level  string `toml:"level"`
	Prefix string `toml:"prefix"`
}

// Script limits the Lua interpreter.
type Script struct {
	Timeout       Duration `toml:"timeout"`
	CallStackSize int      `toml:"call_stack_size"`
	RegistrySize  int      `toml:"registry_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Profile: media.DefaultProfile(),
		History: History{MaxEntries: history.DefaultMaxEntries},
		Assets:  Assets{Debounce: Duration(100 * time.Millisecond)},
		Logging: Logging{Level: "info", Prefix: "kdenlive"},
		Script: Script{
			Timeout:       Duration(5 * time.Second),
			CallStackSize: 256,
			RegistrySize:  1024 * 20,
		},
	}
}

// Validate implements validation.Validatable.
func (h History) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.MaxEntries, validation.Required, validation.Min(1)),
	)
}

// Validate implements validation.Validatable.
func (a Assets) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Dirs, validation.Each(validation.Required)),
		validation.Field(&a.Debounce, validation.Min(Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (l Logging) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required, validation.In("debug", "info", "warn", "warning", "error")),
	)
}

// Validate implements validation.Validatable.
func (s Script) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Timeout, validation.Min(Duration(0))),
		validation.Field(&s.CallStackSize, validation.Required, validation.Min(16)),
		validation.Field(&s.RegistrySize, validation.Required, validation.Min(256)),
	)
}

// Validate checks every section.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Profile),
		validation.Field(&c.History),
		validation.Field(&c.Assets),
		validation.Field(&c.Logging),
		validation.Field(&c.Script),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() logging.Level {
	l, _ := logging.ParseLevel(c.Logging.Level)
	return l
}

// Option configures Load.
type Option func(*options)

type options struct {
	fs       loader.FileSystem
	env      loader.Loader
	optional bool
}

// WithFS reads the config file through fs.
func WithFS(fs loader.FileSystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithEnv replaces the environment source. A nil loader disables overrides.
func WithEnv(l loader.Loader) Option {
	return func(o *options) {
		o.env = l
	}
}

// Optional makes a missing config file fall back to the defaults.
func Optional() Option {
	return func(o *options) {
		o.optional = true
	}
}

// Load builds a configuration from the defaults, the TOML file at path and
// the environment, in increasing precedence, then validates it. An empty path
// skips the file.
func Load(path string, opts ...Option) (*Config, error) {
	o := options{
		fs:  loader.DefaultFS(),
		env: loader.NewEnvLoader(EnvPrefix, EnvConfigPath),
	}
	for _, opt := range opts {
		opt(&o)
	}

	merged, err := toMap(Default())
	if err != nil {
		return nil, err
	}

	if path != "" {
		if _, err := o.fs.Stat(path); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file %s: %w", path, err)
			}
			if !o.optional {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
		}
		file, err := loader.NewTOMLLoaderWithFS(o.fs, path).Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, file)
	}

	if o.env != nil {
		env, err := o.env.Load()
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, env)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		source := path
		if source == "" {
			source = "environment"
		}
		return nil, fmt.Errorf("decoding %s: %w", source, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns $KDENLIVE_CONFIG or config.toml under the user config
// directory.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "kdenlive-core", "config.toml")
}

// Encode writes c as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func toMap(c *Config) (map[string]any, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	m := make(map[string]any)
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, err
	}
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown keys: %s", strict.String())
		}
		return nil, err
	}
	return &cfg, nil
}
