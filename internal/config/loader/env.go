package loader

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// EnvLoader loads configuration from prefixed environment variables.
//
// Mapped variables go to their configured path. Any other prefixed variable
// maps its first segment to the section and the rest to the key, so
// KDENLIVE_HISTORY_MAX_ENTRIES sets history.max_entries.
type EnvLoader struct {
	prefix  string
	mapping map[string]string
	ignore  map[string]bool
	environ func() []string
}

// NewEnvLoader creates a loader for prefix, which includes the trailing
// underscore. Variables named in ignore are skipped.
func NewEnvLoader(prefix string, ignore ...string) *EnvLoader {
	l := &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		ignore:  make(map[string]bool, len(ignore)),
		environ: os.Environ,
	}
	for _, name := range ignore {
		l.ignore[name] = true
	}
	return l
}

func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "LOG_LEVEL":  "logging.level",
		prefix + "UNDO_LIMIT": "history.max_entries",
		prefix + "ASSET_DIRS": "assets.dirs",
	}
}

// AddMapping routes envVar to a config path.
func (l *EnvLoader) AddMapping(envVar, path string) {
	l.mapping[envVar] = path
}

// Load reads the environment. Empty values are kept as empty strings.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) || l.ignore[name] {
			continue
		}
		path, mapped := l.mapping[name]
		if !mapped {
			path = l.envToPath(name)
		}
		if path == "" {
			continue
		}
		if strings.HasSuffix(path, ".dirs") && !strings.HasPrefix(value, "[") {
			setByPath(config, path, splitList(value))
			continue
		}
		setByPath(config, path, parseValue(value))
	}
	return config, nil
}

// envToPath converts PREFIX_SECTION_SOME_KEY to section.some_key.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}

func splitList(s string) []any {
	var out []any
	for _, part := range strings.Split(s, string(os.PathListSeparator)) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseValue converts a variable to a bool, integer, float, JSON value or
// string, in that order of preference.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "":
		return s
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}
