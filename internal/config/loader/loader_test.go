package loader

import (
	"errors"
	"io/fs"
	"reflect"
	"strings"
	"testing"
	"time"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestTOMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/config.toml", `
[history]
max_entries = 50

[logging]
level = "debug"
`)

	config, err := NewTOMLLoaderWithFS(memfs, "/config.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v, ok := Lookup(config, "history.max_entries"); !ok || v != int64(50) {
		t.Errorf("history.max_entries = %v (%T), want 50", v, v)
	}
	if v, ok := Lookup(config, "logging.level"); !ok || v != "debug" {
		t.Errorf("logging.level = %v, want debug", v)
	}
}

func TestTOMLLoader_Missing(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(NewMemFS(), "/absent.toml").Load()
	if err != nil || config != nil {
		t.Errorf("Load() = %v, %v; want nil, nil", config, err)
	}
}

func TestTOMLLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[history]\nmax_entries = = 3\n")

	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if perr.Path != "/bad.toml" || perr.Line != 2 {
		t.Errorf("ParseError = %+v, want line 2 of /bad.toml", perr)
	}
}

func TestTOMLLoader_LoadFromReader(t *testing.T) {
	config, err := NewTOMLLoader("").LoadFromReader(strings.NewReader(`name = "x"`))
	if err != nil {
		t.Fatal(err)
	}
	if config["name"] != "x" {
		t.Errorf("name = %v", config["name"])
	}
}

func TestEnvLoader_Load(t *testing.T) {
	l := NewEnvLoader("KDENLIVE_", "KDENLIVE_CONFIG")
	l.environ = func() []string {
		return []string{
			"KDENLIVE_LOG_LEVEL=warn",
			"KDENLIVE_HISTORY_MAX_ENTRIES=20",
			"KDENLIVE_ASSETS_WATCH=yes",
			"KDENLIVE_ASSET_DIRS=/a:/b",
			"KDENLIVE_CONFIG=/etc/kdenlive.toml",
			"KDENLIVE_NOSECTION=1",
			"HOME=/root",
		}
	}
	config, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want any
	}{
		{"logging.level", "warn"},
		{"history.max_entries", int64(20)},
		{"assets.watch", true},
		{"assets.dirs", []any{"/a", "/b"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := Lookup(config, tt.path)
			if !ok || !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s = %v (%T), want %v", tt.path, got, got, tt.want)
			}
		})
	}
	if _, ok := config["config"]; ok {
		t.Error("ignored variable was loaded")
	}
	if _, ok := config["nosection"]; ok {
		t.Error("variable without a key was loaded")
	}
}

func TestEnvLoader_Setenv(t *testing.T) {
	t.Setenv("KDENLIVE_SCRIPT_TIMEOUT", "2s")

	config, err := NewEnvLoader("KDENLIVE_").Load()
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := Lookup(config, "script.timeout"); v != "2s" {
		t.Errorf("script.timeout = %v, want 2s", v)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"on", true},
		{"OFF", false},
		{"1", int64(1)},
		{"0.5", 0.5},
		{"1.5s", "1.5s"},
		{`["x"]`, []any{"x"}},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseValue(%q) = %v (%T), want %v", tt.in, got, got, tt.want)
		}
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"history": map[string]any{"max_entries": int64(10), "keep": true},
		"name":    "a",
	}
	src := map[string]any{
		"history": map[string]any{"max_entries": int64(20)},
		"name":    "b",
	}
	got := DeepMerge(dst, src)
	want := map[string]any{
		"history": map[string]any{"max_entries": int64(20), "keep": true},
		"name":    "b",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DeepMerge = %v, want %v", got, want)
	}
}
