package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Tilix4/kdenlive/internal/config"
	"github.com/Tilix4/kdenlive/internal/effects/asset"
	"github.com/Tilix4/kdenlive/internal/event"
	"github.com/Tilix4/kdenlive/internal/timeline"
)

const editScript = `
local tl = require("timeline")
local v1 = tl.add_track("video", "V1")
clip = tl.insert_clip(v1, 0, 100, "a.mp4")
tl.fade(clip, 15, true)
tl.resize(clip, 50, false)
print(tl.item(clip).position)
`

func newApp(t *testing.T, opts Options) *Application {
	t.Helper()
	if opts.Config == nil && opts.ConfigPath == "" {
		opts.Config = config.Default()
	}
	if opts.LogOutput == nil {
		opts.LogOutput = io.Discard
	}
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { a.Shutdown() })
	return a
}

func TestRunString(t *testing.T) {
	var out bytes.Buffer
	a := newApp(t, Options{ScriptOutput: &out})

	if err := a.RunString(context.Background(), editScript); err != nil {
		t.Fatalf("RunString() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "50" {
		t.Errorf("script printed %q, want 50", got)
	}
	if err := a.Check(); err != nil {
		t.Errorf("Check() = %v", err)
	}

	snap := a.Metrics().Snapshot()
	if snap.Count(timeline.TopicItemChanged) == 0 {
		t.Errorf("no %s events counted: %+v", timeline.TopicItemChanged, snap.Topics)
	}
	if snap.Total == 0 || snap.LastEvent.IsZero() {
		t.Errorf("snapshot = %+v", snap)
	}
	a.Metrics().Reset()
	if a.Metrics().Snapshot().Total != 0 {
		t.Error("Reset() kept counters")
	}
}

func TestDumpHistory(t *testing.T) {
	a := newApp(t, Options{ScriptOutput: io.Discard})
	if err := a.RunString(context.Background(), editScript); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := a.DumpHistory(&buf); err != nil {
		t.Fatalf("DumpHistory() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Resize clip") {
		t.Errorf("history dump missing resize entry:\n%s", buf.String())
	}
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edit.lua")
	if err := os.WriteFile(path, []byte(editScript), 0o644); err != nil {
		t.Fatal(err)
	}
	a := newApp(t, Options{ScriptOutput: io.Discard})
	if err := a.RunFile(context.Background(), path); err != nil {
		t.Fatalf("RunFile() error = %v", err)
	}
	err := a.RunFile(context.Background(), filepath.Join(dir, "missing.lua"))
	if err == nil || !strings.Contains(err.Error(), "missing.lua") {
		t.Errorf("RunFile(missing) = %v", err)
	}
}

func TestShutdown(t *testing.T) {
	a := newApp(t, Options{})
	if err := a.Shutdown(); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	if err := a.Shutdown(); err != nil {
		t.Errorf("second Shutdown() = %v", err)
	}
	if err := a.RunString(context.Background(), `x = 1`); !errors.Is(err, ErrClosed) {
		t.Errorf("RunString() after shutdown = %v, want ErrClosed", err)
	}
}

func TestNewErrors(t *testing.T) {
	bad := config.Default()
	bad.History.MaxEntries = 0

	tests := []struct {
		name      string
		opts      Options
		component string
	}{
		{"bad log level", Options{Config: config.Default(), LogLevel: "loud"}, "logging"},
		{"invalid config", Options{Config: bad}, "config"},
		{"missing config file", Options{ConfigPath: filepath.Join(t.TempDir(), "none.toml")}, "config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.LogOutput = io.Discard
			_, err := New(tt.opts)
			var ierr *InitError
			if !errors.As(err, &ierr) {
				t.Fatalf("New() = %v, want *InitError", err)
			}
			if ierr.Component != tt.component {
				t.Errorf("Component = %q, want %q", ierr.Component, tt.component)
			}
		})
	}
}

const definitions = `
[[effect]]
id = "sepia"
name = "Sepia"
type = "video"
`

func TestAssetDirs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sepia.toml"), []byte(definitions), 0o644); err != nil {
		t.Fatal(err)
	}
	a := newApp(t, Options{AssetDirs: []string{dir}})
	if typ, ok := a.Registry().Type("sepia"); !ok || typ != asset.Video {
		t.Errorf("Type(sepia) = %q, %v", typ, ok)
	}
	if !a.Registry().Has(asset.FadeIn) {
		t.Error("builtin definitions missing")
	}
}

func TestAssetWatch(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Assets.Dirs = []string{dir, filepath.Join(dir, "absent")}
	cfg.Assets.Watch = true
	cfg.Assets.Debounce = config.Duration(50 * time.Millisecond)
	a := newApp(t, Options{Config: cfg})

	reloaded := make(chan AssetReload, 4)
	if _, err := a.Bus().Subscribe(TopicAssetsReloaded, func(e event.Event) {
		reloaded <- e.Payload.(AssetReload)
	}); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "sepia.toml"), []byte(definitions), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-reloaded:
		if r.Err != nil || r.Count != 1 {
			t.Errorf("reload = %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload event")
	}
	if !a.Registry().Has("sepia") {
		t.Error("watched definition not registered")
	}
}
