package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/querykit/domain/config"
)

func writeConfig(t *testing.T, path, baseURL string) {
	t.Helper()
	content := "transport:\n  base_url: " + baseURL + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func waitForConfig(t *testing.T, ch <-chan *config.Config) *config.Config {
	t.Helper()
	select {
	case cfg := <-ch:
		return cfg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
		return nil
	}
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption) (*Watcher, chan *config.Config) {
	t.Helper()

	changes := make(chan *config.Config, 8)
	opts = append(opts, WithDebounce(10*time.Millisecond))
	w, err := NewWatcher(path, NewLoader(), func(cfg *config.Config) {
		changes <- cfg
	}, opts...)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })

	return w, changes
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	writeConfig(t, path, "https://api.example.com")

	_, changes := startWatcher(t, path)

	writeConfig(t, path, "https://api.example.com/v2")

	cfg := waitForConfig(t, changes)
	if cfg.Transport.BaseURL != "https://api.example.com/v2" {
		t.Errorf("BaseURL = %s, want updated URL", cfg.Transport.BaseURL)
	}
}

func TestWatcher_ReloadsOnAtomicRename(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	writeConfig(t, path, "https://api.example.com")

	_, changes := startWatcher(t, path)

	// Editors and deploy tools write a temp file and rename it into place.
	tmpPath := filepath.Join(tmpDir, "config.yaml.tmp")
	writeConfig(t, tmpPath, "https://api.example.com/renamed")
	if err := os.Rename(tmpPath, path); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}

	cfg := waitForConfig(t, changes)
	if cfg.Transport.BaseURL != "https://api.example.com/renamed" {
		t.Errorf("BaseURL = %s, want renamed URL", cfg.Transport.BaseURL)
	}
}

func TestWatcher_InvalidChangeReportsError(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	writeConfig(t, path, "https://api.example.com")

	watchErrs := make(chan error, 8)
	_, changes := startWatcher(t, path, WithErrorHandler(func(err error) {
		watchErrs <- err
	}))

	// Config without a base URL fails validation on reload.
	if err := os.WriteFile(path, []byte("name: broken\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	select {
	case err := <-watchErrs:
		if err == nil {
			t.Error("error handler received nil error")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}

	select {
	case cfg := <-changes:
		t.Errorf("unexpected change callback for invalid config: %+v", cfg)
	default:
	}

	// A subsequent valid write recovers.
	writeConfig(t, path, "https://api.example.com/fixed")
	cfg := waitForConfig(t, changes)
	if cfg.Transport.BaseURL != "https://api.example.com/fixed" {
		t.Errorf("BaseURL = %s, want fixed URL", cfg.Transport.BaseURL)
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	writeConfig(t, path, "https://api.example.com")

	_, changes := startWatcher(t, path)

	// Touch a sibling file, then the watched file. Only the watched
	// file's content should come through.
	if err := os.WriteFile(filepath.Join(tmpDir, "other.yaml"), []byte("ignored: true\n"), 0644); err != nil {
		t.Fatalf("failed to write sibling: %v", err)
	}
	writeConfig(t, path, "https://api.example.com/only")

	cfg := waitForConfig(t, changes)
	if cfg.Transport.BaseURL != "https://api.example.com/only" {
		t.Errorf("BaseURL = %s, want watched file content", cfg.Transport.BaseURL)
	}

	select {
	case extra := <-changes:
		t.Errorf("unexpected extra reload: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_Validation(t *testing.T) {
	if _, err := NewWatcher("", NewLoader(), func(*config.Config) {}); err == nil {
		t.Error("NewWatcher() should reject empty path")
	}
	if _, err := NewWatcher("config.yaml", NewLoader(), nil); err == nil {
		t.Error("NewWatcher() should reject nil change handler")
	}
}

func TestWatcher_NilLoaderUsesDefault(t *testing.T) {
	w, err := NewWatcher("config.yaml", nil, func(*config.Config) {})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if w.loader == nil {
		t.Error("loader should default when nil")
	}
}

func TestWatcher_StartTwice(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	writeConfig(t, path, "https://api.example.com")

	w, _ := startWatcher(t, path)

	if err := w.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	writeConfig(t, path, "https://api.example.com")

	w, _ := startWatcher(t, path)

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_Path(t *testing.T) {
	w, err := NewWatcher("config.yaml", NewLoader(), func(*config.Config) {})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if !filepath.IsAbs(w.Path()) {
		t.Errorf("Path() = %s, want absolute", w.Path())
	}
}
