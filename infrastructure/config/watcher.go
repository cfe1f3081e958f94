package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/querykit/domain/config"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
)

// ChangeHandler receives each successfully reloaded configuration.
type ChangeHandler func(*config.Config)

// ErrorHandler receives reload and watch failures.
type ErrorHandler func(error)

// Watcher reloads a configuration file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself, because
// most editors and deployment tools replace config files by renaming a
// temporary file into place, which would drop a watch on the file.
type Watcher struct {
	path     string
	loader   *Loader
	onChange ChangeHandler
	onError  ErrorHandler
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits after the last change
// event before reloading. Defaults to 100ms.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithErrorHandler sets a callback for reload and watch failures.
// Without one, failures are logged and the watch continues.
func WithErrorHandler(fn ErrorHandler) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// NewWatcher creates a watcher for the given configuration file.
// onChange is invoked with each configuration that loads and validates
// successfully; a file change that fails to load keeps the previous
// configuration in effect.
func NewWatcher(path string, loader *Loader, onChange ChangeHandler, opts ...WatcherOption) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if onChange == nil {
		return nil, fmt.Errorf("change handler is required")
	}
	if loader == nil {
		loader = NewLoader()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	w := &Watcher{
		path:     abs,
		loader:   loader,
		onChange: onChange,
		debounce: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins watching. The watch runs until Stop is called or the
// context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.started = true

	w.wg.Add(1)
	go w.processEvents(watchCtx)

	logging.Debug().
		Add(logging.Str("path", w.path)).
		Add(logging.Component("config")).
		Msg("config watcher started")

	return nil
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	w.cancel()
	err := w.fsw.Close()
	w.mu.Unlock()

	w.wg.Wait()
	return err
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	// pending stays nil until a change is seen; a nil channel never fires.
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.matches(event) {
				continue
			}
			pending = time.After(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.reportError(fmt.Errorf("watch error: %w", err))

		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

// matches reports whether the event concerns the watched file and is a
// content-changing operation.
func (w *Watcher) matches(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	cfg, err := w.loader.LoadFile(w.path)
	if err != nil {
		w.reportError(fmt.Errorf("config reload failed: %w", err))
		return
	}

	logging.Debug().
		Add(logging.Str("path", w.path)).
		Add(logging.Component("config")).
		Msg("config reloaded")

	w.onChange(cfg)
}

func (w *Watcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
		return
	}
	logging.Warn().
		Add(logging.Str("path", w.path)).
		Add(logging.ErrorField(err)).
		Add(logging.Component("config")).
		Msg("config watch error")
}
