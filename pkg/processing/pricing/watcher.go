package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period before a pricing reload.
const DefaultDebounceInterval = 200 * time.Millisecond

// Watcher reloads a pricing file when it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which replace files via rename are handled. Bursts of events are
// debounced into a single reload.
type Watcher struct {
	path     string
	opts     LoadOptions
	onReload func(*Table)
	logger   *slog.Logger
	interval time.Duration

	watcher  *fsnotify.Watcher
	debounce *debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for path. onReload receives every successfully
// validated table.
func NewWatcher(path string, opts LoadOptions, onReload func(*Table), logger *slog.Logger) (*Watcher, error) {
	if onReload == nil {
		return nil, fmt.Errorf("onReload callback is required")
	}
	if _, err := FormatFromPath(path); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default().With("component", "pricing.watcher")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pricing path: %w", err)
	}

	return &Watcher{
		path:     abs,
		opts:     opts,
		onReload: onReload,
		logger:   logger,
		interval: DefaultDebounceInterval,
	}, nil
}

// SetDebounceInterval changes the debounce interval. It must be called before Start.
func (w *Watcher) SetDebounceInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

// Start begins watching in a background goroutine. The watcher stops when ctx
// is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.watcher = fw
	w.debounce = newDebouncer(w.interval)
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.loop(ctx)

	w.logger.Info("pricing watcher started",
		"path", w.path,
		"debounce_ms", w.interval.Milliseconds(),
	)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh
	w.debounce.stop()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Reload loads the file immediately and passes the result to the callback.
func (w *Watcher) Reload() error {
	table, err := Load(w.path, w.opts)
	if err != nil {
		return err
	}
	w.onReload(table)
	w.logger.Info("pricing reloaded", "path", w.path, "entries", table.Len())
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("pricing watcher stopped (context cancelled)")
			return

		case <-w.stopCh:
			w.logger.Info("pricing watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("pricing file event", "path", event.Name, "op", event.Op.String())
			w.debounce.trigger(func() {
				if err := w.Reload(); err != nil {
					w.logger.Error("pricing reload failed, keeping previous table", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("pricing watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return name == w.path
}

// debouncer collapses rapid triggers into one call after a quiet period.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn()
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
