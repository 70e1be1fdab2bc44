package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher calls onChange when the catalog dump at path is written, created, or renamed into
// place. The parent directory is watched so atomic replace-by-rename is seen.
type Watcher struct {
	path     string
	onChange func(path string)
	debounce time.Duration
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets a logger for watcher events.
func WithWatcherLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the quiet period between the last event and onChange.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher for the dump at path.
func NewWatcher(path string, onChange func(path string), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw
	w.started = true
	w.logger.Debug("catalog watcher starting", zap.String("path", w.path))
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("catalog watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	w.logger.Debug("catalog watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
		w.schedule()
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		w.mu.Unlock()
		w.logger.Debug("catalog watcher reloading (debounced)", zap.String("path", w.path))
		if w.onChange != nil {
			w.onChange(w.path)
		}
	})
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
