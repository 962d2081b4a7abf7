// Package watch re-runs a handler when matching files land in a folder.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
)

// DefaultDebounce is the quiet period after the last write to a file before
// the handler runs.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes one settled file. Errors are logged and do not stop the
// watcher.
type Handler func(ctx context.Context, path string) error

// Config configures a Watcher.
type Config struct {
	Dir      string
	Pattern  string
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher debounces create and write events for files matching a pattern.
type Watcher struct {
	cfg     Config
	matcher *dataset.Matcher
	log     *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
}

// New validates cfg.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch: folder is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	m, err := dataset.NewMatcher(cfg.Pattern)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		cfg:     cfg,
		matcher: m,
		log:     log,
		pending: map[string]*time.Timer{},
		ready:   make(chan string, 64),
	}, nil
}

// Run blocks until ctx is cancelled, calling h once per settled file. h runs
// on the calling goroutine, one file at a time.
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	defer w.stopTimers()
	w.log.Info("watching", "dir", w.cfg.Dir, "pattern", w.matcher.Pattern(), "debounce", w.cfg.Debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "err", err)
		case path := <-w.ready:
			w.log.Debug("file settled", "path", path)
			if err := h(ctx, path); err != nil {
				w.log.Warn("handler failed", "path", path, "err", err)
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !w.matcher.Match(ev.Name) {
		return
	}
	w.schedule(ev.Name)
}

// schedule restarts the debounce timer of path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		default:
			w.log.Warn("watch queue full, dropping", "path", path)
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
}
