// Package watch rebuilds the site when files below the content roots change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// DefaultDebounce is the quiet period applied when none is configured.
const DefaultDebounce = 300 * time.Millisecond

// ErrNoDirectories is returned by Run when none of the watched paths exist.
var ErrNoDirectories = errors.New("watch: no directories to watch")

// RebuildFunc performs one rebuild. Errors are logged and do not stop the watcher.
type RebuildFunc func(ctx context.Context) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period after the last event before a rebuild starts.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(w *Watcher) {
		w.logger = logging.OrNoOp(logger)
	}
}

// OnRebuild registers a callback invoked after every rebuild with its error.
func OnRebuild(fn func(error)) Option {
	return func(w *Watcher) {
		w.onRebuild = fn
	}
}

// Watcher coalesces file system events into debounced rebuilds. Rebuilds
// never overlap.
type Watcher struct {
	dirs      []string
	rebuild   RebuildFunc
	debounce  time.Duration
	logger    interfaces.Logger
	onRebuild func(error)
}

// New returns a watcher over dirs and their subdirectories.
func New(dirs []string, rebuild RebuildFunc, opts ...Option) *Watcher {
	w := &Watcher{
		dirs:     dirs,
		rebuild:  rebuild,
		debounce: DefaultDebounce,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	watched := 0
	for _, dir := range w.dirs {
		n, err := addTree(fsw, dir)
		if err != nil {
			w.logger.Warn("watch.add.failed", "dir", dir, "error", err)
			continue
		}
		watched += n
	}
	if watched == 0 {
		return ErrNoDirectories
	}
	w.logger.Info("watch.started", "dirs", watched, "debounce", w.debounce)

	return w.loop(ctx, fsw.Events, fsw.Errors, func(name string) {
		if _, err := addTree(fsw, name); err != nil {
			w.logger.Warn("watch.add.failed", "dir", name, "error", err)
		}
	})
}

func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, addDir func(string)) error {
	var timer *time.Timer
	var fire <-chan time.Time
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("watch.event", "path", event.Name, "op", event.Op.String())
			if event.Has(fsnotify.Create) && addDir != nil && isDir(event.Name) {
				addDir(event.Name)
			}
			stop()
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Error("watch.error", "error", err)
		case <-fire:
			timer, fire = nil, nil
			w.run(ctx)
		}
	}
}

func (w *Watcher) run(ctx context.Context) {
	start := time.Now()
	err := w.rebuild(ctx)
	if err != nil {
		w.logger.Error("watch.rebuild.failed", "error", err)
	} else {
		w.logger.Info("watch.rebuild.completed", "duration", time.Since(start))
	}
	if w.onRebuild != nil {
		w.onRebuild(err)
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func addTree(fsw *fsnotify.Watcher, root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(p); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
