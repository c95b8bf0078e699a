package fixtures

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/logger"
	"github.com/teranos/composr/manager"
)

// DefaultDebounce collapses bursts of writes (editors often write twice).
const DefaultDebounce = 300 * time.Millisecond

// ReloadFunc receives the freshly decoded items of a changed file.
type ReloadFunc func(ctx context.Context, path string, raws []manager.Raw) error

// Watcher re-reads fixture files when they change on disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onReload ReloadFunc
	debounce time.Duration
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

// NewWatcher watches paths (files or directories).
func NewWatcher(paths []string, onReload ReloadFunc, log *zap.SugaredLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	for _, p := range paths {
		if err := fw.Add(p); err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", p)
		}
	}
	return &Watcher{
		watcher:  fw,
		onReload: onReload,
		debounce: DefaultDebounce,
		logger:   logger.OrNop(log).With(logger.FieldComponent, "fixtures-watcher"),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// SetDebounce changes the debounce period. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.mu.Lock()
		for _, t := range w.timers {
			if t.Stop() {
				w.wg.Done()
			}
		}
		w.mu.Unlock()
		w.wg.Wait()
		w.watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !Supported(event.Name) {
				continue
			}
			w.schedule(ctx, filepath.Clean(event.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("Fixture watcher error", logger.FieldError, err.Error())
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok && t.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		if ctx.Err() != nil {
			return
		}
		w.reload(ctx, path)
	})
}

func (w *Watcher) reload(ctx context.Context, path string) {
	raws, err := LoadFile(path)
	if err != nil {
		w.logger.Errorw("Fixture reload failed", "path", path, logger.FieldError, err.Error())
		return
	}
	w.logger.Infow("Fixture changed", "path", path, logger.FieldCount, len(raws))
	if err := w.onReload(ctx, path, raws); err != nil {
		w.logger.Warnw("Fixture reload callback error", "path", path, logger.FieldError, err.Error())
	}
}
