package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/stateestimator/logging"
	"go.viam.com/stateestimator/stateestimator"
)

// DefaultDebounce is how long a file must stay unchanged before it is re-read.
const DefaultDebounce = 250 * time.Millisecond

// A Watcher reads a config file again whenever it changes on disk and delivers every config that
// decodes and validates. Invalid edits are logged and skipped.
type Watcher struct {
	path    string
	logger  logging.Logger
	watcher *fsnotify.Watcher
	workers *goutils.StoppableWorkers
	configs chan *stateestimator.Config
	pending chan struct{}
}

// NewWatcher starts watching filePath. Editors often replace a file rather than write it in place,
// so the containing directory is watched and events are filtered by name.
func NewWatcher(filePath string, debounceFor time.Duration, logger logging.Logger) (*Watcher, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		goutils.UncheckedError(fsWatcher.Close())
		return nil, errors.Wrapf(err, "watching %q", filePath)
	}

	w := &Watcher{
		path:    absPath,
		logger:  logger.Sublogger("config_watcher"),
		watcher: fsWatcher,
		configs: make(chan *stateestimator.Config),
		pending: make(chan struct{}, 1),
	}
	w.workers = goutils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		w.run(ctx, debounce.New(debounceFor))
	})
	return w, nil
}

// Config returns the channel new configs are delivered on.
func (w *Watcher) Config() <-chan *stateestimator.Config {
	return w.configs
}

func (w *Watcher) run(ctx context.Context, debounced func(func())) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounced(w.markPending)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("config watch error", "error", err)
		case <-w.pending:
			conf, err := Read(w.path)
			if err != nil {
				w.logger.Errorw("ignoring invalid config change", "path", w.path, "error", err)
				continue
			}
			w.logger.Infow("config changed", "path", w.path)
			select {
			case w.configs <- conf:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Watcher) markPending() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.workers.Stop()
	return w.watcher.Close()
}
