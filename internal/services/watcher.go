package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

type Reloader interface {
	Reload(ctx context.Context) error
}

// SourceWatcher reloads the dataset when its source file changes. The parent
// directory is watched so editors that replace the file by rename are seen.
type SourceWatcher struct {
	path     string
	target   Reloader
	logger   *slog.Logger
	debounce time.Duration
	timeout  time.Duration

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewSourceWatcher(path string, target Reloader, logger *slog.Logger, timeout time.Duration) (*SourceWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &SourceWatcher{
		path:     abs,
		target:   target,
		logger:   logger,
		debounce: defaultDebounce,
		timeout:  timeout,
		watcher:  w,
		done:     make(chan struct{}),
	}, nil
}

func (sw *SourceWatcher) Start() {
	sw.wg.Add(1)
	go sw.run()
}

func (sw *SourceWatcher) run() {
	defer sw.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-sw.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != sw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			sw.logger.Debug("source changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(sw.debounce)
			} else {
				timer.Reset(sw.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			sw.reload()

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn("watcher error", "error", err)
		}
	}
}

func (sw *SourceWatcher) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), sw.timeout)
	defer cancel()

	if err := sw.target.Reload(ctx); err != nil {
		sw.logger.Error("reload after source change failed, keeping previous dataset", "path", sw.path, "error", err)
		return
	}
	sw.logger.Info("dataset reloaded after source change", "path", sw.path)
}

// Close stops the watcher. It can be used as a shutdown hook.
func (sw *SourceWatcher) Close(ctx context.Context) error {
	var err error
	sw.once.Do(func() {
		close(sw.done)
		err = sw.watcher.Close()
	})

	finished := make(chan struct{})
	go func() {
		sw.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
