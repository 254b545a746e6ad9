package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the configured file and re-runs Loader.Load whenever it
// changes, handing the freshly validated Config to onChange. Stop must be
// called to release filesystem resources.
type Watcher struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop halts the watcher and waits for the underlying goroutine to exit.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		w.cancel()
		<-w.done
	})
}

// Watch wires fsnotify around the loader's configured file and reloads on
// any write/create/rename/remove/chmod event, debounced the same way the teacher
// debounces rapid rule-file writes. l must have exactly one file configured;
// watching a directory of files has no analogue here since this module
// loads a single config file.
func (l *Loader) Watch(ctx context.Context, onChange func(Config), onError func(error)) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("config: watch requires a change callback")
	}
	target := ""
	for _, f := range l.files {
		if f != "" {
			target = f
			break
		}
	}
	if target == "" {
		return nil, fmt.Errorf("config: no file configured for watching")
	}
	resolved, err := filepath.Abs(target)
	if err != nil {
		resolved = target
	}
	resolved = filepath.Clean(resolved)

	watchCtx, cancel := context.WithCancel(ctx)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("config: watch: %w", err)
	}
	if err := watcher.Add(filepath.Dir(resolved)); err != nil {
		_ = watcher.Close()
		cancel()
		return nil, fmt.Errorf("config: watch add %s: %w", resolved, err)
	}

	done := make(chan struct{})
	w := &Watcher{cancel: cancel, done: done}

	go func() {
		defer close(done)
		defer func() {
			if err := watcher.Close(); err != nil && onError != nil {
				onError(fmt.Errorf("config: watch close: %w", err))
			}
		}()

		var reloadMu sync.Mutex
		reload := func() {
			reloadMu.Lock()
			defer reloadMu.Unlock()
			cfg, err := l.Load(watchCtx)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				return
			}
			onChange(cfg)
		}

		const debounce = 25 * time.Millisecond
		var reloadTimer *time.Timer
		var reloadSignal <-chan time.Time
		scheduleReload := func() {
			if reloadTimer == nil {
				reloadTimer = time.NewTimer(debounce)
			} else {
				if !reloadTimer.Stop() {
					select {
					case <-reloadTimer.C:
					default:
					}
				}
				reloadTimer.Reset(debounce)
			}
			reloadSignal = reloadTimer.C
		}
		flushTimer := func() {
			if reloadTimer == nil {
				return
			}
			if !reloadTimer.Stop() {
				select {
				case <-reloadTimer.C:
				default:
				}
			}
			reloadSignal = nil
		}
		defer flushTimer()

		for {
			select {
			case <-watchCtx.Done():
				return
			case <-reloadSignal:
				flushTimer()
				reload()
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != resolved {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) == 0 {
					continue
				}
				scheduleReload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(fmt.Errorf("config: watch error: %w", err))
				}
			}
		}
	}()

	return w, nil
}
