package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the burst of write events a single `yaml` save
// produces into one reload, matching pkg/config/provider/file.go's
// FileProvider.watchLoop debounce timer.
const debounceDelay = 100 * time.Millisecond

// Watcher reloads a Config from disk whenever its source file changes,
// backing spec §4.9's "provider reactivity" (a running claude-provider
// node's rate/budget limits should track edits to smithers.yaml without a
// process restart). Grounded on hector's pkg/config/provider.FileProvider,
// narrowed from a generic byte-stream Provider to one that hands back an
// already-parsed *Config per change.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
}

// WatchConfig starts watching path's containing directory (some platforms
// don't support watching a single file directly, per FileProvider.Watch's
// comment) and returns a Watcher plus a channel that receives a freshly
// reloaded Config after every debounced change. The channel is closed when
// ctx is done or Close is called.
func WatchConfig(ctx context.Context, path string) (*Watcher, <-chan *Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: resolve watch path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("config: create watcher: %w", err)
	}
	dir := filepath.Dir(absPath)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, nil, fmt.Errorf("config: watch directory %s: %w", dir, err)
	}

	w := &Watcher{path: absPath, watcher: fw}
	ch := make(chan *Config, 1)
	go w.loop(ctx, ch)
	return w, ch, nil
}

func (w *Watcher) loop(ctx context.Context, ch chan<- *Config) {
	defer close(ch)
	defer w.watcher.Close()

	file := filepath.Base(w.path)
	var debounce *time.Timer
	reload := func() {
		cfg, err := LoadConfig(w.path)
		if err != nil {
			return // keep running on a transient parse error; next edit may fix it
		}
		select {
		case ch <- cfg:
		default: // a reload is already pending
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, reload)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
