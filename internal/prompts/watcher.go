package prompts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// OverrideWatcher clears a Loader's cache when override templates change on disk,
// so edited prompts take effect on the next command without a restart.
type OverrideWatcher struct {
	watcher  *fsnotify.Watcher
	loader   *Loader
	debounce time.Duration
	onReload func(changed []string)

	pending map[string]struct{}
	timer   *time.Timer
	mu      sync.Mutex

	cancel context.CancelFunc
}

// NewOverrideWatcher watches every existing override directory of the loader.
// Directories that do not exist are skipped.
func NewOverrideWatcher(loader *Loader, onReload func(changed []string)) (*OverrideWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ow := &OverrideWatcher{
		watcher:  watcher,
		loader:   loader,
		debounce: 200 * time.Millisecond,
		onReload: onReload,
		pending:  make(map[string]struct{}),
	}

	for _, dir := range loader.OverrideDirs() {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				return watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return ow, nil
}

// Watched returns the directories currently being watched
func (ow *OverrideWatcher) Watched() []string {
	return ow.watcher.WatchList()
}

// Start begins watching for file changes
func (ow *OverrideWatcher) Start(ctx context.Context) {
	ctx, ow.cancel = context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-ow.watcher.Events:
				if !ok {
					return
				}
				ow.handleEvent(event)
			case _, ok := <-ow.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}

// Stop stops watching for file changes
func (ow *OverrideWatcher) Stop() {
	if ow.cancel != nil {
		ow.cancel()
	}
	ow.watcher.Close()
}

// SetDebounce sets the debounce duration for batching file changes
func (ow *OverrideWatcher) SetDebounce(d time.Duration) {
	ow.mu.Lock()
	defer ow.mu.Unlock()
	ow.debounce = d
}

func (ow *OverrideWatcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".md") {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	ow.mu.Lock()
	defer ow.mu.Unlock()

	ow.pending[event.Name] = struct{}{}
	if ow.timer != nil {
		ow.timer.Stop()
	}
	ow.timer = time.AfterFunc(ow.debounce, ow.flush)
}

func (ow *OverrideWatcher) flush() {
	ow.mu.Lock()
	pending := ow.pending
	ow.pending = make(map[string]struct{})
	ow.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	ow.loader.ClearCache()

	if ow.onReload != nil {
		files := make([]string, 0, len(pending))
		for f := range pending {
			files = append(files, f)
		}
		ow.onReload(files)
	}
}
