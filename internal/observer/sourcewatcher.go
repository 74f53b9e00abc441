package observer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called with the files that appeared or changed since
// the previous callback
type ChangeCallback func(changedFiles []string)

// SourceWatcher monitors source roots and reports new or written files
// whose names pass the match function
type SourceWatcher struct {
	watcher  *fsnotify.Watcher
	match    func(name string) bool
	callback ChangeCallback
	debounce time.Duration

	roots   map[string]struct{}
	pending map[string]struct{}
	timer   *time.Timer
	mu      sync.Mutex

	cancel context.CancelFunc
}

// NewSourceWatcher creates a new watcher. A nil match accepts every file.
func NewSourceWatcher(match func(name string) bool, callback ChangeCallback) (*SourceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if match == nil {
		match = func(string) bool { return true }
	}

	return &SourceWatcher{
		watcher:  watcher,
		match:    match,
		callback: callback,
		debounce: 2 * time.Second, // files are usually written in bursts
		roots:    make(map[string]struct{}),
		pending:  make(map[string]struct{}),
	}, nil
}

// AddRoot starts watching a source root and all its subdirectories.
// Missing roots are ignored; they are reported by the processor instead.
func (sw *SourceWatcher) AddRoot(root string) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	root = filepath.Clean(root)
	if _, exists := sw.roots[root]; exists {
		return nil
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil
	}

	if err := sw.addTree(root); err != nil {
		return err
	}
	sw.roots[root] = struct{}{}
	return nil
}

func (sw *SourceWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if d.IsDir() {
			return sw.watcher.Add(path)
		}
		return nil
	})
}

// Roots returns the watched source roots
func (sw *SourceWatcher) Roots() []string {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	roots := make([]string, 0, len(sw.roots))
	for r := range sw.roots {
		roots = append(roots, r)
	}
	return roots
}

// Start begins watching for file changes
func (sw *SourceWatcher) Start(ctx context.Context) {
	ctx, sw.cancel = context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sw.watcher.Events:
				if !ok {
					return
				}
				sw.handleEvent(event)
			case _, ok := <-sw.watcher.Errors:
				if !ok {
					return
				}
				// Overflow or transient errors; the scheduled run still catches up
			}
		}
	}()
}

// Stop stops watching for file changes
func (sw *SourceWatcher) Stop() {
	if sw.cancel != nil {
		sw.cancel()
	}
	sw.mu.Lock()
	if sw.timer != nil {
		sw.timer.Stop()
	}
	sw.mu.Unlock()
	sw.watcher.Close()
}

func (sw *SourceWatcher) handleEvent(event fsnotify.Event) {
	// Only care about writes and creates
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.findRoot(event.Name) == "" {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// New subdirectory: watch it and pick up files created before the watch was added
			sw.addTree(event.Name)
			filepath.WalkDir(event.Name, func(path string, d fs.DirEntry, err error) error {
				if err == nil && !d.IsDir() && sw.match(d.Name()) {
					sw.pending[path] = struct{}{}
				}
				return nil
			})
			sw.schedule()
			return
		}
	}

	if !sw.match(filepath.Base(event.Name)) {
		return
	}

	sw.pending[event.Name] = struct{}{}
	sw.schedule()
}

// schedule resets the debounce timer; callers hold sw.mu
func (sw *SourceWatcher) schedule() {
	if len(sw.pending) == 0 {
		return
	}
	if sw.timer != nil {
		sw.timer.Stop()
	}
	sw.timer = time.AfterFunc(sw.debounce, sw.flush)
}

// findRoot returns the watched root containing the given path
func (sw *SourceWatcher) findRoot(path string) string {
	for root := range sw.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return root
		}
	}
	return ""
}

func (sw *SourceWatcher) flush() {
	sw.mu.Lock()
	pending := sw.pending
	sw.pending = make(map[string]struct{})
	sw.mu.Unlock()

	if sw.callback == nil || len(pending) == 0 {
		return
	}

	files := make([]string, 0, len(pending))
	for f := range pending {
		files = append(files, f)
	}
	sw.callback(files)
}

// SetDebounce sets the debounce duration for batching file changes
func (sw *SourceWatcher) SetDebounce(d time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.debounce = d
}
