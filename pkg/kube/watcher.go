package kube

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	dirEventDebounce  = 500 * time.Millisecond
	dirPollInterval   = 5 * time.Second
)

// DirWatcher watches the legacy kubeconfig directory so the dashboard can
// tell operators when credential files change underneath it. Uses fsnotify
// for instant detection plus a polling fallback to catch changes fsnotify
// misses after atomic file replacements.
type DirWatcher struct {
	mu       sync.Mutex
	dir      string
	watcher  *fsnotify.Watcher
	stop     chan struct{}
	onChange func()
}

// NewDirWatcher creates a watcher for dir. Call Start to begin watching.
func NewDirWatcher(dir string) *DirWatcher {
	return &DirWatcher{dir: dir}
}

// SetOnChange sets the callback invoked (debounced) after directory changes.
func (w *DirWatcher) SetOnChange(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// Start begins watching. The directory must exist.
func (w *DirWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.watcher = watcher
	w.stop = make(chan struct{})
	go w.watchLoop()
	log.Printf("[kube] watching kubeconfig directory: %s", w.dir)
	return nil
}

// Stop stops watching.
func (w *DirWatcher) Stop() {
	if w.stop != nil {
		close(w.stop)
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *DirWatcher) notify() {
	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()
	if callback != nil {
		callback()
	}
}

func (w *DirWatcher) watchLoop() {
	var debounceTimer *time.Timer

	// Polling fallback: the directory mtime changes whenever entries are
	// added, removed or renamed, which covers what fsnotify can miss.
	pollTicker := time.NewTicker(dirPollInterval)
	defer pollTicker.Stop()
	var lastModTime time.Time
	if info, err := os.Stat(w.dir); err == nil {
		lastModTime = info.ModTime()
	}

	trigger := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(dirEventDebounce, w.notify)
	}

	for {
		select {
		case <-w.stop:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				if info, err := os.Stat(w.dir); err == nil {
					lastModTime = info.ModTime()
				}
				trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[kube] kubeconfig directory watcher error: %v", err)
		case <-pollTicker.C:
			info, err := os.Stat(w.dir)
			if err != nil {
				continue
			}
			if info.ModTime() != lastModTime {
				lastModTime = info.ModTime()
				trigger()
			}
		}
	}
}
