package app

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/justyntemme/mosaic/internal/debug"
)

// Watcher watches the currently displayed directory and reports, debounced,
// when its contents change so the item list can be reloaded.
type Watcher struct {
	fsw      *fsnotify.Watcher
	mu       sync.Mutex
	path     string
	timer    *time.Timer
	notify   chan string
	done     chan struct{}
	debounce time.Duration
}

// NewWatcher creates a watcher. debounce collapses event bursts (a file
// copy emits many writes) into a single notification.
func NewWatcher(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	w := &Watcher{
		fsw:      fsw,
		notify:   make(chan string, 4),
		done:     make(chan struct{}),
		debounce: debounce,
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}

			w.mu.Lock()
			watched := w.path
			relevant := watched != "" &&
				(filepath.Dir(event.Name) == watched || event.Name == watched)
			if relevant {
				debug.Log(debug.APP, "watch event: %s on %s", event.Op, event.Name)
				if w.timer != nil {
					w.timer.Stop()
				}
				w.timer = time.AfterFunc(w.debounce, func() {
					select {
					case w.notify <- watched:
					default:
					}
				})
			}
			w.mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			debug.Log(debug.APP, "watch error: %v", err)
		}
	}
}

// SetPath switches the watched directory. An empty path stops watching.
func (w *Watcher) SetPath(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.path == path {
		return
	}
	if w.path != "" {
		w.fsw.Remove(w.path) // path may already be gone, ignore errors
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.path = ""
	if path == "" {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		debug.Log(debug.APP, "cannot watch %s: %v", path, err)
		return
	}
	w.path = path
	debug.Log(debug.APP, "now watching %s", path)
}

// Notify returns the channel that receives change notifications.
func (w *Watcher) Notify() <-chan string {
	return w.notify
}

// Close shuts down the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
