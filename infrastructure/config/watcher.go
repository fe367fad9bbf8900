package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DocumentWatcher watches the document directory and reports which parameter
// or case file changed, so the owning process can re-run file-to-graph sync
// for just that document.
type DocumentWatcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	onChange []func(path string)
	timers   map[string]*time.Timer
}

// debounce window: editors and atomic saves produce bursts of events for a
// single logical change.
const debounceDuration = 200 * time.Millisecond

// NewDocumentWatcher creates a watcher over dir. Only .yaml, .yml and .json
// files are reported.
func NewDocumentWatcher(dir string, logger *zap.Logger) (*DocumentWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch document directory: %w", err)
	}

	return &DocumentWatcher{
		dir:     dir,
		watcher: watcher,
		logger:  logger,
		stopCh:  make(chan struct{}),
		timers:  map[string]*time.Timer{},
	}, nil
}

// OnChange registers a callback invoked with the path of each changed
// document. Callbacks run on the watcher goroutine's timers; keep them short
// or hand off.
func (w *DocumentWatcher) OnChange(handler func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// Start begins watching
func (w *DocumentWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("document watcher started", zap.String("dir", w.dir))
}

// Stop stops watching. Safe to call more than once.
func (w *DocumentWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()

		w.mu.Lock()
		for _, timer := range w.timers {
			timer.Stop()
		}
		w.mu.Unlock()

		w.logger.Info("document watcher stopped")
	})
}

func (w *DocumentWatcher) watchLoop() {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isDocumentFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleNotify(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))
		}
	}
}

// scheduleNotify resets the per-file debounce timer
func (w *DocumentWatcher) scheduleNotify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(debounceDuration, func() {
		w.notify(path)
	})
}

func (w *DocumentWatcher) notify(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	handlers := append([]func(string){}, w.onChange...)
	w.mu.Unlock()

	w.logger.Info("document changed", zap.String("path", path))
	for _, handler := range handlers {
		handler(path)
	}
}

func isDocumentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
