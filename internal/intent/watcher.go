// internal/intent/watcher.go
package intent

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Reloader is the part of the detector a Watcher drives.
type Reloader interface {
	Reload(sources ...string) error
}

// Watcher reloads the detector when any of its CSV sources changes. Bursts of
// events are coalesced into one reload after the debounce interval.
type Watcher struct {
	reloader Reloader
	sources  map[string]struct{}
	debounce time.Duration
	logger   Logger
	watcher  *fsnotify.Watcher

	// reloaded is signalled after each reload attempt; used by tests.
	reloaded chan error
}

// NewWatcher watches the directories holding sources. Directories are watched
// rather than files so editors that replace files on save are still seen.
func NewWatcher(reloader Reloader, sources []string, debounce time.Duration, logger Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = nopLogger{}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		reloader: reloader,
		sources:  make(map[string]struct{}, len(sources)),
		debounce: debounce,
		logger:   logger,
		watcher:  fw,
		reloaded: make(chan error, 1),
	}
	dirs := make(map[string]struct{})
	for _, src := range sources {
		abs, err := filepath.Abs(src)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", src, err)
		}
		w.sources[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			trigger = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", map[string]interface{}{"error": err.Error()})
		case <-trigger:
			trigger = nil
			err := w.reloader.Reload()
			if err != nil {
				w.logger.Warn("Intent table reload failed", map[string]interface{}{"error": err.Error()})
			} else {
				w.logger.Info("Intent table reloaded after source change", nil)
			}
			select {
			case w.reloaded <- err:
			default:
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.sources[abs]
	return ok
}
