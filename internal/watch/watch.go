// Package watch re-runs environments when the configuration file
// changes.
package watch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

// Watcher invokes OnChange, debounced, whenever the watched file is
// written or re-created. The containing directory is watched so
// rename-replace editors and atomic writers are still observed.
type Watcher struct {
	// Path is the file to watch.
	Path string
	// Debounce collapses bursts of events into one OnChange call.
	Debounce time.Duration
	OnChange func()
}

// Run blocks until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.OnChange == nil {
		return fmt.Errorf("watch: OnChange not set")
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	abs, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("resolve watch path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Printf("watch: event=%s file=%s", event.Op, event.Name)
			if timer == nil {
				timer = time.AfterFunc(debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: error=%v", err)
		case <-fire:
			timer = nil
			w.OnChange()
		}
	}
}
