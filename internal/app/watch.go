package app

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// Watcher invokes a callback when any of a set of files changes.
// Parent directories are watched so files replaced by rename are still seen.
type Watcher struct {
	files    map[string]bool
	dirs     []string
	debounce time.Duration
	onChange func(path string)
}

// NewWatcher watches the given files. Empty paths are ignored.
func NewWatcher(paths []string, debounce time.Duration) *Watcher {
	w := &Watcher{
		files:    make(map[string]bool),
		debounce: debounce,
	}
	seen := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w
}

// OnChange sets the callback. It runs on the watcher goroutine with the path
// of the last changed file in the burst.
func (w *Watcher) OnChange(callback func(path string)) {
	w.onChange = callback
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := ""

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			pending = filepath.Clean(ev.Name)
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watch error: %v", err)
		case <-timer.C:
			if pending != "" && w.onChange != nil {
				w.onChange(pending)
			}
			pending = ""
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return w.files[filepath.Clean(ev.Name)]
}

// Watch regenerates whenever the job file or the source changes, until ctx
// is done. Failed runs are logged and watching continues.
func (s *State) Watch(ctx context.Context, debounce time.Duration) error {
	w := NewWatcher([]string{s.JobPath, s.ResolvedSourcePath()}, debounce)
	w.OnChange(func(path string) {
		log.Printf("Changed: %s", path)
		if _, err := s.Reload(ctx); err != nil {
			log.Printf("Regenerate failed: %v", err)
		}
	})
	log.Printf("Watching %d files", len(w.files))
	return w.Run(ctx)
}
