// Package watcher monitors a corpus root for file changes and triggers
// full rebuilds once changes settle.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/snipdex/snipdex/internal/config"
	"github.com/snipdex/snipdex/internal/walker"
)

// Options configures a watch loop.
type Options struct {
	Root    string
	Include []string
	Exclude []string
	// Debounce is how long changes must settle before Rebuild fires.
	// Zero means 2 seconds.
	Debounce time.Duration
	// Rebuild runs after changes settle, with the corpus-relative paths
	// that changed since the last rebuild.
	Rebuild func(changed []string)
}

// Watch blocks watching the corpus root, invoking opts.Rebuild after
// changes settle. Returns when ctx is done or the watcher shuts down.
func Watch(ctx context.Context, opts Options) error {
	if opts.Root == "" {
		return fmt.Errorf("watch: corpus root is required")
	}
	if opts.Rebuild == nil {
		return fmt.Errorf("watch: rebuild callback is required")
	}
	if _, err := os.Stat(opts.Root); err != nil {
		return fmt.Errorf("corpus root: %w", err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	match := walker.Config{Include: opts.Include, Exclude: opts.Exclude}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dirs := walkDirs(opts.Root)
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			fmt.Fprintf(os.Stderr, "  [WARN] Could not watch %s: %v\n", d, err)
		}
	}

	fmt.Fprintf(os.Stderr, "Watching %d directories in %s\n", len(dirs), opts.Root)

	// Debounce: collect changed files over a window before rebuilding.
	var (
		mu      sync.Mutex
		pending = make(map[string]bool)
		timer   *time.Timer
	)

	flush := func() {
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]bool)
		mu.Unlock()

		if len(paths) == 0 {
			return
		}
		sort.Strings(paths)
		opts.Rebuild(paths)
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}

			// New directories join the watch so files created inside
			// them are seen.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !config.SkipDirs[filepath.Base(event.Name)] {
						if err := w.Add(event.Name); err != nil {
							fmt.Fprintf(os.Stderr, "  [WARN] Could not watch %s: %v\n", event.Name, err)
						}
					}
					continue
				}
			}

			rel := relativePath(event.Name, opts.Root)
			if !match.Matches(rel) {
				continue
			}

			// Removes and renames also mark the path: the rebuild
			// re-walks the corpus, so dropped files fall out of the
			// next index.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				mu.Lock()
				pending[rel] = true
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, flush)
				mu.Unlock()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "  [WARN] Watch error: %v\n", err)
		}
	}
}

func walkDirs(root string) []string {
	var dirs []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && config.SkipDirs[d.Name()] {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs
}

func relativePath(filePath, root string) string {
	rel, err := filepath.Rel(root, filePath)
	if err != nil {
		return filePath
	}
	return filepath.ToSlash(rel)
}
