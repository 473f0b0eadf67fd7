// Package watch reports batches of file changes under a search scope so a
// search can be re-run when its results may have changed.
package watch

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/filesearch/internal/debug"
	"github.com/standardbeagle/filesearch/internal/walk"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Debounce is how long the tree must be quiet before a batch is reported.
	Debounce time.Duration
	// Walk selects the directories to watch and anchors reported paths.
	Walk walk.Options
}

// Watcher monitors one directory tree. It is single-use: Run closes it.
type Watcher struct {
	root     string
	opts     Options
	walker   *walk.Walker
	watcher  *fsnotify.Watcher
	watching int
}

// New creates a watcher for root. Nothing is watched until Run.
func New(root string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		root:    root,
		opts:    opts,
		walker:  walk.New(root, opts.Walk),
		watcher: fsw,
	}, nil
}

// Run watches until ctx ends, calling onChange with the sorted,
// workspace-relative paths that changed during each burst of activity.
// Directories created while running are watched too. Run returns nil when
// ctx ends, or the first error from onChange.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string) error) error {
	defer w.watcher.Close()

	if err := w.addWatches(ctx, w.root); err != nil {
		return err
	}
	debug.LogWalk("watching %d directories under %s\n", w.watching, w.root)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			rel, ok := w.handleEvent(ctx, event)
			if !ok {
				continue
			}
			pending[rel] = struct{}{}
			timer.Reset(w.opts.Debounce)
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			debug.LogWalk("file watcher error: %v\n", err)

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for rel := range pending {
				changed = append(changed, rel)
			}
			clear(pending)
			slices.Sort(changed)

			debug.LogWalk("processing %d debounced file events\n", len(changed))
			if err := onChange(changed); err != nil {
				return err
			}
		}
	}
}

// handleEvent returns the workspace-relative path of a relevant event.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) (string, bool) {
	if event.Op == fsnotify.Chmod {
		return "", false
	}
	if w.walker.Excludes(event.Name) {
		return "", false
	}
	debug.LogWalk("watch event %v for %s\n", event.Op, event.Name)

	if event.Has(fsnotify.Create) {
		// a new directory brings its whole subtree into scope
		if err := w.addWatches(ctx, event.Name); err != nil {
			debug.LogWalk("failed to watch %s: %v\n", event.Name, err)
		}
	}
	return w.walker.Relative(event.Name), true
}

// addWatches watches dir and every directory below it that a search would
// enter. A dir that is not a directory is ignored.
func (w *Watcher) addWatches(ctx context.Context, dir string) error {
	opts := w.opts.Walk
	if opts.WorkspaceRoot == "" {
		opts.WorkspaceRoot = w.root
	}
	sub := walk.New(dir, opts)

	err := sub.Walk(ctx, func(c walk.Candidate) error {
		if c.IsDirectory {
			w.add(c.AbsolutePath)
		}
		return nil
	})
	if err != nil {
		if dir != w.root {
			// created files and vanished directories land here
			return nil
		}
		return err
	}
	w.add(dir)
	return nil
}

func (w *Watcher) add(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		debug.LogWalk("Warning: failed to add watch for %s: %v\n", dir, err)
		return
	}
	w.watching++
}
