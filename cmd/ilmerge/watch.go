package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettle is how long the watcher waits for a burst of events to end
// before rebuilding.
const watchSettle = 150 * time.Millisecond

// watchSet tracks the files registered with a watcher.
type watchSet struct {
	w     *fsnotify.Watcher
	paths map[string]bool
}

func newWatchSet(w *fsnotify.Watcher) *watchSet {
	return &watchSet{w: w, paths: make(map[string]bool)}
}

// sync makes the watched set equal to paths. Missing files are skipped and
// retried on the next sync.
func (s *watchSet) sync(paths []string) []error {
	want := make(map[string]bool, len(paths))
	var errs []error
	for _, p := range paths {
		p = filepath.Clean(p)
		want[p] = true
		if s.paths[p] {
			continue
		}
		if err := s.w.Add(p); err != nil {
			errs = append(errs, err)
			continue
		}
		s.paths[p] = true
	}
	for p := range s.paths {
		if !want[p] {
			_ = s.w.Remove(p)
			delete(s.paths, p)
		}
	}
	return errs
}

// forget drops p so the next sync adds it again. Editors that save by
// rename leave the old watch pointing at a deleted inode.
func (s *watchSet) forget(p string) {
	p = filepath.Clean(p)
	if s.paths[p] {
		_ = s.w.Remove(p)
		delete(s.paths, p)
	}
}

func watchAndRebuild(ctx context.Context, run *buildRun) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	set := newWatchSet(w)
	stderr := run.cmd.ErrOrStderr()
	resync := func() {
		for _, err := range set.sync(run.watched) {
			fmt.Fprintln(stderr, warningColor.Sprint("watch:"), err)
		}
	}
	resync()
	fmt.Fprintf(run.cmd.OutOrStdout(), "watching %d files, press Ctrl+C to stop\n", len(set.paths))

	return watchLoop(ctx, w, set, watchSettle, stderr, func() {
		if err := run.once(ctx); err != nil {
			fmt.Fprintln(stderr, errorColor.Sprint("error:"), err)
		}
		resync()
	})
}

// watchLoop calls rebuild once per settled burst of file events until ctx
// is done or the watcher closes.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, set *watchSet, settle time.Duration, stderr io.Writer, rebuild func()) error {
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				set.forget(ev.Name)
			}
			pending = time.After(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(stderr, warningColor.Sprint("watch:"), err)
		case <-pending:
			pending = nil
			rebuild()
		}
	}
}
