package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
)

func TestWatchSetSync(t *testing.T) {
	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.irpk")
	b := filepath.Join(dir, "b.irpk")
	require.NoError(t, os.WriteFile(a, nil, 0o600))
	require.NoError(t, os.WriteFile(b, nil, 0o600))

	set := newWatchSet(w)
	errs := set.sync([]string{a, b, filepath.Join(dir, "missing.irpk")})
	require.Len(t, errs, 1)
	require.Len(t, set.paths, 2)

	require.Empty(t, set.sync([]string{a}))
	require.Equal(t, map[string]bool{a: true}, set.paths)

	set.forget(a)
	require.Empty(t, set.paths)
}

func TestWatchLoopRebuildsOncePerBurst(t *testing.T) {
	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(t.TempDir(), "app.irpk")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))
	set := newWatchSet(w)
	require.Empty(t, set.sync([]string{path}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rebuilt := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, w, set, 50*time.Millisecond, io.Discard, func() {
			rebuilt <- struct{}{}
			cancel()
		})
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("v2"), 0o600))
	}
	select {
	case <-rebuilt:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after writes")
	}
	require.NoError(t, <-done)
	require.Empty(t, rebuilt)
}
