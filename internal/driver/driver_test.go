package driver

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"ilmerge/internal/emit"
	"ilmerge/internal/ir"
	"ilmerge/internal/irtest"
	"ilmerge/internal/project"
	"ilmerge/internal/trace"
)

const publicStatic = ir.MethodFlags(ir.AccessPublic) | ir.MethodStatic

func calc(t *testing.T, name string) *irtest.World {
	t.Helper()
	w := irtest.NewWorld(name)
	ops := w.Class(w.App, name, "Ops", nil)
	add := w.Method(ops, "Add", publicStatic, w.Core.Int32, w.Core.Int32, w.Core.Int32)
	w.Body(add, ir.Return(ir.Binary(ir.OpAdd, nil, ir.ParamRef(add.Params[0]), ir.ParamRef(add.Params[1]))))
	return w
}

func TestSessionRunReportsPhases(t *testing.T) {
	w := calc(t, "Calc")
	var mu sync.Mutex
	var names []string
	s := Session{Module: w.App, Observer: func(ev PhaseEvent) {
		if ev.Status == PhaseEnd {
			mu.Lock()
			names = append(names, ev.Name)
			mu.Unlock()
		}
	}}
	res, err := s.Run(context.Background(), nil, 0)
	require.NoError(t, err)
	require.Equal(t, "Calc.dll", res.Name)
	require.False(t, res.Cached)
	require.NotNil(t, res.Result)
	require.Equal(t, "Calc.dll", res.Image.Name)
	require.Equal(t, []string{PhaseCache, "define", "visit", "populate", PhaseAssemble}, names)
	require.Len(t, res.Timer.Report().Phases, 5)
}

func TestEmitAllKeepsSessionOrder(t *testing.T) {
	a, b, c := calc(t, "A"), calc(t, "B"), calc(t, "C")
	sessions := []Session{{Module: a.App}, {Module: b.App}, {Module: c.App}}
	results, err := EmitAll(context.Background(), sessions, EmitOptions{Jobs: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, want := range []string{"A.dll", "B.dll", "C.dll"} {
		require.Equal(t, want, results[i].Image.Name)
	}
}

func TestEmitAllStopsOnFailure(t *testing.T) {
	good := calc(t, "Good")
	bad := calc(t, "Bad")
	orphan := &ir.Module{Name: "Orphan.dll"}
	bad.Program.Arena.Register(&orphan.Node)
	lost := bad.Class(orphan, "Lost", "Thing", nil)
	bad.Field(bad.App.FindType("Bad.Ops"), "thing", lost, ir.FieldFlags(ir.AccessPublic))

	_, err := EmitAll(context.Background(), []Session{{Module: good.App}, {Module: bad.App}}, EmitOptions{})
	require.Error(t, err)
	require.ErrorIs(t, err, emit.ErrUnresolvedLocation)
	require.ErrorContains(t, err, "Bad.dll")
}

func TestEmitAllHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := EmitAll(ctx, []Session{{Module: calc(t, "A").App}}, EmitOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCachedSessionSkipsEmission(t *testing.T) {
	disk, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	caches := &Caches{Memory: NewImageCache(4), Disk: disk}
	w := calc(t, "Calc")
	key := project.Combine(project.Sum([]byte("input")), OptionsDigest(emit.Options{}))

	first, err := (&Session{Module: w.App, Key: key}).Run(context.Background(), caches, 0)
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Equal(t, 1, caches.Memory.Len())

	// a fresh process sees only the disk entry
	second, err := (&Session{Module: w.App, Key: key}).Run(context.Background(), &Caches{Disk: disk}, 0)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Nil(t, second.Result)
	require.Equal(t, first.Image.Metadata, second.Image.Metadata)
	require.Equal(t, first.Image.IL, second.Image.IL)
}

func TestCorruptCacheEntryIsReemitted(t *testing.T) {
	disk, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	key := project.Sum([]byte("k"))
	p := disk.pathFor(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("garbage"), 0o600))

	res, err := (&Session{Module: calc(t, "Calc").App, Key: key}).Run(context.Background(), &Caches{Disk: disk}, 0)
	require.NoError(t, err)
	require.False(t, res.Cached)
	require.True(t, res.Bag.HasWarnings())
}

func TestDropAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	disk, err := NewDiskCache(dir)
	require.NoError(t, err)
	_, err = (&Session{Module: calc(t, "Calc").App, Key: project.Sum([]byte("k"))}).Run(context.Background(), &Caches{Disk: disk}, 0)
	require.NoError(t, err)

	require.NoError(t, disk.DropAll())
	_, err = os.Stat(dir)
	require.True(t, os.IsNotExist(err))
	var none *DiskCache
	require.NoError(t, none.DropAll())
}

func TestSessionsForDerivesKeys(t *testing.T) {
	a, b := calc(t, "A"), calc(t, "B")
	base := Session{Key: project.Sum([]byte("base"))}
	sessions := SessionsFor([]*ir.Module{a.App, b.App}, base)
	require.Equal(t, "A.dll", sessions[0].Name)
	require.NotEqual(t, sessions[0].Key, sessions[1].Key)
	require.True(t, SessionsFor([]*ir.Module{a.App}, Session{})[0].Key.IsZero())
}

func TestEmitAllNestsSessionSpans(t *testing.T) {
	tr := trace.NewRingTracer(256, trace.LevelDetail)
	ctx := trace.WithTracer(context.Background(), tr)
	w := calc(t, "Calc")
	base := Session{Options: emit.Options{Tracer: tr}}
	_, err := EmitAll(ctx, SessionsFor([]*ir.Module{w.App}, base), EmitOptions{Jobs: 1})
	require.NoError(t, err)

	var parent, sessionParent uint64
	for _, ev := range tr.Snapshot() {
		if ev.Kind != trace.KindSpanBegin {
			continue
		}
		switch ev.Name {
		case "emit-all":
			parent = ev.SpanID
		case "emit:Calc.dll":
			sessionParent = ev.ParentID
		}
	}
	require.NotZero(t, parent)
	require.Equal(t, parent, sessionParent)
}
