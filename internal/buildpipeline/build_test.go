package buildpipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ilmerge/internal/diag"
	"ilmerge/internal/driver"
	"ilmerge/internal/emit/debugmap"
	"ilmerge/internal/image"
	"ilmerge/internal/ir"
	"ilmerge/internal/irfile"
	"ilmerge/internal/irtest"
	"ilmerge/internal/project"
)

const publicStatic = ir.MethodFlags(ir.AccessPublic) | ir.MethodStatic

func saveSnapshot(t *testing.T, path string, w *irtest.World, mods ...*ir.Module) {
	t.Helper()
	prog := &ir.Program{Arena: w.Program.Arena, Types: w.Program.Types, Modules: mods}
	require.NoError(t, irfile.Save(path, prog))
}

// fixture writes an application snapshot that calls into a library, and
// the library snapshot on its own.
func fixture(t *testing.T) (dir, app, lib string) {
	t.Helper()
	w := irtest.NewWorld("App")
	libMod := w.NewModule("Lib")
	libMod.Assembly = &ir.AssemblyInfo{Name: "Lib", Version: ir.Version{Major: 1}}
	shared := w.Class(libMod, "Lib", "Shared", nil)
	ping := w.Method(shared, "Ping", publicStatic, w.Core.Int32)
	w.Body(ping, ir.Return(w.I4(7)))

	program := w.Class(w.App, "App", "Program", nil)
	main := w.Method(program, "Main", publicStatic, w.Core.Int32)
	w.Body(main, ir.Return(ir.Call(ping, nil)))

	dir = t.TempDir()
	app = filepath.Join(dir, "app.irpk")
	lib = filepath.Join(dir, "lib.irpk.xz")
	saveSnapshot(t, app, w, w.Core.Module, libMod, w.App)
	saveSnapshot(t, lib, w, w.Core.Module, libMod)
	return dir, app, lib
}

func TestBuildMergesInputsIntoPrimary(t *testing.T) {
	dir, app, lib := fixture(t)
	out := filepath.Join(dir, "out", "merged.ilb")
	res, err := Build(context.Background(), &Request{
		Inputs:  []string{app, lib},
		Output:  out,
		Kind:    ir.ModuleEXE,
		KindSet: true,
	})
	require.NoError(t, err)
	require.False(t, res.Cached)
	require.False(t, res.Bag.HasErrors())
	require.Positive(t, res.Dup.Types)

	merged := res.Module.FindType("Lib.Shared")
	require.NotNil(t, merged)
	require.Same(t, res.Module, merged.Module)

	main := res.Module.FindType("App.Program").Methods[0]
	require.Same(t, main, res.Module.EntryPoint)
	call := main.Body.Stmts[0].Data.(ir.ReturnData).Value.Data.(ir.CallData)
	require.Same(t, merged.Methods[0], call.Method)

	require.NotZero(t, res.Image.EntryPoint)
	stored, err := image.LoadBundle(out)
	require.NoError(t, err)
	require.Equal(t, res.Image.Metadata, stored.Metadata)
	require.Equal(t, "exe", stored.Kind)
}

func TestBuildReportsProgressPerInput(t *testing.T) {
	dir, app, lib := fixture(t)
	rec := &Recorder{}
	_, err := Build(context.Background(), &Request{
		Inputs:   []string{app, lib},
		Root:     dir,
		Output:   filepath.Join(dir, "a.ilb"),
		Progress: rec,
	})
	require.NoError(t, err)

	var stages []Stage
	for _, ev := range rec.Events() {
		if ev.File == "lib.irpk.xz" && ev.Status == StatusDone {
			stages = append(stages, ev.Stage)
		}
	}
	require.Equal(t, Stages, stages)
	require.Equal(t, StatusQueued, rec.Events()[0].Status)
}

func TestBuildUsesCache(t *testing.T) {
	dir, app, lib := fixture(t)
	disk, err := driver.NewDiskCache(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	req := &Request{
		Inputs: []string{app, lib},
		Output: filepath.Join(dir, "a.ilb"),
		Caches: &driver.Caches{Memory: driver.NewImageCache(1), Disk: disk},
	}
	first, err := Build(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.Cached)

	require.NoError(t, os.Remove(req.Output))
	rec := &Recorder{}
	req.Progress = rec
	second, err := Build(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Nil(t, second.Module)
	require.Equal(t, first.Key, second.Key)
	require.FileExists(t, req.Output)
	events := rec.Events()
	require.True(t, events[len(events)-1].Cached)

	req.ModuleName = "Renamed.dll"
	third, err := Build(context.Background(), req)
	require.NoError(t, err)
	require.False(t, third.Cached)
	require.Equal(t, "Renamed.dll", third.Image.Name)
}

func TestBuildFromManifest(t *testing.T) {
	dir, _, _ := fixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.txt"), []byte("hello"), 0o600))
	manifest := `
[assembly]
name = "Merged"
version = "2.0"

[output]
kind = "exe"
compress = true

[[inputs]]
path = "lib.irpk.xz"

[[inputs]]
path = "app.irpk"
primary = true

[[resources]]
name = "greeting"
path = "greeting.txt"
`
	path := filepath.Join(dir, project.ManifestName)
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o600))
	m, err := project.LoadManifest(path)
	require.NoError(t, err)
	req, err := FromManifest(m)
	require.NoError(t, err)

	res, err := Build(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "build", "app.ilb"), res.OutputPath)
	require.Equal(t, "Merged", res.Module.Assembly.Name)
	require.Equal(t, ir.Version{Major: 2}, res.Module.Assembly.Version)
	require.Len(t, res.Module.Resources, 1)
	require.Equal(t, []byte("hello"), res.Module.Resources[0].Data)
	require.True(t, res.Module.Resources[0].ID.IsValid())

	stored, err := image.LoadBundle(res.OutputPath)
	require.NoError(t, err)
	require.Equal(t, res.Image.Resources, stored.Resources)
}

func TestBuildFailsOnMissingInput(t *testing.T) {
	dir, app, _ := fixture(t)
	rec := &Recorder{}
	res, err := Build(context.Background(), &Request{
		Inputs:   []string{app, filepath.Join(dir, "missing.irpk")},
		Output:   filepath.Join(dir, "a.ilb"),
		Progress: rec,
	})
	require.Error(t, err)
	require.True(t, res.Bag.HasErrors())
	require.Equal(t, diag.LoadReadFailed, res.Bag.Items()[0].Code)
	last := rec.Events()[len(rec.Events())-1]
	require.Equal(t, StatusError, last.Status)
}

func TestBuildRejectsRepeatedInput(t *testing.T) {
	dir, app, _ := fixture(t)
	_, err := Build(context.Background(), &Request{
		Inputs: []string{app, app},
		Output: filepath.Join(dir, "a.ilb"),
	})
	require.ErrorContains(t, err, "already provided")
}

func TestResolveEntryPoint(t *testing.T) {
	w := irtest.NewWorld("Tool")
	w.App.Kind = ir.ModuleEXE
	a := w.Class(w.App, "Tool", "A", nil)
	w.Method(a, "Main", publicStatic, nil)
	w.Method(a, "Main", ir.MethodFlags(ir.AccessPublic), nil)
	require.NoError(t, ResolveEntryPoint(w.App))
	require.Same(t, a.Methods[0], w.App.EntryPoint)

	w.App.EntryPoint = nil
	b := w.Class(w.App, "Tool", "B", nil)
	w.Method(b, "Main", publicStatic, nil)
	err := ResolveEntryPoint(w.App)
	require.ErrorContains(t, err, "Tool.A::Main")
	require.ErrorContains(t, err, "Tool.B::Main")

	lib := irtest.NewWorld("Lib")
	w.Method(lib.Class(lib.App, "Lib", "C", nil), "Main", publicStatic, nil)
	require.NoError(t, ResolveEntryPoint(lib.App))
	require.Nil(t, lib.App.EntryPoint)
}

func TestBuildWritesDebugMap(t *testing.T) {
	dir, app, _ := fixture(t)
	req := &Request{
		Inputs:   []string{app},
		Output:   filepath.Join(dir, "a.ilb"),
		DebugMap: filepath.Join(dir, "a.ilb.dbg"),
		Caches:   &driver.Caches{Memory: driver.NewImageCache(1)},
	}
	for range 2 {
		res, err := Build(context.Background(), req)
		require.NoError(t, err)
		require.False(t, res.Cached)
	}
	m, err := debugmap.ReadFile(req.DebugMap)
	require.NoError(t, err)
	require.NotEmpty(t, m.Methods)
	require.Zero(t, req.Caches.Memory.Len())
}
