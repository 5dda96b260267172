package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"ilmerge/internal/buildpipeline"
	"ilmerge/internal/diag"
	"ilmerge/internal/image"
	"ilmerge/internal/ir"
	"ilmerge/internal/irfile"
	"ilmerge/internal/irtest"
	"ilmerge/internal/observ"
	"ilmerge/internal/project"
)

const publicStatic = ir.MethodFlags(ir.AccessPublic) | ir.MethodStatic

// snapshots writes app.irpk holding [core, Lib, App] and lib.irpk holding
// [core, Lib]. App.Program::Main returns Lib.Shared::Ping().
func snapshots(t *testing.T) (dir, app, lib string) {
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
	lib = filepath.Join(dir, "lib.irpk")
	save := func(path string, mods ...*ir.Module) {
		prog := &ir.Program{Arena: w.Program.Arena, Types: w.Program.Types, Modules: mods}
		require.NoError(t, irfile.Save(path, prog))
	}
	save(app, w.Core.Module, libMod, w.App)
	save(lib, w.Core.Module, libMod)
	return dir, app, lib
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(append([]string{"--color", "off"}, args...), &stdout, &stderr)
	return stdout.String() + stderr.String(), err
}

func TestEmitWritesOneBundlePerSnapshot(t *testing.T) {
	dir, app, lib := snapshots(t)
	outDir := filepath.Join(dir, "out")
	out, err := execute(t, "emit", app, lib, "-o", outDir, "-j", "2")
	require.NoError(t, err, out)
	require.Contains(t, out, "emitted")

	appImg, err := image.LoadBundle(filepath.Join(outDir, "App.ilb"))
	require.NoError(t, err)
	require.Equal(t, "App.dll", appImg.Name)
	libImg, err := image.LoadBundle(filepath.Join(outDir, "Lib.ilb"))
	require.NoError(t, err)
	require.Equal(t, "Lib.dll", libImg.Name)

	dump, err := execute(t, "dump", "--il", filepath.Join(outDir, "App.ilb"))
	require.NoError(t, err)
	require.Contains(t, dump, "Main")
}

func TestEmitRejectsRepeatedPrincipal(t *testing.T) {
	dir, _, lib := snapshots(t)
	_, err := execute(t, "emit", lib, lib, "-o", dir)
	require.ErrorContains(t, err, "already provided")
}

func TestMergeBuildsExecutable(t *testing.T) {
	dir, app, lib := snapshots(t)
	target := filepath.Join(dir, "merged.ilb")
	out, err := execute(t, "merge", app, lib, "--kind", "exe", "-o", target)
	require.NoError(t, err, out)
	require.Contains(t, out, "merged 2 inputs")

	img, err := image.LoadBundle(target)
	require.NoError(t, err)
	require.Equal(t, "exe", img.Kind)
	require.NotZero(t, img.EntryPoint)
}

func TestMergeRejectsBadKind(t *testing.T) {
	_, app, _ := snapshots(t)
	_, err := execute(t, "merge", app, "--kind", "so")
	require.ErrorContains(t, err, "--kind")
}

func TestBuildFromManifestAndClean(t *testing.T) {
	dir, _, _ := snapshots(t)
	manifest := "[output]\nkind = \"exe\"\npath = \"build/app.ilb\"\n\n" +
		"[[inputs]]\npath = \"app.irpk\"\nprimary = true\n\n[[inputs]]\npath = \"lib.irpk\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, project.ManifestName), []byte(manifest), 0o600))

	out, err := execute(t, "build", "--ui", "off", "--watch=false", "--no-cache=false", "-o", "", dir)
	require.NoError(t, err, out)
	require.Contains(t, out, "built build/app.ilb")
	require.FileExists(t, filepath.Join(dir, "build", "app.ilb"))

	out, err = execute(t, "build", "--ui", "off", "--watch=false", "--no-cache=false", "-o", "", dir)
	require.NoError(t, err, out)
	require.Contains(t, out, "cached")

	out, err = execute(t, "clean", "--user=false", dir)
	require.NoError(t, err, out)
	require.Contains(t, out, ".ilmerge-cache")
}

func TestIRPrintsPrincipalModule(t *testing.T) {
	_, app, _ := snapshots(t)
	out, err := execute(t, "ir", "--all=false", "--module", "", app)
	require.NoError(t, err)
	require.Contains(t, out, "App.Program")
	require.Contains(t, out, "module App.dll")
	require.NotContains(t, out, "module Lib.dll")
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"tool": "ilmerge"`)
}

func TestSelectModules(t *testing.T) {
	a := &ir.Module{Name: "a.dll"}
	b := &ir.Module{Name: "b.dll"}
	mods := []*ir.Module{a, b}

	got, err := selectModules(mods, false, "")
	require.NoError(t, err)
	require.Equal(t, []*ir.Module{b}, got)
	got, err = selectModules(mods, true, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	got, err = selectModules(mods, false, "a.dll")
	require.NoError(t, err)
	require.Equal(t, []*ir.Module{a}, got)
	_, err = selectModules(mods, false, "c.dll")
	require.Error(t, err)
}

func TestNames(t *testing.T) {
	require.Equal(t, "App.ilb", bundleName("App.dll"))
	require.Equal(t, "tool.ilb", bundleName("tool"))
	require.Equal(t, filepath.Join("in", "app.ilb"), defaultMergeOutput(filepath.Join("in", "app.irpk.xz")))
	require.Equal(t, "build/app.ilb", formatPathForOutput("/p", "/p/build/app.ilb"))
	require.Equal(t, "/q/x", formatPathForOutput("/p", "/q/x"))
}

func TestColorAndUIModes(t *testing.T) {
	on, err := colorEnabled("auto", true)
	require.NoError(t, err)
	require.True(t, on)
	on, err = colorEnabled("off", true)
	require.NoError(t, err)
	require.False(t, on)
	_, err = colorEnabled("sometimes", false)
	require.Error(t, err)

	mode, err := readUIMode(" ON ")
	require.NoError(t, err)
	require.True(t, shouldUseTUI(mode, true, true))
	mode, err = readUIMode("off")
	require.NoError(t, err)
	require.False(t, shouldUseTUI(mode, false, false))
	mode, err = readUIMode("")
	require.NoError(t, err)
	require.False(t, shouldUseTUI(mode, true, false))
	_, err = readUIMode("maybe")
	require.Error(t, err)
}

func TestPrintDiagnostics(t *testing.T) {
	color.NoColor = true
	bag := diag.NewBag(0)
	bag.Add(diag.New(diag.SevWarning, diag.IOCacheCorrupt, "cache", "entry ignored"))
	bag.Add(diag.NewError(diag.LoadReadFailed, "app.irpk", "no such file"))

	var buf bytes.Buffer
	printDiagnostics(&buf, bag, false)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "error "), lines[0])
	require.True(t, strings.HasPrefix(lines[1], "warning "), lines[1])
}

func TestPrintStageTimingsKeepsPipelineOrder(t *testing.T) {
	var timings buildpipeline.Timings
	timings.Set(buildpipeline.StageWrite, 2e6)
	timings.Set(buildpipeline.StageLoad, 1e6)

	var buf bytes.Buffer
	printStageTimings(&buf, timings)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], string(buildpipeline.StageLoad)))
	require.True(t, strings.HasPrefix(lines[1], string(buildpipeline.StageWrite)))
}

func TestImageSummary(t *testing.T) {
	img := &image.Image{Kind: "dll", Metadata: make([]byte, 2000), Methods: []image.Method{{}, {}}}
	require.Equal(t, "dll, 2kB, 2 methods, cached", imageSummary(img, true))
	require.Empty(t, imageSummary(nil, false))
}

func TestPrintSessionTimingsPrefixesModules(t *testing.T) {
	a := observ.NewTimer()
	a.End(a.Begin("define"), "")
	b := observ.NewTimer()
	b.End(b.Begin("define"), "")

	var buf bytes.Buffer
	printSessionTimings(&buf, []string{"A.dll", "B.dll"}, []*observ.Timer{a, b})
	out := buf.String()
	require.Contains(t, out, "A.dll/define")
	require.Contains(t, out, "B.dll/define")
	require.Contains(t, out, "total")
}

func TestRingTraceDumpedOnFailure(t *testing.T) {
	t.Cleanup(func() {
		flags := rootCmd.PersistentFlags()
		_ = flags.Set("trace-level", "off")
		_ = flags.Set("trace-mode", "stream")
	})
	missing := filepath.Join(t.TempDir(), "missing.irpk")
	out, err := execute(t, "--trace-level", "phase", "--trace-mode", "ring", "merge", missing)
	require.Error(t, err)
	require.Contains(t, out, "trace: last events before the failure:")
	require.Contains(t, out, "← load (failed)")
}
