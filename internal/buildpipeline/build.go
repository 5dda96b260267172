// Package buildpipeline orchestrates a build: load the input snapshots,
// merge the secondary inputs into the primary module, emit and assemble
// it, and write the image.
package buildpipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ilmerge/internal/diag"
	"ilmerge/internal/driver"
	"ilmerge/internal/dup"
	"ilmerge/internal/emit/debugmap"
	"ilmerge/internal/image"
	"ilmerge/internal/ir"
	"ilmerge/internal/project"
	"ilmerge/internal/trace"
)

// Result captures build artefacts and timings.
type Result struct {
	OutputPath string
	Image      *image.Image
	// Module is the emitted module; nil when the image came from a cache.
	Module  *ir.Module
	Key     project.Digest
	Cached  bool
	Bag     *diag.Bag
	Timings Timings
	Dup     dup.Stats
}

// Build runs every stage for req.
func Build(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	if len(req.Inputs) == 0 {
		return result, project.ErrNoInputs
	}
	if req.Output == "" {
		return result, fmt.Errorf("missing output path")
	}
	tracer := req.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	span := trace.Begin(tracer, trace.ScopeDriver, "build", trace.ParentSpan(ctx))
	span.WithExtra("inputs", strconv.Itoa(len(req.Inputs)))
	defer func() {
		span.WithExtra("cached", strconv.FormatBool(result.Cached)).End("")
	}()
	ctx = trace.WithSpan(ctx, span)

	result.OutputPath = req.Output
	result.Bag = diag.NewBag(req.MaxDiagnostics)
	reporter := diag.NewLockedReporter(diag.BagReporter{Bag: result.Bag})
	files := DisplayNames(req.Root, req.Inputs)
	emitQueued(req.Progress, files)

	fail := func(stage Stage, err error) (Result, error) {
		emitStage(req.Progress, files, stage, StatusError, err, 0)
		return result, err
	}

	// load
	loadStart := time.Now()
	loadSpan := trace.Begin(tracer, trace.ScopePass, string(StageLoad), span.ID())
	inputs, err := readInputs(ctx, req.Inputs, files, req.Progress, reporter)
	if err != nil {
		loadSpan.End("failed")
		return fail(StageLoad, err)
	}
	resources, resourceDigests, err := readResources(req.Resources)
	if err != nil {
		loadSpan.End("failed")
		diag.ReportError(reporter, diag.LoadReadFailed, "", err.Error()).Emit()
		return fail(StageLoad, err)
	}
	result.Key = cacheKey(req, inputs, resourceDigests)

	caches := req.Caches
	if req.DebugMap != "" {
		caches = nil
	}
	if img, ok := caches.Lookup(result.Key, result.Bag); ok {
		loadSpan.End("cached")
		result.Timings.Set(StageLoad, time.Since(loadStart))
		result.Image, result.Cached = img, true
		return finish(ctx, req, files, result)
	}

	prog := ir.NewProgram()
	mods, err := decodeInputs(prog, inputs, req.Progress, reporter)
	loadSpan.End("")
	if err != nil {
		return fail(StageLoad, err)
	}
	result.Timings.Set(StageLoad, time.Since(loadStart))
	for _, f := range files {
		if req.Progress != nil {
			req.Progress.OnEvent(Event{File: f, Stage: StageLoad, Status: StatusDone})
		}
	}
	primary := mods[0]

	// duplicate
	dupStart := time.Now()
	emitStage(req.Progress, files, StageDuplicate, StatusWorking, nil, 0)
	if len(mods) > 1 {
		opts := req.Duplicate
		opts.Reporter = reporter
		opts.Tracer = tracer
		opts.ParentSpan = span.ID()
		d := dup.New(prog.Types, primary, nil, opts)
		d.Merge(mods[1:]...)
		result.Dup = d.Stats()
	}
	applyOverrides(prog, primary, req, resources)
	if err := ResolveEntryPoint(primary); err != nil {
		return fail(StageDuplicate, err)
	}
	result.Timings.Set(StageDuplicate, time.Since(dupStart))
	emitStage(req.Progress, files, StageDuplicate, StatusDone, nil, result.Timings.Duration(StageDuplicate))

	// visit, populate, assemble
	opts := req.Emit
	opts.Reporter = reporter
	opts.Tracer = tracer
	opts.ParentSpan = span.ID()
	var symbols *debugmap.Map
	if req.DebugMap != "" {
		symbols = debugmap.New()
		opts.Symbols = symbols
	}
	obs := &phaseObserver{sink: req.Progress, files: files, timings: &result.Timings}
	sess := driver.Session{Name: primary.Name, Module: primary, Options: opts, Key: result.Key, Observer: obs.OnPhase}
	sres, err := sess.Run(ctx, caches, req.MaxDiagnostics)
	if err != nil {
		return fail(obs.current(), err)
	}
	result.Bag.Merge(sres.Bag)
	result.Module = primary
	result.Image = sres.Image
	if symbols != nil {
		if err := symbols.WriteFile(req.DebugMap); err != nil {
			diag.ReportError(reporter, diag.IOWriteFailed, req.DebugMap, err.Error()).Emit()
			return fail(StageWrite, err)
		}
	}
	return finish(ctx, req, files, result)
}

func finish(ctx context.Context, req *Request, files []string, result Result) (Result, error) {
	if result.Cached {
		for _, stage := range []Stage{StageLoad, StageDuplicate, StageVisit, StagePopulate, StageAssemble} {
			emitStage(req.Progress, files, stage, StatusDone, nil, result.Timings.Duration(stage))
		}
	}
	start := time.Now()
	emitStage(req.Progress, files, StageWrite, StatusWorking, nil, 0)
	w := req.Writer
	if w == nil {
		w = image.BundleWriter{}
	}
	if err := writeOutput(ctx, w, req.Output, result.Image); err != nil {
		diag.ReportError(diag.BagReporter{Bag: result.Bag}, diag.IOWriteFailed, req.Output, err.Error()).Emit()
		emitStage(req.Progress, files, StageWrite, StatusError, err, 0)
		return result, err
	}
	result.Timings.Set(StageWrite, time.Since(start))
	if req.Progress != nil {
		req.Progress.OnEvent(Event{Stage: StageWrite, Status: StatusDone, Elapsed: result.Timings.Duration(StageWrite), Cached: result.Cached})
		for _, f := range files {
			req.Progress.OnEvent(Event{File: f, Stage: StageWrite, Status: StatusDone, Elapsed: result.Timings.Duration(StageWrite), Cached: result.Cached})
		}
	}
	return result, nil
}

// cacheKey hashes the inputs in order with everything else that shapes the
// output.
func cacheKey(req *Request, inputs []input, resources []project.Digest) project.Digest {
	deps := make([]project.Digest, 0, len(inputs)+len(resources)+3)
	for _, in := range inputs {
		deps = append(deps, in.digest)
	}
	deps = append(deps, resources...)
	deps = append(deps, driver.OptionsDigest(req.Emit))
	overrides := fmt.Sprintf("kind=%t/%s module=%s dup=%s/%s", req.KindSet, req.Kind, req.ModuleName,
		req.Duplicate.Mode, req.Duplicate.TemplateParams)
	if a := req.Assembly; a != nil {
		overrides += fmt.Sprintf(" asm=%s/%s/%s/%x/%d/%d", a.Name, a.Version, a.Culture, a.PublicKey, a.Flags, a.HashAlgorithm)
	}
	deps = append(deps, project.Sum([]byte(overrides)))
	return project.Combine(req.Salt, deps...)
}

func applyOverrides(prog *ir.Program, m *ir.Module, req *Request, resources []*ir.Resource) {
	if req.KindSet {
		m.Kind = req.Kind
	}
	if req.ModuleName != "" {
		m.Name = req.ModuleName
	}
	if req.Assembly != nil {
		a := *req.Assembly
		if m.Assembly != nil {
			a.Attributes = m.Assembly.Attributes
			a.Security = m.Assembly.Security
		}
		m.Assembly = &a
	}
	for _, r := range resources {
		prog.Arena.Register(&r.Node)
		m.Resources = append(m.Resources, r)
	}
}

// writeOutput writes img through w into a temporary file next to path and
// renames it into place.
func writeOutput(ctx context.Context, w image.PEWriter, path string, img *image.Image) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".ilmerge-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	if err = w.WriteImage(ctx, img, f); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
