// Package driver runs emission sessions: one module in, one assembled image
// out. Sessions are independent; each owns its token allocator, so EmitAll
// can run them in parallel over modules of one program.
package driver

import (
	"context"
	"fmt"
	"time"

	"ilmerge/internal/diag"
	"ilmerge/internal/emit"
	"ilmerge/internal/image"
	"ilmerge/internal/ir"
	"ilmerge/internal/observ"
	"ilmerge/internal/project"
	"ilmerge/internal/trace"
)

// Phase names reported besides the emitter's own passes.
const (
	PhaseCache    = "cache"
	PhaseAssemble = "assemble"
)

// Session describes one emission.
type Session struct {
	Name    string
	Module  *ir.Module
	Options emit.Options
	// Key identifies the session inputs in the caches; the zero key disables
	// caching for this session.
	Key      project.Digest
	Observer PhaseObserver
}

// SessionResult is the outcome of a session. Result is nil when the image
// came from a cache.
type SessionResult struct {
	Name   string
	Image  *image.Image
	Result *emit.Result
	Bag    *diag.Bag
	Timer  *observ.Timer
	Cached bool
}

// Caches are consulted in order: memory first, then disk.
type Caches struct {
	Memory *ImageCache
	Disk   *DiskCache
}

// Lookup returns the image cached under key. Unreadable disk entries are
// reported to bag and treated as misses.
func (c *Caches) Lookup(key project.Digest, bag *diag.Bag) (*image.Image, bool) {
	if c == nil || key.IsZero() {
		return nil, false
	}
	if img, ok := c.Memory.Get(key); ok {
		return img, true
	}
	img, ok, err := c.Disk.Get(key)
	if err != nil {
		diag.ReportWarning(diag.BagReporter{Bag: bag}, diag.IOCacheCorrupt, key.String(),
			fmt.Sprintf("ignoring cache entry: %v", err)).Emit()
		return nil, false
	}
	if ok {
		c.Memory.Put(key, img)
	}
	return img, ok
}

// Store records img under key in every cache layer.
func (c *Caches) Store(key project.Digest, img *image.Image, bag *diag.Bag) {
	if c == nil || key.IsZero() {
		return
	}
	c.Memory.Put(key, img)
	if err := c.Disk.Put(key, img); err != nil {
		diag.ReportWarning(diag.BagReporter{Bag: bag}, diag.IOWriteFailed, key.String(),
			fmt.Sprintf("failed to store cache entry: %v", err)).Emit()
	}
}

// OptionsDigest hashes the emission options that change the output, for
// use in cache keys.
func OptionsDigest(opts emit.Options) project.Digest {
	s := fmt.Sprintf("schema=%d core=%s long=%t init=%t version=%s il=%d data=%d mvid=%s symbols=%t",
		diskCacheSchemaVersion, opts.CoreLibrary, opts.NoShortBranches, opts.InitLocals,
		opts.MetadataVersion, opts.ILBase, opts.DataBase, opts.Mvid, opts.Symbols != nil)
	return project.Sum([]byte(s))
}

// Run emits and assembles the session's module. Diagnostics go to the
// returned bag unless the options carry a reporter of their own.
func (s *Session) Run(ctx context.Context, caches *Caches, maxDiagnostics int) (*SessionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := s.Name
	if name == "" && s.Module != nil {
		name = s.Module.Name
	}
	out := &SessionResult{Name: name, Bag: diag.NewBag(maxDiagnostics), Timer: observ.NewTimer()}
	// a symbol writer must see the whole emission
	if s.Options.Symbols != nil {
		caches = nil
	}

	idx := out.Timer.Begin(PhaseCache)
	s.Observer.start(name, PhaseCache)
	start := time.Now()
	img, hit := caches.Lookup(s.Key, out.Bag)
	s.Observer.end(name, PhaseCache, time.Since(start))
	if hit {
		out.Timer.End(idx, "hit")
		out.Image, out.Cached = img, true
		return out, nil
	}
	out.Timer.End(idx, "miss")

	opts := s.Options
	if opts.ParentSpan == 0 {
		opts.ParentSpan = trace.ParentSpan(ctx)
	}
	if opts.Reporter == nil {
		opts.Reporter = diag.BagReporter{Bag: out.Bag}
	}
	outer := opts.OnPass
	passes := make(map[string]int, 3)
	opts.OnPass = func(ev emit.PassEvent) {
		if !ev.Done {
			passes[ev.Pass] = out.Timer.Begin(ev.Pass)
			s.Observer.start(name, ev.Pass)
		} else {
			out.Timer.End(passes[ev.Pass], "")
			s.Observer.end(name, ev.Pass, ev.Elapsed)
		}
		if outer != nil {
			outer(ev)
		}
	}
	res, err := emit.Emit(s.Module, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	out.Result = res

	s.Observer.start(name, PhaseAssemble)
	start = time.Now()
	err = out.Timer.Time(PhaseAssemble, func() error {
		var aerr error
		out.Image, aerr = image.Assemble(res)
		return aerr
	})
	s.Observer.end(name, PhaseAssemble, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	caches.Store(s.Key, out.Image, out.Bag)
	return out, nil
}
