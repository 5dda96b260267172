package driver

import (
	"context"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"ilmerge/internal/ir"
	"ilmerge/internal/project"
	"ilmerge/internal/trace"
)

// EmitOptions configures EmitAll.
type EmitOptions struct {
	// Jobs bounds the number of concurrent sessions; zero means GOMAXPROCS.
	Jobs           int
	MaxDiagnostics int
	Caches         *Caches
}

// EmitAll runs the sessions in parallel. Results are in session order. The
// first failing session cancels the others and its error is returned.
func EmitAll(ctx context.Context, sessions []Session, opts EmitOptions) ([]*SessionResult, error) {
	if len(sessions) == 0 {
		return nil, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "emit-all", trace.ParentSpan(ctx))
	span.WithExtra("sessions", strconv.Itoa(len(sessions))).WithExtra("jobs", strconv.Itoa(jobs))
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)

	// each goroutine writes only its own index
	results := make([]*SessionResult, len(sessions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(sessions)))
	for i := range sessions {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res, err := sessions[i].Run(gctx, opts.Caches, opts.MaxDiagnostics)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// SessionsFor creates one session per module, sharing base options. A
// non-zero base key is extended with each module name.
func SessionsFor(mods []*ir.Module, base Session) []Session {
	out := make([]Session, len(mods))
	for i, m := range mods {
		s := base
		s.Name = m.Name
		s.Module = m
		if !base.Key.IsZero() {
			s.Key = project.Combine(base.Key, project.Sum([]byte(m.Name)))
		}
		out[i] = s
	}
	return out
}
