package trace

import "context"

type ctxKey uint8

const (
	tracerKey ctxKey = iota
	spanKey
)

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// WithTracer attaches t to ctx; a nil t attaches Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey, t)
}

// WithSpan makes s the parent of spans begun from the returned context.
// A disabled span leaves ctx unchanged.
func WithSpan(ctx context.Context, s *Span) context.Context {
	if ctx == nil || s.ID() == 0 {
		return ctx
	}
	return context.WithValue(ctx, spanKey, s.ID())
}

// ParentSpan returns the id of the span attached by WithSpan, or zero.
func ParentSpan(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(spanKey).(uint64)
	return id
}
