package trace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

// NextSeq returns the next global event sequence number.
func NextSeq() uint64 { return seq.Add(1) }

// NextSpanID returns a fresh span id; ids start at 1.
func NextSpanID() uint64 { return spanIDs.Add(1) }

// goroutineID parses the id out of the "goroutine N [" stack header.
func goroutineID() uint64 {
	var buf [64]byte
	line := buf[:runtime.Stack(buf[:], false)]
	line, ok := bytes.CutPrefix(line, []byte("goroutine "))
	if !ok {
		return 0
	}
	if i := bytes.IndexByte(line, ' '); i >= 0 {
		line = line[:i]
	}
	id, _ := strconv.ParseUint(string(line), 10, 64)
	return id
}

// Span is an open begin/end pair. A span whose scope the tracer filters is
// inert: every method on it is a no-op and its id is zero.
type Span struct {
	tracer  Tracer
	begin   Event
	started time.Time
	extra   map[string]string
}

// Begin emits the begin event of a span under parent (zero for a root).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{}
	}
	s := &Span{
		tracer:  t,
		started: time.Now(),
		begin: Event{
			Kind:     KindSpanBegin,
			Scope:    scope,
			SpanID:   NextSpanID(),
			ParentID: parent,
			GID:      goroutineID(),
			Name:     name,
		},
	}
	ev := s.begin
	ev.Time, ev.Seq = s.started, NextSeq()
	t.Emit(&ev)
	return s
}

// End emits the end event with detail and the collected extras, and returns
// the span's duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil {
		return 0
	}
	ev := s.begin
	ev.Kind = KindSpanEnd
	ev.Time, ev.Seq = time.Now(), NextSeq()
	ev.Detail, ev.Extra = detail, s.extra
	s.tracer.Emit(&ev)
	return ev.Time.Sub(s.started)
}

// WithExtra records key=value for the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.tracer == nil {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

// ID returns the span id, zero for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.begin.SpanID
}
