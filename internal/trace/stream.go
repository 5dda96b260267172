package trace

import (
	"io"
	"os"
	"sync"
)

// StreamTracer writes each accepted event to w as it arrives. Write errors
// are dropped: tracing never fails a build.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	wrote  bool
	closed bool
}

// NewStreamTracer starts a stream on w. The Chrome format opens its event
// array here and closes it in Close.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatChrome {
		_, _ = io.WriteString(w, "{\"traceEvents\":[\n")
	}
	return &StreamTracer{w: w, level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	stamped := *ev
	stamped.Seq = NextSeq()
	data := FormatEvent(&stamped, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.format == FormatChrome && t.wrote {
		_, _ = io.WriteString(t.w, ",\n")
	}
	t.wrote = true
	_, _ = t.w.Write(data)
}

// Flush flushes w when it buffers.
func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close ends the Chrome array, flushes, and closes w unless it is a standard
// stream. Later calls do nothing.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	if t.format == FormatChrome {
		_, _ = io.WriteString(t.w, "\n]}\n")
	}
	t.mu.Unlock()

	if err := t.Flush(); err != nil {
		return err
	}
	if t.w == io.Writer(os.Stderr) || t.w == io.Writer(os.Stdout) {
		return nil
	}
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
