package trace

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStreamTracerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	span := Begin(tr, ScopePass, "visit", 0)
	Point(tr, ScopeNode, "rows", span.ID(), map[string]int{"TypeDef": 3})
	span.WithExtra("tables", "12").End("ok")

	out := buf.String()
	if !strings.Contains(out, "→ visit") || !strings.Contains(out, "← visit (ok) {tables=12}") {
		t.Fatalf("missing span events:\n%s", out)
	}
	if strings.Contains(out, "rows") {
		t.Fatalf("node scope must be filtered at phase level:\n%s", out)
	}
}

func TestRingTracerKeepsLastEvents(t *testing.T) {
	tr := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(tr, ScopeNode, name, 0, nil)
	}
	snap := tr.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestChromeStreamIsAnArray(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatChrome)
	Begin(tr, ScopePass, "populate", 0).End("")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "{\"traceEvents\":[") || !strings.HasSuffix(out, "]}\n") {
		t.Fatalf("bad chrome envelope:\n%s", out)
	}
	if strings.Count(out, "\"ph\":") != 2 {
		t.Fatalf("expected begin and end events:\n%s", out)
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("empty context must yield Nop")
	}
	tr := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), tr)
	if FromContext(ctx) != Tracer(tr) {
		t.Fatalf("tracer not propagated")
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeModule, false},
		{LevelDetail, ScopeModule, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
		{Level(9), ScopeDriver, false},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestParseNamesIgnoreCase(t *testing.T) {
	if l, err := ParseLevel(" Detail "); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseLevel("verbose"); err == nil || !strings.Contains(err.Error(), "off|error|phase|detail|debug") {
		t.Fatalf("ParseLevel(verbose) error = %v", err)
	}
	if m, err := ParseMode("BOTH"); err != nil || m != ModeBoth || m.String() != "both" {
		t.Fatalf("ParseMode = %v, %v", m, err)
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Fatalf("ParseMode(disk) should fail")
	}
}

func TestNewPicksFormatFromPath(t *testing.T) {
	for path, want := range map[string]Format{
		"-":               FormatText,
		"out.ndjson":      FormatNDJSON,
		"out.chrome.json": FormatChrome,
		"out.trace":       FormatText,
	} {
		if got := formatForPath(path); got != want {
			t.Errorf("formatForPath(%q) = %v, want %v", path, got, want)
		}
	}
	tr, err := New(Config{Level: LevelOff, Mode: ModeStream})
	if err != nil || tr != Nop {
		t.Fatalf("LevelOff must give Nop, got %v, %v", tr, err)
	}
	if _, err := New(Config{Level: LevelPhase}); err == nil {
		t.Fatalf("missing mode should fail")
	}
}

func TestSpanContextNesting(t *testing.T) {
	tr := NewRingTracer(8, LevelPhase)
	ctx := WithTracer(context.Background(), tr)
	if ParentSpan(ctx) != 0 {
		t.Fatalf("no span attached yet")
	}
	outer := Begin(tr, ScopeDriver, "build", ParentSpan(ctx))
	ctx = WithSpan(ctx, outer)
	inner := Begin(FromContext(ctx), ScopePass, "load", ParentSpan(ctx))
	inner.End("")
	outer.WithExtra("inputs", "2").End("")

	snap := tr.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("want 4 events, got %+v", snap)
	}
	if snap[1].ParentID != outer.ID() || snap[1].Name != "load" {
		t.Fatalf("load must nest under build: %+v", snap[1])
	}
	if snap[3].Kind != KindSpanEnd || snap[3].Extra["inputs"] != "2" {
		t.Fatalf("build end lost its extras: %+v", snap[3])
	}

	// a filtered span is inert and leaves the context alone
	node := Begin(tr, ScopeNode, "rows", outer.ID())
	if node.ID() != 0 || node.End("") != 0 {
		t.Fatalf("filtered span must be inert")
	}
	if ParentSpan(WithSpan(ctx, node)) != outer.ID() {
		t.Fatalf("inert span must not replace the parent")
	}
}

type failingTracer struct{ nopTracer }

func (failingTracer) Flush() error { return errors.New("flush failed") }

func TestMultiTracerJoinsErrors(t *testing.T) {
	ring := NewRingTracer(2, LevelPhase)
	m := NewMultiTracer(LevelPhase, ring, failingTracer{}, failingTracer{})
	Begin(m, ScopeDriver, "build", 0)
	if len(ring.Snapshot()) != 1 {
		t.Fatalf("event not forwarded")
	}
	err := m.Flush()
	if err == nil || strings.Count(err.Error(), "flush failed") != 2 {
		t.Fatalf("Flush() = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
}

func TestHeartbeatBeatsUntilStopped(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatalf("disabled tracer must not beat")
	}
	ring := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(ring, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(ring.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	snap := ring.Snapshot()
	if len(snap) == 0 || snap[0].Kind != KindHeartbeat || snap[0].Detail != "#1" {
		t.Fatalf("unexpected heartbeat events %+v", snap)
	}
}

func TestRingDumpOldestFirst(t *testing.T) {
	tr := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(tr, ScopeNode, name, 0, nil)
	}
	var buf bytes.Buffer
	if err := tr.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "• a") || strings.Index(out, "• b") > strings.Index(out, "• c") {
		t.Fatalf("bad dump order:\n%s", out)
	}
}
