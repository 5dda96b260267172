package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	if err := tm.Time("load", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := tm.Time("emit", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(report.Phases))
	}
	if report.Phases[1].Note != "failed" {
		t.Fatalf("expected failed note, got %q", report.Phases[1].Note)
	}
	if !strings.Contains(tm.Summary(), "load") {
		t.Fatalf("summary misses phase name:\n%s", tm.Summary())
	}
}

func TestTimerMerge(t *testing.T) {
	session := NewTimer()
	session.End(session.Begin("visit"), "")

	build := NewTimer()
	build.Merge("app.irpk", session)
	build.Merge("", nil)

	report := build.Report()
	if len(report.Phases) != 1 || report.Phases[0].Name != "app.irpk/visit" {
		t.Fatalf("unexpected phases: %+v", report.Phases)
	}
	if build.Total() != session.Total() {
		t.Fatalf("total mismatch: %v vs %v", build.Total(), session.Total())
	}
}
