package ui

import (
	"strings"
	"testing"

	"ilmerge/internal/buildpipeline"
)

func TestApplyEventTracksInputs(t *testing.T) {
	m := NewProgressModel("build", []string{"app.irpk", "lib.irpk"}, nil).(*progressModel)

	m.applyEvent(buildpipeline.Event{File: "app.irpk", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusWorking})
	if got := m.items[0].status; got != "loading" {
		t.Fatalf("status = %q, want loading", got)
	}
	m.applyEvent(buildpipeline.Event{File: "app.irpk", Stage: buildpipeline.StageVisit, Status: buildpipeline.StatusDone})
	if got := m.percent(); got <= 0 || got >= 1 {
		t.Fatalf("percent = %v, want partial progress", got)
	}
	for _, f := range []string{"app.irpk", "lib.irpk"} {
		m.applyEvent(buildpipeline.Event{File: f, Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusDone, Cached: true})
	}
	if got := m.percent(); got != 1 {
		t.Fatalf("percent = %v, want 1", got)
	}
	if got := m.items[1].status; got != "cached" {
		t.Fatalf("status = %q, want cached", got)
	}
	m.applyEvent(buildpipeline.Event{File: "other", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusError})
}

func TestViewShowsStageAndInputs(t *testing.T) {
	m := NewProgressModel("build", []string{"app.irpk"}, nil).(*progressModel)
	m.applyEvent(buildpipeline.Event{Stage: buildpipeline.StageDuplicate, Status: buildpipeline.StatusWorking})
	m.applyEvent(buildpipeline.Event{File: "app.irpk", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusError})
	view := m.View()
	for _, want := range []string{"build (merging)", "error", "app.irpk"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Fatalf("truncate = %q", got)
	}
}
