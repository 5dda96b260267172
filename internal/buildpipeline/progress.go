package buildpipeline

import (
	"ilmerge/internal/driver"
)

// phaseObserver turns session phases into pipeline stage events. The
// definition walk is reported as part of the visit stage.
type phaseObserver struct {
	sink    ProgressSink
	files   []string
	timings *Timings
	stage   Stage
}

func stageOf(phase string) (Stage, bool) {
	switch phase {
	case "define", "visit":
		return StageVisit, true
	case "populate":
		return StagePopulate, true
	case driver.PhaseAssemble:
		return StageAssemble, true
	default:
		return "", false
	}
}

// OnPhase updates progress and timings from a session phase event.
func (p *phaseObserver) OnPhase(ev driver.PhaseEvent) {
	stage, ok := stageOf(ev.Name)
	if !ok {
		return
	}
	if ev.Status == driver.PhaseStart {
		if p.stage != stage {
			p.stage = stage
			emitStage(p.sink, p.files, stage, StatusWorking, nil, 0)
		}
		return
	}
	p.timings.Add(stage, ev.Elapsed)
	if ev.Name == "define" {
		return
	}
	emitStage(p.sink, p.files, stage, StatusDone, nil, p.timings.Duration(stage))
}

// current is the stage in progress, for error events.
func (p *phaseObserver) current() Stage {
	if p.stage == "" {
		return StageVisit
	}
	return p.stage
}
