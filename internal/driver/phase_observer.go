package driver

import "time"

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a session phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a phase boundary of one session.
type PhaseEvent struct {
	Session string
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted by Session.Run. EmitAll calls
// it from several goroutines.
type PhaseObserver func(PhaseEvent)

func (o PhaseObserver) start(session, name string) {
	if o != nil {
		o(PhaseEvent{Session: session, Name: name, Status: PhaseStart})
	}
}

func (o PhaseObserver) end(session, name string, elapsed time.Duration) {
	if o != nil {
		o(PhaseEvent{Session: session, Name: name, Status: PhaseEnd, Elapsed: elapsed})
	}
}
