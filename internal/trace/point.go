package trace

import (
	"strconv"
	"time"
)

// Point emits an instant event under parent when the tracer accepts scope.
// Counts are attached as extras.
func Point(t Tracer, scope Scope, name string, parent uint64, counts map[string]int) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	var extra map[string]string
	if len(counts) > 0 {
		extra = make(map[string]string, len(counts))
		for k, v := range counts {
			extra[k] = strconv.Itoa(v)
		}
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		GID:      goroutineID(),
		Name:     name,
		Extra:    extra,
	})
}
