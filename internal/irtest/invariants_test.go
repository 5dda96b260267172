package irtest

import (
	"strings"
	"testing"

	"ilmerge/internal/ir"
)

func TestWorldSatisfiesInvariants(t *testing.T) {
	w := NewWorld("App")
	c := w.Class(w.App, "App", "Program", nil)
	w.Nested(c, "Inner")
	m := w.Method(c, "Main", ir.MethodStatic, nil)
	w.Body(m, ir.Return(nil))

	for _, mod := range []*ir.Module{w.Core.Module, w.App} {
		if err := CheckInvariants(mod); err != nil {
			t.Fatalf("%s: %v", mod.Name, err)
		}
	}
}

func TestCheckInvariantsDetectsBrokenLinks(t *testing.T) {
	w := NewWorld("App")
	c := w.Class(w.App, "App", "C", nil)
	f := w.Field(c, "x", w.Core.Int32, 0)
	f.DeclaringType = w.Core.Object

	err := CheckInvariants(w.App)
	if err == nil || !strings.Contains(err.Error(), "wrong declaring type") {
		t.Fatalf("expected declaring type error, got %v", err)
	}
}
