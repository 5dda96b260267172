package buildpipeline

import (
	"fmt"
	"strings"

	"ilmerge/internal/ir"
)

// ResolveEntryPoint picks the entry point of an executable that names none:
// the single static method called Main. Libraries are left alone, as is an
// executable without any candidate; emission warns about that one.
func ResolveEntryPoint(m *ir.Module) error {
	if m == nil {
		return fmt.Errorf("missing module")
	}
	if m.Kind != ir.ModuleEXE || m.EntryPoint != nil {
		return nil
	}
	var candidates []*ir.Method
	for _, t := range m.AllTypes() {
		if len(t.TemplateParams) > 0 {
			continue
		}
		for _, meth := range t.Methods {
			if meth.Name == "Main" && meth.IsStatic() && len(meth.TemplateParams) == 0 {
				candidates = append(candidates, meth)
			}
		}
	}
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		m.EntryPoint = candidates[0]
		return nil
	default:
		return fmt.Errorf("multiple entry point candidates found in module %q: %s", m.Name, formatEntryPointList(candidates))
	}
}

func formatEntryPointList(methods []*ir.Method) string {
	parts := make([]string, 0, len(methods))
	for _, m := range methods {
		parts = append(parts, m.FullName())
	}
	return strings.Join(parts, ", ")
}
