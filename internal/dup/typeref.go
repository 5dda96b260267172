package dup

import (
	"ilmerge/internal/diag"
	"ilmerge/internal/ir"
)

// VisitTypeReference maps a type reference into the duplicate graph.
// Scoped types resolve to their duplicates, foreign types pass through, and
// constructed types are rebuilt through the interner only when one of their
// components changed.
func (d *Duplicator) VisitTypeReference(t *ir.Type) *ir.Type {
	if t == nil {
		return nil
	}
	if out, ok := lookup[*ir.Type](d, t); ok {
		return out
	}
	switch t.Kind {
	case ir.TypeParam, ir.TypeMethodParam:
		return t
	case ir.TypeArray, ir.TypePointer, ir.TypeReference:
		elem := d.VisitTypeReference(t.Element)
		if elem == t.Element {
			return t
		}
		return d.types.Rebuild(t, elem, nil, nil)
	case ir.TypeOptModifier, ir.TypeReqModifier:
		elem := d.VisitTypeReference(t.Element)
		mod := d.VisitTypeReference(t.Modifier)
		if elem == t.Element && mod == t.Modifier {
			return t
		}
		return d.types.Rebuild(t, elem, mod, nil)
	case ir.TypeInstance:
		template := d.VisitTypeReference(t.Template)
		changed := template != t.Template
		args := make([]*ir.Type, len(t.TemplateArgs))
		for i, a := range t.TemplateArgs {
			args[i] = d.VisitTypeReference(a)
			changed = changed || args[i] != a
		}
		if !changed {
			return t
		}
		return d.types.Instantiate(template, args...)
	}
	if d.InScope(t.DeclaringType) {
		d.stats.Unresolved++
		if d.opts.Reporter != nil {
			diag.ReportInfo(d.opts.Reporter, diag.DupUnresolvedType, t.FullName(),
				"nested type has no duplicate; keeping the original").Emit()
		}
	}
	return t
}

// VisitMethodReference maps a method reference into the duplicate graph.
// Members of duplicated generic instances are re-specialized, generic method
// instances re-instantiated. A member of a scoped type that has no
// duplicate degrades to the original.
func (d *Duplicator) VisitMethodReference(m *ir.Method) *ir.Method {
	if m == nil {
		return nil
	}
	if out, ok := lookup[*ir.Method](d, m); ok {
		return out
	}
	switch {
	case m.IsGenericInstance():
		base := d.VisitMethodReference(m.Template)
		changed := base != m.Template
		args := make([]*ir.Type, len(m.TemplateArgs))
		for i, a := range m.TemplateArgs {
			args[i] = d.VisitTypeReference(a)
			changed = changed || args[i] != a
		}
		if !changed {
			return m
		}
		return d.types.InstantiateMethod(base, args...)
	case m.Unspecialized != nil:
		owner := d.VisitTypeReference(m.DeclaringType)
		base := d.VisitMethodReference(m.Unspecialized)
		if owner == m.DeclaringType && base == m.Unspecialized {
			return m
		}
		if owner == nil || owner.Kind != ir.TypeInstance {
			d.unresolved(m.FullName(), "specialized owner is not a generic instance; keeping the original")
			return m
		}
		return d.types.SpecializeMethod(owner, base)
	}
	if d.InScope(m.DeclaringType) {
		d.unresolved(m.FullName(), "method of a duplicated type has no duplicate; keeping the original")
	}
	return m
}

// VisitFieldReference maps a field reference into the duplicate graph.
func (d *Duplicator) VisitFieldReference(f *ir.Field) *ir.Field {
	if f == nil {
		return nil
	}
	if out, ok := lookup[*ir.Field](d, f); ok {
		return out
	}
	if f.Unspecialized != nil {
		owner := d.VisitTypeReference(f.DeclaringType)
		base := d.VisitFieldReference(f.Unspecialized)
		if owner == f.DeclaringType && base == f.Unspecialized {
			return f
		}
		if owner == nil || owner.Kind != ir.TypeInstance {
			d.unresolved(f.Name, "specialized owner is not a generic instance; keeping the original")
			return f
		}
		return d.types.SpecializeField(owner, base)
	}
	if d.InScope(f.DeclaringType) {
		d.unresolved(f.DeclaringType.FullName()+"::"+f.Name, "field of a duplicated type has no duplicate; keeping the original")
	}
	return f
}
