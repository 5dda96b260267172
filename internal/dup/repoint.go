package dup

import (
	"ilmerge/internal/ir"
	"ilmerge/internal/trace"
)

// Merge duplicates every type of the inputs into the session's target
// module and repoints the target's own references at the duplicates.
// Embedded resources of the inputs are appended to the target.
func (d *Duplicator) Merge(inputs ...*ir.Module) {
	span := trace.Begin(d.opts.Tracer, trace.ScopeModule, "merge:"+d.target.Name, d.opts.ParentSpan)
	roots := make([]any, len(inputs))
	for i, in := range inputs {
		roots[i] = in
	}
	d.FindTypesToBeDuplicated(roots...)
	d.Fill()
	for _, in := range inputs {
		for _, r := range in.Resources {
			nr := *r
			d.record(r, &nr, &nr.Node)
			d.target.Resources = append(d.target.Resources, &nr)
		}
	}
	d.Repoint(d.target)
	d.traceStats(span)
}

// Repoint rewrites, in place, the nodes of m that this session did not
// create so that their references to duplicated types and members point at
// the duplicates. Merging uses it on the primary module after the secondary
// modules were duplicated into it.
func (d *Duplicator) Repoint(m *ir.Module) {
	d.Fill()
	for _, t := range m.AllTypes() {
		if d.IsDuplicate(t) {
			continue
		}
		d.repointType(t)
	}
	m.Attributes = d.attributes(m.Attributes)
	if m.Assembly != nil {
		m.Assembly.Attributes = d.attributes(m.Assembly.Attributes)
		m.Assembly.Security = d.security(m.Assembly.Security)
	}
	m.EntryPoint = d.VisitMethodReference(m.EntryPoint)
}

func (d *Duplicator) repointType(t *ir.Type) {
	t.BaseType = d.VisitTypeReference(t.BaseType)
	for i, it := range t.Interfaces {
		t.Interfaces[i] = d.VisitTypeReference(it)
	}
	for _, p := range t.TemplateParams {
		for i, c := range p.Constraints {
			p.Constraints[i] = d.VisitTypeReference(c)
		}
	}
	t.Attributes = d.attributes(t.Attributes)
	for _, f := range t.Fields {
		f.Type = d.VisitTypeReference(f.Type)
		f.Attributes = d.attributes(f.Attributes)
	}
	for _, m := range t.Methods {
		d.repointMethod(m)
	}
	for _, p := range t.Properties {
		p.Type = d.VisitTypeReference(p.Type)
		for i, pt := range p.Params {
			p.Params[i] = d.VisitTypeReference(pt)
		}
		p.Attributes = d.attributes(p.Attributes)
	}
	for _, e := range t.Events {
		e.Type = d.VisitTypeReference(e.Type)
		e.Attributes = d.attributes(e.Attributes)
	}
}

func (d *Duplicator) repointMethod(m *ir.Method) {
	m.ReturnType = d.VisitTypeReference(m.ReturnType)
	m.ReturnAttributes = d.attributes(m.ReturnAttributes)
	for _, p := range m.Params {
		p.Type = d.VisitTypeReference(p.Type)
		p.Attributes = d.attributes(p.Attributes)
	}
	for i, o := range m.Overrides {
		m.Overrides[i] = d.VisitMethodReference(o)
	}
	m.Attributes = d.attributes(m.Attributes)
	for _, l := range m.Locals {
		d.alias(l, &l.Node)
		l.Type = d.VisitTypeReference(l.Type)
	}
	if m.Body == nil {
		return
	}
	d.alias(m.Body, &m.Body.Node)
	m.Body.Walk(func(s *ir.Stmt) bool {
		for _, b := range s.Blocks() {
			d.alias(b, &b.Node)
		}
		switch data := s.Data.(type) {
		case ir.BranchData:
			if data.Target != nil {
				d.alias(data.Target, &data.Target.Node)
			}
		case ir.SwitchData:
			for _, b := range data.Targets {
				d.alias(b, &b.Node)
			}
		case ir.TryData:
			for _, c := range data.Catches {
				if c.Variable != nil {
					d.alias(c.Variable, &c.Variable.Node)
				}
			}
		}
		return true
	})
	d.blockDef(m.Body)
}

// alias maps a node to itself so that rewriting keeps its identity.
func (d *Duplicator) alias(n ir.Identified, node *ir.Node) {
	d.arena.Register(node)
	if _, ok := d.dupFor[node.ID]; !ok {
		d.dupFor[node.ID] = n
	}
}
