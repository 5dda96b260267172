package dup

import "ilmerge/internal/ir"

func (d *Duplicator) fillType(t, out *ir.Type) {
	out.BaseType = d.VisitTypeReference(t.BaseType)
	out.Interfaces = d.typeList(t.Interfaces)
	out.Attributes = d.attributes(t.Attributes)
	out.Security = d.security(t.Security)
}

func (d *Duplicator) fillField(f, out *ir.Field) {
	out.Type = d.VisitTypeReference(f.Type)
	out.Default = constant(f.Default)
	out.Marshal = marshal(f.Marshal)
	out.Attributes = d.attributes(f.Attributes)
}

func (d *Duplicator) fillMethod(m, out *ir.Method) {
	out.ReturnType = d.VisitTypeReference(m.ReturnType)
	out.ReturnAttributes = d.attributes(m.ReturnAttributes)
	out.ReturnMarshal = marshal(m.ReturnMarshal)
	for i, p := range m.Params {
		np := out.Params[i]
		np.Type = d.VisitTypeReference(p.Type)
		np.Default = constant(p.Default)
		np.Marshal = marshal(p.Marshal)
		np.Attributes = d.attributes(p.Attributes)
	}
	for _, l := range m.Locals {
		out.Locals = append(out.Locals, d.local(l))
	}
	for _, o := range m.Overrides {
		out.Overrides = append(out.Overrides, d.VisitMethodReference(o))
	}
	out.Attributes = d.attributes(m.Attributes)
	out.Security = d.security(m.Security)
	if m.Body != nil {
		out.Body = d.blockDef(m.Body)
	}
}

func (d *Duplicator) fillProperty(p, out *ir.Property) {
	out.Type = d.VisitTypeReference(p.Type)
	out.Params = d.typeList(p.Params)
	out.Getter = d.VisitMethodReference(p.Getter)
	out.Setter = d.VisitMethodReference(p.Setter)
	for _, o := range p.Others {
		out.Others = append(out.Others, d.VisitMethodReference(o))
	}
	out.Default = constant(p.Default)
	out.Attributes = d.attributes(p.Attributes)
}

func (d *Duplicator) fillEvent(e, out *ir.Event) {
	out.Type = d.VisitTypeReference(e.Type)
	out.Adder = d.VisitMethodReference(e.Adder)
	out.Remover = d.VisitMethodReference(e.Remover)
	out.Raiser = d.VisitMethodReference(e.Raiser)
	for _, o := range e.Others {
		out.Others = append(out.Others, d.VisitMethodReference(o))
	}
	out.Attributes = d.attributes(e.Attributes)
}

func (d *Duplicator) typeList(ts []*ir.Type) []*ir.Type {
	if len(ts) == 0 {
		return nil
	}
	out := make([]*ir.Type, len(ts))
	for i, t := range ts {
		out[i] = d.VisitTypeReference(t)
	}
	return out
}
