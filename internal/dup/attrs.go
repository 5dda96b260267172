package dup

import "ilmerge/internal/ir"

func (d *Duplicator) attributes(attrs []*ir.Attribute) []*ir.Attribute {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]*ir.Attribute, len(attrs))
	for i, a := range attrs {
		na := &ir.Attribute{Constructor: d.VisitMethodReference(a.Constructor)}
		if a.Args != nil {
			na.Args = make([]ir.AttrArg, len(a.Args))
			for j, arg := range a.Args {
				na.Args[j] = d.attrArg(arg)
			}
		}
		for _, n := range a.Named {
			n.Arg = d.attrArg(n.Arg)
			na.Named = append(na.Named, n)
		}
		out[i] = na
	}
	return out
}

func (d *Duplicator) attrArg(a ir.AttrArg) ir.AttrArg {
	out := ir.AttrArg{Type: d.VisitTypeReference(a.Type)}
	switch v := a.Value.(type) {
	case *ir.Type:
		out.Value = d.VisitTypeReference(v)
	case []ir.AttrArg:
		elems := make([]ir.AttrArg, len(v))
		for i, e := range v {
			elems[i] = d.attrArg(e)
		}
		out.Value = elems
	case ir.AttrArg:
		out.Value = d.attrArg(v)
	default:
		out.Value = a.Value
	}
	return out
}

func (d *Duplicator) security(sec []*ir.SecurityAttribute) []*ir.SecurityAttribute {
	if len(sec) == 0 {
		return nil
	}
	out := make([]*ir.SecurityAttribute, len(sec))
	for i, s := range sec {
		out[i] = &ir.SecurityAttribute{Action: s.Action, Permissions: d.attributes(s.Permissions)}
	}
	return out
}

func constant(c *ir.Constant) *ir.Constant {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}

func marshal(m *ir.MarshalInfo) *ir.MarshalInfo {
	if m == nil {
		return nil
	}
	mm := *m
	return &mm
}
