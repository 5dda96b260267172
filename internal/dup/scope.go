package dup

import (
	"fmt"

	"ilmerge/internal/diag"
	"ilmerge/internal/ir"
)

// FindTypesToBeDuplicated walks the roots (modules, types or methods) and
// marks every type they declare as in scope. Each newly scoped type gets a
// stub, as do its members, before anything is filled, so the whole scope
// set is known up front and cyclic references resolve to the stubs.
func (d *Duplicator) FindTypesToBeDuplicated(roots ...any) {
	for _, r := range roots {
		switch r := r.(type) {
		case *ir.Module:
			for _, t := range r.Types {
				d.scopeType(t, nil)
			}
		case *ir.Type:
			d.scopeType(r, nil)
		case *ir.Method:
			if _, ok := d.dupFor[r.ID]; !ok {
				owner := d.targetType
				if owner == nil {
					owner = r.DeclaringType
				}
				d.stubMethod(r, owner)
			}
		default:
			panic(fmt.Sprintf("dup: unsupported root %T", r))
		}
	}
}

// scopeType registers t and its nested types. outer is the duplicate of the
// declaring type when it is in scope.
func (d *Duplicator) scopeType(t *ir.Type, outer *ir.Type) *ir.Type {
	if t == nil || !t.Kind.IsNominal() {
		return nil
	}
	if d.InScope(t) {
		out, _ := lookup[*ir.Type](d, t)
		return out
	}
	d.scope[t.ID] = t

	out := &ir.Type{
		Kind:       t.Kind,
		Namespace:  t.Namespace,
		Name:       t.Name,
		Flags:      t.Flags,
		Code:       t.Code,
		ParamFlags: t.ParamFlags,
	}
	if t.Layout != nil {
		layout := *t.Layout
		out.Layout = &layout
	}
	d.record(t, out, &out.Node)
	d.stats.Types++
	d.attach(t, out, outer)

	if d.opts.Mode == ModeRecordTemplate {
		out.Template = t
	}
	out.TemplateParams = d.templateParams(t.TemplateParams, func(p *ir.Type) {
		p.DeclaringType = out
	})

	for _, f := range t.Fields {
		out.Fields = append(out.Fields, d.stubField(f, out))
	}
	for _, m := range t.Methods {
		out.Methods = append(out.Methods, d.stubMethod(m, out))
	}
	for _, p := range t.Properties {
		out.Properties = append(out.Properties, d.stubProperty(p, out))
	}
	for _, e := range t.Events {
		out.Events = append(out.Events, d.stubEvent(e, out))
	}
	for _, n := range t.NestedTypes {
		out.NestedTypes = append(out.NestedTypes, d.scopeType(n, out))
	}

	d.pending = append(d.pending, filler{orig: t, fill: func() { d.fillType(t, out) }})
	return out
}

// attach places a scoped type's stub: under its duplicated declaring type,
// under the target type, or at the top level of the target module.
func (d *Duplicator) attach(t, out, outer *ir.Type) {
	switch {
	case outer != nil:
		out.DeclaringType = outer
	case d.targetType != nil:
		out.DeclaringType = d.targetType
		out.Flags = nestedVisibility(out.Flags)
		d.targetType.NestedTypes = append(d.targetType.NestedTypes, out)
	default:
		out.Module = d.target
		if out.Module == nil {
			out.Module = t.HomeModule()
		}
		if t.DeclaringType != nil {
			out.Flags = topLevelVisibility(out.Flags)
		}
		if d.target != nil {
			d.checkConflict(out)
			d.target.Types = append(d.target.Types, out)
		}
	}
}

func (d *Duplicator) checkConflict(out *ir.Type) {
	if d.targetNames == nil {
		d.targetNames = make(map[string]struct{}, len(d.target.Types))
		for _, existing := range d.target.Types {
			d.targetNames[existing.FullName()] = struct{}{}
		}
	}
	name := out.FullName()
	if _, taken := d.targetNames[name]; taken && d.opts.Reporter != nil {
		diag.ReportWarning(d.opts.Reporter, diag.DupTypeConflict, name,
			fmt.Sprintf("type %s already exists in %s", name, d.target.Name)).Emit()
	}
	d.targetNames[name] = struct{}{}
}

func nestedVisibility(f ir.TypeFlags) ir.TypeFlags {
	vis := f & ir.TypeVisibilityMask
	f &^= ir.TypeVisibilityMask
	switch vis {
	case ir.TypePublic:
		return f | ir.TypeNestedPublic
	case ir.TypeNotPublic:
		return f | ir.TypeNestedAssembly
	}
	return f | vis
}

func topLevelVisibility(f ir.TypeFlags) ir.TypeFlags {
	vis := f & ir.TypeVisibilityMask
	f &^= ir.TypeVisibilityMask
	if vis == ir.TypeNestedPublic || vis == ir.TypePublic {
		return f | ir.TypePublic
	}
	return f | ir.TypeNotPublic
}

// templateParams copies or shares a generic parameter list according to the
// policy. Copies are registered so that references resolve to them; own
// sets the owner link of each copy.
func (d *Duplicator) templateParams(params []*ir.Type, own func(*ir.Type)) []*ir.Type {
	if len(params) == 0 {
		return nil
	}
	if !d.opts.copyTemplateParams() {
		return params
	}
	out := make([]*ir.Type, len(params))
	for i, p := range params {
		np := &ir.Type{
			Kind:       p.Kind,
			Name:       p.Name,
			ParamIndex: p.ParamIndex,
			ParamFlags: p.ParamFlags,
		}
		d.record(p, np, &np.Node)
		own(np)
		out[i] = np
		orig := p
		d.pending = append(d.pending, filler{orig: p, fill: func() {
			np.Constraints = d.typeList(orig.Constraints)
			np.Attributes = d.attributes(orig.Attributes)
		}})
	}
	return out
}

func (d *Duplicator) stubField(f *ir.Field, owner *ir.Type) *ir.Field {
	out := &ir.Field{
		Name:          f.Name,
		Flags:         f.Flags,
		DeclaringType: owner,
		Offset:        f.Offset,
	}
	if f.InitialData != nil {
		out.InitialData = append([]byte(nil), f.InitialData...)
	}
	d.record(f, out, &out.Node)
	d.stats.Fields++
	d.pending = append(d.pending, filler{orig: f, fill: func() { d.fillField(f, out) }})
	return out
}

func (d *Duplicator) stubMethod(m *ir.Method, owner *ir.Type) *ir.Method {
	out := &ir.Method{
		Name:          m.Name,
		Flags:         m.Flags,
		ImplFlags:     m.ImplFlags,
		CallConv:      m.CallConv,
		DeclaringType: owner,
		InitLocals:    m.InitLocals,
	}
	if m.PInvoke != nil {
		pi := *m.PInvoke
		out.PInvoke = &pi
	}
	d.record(m, out, &out.Node)
	d.stats.Methods++
	if d.opts.Mode == ModeRecordTemplate {
		out.Template = m
	}
	out.TemplateParams = d.templateParams(m.TemplateParams, func(p *ir.Type) {
		p.DeclaringMethod = out
	})
	for _, p := range m.Params {
		np := &ir.Param{
			Name:            p.Name,
			Index:           p.Index,
			Flags:           p.Flags,
			DeclaringMethod: out,
		}
		d.record(p, np, &np.Node)
		d.stats.Params++
		out.Params = append(out.Params, np)
	}
	d.pending = append(d.pending, filler{orig: m, fill: func() { d.fillMethod(m, out) }})
	return out
}

func (d *Duplicator) stubProperty(p *ir.Property, owner *ir.Type) *ir.Property {
	out := &ir.Property{
		Name:          p.Name,
		Flags:         p.Flags,
		HasThis:       p.HasThis,
		DeclaringType: owner,
	}
	d.record(p, out, &out.Node)
	d.stats.Properties++
	d.pending = append(d.pending, filler{orig: p, fill: func() { d.fillProperty(p, out) }})
	return out
}

func (d *Duplicator) stubEvent(e *ir.Event, owner *ir.Type) *ir.Event {
	out := &ir.Event{
		Name:          e.Name,
		Flags:         e.Flags,
		DeclaringType: owner,
	}
	d.record(e, out, &out.Node)
	d.stats.Events++
	d.pending = append(d.pending, filler{orig: e, fill: func() { d.fillEvent(e, out) }})
	return out
}
