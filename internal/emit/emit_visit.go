package emit

import (
	"ilmerge/internal/diag"
	"ilmerge/internal/ir"
	"ilmerge/internal/metadata"
)

func (e *Emitter) visitAll() {
	for _, rec := range e.types {
		e.visitType(rec)
	}
	for _, rec := range e.fields {
		e.visitField(rec)
	}
	for _, rec := range e.methods {
		e.visitMethod(rec)
	}
	for _, rec := range e.params {
		e.visitParam(rec)
	}
	for _, rec := range e.props {
		e.visitProperty(rec)
	}
	for _, rec := range e.events {
		e.visitEvent(rec)
	}

	e.customAttributes(metadata.MakeToken(metadata.TableModule, 1), e.mod.Attributes)
	if asm := e.mod.Assembly; asm != nil {
		tok := metadata.MakeToken(metadata.TableAssembly, 1)
		e.customAttributes(tok, asm.Attributes)
		e.declSecurity(tok, asm.Security)
	}
	e.visitResources()
	e.visitEntryPoint()
}

func (e *Emitter) visitType(rec *typeRec) {
	t := rec.t
	if t == nil {
		return
	}
	tok := metadata.MakeToken(metadata.TableTypeDef, rec.row)
	if t.BaseType != nil {
		rec.extends = e.typeToken(t.BaseType)
	}
	seen := make(map[metadata.Token]bool, len(t.Interfaces))
	for _, it := range t.Interfaces {
		itok := e.typeToken(it)
		if seen[itok] {
			continue
		}
		seen[itok] = true
		rec.interfaces = append(rec.interfaces, itok)
	}
	for _, tp := range t.TemplateParams {
		e.visitGenericParam(tp)
	}
	e.customAttributes(tok, t.Attributes)
	e.declSecurity(tok, t.Security)
}

func (e *Emitter) visitGenericParam(tp *ir.Type) {
	g := e.generic[e.genericParams[tp.ID]]
	for _, c := range tp.Constraints {
		g.constraints = append(g.constraints, e.typeToken(c))
	}
	e.customAttributes(e.genericParamToken(g), tp.Attributes)
}

func (e *Emitter) visitField(rec *fieldRec) {
	f := rec.f
	tok := metadata.MakeToken(metadata.TableField, rec.row)
	data, err := e.enc.Field(f)
	e.check(err, "field "+f.Name)
	rec.sig = e.blob(data)
	e.constant(tok, f.Default)
	e.marshal(tok, f.Marshal)
	e.customAttributes(tok, f.Attributes)
	if len(f.InitialData) > 0 {
		if !f.IsStatic() {
			e.failf(ErrMalformedIR, "instance field %s::%s has initial data", typeName(f.DeclaringType), f.Name)
		}
		e.data.Align(8)
		rec.data = e.data.Len()
		e.data.Raw(f.InitialData)
	}
}

func (e *Emitter) visitMethod(rec *methodRec) {
	m := rec.m
	tok := metadata.MakeToken(metadata.TableMethodDef, rec.row)
	data, err := e.enc.Method(m)
	e.check(err, "signature of "+m.FullName())
	rec.sig = e.blob(data)

	for _, tp := range m.TemplateParams {
		e.visitGenericParam(tp)
	}
	for _, o := range m.Overrides {
		if o.IsGenericInstance() {
			e.failf(ErrMalformedIR, "%s overrides the generic instance %s", m.FullName(), o.FullName())
		}
		rec.overrides = append(rec.overrides, e.methodDefOrRef(o))
	}
	if pi := m.PInvoke; pi != nil {
		if pi.Module == "" {
			e.failf(ErrMalformedIR, "%s: platform invoke without a module", m.FullName())
		}
		rec.importScope = e.moduleRef(pi.Module).Row()
	}
	e.customAttributes(tok, m.Attributes)
	e.declSecurity(tok, m.Security)

	if m.Body == nil {
		return
	}
	if m.Flags.Has(ir.MethodAbstract) || m.PInvoke != nil {
		e.failf(ErrMalformedIR, "%s is abstract or imported but has a body", m.FullName())
	}
	rec.body = e.emitBody(rec)
}

func (e *Emitter) visitParam(rec *paramRec) {
	tok := metadata.MakeToken(metadata.TableParam, rec.row)
	if rec.p == nil {
		e.marshal(tok, rec.m.ReturnMarshal)
		e.customAttributes(tok, rec.m.ReturnAttributes)
		return
	}
	e.constant(tok, rec.p.Default)
	e.marshal(tok, rec.p.Marshal)
	e.customAttributes(tok, rec.p.Attributes)
}

func (e *Emitter) visitProperty(rec *propRec) {
	p := rec.p
	tok := metadata.MakeToken(metadata.TableProperty, rec.row)
	data, err := e.enc.Property(p)
	e.check(err, "property "+p.Name)
	rec.sig = e.blob(data)
	e.constant(tok, p.Default)
	e.customAttributes(tok, p.Attributes)
	e.requireAccessors("property "+p.Name, append([]*ir.Method{p.Getter, p.Setter}, p.Others...))
}

func (e *Emitter) visitEvent(rec *eventRec) {
	ev := rec.ev
	if ev.Type == nil {
		e.failf(ErrMalformedIR, "event %s has no type", ev.Name)
	}
	rec.typ = e.typeToken(ev.Type)
	e.customAttributes(metadata.MakeToken(metadata.TableEvent, rec.row), ev.Attributes)
	e.requireAccessors("event "+ev.Name, append([]*ir.Method{ev.Adder, ev.Remover, ev.Raiser}, ev.Others...))
}

// requireAccessors checks that every non-nil accessor is defined in the
// module; MethodSemantics can only point at MethodDef rows.
func (e *Emitter) requireAccessors(owner string, ms []*ir.Method) {
	for _, m := range ms {
		if m == nil {
			continue
		}
		if _, ok := e.methodDefs[m.ID]; !ok || !m.ID.IsValid() {
			e.failf(ErrMalformedIR, "%s: accessor %s is not defined in %s", owner, m.FullName(), e.mod.Name)
		}
	}
}

func (e *Emitter) visitEntryPoint() {
	ep := e.mod.EntryPoint
	if ep == nil {
		if e.mod.Kind == ir.ModuleEXE {
			diag.ReportWarning(e.opts.Reporter, diag.EmitMissingEntryPoint, e.mod.Name,
				"executable module has no entry point").Emit()
		}
		return
	}
	row, ok := e.methodDefs[ep.ID]
	if !ok || !ep.ID.IsValid() {
		e.failf(ErrMalformedIR, "entry point %s is not defined in %s", ep.FullName(), e.mod.Name)
	}
	if !ep.IsStatic() {
		e.failf(ErrMalformedIR, "entry point %s is not static", ep.FullName())
	}
	e.entryPoint = metadata.MakeToken(metadata.TableMethodDef, row)
}
