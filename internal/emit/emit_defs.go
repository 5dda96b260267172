package emit

import (
	"fortio.org/safecast"

	"ilmerge/internal/ir"
	"ilmerge/internal/metadata"
	"ilmerge/internal/wellknown"
)

type typeRec struct {
	// t is nil for a synthesized <Module> type.
	t          *ir.Type
	row        uint32
	extends    metadata.Token
	interfaces []metadata.Token

	fieldList, methodList uint32
	propList, eventList   uint32
}

type fieldRec struct {
	f     *ir.Field
	row   uint32
	sig   uint32
	owner *typeRec
	// data is the offset of the initial data in the data section, or -1.
	data int
}

type methodRec struct {
	m         *ir.Method
	row       uint32
	sig       uint32
	owner     *typeRec
	paramList uint32
	// body is the offset of the method body in the IL stream, or -1.
	body        int
	overrides   []metadata.Token
	importScope uint32
}

type paramRec struct {
	// p is nil for the return value row.
	p   *ir.Param
	m   *ir.Method
	row uint32
}

type propRec struct {
	p     *ir.Property
	row   uint32
	sig   uint32
	owner *typeRec
}

type eventRec struct {
	ev    *ir.Event
	row   uint32
	typ   metadata.Token
	owner *typeRec
}

type genericRec struct {
	t           *ir.Type
	handle      metadata.Handle
	constraints []metadata.Token
}

func (e *Emitter) defineAll() {
	var moduleType *ir.Type
	for _, t := range e.mod.Types {
		if t != nil && t.Namespace == "" && wellknown.Is(t.Name, wellknown.ModuleType) {
			moduleType = t
			break
		}
	}
	if moduleType != nil {
		e.defineType(moduleType)
	} else {
		e.types = append(e.types, &typeRec{row: 1, fieldList: 1, methodList: 1, propList: 1, eventList: 1})
	}
	for _, t := range e.mod.AllTypes() {
		if t != moduleType {
			e.defineType(t)
		}
	}
	e.defineGenericParams()
}

func (e *Emitter) defineType(t *ir.Type) {
	if t == nil {
		e.failf(ErrMalformedIR, "module %s lists a nil type", e.mod.Name)
	}
	id := e.requireID(t, "type "+t.FullName())
	if !t.Kind.IsNominal() {
		e.failf(ErrMalformedIR, "%s of kind %s cannot be defined", t.FullName(), t.Kind)
	}
	if t.HomeModule() != e.mod {
		e.failf(ErrMalformedIR, "type %s is listed in %s but declared elsewhere", t.FullName(), e.mod.Name)
	}
	if _, ok := e.typeDefs[id]; ok {
		e.failf(ErrMalformedIR, "type %s is defined twice", t.FullName())
	}
	rec := &typeRec{
		t:          t,
		row:        e.u32(len(e.types)+1, "TypeDef row"),
		fieldList:  e.u32(len(e.fields)+1, "Field row"),
		methodList: e.u32(len(e.methods)+1, "MethodDef row"),
		propList:   e.u32(len(e.props)+1, "Property row"),
		eventList:  e.u32(len(e.events)+1, "Event row"),
	}
	e.typeDefs[id] = rec.row
	e.types = append(e.types, rec)

	for _, f := range t.Fields {
		e.defineField(rec, f)
	}
	for _, m := range t.Methods {
		e.defineMethod(rec, m)
	}
	for _, p := range t.Properties {
		if p == nil || p.DeclaringType != t {
			e.failf(ErrMalformedIR, "property of %s has a wrong declaring type", t.FullName())
		}
		row := e.u32(len(e.props)+1, "Property row")
		e.propDefs[e.requireID(p, "property "+p.Name)] = row
		e.props = append(e.props, &propRec{p: p, row: row, owner: rec})
	}
	for _, ev := range t.Events {
		if ev == nil || ev.DeclaringType != t {
			e.failf(ErrMalformedIR, "event of %s has a wrong declaring type", t.FullName())
		}
		row := e.u32(len(e.events)+1, "Event row")
		e.eventDefs[e.requireID(ev, "event "+ev.Name)] = row
		e.events = append(e.events, &eventRec{ev: ev, row: row, owner: rec})
	}
}

func (e *Emitter) defineField(owner *typeRec, f *ir.Field) {
	if f == nil || f.DeclaringType != owner.t {
		e.failf(ErrMalformedIR, "field of %s has a wrong declaring type", typeName(owner.t))
	}
	id := e.requireID(f, "field "+f.Name)
	if _, ok := e.fieldDefs[id]; ok {
		e.failf(ErrMalformedIR, "field %s::%s is defined twice", typeName(owner.t), f.Name)
	}
	row := e.u32(len(e.fields)+1, "Field row")
	e.fieldDefs[id] = row
	e.fields = append(e.fields, &fieldRec{f: f, row: row, owner: owner, data: -1})
}

func (e *Emitter) defineMethod(owner *typeRec, m *ir.Method) {
	if m == nil || m.DeclaringType != owner.t {
		e.failf(ErrMalformedIR, "method of %s has a wrong declaring type", typeName(owner.t))
	}
	if m.IsGenericInstance() {
		e.failf(ErrMalformedIR, "%s is a generic method instance, not a definition", m.FullName())
	}
	id := e.requireID(m, "method "+m.FullName())
	if _, ok := e.methodDefs[id]; ok {
		e.failf(ErrMalformedIR, "method %s is defined twice", m.FullName())
	}
	rec := &methodRec{
		m:         m,
		row:       e.u32(len(e.methods)+1, "MethodDef row"),
		owner:     owner,
		paramList: e.u32(len(e.params)+1, "Param row"),
		body:      -1,
	}
	e.methodDefs[id] = rec.row
	e.methods = append(e.methods, rec)

	if len(m.ReturnAttributes) > 0 || m.ReturnMarshal != nil {
		e.params = append(e.params, &paramRec{m: m, row: e.u32(len(e.params)+1, "Param row")})
	}
	for i, p := range m.Params {
		if p == nil || p.Index != i {
			e.failf(ErrMalformedIR, "%s: parameter %d is missing or out of order", m.FullName(), i)
		}
		row := e.u32(len(e.params)+1, "Param row")
		e.paramDefs[e.requireID(p, "parameter "+p.Name)] = row
		e.params = append(e.params, &paramRec{p: p, m: m, row: row})
	}
}

// defineGenericParams registers every generic parameter and orders the
// GenericParam table, so parameter rows are known before anything refers
// to them.
func (e *Emitter) defineGenericParams() {
	for _, rec := range e.types {
		if rec.t == nil {
			continue
		}
		for i, tp := range rec.t.TemplateParams {
			e.defineGenericParam(tp, i, metadata.MakeToken(metadata.TableTypeDef, rec.row))
		}
	}
	for _, rec := range e.methods {
		for i, tp := range rec.m.TemplateParams {
			e.defineGenericParam(tp, i, metadata.MakeToken(metadata.TableMethodDef, rec.row))
		}
	}
	e.tables.SealTable(metadata.TableGenericParam)
}

func (e *Emitter) defineGenericParam(tp *ir.Type, pos int, owner metadata.Token) {
	if !tp.IsGenericParam() || tp.ParamIndex != pos {
		e.failf(ErrMalformedIR, "%s: generic parameter %d is missing or out of order", owner, pos)
	}
	id := e.requireID(tp, "generic parameter "+tp.Name)
	number, err := safecast.Conv[uint16](pos)
	if err != nil {
		e.failf(ErrMalformedIR, "generic parameter %s: %v", tp.Name, err)
	}
	h, _ := e.tables.AddSorted(metadata.TableGenericParam,
		uint32(number), uint32(tp.ParamFlags), e.coded(metadata.TypeOrMethodDef, owner), e.str(tp.Name))
	e.genericParams[id] = uint32(len(e.generic))
	e.generic = append(e.generic, &genericRec{t: tp, handle: h})
}

func (e *Emitter) genericParamToken(g *genericRec) metadata.Token {
	return metadata.MakeToken(metadata.TableGenericParam, e.tables.RowOf(metadata.TableGenericParam, g.handle))
}
