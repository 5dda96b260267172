package emit

import (
	"ilmerge/internal/ir"
	"ilmerge/internal/metadata"
	"ilmerge/internal/wellknown"
)

// Method semantics.
const (
	semSetter   = 0x0001
	semGetter   = 0x0002
	semOther    = 0x0004
	semAddOn    = 0x0008
	semRemoveOn = 0x0010
	semFire     = 0x0020
)

const hashSHA1 = 0x8004

// populate writes the definition rows and every sorted table. It runs after
// all references exist; the emitter is frozen so a late reference panics.
func (e *Emitter) populate() {
	e.frozen = true

	e.tables.Add(metadata.TableModule, 0, e.str(e.mod.Name), e.heaps.GUIDs.Add(e.opts.Mvid), 0, 0)
	for _, rec := range e.types {
		e.populateType(rec)
	}
	for _, rec := range e.fields {
		e.populateField(rec)
	}
	for _, rec := range e.methods {
		e.populateMethod(rec)
	}
	for _, rec := range e.params {
		e.populateParam(rec)
	}
	e.populateProperties()
	e.populateEvents()
	for _, g := range e.generic {
		owner := e.genericParamToken(g).Row()
		for _, c := range g.constraints {
			e.tables.AddSorted(metadata.TableGenericParamConstraint, owner, e.coded(metadata.TypeDefOrRef, c))
		}
	}
	e.populateAssembly()

	for _, a := range e.attrs {
		e.tables.AddSorted(metadata.TableCustomAttribute,
			e.coded(metadata.HasCustomAttribute, a.parent), e.coded(metadata.CustomAttributeType, a.ctor), a.value)
	}
	for _, c := range e.constants {
		e.tables.AddSorted(metadata.TableConstant, uint32(c.elem), e.coded(metadata.HasConstant, c.parent), c.value)
	}
	for _, m := range e.marshals {
		e.tables.AddSorted(metadata.TableFieldMarshal, e.coded(metadata.HasFieldMarshal, m.parent), m.native)
	}
	for _, s := range e.security {
		e.tables.AddSorted(metadata.TableDeclSecurity, uint32(s.action), e.coded(metadata.HasDeclSecurity, s.parent), s.set)
	}
	e.tables.Seal()
}

func (e *Emitter) populateType(rec *typeRec) {
	t := rec.t
	if t == nil {
		e.tables.Add(metadata.TableTypeDef, 0, e.str(wellknown.ModuleType.String()), 0, 0, rec.fieldList, rec.methodList)
		return
	}
	flags := t.Flags
	if t.Kind == ir.TypeInterface {
		flags |= ir.TypeInterfaceFlag
	}
	if len(t.Security) > 0 {
		flags |= ir.TypeHasSecurity
	}
	e.tables.Add(metadata.TableTypeDef, uint32(flags), e.str(t.Name), e.str(t.Namespace),
		e.coded(metadata.TypeDefOrRef, rec.extends), rec.fieldList, rec.methodList)

	for _, itok := range rec.interfaces {
		e.tables.AddSorted(metadata.TableInterfaceImpl, rec.row, e.coded(metadata.TypeDefOrRef, itok))
	}
	if l := t.Layout; l != nil {
		e.tables.AddSorted(metadata.TableClassLayout, uint32(l.PackingSize), l.ClassSize, rec.row)
	}
	if t.IsNested() {
		enclosing, ok := e.typeDefs[t.DeclaringType.ID]
		if !ok {
			e.failf(ErrMalformedIR, "nested type %s has an undefined enclosing type", t.FullName())
		}
		e.tables.AddSorted(metadata.TableNestedClass, rec.row, enclosing)
	}
}

func (e *Emitter) populateField(rec *fieldRec) {
	f := rec.f
	flags := f.Flags
	if f.Default != nil {
		flags |= ir.FieldHasDefault
	}
	if f.Marshal != nil {
		flags |= ir.FieldHasFieldMarshal
	}
	if rec.data >= 0 {
		flags |= ir.FieldHasFieldRVA
	}
	e.tables.Add(metadata.TableField, uint32(flags), e.str(f.Name), rec.sig)

	if f.Offset >= 0 && !f.IsStatic() && rec.owner.t.Flags&ir.TypeLayoutMask == ir.TypeExplicitLayout {
		e.tables.AddSorted(metadata.TableFieldLayout, e.u32(f.Offset, "field offset"), rec.row)
	}
	if rec.data >= 0 {
		e.tables.AddSorted(metadata.TableFieldRVA, e.dataBase()+e.u32(rec.data, "field data"), rec.row)
	}
}

func (e *Emitter) populateMethod(rec *methodRec) {
	m := rec.m
	tok := metadata.MakeToken(metadata.TableMethodDef, rec.row)
	flags := m.Flags
	if len(m.Security) > 0 {
		flags |= ir.MethodHasSecurity
	}
	if m.PInvoke != nil {
		flags |= ir.MethodPInvokeImpl
	}
	var rva uint32
	if rec.body >= 0 {
		rva = e.opts.ILBase + e.u32(rec.body, "IL offset")
	}
	e.tables.Add(metadata.TableMethodDef, rva, uint32(m.ImplFlags), uint32(flags), e.str(m.Name), rec.sig, rec.paramList)

	for _, decl := range rec.overrides {
		e.tables.AddSorted(metadata.TableMethodImpl, rec.owner.row,
			e.coded(metadata.MethodDefOrRef, tok), e.coded(metadata.MethodDefOrRef, decl))
	}
	if pi := m.PInvoke; pi != nil {
		name := pi.ImportName
		if name == "" {
			name = m.Name
		}
		e.tables.AddSorted(metadata.TableImplMap, uint32(pi.Flags),
			e.coded(metadata.MemberForwarded, tok), e.str(name), rec.importScope)
	}
}

func (e *Emitter) populateParam(rec *paramRec) {
	if rec.p == nil {
		var flags ir.ParamFlags
		if rec.m.ReturnMarshal != nil {
			flags |= ir.ParamHasFieldMarshal
		}
		e.tables.Add(metadata.TableParam, uint32(flags), 0, 0)
		return
	}
	p := rec.p
	flags := p.Flags
	if p.Default != nil {
		flags |= ir.ParamHasDefault
	}
	if p.Marshal != nil {
		flags |= ir.ParamHasFieldMarshal
	}
	e.tables.Add(metadata.TableParam, uint32(flags), e.u32(p.Index+1, "parameter sequence"), e.str(p.Name))
}

func (e *Emitter) populateProperties() {
	var owner *typeRec
	for _, rec := range e.props {
		if rec.owner != owner {
			owner = rec.owner
			e.tables.Add(metadata.TablePropertyMap, owner.row, rec.row)
		}
		p := rec.p
		flags := p.Flags
		if p.Default != nil {
			flags |= ir.PropertyHasDefault
		}
		e.tables.Add(metadata.TableProperty, uint32(flags), e.str(p.Name), rec.sig)
		assoc := metadata.MakeToken(metadata.TableProperty, rec.row)
		e.semantics(assoc, p.Setter, semSetter)
		e.semantics(assoc, p.Getter, semGetter)
		for _, o := range p.Others {
			e.semantics(assoc, o, semOther)
		}
	}
}

func (e *Emitter) populateEvents() {
	var owner *typeRec
	for _, rec := range e.events {
		if rec.owner != owner {
			owner = rec.owner
			e.tables.Add(metadata.TableEventMap, owner.row, rec.row)
		}
		ev := rec.ev
		e.tables.Add(metadata.TableEvent, uint32(ev.Flags), e.str(ev.Name), e.coded(metadata.TypeDefOrRef, rec.typ))
		assoc := metadata.MakeToken(metadata.TableEvent, rec.row)
		e.semantics(assoc, ev.Adder, semAddOn)
		e.semantics(assoc, ev.Remover, semRemoveOn)
		e.semantics(assoc, ev.Raiser, semFire)
		for _, o := range ev.Others {
			e.semantics(assoc, o, semOther)
		}
	}
}

func (e *Emitter) semantics(assoc metadata.Token, m *ir.Method, sem uint32) {
	if m == nil {
		return
	}
	e.tables.AddSorted(metadata.TableMethodSemantics, sem, e.methodDefs[m.ID], e.coded(metadata.HasSemantics, assoc))
}

func (e *Emitter) populateAssembly() {
	asm := e.mod.Assembly
	if asm == nil {
		return
	}
	alg := asm.HashAlgorithm
	if alg == 0 {
		alg = hashSHA1
	}
	flags := asm.Flags
	if len(asm.PublicKey) > 0 {
		flags |= assemblyPublicKey
	}
	major, minor, build, revision := e.version(asm.Version, "assembly "+asm.Name)
	e.tables.Add(metadata.TableAssembly, alg,
		major, minor, build, revision,
		flags, e.blob(asm.PublicKey), e.str(asm.Name), e.str(asm.Culture))
}
