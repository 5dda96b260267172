package emit

import (
	"bytes"
	"encoding/binary"
	"hash/maphash"

	"ilmerge/internal/ir"
	"ilmerge/internal/metadata"
)

type typeRefKey struct {
	scope     metadata.Token
	namespace string
	name      string
}

type memberRefKey struct {
	parent metadata.Token
	name   string
	sig    uint32
}

// specIndex deduplicates rows whose identity is a byte string: first by
// hash bucket, then by exact comparison.
type specIndex struct {
	seed    maphash.Seed
	buckets map[uint64][]uint32
	keys    [][]byte
}

func newSpecIndex() specIndex {
	return specIndex{seed: maphash.MakeSeed(), buckets: make(map[uint64][]uint32, 32)}
}

func (s *specIndex) find(key []byte) (row uint32, h uint64, ok bool) {
	h = maphash.Bytes(s.seed, key)
	for _, r := range s.buckets[h] {
		if bytes.Equal(s.keys[r-1], key) {
			return r, h, true
		}
	}
	return 0, h, false
}

func (s *specIndex) add(h uint64, row uint32, key []byte) {
	s.buckets[h] = append(s.buckets[h], row)
	for len(s.keys) < int(row) {
		s.keys = append(s.keys, nil)
	}
	s.keys[row-1] = key
}

// refTables is the lazy half of the token allocator.
type refTables struct {
	typeRefs    map[ir.NodeID]uint32
	typeRefKeys map[typeRefKey]uint32
	typeSpecs   map[ir.NodeID]uint32
	typeSpecKey specIndex

	memberRefs    map[ir.NodeID]uint32
	memberRefKeys map[memberRefKey]uint32

	methodSpecs   map[ir.NodeID]uint32
	methodSpecKey specIndex

	assemblyRefs map[string]uint32
	moduleRefs   map[string]uint32
	standAlone   map[uint32]uint32
}

func newRefTables() refTables {
	return refTables{
		typeRefs:      make(map[ir.NodeID]uint32, 64),
		typeRefKeys:   make(map[typeRefKey]uint32, 64),
		typeSpecs:     make(map[ir.NodeID]uint32, 32),
		typeSpecKey:   newSpecIndex(),
		memberRefs:    make(map[ir.NodeID]uint32, 128),
		memberRefKeys: make(map[memberRefKey]uint32, 128),
		methodSpecs:   make(map[ir.NodeID]uint32, 16),
		methodSpecKey: newSpecIndex(),
		assemblyRefs:  make(map[string]uint32, 4),
		moduleRefs:    make(map[string]uint32, 4),
		standAlone:    make(map[uint32]uint32, 32),
	}
}

// TypeDefOrRef returns the TypeDef token of a type defined in the module and
// the TypeRef token of any other declared type, allocating it on first use.
func (e *Emitter) TypeDefOrRef(t *ir.Type) metadata.Token {
	if t == nil || !t.Kind.IsNominal() {
		e.failf(ErrMalformedIR, "%s is not a declared type", typeName(t))
	}
	if row, ok := e.typeDefs[t.ID]; ok && t.ID.IsValid() {
		return metadata.MakeToken(metadata.TableTypeDef, row)
	}
	return e.typeRef(t)
}

func (e *Emitter) typeRef(t *ir.Type) metadata.Token {
	id := e.requireID(t, "type "+t.FullName())
	if row, ok := e.refs.typeRefs[id]; ok {
		return metadata.MakeToken(metadata.TableTypeRef, row)
	}
	if t.HomeModule() == e.mod {
		e.failf(ErrMalformedIR, "type %s belongs to %s but is not listed in it", t.FullName(), e.mod.Name)
	}
	var scope metadata.Token
	if t.DeclaringType != nil {
		scope = e.TypeDefOrRef(t.DeclaringType)
	} else {
		scope = e.resolutionScope(t)
	}
	key := typeRefKey{scope: scope, namespace: t.Namespace, name: t.Name}
	if t.DeclaringType != nil {
		key.namespace = ""
	}
	row, ok := e.refs.typeRefKeys[key]
	if !ok {
		e.assertOpen("TypeRef " + t.FullName())
		row = e.tables.Add(metadata.TableTypeRef,
			e.coded(metadata.ResolutionScope, scope), e.str(key.name), e.str(key.namespace))
		e.refs.typeRefKeys[key] = row
	}
	e.refs.typeRefs[id] = row
	return metadata.MakeToken(metadata.TableTypeRef, row)
}

// resolutionScope finds the AssemblyRef or ModuleRef that scopes a
// top-level type of another module.
func (e *Emitter) resolutionScope(t *ir.Type) metadata.Token {
	home := t.HomeModule()
	var loc *ir.Location
	if home != nil {
		loc = home.Location
	}
	if loc == nil {
		e.failf(ErrUnresolvedLocation, "%s: %s", t.FullName(), loc)
	}
	switch loc.Kind {
	case ir.LocationAssembly:
		return e.assemblyRef(loc)
	case ir.LocationModule:
		return e.moduleRef(loc.Name)
	}
	e.failf(ErrUnresolvedLocation, "%s: location kind %s", t.FullName(), loc.Kind)
	return 0
}

func (e *Emitter) assemblyRef(loc *ir.Location) metadata.Token {
	key := loc.String()
	if row, ok := e.refs.assemblyRefs[key]; ok {
		return metadata.MakeToken(metadata.TableAssemblyRef, row)
	}
	e.assertOpen("AssemblyRef " + key)
	pk := loc.PublicKeyToken
	flags := loc.Flags
	if len(pk) == 0 && len(loc.PublicKey) > 0 {
		pk = loc.PublicKey
		flags |= assemblyPublicKey
	}
	major, minor, build, revision := e.version(loc.Version, "AssemblyRef "+key)
	row := e.tables.Add(metadata.TableAssemblyRef,
		major, minor, build, revision,
		flags, e.blob(pk), e.str(loc.Name), e.str(loc.Culture), e.blob(loc.HashValue))
	e.refs.assemblyRefs[key] = row
	return metadata.MakeToken(metadata.TableAssemblyRef, row)
}

// assemblyPublicKey flags an AssemblyRef that carries the full public key.
const assemblyPublicKey = 0x0001

func (e *Emitter) moduleRef(name string) metadata.Token {
	if row, ok := e.refs.moduleRefs[name]; ok {
		return metadata.MakeToken(metadata.TableModuleRef, row)
	}
	e.assertOpen("ModuleRef " + name)
	row := e.tables.Add(metadata.TableModuleRef, e.str(name))
	e.refs.moduleRefs[name] = row
	return metadata.MakeToken(metadata.TableModuleRef, row)
}

// typeToken returns the token an instruction or a TypeDefOrRef column uses
// for t: TypeDef or TypeRef for declared types, TypeSpec for everything else.
func (e *Emitter) typeToken(t *ir.Type) metadata.Token {
	if t == nil {
		e.failf(ErrMalformedIR, "nil type reference")
	}
	if t.Kind.IsNominal() {
		return e.TypeDefOrRef(t)
	}
	return e.typeSpec(t)
}

func (e *Emitter) typeSpec(t *ir.Type) metadata.Token {
	id := t.ID
	if row, ok := e.refs.typeSpecs[id]; ok && id.IsValid() {
		return metadata.MakeToken(metadata.TableTypeSpec, row)
	}
	data, err := e.enc.Type(t)
	e.check(err, "type "+typeName(t))
	row, h, ok := e.refs.typeSpecKey.find(data)
	if !ok {
		e.assertOpen("TypeSpec " + typeName(t))
		row = e.tables.Add(metadata.TableTypeSpec, e.blob(data))
		e.refs.typeSpecKey.add(h, row, data)
	}
	if id.IsValid() {
		e.refs.typeSpecs[id] = row
	}
	return metadata.MakeToken(metadata.TableTypeSpec, row)
}

// memberParent is the MemberRef class of a member declared by t.
func (e *Emitter) memberParent(t *ir.Type, member string) metadata.Token {
	if t == nil {
		e.failf(ErrMalformedIR, "%s has no declaring type", member)
	}
	return e.typeToken(t)
}

// methodToken returns the token a call or ldftn uses for m.
func (e *Emitter) methodToken(m *ir.Method) metadata.Token {
	if m == nil {
		e.failf(ErrMalformedIR, "nil method reference")
	}
	if m.IsGenericInstance() {
		return e.methodSpec(m)
	}
	return e.methodDefOrRef(m)
}

// methodDefOrRef returns a MethodDef token for methods defined in the
// module and a MemberRef token otherwise.
func (e *Emitter) methodDefOrRef(m *ir.Method) metadata.Token {
	if m == nil {
		e.failf(ErrMalformedIR, "nil method reference")
	}
	if m.ID.IsValid() {
		if row, ok := e.methodDefs[m.ID]; ok {
			return metadata.MakeToken(metadata.TableMethodDef, row)
		}
		if row, ok := e.refs.memberRefs[m.ID]; ok {
			return metadata.MakeToken(metadata.TableMemberRef, row)
		}
	}
	if m.IsGenericInstance() {
		e.failf(ErrMalformedIR, "%s: generic method instance where a definition is required", m.FullName())
	}
	def := m
	if m.Unspecialized != nil {
		def = m.Unspecialized
	}
	parent := e.memberParent(m.DeclaringType, m.FullName())
	if parent.Table() == metadata.TableTypeDef {
		e.failf(ErrMalformedIR, "%s is declared in %s but not defined there", m.FullName(), e.mod.Name)
	}
	data, err := e.enc.Method(def)
	e.check(err, "signature of "+m.FullName())
	row := e.memberRef(parent, m.Name, data)
	if m.ID.IsValid() {
		e.refs.memberRefs[m.ID] = row
	}
	return metadata.MakeToken(metadata.TableMemberRef, row)
}

func (e *Emitter) memberRef(parent metadata.Token, name string, signature []byte) uint32 {
	key := memberRefKey{parent: parent, name: name, sig: e.blob(signature)}
	if row, ok := e.refs.memberRefKeys[key]; ok {
		return row
	}
	e.assertOpen("MemberRef " + name)
	row := e.tables.Add(metadata.TableMemberRef,
		e.coded(metadata.MemberRefParent, parent), e.str(name), key.sig)
	e.refs.memberRefKeys[key] = row
	return row
}

func (e *Emitter) methodSpec(m *ir.Method) metadata.Token {
	if m.ID.IsValid() {
		if row, ok := e.refs.methodSpecs[m.ID]; ok {
			return metadata.MakeToken(metadata.TableMethodSpec, row)
		}
	}
	generic := e.methodDefOrRef(m.Template)
	inst, err := e.enc.MethodSpec(m.TemplateArgs)
	e.check(err, "instantiation of "+m.FullName())
	key := make([]byte, 4, 4+len(inst))
	binary.LittleEndian.PutUint32(key, uint32(generic))
	key = append(key, inst...)
	row, h, ok := e.refs.methodSpecKey.find(key)
	if !ok {
		e.assertOpen("MethodSpec " + m.FullName())
		row = e.tables.Add(metadata.TableMethodSpec, e.coded(metadata.MethodDefOrRef, generic), e.blob(inst))
		e.refs.methodSpecKey.add(h, row, key)
	}
	if m.ID.IsValid() {
		e.refs.methodSpecs[m.ID] = row
	}
	return metadata.MakeToken(metadata.TableMethodSpec, row)
}

// fieldToken returns a Field token for fields defined in the module and a
// MemberRef token otherwise.
func (e *Emitter) fieldToken(f *ir.Field) metadata.Token {
	if f == nil {
		e.failf(ErrMalformedIR, "nil field reference")
	}
	if f.ID.IsValid() {
		if row, ok := e.fieldDefs[f.ID]; ok {
			return metadata.MakeToken(metadata.TableField, row)
		}
		if row, ok := e.refs.memberRefs[f.ID]; ok {
			return metadata.MakeToken(metadata.TableMemberRef, row)
		}
	}
	def := f
	if f.Unspecialized != nil {
		def = f.Unspecialized
	}
	name := typeName(f.DeclaringType) + "::" + f.Name
	parent := e.memberParent(f.DeclaringType, name)
	if parent.Table() == metadata.TableTypeDef {
		e.failf(ErrMalformedIR, "field %s is declared in %s but not defined there", name, e.mod.Name)
	}
	data, err := e.enc.Field(def)
	e.check(err, "signature of "+name)
	row := e.memberRef(parent, f.Name, data)
	if f.ID.IsValid() {
		e.refs.memberRefs[f.ID] = row
	}
	return metadata.MakeToken(metadata.TableMemberRef, row)
}

// arrayMethod references one of the runtime-provided methods of a
// multi-dimensional array type: Get, Set, Address or .ctor.
func (e *Emitter) arrayMethod(arr *ir.Type, name string, ret *ir.Type, params []*ir.Type) metadata.Token {
	m := &ir.Method{Name: name, DeclaringType: arr, ReturnType: ret, CallConv: ir.CallHasThis}
	for i, p := range params {
		m.Params = append(m.Params, &ir.Param{Index: i, Type: p, DeclaringMethod: m})
	}
	data, err := e.enc.Method(m)
	e.check(err, "array method "+name)
	return metadata.MakeToken(metadata.TableMemberRef, e.memberRef(e.typeSpec(arr), name, data))
}

// standAloneSig returns the StandAloneSig token of a signature blob.
func (e *Emitter) standAloneSig(data []byte) metadata.Token {
	off := e.blob(data)
	if row, ok := e.refs.standAlone[off]; ok {
		return metadata.MakeToken(metadata.TableStandAloneSig, row)
	}
	e.assertOpen("StandAloneSig")
	row := e.tables.Add(metadata.TableStandAloneSig, off)
	e.refs.standAlone[off] = row
	return metadata.MakeToken(metadata.TableStandAloneSig, row)
}

// userString returns the ldstr token of s.
func (e *Emitter) userString(s string) metadata.Token {
	off, err := e.heaps.UserStrings.Add(s)
	e.check(err, "user string")
	if off > metadata.MaxUserStringOffset {
		e.failf(ErrMalformedIR, "user string heap exceeds %#x bytes", metadata.MaxUserStringOffset)
	}
	return metadata.MakeToken(metadata.TableUserString, off)
}
