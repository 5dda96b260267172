package irfile

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"ilmerge/internal/ir"
)

// Decode reads a snapshot into prog. Nodes get fresh ids from prog's arena
// and constructed types are interned with prog's type table. A module whose
// name is already loaded is unified with the loaded one: its types are
// matched by full name and their members by position or name, and nothing
// of the snapshot's copy is kept. New modules are appended to prog.Modules.
//
// The returned slice lists the snapshot's modules in order, unified ones
// included.
func Decode(r io.Reader, prog *ir.Program) ([]*ir.Module, error) {
	var s snapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("irfile: decode: %w", err)
	}
	if s.Magic != magic {
		return nil, fmt.Errorf("irfile: not an IR snapshot")
	}
	if s.Version != formatVersion {
		return nil, fmt.Errorf("irfile: unsupported snapshot version %d", s.Version)
	}
	return load(&s, prog)
}

type decodeError struct{ err error }

type decoder struct {
	s    *snapshot
	prog *ir.Program

	wTypes   map[ref]*wType
	wFields  map[ref]*wField
	wMethods map[ref]*wMethod
	wParams  map[ref]*wParam

	locations map[ref]*ir.Location
	modules   map[ref]*ir.Module
	types     map[ref]*ir.Type
	fields    map[ref]*ir.Field
	methods   map[ref]*ir.Method
	params    map[ref]*ir.Param
	locals    map[ref]*ir.Local
	props     map[ref]*ir.Property
	events    map[ref]*ir.Event
	blocks    map[ref]*ir.Block

	// unified holds refs mapped onto nodes that existed before the load.
	unified map[ref]bool
	// home caches the module ref of nominal types.
	home      map[ref]ref
	resolving map[ref]bool
}

func load(s *snapshot, prog *ir.Program) (mods []*ir.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(decodeError)
			if !ok {
				panic(r)
			}
			mods, err = nil, de.err
		}
	}()
	d := &decoder{
		s:         s,
		prog:      prog,
		wTypes:    make(map[ref]*wType, len(s.Types)),
		wFields:   make(map[ref]*wField, len(s.Fields)),
		wMethods:  make(map[ref]*wMethod, len(s.Methods)),
		wParams:   make(map[ref]*wParam, len(s.Params)),
		locations: make(map[ref]*ir.Location, len(s.Locations)),
		modules:   make(map[ref]*ir.Module, len(s.Modules)),
		types:     make(map[ref]*ir.Type, len(s.Types)),
		fields:    make(map[ref]*ir.Field, len(s.Fields)),
		methods:   make(map[ref]*ir.Method, len(s.Methods)),
		params:    make(map[ref]*ir.Param, len(s.Params)),
		locals:    make(map[ref]*ir.Local, len(s.Locals)),
		props:     make(map[ref]*ir.Property, len(s.Properties)),
		events:    make(map[ref]*ir.Event, len(s.Events)),
		blocks:    make(map[ref]*ir.Block, len(s.Blocks)),
		unified:   make(map[ref]bool),
		home:      make(map[ref]ref),
		resolving: make(map[ref]bool),
	}
	d.index()
	d.allocate()
	d.link()

	for _, r := range s.Order {
		m := d.module(r)
		if !d.unified[r] {
			prog.Modules = append(prog.Modules, m)
		}
		mods = append(mods, m)
	}
	return mods, nil
}

func (d *decoder) failf(format string, args ...any) {
	panic(decodeError{fmt.Errorf("irfile: "+format, args...)})
}

func (d *decoder) index() {
	for i := range d.s.Types {
		d.wTypes[d.s.Types[i].ID] = &d.s.Types[i]
	}
	for i := range d.s.Fields {
		d.wFields[d.s.Fields[i].ID] = &d.s.Fields[i]
	}
	for i := range d.s.Methods {
		d.wMethods[d.s.Methods[i].ID] = &d.s.Methods[i]
	}
	for i := range d.s.Params {
		d.wParams[d.s.Params[i].ID] = &d.s.Params[i]
	}
}

func (d *decoder) register(n *ir.Node) {
	d.prog.Arena.Register(n)
}

// constructed reports kinds rebuilt through the type table.
func constructed(k ir.TypeKind) bool {
	switch k {
	case ir.TypeArray, ir.TypePointer, ir.TypeReference,
		ir.TypeOptModifier, ir.TypeReqModifier, ir.TypeInstance:
		return true
	}
	return false
}

// derived reports methods produced by the type table rather than declared.
func (d *decoder) derived(w *wMethod) bool {
	if w.Template != 0 && len(w.TemplateArgs) > 0 {
		return true
	}
	if w.Unspecialized != 0 {
		if owner := d.wTypes[w.DeclaringType]; owner != nil && owner.Kind == ir.TypeInstance {
			return true
		}
	}
	return false
}

func (d *decoder) derivedField(w *wField) bool {
	if w.Unspecialized == 0 {
		return false
	}
	owner := d.wTypes[w.DeclaringType]
	return owner != nil && owner.Kind == ir.TypeInstance
}

// typeHome returns the module ref of a nominal type record.
func (d *decoder) typeHome(r ref) ref {
	if h, ok := d.home[r]; ok {
		return h
	}
	w := d.wTypes[r]
	var h ref
	switch {
	case w == nil:
	case w.Module != 0:
		h = w.Module
	case w.DeclaringType != 0 && w.DeclaringType != r:
		h = d.typeHome(w.DeclaringType)
	}
	d.home[r] = h
	return h
}

func (d *decoder) fullName(w *wType) string {
	if w.DeclaringType != 0 {
		if outer := d.wTypes[w.DeclaringType]; outer != nil && outer != w {
			return d.fullName(outer) + "+" + w.Name
		}
	}
	if w.Namespace == "" {
		return w.Name
	}
	return w.Namespace + "." + w.Name
}

// allocate creates or unifies every node that has identity of its own.
// Constructed types and derived members are resolved on demand in link.
func (d *decoder) allocate() {
	for i := range d.s.Modules {
		w := &d.s.Modules[i]
		if existing := d.prog.Module(w.Name); existing != nil {
			d.modules[w.ID] = existing
			d.unified[w.ID] = true
			if w.Location != 0 && existing.Location != nil {
				d.locations[w.Location] = existing.Location
				d.unified[w.Location] = true
			}
			continue
		}
		m := &ir.Module{}
		d.register(&m.Node)
		d.modules[w.ID] = m
	}
	for i := range d.s.Locations {
		w := &d.s.Locations[i]
		if _, ok := d.locations[w.ID]; ok {
			continue
		}
		l := &ir.Location{}
		d.register(&l.Node)
		d.locations[w.ID] = l
	}

	byName := make(map[ref]map[string]*ir.Type)
	for i := range d.s.Types {
		w := &d.s.Types[i]
		if !w.Kind.IsNominal() {
			continue
		}
		home := d.typeHome(w.ID)
		if d.unified[home] {
			names := byName[home]
			if names == nil {
				names = make(map[string]*ir.Type)
				for _, t := range d.modules[home].AllTypes() {
					names[t.FullName()] = t
				}
				byName[home] = names
			}
			name := d.fullName(w)
			t := names[name]
			if t == nil {
				d.failf("module %s is already loaded without type %s", d.modules[home].Name, name)
			}
			d.types[w.ID] = t
			d.unified[w.ID] = true
			continue
		}
		t := &ir.Type{}
		d.register(&t.Node)
		d.types[w.ID] = t
	}

	// members of unified types map onto the loaded members
	for i := range d.s.Types {
		w := &d.s.Types[i]
		if !w.Kind.IsNominal() || !d.unified[w.ID] {
			continue
		}
		t := d.types[w.ID]
		if len(w.Methods) > len(t.Methods) {
			d.failf("type %s has %d methods, loaded copy has %d", t.FullName(), len(w.Methods), len(t.Methods))
		}
		for j, r := range w.Methods {
			wm, m := d.wMethods[r], t.Methods[j]
			if wm == nil || wm.Name != m.Name {
				d.failf("method %d of %s does not match the loaded copy", j, t.FullName())
			}
			d.unify(r, wm, m)
		}
		for _, r := range w.Fields {
			wf := d.wFields[r]
			if wf == nil {
				d.failf("unknown field #%d", r)
			}
			f := findField(t, wf.Name)
			if f == nil {
				d.failf("loaded type %s has no field %s", t.FullName(), wf.Name)
			}
			d.fields[r] = f
			d.unified[r] = true
		}
		for j, tp := range w.TemplateParams {
			if j >= len(t.TemplateParams) {
				d.failf("type %s has fewer generic parameters than the loaded copy", t.FullName())
			}
			d.types[tp] = t.TemplateParams[j]
			d.unified[tp] = true
		}
		for _, r := range w.Properties {
			p := d.findProperty(t, r)
			d.props[r] = p
			d.unified[r] = true
		}
		for _, r := range w.Events {
			ev := d.findEvent(t, r)
			d.events[r] = ev
			d.unified[r] = true
		}
	}

	for i := range d.s.Methods {
		w := &d.s.Methods[i]
		if d.unified[w.ID] || d.derived(w) {
			continue
		}
		m := &ir.Method{}
		d.register(&m.Node)
		d.methods[w.ID] = m
		for _, r := range w.Params {
			p := &ir.Param{}
			d.register(&p.Node)
			d.params[r] = p
		}
	}
	for i := range d.s.Types {
		w := &d.s.Types[i]
		if w.Kind != ir.TypeParam && w.Kind != ir.TypeMethodParam {
			continue
		}
		if _, ok := d.types[w.ID]; ok {
			continue
		}
		tp := &ir.Type{}
		d.register(&tp.Node)
		d.types[w.ID] = tp
	}
	for i := range d.s.Fields {
		w := &d.s.Fields[i]
		if d.unified[w.ID] || d.derivedField(w) {
			continue
		}
		f := &ir.Field{}
		d.register(&f.Node)
		d.fields[w.ID] = f
	}
	for i := range d.s.Properties {
		w := &d.s.Properties[i]
		if d.unified[w.ID] {
			continue
		}
		p := &ir.Property{}
		d.register(&p.Node)
		d.props[w.ID] = p
	}
	for i := range d.s.Events {
		w := &d.s.Events[i]
		if d.unified[w.ID] {
			continue
		}
		ev := &ir.Event{}
		d.register(&ev.Node)
		d.events[w.ID] = ev
	}
	for i := range d.s.Locals {
		l := &ir.Local{}
		d.register(&l.Node)
		d.locals[d.s.Locals[i].ID] = l
	}
	for i := range d.s.Blocks {
		b := &ir.Block{}
		d.register(&b.Node)
		d.blocks[d.s.Blocks[i].ID] = b
	}
}

func (d *decoder) unify(r ref, w *wMethod, m *ir.Method) {
	if len(w.Params) != len(m.Params) {
		d.failf("method %s has %d parameters, loaded copy has %d", m.FullName(), len(w.Params), len(m.Params))
	}
	d.methods[r] = m
	d.unified[r] = true
	for i, p := range w.Params {
		d.params[p] = m.Params[i]
		d.unified[p] = true
	}
	for i, tp := range w.TemplateParams {
		if i >= len(m.TemplateParams) {
			d.failf("method %s has fewer generic parameters than the loaded copy", m.FullName())
		}
		d.types[tp] = m.TemplateParams[i]
		d.unified[tp] = true
	}
}

func findField(t *ir.Type, name string) *ir.Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (d *decoder) findProperty(t *ir.Type, r ref) *ir.Property {
	for i := range d.s.Properties {
		w := &d.s.Properties[i]
		if w.ID != r {
			continue
		}
		for _, p := range t.Properties {
			if p.Name == w.Name {
				return p
			}
		}
		d.failf("loaded type %s has no property %s", t.FullName(), w.Name)
	}
	d.failf("unknown property #%d", r)
	return nil
}

func (d *decoder) findEvent(t *ir.Type, r ref) *ir.Event {
	for i := range d.s.Events {
		w := &d.s.Events[i]
		if w.ID != r {
			continue
		}
		for _, ev := range t.Events {
			if ev.Name == w.Name {
				return ev
			}
		}
		d.failf("loaded type %s has no event %s", t.FullName(), w.Name)
	}
	d.failf("unknown event #%d", r)
	return nil
}

// link fills the allocated nodes. Signatures go first so that derived
// members can be built from them.
func (d *decoder) link() {
	for i := range d.s.Types {
		w := &d.s.Types[i]
		if constructed(w.Kind) || d.unified[w.ID] || d.types[w.ID] == nil {
			continue
		}
		d.linkType(w)
	}
	for i := range d.s.Methods {
		w := &d.s.Methods[i]
		if m := d.methods[w.ID]; m != nil && !d.unified[w.ID] {
			d.linkSignature(w, m)
		}
	}
	for i := range d.s.Fields {
		w := &d.s.Fields[i]
		if f := d.fields[w.ID]; f != nil && !d.unified[w.ID] {
			f.Name = w.Name
			f.Flags = w.Flags
			f.Type = d.typ(w.Type)
			f.DeclaringType = d.typ(w.DeclaringType)
		}
	}

	for i := range d.s.Locations {
		w := &d.s.Locations[i]
		if d.unified[w.ID] {
			continue
		}
		l := d.locations[w.ID]
		l.Kind = w.Kind
		l.Name = w.Name
		l.Version = irVersion(w.Version)
		l.Culture = w.Culture
		l.PublicKey = w.PublicKey
		l.PublicKeyToken = w.PublicKeyToken
		l.Flags = w.Flags
		l.HashValue = w.HashValue
	}
	for i := range d.s.Modules {
		w := &d.s.Modules[i]
		if !d.unified[w.ID] {
			d.linkModule(w)
		}
	}
	for i := range d.s.Types {
		w := &d.s.Types[i]
		if t := d.types[w.ID]; t != nil && !constructed(w.Kind) && !d.unified[w.ID] {
			t.Attributes = d.attrs(w.Attributes)
			t.Security = d.security(w.Security)
		}
	}
	for i := range d.s.Fields {
		w := &d.s.Fields[i]
		if f := d.fields[w.ID]; f != nil && !d.unified[w.ID] {
			f.Default = d.constant(w.Default)
			f.Offset = w.Offset
			f.InitialData = w.InitialData
			f.Marshal = w.Marshal
			f.Attributes = d.attrs(w.Attributes)
			f.Unspecialized = d.field(w.Unspecialized)
		}
	}
	for i := range d.s.Params {
		w := &d.s.Params[i]
		if p := d.params[w.ID]; p != nil && !d.unified[w.ID] {
			p.Default = d.constant(w.Default)
			p.Marshal = w.Marshal
			p.Attributes = d.attrs(w.Attributes)
		}
	}
	for i := range d.s.Locals {
		w := &d.s.Locals[i]
		l := d.locals[w.ID]
		l.Name = w.Name
		l.Type = d.typ(w.Type)
		l.Pinned = w.Pinned
	}
	for i := range d.s.Methods {
		w := &d.s.Methods[i]
		if m := d.methods[w.ID]; m != nil && !d.unified[w.ID] && !d.derived(w) {
			d.linkMethod(w, m)
		}
	}
	for i := range d.s.Properties {
		w := &d.s.Properties[i]
		if d.unified[w.ID] {
			continue
		}
		p := d.props[w.ID]
		p.Name = w.Name
		p.Flags = w.Flags
		p.Type = d.typ(w.Type)
		p.Params = d.typeList(w.Params)
		p.HasThis = w.HasThis
		p.DeclaringType = d.typ(w.DeclaringType)
		p.Getter = d.method(w.Getter)
		p.Setter = d.method(w.Setter)
		p.Others = d.methodList(w.Others)
		p.Default = d.constant(w.Default)
		p.Attributes = d.attrs(w.Attributes)
	}
	for i := range d.s.Events {
		w := &d.s.Events[i]
		if d.unified[w.ID] {
			continue
		}
		ev := d.events[w.ID]
		ev.Name = w.Name
		ev.Flags = w.Flags
		ev.Type = d.typ(w.Type)
		ev.DeclaringType = d.typ(w.DeclaringType)
		ev.Adder = d.method(w.Adder)
		ev.Remover = d.method(w.Remover)
		ev.Raiser = d.method(w.Raiser)
		ev.Others = d.methodList(w.Others)
		ev.Attributes = d.attrs(w.Attributes)
	}
	for i := range d.s.Blocks {
		w := &d.s.Blocks[i]
		b := d.blocks[w.ID]
		b.Stmts = make([]*ir.Stmt, 0, len(w.Stmts))
		for _, s := range w.Stmts {
			b.Stmts = append(b.Stmts, d.stmt(s))
		}
	}
}

func irVersion(v [4]uint16) ir.Version {
	return ir.Version{Major: v[0], Minor: v[1], Build: v[2], Revision: v[3]}
}

func (d *decoder) linkModule(w *wModule) {
	m := d.modules[w.ID]
	m.Name = w.Name
	m.Kind = w.Kind
	m.Location = d.location(w.Location)
	m.Types = d.typeList(w.Types)
	m.Attributes = d.attrs(w.Attributes)
	m.EntryPoint = d.method(w.EntryPoint)
	if a := w.Assembly; a != nil {
		m.Assembly = &ir.AssemblyInfo{
			Name:          a.Name,
			Version:       irVersion(a.Version),
			Culture:       a.Culture,
			PublicKey:     a.PublicKey,
			Flags:         a.Flags,
			HashAlgorithm: a.HashAlgorithm,
			Attributes:    d.attrs(a.Attributes),
			Security:      d.security(a.Security),
		}
	}
	for _, r := range w.Resources {
		res := &ir.Resource{Name: r.Name, Public: r.Public, Data: r.Data, LinkedFile: r.LinkedFile}
		d.register(&res.Node)
		m.Resources = append(m.Resources, res)
	}
}

func (d *decoder) linkType(w *wType) {
	t := d.types[w.ID]
	t.Kind = w.Kind
	t.Namespace = w.Namespace
	t.Name = w.Name
	t.Flags = w.Flags
	t.Code = w.Code
	t.Module = d.module(w.Module)
	t.DeclaringType = d.typ(w.DeclaringType)
	t.BaseType = d.typ(w.BaseType)
	t.Interfaces = d.typeList(w.Interfaces)
	t.NestedTypes = d.typeList(w.NestedTypes)
	t.TemplateParams = d.typeList(w.TemplateParams)
	t.Template = d.typ(w.Template)
	t.TemplateArgs = d.typeList(w.TemplateArgs)
	t.ParamIndex = w.ParamIndex
	t.DeclaringMethod = d.method(w.DeclaringMethod)
	t.ParamFlags = w.ParamFlags
	t.Constraints = d.typeList(w.Constraints)
	t.Layout = w.Layout
	for _, r := range w.Fields {
		t.Fields = append(t.Fields, d.field(r))
	}
	for _, r := range w.Methods {
		t.Methods = append(t.Methods, d.method(r))
	}
	for _, r := range w.Properties {
		t.Properties = append(t.Properties, d.props[r])
	}
	for _, r := range w.Events {
		t.Events = append(t.Events, d.events[r])
	}
}

func (d *decoder) linkSignature(w *wMethod, m *ir.Method) {
	m.Name = w.Name
	m.Flags = w.Flags
	m.ImplFlags = w.ImplFlags
	m.CallConv = w.CallConv
	m.DeclaringType = d.typ(w.DeclaringType)
	m.ReturnType = d.typ(w.ReturnType)
	m.TemplateParams = d.typeList(w.TemplateParams)
	m.InitLocals = w.InitLocals
	m.Params = make([]*ir.Param, 0, len(w.Params))
	for _, r := range w.Params {
		wp := d.wParams[r]
		if wp == nil {
			d.failf("unknown parameter #%d of %s", r, w.Name)
		}
		p := d.params[r]
		p.Name = wp.Name
		p.Index = wp.Index
		p.Type = d.typ(wp.Type)
		p.Flags = wp.Flags
		p.DeclaringMethod = m
		m.Params = append(m.Params, p)
	}
}

func (d *decoder) linkMethod(w *wMethod, m *ir.Method) {
	m.ReturnAttributes = d.attrs(w.ReturnAttributes)
	m.ReturnMarshal = w.ReturnMarshal
	m.Template = d.method(w.Template)
	m.TemplateArgs = d.typeList(w.TemplateArgs)
	m.Unspecialized = d.method(w.Unspecialized)
	m.Overrides = d.methodList(w.Overrides)
	m.PInvoke = w.PInvoke
	for _, r := range w.Locals {
		m.Locals = append(m.Locals, d.local(r))
	}
	m.Body = d.block(w.Body)
	m.Attributes = d.attrs(w.Attributes)
	m.Security = d.security(w.Security)
}

func (d *decoder) module(r ref) *ir.Module {
	if r == 0 {
		return nil
	}
	m := d.modules[r]
	if m == nil {
		d.failf("unknown module #%d", r)
	}
	return m
}

func (d *decoder) location(r ref) *ir.Location {
	if r == 0 {
		return nil
	}
	l := d.locations[r]
	if l == nil {
		d.failf("unknown location #%d", r)
	}
	return l
}

// typ resolves a type ref, rebuilding constructed types through the
// program's type table.
func (d *decoder) typ(r ref) *ir.Type {
	if r == 0 {
		return nil
	}
	if t, ok := d.types[r]; ok {
		return t
	}
	w := d.wTypes[r]
	if w == nil || !constructed(w.Kind) {
		d.failf("unknown type #%d", r)
	}
	if d.resolving[r] {
		d.failf("type #%d contains itself", r)
	}
	d.resolving[r] = true
	t := d.prog.Types.Adopt(&ir.Type{
		Kind:         w.Kind,
		Element:      d.typ(w.Element),
		Modifier:     d.typ(w.Modifier),
		Rank:         w.Rank,
		Sizes:        w.Sizes,
		LowerBounds:  w.LowerBounds,
		Template:     d.typ(w.Template),
		TemplateArgs: d.typeList(w.TemplateArgs),
	})
	delete(d.resolving, r)
	d.types[r] = t
	return t
}

func (d *decoder) typeList(rs []ref) []*ir.Type {
	if len(rs) == 0 {
		return nil
	}
	out := make([]*ir.Type, len(rs))
	for i, r := range rs {
		out[i] = d.typ(r)
	}
	return out
}

// method resolves a method ref. Generic instances and members of generic
// instances come from the program's type table.
func (d *decoder) method(r ref) *ir.Method {
	if r == 0 {
		return nil
	}
	if m, ok := d.methods[r]; ok {
		return m
	}
	w := d.wMethods[r]
	if w == nil || !d.derived(w) {
		d.failf("unknown method #%d", r)
	}
	if len(w.Locals) > 0 || w.Body != 0 {
		d.failf("derived method %s carries a body", w.Name)
	}
	var m *ir.Method
	if w.Template != 0 && len(w.TemplateArgs) > 0 {
		m = d.prog.Types.InstantiateMethod(d.method(w.Template), d.typeList(w.TemplateArgs)...)
	} else {
		m = d.prog.Types.SpecializeMethod(d.typ(w.DeclaringType), d.method(w.Unspecialized))
	}
	if len(m.Params) != len(w.Params) {
		d.failf("derived method %s has %d parameters, expected %d", m.FullName(), len(m.Params), len(w.Params))
	}
	d.methods[r] = m
	for i, p := range w.Params {
		d.params[p] = m.Params[i]
		d.unified[p] = true
	}
	return m
}

func (d *decoder) methodList(rs []ref) []*ir.Method {
	if len(rs) == 0 {
		return nil
	}
	out := make([]*ir.Method, len(rs))
	for i, r := range rs {
		out[i] = d.method(r)
	}
	return out
}

func (d *decoder) field(r ref) *ir.Field {
	if r == 0 {
		return nil
	}
	if f, ok := d.fields[r]; ok {
		return f
	}
	w := d.wFields[r]
	if w == nil || !d.derivedField(w) {
		d.failf("unknown field #%d", r)
	}
	f := d.prog.Types.SpecializeField(d.typ(w.DeclaringType), d.field(w.Unspecialized))
	d.fields[r] = f
	return f
}

func (d *decoder) param(r ref) *ir.Param {
	if p, ok := d.params[r]; ok {
		return p
	}
	// parameters of derived methods are mapped when the method resolves
	if w := d.wParams[r]; w != nil {
		d.method(w.DeclaringMethod)
		if p, ok := d.params[r]; ok {
			return p
		}
	}
	d.failf("unknown parameter #%d", r)
	return nil
}

func (d *decoder) local(r ref) *ir.Local {
	if r == 0 {
		return nil
	}
	l := d.locals[r]
	if l == nil {
		d.failf("unknown local #%d", r)
	}
	return l
}

func (d *decoder) block(r ref) *ir.Block {
	if r == 0 {
		return nil
	}
	b := d.blocks[r]
	if b == nil {
		d.failf("unknown block #%d", r)
	}
	return b
}

func (d *decoder) constant(c *wConst) *ir.Constant {
	if c == nil {
		return nil
	}
	return &ir.Constant{Code: c.Code, Value: d.value(c.Value)}
}

func (d *decoder) value(v wValue) any {
	switch v.K {
	case vNil:
		return nil
	case vBool:
		return v.I != 0
	case vI1:
		return int8(v.I)
	case vI2:
		return int16(v.I)
	case vI4:
		return int32(v.I)
	case vI8:
		return v.I
	case vU1:
		return uint8(v.U)
	case vU2:
		return uint16(v.U)
	case vU4:
		return uint32(v.U)
	case vU8:
		return v.U
	case vR4:
		return float32(v.F)
	case vR8:
		return v.F
	case vString:
		return v.S
	case vType:
		return d.typ(v.T)
	case vArray:
		out := make([]ir.AttrArg, len(v.Arr))
		for i, a := range v.Arr {
			out[i] = d.arg(a)
		}
		return out
	case vBoxed:
		if v.Box == nil {
			d.failf("boxed value without payload")
		}
		return d.arg(*v.Box)
	}
	d.failf("unknown value tag %d", v.K)
	return nil
}

func (d *decoder) arg(a wArg) ir.AttrArg {
	return ir.AttrArg{Type: d.typ(a.Type), Value: d.value(a.Value)}
}

func (d *decoder) attrs(ws []wAttr) []*ir.Attribute {
	if len(ws) == 0 {
		return nil
	}
	out := make([]*ir.Attribute, 0, len(ws))
	for _, w := range ws {
		a := &ir.Attribute{Constructor: d.method(w.Ctor)}
		for _, arg := range w.Args {
			a.Args = append(a.Args, d.arg(arg))
		}
		for _, n := range w.Named {
			a.Named = append(a.Named, ir.NamedArg{IsField: n.IsField, Name: n.Name, Arg: d.arg(n.Arg)})
		}
		out = append(out, a)
	}
	return out
}

func (d *decoder) security(ws []wSecurity) []*ir.SecurityAttribute {
	if len(ws) == 0 {
		return nil
	}
	out := make([]*ir.SecurityAttribute, 0, len(ws))
	for _, w := range ws {
		out = append(out, &ir.SecurityAttribute{Action: w.Action, Permissions: d.attrs(w.Permissions)})
	}
	return out
}

func (d *decoder) stmt(w *wStmt) *ir.Stmt {
	if w == nil {
		d.failf("nil statement")
	}
	s := &ir.Stmt{Kind: w.Kind}
	if w.Pos != nil {
		s.Source = ir.SourcePos{File: w.Pos.File, Line: w.Pos.Line, Column: w.Pos.Column}
	}
	x := func(i int) *ir.Expr {
		if i >= len(w.Exprs) {
			return nil
		}
		return d.expr(w.Exprs[i])
	}
	b := func(i int) *ir.Block {
		if i >= len(w.Blocks) {
			return nil
		}
		return d.block(w.Blocks[i])
	}
	switch w.Data {
	case stExpr:
		s.Data = ir.ExprStmtData{Expr: x(0)}
	case stAssign:
		s.Data = ir.AssignData{Target: x(0), Value: x(1)}
	case stReturn:
		s.Data = ir.ReturnData{Value: x(0)}
	case stBranch:
		s.Data = ir.BranchData{
			Cond:    x(0),
			Target:  b(0),
			IfFalse: w.Flags&fIfFalse != 0,
			Short:   w.Flags&fShort != 0,
			Leave:   w.Flags&fLeave != 0,
		}
	case stSwitch:
		sw := ir.SwitchData{Value: x(0)}
		for i := range w.Blocks {
			sw.Targets = append(sw.Targets, b(i))
		}
		s.Data = sw
	case stIf:
		s.Data = ir.IfData{Cond: x(0), Then: b(0), Else: b(1)}
	case stWhile:
		s.Data = ir.WhileData{Cond: x(0), Body: b(0)}
	case stBlock:
		s.Data = ir.BlockData{Block: b(0)}
	case stTry:
		t := ir.TryData{Body: b(0), Finally: b(1), Fault: b(2)}
		for _, c := range w.Catches {
			t.Catches = append(t.Catches, &ir.CatchClause{
				Type:     d.typ(c.Type),
				Variable: d.local(c.Variable),
				Filter:   d.block(c.Filter),
				Body:     d.block(c.Body),
			})
		}
		s.Data = t
	case stThrow:
		s.Data = ir.ThrowData{Value: x(0)}
	case stNop:
		s.Data = ir.NopData{}
	default:
		d.failf("unknown statement tag %d", w.Data)
	}
	return s
}

func (d *decoder) exprs(ws []*wExpr) []*ir.Expr {
	if len(ws) == 0 {
		return nil
	}
	out := make([]*ir.Expr, len(ws))
	for i, w := range ws {
		out[i] = d.expr(w)
	}
	return out
}

func (d *decoder) expr(w *wExpr) *ir.Expr {
	if w == nil {
		return nil
	}
	e := &ir.Expr{Kind: w.Kind, Type: d.typ(w.Type)}
	kid := func(i int) *ir.Expr {
		if i >= len(w.Kids) {
			d.failf("%s expression is missing operand %d", w.Kind, i)
		}
		return d.expr(w.Kids[i])
	}
	// optional leading operand, counted by N
	lead := func() (*ir.Expr, []*wExpr) {
		if w.N > 0 {
			first := kid(0)
			return first, w.Kids[1:]
		}
		return nil, w.Kids
	}
	switch w.Data {
	case 0:
	case exLiteral:
		var v any
		if w.Value != nil {
			v = d.value(*w.Value)
		}
		e.Data = ir.LiteralData{Value: v}
	case exParam:
		e.Data = ir.ParamData{Param: d.param(w.Ref)}
	case exLocal:
		e.Data = ir.LocalData{Local: d.local(w.Ref)}
	case exThis:
		e.Data = ir.ThisData{}
	case exBinary:
		e.Data = ir.BinaryData{
			Op:       ir.BinaryOp(w.Op),
			Left:     kid(0),
			Right:    kid(1),
			Unsigned: w.Flags&fUnsigned != 0,
			Checked:  w.Flags&fChecked != 0,
		}
	case exUnary:
		e.Data = ir.UnaryData{Op: ir.UnaryOp(w.Op), Operand: kid(0)}
	case exCall:
		recv, rest := lead()
		e.Data = ir.CallData{
			Method:      d.method(w.Ref),
			Receiver:    recv,
			Args:        d.exprs(rest),
			Virtual:     w.Flags&fVirtual != 0,
			Tail:        w.Flags&fTail != 0,
			Constrained: d.typ(w.Ref2),
		}
	case exNew:
		e.Data = ir.NewData{Constructor: d.method(w.Ref), Args: d.exprs(w.Kids)}
	case exNewArray:
		if w.N > len(w.Kids) {
			d.failf("array creation has %d sizes but %d operands", w.N, len(w.Kids))
		}
		e.Data = ir.NewArrayData{Sizes: d.exprs(w.Kids[:w.N]), Init: d.exprs(w.Kids[w.N:])}
	case exField:
		recv, _ := lead()
		e.Data = ir.FieldData{Field: d.field(w.Ref), Receiver: recv, Volatile: w.Flags&fVolatile != 0}
	case exIndex:
		arr := kid(0)
		e.Data = ir.IndexData{Array: arr, Indices: d.exprs(w.Kids[1:])}
	case exArrayLength:
		e.Data = ir.ArrayLengthData{Array: kid(0)}
	case exConvert:
		e.Data = ir.ConvertData{
			Value:        kid(0),
			To:           w.To,
			Checked:      w.Flags&fChecked != 0,
			FromUnsigned: w.Flags&fUnsigned != 0,
		}
	case exTypeOp:
		operand, _ := lead()
		e.Data = ir.TypeOpData{Operand: operand, Target: d.typ(w.Ref)}
	case exAddressOf:
		e.Data = ir.AddressOfData{Target: kid(0), ReadOnly: w.Flags&fReadOnly != 0}
	case exIndirect:
		e.Data = ir.IndirectData{Address: kid(0), Volatile: w.Flags&fVolatile != 0}
	case exMethodRef:
		recv, _ := lead()
		e.Data = ir.MethodRefData{Method: d.method(w.Ref), Receiver: recv, Virtual: w.Flags&fVirtual != 0}
	case exStack:
		e.Data = ir.StackData{}
	case exConditional:
		e.Data = ir.ConditionalData{Cond: kid(0), Then: kid(1), Else: kid(2)}
	default:
		d.failf("unknown expression tag %d", w.Data)
	}
	return e
}
