package ir

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Types interns constructed types and generic member instances so that equal
// constructions share one node. Keys are built from component NodeIDs.
type Types struct {
	arena *Arena

	mu      sync.Mutex
	types   map[typeKey]*Type
	methods map[memberKey]*Method
	fields  map[memberKey]*Field
}

type typeKey struct {
	Kind  TypeKind
	Elem  NodeID
	Mod   NodeID
	Rank  int
	Shape string
}

type memberKey struct {
	Base  NodeID
	Owner NodeID
	Args  string
}

// NewTypes returns an interner allocating node IDs from arena.
func NewTypes(arena *Arena) *Types {
	return &Types{
		arena:   arena,
		types:   make(map[typeKey]*Type, 64),
		methods: make(map[memberKey]*Method, 32),
		fields:  make(map[memberKey]*Field, 32),
	}
}

// Arena returns the arena used for new nodes.
func (in *Types) Arena() *Arena { return in.arena }

func (in *Types) id(n *Node) NodeID {
	return in.arena.Register(n)
}

func (in *Types) idList(ts []*Type) string {
	buf := make([]byte, 0, 4*len(ts))
	for _, t := range ts {
		var id NodeID
		if t != nil {
			id = in.id(&t.Node)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(id))
	}
	return string(buf)
}

func (in *Types) keyOf(t *Type) (typeKey, bool) {
	switch t.Kind {
	case TypeArray:
		return typeKey{
			Kind:  TypeArray,
			Elem:  in.id(&t.Element.Node),
			Rank:  t.Rank,
			Shape: fmt.Sprint(t.Sizes, t.LowerBounds),
		}, true
	case TypePointer, TypeReference:
		return typeKey{Kind: t.Kind, Elem: in.id(&t.Element.Node)}, true
	case TypeOptModifier, TypeReqModifier:
		return typeKey{Kind: t.Kind, Elem: in.id(&t.Element.Node), Mod: in.id(&t.Modifier.Node)}, true
	case TypeInstance:
		return typeKey{Kind: TypeInstance, Elem: in.id(&t.Template.Node), Shape: in.idList(t.TemplateArgs)}, true
	}
	return typeKey{}, false
}

// Adopt interns an already built constructed type. It returns the existing
// node when an equal construction is known, and t otherwise. Nominal types
// and generic parameters are returned unchanged.
func (in *Types) Adopt(t *Type) *Type {
	if t == nil {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	key, ok := in.keyOf(t)
	if !ok {
		return t
	}
	if existing, ok := in.types[key]; ok {
		return existing
	}
	in.id(&t.Node)
	in.types[key] = t
	return t
}

func (in *Types) intern(t *Type) *Type {
	in.mu.Lock()
	defer in.mu.Unlock()
	key, _ := in.keyOf(t)
	if existing, ok := in.types[key]; ok {
		return existing
	}
	t.ID = in.arena.Next()
	in.types[key] = t
	return t
}

// Vector returns the single-dimensional zero-based array of elem.
func (in *Types) Vector(elem *Type) *Type {
	return in.ArrayOf(elem, 0, nil, nil)
}

// ArrayOf returns an array type. Rank 0 is a vector; sizes and lower bounds
// apply to general arrays only.
func (in *Types) ArrayOf(elem *Type, rank int, sizes, lowerBounds []int) *Type {
	return in.intern(&Type{Kind: TypeArray, Element: elem, Rank: rank, Sizes: sizes, LowerBounds: lowerBounds})
}

// PointerTo returns the unmanaged pointer to elem.
func (in *Types) PointerTo(elem *Type) *Type {
	return in.intern(&Type{Kind: TypePointer, Element: elem})
}

// ReferenceTo returns the managed reference to elem.
func (in *Types) ReferenceTo(elem *Type) *Type {
	return in.intern(&Type{Kind: TypeReference, Element: elem})
}

// Modified returns elem carrying a custom modifier.
func (in *Types) Modified(elem, modifier *Type, required bool) *Type {
	kind := TypeOptModifier
	if required {
		kind = TypeReqModifier
	}
	return in.intern(&Type{Kind: kind, Element: elem, Modifier: modifier})
}

// Instantiate applies a generic type definition to arguments.
func (in *Types) Instantiate(template *Type, args ...*Type) *Type {
	return in.intern(&Type{Kind: TypeInstance, Template: template, TemplateArgs: args})
}

// Rebuild interns a structural type equal to t except for its components.
// It is used by substitution and duplication to produce canonical nodes.
func (in *Types) Rebuild(t *Type, elem, modifier *Type, args []*Type) *Type {
	switch t.Kind {
	case TypeArray:
		return in.ArrayOf(elem, t.Rank, t.Sizes, t.LowerBounds)
	case TypePointer:
		return in.PointerTo(elem)
	case TypeReference:
		return in.ReferenceTo(elem)
	case TypeOptModifier, TypeReqModifier:
		return in.Modified(elem, modifier, t.Kind == TypeReqModifier)
	case TypeInstance:
		return in.Instantiate(elem, args...)
	}
	return t
}

// InstantiateMethod applies a generic method definition to arguments. The
// signature of the instance is substituted.
func (in *Types) InstantiateMethod(generic *Method, args ...*Type) *Method {
	in.mu.Lock()
	key := memberKey{Base: in.id(&generic.Node), Args: in.idList(args)}
	if m, ok := in.methods[key]; ok {
		in.mu.Unlock()
		return m
	}
	in.mu.Unlock()

	// a specialized member already carries its owner's type arguments
	sub := &Subst{Types: in, MethodArgs: args}
	inst := &Method{
		Name:          generic.Name,
		Flags:         generic.Flags,
		ImplFlags:     generic.ImplFlags,
		CallConv:      generic.CallConv,
		DeclaringType: generic.DeclaringType,
		Template:      generic,
		TemplateArgs:  args,
	}
	sub.signature(generic, inst)

	in.mu.Lock()
	defer in.mu.Unlock()
	if m, ok := in.methods[key]; ok {
		return m
	}
	inst.ID = in.arena.Next()
	in.methods[key] = inst
	return inst
}

// SpecializeMethod returns the member of the generic instance owner that
// corresponds to m, a method of owner's template.
func (in *Types) SpecializeMethod(owner *Type, m *Method) *Method {
	if owner == nil || owner.Kind != TypeInstance {
		return m
	}
	in.mu.Lock()
	key := memberKey{Base: in.id(&m.Node), Owner: in.id(&owner.Node)}
	if out, ok := in.methods[key]; ok {
		in.mu.Unlock()
		return out
	}
	in.mu.Unlock()

	sub := &Subst{Types: in, TypeArgs: owner.TemplateArgs}
	spec := &Method{
		Name:           m.Name,
		Flags:          m.Flags,
		ImplFlags:      m.ImplFlags,
		CallConv:       m.CallConv,
		DeclaringType:  owner,
		TemplateParams: m.TemplateParams,
		Unspecialized:  m,
	}
	sub.signature(m, spec)

	in.mu.Lock()
	defer in.mu.Unlock()
	if out, ok := in.methods[key]; ok {
		return out
	}
	spec.ID = in.arena.Next()
	in.methods[key] = spec
	return spec
}

// SpecializeField returns the field of the generic instance owner that
// corresponds to f, a field of owner's template.
func (in *Types) SpecializeField(owner *Type, f *Field) *Field {
	if owner == nil || owner.Kind != TypeInstance {
		return f
	}
	in.mu.Lock()
	key := memberKey{Base: in.id(&f.Node), Owner: in.id(&owner.Node)}
	if out, ok := in.fields[key]; ok {
		in.mu.Unlock()
		return out
	}
	in.mu.Unlock()

	sub := &Subst{Types: in, TypeArgs: owner.TemplateArgs}
	spec := &Field{
		Name:          f.Name,
		Flags:         f.Flags,
		Type:          sub.Type(f.Type),
		DeclaringType: owner,
		Offset:        -1,
		Unspecialized: f,
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if out, ok := in.fields[key]; ok {
		return out
	}
	spec.ID = in.arena.Next()
	in.fields[key] = spec
	return spec
}

// Len returns the number of interned constructed types.
func (in *Types) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.types)
}
