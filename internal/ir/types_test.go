package ir

import "testing"

func newClass(a *Arena, ns, name string) *Type {
	t := &Type{Kind: TypeClass, Namespace: ns, Name: name}
	a.Register(&t.Node)
	return t
}

func TestTypesInternConstructedTypes(t *testing.T) {
	a := NewArena()
	in := NewTypes(a)
	i4 := newClass(a, "System", "Int32")

	if in.Vector(i4) != in.Vector(i4) {
		t.Fatalf("vector of the same element must intern to one node")
	}
	if in.Vector(i4) == in.ArrayOf(i4, 2, nil, nil) {
		t.Fatalf("vector and rank-2 array must differ")
	}
	if in.PointerTo(i4) == in.ReferenceTo(i4) {
		t.Fatalf("pointer and reference must differ")
	}
	if in.ArrayOf(i4, 2, []int{3}, nil) == in.ArrayOf(i4, 2, []int{4}, nil) {
		t.Fatalf("array shapes must be part of the key")
	}
	if got := in.Vector(i4).ID; !got.IsValid() {
		t.Fatalf("interned type has no id")
	}
}

func TestTypesInstantiateDedupsAcrossCallSites(t *testing.T) {
	a := NewArena()
	in := NewTypes(a)
	list := newClass(a, "Coll", "List`1")
	param := &Type{Kind: TypeParam, Name: "T", ParamIndex: 0}
	a.Register(&param.Node)
	list.TemplateParams = []*Type{param}
	str := newClass(a, "System", "String")

	first := in.Instantiate(list, str)
	second := in.Instantiate(list, str)
	if first != second {
		t.Fatalf("List<string> instantiated twice yields two nodes")
	}
	if first.FullName() != "Coll.List`1[System.String]" {
		t.Fatalf("unexpected name %q", first.FullName())
	}
}

func TestSubstRebuildsOnlyChangedTypes(t *testing.T) {
	a := NewArena()
	in := NewTypes(a)
	list := newClass(a, "Coll", "List`1")
	tp := &Type{Kind: TypeParam, Name: "T", ParamIndex: 0}
	a.Register(&tp.Node)
	list.TemplateParams = []*Type{tp}
	i4 := newClass(a, "System", "Int32")
	str := newClass(a, "System", "String")

	s := &Subst{Types: in, TypeArgs: []*Type{i4}}
	if got := s.Type(in.Vector(tp)); got != in.Vector(i4) {
		t.Fatalf("T[] -> %v, want Int32[]", got)
	}
	fixed := in.Instantiate(list, str)
	if got := s.Type(fixed); got != fixed {
		t.Fatalf("closed instance must be returned unchanged")
	}
	open := in.Instantiate(list, tp)
	if got := s.Type(open); got != in.Instantiate(list, i4) {
		t.Fatalf("List<T> -> %v", got)
	}
}

func TestSpecializeMethodSubstitutesSignature(t *testing.T) {
	a := NewArena()
	in := NewTypes(a)
	list := newClass(a, "Coll", "List`1")
	tp := &Type{Kind: TypeParam, Name: "T", ParamIndex: 0}
	a.Register(&tp.Node)
	list.TemplateParams = []*Type{tp}
	add := &Method{Name: "Add", DeclaringType: list}
	a.Register(&add.Node)
	add.Params = []*Param{{Name: "item", Type: tp, DeclaringMethod: add}}
	list.Methods = []*Method{add}
	i4 := newClass(a, "System", "Int32")

	inst := in.Instantiate(list, i4)
	spec := in.SpecializeMethod(inst, add)
	if spec != in.SpecializeMethod(inst, add) {
		t.Fatalf("specialization is not memoized")
	}
	if spec.Unspecialized != add || spec.DeclaringType != inst {
		t.Fatalf("specialized method has wrong links")
	}
	if spec.Params[0].Type != i4 {
		t.Fatalf("param type %v, want Int32", spec.Params[0].Type)
	}
	if add.Params[0].Type != tp {
		t.Fatalf("specialization mutated the definition")
	}
}

func TestInstantiateMethod(t *testing.T) {
	a := NewArena()
	in := NewTypes(a)
	host := newClass(a, "", "Host")
	mp := &Type{Kind: TypeMethodParam, Name: "U", ParamIndex: 0}
	a.Register(&mp.Node)
	id := &Method{Name: "Id", DeclaringType: host, Flags: MethodStatic, TemplateParams: []*Type{mp}, ReturnType: mp}
	a.Register(&id.Node)
	id.Params = []*Param{{Name: "x", Type: mp, DeclaringMethod: id}}
	str := newClass(a, "System", "String")

	inst := in.InstantiateMethod(id, str)
	if !inst.IsGenericInstance() || inst.Template != id {
		t.Fatalf("instance not linked to its definition")
	}
	if inst.ReturnType != str || inst.Params[0].Type != str {
		t.Fatalf("signature not substituted")
	}
	if inst.Definition() != id {
		t.Fatalf("Definition() = %v", inst.Definition())
	}
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	if v != (Version{1, 2, 3, 0}) {
		t.Fatalf("got %v", v)
	}
	if _, err := ParseVersion("1.2.3.4.5"); err == nil {
		t.Fatalf("expected error for five parts")
	}
	if _, err := ParseVersion("1.x"); err == nil {
		t.Fatalf("expected error for non-numeric part")
	}
}
