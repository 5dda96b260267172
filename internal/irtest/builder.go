package irtest

import (
	"fmt"

	"ilmerge/internal/ir"
	"ilmerge/internal/wellknown"
)

// World is a program with a core library and one application module.
type World struct {
	Program *ir.Program
	Core    *Corlib
	// App is the module under test.
	App *ir.Module
}

// NewWorld returns a program holding a core library and an empty
// application assembly named app.
func NewWorld(app string) *World {
	w := &World{Program: ir.NewProgram()}
	w.Core = newCorlib(w)
	w.App = w.NewModule(app)
	w.App.Assembly = &ir.AssemblyInfo{Name: app, Version: ir.Version{Major: 1}}
	w.Program.Modules = append(w.Program.Modules, w.Core.Module, w.App)
	return w
}

func (w *World) reg(n *ir.Node) {
	w.Program.Arena.Register(n)
}

// Types returns the program's constructed-type interner.
func (w *World) Types() *ir.Types { return w.Program.Types }

// NewModule creates a module reachable as an assembly of the same name. It
// is not added to the program.
func (w *World) NewModule(name string) *ir.Module {
	m := &ir.Module{
		Name:     name + ".dll",
		Location: &ir.Location{Kind: ir.LocationAssembly, Name: name, Version: ir.Version{Major: 1}},
	}
	w.reg(&m.Node)
	w.reg(&m.Location.Node)
	return m
}

// Class declares a public class in mod. A nil base defaults to Object.
func (w *World) Class(mod *ir.Module, ns, name string, base *ir.Type) *ir.Type {
	if base == nil {
		base = w.Core.Object
	}
	return w.declare(mod, &ir.Type{Kind: ir.TypeClass, Namespace: ns, Name: name, Flags: ir.TypePublic, BaseType: base})
}

// Struct declares a public sealed value type in mod.
func (w *World) Struct(mod *ir.Module, ns, name string) *ir.Type {
	return w.declare(mod, &ir.Type{
		Kind:      ir.TypeStruct,
		Namespace: ns,
		Name:      name,
		Flags:     ir.TypePublic | ir.TypeSealed | ir.TypeSequentialLayout,
		BaseType:  w.Core.ValueType,
	})
}

// Interface declares a public interface in mod.
func (w *World) Interface(mod *ir.Module, ns, name string) *ir.Type {
	return w.declare(mod, &ir.Type{
		Kind:      ir.TypeInterface,
		Namespace: ns,
		Name:      name,
		Flags:     ir.TypePublic | ir.TypeInterfaceFlag | ir.TypeAbstract,
	})
}

// Enum declares a public enum over Int32 with the given members.
func (w *World) Enum(mod *ir.Module, ns, name string, members ...string) *ir.Type {
	t := w.declare(mod, &ir.Type{
		Kind:      ir.TypeEnum,
		Namespace: ns,
		Name:      name,
		Flags:     ir.TypePublic | ir.TypeSealed,
		BaseType:  w.Core.Enum,
	})
	w.Field(t, wellknown.EnumValueField.String(), w.Core.Int32,
		ir.FieldFlags(ir.AccessPublic)|ir.FieldSpecialName|ir.FieldRTSpecialName)
	for i, m := range members {
		f := w.Field(t, m, t, ir.FieldFlags(ir.AccessPublic)|ir.FieldStatic|ir.FieldLiteral|ir.FieldHasDefault)
		f.Default = &ir.Constant{Code: ir.CodeInt32, Value: int32(i)}
	}
	return t
}

// Generic declares a public generic class with the named type parameters.
func (w *World) Generic(mod *ir.Module, ns, name string, params ...string) *ir.Type {
	t := w.Class(mod, ns, fmt.Sprintf("%s`%d", name, len(params)), nil)
	for i, p := range params {
		tp := &ir.Type{Kind: ir.TypeParam, Name: p, ParamIndex: i, DeclaringType: t}
		w.reg(&tp.Node)
		t.TemplateParams = append(t.TemplateParams, tp)
	}
	return t
}

// Nested declares a nested public class inside outer.
func (w *World) Nested(outer *ir.Type, name string) *ir.Type {
	t := &ir.Type{
		Kind:          ir.TypeClass,
		Name:          name,
		Flags:         ir.TypeNestedPublic,
		BaseType:      w.Core.Object,
		DeclaringType: outer,
	}
	w.reg(&t.Node)
	outer.NestedTypes = append(outer.NestedTypes, t)
	return t
}

func (w *World) declare(mod *ir.Module, t *ir.Type) *ir.Type {
	t.Module = mod
	w.reg(&t.Node)
	mod.Types = append(mod.Types, t)
	return t
}

// Field adds a field to owner.
func (w *World) Field(owner *ir.Type, name string, typ *ir.Type, flags ir.FieldFlags) *ir.Field {
	f := &ir.Field{Name: name, Type: typ, Flags: flags, DeclaringType: owner, Offset: -1}
	w.reg(&f.Node)
	owner.Fields = append(owner.Fields, f)
	return f
}

// Method adds a method with parameters named a, b, c, ... A nil return
// type means void.
func (w *World) Method(owner *ir.Type, name string, flags ir.MethodFlags, ret *ir.Type, params ...*ir.Type) *ir.Method {
	if ret == nil {
		ret = w.Core.Void
	}
	m := &ir.Method{
		Name:          name,
		Flags:         flags,
		DeclaringType: owner,
		ReturnType:    ret,
		InitLocals:    true,
	}
	if !m.IsStatic() {
		m.CallConv |= ir.CallHasThis
	}
	w.reg(&m.Node)
	for i, pt := range params {
		p := &ir.Param{Name: string(rune('a' + i)), Index: i, Type: pt, DeclaringMethod: m}
		w.reg(&p.Node)
		m.Params = append(m.Params, p)
	}
	owner.Methods = append(owner.Methods, m)
	return m
}

// Ctor adds an instance constructor with the given access.
func (w *World) Ctor(owner *ir.Type, access ir.Access, params ...*ir.Type) *ir.Method {
	flags := ir.MethodFlags(access) | ir.MethodHideBySig | ir.MethodSpecialName | ir.MethodRTSpecialName
	return w.Method(owner, wellknown.Ctor.String(), flags, nil, params...)
}

// MethodParam declares a generic parameter on m.
func (w *World) MethodParam(m *ir.Method, name string) *ir.Type {
	tp := &ir.Type{Kind: ir.TypeMethodParam, Name: name, ParamIndex: len(m.TemplateParams), DeclaringMethod: m}
	w.reg(&tp.Node)
	m.TemplateParams = append(m.TemplateParams, tp)
	m.CallConv |= ir.CallGeneric
	return tp
}

// Local adds a local variable to m.
func (w *World) Local(m *ir.Method, name string, typ *ir.Type) *ir.Local {
	l := &ir.Local{Name: name, Type: typ}
	w.reg(&l.Node)
	m.Locals = append(m.Locals, l)
	return l
}

// Block creates a registered block.
func (w *World) Block(stmts ...*ir.Stmt) *ir.Block {
	b := &ir.Block{Stmts: stmts}
	w.reg(&b.Node)
	return b
}

// Body sets m's body to a block holding stmts and returns it.
func (w *World) Body(m *ir.Method, stmts ...*ir.Stmt) *ir.Block {
	m.Body = w.Block(stmts...)
	return m.Body
}

// I4 is an Int32 literal.
func (w *World) I4(v int32) *ir.Expr {
	return ir.Lit(w.Core.Int32, v)
}

// Str is a string literal.
func (w *World) Str(s string) *ir.Expr {
	return ir.Lit(w.Core.String, s)
}

// This is the implicit receiver of owner's instance methods.
func (w *World) This(owner *ir.Type) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprThis, Type: owner, Data: ir.ThisData{}}
}

// FieldRef reads f from receiver (nil for static fields).
func (w *World) FieldRef(f *ir.Field, receiver *ir.Expr) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprField, Type: f.Type, Data: ir.FieldData{Field: f, Receiver: receiver}}
}

// Attr applies the attribute constructed by ctor with positional args.
func (w *World) Attr(ctor *ir.Method, args ...ir.AttrArg) *ir.Attribute {
	return &ir.Attribute{Constructor: ctor, Args: args}
}

// AttributeClass declares a sealed attribute class with a constructor taking params.
func (w *World) AttributeClass(mod *ir.Module, ns, name string, params ...*ir.Type) (*ir.Type, *ir.Method) {
	t := w.Class(mod, ns, name, w.Core.Attribute)
	t.Flags |= ir.TypeSealed
	return t, w.Ctor(t, ir.AccessPublic, params...)
}
