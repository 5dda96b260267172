// Package irtest builds small IR programs for tests: a miniature core
// library, helpers for classes, members and bodies, and structural
// invariant checks.
package irtest

import (
	"ilmerge/internal/ir"
	"ilmerge/internal/wellknown"
)

// Corlib is a miniature core library module.
type Corlib struct {
	Module *ir.Module

	Object            *ir.Type
	ValueType         *ir.Type
	Enum              *ir.Type
	Void              *ir.Type
	Boolean           *ir.Type
	Char              *ir.Type
	SByte             *ir.Type
	Byte              *ir.Type
	Int16             *ir.Type
	UInt16            *ir.Type
	Int32             *ir.Type
	UInt32            *ir.Type
	Int64             *ir.Type
	UInt64            *ir.Type
	Single            *ir.Type
	Double            *ir.Type
	String            *ir.Type
	IntPtr            *ir.Type
	UIntPtr           *ir.Type
	TypedReference    *ir.Type
	Type              *ir.Type
	Attribute         *ir.Type
	Exception         *ir.Type
	Delegate          *ir.Type
	MulticastDelegate *ir.Type
	Array             *ir.Type

	ObjectCtor    *ir.Method
	AttributeCtor *ir.Method
	ExceptionCtor *ir.Method
	ToString      *ir.Method
}

// CorlibToken is the public key token of the core library reference.
var CorlibToken = []byte{0xb7, 0x7a, 0x5c, 0x56, 0x19, 0x34, 0xe0, 0x89}

func newCorlib(w *World) *Corlib {
	mod := &ir.Module{
		Name: wellknown.CoreLibrary.String() + ".dll",
		Location: &ir.Location{
			Kind:           ir.LocationAssembly,
			Name:           wellknown.CoreLibrary.String(),
			Version:        ir.Version{Major: 4},
			PublicKeyToken: CorlibToken,
		},
	}
	w.reg(&mod.Node)
	w.reg(&mod.Location.Node)
	c := &Corlib{Module: mod}

	sys := wellknown.System.String()
	class := func(name wellknown.Name, kind ir.TypeKind, base *ir.Type) *ir.Type {
		t := &ir.Type{
			Kind:      kind,
			Namespace: sys,
			Name:      name.String(),
			Flags:     ir.TypePublic,
			Module:    mod,
			BaseType:  base,
			Code:      ir.CoreTypeCode(name.String()),
		}
		if kind == ir.TypeStruct {
			t.Flags |= ir.TypeSealed | ir.TypeSequentialLayout
		}
		w.reg(&t.Node)
		mod.Types = append(mod.Types, t)
		return t
	}

	c.Object = class(wellknown.Object, ir.TypeClass, nil)
	c.ValueType = class(wellknown.ValueType, ir.TypeClass, c.Object)
	c.Enum = class(wellknown.Enum, ir.TypeClass, c.ValueType)
	c.Void = class(wellknown.Void, ir.TypeStruct, c.ValueType)
	c.Boolean = class(wellknown.Boolean, ir.TypeStruct, c.ValueType)
	c.Char = class(wellknown.Char, ir.TypeStruct, c.ValueType)
	c.SByte = class(wellknown.SByte, ir.TypeStruct, c.ValueType)
	c.Byte = class(wellknown.Byte, ir.TypeStruct, c.ValueType)
	c.Int16 = class(wellknown.Int16, ir.TypeStruct, c.ValueType)
	c.UInt16 = class(wellknown.UInt16, ir.TypeStruct, c.ValueType)
	c.Int32 = class(wellknown.Int32, ir.TypeStruct, c.ValueType)
	c.UInt32 = class(wellknown.UInt32, ir.TypeStruct, c.ValueType)
	c.Int64 = class(wellknown.Int64, ir.TypeStruct, c.ValueType)
	c.UInt64 = class(wellknown.UInt64, ir.TypeStruct, c.ValueType)
	c.Single = class(wellknown.Single, ir.TypeStruct, c.ValueType)
	c.Double = class(wellknown.Double, ir.TypeStruct, c.ValueType)
	c.String = class(wellknown.String, ir.TypeClass, c.Object)
	c.IntPtr = class(wellknown.IntPtr, ir.TypeStruct, c.ValueType)
	c.UIntPtr = class(wellknown.UIntPtr, ir.TypeStruct, c.ValueType)
	c.TypedReference = class(wellknown.TypedReference, ir.TypeStruct, c.ValueType)
	c.Type = class(wellknown.Type, ir.TypeClass, c.Object)
	c.Attribute = class(wellknown.Attribute, ir.TypeClass, c.Object)
	c.Exception = class(wellknown.Exception, ir.TypeClass, c.Object)
	c.Delegate = class(wellknown.Delegate, ir.TypeClass, c.Object)
	c.MulticastDelegate = class(wellknown.MulticastDelegate, ir.TypeClass, c.Delegate)
	c.Array = class(wellknown.Array, ir.TypeClass, c.Object)
	c.Attribute.Flags |= ir.TypeAbstract

	w.Core = c
	c.ObjectCtor = w.Ctor(c.Object, ir.AccessPublic)
	c.AttributeCtor = w.Ctor(c.Attribute, ir.AccessFamily)
	c.ExceptionCtor = w.Ctor(c.Exception, ir.AccessPublic)
	c.ToString = w.Method(c.Object, "ToString", ir.MethodFlags(ir.AccessPublic)|ir.MethodVirtual|ir.MethodHideBySig, c.String)
	return c
}
