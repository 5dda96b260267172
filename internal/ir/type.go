package ir

import (
	"fmt"
	"strings"
)

// TypeKind enumerates the kinds of type nodes.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	TypeClass
	TypeInterface
	TypeStruct
	TypeEnum
	TypeDelegate
	// TypeParam is a generic parameter declared by a type.
	TypeParam
	// TypeMethodParam is a generic parameter declared by a method.
	TypeMethodParam
	TypeArray
	TypePointer
	TypeReference
	TypeOptModifier
	TypeReqModifier
	// TypeInstance is a generic type applied to arguments.
	TypeInstance
)

func (k TypeKind) String() string {
	switch k {
	case TypeClass:
		return "class"
	case TypeInterface:
		return "interface"
	case TypeStruct:
		return "struct"
	case TypeEnum:
		return "enum"
	case TypeDelegate:
		return "delegate"
	case TypeParam:
		return "typeparam"
	case TypeMethodParam:
		return "methodparam"
	case TypeArray:
		return "array"
	case TypePointer:
		return "pointer"
	case TypeReference:
		return "reference"
	case TypeOptModifier:
		return "modopt"
	case TypeReqModifier:
		return "modreq"
	case TypeInstance:
		return "instance"
	default:
		return fmt.Sprintf("TypeKind(%d)", k)
	}
}

// IsNominal reports whether the kind is a declared (def/ref-able) type.
func (k TypeKind) IsNominal() bool {
	switch k {
	case TypeClass, TypeInterface, TypeStruct, TypeEnum, TypeDelegate:
		return true
	}
	return false
}

// IsStructural reports whether the kind can only be referenced through a
// type specification.
func (k TypeKind) IsStructural() bool {
	return k != TypeInvalid && !k.IsNominal()
}

// TypeCode identifies the core library types that have a dedicated element
// encoding in signatures.
type TypeCode uint8

const (
	CodeNone TypeCode = iota
	CodeVoid
	CodeBoolean
	CodeChar
	CodeSByte
	CodeByte
	CodeInt16
	CodeUInt16
	CodeInt32
	CodeUInt32
	CodeInt64
	CodeUInt64
	CodeSingle
	CodeDouble
	CodeString
	CodeTypedReference
	CodeIntPtr
	CodeUIntPtr
	CodeObject
)

var typeCodeNames = [...]string{
	CodeNone:           "",
	CodeVoid:           "Void",
	CodeBoolean:        "Boolean",
	CodeChar:           "Char",
	CodeSByte:          "SByte",
	CodeByte:           "Byte",
	CodeInt16:          "Int16",
	CodeUInt16:         "UInt16",
	CodeInt32:          "Int32",
	CodeUInt32:         "UInt32",
	CodeInt64:          "Int64",
	CodeUInt64:         "UInt64",
	CodeSingle:         "Single",
	CodeDouble:         "Double",
	CodeString:         "String",
	CodeTypedReference: "TypedReference",
	CodeIntPtr:         "IntPtr",
	CodeUIntPtr:        "UIntPtr",
	CodeObject:         "Object",
}

func (c TypeCode) String() string {
	if int(c) < len(typeCodeNames) {
		return typeCodeNames[c]
	}
	return fmt.Sprintf("TypeCode(%d)", c)
}

// CoreTypeCode maps a System type name to its code.
func CoreTypeCode(name string) TypeCode {
	for i, n := range typeCodeNames {
		if i > 0 && n == name {
			return TypeCode(i)
		}
	}
	return CodeNone
}

// IsInteger reports whether the code is an integral primitive (Boolean and Char included).
func (c TypeCode) IsInteger() bool {
	switch c {
	case CodeBoolean, CodeChar, CodeSByte, CodeByte, CodeInt16, CodeUInt16, CodeInt32, CodeUInt32, CodeInt64, CodeUInt64:
		return true
	}
	return false
}

// IsUnsigned reports whether the code is an unsigned integral primitive.
func (c TypeCode) IsUnsigned() bool {
	switch c {
	case CodeBoolean, CodeChar, CodeByte, CodeUInt16, CodeUInt32, CodeUInt64, CodeUIntPtr:
		return true
	}
	return false
}

// TypeFlags mirrors the TypeAttributes bit set.
type TypeFlags uint32

const (
	TypeNotPublic         TypeFlags = 0x00000000
	TypePublic            TypeFlags = 0x00000001
	TypeNestedPublic      TypeFlags = 0x00000002
	TypeNestedPrivate     TypeFlags = 0x00000003
	TypeNestedFamily      TypeFlags = 0x00000004
	TypeNestedAssembly    TypeFlags = 0x00000005
	TypeNestedFamANDAssem TypeFlags = 0x00000006
	TypeNestedFamORAssem  TypeFlags = 0x00000007
	TypeVisibilityMask    TypeFlags = 0x00000007
	TypeSequentialLayout  TypeFlags = 0x00000008
	TypeExplicitLayout    TypeFlags = 0x00000010
	TypeLayoutMask        TypeFlags = 0x00000018
	TypeInterfaceFlag     TypeFlags = 0x00000020
	TypeAbstract          TypeFlags = 0x00000080
	TypeSealed            TypeFlags = 0x00000100
	TypeSpecialName       TypeFlags = 0x00000400
	TypeRTSpecialName     TypeFlags = 0x00000800
	TypeImport            TypeFlags = 0x00001000
	TypeSerializable      TypeFlags = 0x00002000
	TypeUnicodeClass      TypeFlags = 0x00010000
	TypeAutoClass         TypeFlags = 0x00020000
	TypeHasSecurity       TypeFlags = 0x00040000
	TypeBeforeFieldInit   TypeFlags = 0x00100000
)

// GenericParamFlags mirrors GenericParamAttributes.
type GenericParamFlags uint16

const (
	GenericCovariant                 GenericParamFlags = 0x0001
	GenericContravariant             GenericParamFlags = 0x0002
	GenericReferenceTypeConstraint   GenericParamFlags = 0x0004
	GenericNotNullableValueType      GenericParamFlags = 0x0008
	GenericDefaultConstructorPresent GenericParamFlags = 0x0010
)

// ClassLayout carries explicit packing and size.
type ClassLayout struct {
	PackingSize uint16
	ClassSize   uint32
}

// Type is a node in the type graph: a declared type, a generic parameter or
// a constructed (structural) type.
type Type struct {
	Node

	Kind      TypeKind
	Namespace string
	Name      string
	Flags     TypeFlags
	Code      TypeCode

	// Module is the home module of a declared type. Structural types have none.
	Module        *Module
	DeclaringType *Type

	BaseType    *Type
	Interfaces  []*Type
	NestedTypes []*Type
	Fields      []*Field
	Methods     []*Method
	Properties  []*Property
	Events      []*Event

	// TemplateParams are the generic parameters of a generic definition.
	TemplateParams []*Type
	// Template is the generic definition of an instance, or the original of a
	// duplicate produced in template-recording mode.
	Template     *Type
	TemplateArgs []*Type

	// Element is the element type of arrays, pointers, references and the
	// modified type of modifiers.
	Element  *Type
	Modifier *Type
	// Rank 0 denotes a single-dimensional zero-based vector.
	Rank        int
	Sizes       []int
	LowerBounds []int

	// Generic parameter data.
	ParamIndex      int
	DeclaringMethod *Method
	ParamFlags      GenericParamFlags
	Constraints     []*Type

	Layout     *ClassLayout
	Attributes []*Attribute
	Security   []*SecurityAttribute
}

// IsValueType reports whether values of t are stored inline.
func (t *Type) IsValueType() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case TypeStruct, TypeEnum:
		return true
	case TypeInstance:
		return t.Template.IsValueType()
	case TypeOptModifier, TypeReqModifier:
		return t.Element.IsValueType()
	}
	return false
}

// IsGenericParam reports whether t is a type or method generic parameter.
func (t *Type) IsGenericParam() bool {
	return t != nil && (t.Kind == TypeParam || t.Kind == TypeMethodParam)
}

// IsGenericDefinition reports whether t declares generic parameters.
func (t *Type) IsGenericDefinition() bool {
	return t != nil && t.Kind.IsNominal() && len(t.TemplateParams) > 0
}

// IsNested reports whether t is declared inside another type.
func (t *Type) IsNested() bool {
	return t != nil && t.DeclaringType != nil && t.Kind.IsNominal()
}

// HomeModule returns the module that declares t, walking out of nested types.
func (t *Type) HomeModule() *Module {
	for cur := t; cur != nil; cur = cur.DeclaringType {
		if cur.Module != nil {
			return cur.Module
		}
		if !cur.Kind.IsNominal() {
			return nil
		}
	}
	return nil
}

// EnumUnderlying returns the type of the value__ field of an enum.
func (t *Type) EnumUnderlying() *Type {
	if t == nil || t.Kind != TypeEnum {
		return nil
	}
	for _, f := range t.Fields {
		if !f.Flags.Has(FieldStatic) {
			return f.Type
		}
	}
	return nil
}

// FullName returns Namespace.Name with '+' separating nested types.
func (t *Type) FullName() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeArray:
		if t.Rank <= 1 && len(t.Sizes) == 0 && len(t.LowerBounds) == 0 && t.Rank == 0 {
			return t.Element.FullName() + "[]"
		}
		return t.Element.FullName() + "[" + strings.Repeat(",", max(t.Rank-1, 0)) + "]"
	case TypePointer:
		return t.Element.FullName() + "*"
	case TypeReference:
		return t.Element.FullName() + "&"
	case TypeOptModifier, TypeReqModifier:
		return t.Element.FullName()
	case TypeInstance:
		var b strings.Builder
		b.WriteString(t.Template.FullName())
		b.WriteByte('[')
		for i, a := range t.TemplateArgs {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(a.FullName())
		}
		b.WriteByte(']')
		return b.String()
	case TypeParam, TypeMethodParam:
		return t.Name
	}
	if t.DeclaringType != nil {
		return t.DeclaringType.FullName() + "+" + t.Name
	}
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

func (t *Type) String() string {
	return t.FullName()
}
