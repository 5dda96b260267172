// Package wellknown is the process-wide, read-only registry of names the
// emitter and duplicator need to recognise: core library types, special
// member names and the attributes the writer treats specially.
package wellknown

import "sync"

// Name is an interned well-known identifier.
type Name uint16

const (
	NameNone Name = iota

	// namespaces
	System
	SystemReflection
	SystemRuntimeCompilerServices
	SystemRuntimeInteropServices
	SystemSecurity
	SystemSecurityPermissions

	// core library
	CoreLibrary
	Object
	ValueType
	Enum
	Void
	Boolean
	Char
	SByte
	Byte
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Single
	Double
	String
	IntPtr
	UIntPtr
	TypedReference
	Type
	Attribute
	Exception
	Delegate
	MulticastDelegate
	Array
	Decimal

	// special member names
	Ctor
	CCtor
	ModuleType
	EnumValueField
	Invoke
	BeginInvoke
	EndInvoke

	// attributes with metadata meaning
	SerializableAttribute
	ComImportAttribute
	DllImportAttribute
	MarshalAsAttribute
	StructLayoutAttribute
	FieldOffsetAttribute
	MethodImplAttribute
	SpecialNameAttribute
	CompilerGeneratedAttribute

	nameCount
)

var nameText = [nameCount]string{
	NameNone: "",

	System:                        "System",
	SystemReflection:              "System.Reflection",
	SystemRuntimeCompilerServices: "System.Runtime.CompilerServices",
	SystemRuntimeInteropServices:  "System.Runtime.InteropServices",
	SystemSecurity:                "System.Security",
	SystemSecurityPermissions:     "System.Security.Permissions",

	CoreLibrary:       "mscorlib",
	Object:            "Object",
	ValueType:         "ValueType",
	Enum:              "Enum",
	Void:              "Void",
	Boolean:           "Boolean",
	Char:              "Char",
	SByte:             "SByte",
	Byte:              "Byte",
	Int16:             "Int16",
	UInt16:            "UInt16",
	Int32:             "Int32",
	UInt32:            "UInt32",
	Int64:             "Int64",
	UInt64:            "UInt64",
	Single:            "Single",
	Double:            "Double",
	String:            "String",
	IntPtr:            "IntPtr",
	UIntPtr:           "UIntPtr",
	TypedReference:    "TypedReference",
	Type:              "Type",
	Attribute:         "Attribute",
	Exception:         "Exception",
	Delegate:          "Delegate",
	MulticastDelegate: "MulticastDelegate",
	Array:             "Array",
	Decimal:           "Decimal",

	Ctor:           ".ctor",
	CCtor:          ".cctor",
	ModuleType:     "<Module>",
	EnumValueField: "value__",
	Invoke:         "Invoke",
	BeginInvoke:    "BeginInvoke",
	EndInvoke:      "EndInvoke",

	SerializableAttribute:      "SerializableAttribute",
	ComImportAttribute:         "ComImportAttribute",
	DllImportAttribute:         "DllImportAttribute",
	MarshalAsAttribute:         "MarshalAsAttribute",
	StructLayoutAttribute:      "StructLayoutAttribute",
	FieldOffsetAttribute:       "FieldOffsetAttribute",
	MethodImplAttribute:        "MethodImplAttribute",
	SpecialNameAttribute:       "SpecialNameAttribute",
	CompilerGeneratedAttribute: "CompilerGeneratedAttribute",
}

var byText = sync.OnceValue(func() map[string]Name {
	m := make(map[string]Name, nameCount)
	for i := Name(1); i < nameCount; i++ {
		m[nameText[i]] = i
	}
	return m
})

// String returns the text of the name.
func (n Name) String() string {
	if n >= nameCount {
		return ""
	}
	return nameText[n]
}

// Lookup finds the interned name for s.
func Lookup(s string) (Name, bool) {
	n, ok := byText()[s]
	return n, ok
}

// Is reports whether s is the text of n.
func Is(s string, n Name) bool {
	return n < nameCount && nameText[n] == s
}
