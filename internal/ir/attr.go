package ir

// Attribute is a custom attribute application.
type Attribute struct {
	Constructor *Method
	Args        []AttrArg
	Named       []NamedArg
}

// Type returns the attribute class.
func (a *Attribute) Type() *Type {
	if a == nil || a.Constructor == nil {
		return nil
	}
	return a.Constructor.DeclaringType
}

// AttrArg is a custom attribute argument value.
//
// Value holds a Go value matching Type: bool, uint16 for Char, the sized
// integer types, float32, float64, string, *Type for System.Type arguments,
// []AttrArg for arrays, and AttrArg for a boxed value when Type is
// System.Object. A nil Value encodes null.
type AttrArg struct {
	Type  *Type
	Value any
}

// NamedArg sets a field or property of the attribute instance.
type NamedArg struct {
	IsField bool
	Name    string
	Arg     AttrArg
}

// SecurityAction is the DeclSecurity action code.
type SecurityAction uint16

const (
	SecurityRequest           SecurityAction = 1
	SecurityDemand            SecurityAction = 2
	SecurityAssert            SecurityAction = 3
	SecurityDeny              SecurityAction = 4
	SecurityPermitOnly        SecurityAction = 5
	SecurityLinkDemand        SecurityAction = 6
	SecurityInheritanceDemand SecurityAction = 7
	SecurityRequestMinimum    SecurityAction = 8
	SecurityRequestOptional   SecurityAction = 9
	SecurityRequestRefuse     SecurityAction = 10
)

// SecurityAttribute is a declarative security permission set.
type SecurityAttribute struct {
	Action      SecurityAction
	Permissions []*Attribute
}

// NativeType is a marshalling descriptor tag.
type NativeType uint8

const (
	NativeBoolean    NativeType = 0x02
	NativeI1         NativeType = 0x03
	NativeU1         NativeType = 0x04
	NativeI2         NativeType = 0x05
	NativeU2         NativeType = 0x06
	NativeI4         NativeType = 0x07
	NativeU4         NativeType = 0x08
	NativeI8         NativeType = 0x09
	NativeU8         NativeType = 0x0A
	NativeR4         NativeType = 0x0B
	NativeR8         NativeType = 0x0C
	NativeBStr       NativeType = 0x13
	NativeLPStr      NativeType = 0x14
	NativeLPWStr     NativeType = 0x15
	NativeLPTStr     NativeType = 0x16
	NativeFixedSys   NativeType = 0x17
	NativeIUnknown   NativeType = 0x19
	NativeIDispatch  NativeType = 0x1A
	NativeStruct     NativeType = 0x1B
	NativeInterface  NativeType = 0x1C
	NativeSafeArray  NativeType = 0x1D
	NativeFixedArray NativeType = 0x1E
	NativeInt        NativeType = 0x1F
	NativeUInt       NativeType = 0x20
	NativeByValStr   NativeType = 0x22
	NativeFunc       NativeType = 0x26
	NativeArray      NativeType = 0x2A
	NativeCustom     NativeType = 0x2C
	NativeMax        NativeType = 0x50
)

// MarshalInfo describes how a field, parameter or return value crosses the
// managed/native boundary.
type MarshalInfo struct {
	Native NativeType
	// Element is the element type for arrays and safe arrays.
	Element NativeType
	// ParamIndex is the size parameter for NativeArray; negative when absent.
	ParamIndex int
	// Size is the element count for fixed and sized arrays; negative when absent.
	Size int
	// CustomMarshaler is the type name for NativeCustom.
	CustomMarshaler string
	Cookie          string
}

// PInvokeFlags mirrors PInvokeAttributes.
type PInvokeFlags uint16

const (
	PInvokeNoMangle         PInvokeFlags = 0x0001
	PInvokeCharSetAnsi      PInvokeFlags = 0x0002
	PInvokeCharSetUnicode   PInvokeFlags = 0x0004
	PInvokeCharSetAuto      PInvokeFlags = 0x0006
	PInvokeSupportsLastErr  PInvokeFlags = 0x0040
	PInvokeCallConvWinapi   PInvokeFlags = 0x0100
	PInvokeCallConvCdecl    PInvokeFlags = 0x0200
	PInvokeCallConvStdcall  PInvokeFlags = 0x0300
	PInvokeCallConvThiscall PInvokeFlags = 0x0400
	PInvokeCallConvFastcall PInvokeFlags = 0x0500
)

// PInvokeInfo binds a method to a native export.
type PInvokeInfo struct {
	Module     string
	ImportName string
	Flags      PInvokeFlags
}

// Constant is a compile-time default value for a field, parameter or
// property. Code selects the encoding; CodeObject with a nil Value is the
// null reference.
type Constant struct {
	Code  TypeCode
	Value any
}
