package ir

// Access is the member accessibility shared by fields and methods.
type Access uint16

const (
	AccessCompilerControlled Access = 0
	AccessPrivate            Access = 1
	AccessFamANDAssem        Access = 2
	AccessAssembly           Access = 3
	AccessFamily             Access = 4
	AccessFamORAssem         Access = 5
	AccessPublic             Access = 6
	accessMask               Access = 7
)

// FieldFlags mirrors FieldAttributes.
type FieldFlags uint16

const (
	FieldStatic          FieldFlags = 0x0010
	FieldInitOnly        FieldFlags = 0x0020
	FieldLiteral         FieldFlags = 0x0040
	FieldNotSerialized   FieldFlags = 0x0080
	FieldHasFieldRVA     FieldFlags = 0x0100
	FieldSpecialName     FieldFlags = 0x0200
	FieldRTSpecialName   FieldFlags = 0x0400
	FieldHasFieldMarshal FieldFlags = 0x1000
	FieldPInvokeImpl     FieldFlags = 0x2000
	FieldHasDefault      FieldFlags = 0x8000
)

// Has reports whether all bits of f2 are set.
func (f FieldFlags) Has(f2 FieldFlags) bool { return f&f2 == f2 }

// Access extracts the accessibility bits.
func (f FieldFlags) Access() Access { return Access(f) & accessMask }

// MethodFlags mirrors MethodAttributes.
type MethodFlags uint16

const (
	MethodUnmanagedExport  MethodFlags = 0x0008
	MethodStatic           MethodFlags = 0x0010
	MethodFinal            MethodFlags = 0x0020
	MethodVirtual          MethodFlags = 0x0040
	MethodHideBySig        MethodFlags = 0x0080
	MethodNewSlot          MethodFlags = 0x0100
	MethodStrict           MethodFlags = 0x0200
	MethodAbstract         MethodFlags = 0x0400
	MethodSpecialName      MethodFlags = 0x0800
	MethodRTSpecialName    MethodFlags = 0x1000
	MethodPInvokeImpl      MethodFlags = 0x2000
	MethodHasSecurity      MethodFlags = 0x4000
	MethodRequireSecObject MethodFlags = 0x8000
)

// Has reports whether all bits of f2 are set.
func (f MethodFlags) Has(f2 MethodFlags) bool { return f&f2 == f2 }

// Access extracts the accessibility bits.
func (f MethodFlags) Access() Access { return Access(f) & accessMask }

// MethodImplFlags mirrors MethodImplAttributes.
type MethodImplFlags uint16

const (
	ImplIL                 MethodImplFlags = 0x0000
	ImplNative             MethodImplFlags = 0x0001
	ImplRuntime            MethodImplFlags = 0x0003
	ImplCodeTypeMask       MethodImplFlags = 0x0003
	ImplUnmanaged          MethodImplFlags = 0x0004
	ImplNoInlining         MethodImplFlags = 0x0008
	ImplForwardRef         MethodImplFlags = 0x0010
	ImplSynchronized       MethodImplFlags = 0x0020
	ImplNoOptimization     MethodImplFlags = 0x0040
	ImplPreserveSig        MethodImplFlags = 0x0080
	ImplAggressiveInlining MethodImplFlags = 0x0100
	ImplInternalCall       MethodImplFlags = 0x1000
)

// CallConv is the calling convention byte of a method signature.
type CallConv uint8

const (
	CallDefault      CallConv = 0x00
	CallC            CallConv = 0x01
	CallStdCall      CallConv = 0x02
	CallThisCall     CallConv = 0x03
	CallFastCall     CallConv = 0x04
	CallVarArg       CallConv = 0x05
	CallKindMask     CallConv = 0x0F
	CallGeneric      CallConv = 0x10
	CallHasThis      CallConv = 0x20
	CallExplicitThis CallConv = 0x40
)

// ParamFlags mirrors ParamAttributes.
type ParamFlags uint16

const (
	ParamIn              ParamFlags = 0x0001
	ParamOut             ParamFlags = 0x0002
	ParamOptional        ParamFlags = 0x0010
	ParamHasDefault      ParamFlags = 0x1000
	ParamHasFieldMarshal ParamFlags = 0x2000
)

// PropertyFlags mirrors PropertyAttributes.
type PropertyFlags uint16

const (
	PropertySpecialName   PropertyFlags = 0x0200
	PropertyRTSpecialName PropertyFlags = 0x0400
	PropertyHasDefault    PropertyFlags = 0x1000
)

// EventFlags mirrors EventAttributes.
type EventFlags uint16

const (
	EventSpecialName   EventFlags = 0x0200
	EventRTSpecialName EventFlags = 0x0400
)

// Field is a field of a declared type or a specialized field of a generic
// type instance.
type Field struct {
	Node

	Name          string
	Flags         FieldFlags
	Type          *Type
	DeclaringType *Type

	Default *Constant
	// Offset is the explicit layout offset; negative when absent.
	Offset      int
	InitialData []byte
	Marshal     *MarshalInfo
	Attributes  []*Attribute

	// Unspecialized is the field of the generic definition when the declaring
	// type is an instance.
	Unspecialized *Field
}

// IsStatic reports whether the field is static.
func (f *Field) IsStatic() bool { return f.Flags.Has(FieldStatic) }

// Param is a formal parameter of a method.
type Param struct {
	Node

	Name string
	// Index is the zero-based position in the signature, excluding this.
	Index           int
	Type            *Type
	Flags           ParamFlags
	Default         *Constant
	Marshal         *MarshalInfo
	Attributes      []*Attribute
	DeclaringMethod *Method
}

// Local is a method local variable. Slots are assigned by the emitter.
type Local struct {
	Node

	Name   string
	Type   *Type
	Pinned bool
}

// Method is a method definition, a specialized member of a generic type
// instance, or a generic method instance.
type Method struct {
	Node

	Name          string
	Flags         MethodFlags
	ImplFlags     MethodImplFlags
	CallConv      CallConv
	DeclaringType *Type

	ReturnType       *Type
	Params           []*Param
	ReturnAttributes []*Attribute
	ReturnMarshal    *MarshalInfo

	TemplateParams []*Type
	// Template is the generic method definition of an instance, or the
	// original of a duplicate produced in template-recording mode.
	Template     *Method
	TemplateArgs []*Type
	// Unspecialized is the method of the generic definition when the
	// declaring type is an instance.
	Unspecialized *Method

	// Overrides lists interface or base methods this method implements
	// explicitly.
	Overrides []*Method
	PInvoke   *PInvokeInfo

	InitLocals bool
	Locals     []*Local
	Body       *Block

	Attributes []*Attribute
	Security   []*SecurityAttribute
}

// IsStatic reports whether the method has no this parameter.
func (m *Method) IsStatic() bool { return m.Flags.Has(MethodStatic) }

// HasThis reports whether the signature carries an implicit this.
func (m *Method) HasThis() bool { return !m.IsStatic() }

// IsGenericDefinition reports whether m declares its own generic parameters.
func (m *Method) IsGenericDefinition() bool {
	return m != nil && len(m.TemplateParams) > 0 && len(m.TemplateArgs) == 0
}

// IsGenericInstance reports whether m is a generic method applied to arguments.
func (m *Method) IsGenericInstance() bool {
	return m != nil && m.Template != nil && len(m.TemplateArgs) > 0
}

// IsConstructor reports whether m is an instance constructor.
func (m *Method) IsConstructor() bool {
	return m != nil && m.Name == ".ctor"
}

// Definition strips instantiation and specialization down to the declared
// method.
func (m *Method) Definition() *Method {
	for m != nil {
		switch {
		case m.IsGenericInstance():
			m = m.Template
		case m.Unspecialized != nil:
			m = m.Unspecialized
		default:
			return m
		}
	}
	return nil
}

// FullName returns DeclaringType::Name.
func (m *Method) FullName() string {
	if m == nil {
		return "<nil>"
	}
	if m.DeclaringType == nil {
		return m.Name
	}
	return m.DeclaringType.FullName() + "::" + m.Name
}

// Property groups accessor methods under a name.
type Property struct {
	Node

	Name          string
	Flags         PropertyFlags
	Type          *Type
	Params        []*Type
	HasThis       bool
	DeclaringType *Type

	Getter  *Method
	Setter  *Method
	Others  []*Method
	Default *Constant

	Attributes []*Attribute
}

// Event groups add/remove/raise methods under a name.
type Event struct {
	Node

	Name          string
	Flags         EventFlags
	Type          *Type
	DeclaringType *Type

	Adder   *Method
	Remover *Method
	Raiser  *Method
	Others  []*Method

	Attributes []*Attribute
}
