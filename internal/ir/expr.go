package ir

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	// ExprLiteral is a constant: nil, bool, int32, int64, float32, float64 or string.
	ExprLiteral ExprKind = iota
	ExprParam
	ExprLocal
	ExprThis
	ExprBinary
	ExprUnary
	ExprCall
	// ExprNew allocates an object and runs its constructor.
	ExprNew
	ExprNewArray
	ExprField
	// ExprIndex reads an array element.
	ExprIndex
	ExprArrayLength
	// ExprConvert is a primitive numeric conversion.
	ExprConvert
	ExprCast
	ExprIsInst
	ExprBox
	// ExprUnbox yields the address of the boxed value.
	ExprUnbox
	ExprAddressOf
	// ExprIndirect loads through an address.
	ExprIndirect
	ExprTypeToken
	ExprMethodToken
	// ExprFunctionPointer loads a method entry point for delegate construction.
	ExprFunctionPointer
	// ExprDup duplicates the value on top of the stack.
	ExprDup
	// ExprPop is a value already on the stack, pushed by an earlier statement.
	ExprPop
	ExprSizeOf
	// ExprDefault is the zero value of a type.
	ExprDefault
	ExprConditional
)

func (k ExprKind) String() string {
	switch k {
	case ExprLiteral:
		return "Literal"
	case ExprParam:
		return "Param"
	case ExprLocal:
		return "Local"
	case ExprThis:
		return "This"
	case ExprBinary:
		return "Binary"
	case ExprUnary:
		return "Unary"
	case ExprCall:
		return "Call"
	case ExprNew:
		return "New"
	case ExprNewArray:
		return "NewArray"
	case ExprField:
		return "Field"
	case ExprIndex:
		return "Index"
	case ExprArrayLength:
		return "ArrayLength"
	case ExprConvert:
		return "Convert"
	case ExprCast:
		return "Cast"
	case ExprIsInst:
		return "IsInst"
	case ExprBox:
		return "Box"
	case ExprUnbox:
		return "Unbox"
	case ExprAddressOf:
		return "AddressOf"
	case ExprIndirect:
		return "Indirect"
	case ExprTypeToken:
		return "TypeToken"
	case ExprMethodToken:
		return "MethodToken"
	case ExprFunctionPointer:
		return "FunctionPointer"
	case ExprDup:
		return "Dup"
	case ExprPop:
		return "Pop"
	case ExprSizeOf:
		return "SizeOf"
	case ExprDefault:
		return "Default"
	case ExprConditional:
		return "Conditional"
	default:
		return "Unknown"
	}
}

// Expr is an expression node. Expressions have no identity of their own and
// may be copied freely.
type Expr struct {
	Kind ExprKind
	Type *Type
	Data ExprData
}

// ExprData is the kind-specific payload of an expression.
type ExprData interface {
	exprData()
}

// LiteralData holds data for ExprLiteral.
type LiteralData struct {
	Value any
}

func (LiteralData) exprData() {}

// ParamData holds data for ExprParam.
type ParamData struct {
	Param *Param
}

func (ParamData) exprData() {}

// LocalData holds data for ExprLocal.
type LocalData struct {
	Local *Local
}

func (LocalData) exprData() {}

// ThisData holds data for ExprThis.
type ThisData struct{}

func (ThisData) exprData() {}

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var binaryOpText = [...]string{"+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>", "==", "!=", "<", "<=", ">", ">="}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return "?"
}

// IsComparison reports whether op yields a boolean.
func (op BinaryOp) IsComparison() bool { return op >= OpEq }

// BinaryData holds data for ExprBinary.
type BinaryData struct {
	Op    BinaryOp
	Left  *Expr
	Right *Expr
	// Unsigned selects unsigned division, shift and comparison, and
	// unordered float comparison.
	Unsigned bool
	// Checked selects overflow-checking arithmetic.
	Checked bool
}

func (BinaryData) exprData() {}

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpNot
	OpLogicalNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpNot:
		return "~"
	default:
		return "!"
	}
}

// UnaryData holds data for ExprUnary.
type UnaryData struct {
	Op      UnaryOp
	Operand *Expr
}

func (UnaryData) exprData() {}

// CallData holds data for ExprCall.
type CallData struct {
	Method   *Method
	Receiver *Expr
	Args     []*Expr
	Virtual  bool
	Tail     bool
	// Constrained is the receiver type of a constrained virtual call.
	Constrained *Type
}

func (CallData) exprData() {}

// NewData holds data for ExprNew.
type NewData struct {
	Constructor *Method
	Args        []*Expr
}

func (NewData) exprData() {}

// NewArrayData holds data for ExprNewArray. Expr.Type is the array type.
type NewArrayData struct {
	Sizes []*Expr
	// Init are element initializers for a one dimensional array.
	Init []*Expr
}

func (NewArrayData) exprData() {}

// FieldData holds data for ExprField.
type FieldData struct {
	Field    *Field
	Receiver *Expr
	Volatile bool
}

func (FieldData) exprData() {}

// IndexData holds data for ExprIndex.
type IndexData struct {
	Array   *Expr
	Indices []*Expr
}

func (IndexData) exprData() {}

// ArrayLengthData holds data for ExprArrayLength.
type ArrayLengthData struct {
	Array *Expr
}

func (ArrayLengthData) exprData() {}

// ConvertData holds data for ExprConvert.
type ConvertData struct {
	Value   *Expr
	To      TypeCode
	Checked bool
	// FromUnsigned treats the operand as unsigned.
	FromUnsigned bool
}

func (ConvertData) exprData() {}

// TypeOpData holds data for ExprCast, ExprIsInst, ExprBox, ExprUnbox,
// ExprSizeOf, ExprDefault and ExprTypeToken. Operand is nil for the last three.
type TypeOpData struct {
	Operand *Expr
	Target  *Type
}

func (TypeOpData) exprData() {}

// AddressOfData holds data for ExprAddressOf.
type AddressOfData struct {
	Target   *Expr
	ReadOnly bool
}

func (AddressOfData) exprData() {}

// IndirectData holds data for ExprIndirect.
type IndirectData struct {
	Address  *Expr
	Volatile bool
}

func (IndirectData) exprData() {}

// MethodRefData holds data for ExprMethodToken and ExprFunctionPointer.
type MethodRefData struct {
	Method   *Method
	Receiver *Expr
	Virtual  bool
}

func (MethodRefData) exprData() {}

// StackData holds data for ExprDup and ExprPop.
type StackData struct{}

func (StackData) exprData() {}

// ConditionalData holds data for ExprConditional.
type ConditionalData struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

func (ConditionalData) exprData() {}

// Lit builds a literal of type t.
func Lit(t *Type, v any) *Expr {
	return &Expr{Kind: ExprLiteral, Type: t, Data: LiteralData{Value: v}}
}

// ParamRef builds a read of p.
func ParamRef(p *Param) *Expr {
	return &Expr{Kind: ExprParam, Type: p.Type, Data: ParamData{Param: p}}
}

// LocalRef builds a read of l.
func LocalRef(l *Local) *Expr {
	return &Expr{Kind: ExprLocal, Type: l.Type, Data: LocalData{Local: l}}
}

// Binary builds a binary operation whose type is the left operand's type,
// or t when t is not nil.
func Binary(op BinaryOp, t *Type, left, right *Expr) *Expr {
	if t == nil {
		t = left.Type
	}
	return &Expr{Kind: ExprBinary, Type: t, Data: BinaryData{Op: op, Left: left, Right: right}}
}

// Call builds a call of m.
func Call(m *Method, receiver *Expr, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Type: m.ReturnType, Data: CallData{Method: m, Receiver: receiver, Args: args}}
}

// Children returns the direct sub-expressions of e in evaluation order.
func (e *Expr) Children() []*Expr {
	if e == nil {
		return nil
	}
	switch d := e.Data.(type) {
	case BinaryData:
		return []*Expr{d.Left, d.Right}
	case UnaryData:
		return []*Expr{d.Operand}
	case CallData:
		out := make([]*Expr, 0, len(d.Args)+1)
		if d.Receiver != nil {
			out = append(out, d.Receiver)
		}
		return append(out, d.Args...)
	case NewData:
		return d.Args
	case NewArrayData:
		out := append([]*Expr(nil), d.Sizes...)
		return append(out, d.Init...)
	case FieldData:
		if d.Receiver != nil {
			return []*Expr{d.Receiver}
		}
	case IndexData:
		return append([]*Expr{d.Array}, d.Indices...)
	case ArrayLengthData:
		return []*Expr{d.Array}
	case ConvertData:
		return []*Expr{d.Value}
	case TypeOpData:
		if d.Operand != nil {
			return []*Expr{d.Operand}
		}
	case AddressOfData:
		return []*Expr{d.Target}
	case IndirectData:
		return []*Expr{d.Address}
	case MethodRefData:
		if d.Receiver != nil {
			return []*Expr{d.Receiver}
		}
	case ConditionalData:
		return []*Expr{d.Cond, d.Then, d.Else}
	}
	return nil
}
