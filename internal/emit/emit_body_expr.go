package emit

import (
	"math"

	"ilmerge/internal/il"
	"ilmerge/internal/ir"
)

func (b *bodyEmitter) expr(x *ir.Expr) {
	if x == nil {
		b.fail("nil expression")
	}
	switch d := x.Data.(type) {
	case ir.LiteralData:
		b.literal(x, d.Value)
	case ir.ParamData:
		b.loadArg(b.argIndex(d.Param))
	case ir.LocalData:
		b.loadLocal(b.slot(d.Local))
	case ir.ThisData:
		if b.m.IsStatic() {
			b.fail("this in a static method")
		}
		b.emit(il.Ldarg0)
	case ir.BinaryData:
		b.binary(d)
	case ir.UnaryData:
		b.expr(d.Operand)
		switch d.Op {
		case ir.OpNeg:
			b.emit(il.Neg)
		case ir.OpNot:
			b.emit(il.Not)
		default:
			b.emit(il.LdcI40)
			b.emit(il.Ceq)
		}
	case ir.CallData:
		b.call(d)
	case ir.NewData:
		b.newObj(d)
	case ir.NewArrayData:
		b.newArray(x.Type, d)
	case ir.FieldData:
		b.loadField(d)
	case ir.IndexData:
		b.loadElement(d)
	case ir.ArrayLengthData:
		b.expr(d.Array)
		b.emit(il.Ldlen)
		b.emit(il.ConvI4)
	case ir.ConvertData:
		b.expr(d.Value)
		ops := convert(d)
		if len(ops) == 0 {
			b.fail("no conversion to %s", d.To)
		}
		for _, op := range ops {
			b.emit(op)
		}
	case ir.TypeOpData:
		b.typeOp(x.Kind, d)
	case ir.AddressOfData:
		b.addressOf(d)
	case ir.IndirectData:
		b.expr(d.Address)
		if d.Volatile {
			b.emit(il.Volatile)
		}
		b.loadIndirect(pointee(d.Address.Type, x.Type))
	case ir.MethodRefData:
		b.methodRef(x.Kind, d)
	case ir.StackData:
		// ExprPop consumes a value already on the stack.
		if x.Kind == ir.ExprDup {
			b.emit(il.Dup)
		}
	case ir.ConditionalData:
		b.conditional(d)
	default:
		b.fail("unsupported expression %s", x.Kind)
	}
}

func (b *bodyEmitter) literal(x *ir.Expr, v any) {
	wide := x.Type != nil && (x.Type.Code == ir.CodeInt64 || x.Type.Code == ir.CodeUInt64)
	switch v := v.(type) {
	case nil:
		b.emit(il.Ldnull)
		return
	case bool:
		if v {
			b.ldcI4(1)
		} else {
			b.ldcI4(0)
		}
		return
	case string:
		b.emit(il.Ldstr)
		b.token(b.e.userString(v))
		return
	case float32:
		b.emit(il.LdcR4)
		b.w.F32(v)
		return
	case float64:
		if x.Type != nil && x.Type.Code == ir.CodeSingle {
			b.emit(il.LdcR4)
			b.w.F32(float32(v))
			return
		}
		b.emit(il.LdcR8)
		b.w.F64(v)
		return
	case *ir.Type:
		b.emit(il.Ldtoken)
		b.token(b.e.typeToken(v))
		return
	}
	n, ok := integerBits(v)
	if !ok {
		b.fail("literal of unsupported Go type %T", v)
	}
	if wide {
		b.ldcI8(n)
		return
	}
	b.ldcI4(int32(n))
}

// integerBits returns the two's complement bits of an integer literal.
func integerBits(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(int32(v)), true
	case uint64:
		return int64(v), true
	case uint:
		return int64(v), true
	}
	return 0, false
}

func (b *bodyEmitter) ldcI4(n int32) {
	switch {
	case n == -1:
		b.emit(il.LdcI4M1)
	case n >= 0 && n <= 8:
		b.emit(il.LdcI40 + il.Opcode(n))
	case n >= math.MinInt8 && n <= math.MaxInt8:
		b.emit(il.LdcI4S)
		b.w.I8(int8(n))
	default:
		b.emit(il.LdcI4)
		b.w.I32(n)
	}
}

func (b *bodyEmitter) ldcI8(n int64) {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		b.ldcI4(int32(n))
		b.emit(il.ConvI8)
		return
	}
	b.emit(il.LdcI8)
	b.w.I64(n)
}

func (b *bodyEmitter) argIndex(p *ir.Param) int {
	if p == nil || p.DeclaringMethod != b.m {
		b.fail("parameter does not belong to the method")
	}
	if b.m.HasThis() {
		return p.Index + 1
	}
	return p.Index
}

func (b *bodyEmitter) varOp(n int, macro, short, long il.Opcode, macros int) {
	switch {
	case n < macros:
		b.emit(macro + il.Opcode(n))
	case n <= math.MaxUint8:
		b.emit(short)
		b.w.U8(uint8(n))
	default:
		b.emit(long)
		b.w.U16(uint16(n))
	}
}

func (b *bodyEmitter) loadArg(n int)    { b.varOp(n, il.Ldarg0, il.LdargS, il.Ldarg, 4) }
func (b *bodyEmitter) storeArg(n int)   { b.varOp(n, il.Nop, il.StargS, il.Starg, 0) }
func (b *bodyEmitter) loadArgA(n int)   { b.varOp(n, il.Nop, il.LdargaS, il.Ldarga, 0) }
func (b *bodyEmitter) loadLocal(n int)  { b.varOp(n, il.Ldloc0, il.LdlocS, il.Ldloc, 4) }
func (b *bodyEmitter) storeLocal(n int) { b.varOp(n, il.Stloc0, il.StlocS, il.Stloc, 4) }
func (b *bodyEmitter) loadLocalA(n int) { b.varOp(n, il.Nop, il.LdlocaS, il.Ldloca, 0) }

func (b *bodyEmitter) binary(d ir.BinaryData) {
	b.expr(d.Left)
	b.expr(d.Right)
	pick := func(signed, unsigned il.Opcode) il.Opcode {
		if d.Unsigned {
			return unsigned
		}
		return signed
	}
	switch d.Op {
	case ir.OpAdd:
		b.emit(b.arith(d, il.Add, il.AddOvf, il.AddOvfUn))
	case ir.OpSub:
		b.emit(b.arith(d, il.Sub, il.SubOvf, il.SubOvfUn))
	case ir.OpMul:
		b.emit(b.arith(d, il.Mul, il.MulOvf, il.MulOvfUn))
	case ir.OpDiv:
		b.emit(pick(il.Div, il.DivUn))
	case ir.OpRem:
		b.emit(pick(il.Rem, il.RemUn))
	case ir.OpAnd:
		b.emit(il.And)
	case ir.OpOr:
		b.emit(il.Or)
	case ir.OpXor:
		b.emit(il.Xor)
	case ir.OpShl:
		b.emit(il.Shl)
	case ir.OpShr:
		b.emit(pick(il.Shr, il.ShrUn))
	case ir.OpEq:
		b.emit(il.Ceq)
	case ir.OpNe:
		b.emit(il.Ceq)
		b.emit(il.LdcI40)
		b.emit(il.Ceq)
	case ir.OpLt:
		b.emit(pick(il.Clt, il.CltUn))
	case ir.OpGt:
		b.emit(pick(il.Cgt, il.CgtUn))
	case ir.OpLe:
		b.emit(negatedCompare(d, il.Cgt, il.CgtUn))
		b.emit(il.LdcI40)
		b.emit(il.Ceq)
	case ir.OpGe:
		b.emit(negatedCompare(d, il.Clt, il.CltUn))
		b.emit(il.LdcI40)
		b.emit(il.Ceq)
	default:
		b.fail("unsupported binary operator %s", d.Op)
	}
}

// negatedCompare picks the compare whose negation yields <= or >=. For
// floats the ordered and unordered forms swap, so a NaN operand gives the
// same answer as the matching compare-and-branch.
func negatedCompare(d ir.BinaryData, signed, unsigned il.Opcode) il.Opcode {
	if d.Unsigned != floatOperands(d) {
		return unsigned
	}
	return signed
}

func floatOperands(d ir.BinaryData) bool {
	t := d.Left.Type
	if t == nil {
		t = d.Right.Type
	}
	return t != nil && (t.Code == ir.CodeSingle || t.Code == ir.CodeDouble)
}

func (b *bodyEmitter) arith(d ir.BinaryData, plain, ovf, ovfUn il.Opcode) il.Opcode {
	switch {
	case !d.Checked:
		return plain
	case d.Unsigned:
		return ovfUn
	default:
		return ovf
	}
}

func (b *bodyEmitter) call(d ir.CallData) {
	m := d.Method
	if m == nil {
		b.fail("call without a method")
	}
	if m.HasThis() != (d.Receiver != nil) {
		b.fail("call to %s: receiver does not match the signature", m.FullName())
	}
	if len(d.Args) != len(m.Params) {
		b.fail("call to %s: %d arguments for %d parameters", m.FullName(), len(d.Args), len(m.Params))
	}
	pop := len(d.Args)
	if d.Receiver != nil {
		b.expr(d.Receiver)
		pop++
	}
	for _, a := range d.Args {
		b.expr(a)
	}
	if d.Constrained != nil {
		b.emit(il.Constrained)
		b.token(b.e.typeToken(d.Constrained))
	}
	if d.Tail {
		b.emit(il.Tail)
	}
	op := il.Call
	if d.Virtual || d.Constrained != nil {
		op = il.Callvirt
	}
	b.emit(op)
	b.token(b.e.methodToken(m))
	push := 0
	if !isVoid(m.ReturnType) {
		push = 1
	}
	b.adjust(pop, push)
}

func (b *bodyEmitter) newObj(d ir.NewData) {
	ctor := d.Constructor
	if !ctor.IsConstructor() {
		b.fail("new with %s, which is not a constructor", ctor.FullName())
	}
	if len(d.Args) != len(ctor.Params) {
		b.fail("new %s: %d arguments for %d parameters", typeName(ctor.DeclaringType), len(d.Args), len(ctor.Params))
	}
	for _, a := range d.Args {
		b.expr(a)
	}
	b.emit(il.Newobj)
	b.token(b.e.methodToken(ctor))
	b.adjust(len(d.Args), 1)
}

func (b *bodyEmitter) newArray(arr *ir.Type, d ir.NewArrayData) {
	if arr == nil || arr.Kind != ir.TypeArray {
		b.fail("array creation without an array type")
	}
	if arr.Rank == 0 {
		if len(d.Sizes) != 1 {
			b.fail("vector creation with %d sizes", len(d.Sizes))
		}
		b.expr(d.Sizes[0])
		b.emit(il.Newarr)
		b.token(b.e.typeToken(arr.Element))
		for i, v := range d.Init {
			b.emit(il.Dup)
			b.ldcI4(int32(i))
			b.expr(v)
			b.storeElement(arr.Element)
		}
		return
	}
	if len(d.Sizes) != arr.Rank || len(d.Init) > 0 {
		b.fail("array of rank %d created with %d sizes", arr.Rank, len(d.Sizes))
	}
	for _, s := range d.Sizes {
		b.expr(s)
	}
	b.emit(il.Newobj)
	b.token(b.e.arrayMethod(arr, ".ctor", primitive(ir.CodeVoid), indexTypes(arr.Rank)))
	b.adjust(arr.Rank, 1)
}

func (b *bodyEmitter) loadField(d ir.FieldData) {
	f := d.Field
	if f == nil {
		b.fail("field access without a field")
	}
	tok := b.e.fieldToken(f)
	if f.IsStatic() {
		if d.Receiver != nil {
			b.fail("static field %s read through a receiver", f.Name)
		}
		if d.Volatile {
			b.emit(il.Volatile)
		}
		b.emit(il.Ldsfld)
		b.token(tok)
		return
	}
	if d.Receiver == nil {
		b.fail("instance field %s read without a receiver", f.Name)
	}
	b.expr(d.Receiver)
	if d.Volatile {
		b.emit(il.Volatile)
	}
	b.emit(il.Ldfld)
	b.token(tok)
}

func (b *bodyEmitter) arrayOf(d ir.IndexData) *ir.Type {
	if d.Array == nil || d.Array.Type == nil || d.Array.Type.Kind != ir.TypeArray {
		b.fail("indexing a non-array value")
	}
	arr := d.Array.Type
	want := max(arr.Rank, 1)
	if len(d.Indices) != want {
		b.fail("array of rank %d indexed with %d indices", want, len(d.Indices))
	}
	b.expr(d.Array)
	for _, ix := range d.Indices {
		b.expr(ix)
	}
	return arr
}

func (b *bodyEmitter) loadElement(d ir.IndexData) {
	arr := b.arrayOf(d)
	if arr.Rank == 0 {
		ld, _ := elementOps(arr.Element)
		b.emit(ld)
		if ld == il.Ldelem {
			b.token(b.e.typeToken(arr.Element))
		}
		return
	}
	b.emit(il.Call)
	b.token(b.e.arrayMethod(arr, "Get", arr.Element, indexTypes(arr.Rank)))
	b.adjust(1+arr.Rank, 1)
}

func (b *bodyEmitter) storeElement(elem *ir.Type) {
	_, st := elementOps(elem)
	b.emit(st)
	if st == il.Stelem {
		b.token(b.e.typeToken(elem))
	}
}

func (b *bodyEmitter) assign(d ir.AssignData) {
	t := d.Target
	if t == nil || d.Value == nil {
		b.fail("assignment without a target or value")
	}
	switch td := t.Data.(type) {
	case ir.LocalData:
		b.expr(d.Value)
		b.storeLocal(b.slot(td.Local))
	case ir.ParamData:
		b.expr(d.Value)
		b.storeArg(b.argIndex(td.Param))
	case ir.FieldData:
		f := td.Field
		if f == nil {
			b.fail("field store without a field")
		}
		tok := b.e.fieldToken(f)
		if !f.IsStatic() {
			if td.Receiver == nil {
				b.fail("instance field %s written without a receiver", f.Name)
			}
			b.expr(td.Receiver)
		}
		b.expr(d.Value)
		if td.Volatile {
			b.emit(il.Volatile)
		}
		if f.IsStatic() {
			b.emit(il.Stsfld)
		} else {
			b.emit(il.Stfld)
		}
		b.token(tok)
	case ir.IndexData:
		arr := b.arrayOf(td)
		b.expr(d.Value)
		if arr.Rank == 0 {
			b.storeElement(arr.Element)
			return
		}
		params := append(indexTypes(arr.Rank), arr.Element)
		b.emit(il.Call)
		b.token(b.e.arrayMethod(arr, "Set", primitive(ir.CodeVoid), params))
		b.adjust(2+arr.Rank, 0)
	case ir.IndirectData:
		b.expr(td.Address)
		b.expr(d.Value)
		if td.Volatile {
			b.emit(il.Volatile)
		}
		b.storeIndirect(pointee(td.Address.Type, t.Type))
	default:
		b.fail("cannot assign to %s", t.Kind)
	}
}

func (b *bodyEmitter) addressOf(d ir.AddressOfData) {
	t := d.Target
	if t == nil {
		b.fail("address of nothing")
	}
	switch td := t.Data.(type) {
	case ir.LocalData:
		b.loadLocalA(b.slot(td.Local))
	case ir.ParamData:
		b.loadArgA(b.argIndex(td.Param))
	case ir.ThisData:
		b.emit(il.Ldarg0)
	case ir.FieldData:
		f := td.Field
		if f == nil {
			b.fail("field address without a field")
		}
		tok := b.e.fieldToken(f)
		if f.IsStatic() {
			b.emit(il.Ldsflda)
		} else {
			if td.Receiver == nil {
				b.fail("instance field %s address without a receiver", f.Name)
			}
			b.expr(td.Receiver)
			b.emit(il.Ldflda)
		}
		b.token(tok)
	case ir.IndexData:
		arr := b.arrayOf(td)
		if arr.Rank == 0 {
			if d.ReadOnly {
				b.emit(il.Readonly)
			}
			b.emit(il.Ldelema)
			b.token(b.e.typeToken(arr.Element))
			return
		}
		ref := &ir.Type{Kind: ir.TypeReference, Element: arr.Element}
		b.emit(il.Call)
		b.token(b.e.arrayMethod(arr, "Address", ref, indexTypes(arr.Rank)))
		b.adjust(1+arr.Rank, 1)
	default:
		b.fail("cannot take the address of %s", t.Kind)
	}
}

func (b *bodyEmitter) typeOp(kind ir.ExprKind, d ir.TypeOpData) {
	target := d.Target
	if target == nil && d.Operand != nil {
		target = d.Operand.Type
	}
	if target == nil {
		b.fail("%s without a type", kind)
	}
	switch kind {
	case ir.ExprSizeOf:
		b.emit(il.Sizeof)
	case ir.ExprTypeToken:
		b.emit(il.Ldtoken)
	case ir.ExprDefault:
		b.defaultValue(target)
		return
	default:
		if d.Operand == nil {
			b.fail("%s without an operand", kind)
		}
		b.expr(d.Operand)
		switch kind {
		case ir.ExprCast:
			if target.IsValueType() || target.IsGenericParam() {
				b.emit(il.UnboxAny)
			} else {
				b.emit(il.Castclass)
			}
		case ir.ExprIsInst:
			b.emit(il.Isinst)
		case ir.ExprBox:
			b.emit(il.Box)
		case ir.ExprUnbox:
			b.emit(il.Unbox)
		default:
			b.fail("unsupported type operation %s", kind)
		}
	}
	b.token(b.e.typeToken(target))
}

func (b *bodyEmitter) defaultValue(t *ir.Type) {
	if t.Kind == ir.TypeEnum {
		if u := t.EnumUnderlying(); u != nil {
			t = u
		}
	}
	switch t.Code {
	case ir.CodeBoolean, ir.CodeChar, ir.CodeSByte, ir.CodeByte, ir.CodeInt16,
		ir.CodeUInt16, ir.CodeInt32, ir.CodeUInt32:
		b.ldcI4(0)
		return
	case ir.CodeInt64, ir.CodeUInt64:
		b.ldcI8(0)
		return
	case ir.CodeSingle:
		b.emit(il.LdcR4)
		b.w.F32(0)
		return
	case ir.CodeDouble:
		b.emit(il.LdcR8)
		b.w.F64(0)
		return
	case ir.CodeIntPtr, ir.CodeUIntPtr:
		b.ldcI4(0)
		b.emit(il.ConvI)
		return
	}
	if !t.IsValueType() && !t.IsGenericParam() {
		b.emit(il.Ldnull)
		return
	}
	tmp := b.tempSlot(t)
	b.loadLocalA(tmp)
	b.emit(il.Initobj)
	b.token(b.e.typeToken(t))
	b.loadLocal(tmp)
}

func (b *bodyEmitter) methodRef(kind ir.ExprKind, d ir.MethodRefData) {
	if d.Method == nil {
		b.fail("%s without a method", kind)
	}
	switch {
	case kind == ir.ExprMethodToken:
		b.emit(il.Ldtoken)
	case d.Virtual:
		if d.Receiver == nil {
			b.fail("virtual function pointer to %s without a receiver", d.Method.FullName())
		}
		b.expr(d.Receiver)
		b.emit(il.Ldvirtftn)
	default:
		b.emit(il.Ldftn)
	}
	b.token(b.e.methodToken(d.Method))
}

func (b *bodyEmitter) conditional(d ir.ConditionalData) {
	els, end := b.newLabel(), b.newLabel()
	b.condBranch(d.Cond, false, els, false)
	b.expr(d.Then)
	b.jump(end, false)
	b.place(els, false)
	b.expr(d.Else)
	b.place(end, false)
}

// primitives are detached core types used only to spell signatures of
// runtime-provided array methods.
var primitives = func() map[ir.TypeCode]*ir.Type {
	out := make(map[ir.TypeCode]*ir.Type, 2)
	for _, code := range []ir.TypeCode{ir.CodeVoid, ir.CodeInt32} {
		out[code] = &ir.Type{Kind: ir.TypeStruct, Namespace: "System", Name: code.String(), Code: code}
	}
	return out
}()

func primitive(code ir.TypeCode) *ir.Type { return primitives[code] }

func indexTypes(rank int) []*ir.Type {
	out := make([]*ir.Type, rank)
	for i := range out {
		out[i] = primitive(ir.CodeInt32)
	}
	return out
}

// pointee is the type read or written through an address of type addr;
// fallback is used when the address type does not say.
func pointee(addr, fallback *ir.Type) *ir.Type {
	if addr != nil && (addr.Kind == ir.TypePointer || addr.Kind == ir.TypeReference) && addr.Element != nil {
		return addr.Element
	}
	return fallback
}
