package il

// OperandKind describes the inline operand that follows an opcode.
type OperandKind uint8

const (
	InlineNone OperandKind = iota
	ShortInlineI
	InlineI
	InlineI8
	ShortInlineR
	InlineR
	ShortInlineVar
	InlineVar
	ShortInlineBrTarget
	InlineBrTarget
	InlineSwitch
	InlineMethod
	InlineField
	InlineType
	InlineTok
	InlineString
	InlineSig
)

// Size returns the operand width in bytes. Switch tables are variable and
// report the size of their count only.
func (k OperandKind) Size() int {
	switch k {
	case ShortInlineI, ShortInlineVar, ShortInlineBrTarget:
		return 1
	case InlineVar:
		return 2
	case InlineI, ShortInlineR, InlineBrTarget, InlineSwitch, InlineMethod,
		InlineField, InlineType, InlineTok, InlineString, InlineSig:
		return 4
	case InlineI8, InlineR:
		return 8
	}
	return 0
}

// IsToken reports whether the operand is a metadata token.
func (k OperandKind) IsToken() bool {
	switch k {
	case InlineMethod, InlineField, InlineType, InlineTok, InlineString, InlineSig:
		return true
	}
	return false
}

// Flow classifies how an instruction transfers control.
type Flow uint8

const (
	FlowNext Flow = iota
	FlowBranch
	FlowCondBranch
	FlowCall
	FlowReturn
	FlowThrow
	// FlowMeta marks prefixes.
	FlowMeta
)

// VarStack marks a stack effect that depends on the operand (calls, ret).
const VarStack = -1

// Info is the static description of an opcode.
type Info struct {
	Op      Opcode
	Name    string
	Operand OperandKind
	// Pop and Push are the fixed stack effects, or VarStack.
	Pop  int8
	Push int8
	Flow Flow
}

var (
	oneByte [256]*Info
	twoByte [256]*Info
)

func def(op Opcode, name string, operand OperandKind, pop, push int8, flow Flow) {
	info := &Info{Op: op, Name: name, Operand: operand, Pop: pop, Push: push, Flow: flow}
	if op > 0xFF {
		twoByte[byte(op)] = info
	} else {
		oneByte[op] = info
	}
}

// Lookup returns the description of op.
func Lookup(op Opcode) (*Info, bool) {
	var info *Info
	switch {
	case op <= 0xFF:
		info = oneByte[op]
	case op>>8 == Opcode(Prefix):
		info = twoByte[byte(op)]
	}
	return info, info != nil
}

func init() {
	v := int8(VarStack)

	def(Nop, "nop", InlineNone, 0, 0, FlowNext)
	def(Break, "break", InlineNone, 0, 0, FlowNext)
	def(Ldarg0, "ldarg.0", InlineNone, 0, 1, FlowNext)
	def(Ldarg1, "ldarg.1", InlineNone, 0, 1, FlowNext)
	def(Ldarg2, "ldarg.2", InlineNone, 0, 1, FlowNext)
	def(Ldarg3, "ldarg.3", InlineNone, 0, 1, FlowNext)
	def(Ldloc0, "ldloc.0", InlineNone, 0, 1, FlowNext)
	def(Ldloc1, "ldloc.1", InlineNone, 0, 1, FlowNext)
	def(Ldloc2, "ldloc.2", InlineNone, 0, 1, FlowNext)
	def(Ldloc3, "ldloc.3", InlineNone, 0, 1, FlowNext)
	def(Stloc0, "stloc.0", InlineNone, 1, 0, FlowNext)
	def(Stloc1, "stloc.1", InlineNone, 1, 0, FlowNext)
	def(Stloc2, "stloc.2", InlineNone, 1, 0, FlowNext)
	def(Stloc3, "stloc.3", InlineNone, 1, 0, FlowNext)
	def(LdargS, "ldarg.s", ShortInlineVar, 0, 1, FlowNext)
	def(LdargaS, "ldarga.s", ShortInlineVar, 0, 1, FlowNext)
	def(StargS, "starg.s", ShortInlineVar, 1, 0, FlowNext)
	def(LdlocS, "ldloc.s", ShortInlineVar, 0, 1, FlowNext)
	def(LdlocaS, "ldloca.s", ShortInlineVar, 0, 1, FlowNext)
	def(StlocS, "stloc.s", ShortInlineVar, 1, 0, FlowNext)
	def(Ldnull, "ldnull", InlineNone, 0, 1, FlowNext)
	def(LdcI4M1, "ldc.i4.m1", InlineNone, 0, 1, FlowNext)
	for i := range Opcode(9) {
		def(LdcI40+i, "ldc.i4."+string(rune('0'+i)), InlineNone, 0, 1, FlowNext)
	}
	def(LdcI4S, "ldc.i4.s", ShortInlineI, 0, 1, FlowNext)
	def(LdcI4, "ldc.i4", InlineI, 0, 1, FlowNext)
	def(LdcI8, "ldc.i8", InlineI8, 0, 1, FlowNext)
	def(LdcR4, "ldc.r4", ShortInlineR, 0, 1, FlowNext)
	def(LdcR8, "ldc.r8", InlineR, 0, 1, FlowNext)
	def(Dup, "dup", InlineNone, 1, 2, FlowNext)
	def(Pop, "pop", InlineNone, 1, 0, FlowNext)
	def(Jmp, "jmp", InlineMethod, 0, 0, FlowCall)
	def(Call, "call", InlineMethod, v, v, FlowCall)
	def(Calli, "calli", InlineSig, v, v, FlowCall)
	def(Ret, "ret", InlineNone, v, 0, FlowReturn)

	branches := []string{"br", "brfalse", "brtrue", "beq", "bge", "bgt", "ble", "blt", "bne.un", "bge.un", "bgt.un", "ble.un", "blt.un"}
	for i, name := range branches {
		pop, flow := int8(2), FlowCondBranch
		switch i {
		case 0:
			pop, flow = 0, FlowBranch
		case 1, 2:
			pop = 1
		}
		def(BrS+Opcode(i), name+".s", ShortInlineBrTarget, pop, 0, flow)
		def(Br+Opcode(i), name, InlineBrTarget, pop, 0, flow)
	}
	def(Switch, "switch", InlineSwitch, 1, 0, FlowCondBranch)

	loads := []string{"i1", "u1", "i2", "u2", "i4", "u4", "i8", "i", "r4", "r8", "ref"}
	for i, name := range loads {
		def(LdindI1+Opcode(i), "ldind."+name, InlineNone, 1, 1, FlowNext)
	}
	def(StindRef, "stind.ref", InlineNone, 2, 0, FlowNext)
	for i, name := range []string{"i1", "i2", "i4", "i8", "r4", "r8"} {
		def(StindI1+Opcode(i), "stind."+name, InlineNone, 2, 0, FlowNext)
	}
	def(StindI, "stind.i", InlineNone, 2, 0, FlowNext)

	for i, name := range []string{"add", "sub", "mul", "div", "div.un", "rem", "rem.un", "and", "or", "xor", "shl", "shr", "shr.un"} {
		def(Add+Opcode(i), name, InlineNone, 2, 1, FlowNext)
	}
	def(Neg, "neg", InlineNone, 1, 1, FlowNext)
	def(Not, "not", InlineNone, 1, 1, FlowNext)
	for i, name := range []string{"i1", "i2", "i4", "i8", "r4", "r8", "u4", "u8"} {
		def(ConvI1+Opcode(i), "conv."+name, InlineNone, 1, 1, FlowNext)
	}
	def(Callvirt, "callvirt", InlineMethod, v, v, FlowCall)
	def(Cpobj, "cpobj", InlineType, 2, 0, FlowNext)
	def(Ldobj, "ldobj", InlineType, 1, 1, FlowNext)
	def(Ldstr, "ldstr", InlineString, 0, 1, FlowNext)
	def(Newobj, "newobj", InlineMethod, v, 1, FlowCall)
	def(Castclass, "castclass", InlineType, 1, 1, FlowNext)
	def(Isinst, "isinst", InlineType, 1, 1, FlowNext)
	def(ConvRUn, "conv.r.un", InlineNone, 1, 1, FlowNext)
	def(Unbox, "unbox", InlineType, 1, 1, FlowNext)
	def(Throw, "throw", InlineNone, 1, 0, FlowThrow)
	def(Ldfld, "ldfld", InlineField, 1, 1, FlowNext)
	def(Ldflda, "ldflda", InlineField, 1, 1, FlowNext)
	def(Stfld, "stfld", InlineField, 2, 0, FlowNext)
	def(Ldsfld, "ldsfld", InlineField, 0, 1, FlowNext)
	def(Ldsflda, "ldsflda", InlineField, 0, 1, FlowNext)
	def(Stsfld, "stsfld", InlineField, 1, 0, FlowNext)
	def(Stobj, "stobj", InlineType, 2, 0, FlowNext)
	for i, name := range []string{"i1", "i2", "i4", "i8", "u1", "u2", "u4", "u8", "i", "u"} {
		def(ConvOvfI1Un+Opcode(i), "conv.ovf."+name+".un", InlineNone, 1, 1, FlowNext)
	}
	def(Box, "box", InlineType, 1, 1, FlowNext)
	def(Newarr, "newarr", InlineType, 1, 1, FlowNext)
	def(Ldlen, "ldlen", InlineNone, 1, 1, FlowNext)
	def(Ldelema, "ldelema", InlineType, 2, 1, FlowNext)
	for i, name := range loads {
		def(LdelemI1+Opcode(i), "ldelem."+name, InlineNone, 2, 1, FlowNext)
	}
	for i, name := range []string{"i", "i1", "i2", "i4", "i8", "r4", "r8", "ref"} {
		def(StelemI+Opcode(i), "stelem."+name, InlineNone, 3, 0, FlowNext)
	}
	def(Ldelem, "ldelem", InlineType, 2, 1, FlowNext)
	def(Stelem, "stelem", InlineType, 3, 0, FlowNext)
	def(UnboxAny, "unbox.any", InlineType, 1, 1, FlowNext)
	for i, name := range []string{"i1", "u1", "i2", "u2", "i4", "u4", "i8", "u8"} {
		def(ConvOvfI1+Opcode(i), "conv.ovf."+name, InlineNone, 1, 1, FlowNext)
	}
	def(Refanyval, "refanyval", InlineType, 1, 1, FlowNext)
	def(Ckfinite, "ckfinite", InlineNone, 1, 1, FlowNext)
	def(Mkrefany, "mkrefany", InlineType, 1, 1, FlowNext)
	def(Ldtoken, "ldtoken", InlineTok, 0, 1, FlowNext)
	def(ConvU2, "conv.u2", InlineNone, 1, 1, FlowNext)
	def(ConvU1, "conv.u1", InlineNone, 1, 1, FlowNext)
	def(ConvI, "conv.i", InlineNone, 1, 1, FlowNext)
	def(ConvOvfI, "conv.ovf.i", InlineNone, 1, 1, FlowNext)
	def(ConvOvfU, "conv.ovf.u", InlineNone, 1, 1, FlowNext)
	for i, name := range []string{"add.ovf", "add.ovf.un", "mul.ovf", "mul.ovf.un", "sub.ovf", "sub.ovf.un"} {
		def(AddOvf+Opcode(i), name, InlineNone, 2, 1, FlowNext)
	}
	def(Endfinally, "endfinally", InlineNone, 0, 0, FlowReturn)
	def(Leave, "leave", InlineBrTarget, 0, 0, FlowBranch)
	def(LeaveS, "leave.s", ShortInlineBrTarget, 0, 0, FlowBranch)
	def(ConvU, "conv.u", InlineNone, 1, 1, FlowNext)

	def(Arglist, "arglist", InlineNone, 0, 1, FlowNext)
	def(Ceq, "ceq", InlineNone, 2, 1, FlowNext)
	def(Cgt, "cgt", InlineNone, 2, 1, FlowNext)
	def(CgtUn, "cgt.un", InlineNone, 2, 1, FlowNext)
	def(Clt, "clt", InlineNone, 2, 1, FlowNext)
	def(CltUn, "clt.un", InlineNone, 2, 1, FlowNext)
	def(Ldftn, "ldftn", InlineMethod, 0, 1, FlowNext)
	def(Ldvirtftn, "ldvirtftn", InlineMethod, 1, 1, FlowNext)
	def(Ldarg, "ldarg", InlineVar, 0, 1, FlowNext)
	def(Ldarga, "ldarga", InlineVar, 0, 1, FlowNext)
	def(Starg, "starg", InlineVar, 1, 0, FlowNext)
	def(Ldloc, "ldloc", InlineVar, 0, 1, FlowNext)
	def(Ldloca, "ldloca", InlineVar, 0, 1, FlowNext)
	def(Stloc, "stloc", InlineVar, 1, 0, FlowNext)
	def(Localloc, "localloc", InlineNone, 1, 1, FlowNext)
	def(Endfilter, "endfilter", InlineNone, 1, 0, FlowReturn)
	def(Unaligned, "unaligned.", ShortInlineI, 0, 0, FlowMeta)
	def(Volatile, "volatile.", InlineNone, 0, 0, FlowMeta)
	def(Tail, "tail.", InlineNone, 0, 0, FlowMeta)
	def(Initobj, "initobj", InlineType, 1, 0, FlowNext)
	def(Constrained, "constrained.", InlineType, 0, 0, FlowMeta)
	def(Cpblk, "cpblk", InlineNone, 3, 0, FlowNext)
	def(Initblk, "initblk", InlineNone, 3, 0, FlowNext)
	def(No, "no.", ShortInlineI, 0, 0, FlowMeta)
	def(Rethrow, "rethrow", InlineNone, 0, 0, FlowThrow)
	def(Sizeof, "sizeof", InlineType, 0, 1, FlowNext)
	def(Refanytype, "refanytype", InlineNone, 1, 1, FlowNext)
	def(Readonly, "readonly.", InlineNone, 0, 0, FlowMeta)
}
