// Package il describes the CIL instruction set: opcode encodings, operand
// kinds, evaluation stack effects and control flow, plus a disassembler for
// emitted method bodies.
package il

import "fmt"

// Opcode is an instruction encoding. Two byte opcodes carry the 0xFE prefix
// in the high byte.
type Opcode uint16

// One byte opcodes.
const (
	Nop       Opcode = 0x00
	Break     Opcode = 0x01
	Ldarg0    Opcode = 0x02
	Ldarg1    Opcode = 0x03
	Ldarg2    Opcode = 0x04
	Ldarg3    Opcode = 0x05
	Ldloc0    Opcode = 0x06
	Ldloc1    Opcode = 0x07
	Ldloc2    Opcode = 0x08
	Ldloc3    Opcode = 0x09
	Stloc0    Opcode = 0x0A
	Stloc1    Opcode = 0x0B
	Stloc2    Opcode = 0x0C
	Stloc3    Opcode = 0x0D
	LdargS    Opcode = 0x0E
	LdargaS   Opcode = 0x0F
	StargS    Opcode = 0x10
	LdlocS    Opcode = 0x11
	LdlocaS   Opcode = 0x12
	StlocS    Opcode = 0x13
	Ldnull    Opcode = 0x14
	LdcI4M1   Opcode = 0x15
	LdcI40    Opcode = 0x16
	LdcI41    Opcode = 0x17
	LdcI42    Opcode = 0x18
	LdcI43    Opcode = 0x19
	LdcI44    Opcode = 0x1A
	LdcI45    Opcode = 0x1B
	LdcI46    Opcode = 0x1C
	LdcI47    Opcode = 0x1D
	LdcI48    Opcode = 0x1E
	LdcI4S    Opcode = 0x1F
	LdcI4     Opcode = 0x20
	LdcI8     Opcode = 0x21
	LdcR4     Opcode = 0x22
	LdcR8     Opcode = 0x23
	Dup       Opcode = 0x25
	Pop       Opcode = 0x26
	Jmp       Opcode = 0x27
	Call      Opcode = 0x28
	Calli     Opcode = 0x29
	Ret       Opcode = 0x2A
	BrS       Opcode = 0x2B
	BrfalseS  Opcode = 0x2C
	BrtrueS   Opcode = 0x2D
	BeqS      Opcode = 0x2E
	BgeS      Opcode = 0x2F
	BgtS      Opcode = 0x30
	BleS      Opcode = 0x31
	BltS      Opcode = 0x32
	BneUnS    Opcode = 0x33
	BgeUnS    Opcode = 0x34
	BgtUnS    Opcode = 0x35
	BleUnS    Opcode = 0x36
	BltUnS    Opcode = 0x37
	Br        Opcode = 0x38
	Brfalse   Opcode = 0x39
	Brtrue    Opcode = 0x3A
	Beq       Opcode = 0x3B
	Bge       Opcode = 0x3C
	Bgt       Opcode = 0x3D
	Ble       Opcode = 0x3E
	Blt       Opcode = 0x3F
	BneUn     Opcode = 0x40
	BgeUn     Opcode = 0x41
	BgtUn     Opcode = 0x42
	BleUn     Opcode = 0x43
	BltUn     Opcode = 0x44
	Switch    Opcode = 0x45
	LdindI1   Opcode = 0x46
	LdindU1   Opcode = 0x47
	LdindI2   Opcode = 0x48
	LdindU2   Opcode = 0x49
	LdindI4   Opcode = 0x4A
	LdindU4   Opcode = 0x4B
	LdindI8   Opcode = 0x4C
	LdindI    Opcode = 0x4D
	LdindR4   Opcode = 0x4E
	LdindR8   Opcode = 0x4F
	LdindRef  Opcode = 0x50
	StindRef  Opcode = 0x51
	StindI1   Opcode = 0x52
	StindI2   Opcode = 0x53
	StindI4   Opcode = 0x54
	StindI8   Opcode = 0x55
	StindR4   Opcode = 0x56
	StindR8   Opcode = 0x57
	Add       Opcode = 0x58
	Sub       Opcode = 0x59
	Mul       Opcode = 0x5A
	Div       Opcode = 0x5B
	DivUn     Opcode = 0x5C
	Rem       Opcode = 0x5D
	RemUn     Opcode = 0x5E
	And       Opcode = 0x5F
	Or        Opcode = 0x60
	Xor       Opcode = 0x61
	Shl       Opcode = 0x62
	Shr       Opcode = 0x63
	ShrUn     Opcode = 0x64
	Neg       Opcode = 0x65
	Not       Opcode = 0x66
	ConvI1    Opcode = 0x67
	ConvI2    Opcode = 0x68
	ConvI4    Opcode = 0x69
	ConvI8    Opcode = 0x6A
	ConvR4    Opcode = 0x6B
	ConvR8    Opcode = 0x6C
	ConvU4    Opcode = 0x6D
	ConvU8    Opcode = 0x6E
	Callvirt  Opcode = 0x6F
	Cpobj     Opcode = 0x70
	Ldobj     Opcode = 0x71
	Ldstr     Opcode = 0x72
	Newobj    Opcode = 0x73
	Castclass Opcode = 0x74
	Isinst    Opcode = 0x75
	ConvRUn   Opcode = 0x76
	Unbox     Opcode = 0x79
	Throw     Opcode = 0x7A
	Ldfld     Opcode = 0x7B
	Ldflda    Opcode = 0x7C
	Stfld     Opcode = 0x7D
	Ldsfld    Opcode = 0x7E
	Ldsflda   Opcode = 0x7F
	Stsfld    Opcode = 0x80
	Stobj     Opcode = 0x81

	ConvOvfI1Un Opcode = 0x82
	ConvOvfI2Un Opcode = 0x83
	ConvOvfI4Un Opcode = 0x84
	ConvOvfI8Un Opcode = 0x85
	ConvOvfU1Un Opcode = 0x86
	ConvOvfU2Un Opcode = 0x87
	ConvOvfU4Un Opcode = 0x88
	ConvOvfU8Un Opcode = 0x89
	ConvOvfIUn  Opcode = 0x8A
	ConvOvfUUn  Opcode = 0x8B

	Box       Opcode = 0x8C
	Newarr    Opcode = 0x8D
	Ldlen     Opcode = 0x8E
	Ldelema   Opcode = 0x8F
	LdelemI1  Opcode = 0x90
	LdelemU1  Opcode = 0x91
	LdelemI2  Opcode = 0x92
	LdelemU2  Opcode = 0x93
	LdelemI4  Opcode = 0x94
	LdelemU4  Opcode = 0x95
	LdelemI8  Opcode = 0x96
	LdelemI   Opcode = 0x97
	LdelemR4  Opcode = 0x98
	LdelemR8  Opcode = 0x99
	LdelemRef Opcode = 0x9A
	StelemI   Opcode = 0x9B
	StelemI1  Opcode = 0x9C
	StelemI2  Opcode = 0x9D
	StelemI4  Opcode = 0x9E
	StelemI8  Opcode = 0x9F
	StelemR4  Opcode = 0xA0
	StelemR8  Opcode = 0xA1
	StelemRef Opcode = 0xA2
	Ldelem    Opcode = 0xA3
	Stelem    Opcode = 0xA4
	UnboxAny  Opcode = 0xA5

	ConvOvfI1 Opcode = 0xB3
	ConvOvfU1 Opcode = 0xB4
	ConvOvfI2 Opcode = 0xB5
	ConvOvfU2 Opcode = 0xB6
	ConvOvfI4 Opcode = 0xB7
	ConvOvfU4 Opcode = 0xB8
	ConvOvfI8 Opcode = 0xB9
	ConvOvfU8 Opcode = 0xBA

	Refanyval  Opcode = 0xC2
	Ckfinite   Opcode = 0xC3
	Mkrefany   Opcode = 0xC6
	Ldtoken    Opcode = 0xD0
	ConvU2     Opcode = 0xD1
	ConvU1     Opcode = 0xD2
	ConvI      Opcode = 0xD3
	ConvOvfI   Opcode = 0xD4
	ConvOvfU   Opcode = 0xD5
	AddOvf     Opcode = 0xD6
	AddOvfUn   Opcode = 0xD7
	MulOvf     Opcode = 0xD8
	MulOvfUn   Opcode = 0xD9
	SubOvf     Opcode = 0xDA
	SubOvfUn   Opcode = 0xDB
	Endfinally Opcode = 0xDC
	Leave      Opcode = 0xDD
	LeaveS     Opcode = 0xDE
	StindI     Opcode = 0xDF
	ConvU      Opcode = 0xE0
)

// Two byte opcodes.
const (
	Arglist     Opcode = 0xFE00
	Ceq         Opcode = 0xFE01
	Cgt         Opcode = 0xFE02
	CgtUn       Opcode = 0xFE03
	Clt         Opcode = 0xFE04
	CltUn       Opcode = 0xFE05
	Ldftn       Opcode = 0xFE06
	Ldvirtftn   Opcode = 0xFE07
	Ldarg       Opcode = 0xFE09
	Ldarga      Opcode = 0xFE0A
	Starg       Opcode = 0xFE0B
	Ldloc       Opcode = 0xFE0C
	Ldloca      Opcode = 0xFE0D
	Stloc       Opcode = 0xFE0E
	Localloc    Opcode = 0xFE0F
	Endfilter   Opcode = 0xFE11
	Unaligned   Opcode = 0xFE12
	Volatile    Opcode = 0xFE13
	Tail        Opcode = 0xFE14
	Initobj     Opcode = 0xFE15
	Constrained Opcode = 0xFE16
	Cpblk       Opcode = 0xFE17
	Initblk     Opcode = 0xFE18
	No          Opcode = 0xFE19
	Rethrow     Opcode = 0xFE1A
	Sizeof      Opcode = 0xFE1C
	Refanytype  Opcode = 0xFE1D
	Readonly    Opcode = 0xFE1E
)

// Prefix is the first byte of every two byte opcode.
const Prefix byte = 0xFE

// Size returns the encoded size of the opcode itself.
func (op Opcode) Size() int {
	if op > 0xFF {
		return 2
	}
	return 1
}

// Bytes returns the opcode encoding.
func (op Opcode) Bytes() []byte {
	if op > 0xFF {
		return []byte{Prefix, byte(op)}
	}
	return []byte{byte(op)}
}

func (op Opcode) String() string {
	if info, ok := Lookup(op); ok {
		return info.Name
	}
	return fmt.Sprintf("opcode(%#04x)", uint16(op))
}

// Long returns the four byte displacement form of a short branch, or op.
func (op Opcode) Long() Opcode {
	switch {
	case op >= BrS && op <= BltUnS:
		return op + (Br - BrS)
	case op == LeaveS:
		return Leave
	}
	return op
}

// Short returns the one byte displacement form of a long branch, or op.
func (op Opcode) Short() Opcode {
	switch {
	case op >= Br && op <= BltUn:
		return op - (Br - BrS)
	case op == Leave:
		return LeaveS
	}
	return op
}

// IsShortBranch reports whether op takes a one byte displacement.
func (op Opcode) IsShortBranch() bool {
	info, ok := Lookup(op)
	return ok && info.Operand == ShortInlineBrTarget
}
