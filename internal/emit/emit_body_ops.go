package emit

import (
	"ilmerge/internal/il"
	"ilmerge/internal/ir"
)

// storageCode is the primitive code used to pick load and store opcodes.
// Enums load as their underlying type; other value types and generic
// parameters report CodeNone.
func storageCode(t *ir.Type) ir.TypeCode {
	if t == nil {
		return ir.CodeNone
	}
	if t.Kind == ir.TypeEnum {
		if u := t.EnumUnderlying(); u != nil {
			return u.Code
		}
	}
	if t.Kind == ir.TypePointer {
		return ir.CodeIntPtr
	}
	return t.Code
}

// typedAccess reports whether t needs the token-carrying ldelem, stelem,
// ldobj or stobj forms.
func typedAccess(t *ir.Type) bool {
	return t.IsGenericParam() || (t.IsValueType() && storageCode(t) == ir.CodeNone)
}

// elementOps returns the vector element load and store opcodes for elem.
func elementOps(elem *ir.Type) (ld, st il.Opcode) {
	switch storageCode(elem) {
	case ir.CodeBoolean, ir.CodeByte:
		return il.LdelemU1, il.StelemI1
	case ir.CodeSByte:
		return il.LdelemI1, il.StelemI1
	case ir.CodeChar, ir.CodeUInt16:
		return il.LdelemU2, il.StelemI2
	case ir.CodeInt16:
		return il.LdelemI2, il.StelemI2
	case ir.CodeInt32:
		return il.LdelemI4, il.StelemI4
	case ir.CodeUInt32:
		return il.LdelemU4, il.StelemI4
	case ir.CodeInt64, ir.CodeUInt64:
		return il.LdelemI8, il.StelemI8
	case ir.CodeSingle:
		return il.LdelemR4, il.StelemR4
	case ir.CodeDouble:
		return il.LdelemR8, il.StelemR8
	case ir.CodeIntPtr, ir.CodeUIntPtr:
		return il.LdelemI, il.StelemI
	}
	if typedAccess(elem) {
		return il.Ldelem, il.Stelem
	}
	return il.LdelemRef, il.StelemRef
}

func indirectOps(t *ir.Type) (ld, st il.Opcode) {
	switch storageCode(t) {
	case ir.CodeBoolean, ir.CodeByte:
		return il.LdindU1, il.StindI1
	case ir.CodeSByte:
		return il.LdindI1, il.StindI1
	case ir.CodeChar, ir.CodeUInt16:
		return il.LdindU2, il.StindI2
	case ir.CodeInt16:
		return il.LdindI2, il.StindI2
	case ir.CodeInt32:
		return il.LdindI4, il.StindI4
	case ir.CodeUInt32:
		return il.LdindU4, il.StindI4
	case ir.CodeInt64, ir.CodeUInt64:
		return il.LdindI8, il.StindI8
	case ir.CodeSingle:
		return il.LdindR4, il.StindR4
	case ir.CodeDouble:
		return il.LdindR8, il.StindR8
	case ir.CodeIntPtr, ir.CodeUIntPtr:
		return il.LdindI, il.StindI
	}
	if typedAccess(t) {
		return il.Ldobj, il.Stobj
	}
	return il.LdindRef, il.StindRef
}

func (b *bodyEmitter) loadIndirect(t *ir.Type) {
	if t == nil {
		b.fail("indirect load of an untyped address")
	}
	ld, _ := indirectOps(t)
	b.emit(ld)
	if ld == il.Ldobj {
		b.token(b.e.typeToken(t))
	}
}

func (b *bodyEmitter) storeIndirect(t *ir.Type) {
	if t == nil {
		b.fail("indirect store through an untyped address")
	}
	_, st := indirectOps(t)
	b.emit(st)
	if st == il.Stobj {
		b.token(b.e.typeToken(t))
	}
}

type convOps struct {
	plain, ovf, ovfUn il.Opcode
}

var conversions = map[ir.TypeCode]convOps{
	ir.CodeSByte:   {il.ConvI1, il.ConvOvfI1, il.ConvOvfI1Un},
	ir.CodeBoolean: {il.ConvU1, il.ConvOvfU1, il.ConvOvfU1Un},
	ir.CodeByte:    {il.ConvU1, il.ConvOvfU1, il.ConvOvfU1Un},
	ir.CodeInt16:   {il.ConvI2, il.ConvOvfI2, il.ConvOvfI2Un},
	ir.CodeChar:    {il.ConvU2, il.ConvOvfU2, il.ConvOvfU2Un},
	ir.CodeUInt16:  {il.ConvU2, il.ConvOvfU2, il.ConvOvfU2Un},
	ir.CodeInt32:   {il.ConvI4, il.ConvOvfI4, il.ConvOvfI4Un},
	ir.CodeUInt32:  {il.ConvU4, il.ConvOvfU4, il.ConvOvfU4Un},
	ir.CodeInt64:   {il.ConvI8, il.ConvOvfI8, il.ConvOvfI8Un},
	ir.CodeUInt64:  {il.ConvU8, il.ConvOvfU8, il.ConvOvfU8Un},
	ir.CodeIntPtr:  {il.ConvI, il.ConvOvfI, il.ConvOvfIUn},
	ir.CodeUIntPtr: {il.ConvU, il.ConvOvfU, il.ConvOvfUUn},
}

// convert returns the instruction sequence of a numeric conversion.
func convert(d ir.ConvertData) []il.Opcode {
	switch d.To {
	case ir.CodeSingle, ir.CodeDouble:
		to := il.ConvR8
		if d.To == ir.CodeSingle {
			to = il.ConvR4
		}
		if d.FromUnsigned {
			return []il.Opcode{il.ConvRUn, to}
		}
		return []il.Opcode{to}
	}
	ops, ok := conversions[d.To]
	if !ok {
		return nil
	}
	switch {
	case d.Checked && d.FromUnsigned:
		return []il.Opcode{ops.ovfUn}
	case d.Checked:
		return []il.Opcode{ops.ovf}
	case d.FromUnsigned && d.To == ir.CodeInt64:
		return []il.Opcode{il.ConvU8}
	case d.FromUnsigned && d.To == ir.CodeIntPtr:
		return []il.Opcode{il.ConvU}
	}
	return []il.Opcode{ops.plain}
}
