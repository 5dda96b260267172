// Package sig encodes the blobs stored in the #Blob heap: type, method,
// field, property and local signatures, type and method specifications,
// custom attribute values, declarative security sets, marshalling
// descriptors and constant values.
//
// Encoding a signature may need tokens for the nominal types it mentions.
// Those come from a TokenSource, which is usually the emitter's allocator,
// so encoding can allocate new rows as a side effect.
package sig

import (
	"errors"

	"ilmerge/internal/ir"
)

// Element type bytes.
const (
	ElemEnd         byte = 0x00
	ElemVoid        byte = 0x01
	ElemBoolean     byte = 0x02
	ElemChar        byte = 0x03
	ElemI1          byte = 0x04
	ElemU1          byte = 0x05
	ElemI2          byte = 0x06
	ElemU2          byte = 0x07
	ElemI4          byte = 0x08
	ElemU4          byte = 0x09
	ElemI8          byte = 0x0A
	ElemU8          byte = 0x0B
	ElemR4          byte = 0x0C
	ElemR8          byte = 0x0D
	ElemString      byte = 0x0E
	ElemPtr         byte = 0x0F
	ElemByRef       byte = 0x10
	ElemValueType   byte = 0x11
	ElemClass       byte = 0x12
	ElemVar         byte = 0x13
	ElemArray       byte = 0x14
	ElemGenericInst byte = 0x15
	ElemTypedByRef  byte = 0x16
	ElemI           byte = 0x18
	ElemU           byte = 0x19
	ElemFnPtr       byte = 0x1B
	ElemObject      byte = 0x1C
	ElemSZArray     byte = 0x1D
	ElemMVar        byte = 0x1E
	ElemCModReqd    byte = 0x1F
	ElemCModOpt     byte = 0x20
	ElemSentinel    byte = 0x41
	ElemPinned      byte = 0x45

	// custom attribute only
	ElemSystemType byte = 0x50
	ElemBoxed      byte = 0x51
	ElemEnum       byte = 0x55
)

// Signature kind bytes.
const (
	KindField       byte = 0x06
	KindLocal       byte = 0x07
	KindProperty    byte = 0x08
	KindMethodSpec  byte = 0x0A
	KindHasThis     byte = 0x20
	NamedArgField   byte = 0x53
	NamedArgProp    byte = 0x54
	attributeProlog      = 0x0001
	securityFormat  byte = '.'
)

// ErrMalformed reports IR that cannot be put into a signature: a nil type,
// a kind that has no encoding in that position, or an argument list that
// does not match its constructor.
var ErrMalformed = errors.New("sig: malformed IR")

var elementOfCode = [...]byte{
	ir.CodeNone:           0,
	ir.CodeVoid:           ElemVoid,
	ir.CodeBoolean:        ElemBoolean,
	ir.CodeChar:           ElemChar,
	ir.CodeSByte:          ElemI1,
	ir.CodeByte:           ElemU1,
	ir.CodeInt16:          ElemI2,
	ir.CodeUInt16:         ElemU2,
	ir.CodeInt32:          ElemI4,
	ir.CodeUInt32:         ElemU4,
	ir.CodeInt64:          ElemI8,
	ir.CodeUInt64:         ElemU8,
	ir.CodeSingle:         ElemR4,
	ir.CodeDouble:         ElemR8,
	ir.CodeString:         ElemString,
	ir.CodeTypedReference: ElemTypedByRef,
	ir.CodeIntPtr:         ElemI,
	ir.CodeUIntPtr:        ElemU,
	ir.CodeObject:         ElemObject,
}

// ElementOf returns the element type byte of a core library type code, or 0
// when the code has no dedicated encoding.
func ElementOf(c ir.TypeCode) byte {
	if int(c) < len(elementOfCode) {
		return elementOfCode[c]
	}
	return 0
}

// primitiveSize is the byte width of the fixed-size primitives, 0 otherwise.
func primitiveSize(c ir.TypeCode) int {
	switch c {
	case ir.CodeBoolean, ir.CodeSByte, ir.CodeByte:
		return 1
	case ir.CodeChar, ir.CodeInt16, ir.CodeUInt16:
		return 2
	case ir.CodeInt32, ir.CodeUInt32, ir.CodeSingle:
		return 4
	case ir.CodeInt64, ir.CodeUInt64, ir.CodeDouble:
		return 8
	}
	return 0
}
