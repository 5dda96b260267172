package sig

import (
	"fmt"
	"math"

	"fortio.org/safecast"

	"ilmerge/internal/bytesink"
	"ilmerge/internal/ir"
	"ilmerge/internal/wellknown"
)

// Attribute encodes the value blob of a custom attribute: the prolog, the
// fixed arguments in constructor parameter order, then the named arguments.
func (e *Encoder) Attribute(a *ir.Attribute) ([]byte, error) {
	b := e.start()
	if a == nil || a.Constructor == nil {
		b.fail("attribute without constructor")
		return b.finish()
	}
	ctor := a.Constructor
	if len(a.Args) != len(ctor.Params) {
		b.fail("%s takes %d arguments, got %d", ctor.FullName(), len(ctor.Params), len(a.Args))
		return b.finish()
	}
	b.w.U16(attributeProlog)
	for i, arg := range a.Args {
		b.fixedArg(ctor.Params[i].Type, arg)
	}
	n, err := safecast.Conv[uint16](len(a.Named))
	if err != nil {
		b.setErr(fmt.Errorf("sig: too many named arguments: %w", err))
		return b.finish()
	}
	b.w.U16(n)
	b.namedArgs(a.Named)
	return b.finish()
}

// Security encodes a DeclSecurity permission set in the compact format:
// each permission is its attribute type name followed by a length-prefixed
// list of named arguments.
func (e *Encoder) Security(s *ir.SecurityAttribute) ([]byte, error) {
	b := e.start()
	if s == nil {
		b.fail("nil permission set")
		return b.finish()
	}
	b.u8(securityFormat)
	b.count(len(s.Permissions))
	for _, p := range s.Permissions {
		t := p.Type()
		if t == nil {
			b.fail("permission without constructor")
			break
		}
		b.serString(ir.SerializedName(t, e.module, e.core))
		props := e.start()
		props.count(len(p.Named))
		props.namedArgs(p.Named)
		data, err := props.finish()
		if err != nil {
			b.setErr(err)
			break
		}
		b.count(len(data))
		if b.err == nil {
			b.w.Raw(data)
		}
	}
	return b.finish()
}

func (b *blob) serString(s string) {
	if b.err == nil {
		b.setErr(b.w.SerString(s))
	}
}

func (b *blob) namedArgs(named []ir.NamedArg) {
	for _, na := range named {
		if na.IsField {
			b.u8(NamedArgField)
		} else {
			b.u8(NamedArgProp)
		}
		b.fieldOrPropType(na.Arg.Type)
		b.serString(na.Name)
		b.fixedArg(na.Arg.Type, na.Arg)
	}
}

func isSystemType(t *ir.Type) bool {
	return t != nil && t.Kind.IsNominal() && t.DeclaringType == nil &&
		wellknown.Is(t.Namespace, wellknown.System) && wellknown.Is(t.Name, wellknown.Type)
}

// fieldOrPropType writes the type tag used before named arguments and boxed
// values.
func (b *blob) fieldOrPropType(t *ir.Type) {
	if b.err != nil {
		return
	}
	switch {
	case t == nil:
		b.fail("named argument without type")
	case t.Kind == ir.TypeArray && t.Rank == 0:
		b.u8(ElemSZArray)
		b.fieldOrPropType(t.Element)
	case t.Code == ir.CodeObject:
		b.u8(ElemBoxed)
	case isSystemType(t):
		b.u8(ElemSystemType)
	case t.Kind == ir.TypeEnum:
		b.u8(ElemEnum)
		b.serString(ir.SerializedName(t, b.enc.module, b.enc.core))
	case t.Code == ir.CodeString || primitiveSize(t.Code) > 0:
		b.u8(ElementOf(t.Code))
	default:
		b.fail("%s cannot appear in a custom attribute", t)
	}
}

func (b *blob) fixedArg(declared *ir.Type, arg ir.AttrArg) {
	if b.err != nil {
		return
	}
	switch {
	case declared == nil:
		b.fail("argument without type")
	case declared.Kind == ir.TypeArray && declared.Rank == 0:
		if arg.Value == nil {
			b.w.U32(math.MaxUint32)
			return
		}
		elems, ok := arg.Value.([]ir.AttrArg)
		if !ok {
			b.fail("array argument holds %T", arg.Value)
			return
		}
		n, err := safecast.Conv[uint32](len(elems))
		if err != nil {
			b.setErr(err)
			return
		}
		b.w.U32(n)
		for _, el := range elems {
			b.fixedArg(declared.Element, el)
		}
	case declared.Code == ir.CodeObject:
		inner := arg
		if boxed, ok := arg.Value.(ir.AttrArg); ok {
			inner = boxed
		}
		if inner.Value == nil && (inner.Type == nil || inner.Type.Code == ir.CodeObject) {
			// a null object is written as a null string
			b.u8(ElemString)
			b.w.NullSerString()
			return
		}
		b.fieldOrPropType(inner.Type)
		b.fixedArg(inner.Type, inner)
	case declared.Code == ir.CodeString:
		if arg.Value == nil {
			b.w.NullSerString()
			return
		}
		s, ok := arg.Value.(string)
		if !ok {
			b.fail("string argument holds %T", arg.Value)
			return
		}
		b.serString(s)
	case isSystemType(declared):
		if arg.Value == nil {
			b.w.NullSerString()
			return
		}
		t, ok := arg.Value.(*ir.Type)
		if !ok || t == nil {
			b.fail("type argument holds %T", arg.Value)
			return
		}
		b.serString(ir.SerializedName(t, b.enc.module, b.enc.core))
	case declared.Kind == ir.TypeEnum:
		under := declared.EnumUnderlying()
		if under == nil {
			b.fail("enum %s has no underlying type", declared)
			return
		}
		b.primitive(under.Code, arg.Value)
	case primitiveSize(declared.Code) > 0:
		b.primitive(declared.Code, arg.Value)
	default:
		b.fail("%s cannot appear in a custom attribute", declared)
	}
}

func (b *blob) primitive(code ir.TypeCode, v any) {
	if b.err != nil {
		return
	}
	if err := writePrimitive(b.w, code, v); err != nil {
		b.setErr(err)
	}
}

// writePrimitive stores v little-endian in the width of code.
func writePrimitive(w *bytesink.Writer, code ir.TypeCode, v any) error {
	switch code {
	case ir.CodeBoolean:
		if bv, ok := v.(bool); ok {
			if bv {
				w.U8(1)
			} else {
				w.U8(0)
			}
			return nil
		}
	case ir.CodeSingle:
		switch f := v.(type) {
		case float32:
			w.F32(f)
			return nil
		case float64:
			w.F32(float32(f))
			return nil
		}
		return fmt.Errorf("%w: Single value holds %T", ErrMalformed, v)
	case ir.CodeDouble:
		switch f := v.(type) {
		case float64:
			w.F64(f)
			return nil
		case float32:
			w.F64(float64(f))
			return nil
		}
		return fmt.Errorf("%w: Double value holds %T", ErrMalformed, v)
	}
	bits, ok := integerBits(v)
	if !ok {
		return fmt.Errorf("%w: %s value holds %T", ErrMalformed, code, v)
	}
	switch primitiveSize(code) {
	case 1:
		w.U8(uint8(bits))
	case 2:
		w.U16(uint16(bits))
	case 4:
		w.U32(uint32(bits))
	case 8:
		w.U64(bits)
	default:
		return fmt.Errorf("%w: %s is not a primitive", ErrMalformed, code)
	}
	return nil
}

// integerBits returns the two's complement bits of an integer value.
func integerBits(v any) (uint64, bool) {
	switch n := v.(type) {
	case int:
		return uint64(n), true
	case int8:
		return uint64(n), true
	case int16:
		return uint64(n), true
	case int32:
		return uint64(n), true
	case int64:
		return uint64(n), true
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
