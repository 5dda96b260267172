package sig

import (
	"fmt"

	"fortio.org/safecast"

	"ilmerge/internal/bytesink"
	"ilmerge/internal/ir"
)

// Marshal encodes a FieldMarshal native type descriptor.
func Marshal(mi *ir.MarshalInfo) ([]byte, error) {
	if mi == nil {
		return nil, fmt.Errorf("%w: nil marshal descriptor", ErrMalformed)
	}
	w := bytesink.New(8)
	w.U8(byte(mi.Native))
	compressed := func(n int) error {
		v, err := safecast.Conv[uint32](n)
		if err != nil {
			return fmt.Errorf("sig: marshal size %d: %w", n, err)
		}
		return w.CompressedUint(v)
	}
	var err error
	switch mi.Native {
	case ir.NativeArray:
		elem := mi.Element
		if elem == 0 {
			elem = ir.NativeMax
		}
		w.U8(byte(elem))
		if mi.ParamIndex >= 0 || mi.Size >= 0 {
			err = compressed(max(mi.ParamIndex, 0))
		}
		if err == nil && mi.Size >= 0 {
			err = compressed(mi.Size)
		}
	case ir.NativeFixedArray:
		err = compressed(max(mi.Size, 0))
		if err == nil && mi.Element != 0 {
			w.U8(byte(mi.Element))
		}
	case ir.NativeFixedSys:
		err = compressed(max(mi.Size, 0))
	case ir.NativeSafeArray:
		if mi.Element != 0 {
			w.U8(byte(mi.Element))
		}
	case ir.NativeCustom:
		for _, s := range []string{"", "", mi.CustomMarshaler, mi.Cookie} {
			if err = w.SerString(s); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Constant encodes a default value. It returns the element type stored in
// the Constant table and the value blob. Null references are a CLASS
// constant holding a four byte zero.
func Constant(c *ir.Constant) (byte, []byte, error) {
	if c == nil {
		return 0, nil, fmt.Errorf("%w: nil constant", ErrMalformed)
	}
	if c.Value == nil {
		return ElemClass, []byte{0, 0, 0, 0}, nil
	}
	if c.Code == ir.CodeString {
		s, ok := c.Value.(string)
		if !ok {
			return 0, nil, fmt.Errorf("%w: string constant holds %T", ErrMalformed, c.Value)
		}
		return ElemString, bytesink.EncodeUTF16(s), nil
	}
	elem := ElementOf(c.Code)
	if primitiveSize(c.Code) == 0 {
		return 0, nil, fmt.Errorf("%w: %s has no constant encoding", ErrMalformed, c.Code)
	}
	w := bytesink.New(8)
	if err := writePrimitive(w, c.Code, c.Value); err != nil {
		return 0, nil, err
	}
	return elem, w.Bytes(), nil
}
