package bytesink

import (
	"errors"
	"fmt"
)

// MaxCompressedUint is the largest value the compressed unsigned encoding can hold.
const MaxCompressedUint = 0x1FFFFFFF

// ErrCompressedRange reports a value outside the compressed integer range.
var ErrCompressedRange = errors.New("bytesink: value out of compressed integer range")

// CompressedUintSize returns the encoded width of v (1, 2 or 4), or 0 when v does not fit.
func CompressedUintSize(v uint32) int {
	switch {
	case v <= 0x7F:
		return 1
	case v <= 0x3FFF:
		return 2
	case v <= MaxCompressedUint:
		return 4
	default:
		return 0
	}
}

// CompressedUint writes v using the 1/2/4 byte big-endian compressed form.
func (w *Writer) CompressedUint(v uint32) error {
	switch CompressedUintSize(v) {
	case 1:
		w.U8(uint8(v))
	case 2:
		w.U8(uint8(v>>8) | 0x80)
		w.U8(uint8(v))
	case 4:
		w.U8(uint8(v>>24) | 0xC0)
		w.U8(uint8(v >> 16))
		w.U8(uint8(v >> 8))
		w.U8(uint8(v))
	default:
		return fmt.Errorf("%w: %#x", ErrCompressedRange, v)
	}
	return nil
}

// MustCompressedUint is CompressedUint for values the caller has already bounded.
func (w *Writer) MustCompressedUint(v uint32) {
	if err := w.CompressedUint(v); err != nil {
		panic(err)
	}
}

// CompressedInt writes a signed compressed integer: the value is rotated so the
// sign lands in bit 0, then stored with the unsigned width selection.
func (w *Writer) CompressedInt(v int32) error {
	sign := uint32(0)
	if v < 0 {
		sign = 1
	}
	switch {
	case v >= -(1<<6) && v < 1<<6:
		w.U8(uint8((uint32(v)&0x3F)<<1 | sign))
	case v >= -(1<<13) && v < 1<<13:
		u := (uint32(v)&0x1FFF)<<1 | sign
		w.U8(uint8(u>>8) | 0x80)
		w.U8(uint8(u))
	case v >= -(1<<28) && v < 1<<28:
		u := (uint32(v)&0x0FFFFFFF)<<1 | sign
		w.U8(uint8(u>>24) | 0xC0)
		w.U8(uint8(u >> 16))
		w.U8(uint8(u >> 8))
		w.U8(uint8(u))
	default:
		return fmt.Errorf("%w: %d", ErrCompressedRange, v)
	}
	return nil
}

// AppendCompressedUint appends the compressed form of v to dst.
func AppendCompressedUint(dst []byte, v uint32) ([]byte, error) {
	switch CompressedUintSize(v) {
	case 1:
		return append(dst, uint8(v)), nil
	case 2:
		return append(dst, uint8(v>>8)|0x80, uint8(v)), nil
	case 4:
		return append(dst, uint8(v>>24)|0xC0, uint8(v>>16), uint8(v>>8), uint8(v)), nil
	default:
		return dst, fmt.Errorf("%w: %#x", ErrCompressedRange, v)
	}
}
