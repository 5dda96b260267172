package bytesink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrShortRead reports an attempt to read past the end of the data.
var ErrShortRead = errors.New("bytesink: unexpected end of data")

// Reader decodes values written by Writer. It is used by the disassembler,
// the dump command and tests.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for decoding.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the read cursor.
func (r *Reader) Position() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Seek moves the read cursor.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return fmt.Errorf("bytesink: seek %d out of range [0,%d]", pos, len(r.data))
	}
	r.pos = pos
	return nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, ErrShortRead
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) { return r.take(n) }

// U8 reads a byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// F32 reads an IEEE-754 single.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

// F64 reads an IEEE-754 double.
func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	return math.Float64frombits(v), err
}

// Index reads a 2 or 4 byte index.
func (r *Reader) Index(wide bool) (uint32, error) {
	if wide {
		return r.U32()
	}
	v, err := r.U16()
	return uint32(v), err
}

// CompressedUint reads a compressed unsigned integer.
func (r *Reader) CompressedUint() (uint32, error) {
	b0, err := r.U8()
	if err != nil {
		return 0, err
	}
	switch {
	case b0&0x80 == 0:
		return uint32(b0), nil
	case b0&0xC0 == 0x80:
		b1, err := r.U8()
		if err != nil {
			return 0, err
		}
		return uint32(b0&0x3F)<<8 | uint32(b1), nil
	case b0&0xE0 == 0xC0:
		rest, err := r.take(3)
		if err != nil {
			return 0, err
		}
		return uint32(b0&0x1F)<<24 | uint32(rest[0])<<16 | uint32(rest[1])<<8 | uint32(rest[2]), nil
	default:
		return 0, fmt.Errorf("bytesink: invalid compressed integer lead byte %#x", b0)
	}
}

// CompressedInt reads a signed compressed integer.
func (r *Reader) CompressedInt() (int32, error) {
	start := r.pos
	u, err := r.CompressedUint()
	if err != nil {
		return 0, err
	}
	width := r.pos - start
	negative := u&1 == 1
	u >>= 1
	if negative {
		switch width {
		case 1:
			u |= 0xFFFFFFC0
		case 2:
			u |= 0xFFFFE000
		default:
			u |= 0xF0000000
		}
	}
	return int32(u), nil
}

// SerString reads a compressed-length UTF-8 string. The 0xFF null marker
// yields ok=false.
func (r *Reader) SerString() (s string, ok bool, err error) {
	if r.pos < len(r.data) && r.data[r.pos] == 0xFF {
		r.pos++
		return "", false, nil
	}
	n, err := r.CompressedUint()
	if err != nil {
		return "", false, err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

// CString reads a zero-terminated UTF-8 string.
func (r *Reader) CString() (string, error) {
	for i := r.pos; i < len(r.data); i++ {
		if r.data[i] == 0 {
			s := string(r.data[r.pos:i])
			r.pos = i + 1
			return s, nil
		}
	}
	return "", ErrShortRead
}
