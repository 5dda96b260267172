// Package bytesink provides the low-level output sink used by the metadata
// and IL writers: an append-only, seek-capable growable byte buffer with
// little-endian primitive writers, compressed integers and string encodings.
package bytesink

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer is a growable little-endian byte buffer with a movable write cursor.
// Writes at a position before the end overwrite existing bytes; writes past
// the end extend the buffer.
type Writer struct {
	buf []byte
	pos int
}

// New returns a writer with the given initial capacity.
func New(capacity int) *Writer {
	if capacity < 0 {
		capacity = 0
	}
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the written bytes. The slice aliases the internal buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes in the buffer.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Position returns the current write cursor.
func (w *Writer) Position() int {
	return w.pos
}

// Seek moves the write cursor. Seeking past the end grows the buffer with zeros.
func (w *Writer) Seek(pos int) {
	if pos < 0 {
		panic(fmt.Sprintf("bytesink: negative seek %d", pos))
	}
	if pos > len(w.buf) {
		w.ensure(pos - w.pos)
	}
	w.pos = pos
}

// SeekEnd moves the write cursor to the end of the buffer.
func (w *Writer) SeekEnd() {
	w.pos = len(w.buf)
}

// Reset truncates the buffer and rewinds the cursor.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.pos = 0
}

// ensure makes room for n bytes at the cursor and returns the slice to fill.
func (w *Writer) ensure(n int) []byte {
	end := w.pos + n
	if end > len(w.buf) {
		if end > cap(w.buf) {
			newCap := cap(w.buf) * 2
			if newCap < end {
				newCap = end
			}
			if newCap < 64 {
				newCap = 64
			}
			grown := make([]byte, len(w.buf), newCap)
			copy(grown, w.buf)
			w.buf = grown
		}
		old := len(w.buf)
		w.buf = w.buf[:end]
		clear(w.buf[old:end])
	}
	out := w.buf[w.pos:end]
	w.pos = end
	return out
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	copy(w.ensure(len(p)), p)
	return len(p), nil
}

// Raw appends raw bytes.
func (w *Writer) Raw(p []byte) {
	copy(w.ensure(len(p)), p)
}

// U8 writes a byte.
func (w *Writer) U8(v uint8) {
	w.ensure(1)[0] = v
}

// U16 writes a little-endian uint16.
func (w *Writer) U16(v uint16) {
	binary.LittleEndian.PutUint16(w.ensure(2), v)
}

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) {
	binary.LittleEndian.PutUint32(w.ensure(4), v)
}

// U64 writes a little-endian uint64.
func (w *Writer) U64(v uint64) {
	binary.LittleEndian.PutUint64(w.ensure(8), v)
}

// I8 writes a signed byte.
func (w *Writer) I8(v int8) { w.U8(uint8(v)) }

// I16 writes a little-endian int16.
func (w *Writer) I16(v int16) { w.U16(uint16(v)) }

// I32 writes a little-endian int32.
func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

// I64 writes a little-endian int64.
func (w *Writer) I64(v int64) { w.U64(uint64(v)) }

// F32 writes an IEEE-754 single.
func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

// F64 writes an IEEE-754 double.
func (w *Writer) F64(v float64) { w.U64(math.Float64bits(v)) }

// Pad writes n zero bytes.
func (w *Writer) Pad(n int) {
	if n > 0 {
		clear(w.ensure(n))
	}
}

// Align pads with zeros until the cursor is a multiple of n.
func (w *Writer) Align(n int) {
	if n <= 1 {
		return
	}
	if rem := w.pos % n; rem != 0 {
		w.Pad(n - rem)
	}
}

// PatchU8 overwrites one byte at offset without moving the cursor.
func (w *Writer) PatchU8(at int, v uint8) {
	w.buf[at] = v
}

// PatchU16 overwrites a uint16 at offset without moving the cursor.
func (w *Writer) PatchU16(at int, v uint16) {
	binary.LittleEndian.PutUint16(w.buf[at:at+2], v)
}

// PatchU32 overwrites a uint32 at offset without moving the cursor.
func (w *Writer) PatchU32(at int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[at:at+4], v)
}

// PatchI32 overwrites an int32 at offset without moving the cursor.
func (w *Writer) PatchI32(at int, v int32) {
	w.PatchU32(at, uint32(v))
}

// Index writes a table or heap index using 2 or 4 bytes.
func (w *Writer) Index(v uint32, wide bool) {
	if wide {
		w.U32(v)
		return
	}
	w.U16(uint16(v))
}
