package bytesink

import (
	"fmt"

	"fortio.org/safecast"
	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EncodeUTF16 converts a UTF-8 string to UTF-16LE code units without a BOM.
func EncodeUTF16(s string) []byte {
	if s == "" {
		return nil
	}
	out, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// the encoder substitutes invalid input, so this only fires on internal failures
		panic(fmt.Errorf("bytesink: utf-16 encode: %w", err))
	}
	return out
}

// DecodeUTF16 converts UTF-16LE code units back to UTF-8.
func DecodeUTF16(b []byte) (string, error) {
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("bytesink: utf-16 decode: %w", err)
	}
	return string(out), nil
}

// CString writes s as UTF-8 followed by a zero byte.
func (w *Writer) CString(s string) {
	w.Raw([]byte(s))
	w.U8(0)
}

// UTF16 writes s as UTF-16LE, optionally followed by a 16-bit terminator.
func (w *Writer) UTF16(s string, terminate bool) {
	w.Raw(EncodeUTF16(s))
	if terminate {
		w.U16(0)
	}
}

// SerString writes a length-prefixed UTF-8 string (compressed length, no terminator).
func (w *Writer) SerString(s string) error {
	n, err := safecast.Conv[uint32](len(s))
	if err != nil {
		return fmt.Errorf("bytesink: string too long: %w", err)
	}
	if err := w.CompressedUint(n); err != nil {
		return err
	}
	w.Raw([]byte(s))
	return nil
}

// NullSerString writes the 0xFF marker used for a null serialized string.
func (w *Writer) NullSerString() {
	w.U8(0xFF)
}

// PrefixedUTF16 writes a 32-bit byte length followed by UTF-16LE text.
func (w *Writer) PrefixedUTF16(s string) error {
	data := EncodeUTF16(s)
	n, err := safecast.Conv[uint32](len(data))
	if err != nil {
		return fmt.Errorf("bytesink: string too long: %w", err)
	}
	w.U32(n)
	w.Raw(data)
	return nil
}
