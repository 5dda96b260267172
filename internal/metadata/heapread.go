package metadata

import (
	"fmt"

	"github.com/google/uuid"

	"ilmerge/internal/bytesink"
)

// StringAt reads the #Strings entry at off.
func StringAt(heap []byte, off uint32) (string, error) {
	if int(off) >= len(heap) && off != 0 {
		return "", fmt.Errorf("metadata: string offset %#x out of range", off)
	}
	r := bytesink.NewReader(heap)
	if err := r.Seek(int(off)); err != nil {
		return "", err
	}
	return r.CString()
}

// BlobAt reads the #Blob entry at off.
func BlobAt(heap []byte, off uint32) ([]byte, error) {
	r := bytesink.NewReader(heap)
	if err := r.Seek(int(off)); err != nil {
		return nil, fmt.Errorf("metadata: blob offset %#x: %w", off, err)
	}
	n, err := r.CompressedUint()
	if err != nil {
		return nil, err
	}
	return r.Bytes(int(n))
}

// UserStringAt reads the #US entry at off.
func UserStringAt(heap []byte, off uint32) (string, error) {
	b, err := BlobAt(heap, off)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", nil
	}
	return bytesink.DecodeUTF16(b[:len(b)-1])
}

// GUIDAt reads the 1-based #GUID entry at index.
func GUIDAt(heap []byte, index uint32) (uuid.UUID, error) {
	if index == 0 {
		return uuid.Nil, nil
	}
	start := int(index-1) * 16
	if start+16 > len(heap) {
		return uuid.Nil, fmt.Errorf("metadata: guid index %d out of range", index)
	}
	g := heap[start : start+16]
	var out uuid.UUID
	out[0], out[1], out[2], out[3] = g[3], g[2], g[1], g[0]
	out[4], out[5], out[6], out[7] = g[5], g[4], g[7], g[6]
	copy(out[8:], g[8:])
	return out, nil
}
