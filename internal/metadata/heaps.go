package metadata

import (
	"fortio.org/safecast"
	"github.com/google/uuid"

	"ilmerge/internal/bytesink"
)

// StringHeap is the #Strings heap: zero-terminated UTF-8 names, offset 0 is
// the empty string.
type StringHeap struct {
	w     *bytesink.Writer
	index map[string]uint32
}

// NewStringHeap returns a heap holding only the empty string.
func NewStringHeap() *StringHeap {
	h := &StringHeap{w: bytesink.New(1024), index: make(map[string]uint32, 256)}
	h.w.U8(0)
	return h
}

// Add interns s and returns its offset.
func (h *StringHeap) Add(s string) uint32 {
	if s == "" {
		return 0
	}
	if off, ok := h.index[s]; ok {
		return off
	}
	off := offset32(h.w.Len())
	h.w.CString(s)
	h.index[s] = off
	return off
}

// Len returns the heap size in bytes before padding.
func (h *StringHeap) Len() int { return h.w.Len() }

// Bytes returns the heap contents.
func (h *StringHeap) Bytes() []byte { return h.w.Bytes() }

// BlobHeap is the #Blob heap. Identical blobs share one offset.
type BlobHeap struct {
	w     *bytesink.Writer
	index map[string]uint32
}

// NewBlobHeap returns a heap holding only the empty blob.
func NewBlobHeap() *BlobHeap {
	h := &BlobHeap{w: bytesink.New(4096), index: make(map[string]uint32, 256)}
	h.w.U8(0)
	return h
}

// Add interns b and returns its offset.
func (h *BlobHeap) Add(b []byte) (uint32, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if off, ok := h.index[string(b)]; ok {
		return off, nil
	}
	n, err := safecast.Conv[uint32](len(b))
	if err != nil {
		return 0, err
	}
	off := offset32(h.w.Len())
	if err := h.w.CompressedUint(n); err != nil {
		return 0, err
	}
	h.w.Raw(b)
	h.index[string(b)] = off
	return off, nil
}

// Lookup returns the offset of an already interned blob.
func (h *BlobHeap) Lookup(b []byte) (uint32, bool) {
	if len(b) == 0 {
		return 0, true
	}
	off, ok := h.index[string(b)]
	return off, ok
}

// Len returns the heap size in bytes before padding.
func (h *BlobHeap) Len() int { return h.w.Len() }

// Bytes returns the heap contents.
func (h *BlobHeap) Bytes() []byte { return h.w.Bytes() }

// GUIDHeap is the #GUID heap; indices are 1-based.
type GUIDHeap struct {
	guids []uuid.UUID
	index map[uuid.UUID]uint32
}

// NewGUIDHeap returns an empty heap.
func NewGUIDHeap() *GUIDHeap {
	return &GUIDHeap{index: make(map[uuid.UUID]uint32, 2)}
}

// Add interns g and returns its 1-based index. The nil GUID maps to 0.
func (h *GUIDHeap) Add(g uuid.UUID) uint32 {
	if g == uuid.Nil {
		return 0
	}
	if i, ok := h.index[g]; ok {
		return i
	}
	h.guids = append(h.guids, g)
	i := offset32(len(h.guids))
	h.index[g] = i
	return i
}

// Len returns the heap size in bytes.
func (h *GUIDHeap) Len() int { return 16 * len(h.guids) }

// Bytes returns the heap contents. GUIDs are stored in the little-endian
// field layout used by the runtime.
func (h *GUIDHeap) Bytes() []byte {
	out := make([]byte, 0, h.Len())
	for _, g := range h.guids {
		out = append(out, g[3], g[2], g[1], g[0], g[5], g[4], g[7], g[6])
		out = append(out, g[8:]...)
	}
	return out
}

// UserStringHeap is the #US heap of ldstr literals.
type UserStringHeap struct {
	w     *bytesink.Writer
	index map[string]uint32
}

// MaxUserStringOffset is the largest offset a string token can carry.
const MaxUserStringOffset = 0x00FFFFFF

// NewUserStringHeap returns a heap holding only the empty entry.
func NewUserStringHeap() *UserStringHeap {
	h := &UserStringHeap{w: bytesink.New(1024), index: make(map[string]uint32, 64)}
	h.w.U8(0)
	return h
}

// Add interns s and returns its offset. Every entry, the empty string
// included, is a length-prefixed UTF-16 string plus a trailing byte that
// flags characters needing special handling.
func (h *UserStringHeap) Add(s string) (uint32, error) {
	if off, ok := h.index[s]; ok {
		return off, nil
	}
	data := bytesink.EncodeUTF16(s)
	n, err := safecast.Conv[uint32](len(data) + 1)
	if err != nil {
		return 0, err
	}
	off := offset32(h.w.Len())
	if err := h.w.CompressedUint(n); err != nil {
		return 0, err
	}
	h.w.Raw(data)
	var special uint8
	for i := 0; i+1 < len(data); i += 2 {
		if needsSpecialHandling(uint16(data[i]) | uint16(data[i+1])<<8) {
			special = 1
			break
		}
	}
	h.w.U8(special)
	h.index[s] = off
	return off, nil
}

func needsSpecialHandling(u uint16) bool {
	switch {
	case u >= 0x7F:
		return true
	case u >= 0x01 && u <= 0x08, u >= 0x0E && u <= 0x1F:
		return true
	case u == 0x27, u == 0x2D:
		return true
	}
	return false
}

// Len returns the heap size in bytes before padding.
func (h *UserStringHeap) Len() int { return h.w.Len() }

// Bytes returns the heap contents.
func (h *UserStringHeap) Bytes() []byte { return h.w.Bytes() }

// Heaps bundles the four heaps of one module.
type Heaps struct {
	Strings     *StringHeap
	Blobs       *BlobHeap
	GUIDs       *GUIDHeap
	UserStrings *UserStringHeap
}

// NewHeaps returns empty heaps.
func NewHeaps() *Heaps {
	return &Heaps{
		Strings:     NewStringHeap(),
		Blobs:       NewBlobHeap(),
		GUIDs:       NewGUIDHeap(),
		UserStrings: NewUserStringHeap(),
	}
}

// HeapSizes returns the #~ HeapSizes flags.
func (h *Heaps) HeapSizes() uint8 {
	var f uint8
	if h.Strings.Len() >= 1<<16 {
		f |= 0x01
	}
	if h.GUIDs.Len() >= 1<<16 {
		f |= 0x02
	}
	if h.Blobs.Len() >= 1<<16 {
		f |= 0x04
	}
	return f
}

// offset32 converts a heap or table size that has already been bounded by
// the format to uint32.
func offset32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(err)
	}
	return v
}
