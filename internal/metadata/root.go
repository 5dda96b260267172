package metadata

import (
	"fmt"

	"ilmerge/internal/bytesink"
)

// RootSignature is the magic number that starts the metadata root ("BSJB").
const RootSignature uint32 = 0x424A5342

// DefaultVersion is the runtime version string written to the root.
const DefaultVersion = "v4.0.30319"

// StreamData is a named metadata stream.
type StreamData struct {
	Name string
	Data []byte
}

// WriteRoot lays out the metadata root followed by the streams. Stream data
// is padded to four bytes.
func WriteRoot(version string, streams []StreamData) []byte {
	w := bytesink.New(4096)
	w.U32(RootSignature)
	w.U16(1) // major
	w.U16(1) // minor
	w.U32(0) // reserved
	vlen := (len(version) + 1 + 3) &^ 3
	w.U32(offset32(vlen))
	start := w.Position()
	w.Raw([]byte(version))
	w.Pad(vlen - (w.Position() - start))
	w.U16(0) // flags
	w.U16(uint16(len(streams)))

	headerSize := w.Position()
	for _, s := range streams {
		headerSize += 8 + streamNameSize(s.Name)
	}

	offset := headerSize
	for _, s := range streams {
		size := (len(s.Data) + 3) &^ 3
		w.U32(offset32(offset))
		w.U32(offset32(size))
		nameStart := w.Position()
		w.CString(s.Name)
		w.Pad(streamNameSize(s.Name) - (w.Position() - nameStart))
		offset += size
	}
	for _, s := range streams {
		w.Raw(s.Data)
		w.Align(4)
	}
	return w.Bytes()
}

func streamNameSize(name string) int {
	return (len(name) + 1 + 3) &^ 3
}

// Root is a parsed metadata root.
type Root struct {
	Version string
	Streams map[string][]byte
	// Order keeps the stream names as they appear in the header.
	Order []string
}

// ReadRoot parses a metadata root and slices out its streams.
func ReadRoot(data []byte) (*Root, error) {
	r := bytesink.NewReader(data)
	sig, err := r.U32()
	if err != nil {
		return nil, err
	}
	if sig != RootSignature {
		return nil, fmt.Errorf("metadata: bad root signature %#x", sig)
	}
	if _, err := r.Bytes(8); err != nil {
		return nil, err
	}
	vlen, err := r.U32()
	if err != nil {
		return nil, err
	}
	vb, err := r.Bytes(int(vlen))
	if err != nil {
		return nil, err
	}
	root := &Root{Streams: make(map[string][]byte, 5)}
	for i, b := range vb {
		if b == 0 {
			vb = vb[:i]
			break
		}
	}
	root.Version = string(vb)
	if _, err := r.U16(); err != nil {
		return nil, err
	}
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	for range n {
		off, err := r.U32()
		if err != nil {
			return nil, err
		}
		size, err := r.U32()
		if err != nil {
			return nil, err
		}
		nameStart := r.Position()
		name, err := r.CString()
		if err != nil {
			return nil, err
		}
		if err := r.Seek(nameStart + streamNameSize(name)); err != nil {
			return nil, err
		}
		end := uint64(off) + uint64(size)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("metadata: stream %s exceeds root (%d > %d)", name, end, len(data))
		}
		root.Streams[name] = data[off:end]
		root.Order = append(root.Order, name)
	}
	return root, nil
}
