package metadata

import (
	"errors"
	"fmt"

	"ilmerge/internal/bytesink"
)

var sortedMask = func() uint64 {
	var m uint64
	for i := range schemas {
		if schemas[i].Sorted() {
			m |= 1 << uint(i)
		}
	}
	return m
}()

// WriteStream serializes sealed tables as the #~ stream.
func WriteStream(ts *Tables, heaps *Heaps) ([]byte, error) {
	if !ts.Sealed() {
		return nil, errors.New("metadata: tables must be sealed before serialization")
	}
	layout := NewLayout(ts.RowCounts(), heaps.HeapSizes())

	var valid uint64
	for t := range NumTables {
		if layout.Rows[t] > 0 {
			valid |= 1 << uint(t)
		}
	}

	w := bytesink.New(1024)
	w.U32(0) // reserved
	w.U8(2)  // major version
	w.U8(0)  // minor version
	w.U8(layout.HeapSizes)
	w.U8(1) // reserved
	w.U64(valid)
	w.U64(sortedMask & valid)
	for t := range NumTables {
		if layout.Rows[t] > 0 {
			w.U32(layout.Rows[t])
		}
	}
	for t := range NumTables {
		widths := layout.Widths[t]
		for _, row := range ts.Rows(Table(t)) {
			for c, v := range row {
				switch widths[c] {
				case 2:
					if v > 0xFFFF {
						return nil, fmt.Errorf("metadata: %s.%s value %#x does not fit two bytes",
							Table(t), schemas[t].Columns[c].Name, v)
					}
					w.U16(uint16(v))
				default:
					w.U32(v)
				}
			}
		}
	}
	w.Align(4)
	return w.Bytes(), nil
}

// Stream is a decoded #~ stream.
type Stream struct {
	Major, Minor uint8
	HeapSizes    uint8
	Valid        uint64
	Sorted       uint64
	Layout       *Layout
	Rows         [NumTables][]Row
}

// ReadStream decodes a #~ stream.
func ReadStream(data []byte) (*Stream, error) {
	r := bytesink.NewReader(data)
	if _, err := r.U32(); err != nil {
		return nil, fmt.Errorf("metadata: #~ header: %w", err)
	}
	s := &Stream{}
	var err error
	if s.Major, err = r.U8(); err != nil {
		return nil, err
	}
	if s.Minor, err = r.U8(); err != nil {
		return nil, err
	}
	if s.HeapSizes, err = r.U8(); err != nil {
		return nil, err
	}
	if _, err = r.U8(); err != nil {
		return nil, err
	}
	if s.Valid, err = r.U64(); err != nil {
		return nil, err
	}
	if s.Sorted, err = r.U64(); err != nil {
		return nil, err
	}
	if s.Valid>>NumTables != 0 {
		return nil, fmt.Errorf("metadata: unknown tables in valid mask %#x", s.Valid)
	}
	var counts [NumTables]uint32
	for t := range NumTables {
		if s.Valid&(1<<uint(t)) == 0 {
			continue
		}
		if counts[t], err = r.U32(); err != nil {
			return nil, err
		}
		// Every row is at least two bytes wide.
		if uint64(counts[t])*2 > uint64(len(data)) {
			return nil, fmt.Errorf("metadata: %s claims %d rows in a %d byte stream", Table(t), counts[t], len(data))
		}
	}
	s.Layout = NewLayout(counts, s.HeapSizes)
	for t := range NumTables {
		widths := s.Layout.Widths[t]
		rows := make([]Row, counts[t])
		for i := range rows {
			row := make(Row, len(widths))
			for c, width := range widths {
				if row[c], err = r.Index(width == 4); err != nil {
					return nil, fmt.Errorf("metadata: %s row %d: %w", Table(t), i+1, err)
				}
			}
			rows[i] = row
		}
		s.Rows[t] = rows
	}
	return s, nil
}

// Row returns a decoded row by 1-based number, or nil.
func (s *Stream) Row(t Table, row uint32) Row {
	if row == 0 || int(row) > len(s.Rows[t]) {
		return nil
	}
	return s.Rows[t][row-1]
}
