package metadata

import (
	"github.com/google/btree"
)

// Handle identifies a row of a sorted table before the table is sealed.
type Handle uint32

type sortedItem struct {
	key [2]uint32
	seq uint32
	row Row
}

// SortedTable keeps rows ordered by their key columns as they are added.
// Rows with equal keys keep insertion order, except in unique tables where
// the later row is dropped.
type SortedTable struct {
	schema *Schema
	tree   *btree.BTreeG[sortedItem]
	seq    uint32

	// final maps a handle to its 1-based row once sealed.
	final []uint32
}

// NewSortedTable returns an empty table for the sorted schema s.
func NewSortedTable(s *Schema) *SortedTable {
	unique := s.Unique
	return &SortedTable{
		schema: s,
		tree: btree.NewG[sortedItem](16, func(a, b sortedItem) bool {
			if a.key[0] != b.key[0] {
				return a.key[0] < b.key[0]
			}
			if a.key[1] != b.key[1] {
				return a.key[1] < b.key[1]
			}
			if unique {
				return false
			}
			// tiebreak by insertion so equal keys never replace each other
			return a.seq < b.seq
		}),
	}
}

func (st *SortedTable) keyOf(r Row) [2]uint32 {
	var k [2]uint32
	for i, col := range st.schema.SortKeys {
		k[i] = r[col]
	}
	return k
}

// Insert adds r. It reports false, together with the handle of the
// existing row, when a unique table already holds the key.
func (st *SortedTable) Insert(r Row) (Handle, bool) {
	item := sortedItem{key: st.keyOf(r), seq: st.seq, row: r}
	if st.schema.Unique {
		if existing, ok := st.tree.Get(item); ok {
			return Handle(existing.seq), false
		}
	}
	st.seq++
	st.tree.ReplaceOrInsert(item)
	st.final = nil
	return Handle(item.seq), true
}

// Len returns the number of rows.
func (st *SortedTable) Len() int { return st.tree.Len() }

// Rows returns the rows in key order and fixes the handle to row mapping.
func (st *SortedTable) Rows() []Row {
	out := make([]Row, 0, st.tree.Len())
	st.final = make([]uint32, st.seq)
	st.tree.Ascend(func(it sortedItem) bool {
		out = append(out, it.row)
		st.final[it.seq] = uint32(len(out))
		return true
	})
	return out
}

// RowOf returns the 1-based row of h after Rows was called, or 0.
func (st *SortedTable) RowOf(h Handle) uint32 {
	if int(h) >= len(st.final) {
		return 0
	}
	return st.final[h]
}
