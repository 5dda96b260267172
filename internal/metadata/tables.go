package metadata

import (
	"fmt"
)

// Row holds the column values of one row. String, GUID and blob columns
// hold heap offsets; index columns hold 1-based rows; coded columns hold
// already encoded coded indices.
type Row []uint32

// Tables is the row store of one module. Unsorted tables hand out row
// numbers as rows are appended; sorted tables hand out handles that are
// resolved to rows by Seal.
type Tables struct {
	rows   [NumTables][]Row
	sorted [NumTables]*SortedTable
	sealed bool
}

// NewTables returns an empty row store.
func NewTables() *Tables {
	ts := &Tables{}
	for i := range schemas {
		if schemas[i].Sorted() {
			ts.sorted[i] = NewSortedTable(&schemas[i])
		}
	}
	return ts
}

func (ts *Tables) check(t Table, values []uint32) {
	if int(t) >= NumTables {
		panic(fmt.Sprintf("metadata: bad table %#x", uint8(t)))
	}
	if want := len(schemas[t].Columns); len(values) != want {
		panic(fmt.Sprintf("metadata: %s row has %d columns, want %d", t, len(values), want))
	}
	if ts.sealed {
		panic("metadata: tables are sealed")
	}
}

// Add appends a row to an unsorted table and returns its 1-based row.
func (ts *Tables) Add(t Table, values ...uint32) uint32 {
	ts.check(t, values)
	if ts.sorted[t] != nil {
		panic(fmt.Sprintf("metadata: %s is sorted; use AddSorted", t))
	}
	ts.rows[t] = append(ts.rows[t], Row(values))
	return offset32(len(ts.rows[t]))
}

// AddSorted inserts a row into a sorted table. It reports false when a
// unique table already holds an equal key; the row is dropped then.
func (ts *Tables) AddSorted(t Table, values ...uint32) (Handle, bool) {
	ts.check(t, values)
	st := ts.sorted[t]
	if st == nil {
		panic(fmt.Sprintf("metadata: %s is not sorted; use Add", t))
	}
	return st.Insert(Row(values))
}

// Set overwrites one column of an unsorted row.
func (ts *Tables) Set(t Table, row uint32, col int, v uint32) {
	ts.rows[t][row-1][col] = v
}

// Row returns a row by its 1-based number. Sorted tables are readable only
// after Seal.
func (ts *Tables) Row(t Table, row uint32) Row {
	if row == 0 || int(row) > len(ts.rows[t]) {
		return nil
	}
	return ts.rows[t][row-1]
}

// Rows returns all rows of t.
func (ts *Tables) Rows(t Table) []Row { return ts.rows[t] }

// Len returns the number of rows in t.
func (ts *Tables) Len(t Table) int {
	if st := ts.sorted[t]; st != nil && !ts.sealed {
		return st.Len()
	}
	return len(ts.rows[t])
}

// Seal orders the sorted tables. No rows can be added afterwards.
func (ts *Tables) Seal() {
	if ts.sealed {
		return
	}
	for i, st := range ts.sorted {
		if st != nil {
			ts.rows[i] = st.Rows()
		}
	}
	ts.sealed = true
}

// Sealed reports whether Seal ran.
func (ts *Tables) Sealed() bool { return ts.sealed }

// RowOf resolves a sorted-table handle to its final row. It returns 0
// until the table is ordered by Seal or SealTable.
func (ts *Tables) RowOf(t Table, h Handle) uint32 {
	if ts.sorted[t] == nil {
		return 0
	}
	return ts.sorted[t].RowOf(h)
}

// SealTable orders a single sorted table early so that later tables can
// reference its rows, as GenericParamConstraint references GenericParam.
func (ts *Tables) SealTable(t Table) {
	if st := ts.sorted[t]; st != nil {
		ts.rows[t] = st.Rows()
	}
}

// RowCounts returns the row count of every table.
func (ts *Tables) RowCounts() [NumTables]uint32 {
	var out [NumTables]uint32
	for i := range out {
		out[i] = offset32(ts.Len(Table(i)))
	}
	return out
}

// Layout computes column widths for the current row counts and heap sizes.
type Layout struct {
	Rows      [NumTables]uint32
	HeapSizes uint8
	// Widths[t][c] is the byte width of column c of table t.
	Widths [NumTables][]int
}

// RowSize returns the byte size of one row of t.
func (l *Layout) RowSize(t Table) int {
	n := 0
	for _, w := range l.Widths[t] {
		n += w
	}
	return n
}

// NewLayout computes widths from row counts and heap size flags.
func NewLayout(rows [NumTables]uint32, heapSizes uint8) *Layout {
	l := &Layout{Rows: rows, HeapSizes: heapSizes}
	for t := range schemas {
		cols := schemas[t].Columns
		l.Widths[t] = make([]int, len(cols))
		for c, col := range cols {
			l.Widths[t][c] = l.width(col)
		}
	}
	return l
}

func (l *Layout) width(col Column) int {
	wide := false
	switch col.Kind {
	case ColU16:
		return 2
	case ColU32:
		return 4
	case ColString:
		wide = l.HeapSizes&0x01 != 0
	case ColGUID:
		wide = l.HeapSizes&0x02 != 0
	case ColBlob:
		wide = l.HeapSizes&0x04 != 0
	case ColIndex:
		wide = l.Rows[col.Table] >= 1<<16
	case ColCoded:
		wide = col.Coded.Wide(&l.Rows)
	}
	if wide {
		return 4
	}
	return 2
}
