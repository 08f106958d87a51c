package stream

import "sort"

// Table is an ordered set of columns plus the rows that carry them.
// Rows may hold fields outside Columns; Columns decides what gets written out.
type Table struct {
	Columns []string
	Rows    []Record
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) Table {
	c := make([]string, len(columns))
	copy(c, columns)
	return Table{Columns: c, Rows: make([]Record, 0)}
}

func (t Table) Len() int {
	return len(t.Rows)
}

func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends name to the column list if it is not already present.
// Existing rows are left alone: a missing field reads as nil.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// AppendRecord adds r and registers any fields it has that the table has not seen yet.
// New columns are added in alphabetical order so the result is deterministic.
func (t *Table) AppendRecord(r Record) {
	for _, k := range r.GetSortedDataMapKeys() {
		t.AddColumn(k)
	}
	t.Rows = append(t.Rows, r)
}

// Clone copies the column list and every row so the result can be changed without touching t.
func (t Table) Clone() Table {
	retval := Table{Columns: make([]string, len(t.Columns)), Rows: make([]Record, len(t.Rows))}
	copy(retval.Columns, t.Columns)
	for i, r := range t.Rows {
		retval.Rows[i] = r.Clone()
	}
	return retval
}

// Project returns a copy of t holding exactly columns, in that order.
// Columns that t lacks are filled with nil.
func (t Table) Project(columns []string) Table {
	retval := NewTable(columns...)
	retval.Rows = make([]Record, len(t.Rows))
	for i, r := range t.Rows {
		n := NewRecord()
		for _, c := range columns {
			n.SetData(c, r.GetData(c))
		}
		retval.Rows[i] = n
	}
	return retval
}

// Column returns the values of name for every row.
func (t Table) Column(name string) []interface{} {
	retval := make([]interface{}, len(t.Rows))
	for i, r := range t.Rows {
		retval[i] = r.GetData(name)
	}
	return retval
}

// SetColumn writes values into name row by row; values must have one entry per row.
func (t *Table) SetColumn(name string, values []interface{}) {
	t.AddColumn(name)
	for i, r := range t.Rows {
		r.SetData(name, values[i])
	}
}

// SortStable orders rows with less, keeping the relative order of equal rows.
func (t *Table) SortStable(less func(a, b Record) bool) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return less(t.Rows[i], t.Rows[j])
	})
}

// Concat returns a new table with the rows of a followed by the rows of b.
// The column list is the union, a's columns first.
func Concat(a, b Table) Table {
	retval := NewTable(a.Columns...)
	for _, c := range b.Columns {
		retval.AddColumn(c)
	}
	retval.Rows = make([]Record, 0, len(a.Rows)+len(b.Rows))
	retval.Rows = append(retval.Rows, a.Rows...)
	retval.Rows = append(retval.Rows, b.Rows...)
	return retval
}
