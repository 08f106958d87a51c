package stream

import (
	"reflect"
	"testing"
)

func newTestTable() Table {
	t := NewTable("a", "b")
	for _, v := range []int{1, 2, 3} {
		r := NewRecord()
		r.SetData("a", v)
		r.SetData("b", v*10)
		t.AppendRecord(r)
	}
	return t
}

func TestTable_AppendRecordRegistersColumns(t *testing.T) {
	tbl := NewTable("a")
	r := NewRecord()
	r.SetData("z", 1)
	r.SetData("c", 2)
	tbl.AppendRecord(r)
	expected := []string{"a", "c", "z"}
	if !reflect.DeepEqual(tbl.Columns, expected) {
		t.Fatalf("expected columns %v; got %v", expected, tbl.Columns)
	}
}

func TestTable_CloneIsIndependent(t *testing.T) {
	tbl := newTestTable()
	c := tbl.Clone()
	c.Rows[0].SetData("a", 99)
	c.AddColumn("x")
	if tbl.Rows[0].GetData("a") != 1 || tbl.HasColumn("x") {
		t.Fatal("clone changes leaked into the source table")
	}
}

func TestTable_Project(t *testing.T) {
	tbl := newTestTable()
	p := tbl.Project([]string{"b", "missing"})
	if !reflect.DeepEqual(p.Columns, []string{"b", "missing"}) {
		t.Fatalf("unexpected columns %v", p.Columns)
	}
	if p.Rows[1].GetData("b") != 20 || p.Rows[1].GetData("missing") != nil || p.Rows[1].HasData("a") {
		t.Fatalf("unexpected projected row %v", p.Rows[1].GetDataMap())
	}
}

func TestTable_SortStable(t *testing.T) {
	tbl := NewTable("k", "seq")
	for i, k := range []int{2, 1, 2, 1} {
		r := NewRecord()
		r.SetData("k", k)
		r.SetData("seq", i)
		tbl.AppendRecord(r)
	}
	tbl.SortStable(func(a, b Record) bool { return a.GetData("k").(int) < b.GetData("k").(int) })
	got := tbl.Column("seq")
	expected := []interface{}{1, 3, 0, 2}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v; got %v", expected, got)
	}
}

func TestConcat(t *testing.T) {
	a := newTestTable()
	b := NewTable("b", "c")
	r := NewRecord()
	r.SetData("c", "x")
	b.AppendRecord(r)
	c := Concat(a, b)
	if c.Len() != 4 || !reflect.DeepEqual(c.Columns, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected concat result: %v rows, columns %v", c.Len(), c.Columns)
	}
}
