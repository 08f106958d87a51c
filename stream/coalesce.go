package stream

import h "github.com/relloyd/silverpipe/helper"

// Coalesce returns, for each row of t, the first non-null value found by scanning candidates in order.
// Candidate columns that t does not have are skipped. Blank strings count as null.
// Rows with no value at all yield nil. The table is not modified.
func Coalesce(t Table, candidates []string) []interface{} {
	present := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if t.HasColumn(c) {
			present = append(present, c)
		}
	}
	retval := make([]interface{}, len(t.Rows))
	for i, r := range t.Rows {
		retval[i] = CoalesceRecord(r, present)
	}
	return retval
}

// CoalesceRecord is Coalesce for a single row.
func CoalesceRecord(r Record, candidates []string) interface{} {
	for _, c := range candidates {
		if v := r.GetData(c); !h.IsBlank(v) {
			return v
		}
	}
	return nil
}
