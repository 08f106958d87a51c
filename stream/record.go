package stream

import (
	"sort"

	h "github.com/relloyd/silverpipe/helper"
)

// Record is one row of data keyed by column name.
// Null values are represented by nil interfaces.
type Record struct {
	data map[string]interface{}
}

// NewRecord creates a new empty Record and returns it by value.
// The underlying map is shared between copies so use Clone() before handing a row to something that mutates it.
func NewRecord() Record {
	return Record{data: make(map[string]interface{})}
}

// NewRecordFromMap wraps m without copying it.
func NewRecordFromMap(m map[string]interface{}) Record {
	if m == nil {
		m = make(map[string]interface{})
	}
	return Record{data: m}
}

func (sr Record) RecordIsNil() bool {
	return sr.data == nil
}

func (sr Record) SetData(name string, value interface{}) {
	sr.data[name] = value
}

// GetData returns the value of field name or nil if the field is absent.
func (sr Record) GetData(name string) interface{} {
	return sr.data[name]
}

// HasData is true when the field exists, even if its value is nil.
func (sr Record) HasData(name string) bool {
	_, ok := sr.data[name]
	return ok
}

func (sr Record) GetDataMap() map[string]interface{} {
	return sr.data
}

func (sr Record) GetDataLen() int {
	return len(sr.data)
}

// GetDataAsString renders the field as a string; absent and nil fields are "".
func (sr Record) GetDataAsString(name string) string {
	return h.GetStringFromInterface(sr.data[name])
}

// GetDataKeysAsSlice builds a slice of strings containing the values found in sr.data for each of the supplied
// keys in slice keys.
func (sr Record) GetDataKeysAsSlice(keys []string) []string {
	retval := make([]string, 0, len(keys))
	for _, k := range keys {
		retval = append(retval, sr.GetDataAsString(k))
	}
	return retval
}

// GetSortedDataMapKeys will return a slice of the keys found in map sr.data.
func (sr Record) GetSortedDataMapKeys() []string {
	retval := make([]string, 0, len(sr.data))
	for k := range sr.data {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval
}

func (sr Record) CopyTo(t Record) {
	for k, v := range sr.data {
		t.SetData(k, v)
	}
}

// Clone returns a shallow copy of the record with its own map.
func (sr Record) Clone() Record {
	retval := Record{data: make(map[string]interface{}, len(sr.data))}
	sr.CopyTo(retval)
	return retval
}
