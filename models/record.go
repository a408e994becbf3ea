package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Record is an ordered mapping from column name to Value.
// The zero Record is valid and empty.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord builds a Record from parallel column/value slices. Later
// duplicates of a column overwrite the earlier value but keep its position.
func NewRecord(columns []string, values []Value) Record {
	r := Record{values: make(map[string]Value, len(columns))}
	for i, col := range columns {
		v := Empty
		if i < len(values) {
			v = values[i]
		}
		if _, seen := r.values[col]; !seen {
			r.keys = append(r.keys, col)
		}
		r.values[col] = v
	}
	return r
}

// Keys returns the record's columns in insertion order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value at col, Empty when absent.
func (r Record) Get(col string) Value {
	if v, ok := r.values[col]; ok {
		return v
	}
	return Empty
}

// Has reports whether col is present.
func (r Record) Has(col string) bool {
	_, ok := r.values[col]
	return ok
}

// Len is the number of columns in the record.
func (r Record) Len() int {
	return len(r.keys)
}

// Project returns a new Record holding only cols, in that order.
func (r Record) Project(cols []string) Record {
	vals := make([]Value, len(cols))
	for i, c := range cols {
		vals[i] = r.Get(c)
	}
	return NewRecord(cols, vals)
}

// Map renders the record with fn applied to each value.
func (r Record) Map(fn func(Value) Value) Record {
	vals := make([]Value, len(r.keys))
	for i, k := range r.keys {
		vals[i] = fn(r.values[k])
	}
	return NewRecord(r.keys, vals)
}

// MarshalJSON writes a JSON object with keys in record order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping the document's key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := RecordFromJSON(gjson.ParseBytes(data))
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// RecordFromJSON converts a parsed JSON object into a Record.
func RecordFromJSON(obj gjson.Result) (Record, error) {
	if !obj.IsObject() {
		return Record{}, fmt.Errorf("record must be a JSON object, got %s", obj.Type)
	}
	var (
		cols []string
		vals []Value
		err  error
	)
	obj.ForEach(func(key, value gjson.Result) bool {
		var v Value
		if uerr := v.UnmarshalJSON([]byte(value.Raw)); uerr != nil {
			err = fmt.Errorf("column %q: %w", key.String(), uerr)
			return false
		}
		cols = append(cols, key.String())
		vals = append(vals, v)
		return true
	})
	if err != nil {
		return Record{}, err
	}
	return NewRecord(cols, vals), nil
}
