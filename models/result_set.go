package models

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"
)

// ResultSet is the ordered batch of records returned by one query. Columns
// travel with the rows so the column order never has to be guessed per row.
type ResultSet struct {
	Columns []string
	Rows    []Record
}

// NewResultSet builds a ResultSet whose columns are the first record's keys.
func NewResultSet(rows []Record) ResultSet {
	rs := ResultSet{Rows: rows}
	if len(rows) > 0 {
		rs.Columns = rows[0].Keys()
	}
	return rs
}

// Len is the number of rows.
func (rs ResultSet) Len() int {
	return len(rs.Rows)
}

// HasColumn reports whether col belongs to the column set.
func (rs ResultSet) HasColumn(col string) bool {
	for _, c := range rs.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// MarshalJSON writes the wire form: an array of ordered objects.
func (rs ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rs.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := row.Project(rs.Columns).MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an array of objects.
func (rs *ResultSet) UnmarshalJSON(data []byte) error {
	parsed, err := ResultSetFromJSON(gjson.ParseBytes(data))
	if err != nil {
		return err
	}
	*rs = parsed
	return nil
}

// ResultSetFromJSON converts a parsed JSON array into a ResultSet.
func ResultSetFromJSON(arr gjson.Result) (ResultSet, error) {
	if !arr.IsArray() {
		return ResultSet{}, fmt.Errorf("result set must be a JSON array, got %s", arr.Type)
	}
	var (
		rows []Record
		err  error
	)
	arr.ForEach(func(_, item gjson.Result) bool {
		rec, rerr := RecordFromJSON(item)
		if rerr != nil {
			err = fmt.Errorf("row %d: %w", len(rows), rerr)
			return false
		}
		rows = append(rows, rec)
		return true
	})
	if err != nil {
		return ResultSet{}, err
	}
	return NewResultSet(rows), nil
}
