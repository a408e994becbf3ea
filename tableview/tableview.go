// Package tableview derives a filtered, sorted, column-projected display
// table from a ResultSet without touching the ResultSet itself.
package tableview

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"lookupdesk/models"
)

// SortDirection of the active sort key.
type SortDirection int

const (
	Unsorted SortDirection = iota
	Ascending
	Descending
)

func (d SortDirection) String() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	}
	return "none"
}

// Status tells a host what to render.
type Status int

const (
	// StatusNoQuery means no ResultSet has been handed to the view yet.
	StatusNoQuery Status = iota
	// StatusEmpty means the ResultSet had no rows; the table is suppressed.
	StatusEmpty
	// StatusNoMatches means rows exist but the filter excluded all of them.
	StatusNoMatches
	StatusReady
)

// State is the per-view interaction state. It is never persisted.
type State struct {
	Filter  string
	SortKey string
	SortDir SortDirection
	Hidden  map[string]bool
}

// Display is the derived table.
type Display struct {
	Status    Status
	Columns   []string
	Rows      [][]models.Value
	RowCount  int
	TotalRows int
}

// Derive runs filter, sort and projection over rs. It allocates a fresh row
// slice; rs is never reordered.
func Derive(rs *models.ResultSet, st State) Display {
	if rs == nil {
		return Display{Status: StatusNoQuery}
	}
	if rs.Len() == 0 {
		return Display{Status: StatusEmpty, Columns: visibleColumns(rs.Columns, st.Hidden)}
	}

	rows := filterRows(rs.Rows, st.Filter)
	if st.SortKey != "" && st.SortDir != Unsorted {
		sortRows(rows, st.SortKey, st.SortDir)
	}

	cols := visibleColumns(rs.Columns, st.Hidden)
	out := Display{
		Status:    StatusReady,
		Columns:   cols,
		Rows:      make([][]models.Value, len(rows)),
		RowCount:  len(rows),
		TotalRows: rs.Len(),
	}
	for i, r := range rows {
		vals := make([]models.Value, len(cols))
		for j, c := range cols {
			vals[j] = r.Get(c)
		}
		out.Rows[i] = vals
	}
	if len(rows) == 0 {
		out.Status = StatusNoMatches
	}
	return out
}

// fold case-folds s. A Caser keeps state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Matches reports whether any value of r contains filter, case-folded.
func Matches(r models.Record, filter string) bool {
	if filter == "" {
		return true
	}
	needle := fold(filter)
	for _, k := range r.Keys() {
		if strings.Contains(fold(r.Get(k).String()), needle) {
			return true
		}
	}
	return false
}

func filterRows(rows []models.Record, filter string) []models.Record {
	out := make([]models.Record, 0, len(rows))
	for _, r := range rows {
		if Matches(r, filter) {
			out = append(out, r)
		}
	}
	return out
}

func sortRows(rows []models.Record, key string, dir SortDirection) {
	sort.SliceStable(rows, func(i, j int) bool {
		c := models.Compare(rows[i].Get(key), rows[j].Get(key))
		if dir == Descending {
			return c > 0
		}
		return c < 0
	})
}

func visibleColumns(all []string, hidden map[string]bool) []string {
	out := make([]string, 0, len(all))
	for _, c := range all {
		if !hidden[c] {
			out = append(out, c)
		}
	}
	return out
}

// ColumnMatches reports whether a column name contains match, case-folded.
func ColumnMatches(column, match string) bool {
	return strings.Contains(fold(column), fold(match))
}
