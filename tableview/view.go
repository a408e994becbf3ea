package tableview

import "lookupdesk/models"

// View holds one presented ResultSet and its interaction State. It is meant
// for a single goroutine, the host's event loop.
type View struct {
	rs    *models.ResultSet
	state State
}

// New returns a View with no ResultSet yet.
func New() *View {
	return &View{state: State{Hidden: map[string]bool{}}}
}

// NewWithResult returns a View presenting rs.
func NewWithResult(rs models.ResultSet) *View {
	v := New()
	v.SetResult(rs)
	return v
}

// SetResult replaces the ResultSet. Hidden columns and the sort key that no
// longer exist in the new column set are dropped; the filter is kept.
func (v *View) SetResult(rs models.ResultSet) {
	v.rs = &rs
	for col := range v.state.Hidden {
		if !rs.HasColumn(col) {
			delete(v.state.Hidden, col)
		}
	}
	if v.state.SortKey != "" && !rs.HasColumn(v.state.SortKey) {
		v.state.SortKey = ""
		v.state.SortDir = Unsorted
	}
}

// Clear forgets the ResultSet and returns to the no-query state.
func (v *View) Clear() {
	v.rs = nil
	v.state = State{Hidden: map[string]bool{}}
}

// Result returns the presented ResultSet, if any.
func (v *View) Result() (models.ResultSet, bool) {
	if v.rs == nil {
		return models.ResultSet{}, false
	}
	return *v.rs, true
}

// Columns is the full column set of the current ResultSet.
func (v *View) Columns() []string {
	if v.rs == nil {
		return nil
	}
	return v.rs.Columns
}

// SetFilter sets the free-text row filter.
func (v *View) SetFilter(text string) {
	v.state.Filter = text
}

// SetSort sorts by column. Clicking the active column flips the direction;
// any other column starts ascending. Unknown columns are ignored.
func (v *View) SetSort(column string) {
	if v.rs == nil || !v.rs.HasColumn(column) {
		return
	}
	if v.state.SortKey == column && v.state.SortDir == Ascending {
		v.state.SortDir = Descending
		return
	}
	v.state.SortKey = column
	v.state.SortDir = Ascending
}

// ToggleColumnVisibility hides a visible column or shows a hidden one.
func (v *View) ToggleColumnVisibility(column string) {
	if v.rs == nil || !v.rs.HasColumn(column) {
		return
	}
	if v.state.Hidden[column] {
		delete(v.state.Hidden, column)
		return
	}
	v.state.Hidden[column] = true
}

// ToggleAllVisibility shows (show=true) or hides every column whose name
// contains match. Columns that do not match keep their visibility.
func (v *View) ToggleAllVisibility(show bool, match string) {
	for _, col := range v.Columns() {
		if !ColumnMatches(col, match) {
			continue
		}
		if show {
			delete(v.state.Hidden, col)
		} else {
			v.state.Hidden[col] = true
		}
	}
}

// IsHidden reports whether column is currently hidden.
func (v *View) IsHidden(column string) bool {
	return v.state.Hidden[column]
}

// State returns a copy of the interaction state.
func (v *View) State() State {
	hidden := make(map[string]bool, len(v.state.Hidden))
	for k, b := range v.state.Hidden {
		hidden[k] = b
	}
	st := v.state
	st.Hidden = hidden
	return st
}

// Derive computes the display table for the current state.
func (v *View) Derive() Display {
	return Derive(v.rs, v.state)
}
