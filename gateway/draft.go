package gateway

import (
	"lookupdesk/models"
	"lookupdesk/tableview"
)

// ConfigDraft is an editable copy of a Configuration over the uploaded
// column list. Visible columns keep the dataset's column order.
type ConfigDraft struct {
	Columns    []string
	DNIColumn  string
	DateColumn string
	visible    map[string]bool
}

// NewConfigDraft starts a draft from cfg, which may be nil. Saved visible
// columns that no longer exist are dropped.
func NewConfigDraft(columns []string, cfg *models.Configuration) *ConfigDraft {
	d := &ConfigDraft{Columns: columns, visible: make(map[string]bool)}
	if cfg == nil {
		return d
	}
	d.DNIColumn = cfg.DNIColumn
	d.DateColumn = cfg.DateColumn
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	for _, c := range cfg.VisibleColumns {
		if known[c] {
			d.visible[c] = true
		}
	}
	return d
}

// IsVisible reports whether column is selected.
func (d *ConfigDraft) IsVisible(column string) bool {
	return d.visible[column]
}

// ToggleColumn flips one column's visibility. Unknown columns are ignored.
func (d *ConfigDraft) ToggleColumn(column string) {
	for _, c := range d.Columns {
		if c == column {
			if d.visible[c] {
				delete(d.visible, c)
			} else {
				d.visible[c] = true
			}
			return
		}
	}
}

// ToggleAll shows or hides every column whose name contains match,
// case-insensitively. An empty match applies to all columns.
func (d *ConfigDraft) ToggleAll(show bool, match string) {
	for _, c := range d.Columns {
		if !tableview.ColumnMatches(c, match) {
			continue
		}
		if show {
			d.visible[c] = true
		} else {
			delete(d.visible, c)
		}
	}
}

// Configuration returns the draft as a Configuration ready to save.
func (d *ConfigDraft) Configuration() models.Configuration {
	cfg := models.Configuration{DNIColumn: d.DNIColumn, DateColumn: d.DateColumn}
	for _, c := range d.Columns {
		if d.visible[c] {
			cfg.VisibleColumns = append(cfg.VisibleColumns, c)
		}
	}
	return cfg
}
