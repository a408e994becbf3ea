package database

import (
	"encoding/json"
	"fmt"
	"lookupdesk/logger"
	"lookupdesk/models"
)

// ReplaceActiveDataset stores ds as the only dataset and marks it active.
// Rows are stored as JSON arrays of raw cell text aligned with ds.Columns.
func ReplaceActiveDataset(ds models.Dataset) error {
	colsJSON, err := json.Marshal(ds.Columns)
	if err != nil {
		return fmt.Errorf("marshalling columns of dataset %s: %w", ds.ID, err)
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("beginning dataset transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM datasets"); err != nil {
		return fmt.Errorf("clearing previous datasets: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO datasets (id, filename, uploaded_at, columns_json) VALUES (?, ?, ?, ?)",
		ds.ID, ds.Filename, ds.UploadedAt, string(colsJSON)); err != nil {
		return fmt.Errorf("inserting dataset %s: %w", ds.ID, err)
	}

	stmt, err := tx.Prepare("INSERT INTO dataset_rows (dataset_id, row_index, cells_json) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing row insert for dataset %s: %w", ds.ID, err)
	}
	defer stmt.Close()

	cells := make([]string, len(ds.Columns))
	for i, row := range ds.Rows {
		for j, col := range ds.Columns {
			cells[j] = row.Get(col).Raw
		}
		cellsJSON, err := json.Marshal(cells)
		if err != nil {
			return fmt.Errorf("marshalling row %d of dataset %s: %w", i, ds.ID, err)
		}
		if _, err := stmt.Exec(ds.ID, i, string(cellsJSON)); err != nil {
			return fmt.Errorf("inserting row %d of dataset %s: %w", i, ds.ID, err)
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO app_settings (key, value) VALUES (?, ?)", models.ActiveDatasetKey, ds.ID); err != nil {
		return fmt.Errorf("marking dataset %s active: %w", ds.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing dataset %s: %w", ds.ID, err)
	}
	logger.Info("Stored dataset %s (%s): %d columns, %d rows", ds.ID, ds.Filename, len(ds.Columns), len(ds.Rows))
	return nil
}

// LoadActiveDataset returns the active dataset, or nil when none was uploaded.
func LoadActiveDataset() (*models.Dataset, error) {
	id, err := GetSetting(models.ActiveDatasetKey)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}

	ds := models.Dataset{ID: id}
	var colsJSON string
	err = DB.QueryRow("SELECT filename, uploaded_at, columns_json FROM datasets WHERE id = ?", id).
		Scan(&ds.Filename, &ds.UploadedAt, &colsJSON)
	if err != nil {
		return nil, fmt.Errorf("querying dataset %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(colsJSON), &ds.Columns); err != nil {
		return nil, fmt.Errorf("decoding columns of dataset %s: %w", id, err)
	}

	rows, err := DB.Query("SELECT cells_json FROM dataset_rows WHERE dataset_id = ? ORDER BY row_index ASC", id)
	if err != nil {
		return nil, fmt.Errorf("querying rows of dataset %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cellsJSON string
		if err := rows.Scan(&cellsJSON); err != nil {
			return nil, fmt.Errorf("scanning row of dataset %s: %w", id, err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(cellsJSON), &cells); err != nil {
			return nil, fmt.Errorf("decoding row of dataset %s: %w", id, err)
		}
		vals := make([]models.Value, len(ds.Columns))
		for i := range ds.Columns {
			if i < len(cells) {
				vals[i] = models.InferValue(cells[i])
			}
		}
		ds.Rows = append(ds.Rows, models.NewRecord(ds.Columns, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows of dataset %s: %w", id, err)
	}
	return &ds, nil
}
