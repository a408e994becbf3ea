package models

import "time"

// Dataset is an uploaded spreadsheet: ordered header plus typed rows.
type Dataset struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	Columns    []string  `json:"columns"`
	Rows       []Record  `json:"-"`
}

// UploadResponse is returned by POST /api/admin/upload.
type UploadResponse struct {
	Message       string        `json:"message"`
	Columns       []string      `json:"columns"`
	CurrentConfig Configuration `json:"current_config"`
}
