package core

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lookupdesk/database"
	"lookupdesk/logger"
	"lookupdesk/models"
)

// LookupService serves queries from the active dataset and configuration,
// both cached in memory and persisted through the database package.
type LookupService struct {
	mu      sync.RWMutex
	dataset *models.Dataset
	config  models.Configuration

	SuggestionLimit int
	now             func() time.Time
}

// NewLookupService returns an empty service; call Load to restore state.
func NewLookupService(suggestionLimit int) *LookupService {
	if suggestionLimit <= 0 {
		suggestionLimit = 5
	}
	return &LookupService{SuggestionLimit: suggestionLimit, now: time.Now}
}

// Load restores the active dataset and configuration from the database.
func (s *LookupService) Load() error {
	ds, err := database.LoadActiveDataset()
	if err != nil {
		return fmt.Errorf("loading active dataset: %w", err)
	}
	cfg, err := database.GetSystemConfig()
	if err != nil {
		return fmt.Errorf("loading system config: %w", err)
	}

	s.mu.Lock()
	s.dataset = ds
	s.config = cfg
	s.mu.Unlock()

	if ds == nil {
		logger.Info("LookupService: no dataset uploaded yet; queries will report maintenance.")
	} else {
		logger.Info("LookupService: loaded dataset %s (%s) with %d rows.", ds.ID, ds.Filename, len(ds.Rows))
	}
	return nil
}

// SetDataset swaps the in-memory dataset without persisting it.
func (s *LookupService) SetDataset(ds *models.Dataset) {
	s.mu.Lock()
	s.dataset = ds
	s.mu.Unlock()
}

// Columns returns the active dataset's header, nil when none is loaded.
func (s *LookupService) Columns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil
	}
	out := make([]string, len(s.dataset.Columns))
	copy(out, s.dataset.Columns)
	return out
}

// Config returns the cached configuration.
func (s *LookupService) Config() models.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Upload parses an .xlsx workbook and makes it the active dataset.
func (s *LookupService) Upload(filename string, r io.Reader) (models.UploadResponse, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return models.UploadResponse{}, fmt.Errorf("%w: only .xlsx files are accepted", ErrInvalidFormat)
	}
	ds, err := ParseWorkbook(r)
	if err != nil {
		return models.UploadResponse{}, err
	}
	ds.ID = uuid.NewString()
	ds.Filename = filepath.Base(filename)
	ds.UploadedAt = s.now().UTC()

	if err := database.ReplaceActiveDataset(*ds); err != nil {
		return models.UploadResponse{}, fmt.Errorf("storing dataset: %w", err)
	}

	s.mu.Lock()
	s.dataset = ds
	cfg := s.config
	s.mu.Unlock()

	return models.UploadResponse{
		Message:       "File uploaded",
		Columns:       ds.Columns,
		CurrentConfig: cfg,
	}, nil
}

// SaveConfig validates and persists cfg. When a dataset is loaded every
// referenced column must exist in it.
func (s *LookupService) SaveConfig(cfg models.Configuration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.RLock()
	ds := s.dataset
	s.mu.RUnlock()
	if ds != nil && len(ds.Columns) > 0 {
		rs := models.ResultSet{Columns: ds.Columns}
		if !rs.HasColumn(cfg.DNIColumn) {
			return &models.ValidationError{Field: "dni_column", Reason: fmt.Sprintf("column %q does not exist", cfg.DNIColumn)}
		}
		if !rs.HasColumn(cfg.DateColumn) {
			return &models.ValidationError{Field: "date_column", Reason: fmt.Sprintf("column %q does not exist", cfg.DateColumn)}
		}
		for _, c := range cfg.VisibleColumns {
			if !rs.HasColumn(c) {
				return &models.ValidationError{Field: "visible_columns", Reason: fmt.Sprintf("column %q does not exist", c)}
			}
		}
	}

	if err := database.SetSystemConfig(cfg); err != nil {
		return err
	}
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	return nil
}

// Search returns every row whose identifier equals dni and whose date column
// falls on the calendar day of entryDate, projected to the visible columns.
func (s *LookupService) Search(dni, entryDate string) (models.ResultSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dataset == nil || len(s.dataset.Rows) == 0 {
		return models.ResultSet{}, ErrNoDataset
	}
	cfg := s.config
	ds := s.dataset
	header := models.ResultSet{Columns: ds.Columns}
	if !cfg.KeysConfigured() || !header.HasColumn(cfg.DNIColumn) || !header.HasColumn(cfg.DateColumn) {
		return models.ResultSet{}, ErrNotConfigured
	}

	when, ok := models.ParseDate(entryDate)
	if !ok {
		return models.ResultSet{}, fmt.Errorf("%w: unrecognised entry date %q", ErrNotFound, entryDate)
	}
	dni = strings.TrimSpace(dni)

	visible := make([]string, 0, len(ds.Columns))
	for _, c := range ds.Columns {
		if cfg.IsVisible(c) {
			visible = append(visible, c)
		}
	}

	var rows []models.Record
	for _, r := range ds.Rows {
		if strings.TrimSpace(r.Get(cfg.DNIColumn).String()) != dni {
			continue
		}
		if !r.Get(cfg.DateColumn).SameDay(when) {
			continue
		}
		rows = append(rows, r.Project(visible).Map(queryCell))
	}
	if len(rows) == 0 {
		return models.ResultSet{}, ErrNotFound
	}
	return models.ResultSet{Columns: visible, Rows: rows}, nil
}

func queryCell(v models.Value) models.Value {
	switch v.Kind {
	case models.KindEmpty:
		return models.TextValue("-")
	case models.KindDate:
		return models.DateValue(v.Time, models.QueryDateLayout)
	}
	return v
}

func detailCell(v models.Value) models.Value {
	if v.Kind == models.KindDate {
		return models.DateValue(v.Time, models.DetailDateLayout)
	}
	return v
}

// Suggest returns up to SuggestionLimit distinct identifiers containing
// fragment, in dataset order.
func (s *LookupService) Suggest(fragment string) []string {
	fragment = strings.TrimSpace(fragment)
	out := []string{}
	if fragment == "" {
		return out
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil || s.config.DNIColumn == "" {
		return out
	}

	seen := make(map[string]bool)
	for _, r := range s.dataset.Rows {
		id := strings.TrimSpace(r.Get(s.config.DNIColumn).String())
		if id == "" || seen[id] || !strings.Contains(id, fragment) {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) >= s.SuggestionLimit {
			break
		}
	}
	return out
}

// Detail returns the first full row whose identifier equals dni. The bool is
// false when no dataset is loaded.
func (s *LookupService) Detail(dni string) (models.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dataset == nil || len(s.dataset.Rows) == 0 {
		return models.Record{}, false, nil
	}
	col := s.config.DNIColumn
	if col == "" {
		return models.Record{}, true, ErrNotConfigured
	}
	dni = strings.TrimSpace(dni)
	for _, r := range s.dataset.Rows {
		if strings.TrimSpace(r.Get(col).String()) == dni {
			return r.Map(detailCell), true, nil
		}
	}
	return models.Record{}, true, ErrNotFound
}
