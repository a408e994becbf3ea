package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"lookupdesk/logger"
	"lookupdesk/models"
)

// GetSetting retrieves a specific setting value from the app_settings table.
func GetSetting(key string) (string, error) {
	var value string
	err := DB.QueryRow("SELECT value FROM app_settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil // Not found is not an error
		}
		return "", fmt.Errorf("failed to get setting '%s': %w", key, err)
	}
	return value, nil
}

// SetSetting saves or updates a specific setting value in the app_settings table.
func SetSetting(key, value string) error {
	_, err := DB.Exec("INSERT OR REPLACE INTO app_settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("failed to execute set setting for key '%s': %w", key, err)
	}
	return nil
}

// GetSystemConfig returns the saved lookup Configuration, or the zero value
// when nothing has been saved yet.
func GetSystemConfig() (models.Configuration, error) {
	raw, err := GetSetting(models.SystemConfigKey)
	if err != nil {
		return models.Configuration{}, err
	}
	var cfg models.Configuration
	if raw == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		logger.Error("GetSystemConfig: Error unmarshalling config JSON: %v. Stored value: %s", err, raw)
		return models.Configuration{}, fmt.Errorf("failed to unmarshal system config: %w", err)
	}
	return cfg, nil
}

// SetSystemConfig persists the lookup Configuration.
func SetSystemConfig(cfg models.Configuration) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal system config: %w", err)
	}
	if err := SetSetting(models.SystemConfigKey, string(raw)); err != nil {
		return fmt.Errorf("failed to save system config: %w", err)
	}
	return nil
}
