package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lookupdesk/logger"
	"lookupdesk/models"
)

func openTestDB(t *testing.T) {
	t.Helper()
	logger.Discard()
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { _ = Close() })
}

func TestSystemConfigRoundTrip(t *testing.T) {
	openTestDB(t)

	cfg, err := GetSystemConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsZero())

	want := models.Configuration{DNIColumn: "DNI", DateColumn: "FECHA", VisibleColumns: []string{"DNI", "NOMBRE"}}
	require.NoError(t, SetSystemConfig(want))
	got, err := GetSystemConfig()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestUsers(t *testing.T) {
	openTestDB(t)

	u, err := CreateUser("ana", "hash", models.RoleUser)
	require.NoError(t, err)
	require.Equal(t, "ana", u.Username)
	require.False(t, u.IsAdmin())

	_, err = CreateUser("ana", "other", models.RoleUser)
	require.ErrorIs(t, err, ErrUserExists)

	require.NoError(t, SetUserRole("ana", models.RoleAdmin))
	u, err = GetUserByUsername("ana")
	require.NoError(t, err)
	require.True(t, u.IsAdmin())

	require.ErrorIs(t, SetUserRole("nobody", models.RoleAdmin), ErrUserNotFound)
	_, err = GetUserByUsername("nobody")
	require.ErrorIs(t, err, ErrUserNotFound)

	n, err := CountUsers()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestDatasetReplaceAndLoad(t *testing.T) {
	openTestDB(t)

	ds, err := LoadActiveDataset()
	require.NoError(t, err)
	require.Nil(t, ds)

	cols := []string{"DNI", "FECHA", "NOMBRE"}
	first := models.Dataset{
		ID:         "first",
		Filename:   "a.xlsx",
		UploadedAt: time.Now().UTC().Truncate(time.Second),
		Columns:    cols,
		Rows: []models.Record{
			models.NewRecord(cols, []models.Value{models.InferValue("00123"), models.InferValue("15/03/2024"), models.InferValue("Ana")}),
			models.NewRecord(cols, []models.Value{models.InferValue("456"), models.Empty, models.InferValue("Bob")}),
		},
	}
	require.NoError(t, ReplaceActiveDataset(first))

	second := first
	second.ID = "second"
	second.Rows = first.Rows[:1]
	require.NoError(t, ReplaceActiveDataset(second))

	loaded, err := LoadActiveDataset()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "second", loaded.ID)
	require.Equal(t, cols, loaded.Columns)
	require.Len(t, loaded.Rows, 1)
	require.Equal(t, "00123", loaded.Rows[0].Get("DNI").String())
	require.Equal(t, models.KindDate, loaded.Rows[0].Get("FECHA").Kind)

	var leftover int
	require.NoError(t, DB.QueryRow("SELECT COUNT(*) FROM dataset_rows WHERE dataset_id = 'first'").Scan(&leftover))
	require.Zero(t, leftover)
}
