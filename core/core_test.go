package core

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"lookupdesk/database"
	"lookupdesk/logger"
	"lookupdesk/models"
)

func openTestDB(t *testing.T) {
	t.Helper()
	logger.Discard()
	require.NoError(t, database.InitDB(filepath.Join(t.TempDir(), "core.db")))
	t.Cleanup(func() { _ = database.Close() })
}

// workbook builds an .xlsx in memory. The FECHA column holds real Excel
// dates so both the serial-number path and text cells are exercised.
func workbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	sheet := f.GetSheetName(0)

	rows := [][]interface{}{
		{" DNI ", "FECHA", "NOMBRE", "AREA", ""},
		{"00123", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "Ana", "IT"},
		{"00123", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "Ana (2)", nil},
		{"00123", time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), "Ana old", "HR"},
		{nil, nil, nil, nil},
		{"45678", "02/01/2023", "Bob", "Ops"},
		{"00124", time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), "Cid", "IT"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	style, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "B2", "B7", style))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseWorkbook(t *testing.T) {
	ds, err := ParseWorkbook(workbook(t))
	require.NoError(t, err)
	require.Equal(t, []string{"DNI", "FECHA", "NOMBRE", "AREA"}, ds.Columns)
	require.Len(t, ds.Rows, 5, "blank row skipped")

	first := ds.Rows[0]
	require.Equal(t, "00123", first.Get("DNI").String())
	require.Equal(t, models.KindDate, first.Get("FECHA").Kind)
	require.True(t, first.Get("FECHA").SameDay(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	require.True(t, ds.Rows[1].Get("AREA").IsEmpty())
	require.True(t, ds.Rows[3].Get("FECHA").SameDay(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)), "text dates are day-first")
}

func TestParseWorkbookRejectsGarbage(t *testing.T) {
	_, err := ParseWorkbook(strings.NewReader("not a zip"))
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestHeaderColumns(t *testing.T) {
	require.Equal(t, []string{"A", "Column 2", "A.1", "A.2"}, headerColumns([]string{"A", " ", "A ", "A", "", ""}))
}

func TestLookupServiceFlow(t *testing.T) {
	openTestDB(t)
	svc := NewLookupService(2)

	_, err := svc.Search("00123", "2024-03-15")
	require.ErrorIs(t, err, ErrNoDataset)

	_, err = svc.Upload("data.csv", strings.NewReader("a,b"))
	require.ErrorIs(t, err, ErrInvalidFormat)

	up, err := svc.Upload("Data.XLSX", workbook(t))
	require.NoError(t, err)
	require.Equal(t, []string{"DNI", "FECHA", "NOMBRE", "AREA"}, up.Columns)
	require.True(t, up.CurrentConfig.IsZero())

	_, err = svc.Search("00123", "2024-03-15")
	require.ErrorIs(t, err, ErrNotConfigured)

	err = svc.SaveConfig(models.Configuration{DNIColumn: "DNI", DateColumn: "FECHA", VisibleColumns: []string{"MISSING"}})
	require.ErrorIs(t, err, ErrValidation)
	err = svc.SaveConfig(models.Configuration{DNIColumn: "DNI", DateColumn: "FECHA"})
	require.ErrorIs(t, err, ErrValidation)

	cfg := models.Configuration{DNIColumn: "DNI", DateColumn: "FECHA", VisibleColumns: []string{"NOMBRE", "FECHA", "AREA"}}
	require.NoError(t, svc.SaveConfig(cfg))

	rs, err := svc.Search(" 00123 ", "2024-03-15")
	require.NoError(t, err)
	require.Equal(t, []string{"FECHA", "NOMBRE", "AREA"}, rs.Columns, "dataset order, visible only")
	require.Equal(t, 2, rs.Len())
	require.Equal(t, "15/03/2024", rs.Rows[0].Get("FECHA").String())
	require.Equal(t, "-", rs.Rows[1].Get("AREA").String())

	rs, err = svc.Search("00123", "15/03/2024")
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())

	_, err = svc.Search("00123", "2024-03-16")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Search("00123", "not a date")
	require.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, []string{"00123", "00124"}, svc.Suggest("012"))
	require.Equal(t, []string{"45678"}, svc.Suggest("567"))
	require.Empty(t, svc.Suggest(""))

	rec, loaded, err := svc.Detail("45678")
	require.NoError(t, err)
	require.True(t, loaded)
	require.Equal(t, []string{"DNI", "FECHA", "NOMBRE", "AREA"}, rec.Keys())
	require.Equal(t, "2023-01-02", rec.Get("FECHA").String())

	_, _, err = svc.Detail("99999")
	require.ErrorIs(t, err, ErrNotFound)

	// A fresh service restores the same state from the database.
	restored := NewLookupService(5)
	require.NoError(t, restored.Load())
	require.Equal(t, cfg, restored.Config())
	rs, err = restored.Search("00123", "2024-03-15")
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())
}

func TestAuthenticator(t *testing.T) {
	openTestDB(t)
	auth := NewAuthenticator("test-secret", time.Hour)

	_, err := auth.Register(" ", "pw")
	require.ErrorIs(t, err, ErrInvalidUsername)

	u, err := auth.Register("ana", "s3cret")
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, u.Role)

	_, err = auth.Register("ana", "again")
	require.ErrorIs(t, err, database.ErrUserExists)

	_, err = auth.Login("ana", "wrong")
	require.ErrorIs(t, err, ErrBadCredentials)
	_, err = auth.Login("nobody", "x")
	require.ErrorIs(t, err, ErrBadCredentials)

	tok, err := auth.Login("ana", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "bearer", tok.TokenType)
	require.Equal(t, models.RoleUser, tok.Role)

	claims, err := auth.ParseToken(tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "ana", claims.Subject)
	require.Equal(t, models.RoleUser, claims.Role)
	require.NotEmpty(t, claims.ID)

	_, err = NewAuthenticator("other-secret", time.Hour).ParseToken(tok.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := NewAuthenticator("test-secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.IssueToken("ana", models.RoleUser)
	require.NoError(t, err)
	_, err = auth.ParseToken(old)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthorizeUsesStoredRole(t *testing.T) {
	openTestDB(t)
	auth := NewAuthenticator("test-secret", time.Hour)
	_, err := auth.Register("ana", "pw")
	require.NoError(t, err)
	tok, err := auth.Login("ana", "pw")
	require.NoError(t, err)

	require.NoError(t, database.SetUserRole("ana", models.RoleAdmin))
	claims, err := auth.Authorize(tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, claims.Role)

	ghost, err := auth.IssueToken("ghost", models.RoleAdmin)
	require.NoError(t, err)
	_, err = auth.Authorize(ghost)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.Authorize("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	openTestDB(t)
	require.NoError(t, EnsureBootstrapAdmin("admin", ""))
	n, err := database.CountUsers()
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, EnsureBootstrapAdmin("admin", "pw"))
	u, err := database.GetUserByUsername("admin")
	require.NoError(t, err)
	require.True(t, u.IsAdmin())

	require.NoError(t, EnsureBootstrapAdmin("second", "pw"))
	n, err = database.CountUsers()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
