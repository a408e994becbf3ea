package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"lookupdesk/gateway"
	"lookupdesk/models"
	"lookupdesk/tableview"
)

type stubSearcher struct {
	rs    models.ResultSet
	err   error
	calls []string
}

func (s *stubSearcher) SearchUser(_ context.Context, dni, date string) (models.ResultSet, error) {
	s.calls = append(s.calls, dni+"|"+date)
	return s.rs, s.err
}

func sample() models.ResultSet {
	cols := []string{"NOMBRE", "AREA", "FECHA"}
	return models.NewResultSet([]models.Record{
		models.NewRecord(cols, []models.Value{models.InferValue("Carla"), models.InferValue("IT"), models.InferValue("15/03/2024")}),
		models.NewRecord(cols, []models.Value{models.InferValue("ana"), models.InferValue("HR"), models.InferValue("01/01/2020")}),
		models.NewRecord(cols, []models.Value{models.InferValue("Bruno"), models.InferValue("IT"), models.InferValue("02/02/2022")}),
	})
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

// loaded returns a model that has run its initial search against stub.
func loaded(t *testing.T, stub *stubSearcher) Model {
	t.Helper()
	m := New(stub, "00123", "15/03/2024", 0)
	cmd := m.Init()
	require.NotNil(t, cmd)
	return press(t, m, cmd())
}

func TestInitialSearchLoadsResult(t *testing.T) {
	stub := &stubSearcher{rs: sample()}
	m := loaded(t, stub)

	require.Equal(t, []string{"00123|15/03/2024"}, stub.calls)
	require.False(t, m.loading)
	d := m.view.Derive()
	require.Equal(t, tableview.StatusReady, d.Status)
	require.Equal(t, 3, d.RowCount)
	require.Len(t, m.table.Rows(), 3)
	require.Contains(t, m.View(), "Showing 3 of 3 rows")
}

func TestNoArgumentsOpensSearchForm(t *testing.T) {
	m := New(&stubSearcher{}, "", "", 0)
	require.Equal(t, modeSearch, m.mode)
	require.True(t, m.dni.Focused())
	require.Equal(t, tableview.StatusNoQuery, m.view.Derive().Status)
}

func TestSortAndToggleKeys(t *testing.T) {
	m := loaded(t, &stubSearcher{rs: sample()})

	m = press(t, m, keyRunes("s"))
	st := m.view.State()
	require.Equal(t, "NOMBRE", st.SortKey)
	require.Equal(t, tableview.Ascending, st.SortDir)
	require.Equal(t, "Bruno", m.table.Rows()[0][0], "text sorts lexicographically")

	m = press(t, m, keyRunes("s"))
	require.Equal(t, tableview.Descending, m.view.State().SortDir)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight}, keyRunes("h"))
	require.True(t, m.view.IsHidden("AREA"))
	require.Equal(t, []string{"NOMBRE", "FECHA"}, m.view.Derive().Columns)

	m = press(t, m, keyRunes("h"))
	require.False(t, m.view.IsHidden("AREA"))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyLeft})
	col, ok := m.selectedColumn()
	require.True(t, ok)
	require.Equal(t, "FECHA", col, "selection wraps around")
}

func TestFilterMode(t *testing.T) {
	m := loaded(t, &stubSearcher{rs: sample()})

	m = press(t, m, keyRunes("/"), keyRunes("i"), keyRunes("t"))
	require.Equal(t, modeFilter, m.mode)
	d := m.view.Derive()
	require.Equal(t, 2, d.RowCount)
	require.Equal(t, 3, d.TotalRows)

	m = press(t, m, keyRunes("zz"))
	require.Equal(t, tableview.StatusNoMatches, m.view.Derive().Status)
	require.Contains(t, m.View(), "No rows match")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, modeBrowse, m.mode)
}

func TestColumnMatchShowHideAll(t *testing.T) {
	m := loaded(t, &stubSearcher{rs: sample()})

	m = press(t, m, keyRunes("-"))
	require.Empty(t, m.view.Derive().Columns, "empty match hides everything")
	require.Contains(t, m.View(), "All columns are hidden")

	m = press(t, m, keyRunes("c"), keyRunes("fe"), tea.KeyMsg{Type: tea.KeyEnter}, keyRunes("+"))
	require.Equal(t, []string{"FECHA"}, m.view.Derive().Columns)
	require.Equal(t, 3, m.view.Derive().RowCount)
}

func TestStaleSearchResponsesAreDiscarded(t *testing.T) {
	stub := &stubSearcher{rs: sample()}
	m := New(stub, "", "", 0)
	m.dni.SetValue("1")
	m.date.SetValue("2024-01-01")

	m, first := m.startSearch()
	m, second := m.startSearch()
	require.NotNil(t, first)
	require.NotNil(t, second)

	latest := second().(searchResultMsg)
	stale := first().(searchResultMsg)
	stale.err = errors.New("late failure")

	m = press(t, m, latest, stale)
	require.Empty(t, m.errMsg, "stale failure must not replace the newer result")
	require.Equal(t, tableview.StatusReady, m.view.Derive().Status)
}

func TestSearchErrorShowsUserMessage(t *testing.T) {
	stub := &stubSearcher{err: &gateway.APIError{Status: 503, Kind: gateway.ErrNotConfigured}}
	m := loaded(t, stub)
	require.Equal(t, gateway.MaintenanceMessage, m.errMsg)
	require.Equal(t, tableview.StatusNoQuery, m.view.Derive().Status)
}

func TestEmptyResultIsSuppressed(t *testing.T) {
	m := loaded(t, &stubSearcher{rs: models.ResultSet{Columns: []string{"A"}}})
	require.Equal(t, tableview.StatusEmpty, m.view.Derive().Status)
	require.NotContains(t, m.View(), "Showing")
}

func TestNewSearchFromBrowse(t *testing.T) {
	stub := &stubSearcher{rs: sample()}
	m := loaded(t, stub)

	m = press(t, m, keyRunes("n"))
	require.Equal(t, modeSearch, m.mode)
	m.dni.SetValue("999")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.True(t, m.loading)
	require.Equal(t, tableview.StatusNoQuery, m.view.Derive().Status)
	m = press(t, m, cmd())
	require.Equal(t, "999|15/03/2024", stub.calls[len(stub.calls)-1])
}

func TestQuitKey(t *testing.T) {
	m := loaded(t, &stubSearcher{rs: sample()})
	_, cmd := m.Update(keyRunes("q"))
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}
