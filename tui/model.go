// Package tui is the terminal browser for lookup results. It drives a
// tableview.View from keyboard input and runs searches through the gateway.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"
	"lookupdesk/gateway"
	"lookupdesk/models"
	"lookupdesk/tableview"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Searcher runs the public lookup.
type Searcher interface {
	SearchUser(ctx context.Context, dni, entryDate string) (models.ResultSet, error)
}

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeFilter
	modeMatch
)

const maxColumnWidth = 32

// searchResultMsg carries a finished search tagged with its sequence number.
type searchResultMsg struct {
	seq uint64
	rs  models.ResultSet
	err error
}

// Model is the bubbletea model of the result browser.
type Model struct {
	searcher Searcher
	seq      *gateway.Sequencer
	timeout  time.Duration
	view     *tableview.View
	keys     keyMap
	help     help.Model

	mode     mode
	dni      textinput.Model
	date     textinput.Model
	filter   textinput.Model
	match    textinput.Model
	table    table.Model
	selected int

	loading bool
	errMsg  string
	info    string
	width   int
	height  int
	pending tea.Cmd
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	return ti
}

// New builds a browser. A non-empty dni and date start a search at Init;
// otherwise the search form opens first.
func New(searcher Searcher, dni, entryDate string, timeout time.Duration) Model {
	if timeout <= 0 {
		timeout = gateway.DefaultTimeout
	}
	m := Model{
		searcher: searcher,
		seq:      &gateway.Sequencer{},
		timeout:  timeout,
		view:     tableview.New(),
		keys:     defaultKeyMap(),
		help:     help.New(),
		dni:      newInput("DNI", 20),
		date:     newInput("dd/mm/yyyy or yyyy-mm-dd", 10),
		filter:   newInput("text in any column", 64),
		match:    newInput("column name contains", 64),
		table:    table.New(table.WithFocused(true), table.WithStyles(tableStyles())),
	}
	m.dni.SetValue(strings.TrimSpace(dni))
	m.date.SetValue(strings.TrimSpace(entryDate))
	if m.dni.Value() != "" && m.date.Value() != "" {
		m, m.pending = m.startSearch()
	} else {
		m.mode = modeSearch
		m.dni.Focus()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.pending != nil {
		return m.pending
	}
	return textinput.Blink
}

// startSearch clears the current result and issues a tagged search.
func (m Model) startSearch() (Model, tea.Cmd) {
	dni, date := strings.TrimSpace(m.dni.Value()), strings.TrimSpace(m.date.Value())
	if dni == "" || date == "" {
		m.errMsg = "Both DNI and entry date are required."
		return m, nil
	}
	seq := m.seq.Next()
	searcher, timeout := m.searcher, m.timeout
	m.view.Clear()
	m.view.SetFilter(m.filter.Value())
	m.selected = 0
	m.loading = true
	m.errMsg, m.info = "", ""
	m.refreshTable()
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		rs, err := searcher.SearchUser(ctx, dni, date)
		return searchResultMsg{seq: seq, rs: rs, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.refreshTable()
		return m, nil

	case searchResultMsg:
		if !m.seq.Current(msg.seq) {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.errMsg = gateway.UserMessage(msg.err)
			return m, nil
		}
		m.view.SetResult(msg.rs)
		m.selected = 0
		if msg.rs.Len() > 0 {
			m.info = fmt.Sprintf("%d record(s) found.", msg.rs.Len())
		}
		m.refreshTable()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeFilter:
			return m.updateFilter(msg)
		case modeMatch:
			return m.updateMatch(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := m.view.Columns()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.date.Blur()
		cmd := m.dni.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Filter):
		m.mode = modeFilter
		cmd := m.filter.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Match):
		m.mode = modeMatch
		cmd := m.match.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.PrevColumn):
		if len(cols) > 0 {
			m.selected = (m.selected - 1 + len(cols)) % len(cols)
		}
	case key.Matches(msg, m.keys.NextColumn):
		if len(cols) > 0 {
			m.selected = (m.selected + 1) % len(cols)
		}
	case key.Matches(msg, m.keys.Sort):
		if col, ok := m.selectedColumn(); ok {
			m.view.SetSort(col)
		}
	case key.Matches(msg, m.keys.Hide):
		if col, ok := m.selectedColumn(); ok {
			m.view.ToggleColumnVisibility(col)
		}
	case key.Matches(msg, m.keys.ShowAll):
		m.view.ToggleAllVisibility(true, m.match.Value())
	case key.Matches(msg, m.keys.HideAll):
		m.view.ToggleAllVisibility(false, m.match.Value())
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	m.refreshTable()
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		m.dni.Blur()
		m.date.Blur()
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		if m.dni.Focused() {
			m.dni.Blur()
			cmd := m.date.Focus()
			return m, cmd
		}
		m.date.Blur()
		cmd := m.dni.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Submit):
		if m.dni.Focused() && m.date.Value() == "" {
			m.dni.Blur()
			cmd := m.date.Focus()
			return m, cmd
		}
		m.mode = modeBrowse
		m.dni.Blur()
		m.date.Blur()
		return m.startSearch()
	}
	var cmd tea.Cmd
	if m.dni.Focused() {
		m.dni, cmd = m.dni.Update(msg)
	} else {
		m.date, cmd = m.date.Update(msg)
	}
	return m, cmd
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) || key.Matches(msg, m.keys.Cancel) {
		m.mode = modeBrowse
		m.filter.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.view.SetFilter(m.filter.Value())
	m.refreshTable()
	return m, cmd
}

func (m Model) updateMatch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) || key.Matches(msg, m.keys.Cancel) {
		m.mode = modeBrowse
		m.match.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.match, cmd = m.match.Update(msg)
	return m, cmd
}

func (m Model) selectedColumn() (string, bool) {
	cols := m.view.Columns()
	if m.selected < 0 || m.selected >= len(cols) {
		return "", false
	}
	return cols[m.selected], true
}

// refreshTable rebuilds the bubbles table from the view's derived display.
func (m *Model) refreshTable() {
	d := m.view.Derive()
	st := m.view.State()
	selected, _ := m.selectedColumn()

	columns := make([]table.Column, len(d.Columns))
	widths := make([]int, len(d.Columns))
	for i, c := range d.Columns {
		title := c
		if c == st.SortKey {
			switch st.SortDir {
			case tableview.Ascending:
				title += " ▲"
			case tableview.Descending:
				title += " ▼"
			}
		}
		if c == selected {
			title = "[" + title + "]"
		}
		columns[i] = table.Column{Title: title}
		widths[i] = lipgloss.Width(title)
	}

	rows := make([]table.Row, len(d.Rows))
	for i, vals := range d.Rows {
		row := make(table.Row, len(vals))
		for j, v := range vals {
			row[j] = v.String()
			if w := lipgloss.Width(row[j]); w > widths[j] {
				widths[j] = w
			}
		}
		rows[i] = row
	}
	for i := range columns {
		columns[i].Width = min(widths[i], maxColumnWidth)
	}

	// Rows must never be wider than the column set while it changes.
	m.table.SetRows(nil)
	m.table.SetColumns(columns)
	m.table.SetRows(rows)

	height := m.height - 12
	if height < 5 {
		height = 5
	}
	m.table.SetHeight(height)
	if m.width > 4 {
		m.table.SetWidth(m.width - 4)
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Employee lookup"))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("DNI: "))
	b.WriteString(m.dni.View())
	b.WriteString("   ")
	b.WriteString(labelStyle.Render("Entry date: "))
	b.WriteString(m.date.View())
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(infoStyle.Render("Searching..."))
	case m.errMsg != "":
		b.WriteString(errorStyle.Render(m.errMsg))
	case m.info != "":
		b.WriteString(infoStyle.Render(m.info))
	}
	b.WriteString("\n\n")

	d := m.view.Derive()
	switch d.Status {
	case tableview.StatusNoQuery:
		if !m.loading && m.errMsg == "" {
			b.WriteString(helpStyle.Render("Enter a DNI and entry date, then press enter."))
		}
	case tableview.StatusEmpty:
	case tableview.StatusNoMatches:
		b.WriteString(helpStyle.Render(fmt.Sprintf("No rows match %q (0 of %d).", m.filter.Value(), d.TotalRows)))
	case tableview.StatusReady:
		if len(d.Columns) == 0 {
			b.WriteString(helpStyle.Render("All columns are hidden. Press + to show them."))
		} else {
			b.WriteString(boxStyle.Render(m.table.View()))
		}
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(fmt.Sprintf("Showing %d of %d rows", d.RowCount, d.TotalRows)))
	}
	b.WriteString("\n")

	if col, ok := m.selectedColumn(); ok {
		state := "visible"
		if m.view.IsHidden(col) {
			state = "hidden"
		}
		b.WriteString(labelStyle.Render("Column: "))
		b.WriteString(selectedColumnStyle.Render(col))
		b.WriteString(labelStyle.Render(" (" + state + ")"))
		b.WriteString("\n")
	}
	b.WriteString(labelStyle.Render("Filter: "))
	b.WriteString(m.filter.View())
	b.WriteString("   ")
	b.WriteString(labelStyle.Render("Columns matching: "))
	b.WriteString(m.match.View())
	b.WriteString("\n\n")

	if m.mode == modeBrowse {
		b.WriteString(m.help.ShortHelpView(m.keys.browseHelp()))
	} else {
		b.WriteString(helpStyle.Render("enter confirm • esc cancel • tab switch field"))
	}
	return b.String()
}

// Run opens the browser on the terminal until the user quits.
func Run(searcher Searcher, dni, entryDate string, timeout time.Duration) error {
	_, err := tea.NewProgram(New(searcher, dni, entryDate, timeout), tea.WithAltScreen()).Run()
	return err
}
