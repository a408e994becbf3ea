package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Search     key.Binding
	Filter     key.Binding
	PrevColumn key.Binding
	NextColumn key.Binding
	Sort       key.Binding
	Hide       key.Binding
	Match      key.Binding
	ShowAll    key.Binding
	HideAll    key.Binding
	Quit       key.Binding
	Submit     key.Binding
	Cancel     key.Binding
	NextField  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Search:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new search")),
		Filter:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter rows")),
		PrevColumn: key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "prev column")),
		NextColumn: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next column")),
		Sort:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Hide:       key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "show/hide column")),
		Match:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "column match")),
		ShowAll:    key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "show matching")),
		HideAll:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "hide matching")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Submit:     key.NewBinding(key.WithKeys("enter")),
		Cancel:     key.NewBinding(key.WithKeys("esc")),
		NextField:  key.NewBinding(key.WithKeys("tab", "shift+tab")),
	}
}

func (k keyMap) browseHelp() []key.Binding {
	return []key.Binding{k.Search, k.Filter, k.PrevColumn, k.NextColumn, k.Sort, k.Hide, k.Match, k.ShowAll, k.HideAll, k.Quit}
}
