package tuiapp

import (
	tea "github.com/charmbracelet/bubbletea"
)

// handleModalKey routes input to the top modal: Esc/q pop it, PgUp/PgDn
// scroll its viewport, everything else is swallowed (spec "Top modal
// captures input").
func (m *Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	top, ok := m.topModal()
	if !ok {
		return m, nil
	}

	switch msg.String() {
	case "esc", "q":
		m.popModal()
		return m, nil
	case "pgup":
		top.Viewport.PageUp()
	case "pgdown":
		top.Viewport.PageDown()
	case "home":
		top.Viewport.GotoTop()
	case "end":
		top.Viewport.GotoBottom()
	default:
		return m, nil
	}

	m.modals[len(m.modals)-1] = top
	m.dirty.modal = true
	return m, nil
}

// handleSearchKey implements spec §4.5's search mode: keystrokes append to
// the live query, Enter commits it as the filter, Esc restores the prior
// committed value. Selection commands are disabled while searching.
func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchQuery = m.committedQuery
		m.dirty.status, m.dirty.list = true, true
		return m, m.refreshListCmd()
	case "enter":
		m.searching = false
		m.committedQuery = m.searchQuery
		m.dirty.status = true
		return m, nil
	case "/":
		m.searching = false
		m.dirty.status = true
		return m, nil
	case "backspace":
		if len(m.searchQuery) > 0 {
			m.searchQuery = m.searchQuery[:len(m.searchQuery)-1]
		}
		m.dirty.status, m.dirty.list = true, true
		return m, m.refreshListCmd()
	default:
		if msg.Type == tea.KeyRunes {
			m.searchQuery += string(msg.Runes)
			m.dirty.status, m.dirty.list = true, true
			return m, m.refreshListCmd()
		}
	}
	return m, nil
}
