package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.showDetail {
				m.showDetail = false
				return m, nil
			}
			return m, tea.Quit
		case "r":
			return m, m.refreshCmd()
		case "j", "down":
			if m.selectedRow < len(m.visible())-1 {
				m.selectedRow++
			}
			if maxVisible := m.listHeight(); m.selectedRow >= m.scroll+maxVisible {
				m.scroll = m.selectedRow - maxVisible + 1
			}
		case "k", "up":
			if m.selectedRow > 0 {
				m.selectedRow--
			}
			if m.selectedRow < m.scroll {
				m.scroll = m.selectedRow
			}
		case "g", "home":
			m.selectedRow = 0
			m.scroll = 0
		case "G", "end":
			m.selectedRow = len(m.visible()) - 1
			m.clampSelection()
			if maxVisible := m.listHeight(); m.selectedRow >= maxVisible {
				m.scroll = m.selectedRow - maxVisible + 1
			}
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			m.selectedRow = 0
			m.scroll = 0
		case "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
			m.selectedRow = 0
			m.scroll = 0
		case "enter":
			if m.Selected() != nil {
				m.showDetail = !m.showDetail
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case AttemptsLoadedMsg:
		m.loadErr = msg.Err
		if msg.Err == nil {
			m.SetAttempts(msg.Attempts)
			m.lastRefresh = time.Now()
		}
	}

	return m, nil
}
