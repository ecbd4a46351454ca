package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hochfrequenz/script-agent/internal/domain"
)

// Tabs filter the attempt list
const (
	TabAll = iota
	TabReusable
	TabFailed
	TabRejected
	tabCount
)

// LoadFunc fetches attempts newest first
type LoadFunc func(ctx context.Context) ([]*domain.Attempt, error)

// Model is the history browser
type Model struct {
	// Data
	attempts []*domain.Attempt
	load     LoadFunc
	loadErr  error

	// UI state
	width       int
	height      int
	activeTab   int
	selectedRow int
	scroll      int
	showDetail  bool
	filter      string

	lastRefresh time.Time
}

// ModelConfig holds initial data for the TUI model
type ModelConfig struct {
	Attempts []*domain.Attempt
	Load     LoadFunc
	Command  string // only show attempts for this command when set
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	return Model{
		attempts:    cfg.Attempts,
		load:        cfg.Load,
		filter:      cfg.Command,
		lastRefresh: time.Now(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return m.refreshCmd()
}

// AttemptsLoadedMsg carries a fresh attempt list
type AttemptsLoadedMsg struct {
	Attempts []*domain.Attempt
	Err      error
}

func (m Model) refreshCmd() tea.Cmd {
	if m.load == nil {
		return nil
	}
	load := m.load
	return func() tea.Msg {
		attempts, err := load(context.Background())
		return AttemptsLoadedMsg{Attempts: attempts, Err: err}
	}
}

// visible returns the attempts shown on the active tab
func (m Model) visible() []*domain.Attempt {
	var out []*domain.Attempt
	for _, a := range m.attempts {
		if m.filter != "" && a.Command != m.filter {
			continue
		}
		switch m.activeTab {
		case TabReusable:
			if !a.Reusable() {
				continue
			}
		case TabFailed:
			if a.Succeeded {
				continue
			}
		case TabRejected:
			if a.Verified != domain.VerifiedFailure {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// Selected returns the highlighted attempt, or nil when the tab is empty
func (m Model) Selected() *domain.Attempt {
	v := m.visible()
	if m.selectedRow < 0 || m.selectedRow >= len(v) {
		return nil
	}
	return v[m.selectedRow]
}

// SetAttempts replaces the attempt list, keeping the selection in range
func (m *Model) SetAttempts(attempts []*domain.Attempt) {
	m.attempts = attempts
	m.clampSelection()
}

func (m *Model) clampSelection() {
	n := len(m.visible())
	if m.selectedRow >= n {
		m.selectedRow = n - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
	if m.scroll > m.selectedRow {
		m.scroll = m.selectedRow
	}
}

func (m Model) listHeight() int {
	h := m.height - 8
	if m.showDetail {
		h = h / 2
	}
	if h < 3 {
		h = 3
	}
	return h
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
