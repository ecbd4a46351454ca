package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hochfrequenz/script-agent/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("238"))

	succeededStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dimmedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

var tabNames = [tabCount]string{"All", "Reusable", "Failed", "Rejected"}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	succeeded, failed := 0, 0
	for _, a := range m.attempts {
		if a.Succeeded {
			succeeded++
		} else {
			failed++
		}
	}
	header := fmt.Sprintf(" script-agent history │ Attempts: %d │ Succeeded: %d │ Failed: %d ", len(m.attempts), succeeded, failed)
	if m.filter != "" {
		header += fmt.Sprintf("│ Command: %s ", truncate(m.filter, 40))
	}
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderList()))
	b.WriteString("\n")

	if m.showDetail {
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderDetail()))
		b.WriteString("\n")
	}

	status := " j/k: move │ tab: filter │ enter: script │ r: refresh │ q: quit"
	if m.loadErr != nil {
		status = " " + failedStyle.Render("refresh failed: "+m.loadErr.Error())
	}
	b.WriteString(statusBarStyle.Width(m.width).Render(status))

	return b.String()
}

func (m Model) renderTabs() string {
	var parts []string
	for i, tab := range tabNames {
		if i == m.activeTab {
			parts = append(parts, tabActiveStyle.Render(fmt.Sprintf(" %s ", tab)))
		} else {
			parts = append(parts, tabInactiveStyle.Render(fmt.Sprintf(" %s ", tab)))
		}
	}
	return strings.Join(parts, "│")
}

func (m Model) renderList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(tabNames[m.activeTab])))
	b.WriteString("\n")

	visible := m.visible()
	if len(visible) == 0 {
		b.WriteString(dimmedStyle.Render("  No attempts recorded yet."))
		return b.String()
	}

	end := m.scroll + m.listHeight()
	if end > len(visible) {
		end = len(visible)
	}
	for i := m.scroll; i < end; i++ {
		line := m.formatAttemptLine(visible[i])
		if i == m.selectedRow {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(visible) > end {
		b.WriteString(dimmedStyle.Render(fmt.Sprintf("  ... %d more", len(visible)-end)))
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) formatAttemptLine(a *domain.Attempt) string {
	commandWidth := m.width - 40
	if commandWidth < 20 {
		commandWidth = 20
	}
	return fmt.Sprintf("#%-5d %s  %s  %s",
		a.ID,
		a.CreatedAt.Local().Format("2006-01-02 15:04"),
		statusStyle(a).Render(fmt.Sprintf("%-14s", a.Status())),
		truncate(a.Command, commandWidth))
}

func statusStyle(a *domain.Attempt) lipgloss.Style {
	switch {
	case !a.Succeeded:
		return failedStyle
	case a.Verified == domain.VerifiedFailure:
		return warningStyle
	default:
		return succeededStyle
	}
}

func (m Model) renderDetail() string {
	a := m.Selected()
	if a == nil {
		return dimmedStyle.Render("  Nothing selected.")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("ATTEMPT #%d", a.ID)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Command: %s\n", a.Command)
	fmt.Fprintf(&b, "Status:  %s\n", statusStyle(a).Render(a.Status()))
	if a.ErrorMessage != "" {
		fmt.Fprintf(&b, "Error:   %s\n", failedStyle.Render(firstLine(a.ErrorMessage)))
	}
	if a.Feedback != "" {
		fmt.Fprintf(&b, "Feedback: %s\n", warningStyle.Render(a.Feedback))
	}
	b.WriteString("\n")
	b.WriteString(a.Script)

	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
