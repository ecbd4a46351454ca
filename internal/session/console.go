package session

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	scriptHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	scriptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	questionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))
)

// Console is a line-oriented Prompter over a reader and writer
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a Console
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Ask prints the question and returns the trimmed answer line. io.EOF is
// returned only when no input at all was available.
func (c *Console) Ask(question string) (string, error) {
	line, err := c.Line(question)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Line prints the question and returns the answer with only the line ending
// removed.
func (c *Console) Line(question string) (string, error) {
	fmt.Fprintf(c.out, "\n%s ", questionStyle.Render(question))
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}

// Confirm asks a yes/no question. Only "yes" or "y" count as yes.
func (c *Console) Confirm(question string) (bool, error) {
	answer, err := c.Ask(question)
	if err != nil {
		return false, err
	}
	return IsYes(answer), nil
}

// IsYes reports whether an answer is affirmative
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y":
		return true
	}
	return false
}

func (c *Console) ShowScript(script string) {
	fmt.Fprintf(c.out, "\n%s\n%s\n", scriptHeaderStyle.Render("Generated AppleScript:"), scriptStyle.Render(script))
}

func (c *Console) Info(msg string) {
	fmt.Fprintln(c.out, msg)
}

func (c *Console) Error(msg string) {
	fmt.Fprintln(c.out, errorStyle.Render(msg))
}

// Remediation explains how to grant the Automation permission
func (c *Console) Remediation(steps []string) {
	fmt.Fprintln(c.out, warningStyle.Render("\nPermission required! To allow this script to control applications, please:"))
	for i, step := range steps {
		fmt.Fprintf(c.out, "%d. %s\n", i+1, step)
	}
	fmt.Fprintln(c.out, "\nAfter granting permission, try running the command again.")
}
