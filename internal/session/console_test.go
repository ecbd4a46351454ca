package session

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsYes(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"yes", true},
		{"YES", true},
		{" y ", true},
		{"no", false},
		{"", false},
		{"yep", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsYes(tt.in), tt.in)
	}
}

func TestConsole_Ask(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("  wrong window \nyes\nlast"), &out)

	got, err := c.Ask(FeedbackQuestion)
	require.NoError(t, err)
	assert.Equal(t, "wrong window", got)
	assert.Contains(t, out.String(), FeedbackQuestion)

	ok, err := c.Confirm(VerifyQuestion)
	require.NoError(t, err)
	assert.True(t, ok)

	// final line without newline is still an answer
	got, err = c.Ask("?")
	require.NoError(t, err)
	assert.Equal(t, "last", got)

	_, err = c.Ask("?")
	assert.ErrorIs(t, err, io.EOF)
}

func TestConsole_LineKeepsSpaces(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("  open Safari \r\nopen Safari"), &out)

	got, err := c.Line("Enter your command:")
	require.NoError(t, err)
	assert.Equal(t, "  open Safari ", got)

	got, err = c.Line("Enter your command:")
	require.NoError(t, err)
	assert.Equal(t, "open Safari", got)

	_, err = c.Line("Enter your command:")
	assert.ErrorIs(t, err, io.EOF)
}

func TestConsole_Output(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader(""), &out)

	c.ShowScript(safariScript)
	c.Info("Script executed successfully!")
	c.Error("Execution failed: boom")
	c.Remediation([]string{"Open System Settings", "Go to Privacy & Security > Automation"})

	s := out.String()
	assert.Contains(t, s, "Generated AppleScript:")
	assert.Contains(t, s, safariScript)
	assert.Contains(t, s, "Execution failed: boom")
	assert.Contains(t, s, "Permission required!")
	assert.Contains(t, s, "1. Open System Settings")
	assert.Contains(t, s, "2. Go to Privacy & Security > Automation")
}
