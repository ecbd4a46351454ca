package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/hochfrequenz/script-agent/internal/domain"
	"github.com/hochfrequenz/script-agent/internal/llm"
	"github.com/hochfrequenz/script-agent/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	response string
	err      error
	got      []llm.Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.got = messages
	return f.response, f.err
}

func TestBuildMessages_WithoutHint(t *testing.T) {
	g := New(&fakeCompleter{}, prompts.NewLoader(), nil)

	msgs, err := g.BuildMessages("open Safari", "")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "expert AppleScript developer")
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "Generate AppleScript code to: open Safari"}, msgs[1])
}

func TestBuildMessages_WithHint(t *testing.T) {
	g := New(&fakeCompleter{}, prompts.NewLoader(), nil)
	hint := `tell application "Safari" to activate`

	msgs, err := g.BuildMessages("open Safari", hint)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.Message{Role: llm.RoleSystem, Content: "Here's a previously successful solution for reference:"}, msgs[1])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: hint}, msgs[2])
	assert.Equal(t, "Generate AppleScript code to: open Safari", msgs[3].Content)
}

func TestGenerate_CleansResponse(t *testing.T) {
	fc := &fakeCompleter{response: "```applescript\ntell application \"Safari\" to activate\n```\n"}
	g := New(fc, prompts.NewLoader(), nil)

	script, err := g.Generate(context.Background(), "open Safari", "")
	require.NoError(t, err)
	assert.Equal(t, `tell application "Safari" to activate`, script)
	assert.Len(t, fc.got, 2)
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name string
		fc   *fakeCompleter
	}{
		{"collaborator error", &fakeCompleter{err: errors.New("connection refused")}},
		{"empty response", &fakeCompleter{response: "  \n"}},
		{"only fences", &fakeCompleter{response: "```\n```"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fc, prompts.NewLoader(), nil).Generate(context.Background(), "open Safari", "")
			var genErr *domain.GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, "open Safari", genErr.Command)
		})
	}
}

func TestCleanScript(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "  display dialog \"hi\"\n", `display dialog "hi"`},
		{"applescript fence", "```applescript\nbeep\n```", "beep"},
		{"bare fence", "```\nbeep\n```", "beep"},
		{"osascript fence", "```osascript\nbeep\n```", "beep"},
		{"indented fence", "  ```applescript\nbeep\n  ```", "beep"},
		{"inline fence", "```applescript beep```", "beep"},
		{
			"multiline body kept",
			"```applescript\ntell application \"Finder\"\n    activate\nend tell\n```",
			"tell application \"Finder\"\n    activate\nend tell",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanScript(tt.raw); got != tt.want {
				t.Errorf("CleanScript(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
