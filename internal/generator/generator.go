// Package generator turns a command, plus an optional known-good script, into a new AppleScript.
package generator

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/hochfrequenz/script-agent/internal/domain"
	"github.com/hochfrequenz/script-agent/internal/llm"
	"github.com/hochfrequenz/script-agent/internal/prompts"
	"go.uber.org/zap"
)

// Completer is the text-generation collaborator
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Generator builds the augmented prompt and cleans up the response
type Generator struct {
	client Completer
	loader *prompts.Loader
	logger *zap.Logger
}

// New creates a Generator. A nil logger disables logging.
func New(client Completer, loader *prompts.Loader, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, loader: loader, logger: logger}
}

// BuildMessages composes the fixed rules, the optional hint and the command.
func (g *Generator) BuildMessages(command, hint string) ([]llm.Message, error) {
	system, err := g.loader.SystemPrompt()
	if err != nil {
		return nil, err
	}
	messages := []llm.Message{{Role: llm.RoleSystem, Content: system}}

	if strings.TrimSpace(hint) != "" {
		intro, err := g.loader.HintIntro()
		if err != nil {
			return nil, err
		}
		messages = append(messages,
			llm.Message{Role: llm.RoleSystem, Content: intro},
			llm.Message{Role: llm.RoleUser, Content: hint},
		)
	}

	request, err := g.loader.Request(command)
	if err != nil {
		return nil, err
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: request}), nil
}

// Generate returns a cleaned script for command. The hint, when present, is offered
// to the model as an example only. Every failure is a *domain.GenerationError.
func (g *Generator) Generate(ctx context.Context, command, hint string) (string, error) {
	messages, err := g.BuildMessages(command, hint)
	if err != nil {
		return "", &domain.GenerationError{Command: command, Err: err}
	}

	g.logger.Debug("requesting script",
		zap.String("command", command),
		zap.Bool("hint", hint != ""),
		zap.Int("messages", len(messages)),
	)

	raw, err := g.client.Complete(ctx, messages)
	if err != nil {
		return "", &domain.GenerationError{Command: command, Err: err}
	}

	script := CleanScript(raw)
	if script == "" {
		return "", &domain.GenerationError{Command: command, Err: errors.New("model returned an empty script")}
	}
	return script, nil
}

var fenceRegex = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z]*[ \t]*$\n?")

// CleanScript strips markdown code fences the model may add and trims whitespace.
func CleanScript(raw string) string {
	s := fenceRegex.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "```applescript", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
