package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hochfrequenz/script-agent/internal/audio"
	"github.com/hochfrequenz/script-agent/internal/domain"
	"github.com/hochfrequenz/script-agent/internal/prompts"
	"github.com/hochfrequenz/script-agent/internal/session"
)

const modeQuestion = "Type 'speak' to record audio, 'type' to enter text, or 'quit' to exit:"

// commandHandler runs one command
type commandHandler interface {
	Handle(ctx context.Context, command string) (bool, error)
}

// listener turns speech into a command
type listener interface {
	Listen(ctx context.Context) (string, error)
}

type clipRecorder interface {
	Record(ctx context.Context, d time.Duration) ([]byte, string, error)
}

type transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// voiceInput records a clip and transcribes it
type voiceInput struct {
	recorder    clipRecorder
	transcriber transcriber
	duration    time.Duration
}

func (v *voiceInput) Listen(ctx context.Context) (string, error) {
	data, name, err := v.recorder.Record(ctx, v.duration)
	if err != nil {
		return "", err
	}
	text, err := v.transcriber.Transcribe(ctx, data, name)
	if err != nil {
		return "", fmt.Errorf("transcribing audio: %w", err)
	}
	return text, nil
}

// interruptible gives each command its own Ctrl-C scope so an interrupt
// cancels the running command, while Ctrl-C at the prompt ends the process.
type interruptible struct {
	next commandHandler
}

func (i interruptible) Handle(ctx context.Context, command string) (bool, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return i.next.Handle(ctx, command)
}

// loop reads modes and commands until quit or end of input
type loop struct {
	console  *session.Console
	handler  commandHandler
	listener listener
	seconds  int
}

func (l *loop) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		mode, err := l.console.Ask(modeQuestion)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var command string
		switch strings.ToLower(mode) {
		case "quit":
			l.console.Info("Exiting.")
			return nil
		case "speak":
			if l.listener == nil {
				l.console.Error("Speech input is not available.")
				continue
			}
			l.console.Info(fmt.Sprintf("Recording for %d seconds...", l.seconds))
			command, err = l.listener.Listen(ctx)
			if err != nil {
				l.console.Error("Error " + err.Error())
				continue
			}
			l.console.Info("Finished recording.")
			l.console.Info("Transcribed Text: " + command)
		case "type":
			command, err = l.console.Line("Enter your command:")
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		default:
			l.console.Info("Invalid option.")
			continue
		}

		_, err = l.handler.Handle(ctx, command)
		l.report(err)
	}
}

// report prints a per-command failure. The loop always continues.
func (l *loop) report(err error) {
	var genErr *domain.GenerationError
	switch {
	case err == nil, errors.Is(err, domain.ErrDeclined):
		// the session already told the user
	case errors.Is(err, domain.ErrEmptyCommand):
		l.console.Error("Please enter a command.")
	case errors.As(err, &genErr):
		l.console.Error("Error generating AppleScript: " + genErr.Err.Error())
	case errors.Is(err, session.ErrNotRecorded):
		// the session already said the outcome was not saved
	case errors.Is(err, context.Canceled):
		l.console.Error("Interrupted.")
	case errors.Is(err, domain.ErrStorage):
		l.console.Error("Attempt log unavailable: " + err.Error())
	default:
		l.console.Error("Error: " + err.Error())
	}
}

func runInteractive(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.openAIClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	wd, _ := os.Getwd()
	loader := prompts.DefaultLoader(wd)
	if a.cfg.General.WatchPrompts {
		watcher, err := prompts.NewOverrideWatcher(loader, func(changed []string) {
			a.logger.Info("prompt templates reloaded", zap.Strings("files", changed))
		})
		if err != nil {
			a.logger.Warn("prompt watcher unavailable", zap.Error(err))
		} else {
			watcher.Start(ctx)
			defer watcher.Stop()
		}
	}

	s, console := a.newSession(client, loader, os.Stdin, os.Stdout)
	if s.VerifyEnabled() {
		console.Info("Verification is on: you will be asked whether each successful script did what you wanted.")
	}

	l := &loop{
		console: console,
		handler: interruptible{next: s},
		listener: &voiceInput{
			recorder:    audio.NewRecorder(a.cfg.Audio.Recorder, "", a.logger.Named("audio")),
			transcriber: client,
			duration:    time.Duration(a.cfg.Audio.RecordSeconds) * time.Second,
		},
		seconds: a.cfg.Audio.RecordSeconds,
	}
	return l.run(ctx)
}

func runDo(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.openAIClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	wd, _ := os.Getwd()
	s, _ := a.newSession(client, prompts.DefaultLoader(wd), os.Stdin, os.Stdout)

	ok, err := s.Handle(ctx, strings.Join(args, " "))
	if errors.Is(err, domain.ErrDeclined) {
		return nil
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("script failed")
	}
	return nil
}
