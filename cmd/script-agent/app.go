package main

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/script-agent/internal/attemptstore"
	"github.com/hochfrequenz/script-agent/internal/config"
	"github.com/hochfrequenz/script-agent/internal/executor"
	"github.com/hochfrequenz/script-agent/internal/generator"
	"github.com/hochfrequenz/script-agent/internal/llm"
	"github.com/hochfrequenz/script-agent/internal/logging"
	"github.com/hochfrequenz/script-agent/internal/notify"
	"github.com/hochfrequenz/script-agent/internal/prompts"
	"github.com/hochfrequenz/script-agent/internal/recorder"
	"github.com/hochfrequenz/script-agent/internal/retriever"
	"github.com/hochfrequenz/script-agent/internal/session"
)

// app holds what every subcommand needs
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *attemptstore.Store
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if dbPath != "" {
		cfg.General.DatabasePath = config.ExpandPath(dbPath)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if verifyFlag {
		cfg.General.Verify = true
	}
	return cfg, nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}

	if err := config.EnsureDir(cfg.General.DatabasePath); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	store, err := attemptstore.New(cfg.General.DatabasePath, attemptstore.WithLogger(logger.Named("store")))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger.Debug("attempt log opened", zap.String("path", cfg.General.DatabasePath))
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func (a *app) Close() {
	a.store.Close()
	logging.Sync(a.logger)
}

func (a *app) openAIClient() (*llm.Client, error) {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return llm.NewClient(llm.Config{
		APIKey:             a.cfg.OpenAI.APIKey,
		BaseURL:            a.cfg.OpenAI.BaseURL,
		Model:              a.cfg.OpenAI.Model,
		MaxTokens:          a.cfg.OpenAI.MaxTokens,
		TranscriptionModel: a.cfg.OpenAI.TranscriptionModel,
		Timeout:            time.Duration(a.cfg.OpenAI.TimeoutSeconds) * time.Second,
		MaxRetries:         a.cfg.OpenAI.MaxRetries,
		Logger:             a.logger.Named("openai"),
	})
}

func (a *app) notifier() notify.Notifier {
	return notify.NewMultiNotifier(
		notify.NewDesktopNotifier(a.cfg.Notifications.Desktop),
		notify.NewSlackNotifier(a.cfg.Notifications.SlackWebhook),
	)
}

func (a *app) newSession(client *llm.Client, loader *prompts.Loader, in io.Reader, out io.Writer) (*session.Session, *session.Console) {
	console := session.NewConsole(in, out)
	s := session.New(session.Config{
		Retriever: retriever.New(a.store),
		Generator: generator.New(client, loader, a.logger.Named("generator")),
		Executor: executor.New(
			executor.WithBinary(a.cfg.General.Osascript),
			executor.WithLogger(a.logger.Named("executor")),
		),
		Recorder: recorder.New(a.store),
		Prompter: console,
		Notifier: a.notifier(),
		Logger:   a.logger.Named("session"),
		Verify:   a.cfg.General.Verify,
	})
	return s, console
}
