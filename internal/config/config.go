package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables read on top of the config file
const (
	EnvAPIKey   = "OPENAI_API_KEY"
	EnvDatabase = "SCRIPT_AGENT_DB"
	EnvModel    = "SCRIPT_AGENT_MODEL"
)

// ErrMissingAPIKey is returned when no OpenAI credential is configured
var ErrMissingAPIKey = errors.New(EnvAPIKey + " environment variable is not set")

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	OpenAI        OpenAIConfig        `toml:"openai"`
	Audio         AudioConfig         `toml:"audio"`
	Notifications NotificationsConfig `toml:"notifications"`
	Logging       LoggingConfig       `toml:"logging"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"`
	Verify       bool   `toml:"verify"`
	Osascript    string `toml:"osascript"`
	WatchPrompts bool   `toml:"watch_prompts"`
}

// OpenAIConfig holds generation and transcription API settings.
// The API key is never read from the file.
type OpenAIConfig struct {
	BaseURL            string `toml:"base_url"`
	Model              string `toml:"model"`
	MaxTokens          int    `toml:"max_tokens"`
	TranscriptionModel string `toml:"transcription_model"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	MaxRetries         int    `toml:"max_retries"`

	APIKey string `toml:"-"`
}

// AudioConfig holds microphone capture settings
type AudioConfig struct {
	Recorder      string `toml:"recorder"`
	RecordSeconds int    `toml:"record_seconds"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// LoggingConfig holds diagnostic logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".script-agent", "script_solutions.db"),
			Osascript:    "osascript",
		},
		OpenAI: OpenAIConfig{
			BaseURL:            "https://api.openai.com",
			Model:              "gpt-3.5-turbo",
			MaxTokens:          400,
			TranscriptionModel: "whisper-1",
			MaxRetries:         2,
		},
		Audio: AudioConfig{
			Recorder:      "rec",
			RecordSeconds: 5,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.OpenAI.APIKey = os.Getenv(EnvAPIKey)
	if v := os.Getenv(EnvDatabase); v != "" {
		c.General.DatabasePath = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.OpenAI.Model = v
	}
}

// Validate rejects settings the rest of the program cannot work with
func (c *Config) Validate() error {
	if c.General.DatabasePath == "" {
		return fmt.Errorf("general.database_path must be set")
	}
	if c.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("openai.max_tokens must be positive, got %d", c.OpenAI.MaxTokens)
	}
	if c.OpenAI.TimeoutSeconds < 0 {
		return fmt.Errorf("openai.timeout_seconds must not be negative")
	}
	if c.Audio.RecordSeconds <= 0 {
		return fmt.Errorf("audio.record_seconds must be positive, got %d", c.Audio.RecordSeconds)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// RequireAPIKey fails when the OpenAI credential is absent
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// LoadDotEnv loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "script-agent", "config.toml")
}

// EnsureDir creates the parent directory of the database file
func EnsureDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(dbPath), 0755)
}
