//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hochfrequenz/script-agent/internal/attemptstore"
	"github.com/hochfrequenz/script-agent/internal/domain"
)

// TempDBPath creates a temporary database path for testing
func TempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "attempts.db")
}

// TempConfigPath creates a temporary config file path for testing
func TempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.toml")
}

// SeedAttempts appends attempts to the database at dbPath
func SeedAttempts(t *testing.T, dbPath string, attempts ...*domain.Attempt) {
	t.Helper()
	store, err := attemptstore.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	for _, a := range attempts {
		if _, err := store.Append(context.Background(), a); err != nil {
			t.Fatalf("Failed to seed attempt: %v", err)
		}
	}
}

// ListAttempts reads every attempt from the database at dbPath
func ListAttempts(t *testing.T, dbPath string) []*domain.Attempt {
	t.Helper()
	store, err := attemptstore.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	attempts, err := store.List(context.Background(), attemptstore.ListOptions{})
	if err != nil {
		t.Fatalf("Failed to list attempts: %v", err)
	}
	return attempts
}

// writeFile writes content to path, creating parent directories
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}
