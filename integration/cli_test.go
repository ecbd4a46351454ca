//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hochfrequenz/script-agent/internal/domain"
)

const safariScript = `tell application "Safari" to activate`

// binaryPath builds the CLI once per test run
func binaryPath(t *testing.T) string {
	t.Helper()
	p := "../script-agent"
	if _, err := os.Stat(p); err == nil {
		abs, _ := filepath.Abs(p)
		return abs
	}

	t.Log("Binary not found, building...")
	cmd := exec.Command("go", "build", "-o", p, "../cmd/script-agent")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, out)
	}
	abs, _ := filepath.Abs(p)
	return abs
}

// createTestConfig writes a config that talks to baseURL and runs scripts with
// osascriptPath instead of the real osascript.
func createTestConfig(t *testing.T, dbPath, baseURL, osascriptPath string) string {
	t.Helper()
	configPath := TempConfigPath(t)
	writeFile(t, configPath, `[general]
database_path = "`+dbPath+`"
osascript = "`+osascriptPath+`"

[openai]
base_url = "`+baseURL+`"
max_retries = 1

[notifications]
desktop = false
`)
	return configPath
}

// fakeOpenAI answers chat completions with a fenced script and records the
// user messages it received.
type fakeOpenAI struct {
	mu       sync.Mutex
	requests [][]map[string]string
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Messages []map[string]string `json:"messages"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.requests = append(f.requests, body.Messages)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": "```applescript\n" + safariScript + "\n```"}},
		},
	})
}

func runCLI(t *testing.T, binary, stdin string, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Dir = t.TempDir()
	cmd.Env = append(append(os.Environ(), "HOME="+t.TempDir()), env...)
	cmd.Stdin = strings.NewReader(stdin)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestCLI_DoRecordsAndReusesScript(t *testing.T) {
	binary := binaryPath(t)
	truePath, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true binary not available")
	}

	fake := &fakeOpenAI{}
	server := httptest.NewServer(fake)
	defer server.Close()

	dbPath := TempDBPath(t)
	configPath := createTestConfig(t, dbPath, server.URL, truePath)
	env := []string{"OPENAI_API_KEY=sk-test"}

	out, err := runCLI(t, binary, "yes\n", env, "--config", configPath, "do", "open", "Safari")
	if err != nil {
		t.Fatalf("do failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, safariScript) {
		t.Errorf("output should show the generated script:\n%s", out)
	}

	out, err = runCLI(t, binary, "yes\n", env, "--config", configPath, "do", "open Safari")
	if err != nil {
		t.Fatalf("second do failed: %v\n%s", err, out)
	}

	attempts := ListAttempts(t, dbPath)
	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts))
	}
	for _, a := range attempts {
		if a.Command != "open Safari" || !a.Succeeded || a.Verified != domain.Unverified {
			t.Errorf("unexpected attempt %+v", a)
		}
	}

	if len(fake.requests) != 2 {
		t.Fatalf("completion requests = %d, want 2", len(fake.requests))
	}
	if len(fake.requests[0]) != 2 {
		t.Errorf("first request should carry no hint, got %d messages", len(fake.requests[0]))
	}
	second := fake.requests[1]
	if len(second) != 4 || second[2]["content"] != safariScript {
		t.Errorf("second request should carry the previous script as hint: %v", second)
	}
}

func TestCLI_DoDeclined(t *testing.T) {
	binary := binaryPath(t)
	server := httptest.NewServer(&fakeOpenAI{})
	defer server.Close()

	dbPath := TempDBPath(t)
	configPath := createTestConfig(t, dbPath, server.URL, "/nonexistent/osascript")

	out, err := runCLI(t, binary, "no\n", []string{"OPENAI_API_KEY=sk-test"}, "--config", configPath, "do", "open Safari")
	if err != nil {
		t.Fatalf("declined do should exit cleanly: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Execution cancelled.") {
		t.Errorf("output = %s", out)
	}
	if n := len(ListAttempts(t, dbPath)); n != 0 {
		t.Errorf("declined command wrote %d attempts", n)
	}
}

func TestCLI_MissingAPIKey(t *testing.T) {
	binary := binaryPath(t)
	dbPath := TempDBPath(t)
	configPath := createTestConfig(t, dbPath, "http://127.0.0.1:1", "osascript")

	out, err := runCLI(t, binary, "type\nopen Safari\n", []string{"OPENAI_API_KEY="}, "--config", configPath)
	if err == nil {
		t.Fatalf("expected failure without API key:\n%s", out)
	}
	if !strings.Contains(out, "OPENAI_API_KEY") {
		t.Errorf("error should name the missing variable:\n%s", out)
	}
	if strings.Contains(out, "Type 'speak'") {
		t.Error("loop must not start without an API key")
	}
}

func TestCLI_HistoryShowStats(t *testing.T) {
	binary := binaryPath(t)
	dbPath := TempDBPath(t)
	configPath := createTestConfig(t, dbPath, "http://127.0.0.1:1", "osascript")

	SeedAttempts(t, dbPath,
		&domain.Attempt{Command: "open Safari", Script: safariScript, Succeeded: true},
		&domain.Attempt{Command: "new numbers doc", Script: "x", ErrorMessage: "Not authorised to send Apple events"},
		&domain.Attempt{Command: "open Safari", Script: safariScript, Succeeded: true, Verified: domain.VerifiedFailure, Feedback: "wrong window"},
	)

	out, err := runCLI(t, binary, "", nil, "--config", configPath, "history")
	if err != nil {
		t.Fatalf("history failed: %v\n%s", err, out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("history lines = %d, want 4:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "3") || !strings.Contains(lines[1], "ok/rejected") {
		t.Errorf("newest attempt should come first: %q", lines[1])
	}

	out, err = runCLI(t, binary, "", nil, "--config", configPath, "history", "--command", "new numbers doc")
	if err != nil {
		t.Fatalf("history --command failed: %v\n%s", err, out)
	}
	if strings.Contains(out, "open Safari") || !strings.Contains(out, "failed") {
		t.Errorf("filtered history:\n%s", out)
	}

	out, err = runCLI(t, binary, "", nil, "--config", configPath, "show", "3")
	if err != nil {
		t.Fatalf("show failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "wrong window") || !strings.Contains(out, safariScript) {
		t.Errorf("show output:\n%s", out)
	}

	if out, err = runCLI(t, binary, "", nil, "--config", configPath, "show", "99"); err == nil || !strings.Contains(out, "not found") {
		t.Errorf("show 99 should fail with not found:\n%s", out)
	}

	out, err = runCLI(t, binary, "", nil, "--config", configPath, "stats")
	if err != nil {
		t.Fatalf("stats failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Attempts:", "3", "Rejected by user:"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q:\n%s", want, out)
		}
	}
}
