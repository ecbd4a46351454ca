// Package executor runs generated AppleScript through osascript.
package executor

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/hochfrequenz/script-agent/internal/domain"
	"go.uber.org/zap"
)

// PermissionSignature is the osascript stderr text for a missing Automation permission.
// Update it here if macOS changes the wording.
const PermissionSignature = "Not authorised to send Apple events"

// PermissionRemediation tells the user how to grant the Automation permission.
var PermissionRemediation = []string{
	"Open System Settings",
	"Go to Privacy & Security > Automation",
	"Find your terminal application in the list",
	"Enable the checkbox for the application you want to control (e.g., Numbers)",
}

// FailureKind classifies a failed execution
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureGeneric
	FailurePermission
)

// ClassifyFailure maps osascript stderr to a failure kind. It is the only place
// that inspects error text.
func ClassifyFailure(stderr string) FailureKind {
	if strings.Contains(stderr, PermissionSignature) {
		return FailurePermission
	}
	return FailureGeneric
}

// Outcome is the result of running one script
type Outcome struct {
	Succeeded bool
	Stdout    string
	Stderr    string
}

// Err returns nil for a successful outcome, otherwise a classified *domain.ExecutionError.
func (o Outcome) Err() error {
	if o.Succeeded {
		return nil
	}
	return &domain.ExecutionError{
		Stderr:     o.Stderr,
		Permission: ClassifyFailure(o.Stderr) == FailurePermission,
	}
}

// CommandRunner abstracts execution of external commands for testability.
type CommandRunner interface {
	// Run executes name with args and returns stdout, stderr and the exit error.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Executor runs AppleScript source
type Executor struct {
	runner CommandRunner
	binary string
	logger *zap.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithRunner replaces the command runner
func WithRunner(r CommandRunner) Option {
	return func(e *Executor) { e.runner = r }
}

// WithBinary sets the osascript binary path
func WithBinary(path string) Option {
	return func(e *Executor) { e.binary = path }
}

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// New creates an Executor using osascript from PATH
func New(opts ...Option) *Executor {
	e := &Executor{runner: ExecRunner{}, binary: "osascript", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the script with `osascript -e`. A script that fails, or an
// osascript that cannot be started, yields an unsuccessful Outcome; the error
// return is reserved for cancellation.
func (e *Executor) Run(ctx context.Context, script string) (Outcome, error) {
	stdout, stderr, err := e.runner.Run(ctx, e.binary, "-e", script)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{}, ctxErr
	}

	if err == nil {
		e.logger.Debug("script succeeded", zap.Int("stdout_bytes", len(stdout)))
		return Outcome{Succeeded: true, Stdout: stdout, Stderr: stderr}, nil
	}

	// osascript may not have started at all (missing binary, not macOS)
	if strings.TrimSpace(stderr) == "" {
		stderr = err.Error()
	}

	e.logger.Debug("script failed", zap.Error(err), zap.String("stderr", stderr))
	return Outcome{Succeeded: false, Stdout: stdout, Stderr: stderr}, nil
}
