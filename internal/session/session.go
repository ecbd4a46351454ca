// Package session runs one natural-language command end to end: hint lookup,
// generation, approval, execution, verification and recording.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hochfrequenz/script-agent/internal/domain"
	"github.com/hochfrequenz/script-agent/internal/executor"
	"github.com/hochfrequenz/script-agent/internal/notify"
	"github.com/hochfrequenz/script-agent/internal/recorder"
	"github.com/hochfrequenz/script-agent/internal/verify"
)

// Questions asked during a session
const (
	ApprovalQuestion = "Execute this script? (yes/no)"
	VerifyQuestion   = "Did this achieve what you wanted? (yes/no)"
	FeedbackQuestion = "What wasn't correct about the result?"
)

// ErrNotRecorded marks a command whose outcome could not be saved. The user has
// already been told when Handle returns it.
var ErrNotRecorded = errors.New("outcome not recorded")

// HintFinder looks up the latest reusable script for a command
type HintFinder interface {
	FindHint(ctx context.Context, command string) (string, bool, error)
}

// ScriptGenerator turns a command into a script
type ScriptGenerator interface {
	Generate(ctx context.Context, command, hint string) (string, error)
}

// ScriptRunner executes a script
type ScriptRunner interface {
	Run(ctx context.Context, script string) (executor.Outcome, error)
}

// ResultRecorder persists the final outcome
type ResultRecorder interface {
	Record(ctx context.Context, res recorder.Result) (*domain.Attempt, error)
}

// Prompter is the user-facing side of a session
type Prompter interface {
	Confirm(question string) (bool, error)
	Ask(question string) (string, error)
	ShowScript(script string)
	Info(msg string)
	Error(msg string)
	Remediation(steps []string)
}

// Config wires a Session
type Config struct {
	Retriever HintFinder
	Generator ScriptGenerator
	Executor  ScriptRunner
	Recorder  ResultRecorder
	Prompter  Prompter
	Notifier  notify.Notifier
	Logger    *zap.Logger
	Verify    bool
}

// Session handles commands one at a time
type Session struct {
	retriever HintFinder
	generator ScriptGenerator
	executor  ScriptRunner
	recorder  ResultRecorder
	prompter  Prompter
	notifier  notify.Notifier
	logger    *zap.Logger
	verify    bool
}

// New creates a Session. Notifier and Logger are optional.
func New(cfg Config) *Session {
	s := &Session{
		retriever: cfg.Retriever,
		generator: cfg.Generator,
		executor:  cfg.Executor,
		recorder:  cfg.Recorder,
		prompter:  cfg.Prompter,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		verify:    cfg.Verify,
	}
	if s.notifier == nil {
		s.notifier = notify.NoopNotifier{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// VerifyEnabled reports whether results are confirmed by the user
func (s *Session) VerifyEnabled() bool {
	return s.verify
}

// Handle runs one command. It returns whether the script executed
// successfully. Execution failures are recorded and reported through the
// prompter, not returned as errors.
func (s *Session) Handle(ctx context.Context, command string) (bool, error) {
	// The command is stored and matched exactly as issued.
	if strings.TrimSpace(command) == "" {
		return false, domain.ErrEmptyCommand
	}

	log := s.logger.With(zap.String("session", uuid.NewString()), zap.String("command", command))

	hint, found, err := s.retriever.FindHint(ctx, command)
	if err != nil {
		log.Error("hint lookup failed", zap.Error(err))
		return false, err
	}
	log.Debug("hint lookup", zap.Bool("found", found))

	script, err := s.generator.Generate(ctx, command, hint)
	if err != nil {
		log.Warn("generation failed", zap.Error(err))
		return false, err
	}

	s.prompter.ShowScript(script)
	approved, err := s.prompter.Confirm(ApprovalQuestion)
	if err != nil {
		return false, fmt.Errorf("reading approval: %w", err)
	}
	if !approved {
		s.prompter.Info("Execution cancelled.")
		log.Info("execution declined")
		return false, domain.ErrDeclined
	}

	outcome, err := s.executor.Run(ctx, script)
	if err != nil {
		// Interrupted mid-run: the script may have had effects, so it is
		// still recorded as a failure.
		outcome = executor.Outcome{Stderr: "interrupted: " + err.Error()}
	}
	s.reportExecution(outcome)

	gate := verify.NewGate(s.verify)
	if err := gate.ExecutionFinished(outcome.Succeeded); err != nil {
		return outcome.Succeeded, err
	}
	if gate.Pending() && ctx.Err() == nil {
		s.askVerification(gate, log)
	}
	verified, feedback := gate.Outcome()

	attempt, err := s.recorder.Record(context.WithoutCancel(ctx), recorder.Result{
		Command:      command,
		Script:       script,
		Succeeded:    outcome.Succeeded,
		ErrorMessage: outcome.Stderr,
		Verified:     verified,
		Feedback:     feedback,
	})
	if err != nil {
		log.Error("recording attempt failed", zap.Error(err))
		s.prompter.Error("The outcome of this command could not be saved: " + err.Error())
		var se *domain.StorageError
		if !errors.As(err, &se) {
			err = &domain.StorageError{Op: "record attempt", Err: err}
		}
		return outcome.Succeeded, fmt.Errorf("%w: %w", ErrNotRecorded, err)
	}
	log.Info("attempt recorded",
		zap.Int64("attempt_id", attempt.ID),
		zap.Bool("succeeded", attempt.Succeeded),
		zap.Stringer("verified", attempt.Verified))

	if err := s.notifier.Send(ctx, notify.ForAttempt(attempt)); err != nil {
		log.Warn("notification failed", zap.Error(err))
	}
	return outcome.Succeeded, nil
}

func (s *Session) reportExecution(o executor.Outcome) {
	if o.Succeeded {
		if s.verify {
			s.prompter.Info("Script executed without errors.")
		} else {
			s.prompter.Info("Script executed successfully!")
		}
		if out := strings.TrimSpace(o.Stdout); out != "" {
			s.prompter.Info(out)
		}
		return
	}

	if executor.ClassifyFailure(o.Stderr) == executor.FailurePermission {
		s.prompter.Remediation(executor.PermissionRemediation)
	}
	s.prompter.Error("Execution failed: " + strings.TrimSpace(o.Stderr))
}

// askVerification drives the gate from the user's answers. A failed read
// leaves the gate pending, which records the attempt as unverified.
func (s *Session) askVerification(gate *verify.Gate, log *zap.Logger) {
	ok, err := s.prompter.Confirm(VerifyQuestion)
	if err != nil {
		log.Warn("verification answer unavailable", zap.Error(err))
		return
	}
	if ok {
		_ = gate.Confirm()
		return
	}

	feedback, err := s.prompter.Ask(FeedbackQuestion)
	if err != nil {
		log.Warn("feedback unavailable", zap.Error(err))
	}
	_ = gate.Reject(feedback)
}
