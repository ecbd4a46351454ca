// Package verify tracks whether a human confirmed that a script did what was asked.
package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hochfrequenz/script-agent/internal/domain"
)

// State of the verification gate for one attempt
type State int

const (
	Unverified State = iota
	PendingConfirmation
	VerifiedSuccess
	VerifiedFailure
)

func (s State) String() string {
	switch s {
	case PendingConfirmation:
		return "pending_confirmation"
	case VerifiedSuccess:
		return "verified_success"
	case VerifiedFailure:
		return "verified_failure"
	default:
		return "unverified"
	}
}

// ErrInvalidTransition is returned when an event does not apply to the current state
var ErrInvalidTransition = errors.New("invalid verification transition")

// Gate is the verification state machine. A Gate is used for a single attempt.
type Gate struct {
	enabled  bool
	state    State
	feedback string
}

// NewGate creates a gate in the Unverified state
func NewGate(enabled bool) *Gate {
	return &Gate{enabled: enabled}
}

// State returns the current state
func (g *Gate) State() State {
	return g.state
}

// ExecutionFinished moves to PendingConfirmation when verification is enabled and
// the script succeeded. Otherwise the gate stays Unverified.
func (g *Gate) ExecutionFinished(succeeded bool) error {
	if g.state != Unverified {
		return fmt.Errorf("%w: execution finished in state %s", ErrInvalidTransition, g.state)
	}
	if succeeded && g.enabled {
		g.state = PendingConfirmation
	}
	return nil
}

// Pending reports whether the gate is waiting for a human answer
func (g *Gate) Pending() bool {
	return g.state == PendingConfirmation
}

// Confirm records an affirmative answer
func (g *Gate) Confirm() error {
	if g.state != PendingConfirmation {
		return fmt.Errorf("%w: confirm in state %s", ErrInvalidTransition, g.state)
	}
	g.state = VerifiedSuccess
	return nil
}

// Reject records a negative answer with the user's explanation
func (g *Gate) Reject(feedback string) error {
	if g.state != PendingConfirmation {
		return fmt.Errorf("%w: reject in state %s", ErrInvalidTransition, g.state)
	}
	g.state = VerifiedFailure
	g.feedback = strings.TrimSpace(feedback)
	return nil
}

// Outcome maps the state to the stored verification. Anything short of an
// explicit answer is recorded as domain.Unverified, never as a failure.
func (g *Gate) Outcome() (domain.Verification, string) {
	switch g.state {
	case VerifiedSuccess:
		return domain.VerifiedSuccess, ""
	case VerifiedFailure:
		return domain.VerifiedFailure, g.feedback
	default:
		return domain.Unverified, ""
	}
}
