// Package recorder persists the final outcome of a command session.
package recorder

import (
	"context"
	"strings"

	"github.com/hochfrequenz/script-agent/internal/domain"
)

// fallbackErrorMessage is stored when a failed run produced no stderr
const fallbackErrorMessage = "execution failed"

// Appender is the write side of the attempt log
type Appender interface {
	Append(ctx context.Context, a *domain.Attempt) (int64, error)
}

// Result is everything known about one command once it has finished
type Result struct {
	Command      string
	Script       string
	Succeeded    bool
	ErrorMessage string
	Verified     domain.Verification
	Feedback     string
}

// Recorder writes results as immutable attempts
type Recorder struct {
	store Appender
}

// New creates a Recorder
func New(store Appender) *Recorder {
	return &Recorder{store: store}
}

// Record normalizes the result so the attempt invariants hold and appends it.
func (r *Recorder) Record(ctx context.Context, res Result) (*domain.Attempt, error) {
	a := &domain.Attempt{
		Command:   res.Command,
		Script:    res.Script,
		Succeeded: res.Succeeded,
	}

	if res.Succeeded {
		a.Verified = res.Verified
		if res.Verified == domain.VerifiedFailure {
			a.Feedback = strings.TrimSpace(res.Feedback)
		}
	} else {
		a.ErrorMessage = strings.TrimSpace(res.ErrorMessage)
		if a.ErrorMessage == "" {
			a.ErrorMessage = fallbackErrorMessage
		}
	}

	if _, err := r.store.Append(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
