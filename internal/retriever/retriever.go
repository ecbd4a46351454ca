// Package retriever selects a previously successful script to use as a generation hint.
package retriever

import (
	"context"

	"github.com/hochfrequenz/script-agent/internal/attemptstore"
	"github.com/hochfrequenz/script-agent/internal/domain"
)

// Querier is the read side of the attempt log
type Querier interface {
	QueryLatest(ctx context.Context, command string, f attemptstore.Filter) (*domain.Attempt, error)
}

// Retriever implements the "most recent reusable success" policy
type Retriever struct {
	store Querier
}

// New creates a Retriever over the given log
func New(store Querier) *Retriever {
	return &Retriever{store: store}
}

// FindHint returns the script of the newest attempt for exactly this command that
// succeeded and was not rejected during verification. Commands are compared
// byte-for-byte, without any normalization.
func (r *Retriever) FindHint(ctx context.Context, command string) (string, bool, error) {
	a, err := r.store.QueryLatest(ctx, command, attemptstore.Reusable)
	if err != nil {
		return "", false, err
	}
	if a == nil || !a.Reusable() {
		return "", false, nil
	}
	return a.Script, true, nil
}
