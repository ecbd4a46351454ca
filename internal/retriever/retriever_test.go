package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/hochfrequenz/script-agent/internal/attemptstore"
	"github.com/hochfrequenz/script-agent/internal/domain"
)

func newStore(t *testing.T, attempts ...*domain.Attempt) *attemptstore.Store {
	t.Helper()
	store, err := attemptstore.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	for _, a := range attempts {
		if _, err := store.Append(context.Background(), a); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestFindHint_NoAttempts(t *testing.T) {
	r := New(newStore(t))

	script, ok, err := r.FindHint(context.Background(), "open Safari")
	if err != nil {
		t.Fatal(err)
	}
	if ok || script != "" {
		t.Errorf("FindHint() = %q, %v; want none", script, ok)
	}
}

func TestFindHint_NewestQualifying(t *testing.T) {
	r := New(newStore(t,
		&domain.Attempt{Command: "open Safari", Script: "A1", Succeeded: true},
		&domain.Attempt{Command: "open Safari", Script: "A2", Succeeded: true, Verified: domain.VerifiedSuccess},
	))

	script, ok, err := r.FindHint(context.Background(), "open Safari")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || script != "A2" {
		t.Errorf("FindHint() = %q, %v; want A2", script, ok)
	}
}

func TestFindHint_SkipsRejectedAndFailed(t *testing.T) {
	tests := []struct {
		name     string
		attempts []*domain.Attempt
		want     string
		wantOK   bool
	}{
		{
			name: "only rejected",
			attempts: []*domain.Attempt{
				{Command: "open Safari", Script: "R", Succeeded: true, Verified: domain.VerifiedFailure, Feedback: "wrong window"},
			},
		},
		{
			name: "rejected newer than unverified",
			attempts: []*domain.Attempt{
				{Command: "open Safari", Script: "U", Succeeded: true},
				{Command: "open Safari", Script: "R", Succeeded: true, Verified: domain.VerifiedFailure, Feedback: "x"},
			},
			want:   "U",
			wantOK: true,
		},
		{
			name: "failed newer than success",
			attempts: []*domain.Attempt{
				{Command: "open Safari", Script: "S", Succeeded: true},
				{Command: "open Safari", Script: "F", ErrorMessage: "boom"},
			},
			want:   "S",
			wantOK: true,
		},
		{
			name: "case sensitive",
			attempts: []*domain.Attempt{
				{Command: "Open Safari", Script: "X", Succeeded: true},
				{Command: "open safari ", Script: "Y", Succeeded: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(newStore(t, tt.attempts...))

			script, ok, err := r.FindHint(context.Background(), "open Safari")
			if err != nil {
				t.Fatal(err)
			}
			if ok != tt.wantOK || script != tt.want {
				t.Errorf("FindHint() = %q, %v; want %q, %v", script, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFindHint_ManyAttemptsKeepsOrder(t *testing.T) {
	store := newStore(t)
	r := New(store)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		a := &domain.Attempt{Command: "open Safari", Script: string(rune('a' + i)), Succeeded: true}
		if _, err := store.Append(ctx, a); err != nil {
			t.Fatal(err)
		}

		script, ok, err := r.FindHint(ctx, "open Safari")
		if err != nil {
			t.Fatal(err)
		}
		if !ok || script != a.Script {
			t.Fatalf("after append %d: FindHint() = %q, want %q", i, script, a.Script)
		}
	}
}

type failingQuerier struct{}

func (failingQuerier) QueryLatest(context.Context, string, attemptstore.Filter) (*domain.Attempt, error) {
	return nil, &domain.StorageError{Op: "query latest", Err: errors.New("disk gone")}
}

func TestFindHint_StorageError(t *testing.T) {
	_, _, err := New(failingQuerier{}).FindHint(context.Background(), "open Safari")
	if !errors.Is(err, domain.ErrStorage) {
		t.Errorf("err = %v, want storage error", err)
	}
}
