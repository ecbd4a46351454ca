package notify

import (
	"context"
	"fmt"

	"github.com/hochfrequenz/script-agent/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title     string
	Message   string
	Type      NotificationType
	Command   string // Optional command reference
	AttemptID int64  // Optional attempt reference
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// ForAttempt builds the notification announcing a recorded attempt
func ForAttempt(a *domain.Attempt) Notification {
	n := Notification{Command: a.Command, AttemptID: a.ID}
	switch {
	case !a.Succeeded:
		n.Title = "Script failed"
		n.Message = a.ErrorMessage
		n.Type = NotifyError
	case a.Verified == domain.VerifiedFailure:
		n.Title = "Script ran but was rejected"
		n.Message = a.Feedback
		n.Type = NotifyWarning
	default:
		n.Title = "Script succeeded"
		n.Message = a.Command
		n.Type = NotifySuccess
	}
	if n.Message == "" {
		n.Message = fmt.Sprintf("attempt #%d", a.ID)
	}
	return n
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(ctx context.Context, n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(context.Context, Notification) error { return nil }
