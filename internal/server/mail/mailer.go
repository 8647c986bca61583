// Package mail defines the outbound mail collaborator used by the
// registration workflow. Delivery is best-effort from the workflow's point of
// view: a failed send is logged, never surfaced to the registering client.
package mail

import "context"

// Dispatcher delivers a single message to a single recipient.
type Dispatcher interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Noop discards messages. Used in tests and when SMTP is not configured.
type Noop struct{}

func (Noop) Send(ctx context.Context, recipient, subject, body string) error {
	return nil
}
