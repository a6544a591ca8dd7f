package mail

import "context"

// SentMessage identifies a message accepted by the mail provider.
type SentMessage struct {
	ID       string
	ThreadID string
}

// Mailer is the outbound mail contract: send a plain-text message on behalf
// of a user, returning the provider's message id or failing fast. No retries
// are attempted here; callers decide how failures propagate.
type Mailer interface {
	SendMessage(ctx context.Context, userID int, to, subject, body string) (*SentMessage, error)
}
