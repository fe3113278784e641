// Package reply implements the optional auto-reply to the original sender of
// a forwarded message.
package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/mailops/inbox-rotor/internal/mail"
)

// Sender delivers outgoing notification messages. Backends exist for the
// Graph API, AWS SES, and stdout.
type Sender interface {
	// Send delivers an outbound message through this backend.
	Send(ctx context.Context, out *mail.Outbound) error

	// Name returns the human-readable name of this backend.
	Name() string
}

// AutoReplier sends a fixed acknowledgement to the sender of each forwarded
// message, skipping excluded addresses. Exclusions guard against reply loops
// with correspondents that also auto-reply.
type AutoReplier struct {
	sender   Sender
	subject  string
	body     string
	excluded map[string]struct{}
}

// NewAutoReplier creates an AutoReplier with the given canned subject and
// body. Addresses in exclude are matched case-insensitively.
func NewAutoReplier(sender Sender, subject, body string, exclude []string) *AutoReplier {
	excluded := make(map[string]struct{}, len(exclude))
	for _, addr := range exclude {
		excluded[strings.ToLower(strings.TrimSpace(addr))] = struct{}{}
	}

	return &AutoReplier{
		sender:   sender,
		subject:  subject,
		body:     body,
		excluded: excluded,
	}
}

// ReplyTo sends the canned reply to addr. It is a no-op for empty or
// excluded addresses.
func (a *AutoReplier) ReplyTo(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	if _, ok := a.excluded[strings.ToLower(strings.TrimSpace(addr))]; ok {
		return nil
	}

	out := &mail.Outbound{
		To:       []string{addr},
		Subject:  a.subject,
		TextBody: a.body,
	}
	if err := a.sender.Send(ctx, out); err != nil {
		return fmt.Errorf("auto-reply via %s: %w", a.sender.Name(), err)
	}
	return nil
}

// SenderName returns the name of the underlying backend.
func (a *AutoReplier) SenderName() string {
	return a.sender.Name()
}
