// Package loop implements the poll-forward-sleep cycle that distributes
// unread mailbox messages across the recipient rotor.
package loop

import (
	"context"
	"log/slog"
	"time"

	"github.com/mailops/inbox-rotor/internal/mail"
	"github.com/mailops/inbox-rotor/internal/reply"
	"github.com/mailops/inbox-rotor/internal/rotor"
)

// Source is the mail store the loop reads from and writes the read flag to.
type Source interface {
	// ListUnread returns the unread messages in the watched folder, in the
	// order the store lists them.
	ListUnread(ctx context.Context) ([]mail.Message, error)

	// MarkRead flips a message's read flag. Called only after a
	// confirmed-successful forward.
	MarkRead(ctx context.Context, id string) error
}

// Forwarder resends a message to one recipient.
type Forwarder interface {
	Forward(ctx context.Context, id, toName, toEmail string) error
}

// Config holds the loop's timing parameters.
type Config struct {
	// Interval is the pause between polling ticks.
	Interval time.Duration

	// MessageDelay is the pause between messages within one tick, to stay
	// polite toward the mail API. Zero disables it.
	MessageDelay time.Duration
}

// Loop drives the delivery cycle: list unread messages, forward each to the
// next recipient in rotation, mark forwarded messages read, sleep, repeat.
// It runs on a single goroutine; the rotor cursor is the only state carried
// between ticks.
type Loop struct {
	source       Source
	forwarder    Forwarder
	rotor        *rotor.Rotor
	replier      *reply.AutoReplier // nil when auto-reply is disabled
	interval     time.Duration
	messageDelay time.Duration
}

// New creates a Loop. replier may be nil to disable auto-replies.
func New(source Source, forwarder Forwarder, rot *rotor.Rotor, replier *reply.AutoReplier, cfg Config) *Loop {
	return &Loop{
		source:       source,
		forwarder:    forwarder,
		rotor:        rot,
		replier:      replier,
		interval:     cfg.Interval,
		messageDelay: cfg.MessageDelay,
	}
}

// Run polls until ctx is cancelled. The first tick runs immediately.
func (l *Loop) Run(ctx context.Context) {
	slog.Info("starting delivery loop",
		"interval", l.interval,
		"recipients", l.rotor.Len(),
	)

	l.tick(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("delivery loop stopped")
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// tick runs one poll cycle. A listing failure skips the whole tick; a
// per-message failure never aborts the rest of the tick.
func (l *Loop) tick(ctx context.Context) {
	slog.Debug("checking for unread messages")

	messages, err := l.source.ListUnread(ctx)
	if err != nil {
		slog.Error("listing unread messages failed", "error", err)
		return
	}

	if len(messages) == 0 {
		slog.Debug("no unread messages")
		return
	}

	slog.Info("unread messages found", "count", len(messages))

	for _, msg := range messages {
		// Let the in-flight message finish on shutdown, but do not draw the
		// rotor for another one.
		if ctx.Err() != nil {
			return
		}

		l.process(ctx, msg)

		if l.messageDelay > 0 {
			sleepWithContext(ctx, l.messageDelay)
		}
	}
}

// process handles one message: draw the next recipient, forward, and on
// success mark read and auto-reply. The rotor advances once per message
// whether or not the forward succeeds, so a failing message still consumes
// its slot in the rotation.
func (l *Loop) process(ctx context.Context, msg mail.Message) {
	rcpt := l.rotor.Next()

	slog.Info("processing message",
		"msg_id", msg.ID,
		"subject", msg.Subject,
		"to", rcpt.Email,
	)

	if err := l.forwarder.Forward(ctx, msg.ID, rcpt.Name, rcpt.Email); err != nil {
		// Left unread; the next tick lists it again.
		slog.Error("forward failed",
			"msg_id", msg.ID,
			"to", rcpt.Email,
			"error", err,
		)
		return
	}

	slog.Info("message forwarded", "msg_id", msg.ID, "to", rcpt.Email)

	if err := l.source.MarkRead(ctx, msg.ID); err != nil {
		// The forward already happened. Retrying it here would deliver the
		// message twice, so the failure is only logged.
		slog.Error("marking message read failed", "msg_id", msg.ID, "error", err)
	}

	if l.replier != nil {
		if err := l.replier.ReplyTo(ctx, msg.From); err != nil {
			slog.Error("auto-reply failed",
				"msg_id", msg.ID,
				"sender", msg.From,
				"error", err,
			)
		}
	}
}

// sleepWithContext waits for d or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
