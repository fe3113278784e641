// Package stdout implements a reply Sender that prints replies to standard
// output instead of sending them. Useful for dry runs of a new configuration.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mailops/inbox-rotor/internal/mail"
)

// Sender prints outbound messages to stdout in a human-readable format.
type Sender struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a Sender that writes to os.Stdout.
func New() *Sender {
	return &Sender{writer: os.Stdout}
}

// NewWithWriter creates a Sender that writes to the given writer. This is
// useful for testing.
func NewWithWriter(w io.Writer) *Sender {
	return &Sender{writer: w}
}

// Send prints the outbound message. It always returns nil unless the write
// itself fails.
func (s *Sender) Send(_ context.Context, out *mail.Outbound) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString(fmt.Sprintf("To: %s\n", strings.Join(out.To, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\n", out.Subject))
	b.WriteString("Body:\n")
	b.WriteString(out.TextBody)
	if !strings.HasSuffix(out.TextBody, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("========================================\n")

	if _, err := io.WriteString(s.writer, b.String()); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}

// Name returns the backend name.
func (s *Sender) Name() string {
	return "stdout"
}
