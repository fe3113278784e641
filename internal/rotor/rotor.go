// Package rotor yields forwarding recipients in a fixed cyclic order.
package rotor

import "errors"

// ErrNoRecipients is returned when a Rotor is constructed with an empty
// recipient list.
var ErrNoRecipients = errors.New("recipient list is empty")

// Recipient is one forwarding target. Its identity is its position in the
// configured order.
type Recipient struct {
	Name  string
	Email string
}

// Rotor cycles through a fixed, ordered list of recipients. Calling Next N
// times on a Rotor of N recipients returns each recipient exactly once, in
// configured order; the N+1-th call starts over.
//
// Rotor is not safe for concurrent use. The delivery loop is its only caller
// and runs on a single goroutine; a concurrent caller must add its own
// synchronization.
type Rotor struct {
	recipients []Recipient
	cursor     int
}

// New creates a Rotor over the given recipients. The cursor starts at the
// first recipient.
func New(recipients []Recipient) (*Rotor, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	return &Rotor{recipients: recipients}, nil
}

// Next returns the recipient at the cursor and advances the cursor by one,
// wrapping at the end of the list.
func (r *Rotor) Next() Recipient {
	rcpt := r.recipients[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.recipients)
	return rcpt
}

// Len returns the number of configured recipients.
func (r *Rotor) Len() int {
	return len(r.recipients)
}
