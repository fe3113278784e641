// Package mail defines the message data model shared by the mail store
// adapter, the delivery loop, and the reply senders.
package mail

// Message is the summary of a mailbox message as returned by the unread
// listing. The delivery loop treats it as opaque beyond ID; Subject and From
// are carried for logging and for the auto-reply path.
type Message struct {
	ID      string
	Subject string
	From    string
}

// Outbound is an outgoing notification message, such as an auto-reply.
type Outbound struct {
	To       []string
	Subject  string
	TextBody string
}
