// Package graph talks to the Microsoft Graph REST API: it lists unread
// messages in a watched folder, forwards them, marks them read, and sends
// outgoing mail, authenticating with OAuth2 client credentials.
package graph

import "github.com/mailops/inbox-rotor/internal/mail"

// listResponse is the body of a mailFolders/{folder}/messages listing.
type listResponse struct {
	Value []messageResource `json:"value"`
}

// messageResource is the subset of a Graph message resource the listing
// selects (id, subject, from).
type messageResource struct {
	ID      string             `json:"id"`
	Subject string             `json:"subject"`
	From    *recipientResource `json:"from"`
}

// recipientResource wraps an email address in the shape Graph uses for
// senders and recipients.
type recipientResource struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

// emailAddress is an address plus optional display name.
type emailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// forwardRequest is the body of a messages/{id}/forward call.
type forwardRequest struct {
	Comment      string              `json:"comment"`
	ToRecipients []recipientResource `json:"toRecipients"`
}

// markReadRequest is the PATCH body that flips a message's read flag.
type markReadRequest struct {
	IsRead bool `json:"isRead"`
}

// sendMailRequest is the body of a users/{user}/sendMail call.
type sendMailRequest struct {
	Message sendMailMessage `json:"message"`
}

// sendMailMessage is the message portion of a sendMail request.
type sendMailMessage struct {
	Subject      string              `json:"subject"`
	Body         messageBody         `json:"body"`
	ToRecipients []recipientResource `json:"toRecipients"`
}

// messageBody is the body of an outgoing message.
type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// tokenResponse is the OAuth2 token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// graphErrorResponse is an error response from the Graph API.
type graphErrorResponse struct {
	Error graphErrorDetail `json:"error"`
}

// graphErrorDetail is the error detail in a Graph API error response.
type graphErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// toMessage converts a Graph message resource into the core message model.
func (m messageResource) toMessage() mail.Message {
	msg := mail.Message{
		ID:      m.ID,
		Subject: m.Subject,
	}
	if m.From != nil {
		msg.From = m.From.EmailAddress.Address
	}
	return msg
}

// buildSendMailRequest converts an outbound message into a sendMail body.
// Auto-replies are plain text.
func buildSendMailRequest(out *mail.Outbound) *sendMailRequest {
	toRecipients := make([]recipientResource, 0, len(out.To))
	for _, addr := range out.To {
		toRecipients = append(toRecipients, recipientResource{
			EmailAddress: emailAddress{Address: addr},
		})
	}

	return &sendMailRequest{
		Message: sendMailMessage{
			Subject: out.Subject,
			Body: messageBody{
				ContentType: "text",
				Content:     out.TextBody,
			},
			ToRecipients: toRecipients,
		},
	}
}
