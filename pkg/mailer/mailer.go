package mailer

import (
	"context"
	"fmt"
	"regexp"
)

// Mailer represents an interface for sending transactional emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Message represents a single outbound email.
type Message struct {
	To       string `json:"to"`            // Email address of the recipient
	Subject  string `json:"subject"`       // Subject of the email
	BodyHTML string `json:"body_html"`     // HTML body of the email
	Tag      string `json:"tag,omitempty"` // Optional categorization tag
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks that the message can be sent.
func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("%w: recipient address is required", ErrInvalidMessage)
	}
	if !emailRegex.MatchString(m.To) {
		return fmt.Errorf("%w: recipient address %q is not a valid email", ErrInvalidMessage, m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if m.BodyHTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}
