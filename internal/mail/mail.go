// Package mail is the boundary to the outbound-mail transport.
package mail

import "context"

// Message is one outbound email. The sender address comes from transport
// configuration, not from callers.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
	// Verify checks the transport is reachable; called once at startup.
	Verify(ctx context.Context) error
}
