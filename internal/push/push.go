// Package push is the boundary to the push-notification transport.
package push

import "context"

// Message is one batched push send to a set of delivery tokens.
type Message struct {
	Title  string
	Body   string
	Data   map[string]string
	Tokens []string
}

// Report summarizes a batched send. Invalid lists tokens the transport
// rejected as permanently dead (unregistered or malformed); transient
// per-token failures only bump FailureCount.
type Report struct {
	SuccessCount int
	FailureCount int
	Invalid      []string
}

// Sender delivers one message to all tokens in a single batched call.
// A non-nil error means the batch as a whole could not be attempted.
type Sender interface {
	Send(ctx context.Context, m Message) (Report, error)
}
