// Package adapter holds the outbound customer-contact ports. Each
// channel gateway is an external collaborator reached over HTTP; the
// orchestrator only sees the Adapter capability.
package adapter

import "context"

// Adapter is the send capability implemented once per channel.
type Adapter interface {
	Send(ctx context.Context, to string, content string, variables map[string]string) (*SendResult, error)
}

// SendResult carries provider call metadata for attempt persistence.
type SendResult struct {
	ProviderMessageID string
	StatusCode        int
}
