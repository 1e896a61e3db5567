// Package events publishes domain events for consumers outside the process.
package events

import "context"

// Event kinds, appended to the subject prefix.
const (
	MessageCreated  = "message.created"
	RequestCreated  = "request.created"
	RequestResolved = "request.resolved"
	BlockToggled    = "block.toggled"
)

// Publisher delivers domain events. Implementations log failures instead of
// returning them; publishing never affects the outcome of the operation that
// produced the event.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload any)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) {}
