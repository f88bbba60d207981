// Package bus provides in-process publish/subscribe. Publishers and
// subscribers never reference each other; the bus sits in between.
package bus

import (
	"context"
	"time"
)

// Topics emitted by the catalog service.
const (
	TopicObjectCreated = "object.created"
	TopicObjectDeleted = "object.deleted"
)

// Event is the message exchanged over the bus.
type Event struct {
	Topic      string    `json:"topic"`
	Key        string    `json:"key"`
	Driver     string    `json:"driver"`
	Size       int64     `json:"size_bytes,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Bus decouples event producers from consumers.
type Bus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}

// Subscriber is a handle on one subscription. Close unregisters it and
// closes the channel returned by C.
type Subscriber interface {
	C() <-chan Event
	Close() error
}
