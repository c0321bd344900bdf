package pubsub

import (
	"context"
	"encoding/json"
)

// Topics the explorer publishes on.
const (
	// TopicSession carries a full session snapshot after every settle.
	TopicSession = "session"
	// TopicViewport carries layout commands for the renderer.
	TopicViewport = "viewport"
	// TopicLocation carries URL query rewrites.
	TopicLocation = "location"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "session", "viewport")
	Type    string          `json:"type"`    // Event type (e.g., "snapshot", "zoomToFit")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// SubscribeFrom is Subscribe that skips buffered events up to and
	// including version after
	SubscribeFrom(ctx context.Context, topic string, after int) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// ConfigureDefaultTopics sets the buffering of the explorer topics. A new
// subscriber gets the current snapshot and location only. Viewport commands
// replay in full so a late renderer still sees the charge, distances and
// fit of the current model.
func ConfigureDefaultTopics(p *SSEPublisher) {
	p.ConfigureTopic(TopicSession, TopicConfig{BufferSize: 1})
	p.ConfigureTopic(TopicLocation, TopicConfig{BufferSize: 1})
	p.ConfigureTopic(TopicViewport, TopicConfig{BufferSize: 8, ReplayAll: true})
}
