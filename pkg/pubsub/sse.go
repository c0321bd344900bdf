package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ritzau/cpg-explorer/pkg/logging"
)

// subscriberQueue is the channel capacity of one subscription.
const subscriberQueue = 64

// KeepAlive is how often an idle SSE stream gets a comment line so proxies
// keep it open.
var KeepAlive = 15 * time.Second

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // Number of events to buffer (0 = no buffering)
	ReplayAll  bool // If true, replay all buffered events; if false, only replay last event
}

// latestWins reports whether only the newest event of the topic matters.
// A full subscriber of such a topic loses its oldest queued event instead
// of the new one.
func (c TopicConfig) latestWins() bool {
	return c.BufferSize > 0 && !c.ReplayAll
}

type topicState struct {
	config  TopicConfig
	version int
	buffer  []Event
	subs    map[*sseSubscription]struct{}
}

// replay returns the buffered events a subscriber that has seen up to
// version after should receive.
func (t *topicState) replay(after int) []Event {
	var out []Event
	for _, e := range t.buffer {
		if e.Version > after {
			out = append(out, e)
		}
	}
	if !t.config.ReplayAll && len(out) > 1 {
		out = out[len(out)-1:]
	}
	return out
}

// SSEPublisher implements Publisher for Server-Sent Event streams.
type SSEPublisher struct {
	mu     sync.Mutex
	topics map[string]*topicState
	closed bool
}

// NewSSEPublisher creates a new SSE-based publisher
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{topics: make(map[string]*topicState)}
}

// topic returns the state of name, creating it. Callers hold mu.
func (p *SSEPublisher) topic(name string) *topicState {
	t, ok := p.topics[name]
	if !ok {
		t = &topicState{subs: make(map[*sseSubscription]struct{})}
		p.topics[name] = t
	}
	return t
}

// ConfigureTopic sets buffering configuration for a topic
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic(topic).config = config
}

// Subscribe creates a subscription that first receives the buffered events
// of the topic.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	return p.SubscribeFrom(ctx, topic, 0)
}

// SubscribeFrom is Subscribe for a client that has already seen every event
// up to version after, as sent in an SSE Last-Event-ID header.
func (p *SSEPublisher) SubscribeFrom(ctx context.Context, topic string, after int) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("publisher is closed")
	}

	t := p.topic(topic)
	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, subscriberQueue),
		publisher: p,
	}
	t.subs[sub] = struct{}{}

	// Replay under the lock so no publish can overtake it.
	replayed := t.replay(after)
	for _, e := range replayed {
		sub.deliver(e, t.config.latestWins())
	}
	if len(replayed) > 0 {
		logging.Debug("replayed events to new subscriber", "topic", topic, "count", len(replayed), "after", after)
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Publish sends an event to all subscribers of a topic
func (p *SSEPublisher) Publish(topic string, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	t := p.topic(topic)
	t.version++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    payload,
		Version: t.version,
	}

	if n := t.config.BufferSize; n > 0 {
		t.buffer = append(t.buffer, event)
		if len(t.buffer) > n {
			t.buffer = t.buffer[len(t.buffer)-n:]
		}
	}

	for sub := range t.subs {
		sub.deliver(event, t.config.latestWins())
	}
	return nil
}

// Close shuts down the publisher and all subscriptions
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, t := range p.topics {
		for sub := range t.subs {
			close(sub.events)
		}
		t.subs = make(map[*sseSubscription]struct{})
	}
	return nil
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.topics[sub.topic]; ok {
		delete(t.subs, sub)
	}
}

type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	dropped   atomic.Int64

	mu     sync.Mutex
	closed bool
}

// deliver queues e without blocking. The publisher lock is held.
func (s *sseSubscription) deliver(e Event, latestWins bool) {
	select {
	case s.events <- e:
		return
	default:
	}

	s.dropped.Add(1)
	if !latestWins {
		logging.Warn("subscription channel full, dropping event", "topic", s.topic, "version", e.Version)
		return
	}
	// Make room by discarding the oldest queued event.
	select {
	case <-s.events:
	default:
	}
	select {
	case s.events <- e:
	default:
	}
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Dropped returns how many events did not fit the subscriber queue.
func (s *sseSubscription) Dropped() int64 {
	return s.dropped.Load()
}

func (s *sseSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.publisher.unsubscribe(s)
	return nil
}

// WriteSSE writes one event frame. The version doubles as the SSE id so a
// reconnecting browser resumes through Last-Event-ID.
func WriteSSE(w io.Writer, event Event) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.Version, frame)
	return err
}

// ServeSSE streams topic to w until the request ends or the publisher
// closes.
func ServeSSE(w http.ResponseWriter, r *http.Request, p Publisher, topic string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	after, _ := strconv.Atoi(r.Header.Get("Last-Event-ID"))
	sub, err := p.SubscribeFrom(r.Context(), topic, after)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	// Initial comment establishes the connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flush()

	logging.DebugContext(r.Context(), "sse client subscribed", "topic", topic, "after", after)

	ticker := time.NewTicker(KeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ": keep-alive\n\n")
			flush()
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "error writing sse event", "topic", topic, "error", err)
				return
			}
			flush()
		}
	}
}
