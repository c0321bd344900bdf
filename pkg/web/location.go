package web

import (
	"net/url"
	"sync"

	"github.com/ritzau/cpg-explorer/pkg/logging"
	"github.com/ritzau/cpg-explorer/pkg/persist"
	"github.com/ritzau/cpg-explorer/pkg/pubsub"
)

// Location is the renderer's URL query string. Every change is published
// on the location topic so the page can replace its history entry.
type Location struct {
	*persist.MemoryLocation
	publisher pubsub.Publisher

	mu   sync.Mutex
	last string
}

var _ persist.Location = (*Location)(nil)

// NewLocation starts from the raw query string, with or without '?'.
func NewLocation(p pubsub.Publisher, raw string) *Location {
	loc := persist.NewMemoryLocation(raw)
	return &Location{MemoryLocation: loc, publisher: p, last: loc.String()}
}

func (l *Location) ReplaceQuery(q url.Values) {
	l.MemoryLocation.ReplaceQuery(q)
	encoded := q.Encode()

	l.mu.Lock()
	changed := encoded != l.last
	l.last = encoded
	l.mu.Unlock()
	if !changed {
		return
	}

	if err := l.publisher.Publish(pubsub.TopicLocation, "replace", map[string]string{"query": encoded}); err != nil {
		logging.Warn("could not publish location", "error", err)
	}
}
