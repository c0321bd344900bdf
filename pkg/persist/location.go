package persist

import (
	"net/url"
	"sync"
)

// Location is the navigable URL query string.
type Location interface {
	Query() url.Values
	ReplaceQuery(q url.Values)
}

// MemoryLocation holds a query string in memory.
type MemoryLocation struct {
	mu sync.Mutex
	q  url.Values
}

// NewMemoryLocation parses raw, with or without a leading '?'. An
// unparsable string starts empty.
func NewMemoryLocation(raw string) *MemoryLocation {
	if len(raw) > 0 && raw[0] == '?' {
		raw = raw[1:]
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		q = url.Values{}
	}
	return &MemoryLocation{q: q}
}

func (l *MemoryLocation) Query() url.Values {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneValues(l.q)
}

func (l *MemoryLocation) ReplaceQuery(q url.Values) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.q = cloneValues(q)
}

// String renders the query string without a leading '?'.
func (l *MemoryLocation) String() string {
	return l.Query().Encode()
}

func cloneValues(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}
