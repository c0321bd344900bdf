package persist

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ritzau/cpg-explorer/pkg/logging"
	"github.com/ritzau/cpg-explorer/pkg/viewmodel"
)

// Initial is what a new session starts from.
type Initial struct {
	State State
	// Function and Node are deep-link targets from the URL. At most one
	// initial navigation is derived from them, Function first.
	Function string
	Node     string
}

// Bridge connects a session to its store and location.
type Bridge struct {
	store Store
	loc   Location
	key   string

	mu   sync.Mutex
	last []byte
}

func NewBridge(store Store, loc Location) *Bridge {
	return &Bridge{store: store, loc: loc, key: StorageKey}
}

// Seed resolves the initial state: URL parameters first, then the stored
// blob, then defaults. Every value is clamped.
func (b *Bridge) Seed() Initial {
	st := Defaults()

	blob, ok, err := b.store.Load(b.key)
	switch {
	case err != nil:
		logging.Warn("could not load persisted state", "error", err)
	case ok:
		st = Decode(blob, st)
	}

	q := b.loc.Query()
	if view, ok := viewmodel.ParseViewMode(q.Get("view")); ok {
		st.ViewMode = view
	}

	return Initial{
		State:    st.Clamp(),
		Function: q.Get("function"),
		Node:     q.Get("node"),
	}
}

// Save writes st to the store and rewrites the view, function and node
// URL parameters. A parameter whose value is empty is removed. Other URL
// parameters are kept.
func (b *Bridge) Save(st State, function, node string) error {
	blob, err := Encode(st)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !bytes.Equal(blob, b.last) {
		if err := b.store.Save(b.key, blob); err != nil {
			return fmt.Errorf("storing state: %w", err)
		}
		b.last = blob
	}

	q := b.loc.Query()
	q.Set("view", string(st.ViewMode))
	setOrDelete(q, "function", function)
	setOrDelete(q, "node", node)
	b.loc.ReplaceQuery(q)
	return nil
}

func setOrDelete(q map[string][]string, key, value string) {
	if value == "" {
		delete(q, key)
		return
	}
	q[key] = []string{value}
}
