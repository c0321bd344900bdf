// Package search implements the debounced symbol search of the explorer.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/debounce"
	"github.com/ritzau/cpg-explorer/pkg/logging"
	"github.com/ritzau/cpg-explorer/pkg/slice"
)

// DefaultDelay is the quiet period between keystrokes and the request.
const DefaultDelay = 250 * time.Millisecond

// ResultLimit caps the number of symbols requested per search.
const ResultLimit = 90

// Filters are the structured search filters. They are persisted.
type Filters struct {
	Kind      string `json:"searchKind,omitempty"`
	Package   string `json:"searchPackageFilter,omitempty"`
	Signature string `json:"searchSignatureFilter,omitempty"`
}

// Search owns the symbol results of the current query.
type Search struct {
	results   *slice.Slice[string, api.SymbolQuery, []api.Symbol]
	debouncer *debounce.Debouncer
	report    func(error)

	mu      sync.Mutex
	query   string
	filters Filters
	pending bool
}

// New creates a search slice. report receives the outcome of every
// completed, non-superseded request (nil on success).
func New(ctx context.Context, b api.SymbolsAPI, delay time.Duration, filters Filters, report func(error)) *Search {
	fetch := func(ctx context.Context, query string, opts api.SymbolQuery) ([]api.Symbol, error) {
		return b.GetSymbols(ctx, query, opts)
	}
	if report == nil {
		report = func(error) {}
	}
	return &Search{
		results:   slice.New("symbols", fetch, api.SymbolQuery{Limit: ResultLimit}, slice.Options[string, api.SymbolQuery, []api.Symbol]{}),
		debouncer: debounce.New(ctx, "symbols", delay),
		report:    report,
		filters:   filters,
	}
}

// OnChange registers fn to run whenever the results change.
func (s *Search) OnChange(fn func()) {
	s.results.OnChange(fn)
}

// Query returns the raw query text.
func (s *Search) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Filters returns the current structured filters.
func (s *Search) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// SetQuery updates the query text and schedules a debounced search.
func (s *Search) SetQuery(query string) {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()
	s.trigger(false)
}

// SetFilters replaces the structured filters and re-runs the current query.
func (s *Search) SetFilters(f Filters) {
	s.mu.Lock()
	s.filters = f
	s.mu.Unlock()
	s.trigger(false)
}

// RunNow runs the current query without waiting for the quiet period.
func (s *Search) RunNow() {
	s.mu.Lock()
	s.query = strings.TrimSpace(s.query)
	s.mu.Unlock()
	s.trigger(true)
}

func (s *Search) trigger(immediate bool) {
	s.mu.Lock()
	query := strings.TrimSpace(s.query)
	opts := api.SymbolQuery{
		Kind:      s.filters.Kind,
		Package:   s.filters.Package,
		Signature: s.filters.Signature,
		Limit:     ResultLimit,
	}
	s.pending = query != ""
	s.mu.Unlock()

	if query == "" {
		s.debouncer.Cancel()
		s.results.Clear()
		return
	}

	run := func(ctx context.Context) {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()

		_, err := s.results.Load(ctx, query, opts)
		if slice.IsCancellation(err) {
			logging.Trace("symbol search discarded", "query", query)
			return
		}
		s.report(err)
	}

	if immediate {
		s.debouncer.Now(run)
		return
	}
	s.debouncer.Schedule(run)
}

// Searching reports whether a search is pending or in flight.
func (s *Search) Searching() bool {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()
	return pending || s.results.Busy()
}

// Results returns the symbols of the last applied search.
func (s *Search) Results() []api.Symbol {
	return s.results.Snapshot().Result
}

// Clear drops results and any pending search; the query text is kept.
func (s *Search) Clear() {
	s.debouncer.Cancel()
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
	s.results.Clear()
}

// FirstFunction returns the first function-kind result, if any.
func (s *Search) FirstFunction() (api.Symbol, bool) {
	for _, sym := range s.Results() {
		if sym.Kind == "function" {
			return sym, true
		}
	}
	return api.Symbol{}, false
}
