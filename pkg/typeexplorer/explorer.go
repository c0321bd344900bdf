// Package typeexplorer implements the types view data: a debounced
// interface/implementer query and the methods and embedding hierarchy of
// the selected type.
package typeexplorer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/debounce"
	"github.com/ritzau/cpg-explorer/pkg/logging"
	"github.com/ritzau/cpg-explorer/pkg/slice"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultDelay is the quiet period before the interface query runs.
	DefaultDelay = 200 * time.Millisecond

	InterfaceLimit = 300
	MethodLimit    = 500
	HierarchyLimit = 500
)

// Detail is the methods and embedding hierarchy of one type.
type Detail struct {
	Methods   []api.TypeMethodRow    `json:"methods"`
	Hierarchy []api.TypeHierarchyRow `json:"hierarchy"`
}

// View is a snapshot of the explorer for presentation.
type View struct {
	Query        string                 `json:"query"`
	Interfaces   []api.TypeInterfaceRow `json:"interfaces"`
	SelectedType string                 `json:"selectedType"`
	Methods      []api.TypeMethodRow    `json:"methods"`
	Hierarchy    []api.TypeHierarchyRow `json:"hierarchy"`
	Busy         bool                   `json:"busy"`
}

// Explorer owns the types view rows. The interface query only runs while
// the explorer is active, i.e. while the types view is shown.
type Explorer struct {
	interfaces *slice.Slice[string, int, []api.TypeInterfaceRow]
	detail     *slice.Slice[string, struct{}, Detail]
	debouncer  *debounce.Debouncer
	report     func(error)

	mu       sync.Mutex
	query    string
	active   bool
	selected string
}

// New creates a type explorer. report receives the outcome of every
// completed, non-superseded interface query (nil on success).
func New(ctx context.Context, b api.TypesAPI, delay time.Duration, report func(error)) *Explorer {
	if report == nil {
		report = func(error) {}
	}
	fetchInterfaces := func(ctx context.Context, query string, limit int) ([]api.TypeInterfaceRow, error) {
		return b.GetTypeInterfaces(ctx, query, limit)
	}
	return &Explorer{
		interfaces: slice.New("type-interfaces", fetchInterfaces, InterfaceLimit, slice.Options[string, int, []api.TypeInterfaceRow]{}),
		detail:     slice.New("type-detail", detailFetcher(b), struct{}{}, slice.Options[string, struct{}, Detail]{}),
		debouncer:  debounce.New(ctx, "type-interfaces", delay),
		report:     report,
	}
}

func detailFetcher(b api.TypesAPI) slice.FetchFunc[string, struct{}, Detail] {
	return func(ctx context.Context, name string, _ struct{}) (Detail, error) {
		var d Detail
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rows, err := b.GetTypeMethods(gctx, name, MethodLimit)
			d.Methods = rows
			return err
		})
		g.Go(func() error {
			rows, err := b.GetTypeHierarchy(gctx, name, HierarchyLimit)
			d.Hierarchy = rows
			return err
		})
		if err := g.Wait(); err != nil {
			return Detail{}, fmt.Errorf("type %s: %w", name, err)
		}
		return d, nil
	}
}

// OnChange registers fn to run whenever interface or detail rows change.
func (e *Explorer) OnChange(fn func()) {
	e.interfaces.OnChange(fn)
	e.detail.OnChange(fn)
}

// SetActive turns the interface query on or off. Activating schedules a
// query for the current text; deactivating cancels any pending or running
// one. Rows already loaded are kept.
func (e *Explorer) SetActive(active bool) {
	e.mu.Lock()
	changed := e.active != active
	e.active = active
	e.mu.Unlock()

	if !changed {
		return
	}
	if active {
		e.trigger(false)
		return
	}
	e.debouncer.Cancel()
}

// Query returns the interface query text.
func (e *Explorer) Query() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// SetQuery updates the interface query text and, when active, schedules a
// debounced query.
func (e *Explorer) SetQuery(query string) {
	e.mu.Lock()
	e.query = query
	e.mu.Unlock()
	e.trigger(false)
}

// Refresh trims the query text and, when active, runs it immediately.
func (e *Explorer) Refresh() {
	e.mu.Lock()
	e.query = strings.TrimSpace(e.query)
	e.mu.Unlock()
	e.trigger(true)
}

func (e *Explorer) trigger(immediate bool) {
	e.mu.Lock()
	query, active := e.query, e.active
	e.mu.Unlock()

	if !active {
		return
	}

	run := func(ctx context.Context) {
		_, err := e.interfaces.Load(ctx, query, InterfaceLimit)
		if slice.IsCancellation(err) {
			logging.Trace("type query discarded", "query", query)
			return
		}
		e.report(err)
	}
	if immediate {
		e.debouncer.Now(run)
		return
	}
	e.debouncer.Schedule(run)
}

// Interfaces returns the rows of the last applied interface query.
func (e *Explorer) Interfaces() []api.TypeInterfaceRow {
	return e.interfaces.Snapshot().Result
}

// SelectedType returns the selected type name, or "".
func (e *Explorer) SelectedType() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// SelectType selects name and loads its methods and hierarchy concurrently.
// Selecting "" clears the detail rows.
func (e *Explorer) SelectType(ctx context.Context, name string) error {
	e.mu.Lock()
	e.selected = name
	e.mu.Unlock()

	if name == "" {
		e.detail.Clear()
		return nil
	}
	_, err := e.detail.Load(ctx, name, struct{}{})
	return err
}

// Detail returns the methods and hierarchy of the selected type.
func (e *Explorer) Detail() Detail {
	return e.detail.Snapshot().Result
}

// ClearDetails drops the selection and its rows.
func (e *Explorer) ClearDetails() {
	e.mu.Lock()
	e.selected = ""
	e.mu.Unlock()
	e.detail.Clear()
}

// Busy reports whether a type request is in flight.
func (e *Explorer) Busy() bool {
	return e.interfaces.Busy() || e.detail.Busy()
}

// View returns a snapshot for presentation.
func (e *Explorer) View() View {
	d := e.Detail()
	return View{
		Query:        e.Query(),
		Interfaces:   e.Interfaces(),
		SelectedType: e.SelectedType(),
		Methods:      d.Methods,
		Hierarchy:    d.Hierarchy,
		Busy:         e.Busy(),
	}
}
