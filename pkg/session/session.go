// Package session is the top-level controller of an explorer session. It
// owns the view mode, routes user actions to the data slices, rebuilds the
// graph model after every change and mirrors settings into persistence.
//
// A Session is an explicit context object: construct one per session with
// New and tear it down with Close. It is the only path that mutates
// session state.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/logging"
	"github.com/ritzau/cpg-explorer/pkg/persist"
	"github.com/ritzau/cpg-explorer/pkg/search"
	"github.com/ritzau/cpg-explorer/pkg/slice"
	"github.com/ritzau/cpg-explorer/pkg/source"
	"github.com/ritzau/cpg-explorer/pkg/typeexplorer"
	"github.com/ritzau/cpg-explorer/pkg/viewmodel"
	"github.com/ritzau/cpg-explorer/pkg/viewport"
	"github.com/ritzau/cpg-explorer/pkg/workbench"
)

// SidebarTab is the visible sidebar panel.
type SidebarTab string

const (
	TabDetail SidebarTab = "detail"
	TabSource SidebarTab = "source"
)

// Options configure a session. Zero delays fall back to package defaults.
type Options struct {
	Store    persist.Store
	Location persist.Location
	Engine   viewport.LayoutEngine

	SearchDelay       time.Duration
	TypeDelay         time.Duration
	ViewportDelay     time.Duration
	SecondaryFitDelay time.Duration
}

// Session is one explorer session.
type Session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	backend api.Backend
	bridge  *persist.Bridge
	initial persist.Initial

	calls     *slice.CallGraph
	dataflow  *slice.Dataflow
	impact    *slice.Impact
	hotspots  *slice.Hotspots
	pkgFuncs  *slice.PackageFunctions
	detail    *slice.FunctionDetail
	source    *source.Explorer
	search    *search.Search
	types     *typeexplorer.Explorer
	workbench *workbench.Workbench
	viewport  *viewport.Controller

	mu              sync.Mutex
	view            viewmodel.ViewMode
	filters         viewmodel.PackageFilters
	packages        *api.PackageGraph
	loading         bool
	jumped          bool
	selectedPackage string
	sidebarTab      SidebarTab
	hover           string
	hoverLabelsOnly bool
	errMsg          string
	busyMsg         string
	busyToken       uint64
	navToken        uint64
	model           *viewmodel.Model
	index           *viewmodel.Index
	listeners       []func(Snapshot)
	closed          bool

	// settleMu serializes settle so models are published in order.
	settleMu sync.Mutex
}

// New creates a session seeded from opts.Store and opts.Location. Nothing
// is fetched until Bootstrap.
func New(parent context.Context, backend api.Backend, opts Options) *Session {
	if opts.Store == nil {
		opts.Store = persist.NewMemoryStore()
	}
	if opts.Location == nil {
		opts.Location = persist.NewMemoryLocation("")
	}
	if opts.Engine == nil {
		opts.Engine = nopEngine{}
	}
	if opts.SearchDelay <= 0 {
		opts.SearchDelay = search.DefaultDelay
	}
	if opts.TypeDelay <= 0 {
		opts.TypeDelay = typeexplorer.DefaultDelay
	}

	ctx, cancel := context.WithCancel(parent)
	bridge := persist.NewBridge(opts.Store, opts.Location)
	initial := bridge.Seed()
	st := initial.State

	s := &Session{
		ctx:             ctx,
		cancel:          cancel,
		backend:         backend,
		bridge:          bridge,
		initial:         initial,
		calls:           slice.NewCallGraph(backend, st.CallParams()),
		dataflow:        slice.NewDataflow(backend, st.DataflowParams()),
		impact:          slice.NewImpact(backend, slice.ImpactParams{MaxDepth: slice.ImpactDepthDefault}),
		hotspots:        slice.NewHotspots(backend),
		pkgFuncs:        slice.NewPackageFunctions(backend),
		detail:          slice.NewFunctionDetail(backend),
		workbench:       workbench.New(backend),
		view:            st.ViewMode,
		filters:         st.PackageFilters,
		loading:         true,
		sidebarTab:      TabDetail,
		hoverLabelsOnly: true,
	}
	s.source = source.NewExplorer(source.NewCache(backend), backend)
	s.search = search.New(ctx, backend, opts.SearchDelay, st.Filters, s.report)
	s.types = typeexplorer.New(ctx, backend, opts.TypeDelay, s.report)
	s.viewport = viewport.New(ctx, opts.Engine, viewport.Options{
		RetuneDelay:       opts.ViewportDelay,
		SecondaryFitDelay: opts.SecondaryFitDelay,
	})

	for _, onChange := range []func(func()){
		s.calls.OnChange,
		s.dataflow.OnChange,
		s.impact.OnChange,
		s.hotspots.OnChange,
		s.pkgFuncs.OnChange,
		s.detail.OnChange,
		s.source.OnChange,
		s.search.OnChange,
		s.types.OnChange,
		s.workbench.OnChange,
	} {
		onChange(s.settle)
	}
	s.types.SetActive(st.ViewMode == viewmodel.ViewTypes)

	logging.Info("session created", "view", st.ViewMode, "function", initial.Function, "node", initial.Node)
	return s
}

// Close cancels all in-flight work. The session must not be used after.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.search.Clear()
	s.types.SetActive(false)
	s.viewport.Close()
}

// Subscribe registers fn to receive a snapshot after every settle. fn must
// not call back into the session.
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// report routes the outcome of a slice operation to the error channel.
// Cancellations are not errors.
func (s *Session) report(err error) {
	if err != nil && slice.IsCancellation(err) {
		return
	}
	if errors.Is(err, workbench.ErrNoQuery) {
		return
	}

	s.mu.Lock()
	if err == nil {
		s.errMsg = ""
	} else {
		logging.Warn("operation failed", "error", err)
		s.errMsg = err.Error()
	}
	s.mu.Unlock()
	s.settle()
}

// fail reports err and returns it, or nil for cancellations.
func (s *Session) fail(err error) error {
	if slice.IsCancellation(err) {
		return nil
	}
	s.report(err)
	return err
}

// Error returns the current session error message, or "".
func (s *Session) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// DismissError clears the error message.
func (s *Session) DismissError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
	s.settle()
}

// beginBusy shows msg until the returned func runs, unless a later
// operation replaced it first.
func (s *Session) beginBusy(msg string) func() {
	s.mu.Lock()
	s.busyToken++
	token := s.busyToken
	s.busyMsg = msg
	s.mu.Unlock()
	s.settle()

	return func() {
		s.mu.Lock()
		if s.busyToken == token {
			s.busyMsg = ""
		}
		s.mu.Unlock()
		s.settle()
	}
}

// navigate starts a navigation and returns its token. A navigation whose
// token is no longer current must not switch the view or open source.
func (s *Session) navigate() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navToken++
	return s.navToken
}

// overtaken reports whether a navigation newer than token has started.
func (s *Session) overtaken(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.navToken != token {
		logging.Trace("navigation overtaken", "token", token, "current", s.navToken)
		return true
	}
	return false
}

// View returns the active view mode.
func (s *Session) View() viewmodel.ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// setView makes mode the active view.
func (s *Session) setView(mode viewmodel.ViewMode) {
	s.mu.Lock()
	changed := s.view != mode
	s.view = mode
	s.mu.Unlock()

	s.types.SetActive(mode == viewmodel.ViewTypes)
	if changed {
		logging.Debug("view switched", "view", mode)
	}
	s.settle()
}

// Model returns the current graph model.
func (s *Session) Model() viewmodel.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return viewmodel.Model{View: s.view, Nodes: []viewmodel.GraphNode{}, Links: []viewmodel.GraphLink{}}
	}
	return *s.model
}

func (s *Session) inputs() (viewmodel.ViewMode, viewmodel.Inputs) {
	calls := s.calls.Snapshot()
	df := s.dataflow.Snapshot()
	impact := s.impact.Snapshot()

	s.mu.Lock()
	view := s.view
	in := viewmodel.Inputs{
		Packages:       s.packages,
		PackageFilters: s.filters,
	}
	s.mu.Unlock()

	in.Calls, in.CallRoot = calls.Result, calls.Key
	in.Dataflow, in.DataflowRoot = df.Result, df.Key
	in.Hotspots = s.hotspots.Snapshot().Result
	in.Impact, in.ImpactRoot = impact.Result, impact.Key
	in.TypeInterfaces = s.types.Interfaces()
	in.TypeHierarchy = s.types.Detail().Hierarchy
	in.Query = s.workbench.Result()
	return view, in
}

// persistedState collects the persisted subset of the session.
func (s *Session) persistedState() persist.State {
	s.mu.Lock()
	st := persist.State{
		ViewMode:       s.view,
		PackageFilters: s.filters,
	}
	s.mu.Unlock()

	st = st.WithCallParams(s.calls.Params())
	st = st.WithDataflowParams(s.dataflow.Params())
	st.Filters = s.search.Filters()
	return st
}

// settle rebuilds the graph model, retunes the viewport when the model
// changed, persists settings and publishes a snapshot.
func (s *Session) settle() {
	s.settleMu.Lock()
	defer s.settleMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	view, in := s.inputs()
	model := viewmodel.Build(view, in)

	s.mu.Lock()
	old := s.model
	s.model = &model
	s.index = viewmodel.NewIndex(&model)
	s.mu.Unlock()

	if diff := viewmodel.Diff(old, &model); diff.Changed() {
		logging.Debug("graph model rebuilt",
			"view", model.View,
			"nodes", len(model.Nodes),
			"links", len(model.Links),
			"added", len(diff.AddedNodes),
			"removed", len(diff.RemovedNodes))
		s.viewport.GraphChanged(model)
	}

	callRoot, _ := s.calls.Key()
	dataflowRoot, _ := s.dataflow.Key()
	if err := s.bridge.Save(s.persistedState(), callRoot, dataflowRoot); err != nil {
		logging.Warn("could not persist session state", "error", err)
	}

	snap := s.Snapshot()
	s.mu.Lock()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

type nopEngine struct{}

func (nopEngine) SetCharge(float64)          {}
func (nopEngine) SetLinkDistances([]float64) {}
func (nopEngine) Reheat()                    {}
func (nopEngine) ZoomToFit(viewport.Fit)     {}
