package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/persist"
	"github.com/ritzau/cpg-explorer/pkg/slice"
	"github.com/ritzau/cpg-explorer/pkg/viewmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func fixture() *api.MockBackend {
	return &api.MockBackend{
		PackageGraph: &api.PackageGraph{
			Nodes: []api.PackageNode{
				{ID: "app/cmd", TotalComplexity: 40},
				{ID: "app/core", TotalComplexity: 90},
				{ID: "app/unused", TotalComplexity: 5},
			},
			Edges: []api.PackageEdge{{Source: "app/cmd", Target: "app/core", Weight: 5}},
		},
		Queries: []api.QueryDescriptor{{Name: "callers_of"}, {Name: "unused_functions"}},
		CallGraphs: map[string]*api.CallGraphResponse{
			"F1": {
				CenterID: "F1",
				Nodes: []api.CallGraphNode{
					{ID: "F1", Name: "main", Package: "app/cmd", File: "cmd/main.go", Line: 10},
					{ID: "F2", Name: "run", Package: "app/core", Depth: 1},
				},
				Edges: []api.CallGraphEdge{{Source: "F1", Target: "F2", Kind: "call"}},
			},
			"F2": {
				CenterID: "F2",
				Nodes:    []api.CallGraphNode{{ID: "F2", Name: "run", Package: "app/core"}},
			},
			"H1": {
				CenterID: "H1",
				Nodes:    []api.CallGraphNode{{ID: "H1", Name: "hot", Package: "app/core"}},
			},
		},
		Details: map[string]*api.FunctionDetail{
			"F1": {FunctionID: "F1", Name: "main", Package: "app/cmd", File: "cmd/main.go", Line: 10},
			"F2": {FunctionID: "F2", Name: "run", Package: "app/core"},
			"H1": {FunctionID: "H1", Name: "hot", Package: "app/core"},
		},
		PackageFunctions: map[string][]api.PackageFunction{
			"app/cmd":  {{FunctionID: "F1", Name: "main"}},
			"app/core": {{FunctionID: "F2", Name: "run"}},
		},
		Dataflows: map[string]*api.DataflowResponse{
			"N1": {
				RootID: "N1",
				Nodes: []api.DataflowNode{
					{ID: "N1", Name: "x", File: "cmd/main.go", Line: 3},
					{ID: "N2", Name: "y", File: "cmd/main.go", Line: 7, Depth: 1},
					{ID: "N3", Name: "z", File: "core/run.go", Line: 1, Depth: 2},
				},
				Edges: []api.DataflowEdge{{Source: "N1", Target: "N2", Kind: "flow"}},
			},
		},
		Sources: map[string]*api.SourceFile{
			"cmd/main.go": {File: "cmd/main.go", Content: "package main\n"},
		},
		Outlines: map[string][]api.OutlineRow{
			"cmd/main.go": {
				{ID: "V1", Kind: "var", Name: "x", StartLine: 3, EndLine: 3},
				{ID: "F1", Kind: "function", Name: "main", StartLine: 10, EndLine: 20},
			},
		},
		Xrefs: map[string][]api.XrefRow{
			"V1": {
				{DefID: "V1", UseFile: "cmd/main.go", UseLine: 15},
				{DefID: "V1", UseFile: "core/run.go", UseLine: 2},
			},
		},
		Impacts: map[string][]api.ImpactRow{
			"F2": {
				{ID: "F2", Name: "run", Depth: 0},
				{ID: "F1", Name: "main", Depth: 1},
			},
		},
		QueryResults: map[string]*api.QueryResult{
			"unused_functions": {
				Query: "unused_functions",
				Rows:  []api.QueryRow{{"function_id": "F9", "name": "dead"}},
			},
		},
	}
}

func newTestSession(t *testing.T, b api.Backend, query string) (*Session, *persist.MemoryStore, *persist.MemoryLocation) {
	t.Helper()
	store := persist.NewMemoryStore()
	loc := persist.NewMemoryLocation(query)
	s := New(context.Background(), b, Options{
		Store:             store,
		Location:          loc,
		SearchDelay:       10 * time.Millisecond,
		TypeDelay:         10 * time.Millisecond,
		ViewportDelay:     10 * time.Millisecond,
		SecondaryFitDelay: 10 * time.Millisecond,
	})
	t.Cleanup(s.Close)
	return s, store, loc
}

func bootstrapped(t *testing.T, b api.Backend) *Session {
	t.Helper()
	s, _, _ := newTestSession(t, b, "")
	require.NoError(t, s.Bootstrap(context.Background()))
	return s
}

func TestBootstrap_LoadsPackagesAndCatalog(t *testing.T) {
	s := bootstrapped(t, fixture())

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, viewmodel.ViewPackages, snap.View)
	assert.Len(t, snap.Model.Nodes, 2, "isolated package is dropped")
	assert.Len(t, snap.Model.Links, 1)
	assert.Equal(t, "callers_of", snap.Workbench.Selected)
	assert.Len(t, snap.Workbench.Queries, 2)
}

func TestBootstrap_FailureSurfacesError(t *testing.T) {
	b := fixture()
	b.SetError("GetQueries", errors.New("catalog unavailable"))
	s, _, _ := newTestSession(t, b, "")

	err := s.Bootstrap(context.Background())
	require.Error(t, err)

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.Contains(t, snap.Error, "catalog unavailable")
	assert.True(t, snap.IsEmpty)
	assert.Empty(t, snap.Workbench.Queries)
}

func TestBootstrap_DeepLinkFunctionOpensOnce(t *testing.T) {
	b := fixture()
	s, _, _ := newTestSession(t, b, "?view=hotspots&function=F1")

	require.NoError(t, s.Bootstrap(context.Background()))
	require.NoError(t, s.Bootstrap(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, viewmodel.ViewCalls, snap.View)
	assert.Equal(t, "F1", snap.Calls.Root)
	assert.Equal(t, 1, b.CallCount("GetCallGraph:F1"))
}

func TestBootstrap_DeepLinkFiresAfterFailedBootstrap(t *testing.T) {
	b := fixture()
	b.SetError("GetPackageGraph", errors.New("down"))
	s, _, _ := newTestSession(t, b, "node=N1")

	require.Error(t, s.Bootstrap(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, viewmodel.ViewDataflow, snap.View)
	assert.Equal(t, "N1", snap.Dataflow.Root)
	require.NotNil(t, snap.Source.Document)
	assert.Equal(t, "cmd/main.go", snap.Source.Document.File)
	assert.Equal(t, []int{3, 7}, snap.Source.Highlight)
	assert.Equal(t, 3, snap.Source.Active)
}

func TestOpenCallGraph_LoadsDetailAndSource(t *testing.T) {
	b := fixture()
	s := bootstrapped(t, b)

	require.NoError(t, s.OpenCallGraph(context.Background(), "F1", nil))

	snap := s.Snapshot()
	assert.Equal(t, viewmodel.ViewCalls, snap.View)
	assert.Equal(t, "F1", snap.Calls.Root)
	assert.Len(t, snap.Model.Nodes, 2)
	center, ok := snap.Model.Node("F1")
	require.True(t, ok)
	assert.True(t, center.IsCenter)

	require.NotNil(t, snap.Detail)
	assert.Equal(t, "main", snap.Detail.Name)
	assert.Equal(t, TabSource, snap.SidebarTab)
	require.NotNil(t, snap.Source.Document)
	assert.Equal(t, []int{10}, snap.Source.Highlight)
	assert.Equal(t, 10, snap.Source.Active)
	assert.Empty(t, snap.Busy)
}

func TestOpenCallGraph_LatestRequestWins(t *testing.T) {
	b := fixture()
	s := bootstrapped(t, b)
	gate := b.Gate("GetCallGraph", "F1")

	var wg sync.WaitGroup
	var errA error
	wg.Add(1)
	go func() {
		defer wg.Done()
		errA = s.OpenCallGraph(context.Background(), "F1", nil)
	}()
	require.Eventually(t, func() bool { return b.CallCount("GetCallGraph:F1") == 1 }, timeout, tick)

	require.NoError(t, s.OpenCallGraph(context.Background(), "F2", nil))
	close(gate)
	wg.Wait()

	assert.NoError(t, errA, "a superseded request is not an error")
	snap := s.Snapshot()
	assert.Equal(t, "F2", snap.Calls.Root)
	assert.Empty(t, snap.Error)
	_, stale := snap.Model.Node("F1")
	assert.False(t, stale)
}

func TestNavigation_LateDataflowDoesNotSwitchBack(t *testing.T) {
	b := fixture()
	s := bootstrapped(t, b)
	gate := b.Gate("GetDataflowSlice", "N1")

	errc := make(chan error, 1)
	go func() { errc <- s.OpenDataflow(context.Background(), "N1", "") }()
	require.Eventually(t, func() bool { return b.CallCount("GetDataflowSlice:N1") == 1 }, timeout, tick)

	require.NoError(t, s.OpenCallGraph(context.Background(), "F1", nil))
	require.Equal(t, viewmodel.ViewCalls, s.View())

	close(gate)
	require.NoError(t, <-errc)

	snap := s.Snapshot()
	assert.Equal(t, viewmodel.ViewCalls, snap.View)
	assert.Equal(t, []int{10}, snap.Source.Highlight, "source stays on the call graph root")
	assert.Equal(t, 10, snap.Source.Active)
}

func TestNavigation_LateImpactDoesNotSwitchBack(t *testing.T) {
	b := fixture()
	s := bootstrapped(t, b)
	gate := b.Gate("GetImpact", "F2")

	errc := make(chan error, 1)
	go func() { errc <- s.RunImpact(context.Background(), "F2") }()
	require.Eventually(t, func() bool { return b.CallCount("GetImpact:F2") == 1 }, timeout, tick)

	require.NoError(t, s.OpenCallGraph(context.Background(), "F1", nil))

	close(gate)
	require.NoError(t, <-errc)
	assert.Equal(t, viewmodel.ViewCalls, s.View())
}

func TestNavigation_LateFailureIsDropped(t *testing.T) {
	b := fixture()
	s := bootstrapped(t, b)
	gate := b.Gate("GetImpact", "F1")

	errc := make(chan error, 1)
	go func() { errc <- s.RunImpact(context.Background(), "F1") }()
	require.Eventually(t, func() bool { return b.CallCount("GetImpact:F1") == 1 }, timeout, tick)

	s.SwitchToPackages()
	close(gate)

	require.NoError(t, <-errc)
	assert.Equal(t, viewmodel.ViewPackages, s.View())
	assert.Empty(t, s.Error())
}

func TestOpenCallGraph_FailureKeepsView(t *testing.T) {
	s := bootstrapped(t, fixture())

	err := s.OpenCallGraph(context.Background(), "missing", nil)
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, viewmodel.ViewPackages, snap.View)
	assert.Contains(t, snap.Error, "missing not found")
}

func TestErrors_LatestOverwritesAndDismiss(t *testing.T) {
	s := bootstrapped(t, fixture())
	ctx := context.Background()

	require.Error(t, s.OpenCallGraph(ctx, "first", nil))
	require.Error(t, s.OpenCallGraph(ctx, "second", nil))
	assert.Contains(t, s.Error(), "second")
	assert.NotContains(t, s.Error(), "first")

	s.DismissError()
	assert.Empty(t, s.Error())

	require.Error(t, s.OpenCallGraph(ctx, "third", nil))
	require.NoError(t, s.OpenCallGraph(ctx, "F2", nil))
	assert.Empty(t, s.Error(), "a later success clears the error")
}

func TestCancellationIsNotAnError(t *testing.T) {
	s := bootstrapped(t, fixture())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, s.OpenCallGraph(ctx, "F1", nil))
	assert.NoError(t, s.OpenDataflow(ctx, "N1", ""))
	assert.Empty(t, s.Error())
	assert.Equal(t, viewmodel.ViewPackages, s.View())
}

func TestSwitchView_CallsSeedsFromPackageFunctions(t *testing.T) {
	b := fixture()
	s := bootstrapped(t, b)
	ctx := context.Background()

	require.NoError(t, s.OpenPackage(ctx, "app/core"))
	require.NoError(t, s.SwitchView(ctx, viewmodel.ViewCalls))

	assert.Equal(t, viewmodel.ViewCalls, s.View())
	assert.Equal(t, "F2", s.Snapshot().Calls.Root)
	assert.Zero(t, b.CallCount("GetHotspots:8"))
}

func TestSwitchView_CallsSeedsFromDetailFirst(t *testing.T) {
	s := bootstrapped(t, fixture())
	ctx := context.Background()

	require.NoError(t, s.OpenCallGraph(ctx, "F1", nil))
	s.calls.Clear()
	require.NoError(t, s.SwitchView(ctx, viewmodel.ViewCalls))

	assert.Equal(t, "F1", s.Snapshot().Calls.Root)
}

func TestSwitchView_CallsFallsBackToHotspots(t *testing.T) {
	b := fixture()
	b.Hotspots = []api.HotspotRow{{FunctionID: "H1", Name: "hot"}, {FunctionID: "F2", Name: "run"}}
	s := bootstrapped(t, b)

	require.NoError(t, s.SwitchView(context.Background(), viewmodel.ViewCalls))

	snap := s.Snapshot()
	assert.Equal(t, viewmodel.ViewCalls, snap.View)
	assert.Equal(t, "H1", snap.Calls.Root)
	assert.Equal(t, 1, b.CallCount("GetHotspots:8"))
	assert.Len(t, snap.Hotspots, 2, "seed rows populate the empty hotspots slice")
}

func TestSwitchView_CallsWithoutAnySeed(t *testing.T) {
	s := bootstrapped(t, fixture())

	require.NoError(t, s.SwitchView(context.Background(), viewmodel.ViewCalls))

	snap := s.Snapshot()
	assert.Equal(t, viewmodel.ViewCalls, snap.View)
	assert.True(t, snap.IsEmpty)
	assert.Empty(t, snap.Error)
}

func TestSwitchView_HotspotsLoadLazily(t *testing.T) {
	b := fixture()
	b.Hotspots = []api.HotspotRow{{FunctionID: "H1", Name: "hot", HotspotScore: 3}}
	s := bootstrapped(t, b)
	ctx := context.Background()

	require.NoError(t, s.SwitchView(ctx, viewmodel.ViewHotspots))
	require.NoError(t, s.SwitchView(ctx, viewmodel.ViewPackages))
	require.NoError(t, s.SwitchView(ctx, viewmodel.ViewHotspots))

	assert.Equal(t, 1, b.CallCount("GetHotspots:80"))
	snap := s.Snapshot()
	assert.Equal(t, viewmodel.ViewHotspots, snap.View)
	_, ok := snap.Model.Node(viewmodel.HotspotsRootID)
	assert.True(t, ok)
}

func TestSwitchView_OneViewAtATime(t *testing.T) {
	s := bootstrapped(t, fixture())
	ctx := context.Background()

	for _, mode := range []viewmodel.ViewMode{
		viewmodel.ViewTypes,
		viewmodel.ViewImpact,
		viewmodel.ViewPackages,
		viewmodel.ViewTypes,
	} {
		require.NoError(t, s.SwitchView(ctx, mode))
		snap := s.Snapshot()
		assert.Equal(t, mode, snap.View)
		assert.Equal(t, mode, snap.Model.View)
	}
}

func TestRunWorkbench(t *testing.T) {
	s := bootstrapped(t, fixture())

	s.SelectQuery("unused_functions")
	require.NoError(t, s.RunWorkbench(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, viewmodel.ViewWorkbench, snap.View)
	_, ok := snap.Model.Node(viewmodel.QueryRootID)
	assert.True(t, ok)
	_, ok = snap.Model.Node("F9")
	assert.True(t, ok)
}

func TestRunImpact(t *testing.T) {
	s := bootstrapped(t, fixture())

	assert.Equal(t, slice.ImpactDepthMax, s.SetImpactDepth(99))
	require.NoError(t, s.RunImpact(context.Background(), "F2"))

	snap := s.Snapshot()
	assert.Equal(t, viewmodel.ViewImpact, snap.View)
	assert.Equal(t, "F2", snap.Impact.Root)
	assert.Equal(t, slice.ImpactDepthMax, snap.Impact.Depth)
	assert.Len(t, snap.Impact.Rows, 2)
}

func TestGoFromSourceLine(t *testing.T) {
	b := fixture()
	s := bootstrapped(t, b)
	ctx := context.Background()
	require.NoError(t, s.OpenCallGraph(ctx, "F1", nil))

	require.NoError(t, s.GoFromSourceLine(ctx, 3))
	snap := s.Snapshot()
	assert.Equal(t, []int{10, 3, 15}, snap.Source.Highlight)
	assert.Equal(t, TabDetail, snap.SidebarTab)
	assert.Len(t, snap.Source.Xrefs, 2)

	require.NoError(t, s.GoFromSourceLine(ctx, 12))
	assert.Equal(t, 2, b.CallCount("GetCallGraph:F1"))
}

func TestClickNode_Packages(t *testing.T) {
	s := bootstrapped(t, fixture())

	require.NoError(t, s.ClickNode(context.Background(), "app/cmd"))

	snap := s.Snapshot()
	assert.Equal(t, viewmodel.ViewPackages, snap.View)
	assert.Equal(t, "app/cmd", snap.Packages.Selected)
	require.Len(t, snap.Packages.Functions, 1)
	assert.Equal(t, "F1", snap.Packages.Functions[0].FunctionID)
}

func TestClickNode_CallsOpensFunction(t *testing.T) {
	s := bootstrapped(t, fixture())
	ctx := context.Background()
	require.NoError(t, s.OpenCallGraph(ctx, "F1", nil))

	require.NoError(t, s.ClickNode(ctx, "F2"))
	assert.Equal(t, "F2", s.Snapshot().Calls.Root)

	require.NoError(t, s.ClickNode(ctx, "nope"))
	assert.Equal(t, "F2", s.Snapshot().Calls.Root)
}

func TestCallSeedFunctions_Distinct(t *testing.T) {
	b := fixture()
	b.Hotspots = []api.HotspotRow{{FunctionID: "F1", Name: "main-hot"}, {FunctionID: "H1", Name: "hot"}}
	s := bootstrapped(t, b)
	ctx := context.Background()

	require.NoError(t, s.SwitchView(ctx, viewmodel.ViewHotspots))
	require.NoError(t, s.OpenCallGraph(ctx, "F1", nil))

	seeds := s.CallSeedFunctions()
	require.Len(t, seeds, 2)
	assert.Equal(t, "F1", seeds[0].ID)
	assert.Equal(t, "main-hot", seeds[0].Name, "later source replaces the entry in place")
	assert.Equal(t, "H1", seeds[1].ID)
}

func TestCallSeedFunctions_Capped(t *testing.T) {
	s := bootstrapped(t, fixture())

	var hot []api.HotspotRow
	for i := range 30 {
		hot = append(hot, api.HotspotRow{FunctionID: fmt.Sprintf("H%d", i)})
	}
	var fns []api.PackageFunction
	for i := range 30 {
		fns = append(fns, api.PackageFunction{FunctionID: fmt.Sprintf("P%d", i)})
	}
	s.detail.Seed("D", &api.FunctionDetail{FunctionID: "D"})
	s.hotspots.Seed(slice.HotspotLimit, hot)
	s.pkgFuncs.Seed("app/core", fns)

	seeds := s.CallSeedFunctions()
	require.Len(t, seeds, seedListLimit)
	assert.Equal(t, "D", seeds[0].ID)
	assert.Equal(t, "H17", seeds[seedHotspots].ID)
	assert.Equal(t, "P22", seeds[seedListLimit-1].ID)
}

func TestHoverFocus(t *testing.T) {
	s := bootstrapped(t, fixture())
	require.NoError(t, s.OpenCallGraph(context.Background(), "F1", nil))

	s.SetHover("F2")
	assert.Equal(t, map[string]bool{"F1": true, "F2": true}, s.FocusIDs())

	s.SetHover("")
	assert.Empty(t, s.FocusIDs())
}

func TestSettle_PersistsSettings(t *testing.T) {
	b := fixture()
	s, store, loc := newTestSession(t, b, "")
	require.NoError(t, s.Bootstrap(context.Background()))

	got := s.SetCallParams(slice.CallParams{Direction: api.CallCallers, MaxDepth: 20, MaxNodes: 40})
	assert.Equal(t, slice.CallDepthMax, got.MaxDepth)
	s.SetPackageFilters(viewmodel.PackageFilters{TopN: 1, MinEdgeWeight: 0, Module: "bogus"})
	require.NoError(t, s.OpenCallGraph(context.Background(), "F1", nil))

	blob, ok, err := store.Load(persist.StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	st := persist.Decode(blob, persist.Defaults())
	assert.Equal(t, viewmodel.ViewCalls, st.ViewMode)
	assert.Equal(t, api.CallCallers, st.CallDirection)
	assert.Equal(t, slice.CallDepthMax, st.CallMaxDepth)
	assert.Equal(t, viewmodel.TopNMin, st.TopN)
	assert.Equal(t, viewmodel.ModuleAll, st.Module)

	q := loc.Query()
	assert.Equal(t, "calls", q.Get("view"))
	assert.Equal(t, "F1", q.Get("function"))
	assert.Empty(t, q.Get("node"))

	// A new session over the same store starts where this one stopped.
	next := New(context.Background(), b, Options{Store: store, Location: persist.NewMemoryLocation("")})
	t.Cleanup(next.Close)
	assert.Equal(t, viewmodel.ViewCalls, next.View())
	assert.Equal(t, api.CallCallers, next.calls.Params().Direction)
}

func TestSubscribe_ReceivesSnapshots(t *testing.T) {
	s, _, _ := newTestSession(t, fixture(), "")

	var (
		mu    sync.Mutex
		views []viewmodel.ViewMode
	)
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		views = append(views, snap.View)
	})

	require.NoError(t, s.Bootstrap(context.Background()))
	require.NoError(t, s.SwitchView(context.Background(), viewmodel.ViewImpact))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, views)
	assert.Equal(t, viewmodel.ViewImpact, views[len(views)-1])
}

func TestSearch_DebouncedResults(t *testing.T) {
	b := fixture()
	b.Symbols = []api.Symbol{{ID: "F1", Name: "main", Kind: "function"}, {ID: "V1", Name: "x", Kind: "var"}}
	s := New(context.Background(), b, Options{SearchDelay: 80 * time.Millisecond})
	t.Cleanup(s.Close)
	require.NoError(t, s.Bootstrap(context.Background()))

	s.SetSearchQuery("m")
	s.SetSearchQuery("ma")
	s.SetSearchQuery("main")

	require.Eventually(t, func() bool { return len(s.Snapshot().Search.Results) == 2 }, timeout, tick)
	assert.Equal(t, 1, b.CallCount("GetSymbols:main"))
	assert.Zero(t, b.CallCount("GetSymbols:m"))
}
