package session

import (
	"context"
	"fmt"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/logging"
	"github.com/ritzau/cpg-explorer/pkg/slice"
	"github.com/ritzau/cpg-explorer/pkg/source"
	"github.com/ritzau/cpg-explorer/pkg/viewmodel"
)

// The action methods below return the error they also put on the error
// channel. A superseded or cancelled action returns nil and changes
// nothing. Once a newer navigation has started, an older one neither
// switches the view nor opens source, and its failure is dropped.

// clearGraphContext drops the package, detail and xref context shown next
// to a graph.
func (s *Session) clearGraphContext() {
	s.mu.Lock()
	s.selectedPackage = ""
	s.mu.Unlock()

	s.pkgFuncs.Clear()
	s.detail.Clear()
	s.source.ClearXrefs()
}

// OpenCallGraph roots the call graph at functionID, then loads the
// function's detail and opens its source at the definition. params
// overrides the current call-graph knobs when non-nil. The view switches
// to calls once the graph has loaded.
func (s *Session) OpenCallGraph(ctx context.Context, functionID string, params *slice.CallParams) error {
	nav := s.navigate()
	done := s.beginBusy("Loading call graph...")
	defer done()

	s.clearGraphContext()

	p := s.calls.Params()
	if params != nil {
		p = *params
	}
	_, err := s.calls.Load(ctx, functionID, p)
	if s.overtaken(nav) {
		return nil
	}
	if err != nil {
		return s.fail(err)
	}
	s.report(nil)
	s.setView(viewmodel.ViewCalls)

	detail, err := s.detail.Load(ctx, functionID, struct{}{})
	if s.overtaken(nav) {
		return nil
	}
	if err != nil {
		return s.fail(err)
	}
	if detail == nil || detail.File == "" {
		return nil
	}
	return s.OpenSource(ctx, detail.File, []int{detail.Line}, detail.Line)
}

// OpenDataflow roots the data-flow slice at nodeID in direction, then opens
// the root's file with every sliced node of that file highlighted.
func (s *Session) OpenDataflow(ctx context.Context, nodeID string, direction api.DataflowDirection) error {
	nav := s.navigate()
	done := s.beginBusy("Loading data-flow slice...")
	defer done()

	s.clearGraphContext()

	p := s.dataflow.Params()
	if direction != "" {
		p.Direction = direction
	}
	resp, err := s.dataflow.Load(ctx, nodeID, p)
	if s.overtaken(nav) {
		return nil
	}
	if err != nil {
		return s.fail(err)
	}
	s.report(nil)
	s.setView(viewmodel.ViewDataflow)

	if len(resp.Nodes) == 0 {
		return nil
	}
	root := resp.Nodes[0]
	for _, n := range resp.Nodes {
		if n.ID == resp.RootID {
			root = n
			break
		}
	}
	if root.File == "" {
		return nil
	}
	return s.OpenSource(ctx, root.File, dataflowLines(resp.Nodes, root.File), root.Line)
}

func dataflowLines(nodes []api.DataflowNode, file string) []int {
	var lines []int
	for _, n := range nodes {
		if n.File == file {
			lines = append(lines, n.Line)
		}
	}
	return lines
}

// RefreshCallGraph reloads the call graph with the current knobs.
func (s *Session) RefreshCallGraph(ctx context.Context) error {
	if _, err := s.calls.Refresh(ctx); err != nil {
		return s.fail(err)
	}
	return nil
}

// RefreshDataflow reloads the data-flow slice with the current knobs.
func (s *Session) RefreshDataflow(ctx context.Context) error {
	if _, err := s.dataflow.Refresh(ctx); err != nil {
		return s.fail(err)
	}
	return nil
}

// OpenPackage drills into pkg: the packages view shows with pkg selected
// and its functions listed. Call, data-flow and source context is dropped.
func (s *Session) OpenPackage(ctx context.Context, pkg string) error {
	s.navigate()
	s.mu.Lock()
	s.selectedPackage = pkg
	s.mu.Unlock()
	s.setView(viewmodel.ViewPackages)

	s.calls.Clear()
	s.dataflow.Clear()
	s.source.Clear()
	s.detail.Clear()

	if _, err := s.pkgFuncs.Load(ctx, pkg, struct{}{}); err != nil {
		return s.fail(err)
	}
	s.report(nil)
	return nil
}

// SwitchToPackages returns to the package overview, dropping call and
// data-flow roots.
func (s *Session) SwitchToPackages() {
	s.navigate()
	s.setView(viewmodel.ViewPackages)
	s.calls.Clear()
	s.dataflow.Clear()
	s.detail.Clear()
	s.source.ClearXrefs()
}

// RunImpact computes the blast radius of functionID with the current depth.
func (s *Session) RunImpact(ctx context.Context, functionID string) error {
	nav := s.navigate()
	done := s.beginBusy("Computing impact...")
	defer done()

	_, err := s.impact.Load(ctx, functionID, s.impact.Params())
	if s.overtaken(nav) {
		return nil
	}
	if err != nil {
		return s.fail(err)
	}
	s.report(nil)
	s.setView(viewmodel.ViewImpact)
	return nil
}

// RunWorkbench runs the selected query and shows the workbench view.
func (s *Session) RunWorkbench(ctx context.Context) error {
	nav := s.navigate()
	name := s.workbench.Selected()
	done := s.beginBusy(fmt.Sprintf("Running %s...", name))
	defer done()

	_, err := s.workbench.Run(ctx)
	if s.overtaken(nav) {
		return nil
	}
	if err != nil {
		return s.fail(err)
	}
	s.report(nil)
	s.setView(viewmodel.ViewWorkbench)
	return nil
}

// OpenSource shows file in the source tab with lines highlighted and focus
// active.
func (s *Session) OpenSource(ctx context.Context, file string, lines []int, focus int) error {
	s.SetSidebarTab(TabSource)

	done := s.beginBusy("Loading source...")
	defer done()

	if err := s.source.Open(ctx, file, lines, focus); err != nil {
		return s.fail(err)
	}
	s.report(nil)
	return nil
}

// GoFromSourceLine navigates from a clicked source line: a function or
// method declaration opens its call graph, any other declaration has its
// references highlighted.
func (s *Session) GoFromSourceLine(ctx context.Context, line int) error {
	if s.source.Document() == nil {
		return nil
	}
	s.source.SetActive(line)

	hit, ok := s.source.Locate(line)
	if !ok {
		return nil
	}
	if source.IsCallable(hit.Kind) {
		return s.OpenCallGraph(ctx, hit.ID, nil)
	}

	done := s.beginBusy("Finding references...")
	defer done()

	refs, err := s.source.LoadXrefs(ctx, hit.ID, source.XrefLimit)
	if err != nil {
		return s.fail(err)
	}
	s.report(nil)
	s.source.MergeReferences(line, refs)
	s.SetSidebarTab(TabDetail)
	return nil
}

// OpenDataflowNode shows the source of a node of the current data-flow
// slice, highlighting every sliced node in the same file.
func (s *Session) OpenDataflowNode(ctx context.Context, nodeID string) error {
	resp := s.dataflow.Snapshot().Result
	if resp == nil {
		return nil
	}
	for _, n := range resp.Nodes {
		if n.ID != nodeID {
			continue
		}
		if n.File == "" {
			return nil
		}
		return s.OpenSource(ctx, n.File, dataflowLines(resp.Nodes, n.File), n.Line)
	}
	return nil
}

// ClickNode dispatches a click on graph node id according to the view.
func (s *Session) ClickNode(ctx context.Context, id string) error {
	model := s.Model()
	node, ok := model.Node(id)
	if !ok {
		logging.Debug("click on unknown node", "id", id)
		return nil
	}

	switch model.View {
	case viewmodel.ViewPackages:
		return s.OpenPackage(ctx, node.ID)
	case viewmodel.ViewDataflow:
		return s.OpenDataflowNode(ctx, node.ID)
	case viewmodel.ViewTypes:
		if node.TypeName == "" {
			return nil
		}
		s.navigate()
		s.setView(viewmodel.ViewTypes)
		return s.SelectType(ctx, node.TypeName)
	default:
		if node.Kind != "function" {
			return nil
		}
		return s.OpenCallGraph(ctx, node.ID, nil)
	}
}

// ClickSymbol opens a function symbol's call graph, or any other symbol's
// data-flow slice in the current direction.
func (s *Session) ClickSymbol(ctx context.Context, sym api.Symbol) error {
	if sym.Kind == "function" {
		return s.OpenCallGraph(ctx, sym.ID, nil)
	}
	return s.OpenDataflow(ctx, sym.ID, s.dataflow.Params().Direction)
}

// SwitchView makes mode active. Switching to calls without a call-graph
// root first resolves a seed function and loads its graph. Hotspots and
// workbench results are fetched on first visit.
func (s *Session) SwitchView(ctx context.Context, mode viewmodel.ViewMode) error {
	if mode == viewmodel.ViewCalls {
		if _, ok := s.calls.Key(); !ok {
			return s.LoadDefaultCallGraph(ctx)
		}
	}

	s.navigate()
	s.setView(mode)

	switch mode {
	case viewmodel.ViewHotspots:
		if s.hotspots.Snapshot().HasResult {
			return nil
		}
		done := s.beginBusy("Loading hotspots...")
		defer done()
		if _, err := s.hotspots.Load(ctx, slice.HotspotLimit, struct{}{}); err != nil {
			return s.fail(err)
		}
		s.report(nil)
	case viewmodel.ViewWorkbench:
		if s.workbench.HasResult() || s.workbench.Selected() == "" {
			return nil
		}
		return s.RunWorkbench(ctx)
	}
	return nil
}

// LoadDefaultCallGraph opens the call graph of the best seed function.
// Without any candidate a few hotspots are fetched to find one; when that
// also yields nothing the calls view shows empty.
func (s *Session) LoadDefaultCallGraph(ctx context.Context) error {
	if id, ok := s.seedCandidate(); ok {
		return s.OpenCallGraph(ctx, id, nil)
	}

	nav := s.navigate()
	done := s.beginBusy("Finding seed function...")
	rows, err := s.backend.GetHotspots(ctx, slice.HotspotSeedLimit)
	done()
	if s.overtaken(nav) {
		return nil
	}
	if err != nil {
		if slice.IsCancellation(err) {
			return nil
		}
		s.setView(viewmodel.ViewCalls)
		return s.fail(err)
	}
	if len(rows) == 0 {
		s.setView(viewmodel.ViewCalls)
		return nil
	}
	if !s.hotspots.Snapshot().HasResult {
		s.hotspots.Seed(slice.HotspotSeedLimit, rows)
	}
	return s.OpenCallGraph(ctx, rows[0].FunctionID, nil)
}
