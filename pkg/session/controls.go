package session

import (
	"context"

	"github.com/ritzau/cpg-explorer/pkg/search"
	"github.com/ritzau/cpg-explorer/pkg/slice"
	"github.com/ritzau/cpg-explorer/pkg/viewmodel"
)

// PackageFilters returns the packages-view filters.
func (s *Session) PackageFilters() viewmodel.PackageFilters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

func (s *Session) CallParams() slice.CallParams {
	return s.calls.Params()
}

func (s *Session) DataflowParams() slice.DataflowParams {
	return s.dataflow.Params()
}

// SetPackageFilters stores the clamped packages-view filters.
func (s *Session) SetPackageFilters(f viewmodel.PackageFilters) viewmodel.PackageFilters {
	f = f.Clamp()
	s.mu.Lock()
	s.filters = f
	s.mu.Unlock()
	s.settle()
	return f
}

// SetCallParams stores clamped call-graph knobs for the next load.
func (s *Session) SetCallParams(p slice.CallParams) slice.CallParams {
	return s.calls.SetParams(p)
}

// SetDataflowParams stores clamped data-flow knobs for the next load.
func (s *Session) SetDataflowParams(p slice.DataflowParams) slice.DataflowParams {
	return s.dataflow.SetParams(p)
}

// SetImpactDepth stores the clamped impact depth for the next run.
func (s *Session) SetImpactDepth(depth int) int {
	return s.impact.SetParams(slice.ImpactParams{MaxDepth: depth}).MaxDepth
}

func (s *Session) SetSearchQuery(q string) {
	s.search.SetQuery(q)
	s.settle()
}

func (s *Session) SetSearchFilters(f search.Filters) {
	s.search.SetFilters(f)
	s.settle()
}

// RunSearchNow runs the search query without waiting for the debounce.
func (s *Session) RunSearchNow() {
	s.search.RunNow()
}

func (s *Session) SetTypeQuery(q string) {
	s.types.SetQuery(q)
	s.settle()
}

// RefreshTypeQuery runs the type query immediately.
func (s *Session) RefreshTypeQuery() {
	s.types.Refresh()
}

// SelectType selects a type and loads its methods and hierarchy.
func (s *Session) SelectType(ctx context.Context, name string) error {
	done := s.beginBusy("Loading type details...")
	defer done()

	if err := s.types.SelectType(ctx, name); err != nil {
		return s.fail(err)
	}
	s.report(nil)
	return nil
}

func (s *Session) SelectQuery(name string) {
	s.workbench.Select(name)
	s.settle()
}

func (s *Session) SetQueryParamText(text string) {
	s.workbench.SetParamText(text)
	s.settle()
}

// SetQueryLimit stores the clamped workbench row limit.
func (s *Session) SetQueryLimit(limit int) int {
	limit = s.workbench.SetLimit(limit)
	s.settle()
	return limit
}

func (s *Session) SetSidebarTab(tab SidebarTab) {
	s.mu.Lock()
	s.sidebarTab = tab
	s.mu.Unlock()
	s.settle()
}

// SetHover marks id as hovered; "" clears the hover.
func (s *Session) SetHover(id string) {
	s.mu.Lock()
	s.hover = id
	s.mu.Unlock()
	s.settle()
}

func (s *Session) SetHoverLabelsOnly(on bool) {
	s.mu.Lock()
	s.hoverLabelsOnly = on
	s.mu.Unlock()
	s.settle()
}

// FocusIDs returns the hovered node and its direct neighbours.
func (s *Session) FocusIDs() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return map[string]bool{}
	}
	return s.index.Focus(s.hover)
}

// Resize reports the canvas size.
func (s *Session) Resize(width, height int) {
	s.viewport.Resize(width, height)
}

// LayoutSettled reports that the layout engine stopped.
func (s *Session) LayoutSettled() {
	s.viewport.Settled()
}

// ResetView reheats the layout and fits the camera once.
func (s *Session) ResetView() {
	s.viewport.Reset()
}
