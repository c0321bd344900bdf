package session

import (
	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/search"
	"github.com/ritzau/cpg-explorer/pkg/slice"
	"github.com/ritzau/cpg-explorer/pkg/source"
	"github.com/ritzau/cpg-explorer/pkg/typeexplorer"
	"github.com/ritzau/cpg-explorer/pkg/viewmodel"
	"github.com/ritzau/cpg-explorer/pkg/workbench"
)

// Snapshot is everything a renderer needs to draw the session. It is a
// copy; mutating it has no effect on the session.
type Snapshot struct {
	View       viewmodel.ViewMode `json:"viewMode"`
	Loading    bool               `json:"loading"`
	Busy       string             `json:"busy,omitempty"`
	Error      string             `json:"error,omitempty"`
	SidebarTab SidebarTab         `json:"sidebarTab"`

	Model           viewmodel.Model `json:"model"`
	IsEmpty         bool            `json:"isEmpty"`
	Focus           map[string]bool `json:"focus"`
	Hover           string          `json:"hover,omitempty"`
	HoverLabelsOnly bool            `json:"hoverLabelsOnly"`
	Viewport        string          `json:"viewport"`

	Packages PackagesView `json:"packages"`
	Calls    CallsView    `json:"calls"`
	Dataflow DataflowView `json:"dataflow"`
	Impact   ImpactView   `json:"impact"`

	Hotspots []api.HotspotRow    `json:"hotspots"`
	Detail   *api.FunctionDetail `json:"detail,omitempty"`

	Search    SearchView        `json:"search"`
	Types     typeexplorer.View `json:"types"`
	Workbench workbench.View    `json:"workbench"`
	Source    source.View       `json:"source"`
}

type PackagesView struct {
	Filters   viewmodel.PackageFilters `json:"filters"`
	Selected  string                   `json:"selected,omitempty"`
	Functions []api.PackageFunction    `json:"functions"`
	Loading   bool                     `json:"loading"`
}

type CallsView struct {
	Root      string           `json:"root,omitempty"`
	Params    slice.CallParams `json:"params"`
	Truncated bool             `json:"truncated"`
	Seeds     []SeedFunction   `json:"seeds"`
}

type DataflowView struct {
	Root   string               `json:"root,omitempty"`
	Params slice.DataflowParams `json:"params"`
}

type ImpactView struct {
	Root      string          `json:"root,omitempty"`
	Depth     int             `json:"depth"`
	Rows      []api.ImpactRow `json:"rows"`
	Truncated bool            `json:"truncated"`
}

type SearchView struct {
	Query     string         `json:"query"`
	Filters   search.Filters `json:"filters"`
	Searching bool           `json:"searching"`
	Results   []api.Symbol   `json:"results"`
}

// Snapshot returns the current presentation state.
func (s *Session) Snapshot() Snapshot {
	calls := s.calls.Snapshot()
	df := s.dataflow.Snapshot()
	impact := s.impact.Snapshot()
	hotspots := s.hotspots.Snapshot()
	pkgFuncs := s.pkgFuncs.Snapshot()
	detail := s.detail.Snapshot()
	types := s.types.View()
	wb := s.workbench.View()
	src := s.source.View()
	searching := s.search.Searching()

	busy := calls.Busy || df.Busy || impact.Busy || hotspots.Busy ||
		detail.Busy || types.Busy || wb.Busy || src.Busy

	s.mu.Lock()
	snap := Snapshot{
		View:            s.view,
		Loading:         s.loading,
		Busy:            s.busyMsg,
		Error:           s.errMsg,
		SidebarTab:      s.sidebarTab,
		Hover:           s.hover,
		HoverLabelsOnly: s.hoverLabelsOnly,
		Packages: PackagesView{
			Filters:   s.filters,
			Selected:  s.selectedPackage,
			Functions: pkgFuncs.Result,
			Loading:   pkgFuncs.Busy,
		},
	}
	if s.model != nil {
		snap.Model = *s.model
	} else {
		snap.Model = viewmodel.Model{View: s.view, Nodes: []viewmodel.GraphNode{}, Links: []viewmodel.GraphLink{}}
	}
	if s.index != nil {
		snap.Focus = s.index.Focus(s.hover)
	}
	s.mu.Unlock()

	if snap.Busy == "" && busy {
		snap.Busy = "Loading..."
	}
	snap.IsEmpty = snap.Model.IsEmpty()
	if snap.Focus == nil {
		snap.Focus = map[string]bool{}
	}
	snap.Viewport = s.viewport.State().String()

	snap.Calls = CallsView{
		Root:      calls.Key,
		Params:    calls.Params,
		Truncated: calls.Truncated,
		Seeds:     s.CallSeedFunctions(),
	}
	snap.Dataflow = DataflowView{Root: df.Key, Params: df.Params}
	snap.Impact = ImpactView{
		Root:      impact.Key,
		Depth:     impact.Params.MaxDepth,
		Rows:      impact.Result,
		Truncated: impact.Truncated,
	}
	snap.Hotspots = hotspots.Result
	snap.Detail = detail.Result
	snap.Search = SearchView{
		Query:     s.search.Query(),
		Filters:   s.search.Filters(),
		Searching: searching,
		Results:   s.search.Results(),
	}
	snap.Types = types
	snap.Workbench = wb
	snap.Source = src
	return snap
}
