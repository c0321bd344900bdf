// Package viewmodel turns the raw rows of the active view into one graph
// model for the renderer.
package viewmodel

import "strings"

// ViewMode is one of the seven analytical perspectives.
type ViewMode string

const (
	ViewPackages  ViewMode = "packages"
	ViewCalls     ViewMode = "calls"
	ViewDataflow  ViewMode = "dataflow"
	ViewHotspots  ViewMode = "hotspots"
	ViewImpact    ViewMode = "impact"
	ViewTypes     ViewMode = "types"
	ViewWorkbench ViewMode = "workbench"
)

// ViewModes lists every view in tab order.
var ViewModes = []ViewMode{ViewPackages, ViewCalls, ViewDataflow, ViewHotspots, ViewImpact, ViewTypes, ViewWorkbench}

// ParseViewMode returns the view named s.
func ParseViewMode(s string) (ViewMode, bool) {
	for _, v := range ViewModes {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

// GraphKind is the visual category of a node.
type GraphKind string

const (
	KindPackage  GraphKind = "package"
	KindFunction GraphKind = "function"
	KindDataflow GraphKind = "dataflow"
	KindType     GraphKind = "type"
	KindQuery    GraphKind = "query"
	KindVirtual  GraphKind = "virtual"
)

// Module is the top-level project a package belongs to.
type Module string

const (
	ModulePrometheus   Module = "prometheus"
	ModuleClientGolang Module = "client_golang"
	ModuleAdapter      Module = "adapter"
	ModuleAlertmanager Module = "alertmanager"
	ModuleOther        Module = "other"
)

// ModuleAll disables module filtering in the packages view.
const ModuleAll = "all"

// DetectModule classifies a package path by its leading directory.
func DetectModule(pkg string) Module {
	switch {
	case strings.HasPrefix(pkg, "client_golang/"):
		return ModuleClientGolang
	case strings.HasPrefix(pkg, "adapter/"):
		return ModuleAdapter
	case strings.HasPrefix(pkg, "alertmanager/"):
		return ModuleAlertmanager
	case strings.HasPrefix(pkg, "prometheus/"):
		return ModulePrometheus
	default:
		return ModuleOther
	}
}

// GraphNode is one rendered node. Val drives the radius.
type GraphNode struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Val       float64   `json:"val"`
	Module    Module    `json:"module,omitempty"`
	Package   string    `json:"package,omitempty"`
	IsCenter  bool      `json:"isCenter,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	File      string    `json:"file,omitempty"`
	Line      int       `json:"line,omitempty"`
	Depth     int       `json:"depth,omitempty"`
	GraphKind GraphKind `json:"graphKind"`
	TypeName  string    `json:"typeName,omitempty"`
}

// GraphLink is a directed edge between two nodes of the same model.
type GraphLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Kind   string  `json:"kind,omitempty"`
	Weight float64 `json:"weight,omitempty"`
}

// Model is the graph of one view. It is rebuilt wholesale whenever its
// inputs change.
type Model struct {
	View  ViewMode    `json:"view"`
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// IsEmpty reports whether there is nothing to draw.
func (m *Model) IsEmpty() bool {
	return len(m.Nodes) == 0
}

// Node returns the node with id.
func (m *Model) Node(id string) (GraphNode, bool) {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}
