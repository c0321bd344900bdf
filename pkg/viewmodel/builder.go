package viewmodel

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/slice"
	"github.com/ritzau/cpg-explorer/pkg/workbench"
)

// Render bounds. Every view is capped so the renderer stays responsive.
const (
	MaxNodes          = 420
	MaxLinks          = 700
	WorkbenchMaxNodes = 320
	WorkbenchMaxLinks = 600

	TopNMin              = 40
	TopNMax              = 280
	TopNDefault          = 120
	MinEdgeWeightMin     = 1
	MinEdgeWeightMax     = 24
	MinEdgeWeightDefault = 3

	HotspotsRootID = "__hotspots__"
	QueryRootID    = "__query_root__"
)

// PackageFilters select which packages the packages view shows.
type PackageFilters struct {
	TopN          int    `json:"topN"`
	MinEdgeWeight int    `json:"minEdgeWeight"`
	Module        string `json:"packageModuleFilter"`
	Name          string `json:"packageNameFilter"`
}

// Clamp bounds the numeric filters and resets an unknown module to all.
func (f PackageFilters) Clamp() PackageFilters {
	f.TopN = slice.Clamp(f.TopN, TopNMin, TopNMax)
	f.MinEdgeWeight = slice.Clamp(f.MinEdgeWeight, MinEdgeWeightMin, MinEdgeWeightMax)
	switch Module(f.Module) {
	case ModulePrometheus, ModuleClientGolang, ModuleAdapter, ModuleAlertmanager, ModuleOther:
	default:
		f.Module = ModuleAll
	}
	return f
}

func DefaultPackageFilters() PackageFilters {
	return PackageFilters{TopN: TopNDefault, MinEdgeWeight: MinEdgeWeightDefault, Module: ModuleAll}
}

// Inputs are the slice snapshots a model is built from. Only the fields
// of the requested view are read.
type Inputs struct {
	Packages       *api.PackageGraph
	PackageFilters PackageFilters

	Calls    *api.CallGraphResponse
	CallRoot string

	Dataflow     *api.DataflowResponse
	DataflowRoot string

	Hotspots []api.HotspotRow

	Impact     []api.ImpactRow
	ImpactRoot string

	TypeInterfaces []api.TypeInterfaceRow
	TypeHierarchy  []api.TypeHierarchyRow

	Query *api.QueryResult
}

// Build constructs the model of view from in. Node ids are unique and
// every link joins two nodes of the model; links that would reference a
// missing node are never added. Missing or malformed rows only make the
// model smaller.
func Build(view ViewMode, in Inputs) Model {
	var b *builder
	switch view {
	case ViewCalls:
		b = buildCalls(in.Calls, in.CallRoot)
	case ViewDataflow:
		b = buildDataflow(in.Dataflow, in.DataflowRoot)
	case ViewHotspots:
		b = buildHotspots(in.Hotspots)
	case ViewImpact:
		b = buildImpact(in.Impact, in.ImpactRoot)
	case ViewTypes:
		b = buildTypes(in.TypeInterfaces, in.TypeHierarchy)
	case ViewWorkbench:
		b = buildWorkbench(workbench.Classify(in.Query))
	default:
		view = ViewPackages
		b = buildPackages(in.Packages, in.PackageFilters.Clamp())
	}
	return b.model(view)
}

type builder struct {
	maxNodes int
	maxLinks int
	nodes    []GraphNode
	index    map[string]int
	links    []GraphLink
}

func newBuilder(maxNodes, maxLinks int) *builder {
	return &builder{
		maxNodes: maxNodes,
		maxLinks: maxLinks,
		index:    make(map[string]int),
	}
}

// add inserts n unless its id is taken or the node cap is reached, and
// returns the index of the node with n's id, or -1.
func (b *builder) add(n GraphNode) int {
	if n.ID == "" {
		return -1
	}
	if i, ok := b.index[n.ID]; ok {
		return i
	}
	if len(b.nodes) >= b.maxNodes {
		return -1
	}
	b.index[n.ID] = len(b.nodes)
	b.nodes = append(b.nodes, n)
	return len(b.nodes) - 1
}

func (b *builder) has(id string) bool {
	_, ok := b.index[id]
	return ok
}

// link appends l when both endpoints exist and the link cap allows.
func (b *builder) link(l GraphLink) {
	if len(b.links) >= b.maxLinks || !b.has(l.Source) || !b.has(l.Target) {
		return
	}
	b.links = append(b.links, l)
}

func (b *builder) model(view ViewMode) Model {
	m := Model{View: view, Nodes: b.nodes, Links: b.links}
	if m.Nodes == nil {
		m.Nodes = []GraphNode{}
	}
	if m.Links == nil {
		m.Links = []GraphLink{}
	}
	return m
}

func buildPackages(g *api.PackageGraph, f PackageFilters) *builder {
	b := newBuilder(MaxNodes, MaxLinks)
	if g == nil {
		return b
	}

	name := strings.ToLower(f.Name)
	var kept []api.PackageNode
	for _, n := range g.Nodes {
		if f.Module != ModuleAll && string(DetectModule(n.ID)) != f.Module {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(n.ID), name) {
			continue
		}
		kept = append(kept, n)
	}
	slices.SortStableFunc(kept, func(a, b api.PackageNode) int {
		return cmp.Compare(b.TotalComplexity, a.TotalComplexity)
	})
	if len(kept) > f.TopN {
		kept = kept[:f.TopN]
	}

	selected := make(map[string]bool, len(kept))
	for _, n := range kept {
		selected[n.ID] = true
	}
	var edges []api.PackageEdge
	connected := make(map[string]bool)
	for _, e := range g.Edges {
		if e.Weight < f.MinEdgeWeight || !selected[e.Source] || !selected[e.Target] {
			continue
		}
		edges = append(edges, e)
		connected[e.Source] = true
		connected[e.Target] = true
	}

	// Isolated packages are dropped in this view only.
	for _, n := range kept {
		if !connected[n.ID] {
			continue
		}
		b.add(GraphNode{
			ID:        n.ID,
			Name:      n.ID,
			Val:       math.Max(2, math.Min(22, math.Log2(float64(n.TotalComplexity)+1)*2.1)),
			Module:    DetectModule(n.ID),
			Package:   n.ID,
			GraphKind: KindPackage,
		})
	}
	for _, e := range edges {
		b.link(GraphLink{Source: e.Source, Target: e.Target, Kind: "package_dep", Weight: float64(e.Weight)})
	}
	return b
}

func buildCalls(resp *api.CallGraphResponse, root string) *builder {
	b := newBuilder(MaxNodes, MaxLinks)
	if resp == nil {
		return b
	}
	for _, n := range resp.Nodes {
		b.add(GraphNode{
			ID:        n.ID,
			Name:      n.Name,
			Val:       math.Max(4, 14-float64(n.Depth)*1.4),
			Module:    DetectModule(n.Package),
			Package:   n.Package,
			IsCenter:  n.ID == root,
			Kind:      "function",
			File:      n.File,
			Line:      n.Line,
			Depth:     n.Depth,
			GraphKind: KindFunction,
		})
	}
	for _, e := range resp.Edges {
		b.link(GraphLink{Source: e.Source, Target: e.Target, Kind: e.Kind})
	}
	return b
}

func buildDataflow(resp *api.DataflowResponse, root string) *builder {
	b := newBuilder(MaxNodes, MaxLinks)
	if resp == nil {
		return b
	}
	for _, n := range resp.Nodes {
		name := n.Name
		if name == "" {
			name = n.ID
		}
		b.add(GraphNode{
			ID:        n.ID,
			Name:      name,
			Val:       math.Max(3, 11-float64(n.Depth)*0.5),
			Module:    DetectModule(n.Package),
			Package:   n.Package,
			IsCenter:  n.ID == root,
			Kind:      n.Kind,
			File:      n.File,
			Line:      n.Line,
			Depth:     n.Depth,
			GraphKind: KindDataflow,
		})
	}
	for _, e := range resp.Edges {
		weight := 1.0
		if e.Kind == "dfg" {
			weight = 3
		}
		b.link(GraphLink{Source: e.Source, Target: e.Target, Kind: e.Kind, Weight: weight})
	}
	return b
}

func buildHotspots(rows []api.HotspotRow) *builder {
	b := newBuilder(MaxNodes, MaxLinks)
	if len(rows) == 0 {
		return b
	}
	b.add(GraphNode{ID: HotspotsRootID, Name: "Hotspots", Val: 16, IsCenter: true, GraphKind: KindVirtual})
	for _, r := range rows {
		b.add(GraphNode{
			ID:        r.FunctionID,
			Name:      r.Name,
			Val:       math.Max(5, math.Min(16, r.HotspotScore*0.9)),
			Module:    DetectModule(r.Package),
			Package:   r.Package,
			Kind:      "function",
			File:      r.File,
			GraphKind: KindFunction,
		})
	}
	for _, r := range rows {
		b.link(GraphLink{Source: HotspotsRootID, Target: r.FunctionID, Kind: "hotspot", Weight: r.HotspotScore})
	}
	return b
}

// impactRoot picks the declared root row, else the first depth-0 row, else
// the first row.
func impactRoot(rows []api.ImpactRow, declared string) string {
	for _, r := range rows {
		if r.ID == declared && declared != "" {
			return r.ID
		}
	}
	for _, r := range rows {
		if r.Depth == 0 {
			return r.ID
		}
	}
	return rows[0].ID
}

func buildImpact(rows []api.ImpactRow, declared string) *builder {
	b := newBuilder(MaxNodes, MaxLinks)
	if len(rows) == 0 {
		return b
	}
	root := impactRoot(rows, declared)
	for _, r := range rows {
		b.add(GraphNode{
			ID:        r.ID,
			Name:      r.Name,
			Val:       math.Max(4, 13-float64(r.Depth)),
			Module:    DetectModule(r.Package),
			Package:   r.Package,
			IsCenter:  r.ID == root,
			Kind:      "function",
			File:      r.File,
			Line:      r.Line,
			Depth:     r.Depth,
			GraphKind: KindFunction,
		})
	}
	for _, r := range rows {
		if r.ID == root {
			continue
		}
		b.link(GraphLink{Source: root, Target: r.ID, Kind: "impact"})
	}
	return b
}

func orName(id, name string) string {
	if id != "" {
		return id
	}
	return name
}

func buildTypes(ifaces []api.TypeInterfaceRow, hierarchy []api.TypeHierarchyRow) *builder {
	b := newBuilder(MaxNodes, MaxLinks)

	for _, r := range ifaces {
		ifaceID := "iface:" + orName(r.InterfaceID, r.InterfaceName)
		concreteID := "type:" + orName(r.ConcreteID, r.ConcreteName)
		b.add(GraphNode{
			ID:        ifaceID,
			Name:      r.InterfaceName,
			Val:       11,
			Module:    DetectModule(r.InterfacePackage),
			Package:   r.InterfacePackage,
			Kind:      "interface",
			GraphKind: KindType,
			TypeName:  r.InterfaceName,
		})
		b.add(GraphNode{
			ID:        concreteID,
			Name:      r.ConcreteName,
			Val:       math.Max(6, 6+float64(r.MethodCount)*0.25),
			Module:    DetectModule(r.ConcretePackage),
			Package:   r.ConcretePackage,
			Kind:      "type",
			GraphKind: KindType,
			TypeName:  r.ConcreteName,
		})
		b.link(GraphLink{Source: ifaceID, Target: concreteID, Kind: "implements"})
	}

	for _, r := range hierarchy {
		typeID := "h:" + orName(r.TypeID, r.TypeName)
		b.add(GraphNode{
			ID:        typeID,
			Name:      r.TypeName,
			Val:       8,
			Module:    DetectModule(r.TypePackage),
			Package:   r.TypePackage,
			Kind:      "type",
			GraphKind: KindType,
			TypeName:  r.TypeName,
		})
		if r.EmbeddedName == "" {
			continue
		}
		embeddedID := "h:" + orName(r.EmbeddedID, r.EmbeddedName)
		b.add(GraphNode{
			ID:        embeddedID,
			Name:      r.EmbeddedName,
			Val:       math.Max(5, 7-float64(r.Depth)*0.3),
			Module:    DetectModule(r.EmbeddedPackage),
			Package:   r.EmbeddedPackage,
			Kind:      "type",
			GraphKind: KindType,
			TypeName:  r.EmbeddedName,
		})
		b.link(GraphLink{Source: typeID, Target: embeddedID, Kind: "embeds"})
	}
	return b
}

func buildWorkbench(rows workbench.Rows) *builder {
	b := newBuilder(WorkbenchMaxNodes, WorkbenchMaxLinks)

	switch r := rows.(type) {
	case workbench.EdgeRows:
		for _, e := range r.Edges {
			b.add(functionNode(e.Source, e.Source))
			b.add(functionNode(e.Target, e.Target))
			b.link(GraphLink{Source: e.Source, Target: e.Target, Kind: "query"})
		}
		addQueryNodes(b, r.Nodes)

	case workbench.NodeRows:
		// The root goes first so it survives the node cap.
		name := r.Query
		if name == "" {
			name = "Query"
		}
		b.add(GraphNode{ID: QueryRootID, Name: name, Val: 12, IsCenter: true, GraphKind: KindVirtual})
		addQueryNodes(b, r.Nodes)
		for _, n := range b.nodes {
			if n.ID != QueryRootID {
				b.link(GraphLink{Source: QueryRootID, Target: n.ID, Kind: "query"})
			}
		}
	}
	return b
}

func functionNode(id, name string) GraphNode {
	if name == "" {
		name = id
	}
	return GraphNode{ID: id, Name: name, Val: 6, Kind: "function", GraphKind: KindFunction}
}

func addQueryNodes(b *builder, nodes []workbench.QueryNode) {
	for _, qn := range nodes {
		i := b.add(functionNode(qn.ID, qn.Name))
		if i < 0 {
			continue
		}
		n := &b.nodes[i]
		if n.Name == n.ID && qn.Name != "" {
			n.Name = qn.Name
		}
		if qn.Package != "" {
			n.Package = qn.Package
			n.Module = DetectModule(qn.Package)
		}
		if qn.File != "" {
			n.File = qn.File
		}
		if qn.Line > 0 {
			n.Line = qn.Line
		}
	}
}
