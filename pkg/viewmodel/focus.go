package viewmodel

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Index is an adjacency index over a model, used for hover focus and
// degree queries.
type Index struct {
	graph *simple.DirectedGraph
	ids   map[string]int64
	names []string
}

// NewIndex indexes the nodes and links of m. Self links carry no
// neighbourhood information and are skipped.
func NewIndex(m *Model) *Index {
	ix := &Index{
		graph: simple.NewDirectedGraph(),
		ids:   make(map[string]int64, len(m.Nodes)),
		names: make([]string, 0, len(m.Nodes)),
	}
	for _, n := range m.Nodes {
		ix.addNode(n.ID)
	}
	for _, l := range m.Links {
		if l.Source == l.Target {
			continue
		}
		from, okFrom := ix.ids[l.Source]
		to, okTo := ix.ids[l.Target]
		if !okFrom || !okTo || ix.graph.HasEdgeFromTo(from, to) {
			continue
		}
		ix.graph.SetEdge(ix.graph.NewEdge(ix.graph.Node(from), ix.graph.Node(to)))
	}
	return ix
}

func (ix *Index) addNode(id string) {
	if _, exists := ix.ids[id]; exists {
		return
	}
	nid := int64(len(ix.names))
	ix.ids[id] = nid
	ix.names = append(ix.names, id)
	ix.graph.AddNode(simple.Node(nid))
}

// Has reports whether id is a node of the model.
func (ix *Index) Has(id string) bool {
	_, ok := ix.ids[id]
	return ok
}

// Neighbors returns the ids linked to or from id.
func (ix *Index) Neighbors(id string) []string {
	nid, ok := ix.ids[id]
	if !ok {
		return nil
	}

	seen := make(map[int64]bool)
	var out []string
	for _, it := range []graph.Nodes{ix.graph.From(nid), ix.graph.To(nid)} {
		for it.Next() {
			other := it.Node().ID()
			if !seen[other] {
				seen[other] = true
				out = append(out, ix.names[other])
			}
		}
	}
	return out
}

// Degree returns the number of distinct neighbours of id.
func (ix *Index) Degree(id string) int {
	return len(ix.Neighbors(id))
}

// Focus returns the hovered node and its direct neighbours. An empty or
// unknown id yields an empty set.
func (ix *Index) Focus(hover string) map[string]bool {
	focus := make(map[string]bool)
	if !ix.Has(hover) {
		return focus
	}
	focus[hover] = true
	for _, id := range ix.Neighbors(hover) {
		focus[id] = true
	}
	return focus
}
