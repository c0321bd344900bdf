package viewmodel

import "fmt"

// GraphDiff is the difference between two models of the same or different
// views.
type GraphDiff struct {
	AddedNodes    []string `json:"addedNodes"`
	RemovedNodes  []string `json:"removedNodes"`
	ModifiedNodes []string `json:"modifiedNodes"`
	AddedLinks    int      `json:"addedLinks"`
	RemovedLinks  int      `json:"removedLinks"`
	ViewChanged   bool     `json:"viewChanged"`
}

// Changed reports whether the renderer has anything to redraw.
func (d *GraphDiff) Changed() bool {
	return d.ViewChanged ||
		len(d.AddedNodes) > 0 ||
		len(d.RemovedNodes) > 0 ||
		len(d.ModifiedNodes) > 0 ||
		d.AddedLinks > 0 ||
		d.RemovedLinks > 0
}

// linkKey identifies a link by endpoints, kind and weight.
func linkKey(l GraphLink) string {
	return fmt.Sprintf("%s|%s|%s|%g", l.Source, l.Target, l.Kind, l.Weight)
}

// Diff compares old with next. A nil old counts every node and link of
// next as added.
func Diff(old, next *Model) *GraphDiff {
	d := &GraphDiff{
		AddedNodes:    make([]string, 0),
		RemovedNodes:  make([]string, 0),
		ModifiedNodes: make([]string, 0),
	}
	if old == nil {
		for _, n := range next.Nodes {
			d.AddedNodes = append(d.AddedNodes, n.ID)
		}
		d.AddedLinks = len(next.Links)
		d.ViewChanged = true
		return d
	}
	d.ViewChanged = old.View != next.View

	oldNodes := make(map[string]GraphNode, len(old.Nodes))
	for _, n := range old.Nodes {
		oldNodes[n.ID] = n
	}
	nextIDs := make(map[string]bool, len(next.Nodes))
	for _, n := range next.Nodes {
		nextIDs[n.ID] = true
		prev, ok := oldNodes[n.ID]
		switch {
		case !ok:
			d.AddedNodes = append(d.AddedNodes, n.ID)
		case prev != n:
			d.ModifiedNodes = append(d.ModifiedNodes, n.ID)
		}
	}
	for _, n := range old.Nodes {
		if !nextIDs[n.ID] {
			d.RemovedNodes = append(d.RemovedNodes, n.ID)
		}
	}

	oldLinks := make(map[string]int, len(old.Links))
	for _, l := range old.Links {
		oldLinks[linkKey(l)]++
	}
	for _, l := range next.Links {
		key := linkKey(l)
		if oldLinks[key] > 0 {
			oldLinks[key]--
			continue
		}
		d.AddedLinks++
	}
	for _, n := range oldLinks {
		d.RemovedLinks += n
	}
	return d
}
