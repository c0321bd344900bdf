package output

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"
	"github.com/ritzau/cpg-explorer/pkg/viewmodel"
)

// TopNodes is how many of the most connected nodes the summary lists.
const TopNodes = 15

// PrintModelSummary prints a colored summary of a graph model: counts per
// graph kind and the most connected nodes. errMsg, when set, is printed as
// the session error.
func PrintModelSummary(w io.Writer, m viewmodel.Model, errMsg string) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintf(w, "Code Property Graph - %s view\n", m.View)
	bold.Fprintln(w, "=====================================")

	if errMsg != "" {
		red.Fprintf(w, "Error: %s\n\n", errMsg)
	}
	if m.IsEmpty() {
		yellow.Fprintln(w, "The graph is empty.")
		return
	}

	fmt.Fprintf(w, "Nodes: %d\n", len(m.Nodes))
	fmt.Fprintf(w, "Links: %d\n", len(m.Links))

	kinds := make(map[viewmodel.GraphKind]int)
	for _, n := range m.Nodes {
		kinds[n.GraphKind]++
	}
	keys := make([]viewmodel.GraphKind, 0, len(kinds))
	for k := range kinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		cyan.Fprintf(w, "  %-10s %d\n", k, kinds[k])
	}
	fmt.Fprintln(w)

	degree := make(map[string]int, len(m.Nodes))
	for _, l := range m.Links {
		degree[l.Source]++
		degree[l.Target]++
	}
	nodes := slices.Clone(m.Nodes)
	slices.SortStableFunc(nodes, func(a, b viewmodel.GraphNode) int {
		return cmp.Compare(degree[b.ID], degree[a.ID])
	})

	bold.Fprintln(w, "MOST CONNECTED:")
	for _, n := range nodes[:min(len(nodes), TopNodes)] {
		c := green
		if n.IsCenter {
			c = yellow
		}
		c.Fprintf(w, "  %s", n.Name)
		if n.Package != "" && n.Package != n.Name {
			cyan.Fprintf(w, "  (%s)", n.Package)
		}
		fmt.Fprintf(w, "  degree %d\n", degree[n.ID])
	}
}
