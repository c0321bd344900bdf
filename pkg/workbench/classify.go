package workbench

import "github.com/ritzau/cpg-explorer/pkg/api"

// Rows is the shape of a query result, decided once by Classify. It is one
// of EdgeRows, NodeRows or Empty.
type Rows interface {
	rows()
}

// QueryEdge is a result row read as a directed edge between two functions.
type QueryEdge struct {
	Source string
	Target string
}

// QueryNode is a result row read as a standalone entity.
type QueryNode struct {
	ID      string
	Name    string
	Package string
	File    string
	Line    int
}

// EdgeRows is a result with at least one source/target row. Rows that only
// carry an id are kept in Nodes.
type EdgeRows struct {
	Query string
	Edges []QueryEdge
	Nodes []QueryNode
}

// NodeRows is a result with id rows and no edges.
type NodeRows struct {
	Query string
	Nodes []QueryNode
}

// Empty is a result with nothing graphable in it.
type Empty struct {
	Query string
}

func (EdgeRows) rows() {}
func (NodeRows) rows() {}
func (Empty) rows()    {}

var (
	idColumns   = []string{"id", "function_id", "type_id"}
	nameColumns = []string{"name", "method_name", "type_name"}
)

// Classify inspects the columns of a query result and returns its shape.
// A row with string source and target columns is an edge; otherwise a row
// with a non-empty id, function_id or type_id column is a node; anything
// else is ignored.
func Classify(result *api.QueryResult) Rows {
	if result == nil {
		return Empty{}
	}

	var (
		edges []QueryEdge
		nodes []QueryNode
	)
	for _, row := range result.Rows {
		source, okSource := stringColumn(row, "source")
		target, okTarget := stringColumn(row, "target")
		if okSource && okTarget {
			edges = append(edges, QueryEdge{Source: source, Target: target})
			continue
		}

		id := firstString(row, idColumns)
		if id == "" {
			continue
		}
		node := QueryNode{
			ID:   id,
			Name: firstString(row, nameColumns),
		}
		node.Package, _ = stringColumn(row, "package")
		node.File, _ = stringColumn(row, "file")
		if line, ok := row["line"].(float64); ok {
			node.Line = int(line)
		}
		nodes = append(nodes, node)
	}

	switch {
	case len(edges) > 0:
		return EdgeRows{Query: result.Query, Edges: edges, Nodes: nodes}
	case len(nodes) > 0:
		return NodeRows{Query: result.Query, Nodes: nodes}
	default:
		return Empty{Query: result.Query}
	}
}

// stringColumn reports a non-empty string value of column.
func stringColumn(row api.QueryRow, column string) (string, bool) {
	s, ok := row[column].(string)
	return s, ok && s != ""
}

func firstString(row api.QueryRow, columns []string) string {
	for _, c := range columns {
		if s, ok := stringColumn(row, c); ok {
			return s
		}
	}
	return ""
}
