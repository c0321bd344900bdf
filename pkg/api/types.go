package api

// PackageNode is a package with aggregate size and complexity statistics.
type PackageNode struct {
	ID              string  `json:"id"`
	FileCount       int     `json:"file_count"`
	FunctionCount   int     `json:"function_count"`
	TotalLOC        int     `json:"total_loc"`
	TotalComplexity int     `json:"total_complexity"`
	AvgComplexity   float64 `json:"avg_complexity"`
	MaxComplexity   int     `json:"max_complexity"`
}

// PackageEdge is a weighted dependency between two packages.
type PackageEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// PackageGraph is the bootstrap package-level graph.
type PackageGraph struct {
	Nodes []PackageNode `json:"nodes"`
	Edges []PackageEdge `json:"edges"`
}

// CallDirection selects which side of a call graph to expand.
type CallDirection string

const (
	CallBoth    CallDirection = "both"
	CallCallers CallDirection = "callers"
	CallCallees CallDirection = "callees"
)

// DataflowDirection selects forward or backward data-flow slicing.
type DataflowDirection string

const (
	DataflowForward  DataflowDirection = "forward"
	DataflowBackward DataflowDirection = "backward"
)

type CallGraphNode struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Package string `json:"package"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Depth   int    `json:"depth"`
}

type CallGraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// CallGraphResponse echoes the effective parameters the backend used.
type CallGraphResponse struct {
	CenterID  string          `json:"center_id"`
	Direction CallDirection   `json:"direction"`
	MaxDepth  int             `json:"max_depth"`
	MaxNodes  int             `json:"max_nodes"`
	Nodes     []CallGraphNode `json:"nodes"`
	Edges     []CallGraphEdge `json:"edges"`
}

type DataflowNode struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Package string `json:"package"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Depth   int    `json:"depth"`
}

type DataflowEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

type DataflowResponse struct {
	RootID    string            `json:"root_id"`
	Direction DataflowDirection `json:"direction"`
	Nodes     []DataflowNode    `json:"nodes"`
	Edges     []DataflowEdge    `json:"edges"`
}

// Neighbor is a direct caller or callee of a function.
type Neighbor struct {
	Direction string `json:"direction"` // "caller" or "callee"
	ID        string `json:"id"`
	Name      string `json:"name"`
	Package   string `json:"package"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

type NeighborhoodResponse struct {
	Center    *Neighbor  `json:"center"`
	Neighbors []Neighbor `json:"neighbors"`
}

// Symbol is a symbol search hit.
type Symbol struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Package string `json:"package"`
	File    string `json:"file"`
	Line    int    `json:"line"`
}

type FunctionDetail struct {
	FunctionID   string `json:"function_id"`
	Name         string `json:"name"`
	Package      string `json:"package"`
	File         string `json:"file"`
	Line         int    `json:"line"`
	EndLine      int    `json:"end_line"`
	Signature    string `json:"signature"`
	Complexity   int    `json:"complexity"`
	LOC          int    `json:"loc"`
	FanIn        int    `json:"fan_in"`
	FanOut       int    `json:"fan_out"`
	NumParams    int    `json:"num_params"`
	NumLocals    int    `json:"num_locals"`
	NumCalls     int    `json:"num_calls"`
	NumBranches  int    `json:"num_branches"`
	NumReturns   int    `json:"num_returns"`
	FindingCount int    `json:"finding_count"`
	Callers      string `json:"callers"`
	Callees      string `json:"callees"`
}

type SourceFile struct {
	File    string `json:"file"`
	Content string `json:"content"`
}

type PackageFunction struct {
	FunctionID string `json:"function_id"`
	Name       string `json:"name"`
}

type QueryDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// QueryRow is one free-form row of a workbench query. Values are strings,
// float64 numbers or nil.
type QueryRow map[string]any

type QueryResult struct {
	Query     string     `json:"query"`
	Limit     int        `json:"limit"`
	Truncated bool       `json:"truncated"`
	Rows      []QueryRow `json:"rows"`
}

type HotspotRow struct {
	FunctionID   string  `json:"function_id"`
	Name         string  `json:"name"`
	Package      string  `json:"package"`
	File         string  `json:"file"`
	Complexity   int     `json:"complexity"`
	LOC          int     `json:"loc"`
	FanIn        int     `json:"fan_in"`
	FanOut       int     `json:"fan_out"`
	FindingCount int     `json:"finding_count"`
	HotspotScore float64 `json:"hotspot_score"`
}

type ImpactRow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Package string `json:"package"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Depth   int    `json:"depth"`
}

type TypeInterfaceRow struct {
	InterfaceID      string `json:"interface_id"`
	InterfaceName    string `json:"interface_name"`
	InterfacePackage string `json:"interface_package"`
	ConcreteID       string `json:"concrete_id"`
	ConcreteName     string `json:"concrete_name"`
	ConcretePackage  string `json:"concrete_package"`
	MethodCount      int    `json:"method_count"`
}

type TypeMethodRow struct {
	TypeID     string `json:"type_id"`
	TypeName   string `json:"type_name"`
	MethodID   string `json:"method_id"`
	MethodName string `json:"method_name"`
	Signature  string `json:"signature"`
	Complexity int    `json:"complexity"`
	LOC        int    `json:"loc"`
}

type TypeHierarchyRow struct {
	TypeID          string `json:"type_id"`
	TypeName        string `json:"type_name"`
	TypePackage     string `json:"type_package"`
	EmbeddedID      string `json:"embedded_id"`
	EmbeddedName    string `json:"embedded_name"`
	EmbeddedPackage string `json:"embedded_package"`
	Depth           int    `json:"depth"`
}

type XrefRow struct {
	DefID      string `json:"def_id"`
	UseID      string `json:"use_id"`
	UseName    string `json:"use_name"`
	UseKind    string `json:"use_kind"`
	UsePackage string `json:"use_package"`
	UseFile    string `json:"use_file"`
	UseLine    int    `json:"use_line"`
	EdgeKind   string `json:"edge_kind"`
}

// OutlineRow is one declaration in a file's structural outline.
type OutlineRow struct {
	ID        string `json:"id"`
	ParentID  string `json:"parent_id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Depth     int    `json:"depth"`
}
