package api

import "context"

// Backend is the full set of reads the explorer issues. Every call honours
// ctx cancellation; *Client is the production implementation.
type Backend interface {
	GraphAPI
	SourceAPI
	SymbolsAPI
	TypesAPI
	WorkbenchAPI
}

type GraphAPI interface {
	GetPackageGraph(ctx context.Context) (*PackageGraph, error)
	GetNeighborhood(ctx context.Context, functionID string) (*NeighborhoodResponse, error)
	GetCallGraph(ctx context.Context, functionID string, direction CallDirection, maxDepth, maxNodes int) (*CallGraphResponse, error)
	GetDataflowSlice(ctx context.Context, nodeID string, direction DataflowDirection, maxDepth int) (*DataflowResponse, error)
	GetFunctionsByPackage(ctx context.Context, pkg string) ([]PackageFunction, error)
	GetFunctionDetail(ctx context.Context, functionID string) (*FunctionDetail, error)
	GetHotspots(ctx context.Context, limit int) ([]HotspotRow, error)
	GetImpact(ctx context.Context, functionID string, maxDepth, limit int) ([]ImpactRow, error)
}

type SourceAPI interface {
	GetSource(ctx context.Context, file string) (*SourceFile, error)
	GetXrefs(ctx context.Context, defID string, limit int) ([]XrefRow, error)
	GetFileOutline(ctx context.Context, file string, limit int) ([]OutlineRow, error)
}

// SymbolQuery holds the optional structured filters of a symbol search.
type SymbolQuery struct {
	Kind      string
	Package   string
	Signature string
	Limit     int
}

type SymbolsAPI interface {
	GetSymbols(ctx context.Context, query string, opts SymbolQuery) ([]Symbol, error)
}

type TypesAPI interface {
	GetTypeInterfaces(ctx context.Context, name string, limit int) ([]TypeInterfaceRow, error)
	GetTypeMethods(ctx context.Context, name string, limit int) ([]TypeMethodRow, error)
	GetTypeHierarchy(ctx context.Context, name string, limit int) ([]TypeHierarchyRow, error)
}

type WorkbenchAPI interface {
	GetQueries(ctx context.Context) ([]QueryDescriptor, error)
	GetQueryByName(ctx context.Context, name string, params Params) (*QueryResult, error)
}

var _ Backend = (*Client)(nil)
