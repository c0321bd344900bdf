package slice

import (
	"context"

	"github.com/ritzau/cpg-explorer/pkg/api"
)

// Bounds of the user-adjustable numeric knobs. Values from storage, URLs or
// backend echoes are always clamped into these ranges.
const (
	CallDepthMin     = 1
	CallDepthMax     = 8
	CallDepthDefault = 2
	CallNodesMin     = 10
	CallNodesMax     = 250
	CallNodesDefault = 80

	DataflowDepthMin     = 4
	DataflowDepthMax     = 40
	DataflowDepthDefault = 14

	ImpactDepthMin     = 1
	ImpactDepthMax     = 12
	ImpactDepthDefault = 8
	ImpactLimit        = 350

	HotspotLimit     = 80
	HotspotSeedLimit = 8
)

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CallParams are the knobs of a call-graph request.
type CallParams struct {
	Direction api.CallDirection `json:"direction"`
	MaxDepth  int               `json:"maxDepth"`
	MaxNodes  int               `json:"maxNodes"`
}

// Clamp bounds depth and node cap and defaults an unknown direction.
func (p CallParams) Clamp() CallParams {
	switch p.Direction {
	case api.CallBoth, api.CallCallers, api.CallCallees:
	default:
		p.Direction = api.CallBoth
	}
	p.MaxDepth = Clamp(p.MaxDepth, CallDepthMin, CallDepthMax)
	p.MaxNodes = Clamp(p.MaxNodes, CallNodesMin, CallNodesMax)
	return p
}

// DefaultCallParams are used when nothing was persisted.
func DefaultCallParams() CallParams {
	return CallParams{Direction: api.CallBoth, MaxDepth: CallDepthDefault, MaxNodes: CallNodesDefault}
}

type CallGraph = Slice[string, CallParams, *api.CallGraphResponse]

// NewCallGraph creates the call-graph slice. The stored root and parameters
// follow what the backend reports it actually used, and the slice is marked
// truncated when the node count reaches the declared node cap.
func NewCallGraph(b api.GraphAPI, initial CallParams) *CallGraph {
	fetch := func(ctx context.Context, functionID string, p CallParams) (*api.CallGraphResponse, error) {
		return b.GetCallGraph(ctx, functionID, p.Direction, p.MaxDepth, p.MaxNodes)
	}
	return New("callgraph", fetch, initial, Options[string, CallParams, *api.CallGraphResponse]{
		Clamp: CallParams.Clamp,
		Normalize: func(key string, p CallParams, resp *api.CallGraphResponse) (string, CallParams) {
			if resp.CenterID != "" {
				key = resp.CenterID
			}
			if resp.Direction != "" {
				p.Direction = resp.Direction
			}
			if resp.MaxDepth > 0 {
				p.MaxDepth = resp.MaxDepth
			}
			if resp.MaxNodes > 0 {
				p.MaxNodes = resp.MaxNodes
			}
			return key, p
		},
		Truncated: func(p CallParams, resp *api.CallGraphResponse) bool {
			limit := resp.MaxNodes
			if limit <= 0 {
				limit = p.MaxNodes
			}
			return len(resp.Nodes) >= limit
		},
	})
}

// DataflowParams are the knobs of a data-flow slice request.
type DataflowParams struct {
	Direction api.DataflowDirection `json:"direction"`
	MaxDepth  int                   `json:"maxDepth"`
}

func (p DataflowParams) Clamp() DataflowParams {
	if p.Direction != api.DataflowBackward {
		p.Direction = api.DataflowForward
	}
	p.MaxDepth = Clamp(p.MaxDepth, DataflowDepthMin, DataflowDepthMax)
	return p
}

func DefaultDataflowParams() DataflowParams {
	return DataflowParams{Direction: api.DataflowForward, MaxDepth: DataflowDepthDefault}
}

type Dataflow = Slice[string, DataflowParams, *api.DataflowResponse]

func NewDataflow(b api.GraphAPI, initial DataflowParams) *Dataflow {
	fetch := func(ctx context.Context, nodeID string, p DataflowParams) (*api.DataflowResponse, error) {
		return b.GetDataflowSlice(ctx, nodeID, p.Direction, p.MaxDepth)
	}
	return New("dataflow", fetch, initial, Options[string, DataflowParams, *api.DataflowResponse]{
		Clamp: DataflowParams.Clamp,
		Normalize: func(key string, p DataflowParams, resp *api.DataflowResponse) (string, DataflowParams) {
			if resp.RootID != "" {
				key = resp.RootID
			}
			if resp.Direction != "" {
				p.Direction = resp.Direction
			}
			return key, p
		},
	})
}

// ImpactParams bound a blast-radius request.
type ImpactParams struct {
	MaxDepth int `json:"maxDepth"`
}

func (p ImpactParams) Clamp() ImpactParams {
	p.MaxDepth = Clamp(p.MaxDepth, ImpactDepthMin, ImpactDepthMax)
	return p
}

type Impact = Slice[string, ImpactParams, []api.ImpactRow]

func NewImpact(b api.GraphAPI, initial ImpactParams) *Impact {
	fetch := func(ctx context.Context, functionID string, p ImpactParams) ([]api.ImpactRow, error) {
		return b.GetImpact(ctx, functionID, p.MaxDepth, ImpactLimit)
	}
	return New("impact", fetch, initial, Options[string, ImpactParams, []api.ImpactRow]{
		Clamp: ImpactParams.Clamp,
		Truncated: func(_ ImpactParams, rows []api.ImpactRow) bool {
			return len(rows) >= ImpactLimit
		},
	})
}

// Hotspots is keyed by the row limit it was fetched with.
type Hotspots = Slice[int, struct{}, []api.HotspotRow]

func NewHotspots(b api.GraphAPI) *Hotspots {
	fetch := func(ctx context.Context, limit int, _ struct{}) ([]api.HotspotRow, error) {
		return b.GetHotspots(ctx, limit)
	}
	return New("hotspots", fetch, struct{}{}, Options[int, struct{}, []api.HotspotRow]{})
}

type PackageFunctions = Slice[string, struct{}, []api.PackageFunction]

func NewPackageFunctions(b api.GraphAPI) *PackageFunctions {
	fetch := func(ctx context.Context, pkg string, _ struct{}) ([]api.PackageFunction, error) {
		return b.GetFunctionsByPackage(ctx, pkg)
	}
	return New("package-functions", fetch, struct{}{}, Options[string, struct{}, []api.PackageFunction]{})
}

type FunctionDetail = Slice[string, struct{}, *api.FunctionDetail]

func NewFunctionDetail(b api.GraphAPI) *FunctionDetail {
	fetch := func(ctx context.Context, functionID string, _ struct{}) (*api.FunctionDetail, error) {
		return b.GetFunctionDetail(ctx, functionID)
	}
	return New("function-detail", fetch, struct{}{}, Options[string, struct{}, *api.FunctionDetail]{})
}
