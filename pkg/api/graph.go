package api

import (
	"context"
	"net/url"
)

func (c *Client) GetPackageGraph(ctx context.Context) (*PackageGraph, error) {
	var out PackageGraph
	if err := c.get(ctx, "/graph/package", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetNeighborhood(ctx context.Context, functionID string) (*NeighborhoodResponse, error) {
	var out NeighborhoodResponse
	if err := c.get(ctx, "/graph/neighborhood", Params{"function_id": functionID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCallGraph(ctx context.Context, functionID string, direction CallDirection, maxDepth, maxNodes int) (*CallGraphResponse, error) {
	var out CallGraphResponse
	params := Params{
		"function_id": functionID,
		"direction":   string(direction),
		"max_depth":   maxDepth,
		"max_nodes":   maxNodes,
	}
	if err := c.get(ctx, "/graph/call", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetDataflowSlice(ctx context.Context, nodeID string, direction DataflowDirection, maxDepth int) (*DataflowResponse, error) {
	var out DataflowResponse
	params := Params{
		"node_id":   nodeID,
		"direction": string(direction),
		"max_depth": maxDepth,
	}
	if err := c.get(ctx, "/graph/dataflow", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetFunctionsByPackage(ctx context.Context, pkg string) ([]PackageFunction, error) {
	var out []PackageFunction
	if err := c.get(ctx, "/functions", Params{"package": pkg}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetFunctionDetail(ctx context.Context, functionID string) (*FunctionDetail, error) {
	var out FunctionDetail
	if err := c.get(ctx, "/function/"+url.PathEscape(functionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetHotspots(ctx context.Context, limit int) ([]HotspotRow, error) {
	var out []HotspotRow
	if err := c.get(ctx, "/hotspots", Params{"limit": limit}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetImpact(ctx context.Context, functionID string, maxDepth, limit int) ([]ImpactRow, error) {
	var out []ImpactRow
	params := Params{
		"function_id": functionID,
		"max_depth":   maxDepth,
		"limit":       limit,
	}
	if err := c.get(ctx, "/impact", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}
