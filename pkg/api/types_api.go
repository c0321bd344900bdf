package api

import (
	"context"
	"net/url"
)

func (c *Client) GetTypeInterfaces(ctx context.Context, name string, limit int) ([]TypeInterfaceRow, error) {
	var out []TypeInterfaceRow
	if err := c.get(ctx, "/types/interfaces", Params{"name": name, "limit": limit}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTypeMethods(ctx context.Context, name string, limit int) ([]TypeMethodRow, error) {
	var out []TypeMethodRow
	if err := c.get(ctx, "/types/methods", Params{"name": name, "limit": limit}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTypeHierarchy(ctx context.Context, name string, limit int) ([]TypeHierarchyRow, error) {
	var out []TypeHierarchyRow
	if err := c.get(ctx, "/types/hierarchy", Params{"name": name, "limit": limit}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetQueries(ctx context.Context) ([]QueryDescriptor, error) {
	var out []QueryDescriptor
	if err := c.get(ctx, "/queries", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetQueryByName runs a named analytical query. params carries both the
// query's own key/value parameters and the "limit" row cap.
func (c *Client) GetQueryByName(ctx context.Context, name string, params Params) (*QueryResult, error) {
	var out QueryResult
	if err := c.get(ctx, "/query/"+url.PathEscape(name), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
