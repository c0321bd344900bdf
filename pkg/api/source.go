package api

import "context"

func (c *Client) GetSource(ctx context.Context, file string) (*SourceFile, error) {
	var out SourceFile
	if err := c.get(ctx, "/source", Params{"file": file}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetXrefs(ctx context.Context, defID string, limit int) ([]XrefRow, error) {
	var out []XrefRow
	if err := c.get(ctx, "/xrefs", Params{"def_id": defID, "limit": limit}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetFileOutline(ctx context.Context, file string, limit int) ([]OutlineRow, error) {
	var out []OutlineRow
	if err := c.get(ctx, "/file/outline", Params{"file": file, "limit": limit}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSymbols(ctx context.Context, query string, opts SymbolQuery) ([]Symbol, error) {
	params := Params{
		"q":         query,
		"kind":      opts.Kind,
		"package":   opts.Package,
		"signature": opts.Signature,
	}
	if opts.Limit > 0 {
		params["limit"] = opts.Limit
	}

	var out []Symbol
	if err := c.get(ctx, "/symbols", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}
