package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api", nil)
}

func TestGetCallGraph_SendsParameters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/graph/call", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "F1", q.Get("function_id"))
		assert.Equal(t, "callers", q.Get("direction"))
		assert.Equal(t, "3", q.Get("max_depth"))
		assert.Equal(t, "40", q.Get("max_nodes"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		json.NewEncoder(w).Encode(CallGraphResponse{
			CenterID:  "F1",
			Direction: CallCallers,
			MaxDepth:  3,
			MaxNodes:  40,
			Nodes:     []CallGraphNode{{ID: "F1", Name: "main"}},
		})
	})

	resp, err := client.GetCallGraph(context.Background(), "F1", CallCallers, 3, 40)
	require.NoError(t, err)
	assert.Equal(t, "F1", resp.CenterID)
	assert.Len(t, resp.Nodes, 1)
}

func TestGetSymbols_OmitsEmptyFilters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "parse", q.Get("q"))
		assert.Equal(t, "function", q.Get("kind"))
		_, hasPackage := q["package"]
		_, hasSignature := q["signature"]
		assert.False(t, hasPackage, "empty package filter should be omitted")
		assert.False(t, hasSignature, "empty signature filter should be omitted")
		w.Write([]byte(`[]`))
	})

	_, err := client.GetSymbols(context.Background(), "parse", SymbolQuery{Kind: "function", Limit: 90})
	require.NoError(t, err)
}

func TestGetFunctionDetail_EscapesID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/function/pkg%2Fa.go:12", r.URL.EscapedPath())
		w.Write([]byte(`{"function_id":"pkg/a.go:12","name":"Run"}`))
	})

	detail, err := client.GetFunctionDetail(context.Background(), "pkg/a.go:12")
	require.NoError(t, err)
	assert.Equal(t, "Run", detail.Name)
}

func TestGet_BackendErrorMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid limit"}`))
	})

	_, err := client.GetHotspots(context.Background(), 9999)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid limit", apiErr.Message)
}

func TestGet_StatusTextWhenBodyIsNotJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.GetQueries(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Internal Server Error", apiErr.Message)
}

func TestGet_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetPackageGraph(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGetQueryByName_PassesParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/query/top_callers", r.URL.Path)
		assert.Equal(t, "prometheus/tsdb", r.URL.Query().Get("package"))
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"query":"top_callers","limit":500,"truncated":false,"rows":[{"id":"x1","line":12}]}`))
	})

	res, err := client.GetQueryByName(context.Background(), "top_callers", Params{"package": "prometheus/tsdb", "limit": 500})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "x1", res.Rows[0]["id"])
	assert.Equal(t, float64(12), res.Rows[0]["line"])
}
