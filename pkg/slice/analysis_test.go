package slice

import (
	"context"
	"fmt"
	"testing"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockGraphAPI answers call-graph requests with a fixed number of nodes.
type MockGraphAPI struct {
	api.GraphAPI
	NodeCount int
	Requests  []CallParams
}

func (m *MockGraphAPI) GetCallGraph(ctx context.Context, functionID string, direction api.CallDirection, maxDepth, maxNodes int) (*api.CallGraphResponse, error) {
	m.Requests = append(m.Requests, CallParams{Direction: direction, MaxDepth: maxDepth, MaxNodes: maxNodes})
	nodes := make([]api.CallGraphNode, m.NodeCount)
	for i := range nodes {
		nodes[i] = api.CallGraphNode{ID: fmt.Sprintf("N%d", i), Depth: i % 3}
	}
	return &api.CallGraphResponse{
		CenterID:  functionID,
		Direction: direction,
		MaxDepth:  maxDepth,
		MaxNodes:  maxNodes,
		Nodes:     nodes,
	}, nil
}

func TestCallGraph_Truncation(t *testing.T) {
	tests := []struct {
		name      string
		nodeCount int
		want      bool
	}{
		{"reaches cap", 80, true},
		{"below cap", 79, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &MockGraphAPI{NodeCount: tt.nodeCount}
			cg := NewCallGraph(backend, DefaultCallParams())

			_, err := cg.Load(context.Background(), "F1", CallParams{Direction: api.CallBoth, MaxDepth: 2, MaxNodes: 80})
			require.NoError(t, err)

			st := cg.Snapshot()
			assert.Equal(t, tt.want, st.Truncated)
			assert.Equal(t, "F1", st.Key)
		})
	}
}

func TestCallGraph_ClampsBeforeSending(t *testing.T) {
	backend := &MockGraphAPI{NodeCount: 3}
	cg := NewCallGraph(backend, DefaultCallParams())

	_, err := cg.Load(context.Background(), "F1", CallParams{Direction: "sideways", MaxDepth: 999, MaxNodes: 5})
	require.NoError(t, err)

	require.Len(t, backend.Requests, 1)
	assert.Equal(t, CallParams{Direction: api.CallBoth, MaxDepth: CallDepthMax, MaxNodes: CallNodesMin}, backend.Requests[0])
}

func TestCallParams_SetParamsClamps(t *testing.T) {
	cg := NewCallGraph(&MockGraphAPI{}, DefaultCallParams())

	p := cg.Params()
	p.MaxDepth = 0
	p.MaxNodes = 10000
	got := cg.SetParams(p)
	assert.Equal(t, 1, got.MaxDepth)
	assert.Equal(t, 250, got.MaxNodes)

	p.MaxDepth = 999
	p.MaxNodes = 5
	got = cg.SetParams(p)
	assert.Equal(t, 8, got.MaxDepth)
	assert.Equal(t, 10, got.MaxNodes)
}

func TestDataflowParams_Clamp(t *testing.T) {
	got := DataflowParams{Direction: "upward", MaxDepth: 1}.Clamp()
	assert.Equal(t, api.DataflowForward, got.Direction)
	assert.Equal(t, DataflowDepthMin, got.MaxDepth)

	got = DataflowParams{Direction: api.DataflowBackward, MaxDepth: 100}.Clamp()
	assert.Equal(t, api.DataflowBackward, got.Direction)
	assert.Equal(t, DataflowDepthMax, got.MaxDepth)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(0, 1, 8))
	assert.Equal(t, 8, Clamp(999, 1, 8))
	assert.Equal(t, 4, Clamp(4, 1, 8))
}
