package viewmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func focusModel() *Model {
	return &Model{
		Nodes: []GraphNode{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
		Links: []GraphLink{
			{Source: "a", Target: "b"},
			{Source: "c", Target: "a"},
			{Source: "a", Target: "a"},
			{Source: "a", Target: "b"},
			{Source: "b", Target: "a"},
		},
	}
}

func TestIndex_FocusIsHoverPlusNeighbours(t *testing.T) {
	ix := NewIndex(focusModel())

	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, ix.Focus("a"))
	assert.Equal(t, map[string]bool{"d": true}, ix.Focus("d"))
	assert.Empty(t, ix.Focus(""))
	assert.Empty(t, ix.Focus("zzz"))
}

func TestIndex_Degree(t *testing.T) {
	ix := NewIndex(focusModel())

	assert.Equal(t, 2, ix.Degree("a"), "self links and duplicates do not count")
	assert.Equal(t, 1, ix.Degree("b"))
	assert.Equal(t, 0, ix.Degree("d"))
	assert.ElementsMatch(t, []string{"b", "c"}, ix.Neighbors("a"))
	assert.Nil(t, ix.Neighbors("zzz"))
}
