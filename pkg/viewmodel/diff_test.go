package viewmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	old := &Model{
		View:  ViewCalls,
		Nodes: []GraphNode{{ID: "a", Val: 1}, {ID: "b", Val: 1}},
		Links: []GraphLink{{Source: "a", Target: "b", Kind: "call"}},
	}

	t.Run("initial", func(t *testing.T) {
		d := Diff(nil, old)
		assert.True(t, d.Changed())
		assert.Equal(t, []string{"a", "b"}, d.AddedNodes)
		assert.Equal(t, 1, d.AddedLinks)
	})

	t.Run("identical rebuild", func(t *testing.T) {
		same := &Model{View: ViewCalls, Nodes: append([]GraphNode{}, old.Nodes...), Links: append([]GraphLink{}, old.Links...)}
		assert.False(t, Diff(old, same).Changed())
	})

	t.Run("modified and replaced", func(t *testing.T) {
		next := &Model{
			View:  ViewCalls,
			Nodes: []GraphNode{{ID: "a", Val: 2}, {ID: "c", Val: 1}},
			Links: []GraphLink{{Source: "a", Target: "c", Kind: "call"}},
		}
		d := Diff(old, next)
		assert.True(t, d.Changed())
		assert.Equal(t, []string{"c"}, d.AddedNodes)
		assert.Equal(t, []string{"b"}, d.RemovedNodes)
		assert.Equal(t, []string{"a"}, d.ModifiedNodes)
		assert.Equal(t, 1, d.AddedLinks)
		assert.Equal(t, 1, d.RemovedLinks)
	})

	t.Run("view switch with same nodes", func(t *testing.T) {
		next := &Model{View: ViewImpact, Nodes: old.Nodes, Links: old.Links}
		assert.True(t, Diff(old, next).ViewChanged)
	})
}
