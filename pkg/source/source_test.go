package source

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSource struct {
	sourceCalls  atomic.Int32
	outlineCalls atomic.Int32
	gate         chan struct{}
	outlineErr   error

	mu    sync.Mutex
	xrefs map[string][]api.XrefRow
}

func (m *MockSource) GetSource(ctx context.Context, file string) (*api.SourceFile, error) {
	m.sourceCalls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	return &api.SourceFile{File: file, Content: "package x\n"}, nil
}

func (m *MockSource) GetFileOutline(ctx context.Context, file string, limit int) ([]api.OutlineRow, error) {
	m.outlineCalls.Add(1)
	if m.outlineErr != nil {
		return nil, m.outlineErr
	}
	return []api.OutlineRow{
		{ID: "T", Kind: "type", Name: "T", StartLine: 1, EndLine: 40},
		{ID: "T.Run", Kind: "method", Name: "Run", StartLine: 10, EndLine: 20},
		{ID: "v", Kind: "var", Name: "v", StartLine: 12, EndLine: 12},
	}, nil
}

func (m *MockSource) GetXrefs(ctx context.Context, defID string, limit int) ([]api.XrefRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.xrefs[defID], nil
}

func TestCache_SharesConcurrentFetches(t *testing.T) {
	backend := &MockSource{gate: make(chan struct{})}
	cache := NewCache(backend)

	var wg sync.WaitGroup
	docs := make([]*Document, 4)
	for i := range docs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := cache.Get(context.Background(), "a.go")
			assert.NoError(t, err)
			docs[i] = doc
		}(i)
	}

	require.Eventually(t, func() bool { return backend.sourceCalls.Load() == 1 }, timeout, tick)
	close(backend.gate)
	wg.Wait()

	assert.Equal(t, int32(1), backend.sourceCalls.Load())
	for _, doc := range docs {
		assert.Same(t, docs[0], doc)
	}

	_, err := cache.Get(context.Background(), "a.go")
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.sourceCalls.Load(), "cached entries are never refetched")
	assert.Equal(t, 1, cache.Len())
}

func TestCache_FailureIsNotCached(t *testing.T) {
	backend := &MockSource{outlineErr: errors.New("boom")}
	cache := NewCache(backend)

	_, err := cache.Get(context.Background(), "a.go")
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	backend.outlineErr = nil
	doc, err := cache.Get(context.Background(), "a.go")
	require.NoError(t, err)
	assert.Len(t, doc.Outline, 3)
}

func TestCache_CancelledCallerStillFillsCache(t *testing.T) {
	backend := &MockSource{gate: make(chan struct{})}
	cache := NewCache(backend)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx, "a.go")
		done <- err
	}()

	require.Eventually(t, func() bool { return backend.sourceCalls.Load() == 1 }, timeout, tick)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(backend.gate)
	require.Eventually(t, func() bool { return cache.Len() == 1 }, timeout, tick)
}

func TestExplorer_OpenHighlightsUniquePositiveLines(t *testing.T) {
	backend := &MockSource{}
	e := NewExplorer(NewCache(backend), backend)

	require.NoError(t, e.Open(context.Background(), "a.go", []int{12, 0, -3, 12, 5}, 12))

	v := e.View()
	require.NotNil(t, v.Document)
	assert.Equal(t, "a.go", v.Document.File)
	assert.Equal(t, []int{12, 5}, v.Highlight)
	assert.Equal(t, 12, v.Active)

	require.NoError(t, e.Open(context.Background(), "", []int{1}, 1))
	assert.Equal(t, []int{12, 5}, e.Focus().Lines, "empty file is ignored")
}

func TestExplorer_LocatePicksInnermost(t *testing.T) {
	backend := &MockSource{}
	e := NewExplorer(NewCache(backend), backend)

	_, ok := e.Locate(12)
	assert.False(t, ok, "no document open")

	require.NoError(t, e.Open(context.Background(), "a.go", nil, 0))

	hit, ok := e.Locate(12)
	require.True(t, ok)
	assert.Equal(t, "v", hit.ID)

	hit, ok = e.Locate(15)
	require.True(t, ok)
	assert.Equal(t, "T.Run", hit.ID)
	assert.True(t, IsCallable(hit.Kind))

	hit, ok = e.Locate(30)
	require.True(t, ok)
	assert.Equal(t, "T", hit.ID)
	assert.False(t, IsCallable(hit.Kind))

	_, ok = e.Locate(99)
	assert.False(t, ok)
}

func TestExplorer_MergeReferences(t *testing.T) {
	backend := &MockSource{xrefs: map[string][]api.XrefRow{
		"v": {
			{DefID: "v", UseFile: "a.go", UseLine: 30},
			{DefID: "v", UseFile: "b.go", UseLine: 7},
			{DefID: "v", UseFile: "a.go", UseLine: 14},
		},
		"lonely": {{DefID: "lonely", UseFile: "b.go", UseLine: 2}},
	}}
	e := NewExplorer(NewCache(backend), backend)
	require.NoError(t, e.Open(context.Background(), "a.go", []int{5}, 5))

	rows, err := e.LoadXrefs(context.Background(), "v", XrefLimit)
	require.NoError(t, err)
	e.MergeReferences(12, rows)

	assert.Equal(t, []int{5, 12, 30, 14}, e.Focus().Lines)
	assert.Len(t, e.Xrefs(), 3)

	rows, err = e.LoadXrefs(context.Background(), "lonely", XrefLimit)
	require.NoError(t, err)
	e.MergeReferences(20, rows)
	assert.Equal(t, []int{5, 12, 30, 14}, e.Focus().Lines, "no refs in this file leaves highlights alone")
}

func TestExplorer_Clear(t *testing.T) {
	backend := &MockSource{}
	cache := NewCache(backend)
	e := NewExplorer(cache, backend)
	require.NoError(t, e.Open(context.Background(), "a.go", []int{3}, 3))

	e.Clear()

	v := e.View()
	assert.Nil(t, v.Document)
	assert.Empty(t, v.Highlight)
	assert.Zero(t, v.Active)
	assert.Equal(t, 1, cache.Len())
}
