package slice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedFetch lets a test decide when, and with what, each request resolves.
type gatedFetch struct {
	mu    sync.Mutex
	gates map[string]chan gateResult
	calls []string
}

type gateResult struct {
	rows []string
	err  error
}

func newGatedFetch() *gatedFetch {
	return &gatedFetch{gates: make(map[string]chan gateResult)}
}

func (g *gatedFetch) gate(key string) chan gateResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[key]
	if !ok {
		ch = make(chan gateResult, 1)
		g.gates[key] = ch
	}
	return ch
}

// fetch ignores ctx cancellation on purpose so that a superseded request
// still "resolves" late, like a response already on the wire.
func (g *gatedFetch) fetch(ctx context.Context, key string, _ int) ([]string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, key)
	g.mu.Unlock()

	res := <-g.gate(key)
	return res.rows, res.err
}

func TestLoad_LastRequestWinsOutOfOrder(t *testing.T) {
	g := newGatedFetch()
	s := New("test", g.fetch, 0, Options[string, int, []string]{})

	var wg sync.WaitGroup
	var errA, errB error

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errA = s.Load(context.Background(), "A", 1)
	}()
	require.Eventually(t, func() bool { return len(callsOf(g)) == 1 }, time.Second, time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errB = s.Load(context.Background(), "B", 2)
	}()
	require.Eventually(t, func() bool { return len(callsOf(g)) == 2 }, time.Second, time.Millisecond)

	// B resolves first, A resolves afterwards.
	g.gate("B") <- gateResult{rows: []string{"b1", "b2"}}
	require.Eventually(t, func() bool { return !s.Busy() }, time.Second, time.Millisecond)
	g.gate("A") <- gateResult{rows: []string{"a1"}}
	wg.Wait()

	require.NoError(t, errB)
	assert.ErrorIs(t, errA, ErrSuperseded)

	st := s.Snapshot()
	assert.Equal(t, "B", st.Key)
	assert.Equal(t, 2, st.Params)
	assert.Equal(t, []string{"b1", "b2"}, st.Result)
}

func TestLoad_SupersededFailureIsIgnored(t *testing.T) {
	g := newGatedFetch()
	s := New("test", g.fetch, 0, Options[string, int, []string]{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), "A", 0)
		done <- err
	}()
	require.Eventually(t, func() bool { return len(callsOf(g)) == 1 }, time.Second, time.Millisecond)

	go s.Load(context.Background(), "B", 0)
	require.Eventually(t, func() bool { return len(callsOf(g)) == 2 }, time.Second, time.Millisecond)

	g.gate("A") <- gateResult{err: errors.New("backend exploded")}
	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.NoError(t, s.Snapshot().Err, "a superseded failure must not surface")

	g.gate("B") <- gateResult{rows: []string{"b"}}
	require.Eventually(t, func() bool { return s.Snapshot().HasResult }, time.Second, time.Millisecond)
}

func TestLoad_FailureKeepsPreviousRows(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, key string, _ struct{}) ([]string, error) {
		calls++
		if key == "bad" {
			return nil, errors.New("no such function")
		}
		return []string{key}, nil
	}
	s := New("test", fetch, struct{}{}, Options[string, struct{}, []string]{})

	_, err := s.Load(context.Background(), "good", struct{}{})
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "bad", struct{}{})
	require.Error(t, err)

	st := s.Snapshot()
	assert.Equal(t, "good", st.Key)
	assert.Equal(t, []string{"good"}, st.Result)
	assert.EqualError(t, st.Err, "no such function")
	assert.False(t, st.Busy)
}

func TestClear_DiscardsInFlightResponse(t *testing.T) {
	g := newGatedFetch()
	s := New("test", g.fetch, 0, Options[string, int, []string]{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), "A", 0)
		done <- err
	}()
	require.Eventually(t, func() bool { return len(callsOf(g)) == 1 }, time.Second, time.Millisecond)

	s.Clear()
	g.gate("A") <- gateResult{rows: []string{"late"}}

	assert.ErrorIs(t, <-done, ErrSuperseded)
	st := s.Snapshot()
	assert.False(t, st.HasKey)
	assert.False(t, st.HasResult)
	assert.Len(t, callsOf(g), 1, "clear must not fire a request")
}

func TestLoad_CancelledResponseIsDiscarded(t *testing.T) {
	g := newGatedFetch()
	s := New("test", g.fetch, 0, Options[string, int, []string]{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Load(ctx, "A", 0)
		done <- err
	}()
	require.Eventually(t, func() bool { return len(callsOf(g)) == 1 }, time.Second, time.Millisecond)

	cancel()
	g.gate("A") <- gateResult{rows: []string{"late"}}

	assert.ErrorIs(t, <-done, ErrSuperseded)
	st := s.Snapshot()
	assert.False(t, st.HasResult)
	assert.False(t, st.Busy)
	assert.NoError(t, st.Err)
}

func TestRefresh_NoRootIsNoop(t *testing.T) {
	called := false
	fetch := func(ctx context.Context, key string, _ int) (int, error) {
		called = true
		return 1, nil
	}
	s := New("test", fetch, 3, Options[string, int, int]{})

	_, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRefresh_ReusesRootAndParams(t *testing.T) {
	var gotKey string
	var gotParams int
	fetch := func(ctx context.Context, key string, p int) (int, error) {
		gotKey, gotParams = key, p
		return p, nil
	}
	s := New("test", fetch, 0, Options[string, int, int]{})

	_, err := s.Load(context.Background(), "root", 5)
	require.NoError(t, err)
	s.SetParams(7)

	_, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "root", gotKey)
	assert.Equal(t, 7, gotParams)
}

func TestOnChange_NotifiedOnLoadAndClear(t *testing.T) {
	fetch := func(ctx context.Context, key string, _ int) (int, error) { return 1, nil }
	s := New("test", fetch, 0, Options[string, int, int]{})

	var mu sync.Mutex
	count := 0
	s.OnChange(func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	_, _ = s.Load(context.Background(), "k", 0)
	s.Clear()

	mu.Lock()
	defer mu.Unlock()
	// busy, applied, cleared
	assert.Equal(t, 3, count)
}

func callsOf(g *gatedFetch) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}
