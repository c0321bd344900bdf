// Package slice implements the fetch/cache/cancel unit shared by every
// analytical data source of the explorer.
//
// A Slice owns the rows of its last successful fetch together with the key
// (root) and parameters that produced them. At most one request per slice is
// authoritative: starting a new Load cancels the previous one, and a response
// whose request has been superseded is discarded even when it resolves later.
package slice

import (
	"context"
	"errors"
	"sync"

	"github.com/ritzau/cpg-explorer/pkg/logging"
)

// ErrSuperseded is returned to the caller of a Load whose request was
// replaced by a newer Load or Clear before it resolved.
var ErrSuperseded = errors.New("request superseded")

// IsCancellation reports whether err means "this result no longer matters"
// rather than a failure worth surfacing.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrSuperseded) || errors.Is(err, context.Canceled)
}

// FetchFunc performs the backend read for key with params.
type FetchFunc[K comparable, P any, R any] func(ctx context.Context, key K, params P) (R, error)

// State is a snapshot of a slice.
type State[K comparable, P any, R any] struct {
	Key       K
	HasKey    bool
	Params    P
	Result    R
	HasResult bool
	Truncated bool
	Busy      bool
	Err       error
}

// Options customise how a fetched result is folded into the slice.
type Options[K comparable, P any, R any] struct {
	// Clamp bounds parameters before they are sent or stored.
	Clamp func(P) P
	// Normalize derives the stored key and parameters from a response, for
	// backends that echo the effective values they used.
	Normalize func(key K, params P, result R) (K, P)
	// Truncated reports whether the result hit a server-side cap.
	Truncated func(params P, result R) bool
}

// Slice is one independently fetched and cached unit of analytical state.
type Slice[K comparable, P any, R any] struct {
	name  string
	fetch FetchFunc[K, P, R]
	opts  Options[K, P, R]

	mu        sync.Mutex
	token     uint64
	cancel    context.CancelFunc
	state     State[K, P, R]
	listeners []func()
}

// New creates an empty slice. initial is clamped and becomes the parameter
// set used by Refresh until a Load replaces it.
func New[K comparable, P any, R any](name string, fetch FetchFunc[K, P, R], initial P, opts Options[K, P, R]) *Slice[K, P, R] {
	s := &Slice[K, P, R]{
		name:  name,
		fetch: fetch,
		opts:  opts,
	}
	s.state.Params = s.clamp(initial)
	return s
}

// Name identifies the slice in logs.
func (s *Slice[K, P, R]) Name() string {
	return s.name
}

func (s *Slice[K, P, R]) clamp(p P) P {
	if s.opts.Clamp == nil {
		return p
	}
	return s.opts.Clamp(p)
}

// OnChange registers fn to run after every state mutation. fn runs outside
// the slice lock.
func (s *Slice[K, P, R]) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Slice[K, P, R]) notify() {
	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Snapshot returns a copy of the current state.
func (s *Slice[K, P, R]) Snapshot() State[K, P, R] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Params returns the parameters the next Refresh would use.
func (s *Slice[K, P, R]) Params() P {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Params
}

// SetParams stores clamped parameters without fetching.
func (s *Slice[K, P, R]) SetParams(p P) P {
	s.mu.Lock()
	s.state.Params = s.clamp(p)
	clamped := s.state.Params
	s.mu.Unlock()

	s.notify()
	return clamped
}

// Key returns the current root key, if any.
func (s *Slice[K, P, R]) Key() (K, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Key, s.state.HasKey
}

// Busy reports whether an authoritative request is in flight.
func (s *Slice[K, P, R]) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Busy
}

// begin supersedes any in-flight request and returns the new token.
func (s *Slice[K, P, R]) begin(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		logging.Trace("slice request superseded", "slice", s.name, "token", s.token)
	}
	s.token++
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state.Busy = true
	return reqCtx, s.token
}

// Load cancels any in-flight request, fetches key with params and, if this
// request is still the authoritative one when it resolves, replaces the
// slice contents. On failure the previous rows are kept. A superseded
// request returns ErrSuperseded and leaves the state untouched.
func (s *Slice[K, P, R]) Load(ctx context.Context, key K, params P) (R, error) {
	params = s.clamp(params)
	reqCtx, token := s.begin(ctx)
	s.notify()

	logging.Debug("slice load", "slice", s.name, "key", key, "token", token)
	result, err := s.fetch(reqCtx, key, params)

	var zero R
	s.mu.Lock()
	if token != s.token {
		s.mu.Unlock()
		logging.Trace("discarding stale response", "slice", s.name, "token", token)
		return zero, ErrSuperseded
	}
	s.cancel()
	s.cancel = nil
	s.state.Busy = false

	// A cancelled request never applies, even when the fetch ignored ctx.
	if reqCtx.Err() != nil {
		s.mu.Unlock()
		logging.Trace("discarding cancelled response", "slice", s.name, "token", token)
		s.notify()
		return zero, ErrSuperseded
	}

	if err != nil {
		if IsCancellation(err) {
			s.mu.Unlock()
			s.notify()
			return zero, err
		}
		s.state.Err = err
		s.mu.Unlock()
		s.notify()
		return zero, err
	}

	storedKey, storedParams := key, params
	if s.opts.Normalize != nil {
		storedKey, storedParams = s.opts.Normalize(key, params, result)
		storedParams = s.clamp(storedParams)
	}
	s.state.Key = storedKey
	s.state.HasKey = true
	s.state.Params = storedParams
	s.state.Result = result
	s.state.HasResult = true
	s.state.Truncated = s.opts.Truncated != nil && s.opts.Truncated(params, result)
	s.state.Err = nil
	s.mu.Unlock()

	s.notify()
	return result, nil
}

// Refresh re-issues Load with the current key and parameters. It is a no-op
// returning the zero result when no key is set.
func (s *Slice[K, P, R]) Refresh(ctx context.Context) (R, error) {
	s.mu.Lock()
	key, hasKey, params := s.state.Key, s.state.HasKey, s.state.Params
	s.mu.Unlock()

	if !hasKey {
		var zero R
		return zero, nil
	}
	return s.Load(ctx, key, params)
}

// Clear empties the slice and supersedes any in-flight request without
// issuing a new one. Parameters are kept.
func (s *Slice[K, P, R]) Clear() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.token++
	s.state = State[K, P, R]{Params: s.state.Params}
	s.mu.Unlock()

	s.notify()
}

// Seed installs rows obtained outside Load (e.g. by a sibling lookup) as if
// they had been fetched for key. Any in-flight request is superseded.
func (s *Slice[K, P, R]) Seed(key K, result R) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.token++
	s.state.Key = key
	s.state.HasKey = true
	s.state.Result = result
	s.state.HasResult = true
	s.state.Busy = false
	s.state.Err = nil
	s.mu.Unlock()

	s.notify()
}
