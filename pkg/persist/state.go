// Package persist mirrors session settings into durable storage and the
// navigable URL, and seeds a new session from them.
package persist

import (
	"encoding/json"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/logging"
	"github.com/ritzau/cpg-explorer/pkg/search"
	"github.com/ritzau/cpg-explorer/pkg/slice"
	"github.com/ritzau/cpg-explorer/pkg/viewmodel"
)

// StorageKey is the key the state blob is stored under.
const StorageKey = "cpg.ide.state.v2"

// State is the persisted subset of a session.
type State struct {
	ViewMode viewmodel.ViewMode `json:"viewMode"`
	viewmodel.PackageFilters

	CallDirection     api.CallDirection     `json:"callDirection"`
	CallMaxDepth      int                   `json:"callMaxDepth"`
	CallMaxNodes      int                   `json:"callMaxNodes"`
	DataflowDirection api.DataflowDirection `json:"dataflowDirection"`
	DataflowMaxDepth  int                   `json:"dataflowMaxDepth"`

	search.Filters
}

// Defaults is the state of a session with nothing stored.
func Defaults() State {
	call := slice.DefaultCallParams()
	df := slice.DefaultDataflowParams()
	return State{
		ViewMode:          viewmodel.ViewPackages,
		PackageFilters:    viewmodel.DefaultPackageFilters(),
		CallDirection:     call.Direction,
		CallMaxDepth:      call.MaxDepth,
		CallMaxNodes:      call.MaxNodes,
		DataflowDirection: df.Direction,
		DataflowMaxDepth:  df.MaxDepth,
	}
}

// Clamp bounds every knob and replaces an unknown view with packages.
func (s State) Clamp() State {
	if _, ok := viewmodel.ParseViewMode(string(s.ViewMode)); !ok {
		s.ViewMode = viewmodel.ViewPackages
	}
	s.PackageFilters = s.PackageFilters.Clamp()
	s = s.WithCallParams(s.CallParams())
	s = s.WithDataflowParams(s.DataflowParams())
	return s
}

func (s State) CallParams() slice.CallParams {
	return slice.CallParams{Direction: s.CallDirection, MaxDepth: s.CallMaxDepth, MaxNodes: s.CallMaxNodes}.Clamp()
}

func (s State) WithCallParams(p slice.CallParams) State {
	p = p.Clamp()
	s.CallDirection, s.CallMaxDepth, s.CallMaxNodes = p.Direction, p.MaxDepth, p.MaxNodes
	return s
}

func (s State) DataflowParams() slice.DataflowParams {
	return slice.DataflowParams{Direction: s.DataflowDirection, MaxDepth: s.DataflowMaxDepth}.Clamp()
}

func (s State) WithDataflowParams(p slice.DataflowParams) State {
	p = p.Clamp()
	s.DataflowDirection, s.DataflowMaxDepth = p.Direction, p.MaxDepth
	return s
}

// Decode overlays the fields present in blob onto defaults. A malformed
// blob yields the defaults unchanged.
func Decode(blob []byte, defaults State) State {
	if len(blob) == 0 {
		return defaults
	}
	st := defaults
	if err := json.Unmarshal(blob, &st); err != nil {
		logging.Warn("ignoring malformed persisted state", "error", err)
		return defaults
	}
	return st
}

// Encode serializes s.
func Encode(s State) ([]byte, error) {
	return json.Marshal(s)
}
