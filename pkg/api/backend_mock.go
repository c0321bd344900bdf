package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// MockBackend is an in-memory Backend for testing. Lookups of unknown keys
// fail with a 404 APIError. A method listed in Errors fails with that
// error. A key listed in Gates blocks until its channel is closed or the
// request context ends.
type MockBackend struct {
	PackageGraph     *PackageGraph
	Queries          []QueryDescriptor
	CallGraphs       map[string]*CallGraphResponse
	Dataflows        map[string]*DataflowResponse
	Details          map[string]*FunctionDetail
	PackageFunctions map[string][]PackageFunction
	Hotspots         []HotspotRow
	Impacts          map[string][]ImpactRow
	Sources          map[string]*SourceFile
	Outlines         map[string][]OutlineRow
	Xrefs            map[string][]XrefRow
	Symbols          []Symbol
	Interfaces       []TypeInterfaceRow
	Methods          map[string][]TypeMethodRow
	Hierarchies      map[string][]TypeHierarchyRow
	QueryResults     map[string]*QueryResult

	Errors map[string]error
	Gates  map[string]chan struct{}

	mu    sync.Mutex
	calls []string
}

var _ Backend = (*MockBackend)(nil)

// Calls returns the issued requests as "Method:key", in order.
func (m *MockBackend) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount counts the issued requests equal to call.
func (m *MockBackend) CallCount(call string) int {
	n := 0
	for _, c := range m.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (m *MockBackend) enter(ctx context.Context, method, key string) error {
	call := method + ":" + key
	m.mu.Lock()
	m.calls = append(m.calls, call)
	gate := m.Gates[call]
	err := m.Errors[method]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func notFound(endpoint, key string) error {
	return &APIError{Status: http.StatusNotFound, Endpoint: endpoint, Message: fmt.Sprintf("%s not found", key)}
}

func lookup[T any](m *MockBackend, table map[string]T, endpoint, key string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := table[key]
	if !ok {
		var zero T
		return zero, notFound(endpoint, key)
	}
	return v, nil
}

func (m *MockBackend) GetPackageGraph(ctx context.Context) (*PackageGraph, error) {
	if err := m.enter(ctx, "GetPackageGraph", ""); err != nil {
		return nil, err
	}
	if m.PackageGraph == nil {
		return &PackageGraph{}, nil
	}
	return m.PackageGraph, nil
}

func (m *MockBackend) GetNeighborhood(ctx context.Context, functionID string) (*NeighborhoodResponse, error) {
	if err := m.enter(ctx, "GetNeighborhood", functionID); err != nil {
		return nil, err
	}
	return &NeighborhoodResponse{}, nil
}

func (m *MockBackend) GetCallGraph(ctx context.Context, functionID string, _ CallDirection, _, _ int) (*CallGraphResponse, error) {
	if err := m.enter(ctx, "GetCallGraph", functionID); err != nil {
		return nil, err
	}
	return lookup(m, m.CallGraphs, "/graph/call", functionID)
}

func (m *MockBackend) GetDataflowSlice(ctx context.Context, nodeID string, _ DataflowDirection, _ int) (*DataflowResponse, error) {
	if err := m.enter(ctx, "GetDataflowSlice", nodeID); err != nil {
		return nil, err
	}
	return lookup(m, m.Dataflows, "/graph/dataflow", nodeID)
}

func (m *MockBackend) GetFunctionsByPackage(ctx context.Context, pkg string) ([]PackageFunction, error) {
	if err := m.enter(ctx, "GetFunctionsByPackage", pkg); err != nil {
		return nil, err
	}
	return lookup(m, m.PackageFunctions, "/functions", pkg)
}

func (m *MockBackend) GetFunctionDetail(ctx context.Context, functionID string) (*FunctionDetail, error) {
	if err := m.enter(ctx, "GetFunctionDetail", functionID); err != nil {
		return nil, err
	}
	return lookup(m, m.Details, "/function", functionID)
}

func (m *MockBackend) GetHotspots(ctx context.Context, limit int) ([]HotspotRow, error) {
	if err := m.enter(ctx, "GetHotspots", fmt.Sprint(limit)); err != nil {
		return nil, err
	}
	return m.Hotspots[:min(limit, len(m.Hotspots))], nil
}

func (m *MockBackend) GetImpact(ctx context.Context, functionID string, _, limit int) ([]ImpactRow, error) {
	if err := m.enter(ctx, "GetImpact", functionID); err != nil {
		return nil, err
	}
	rows, err := lookup(m, m.Impacts, "/impact", functionID)
	return rows[:min(limit, len(rows))], err
}

func (m *MockBackend) GetSource(ctx context.Context, file string) (*SourceFile, error) {
	if err := m.enter(ctx, "GetSource", file); err != nil {
		return nil, err
	}
	return lookup(m, m.Sources, "/source", file)
}

func (m *MockBackend) GetXrefs(ctx context.Context, defID string, limit int) ([]XrefRow, error) {
	if err := m.enter(ctx, "GetXrefs", defID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.Xrefs[defID]
	return rows[:min(limit, len(rows))], nil
}

func (m *MockBackend) GetFileOutline(ctx context.Context, file string, limit int) ([]OutlineRow, error) {
	if err := m.enter(ctx, "GetFileOutline", file); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.Outlines[file]
	return rows[:min(limit, len(rows))], nil
}

func (m *MockBackend) GetSymbols(ctx context.Context, query string, opts SymbolQuery) ([]Symbol, error) {
	if err := m.enter(ctx, "GetSymbols", query); err != nil {
		return nil, err
	}
	var out []Symbol
	for _, s := range m.Symbols {
		if opts.Kind != "" && s.Kind != opts.Kind {
			continue
		}
		if opts.Package != "" && s.Package != opts.Package {
			continue
		}
		out = append(out, s)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MockBackend) GetTypeInterfaces(ctx context.Context, name string, limit int) ([]TypeInterfaceRow, error) {
	if err := m.enter(ctx, "GetTypeInterfaces", name); err != nil {
		return nil, err
	}
	return m.Interfaces[:min(limit, len(m.Interfaces))], nil
}

func (m *MockBackend) GetTypeMethods(ctx context.Context, name string, limit int) ([]TypeMethodRow, error) {
	if err := m.enter(ctx, "GetTypeMethods", name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.Methods[name]
	return rows[:min(limit, len(rows))], nil
}

func (m *MockBackend) GetTypeHierarchy(ctx context.Context, name string, limit int) ([]TypeHierarchyRow, error) {
	if err := m.enter(ctx, "GetTypeHierarchy", name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.Hierarchies[name]
	return rows[:min(limit, len(rows))], nil
}

func (m *MockBackend) GetQueries(ctx context.Context) ([]QueryDescriptor, error) {
	if err := m.enter(ctx, "GetQueries", ""); err != nil {
		return nil, err
	}
	return m.Queries, nil
}

func (m *MockBackend) GetQueryByName(ctx context.Context, name string, _ Params) (*QueryResult, error) {
	if err := m.enter(ctx, "GetQueryByName", name); err != nil {
		return nil, err
	}
	return lookup(m, m.QueryResults, "/query", name)
}

// SetError makes method fail with err; a nil err clears it.
func (m *MockBackend) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Errors == nil {
		m.Errors = make(map[string]error)
	}
	if err == nil {
		delete(m.Errors, method)
		return
	}
	m.Errors[method] = err
}

// Gate makes the request "method:key" block until the returned channel is
// closed.
func (m *MockBackend) Gate(method, key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Gates == nil {
		m.Gates = make(map[string]chan struct{})
	}
	ch := make(chan struct{})
	m.Gates[method+":"+key] = ch
	return ch
}
