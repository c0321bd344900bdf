package session

// Bounds of the call seed list offered by the empty calls view.
const (
	seedHotspots  = 18
	seedPackage   = 24
	seedListLimit = 42
)

// SeedFunction is a candidate root for a call graph.
type SeedFunction struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Package string `json:"package,omitempty"`
}

// seedCandidate picks a call-graph root in priority order: the function in
// detail, the first function of the inspected package, the first function
// symbol of the search results, the first loaded hotspot.
func (s *Session) seedCandidate() (string, bool) {
	if d := s.detail.Snapshot().Result; d != nil && d.FunctionID != "" {
		return d.FunctionID, true
	}
	if fns := s.pkgFuncs.Snapshot().Result; len(fns) > 0 && fns[0].FunctionID != "" {
		return fns[0].FunctionID, true
	}
	if sym, ok := s.search.FirstFunction(); ok {
		return sym.ID, true
	}
	if rows := s.hotspots.Snapshot().Result; len(rows) > 0 && rows[0].FunctionID != "" {
		return rows[0].FunctionID, true
	}
	return "", false
}

// CallSeedFunctions lists distinct seed candidates: the detail function,
// leading hotspots, leading package functions and function symbols. A
// later source replaces the entry of an id already listed but keeps its
// position.
func (s *Session) CallSeedFunctions() []SeedFunction {
	var (
		order []string
		byID  = make(map[string]SeedFunction)
	)
	put := func(f SeedFunction) {
		if f.ID == "" {
			return
		}
		if _, ok := byID[f.ID]; !ok {
			order = append(order, f.ID)
		}
		byID[f.ID] = f
	}

	if d := s.detail.Snapshot().Result; d != nil {
		put(SeedFunction{ID: d.FunctionID, Name: d.Name, Package: d.Package})
	}
	hotspots := s.hotspots.Snapshot().Result
	for _, r := range hotspots[:min(len(hotspots), seedHotspots)] {
		put(SeedFunction{ID: r.FunctionID, Name: r.Name, Package: r.Package})
	}
	fns := s.pkgFuncs.Snapshot().Result
	for _, f := range fns[:min(len(fns), seedPackage)] {
		put(SeedFunction{ID: f.FunctionID, Name: f.Name})
	}
	for _, sym := range s.search.Results() {
		if sym.Kind != "function" {
			continue
		}
		put(SeedFunction{ID: sym.ID, Name: sym.Name, Package: sym.Package})
		if len(order) >= seedListLimit {
			break
		}
	}

	order = order[:min(len(order), seedListLimit)]
	out := make([]SeedFunction, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}
