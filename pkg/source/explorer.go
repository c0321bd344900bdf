// Package source implements the source explorer: file text and outline for
// the sidebar, the highlighted and active lines, and cross-reference lookups
// for declarations clicked in the source view.
package source

import (
	"context"
	"strings"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/slice"
)

// XrefLimit caps the number of cross-references requested per declaration.
const XrefLimit = 300

// Focus is the highlight state of the open document.
type Focus struct {
	Lines  []int `json:"lines"`
	Active int   `json:"active,omitempty"` // 0 means no active line
}

// View is a snapshot of the explorer for presentation.
type View struct {
	Document  *Document     `json:"document,omitempty"`
	Highlight []int         `json:"highlight"`
	Active    int           `json:"active,omitempty"`
	Xrefs     []api.XrefRow `json:"xrefs"`
	Busy      bool          `json:"busy"`
}

// Explorer owns the currently open document and the last xref lookup.
type Explorer struct {
	cache *Cache
	doc   *slice.Slice[string, Focus, *Document]
	xrefs *slice.Slice[string, int, []api.XrefRow]
}

// NewExplorer creates an explorer that reads documents through cache.
func NewExplorer(cache *Cache, backend api.SourceAPI) *Explorer {
	fetchDoc := func(ctx context.Context, file string, _ Focus) (*Document, error) {
		return cache.Get(ctx, file)
	}
	fetchXrefs := func(ctx context.Context, defID string, limit int) ([]api.XrefRow, error) {
		return backend.GetXrefs(ctx, defID, limit)
	}
	return &Explorer{
		cache: cache,
		doc: slice.New("source", fetchDoc, Focus{}, slice.Options[string, Focus, *Document]{
			Clamp: func(f Focus) Focus {
				f.Lines = UniquePositiveLines(f.Lines)
				return f
			},
		}),
		xrefs: slice.New("xrefs", fetchXrefs, XrefLimit, slice.Options[string, int, []api.XrefRow]{
			Clamp: func(limit int) int {
				if limit <= 0 {
					return XrefLimit
				}
				return limit
			},
		}),
	}
}

// OnChange registers fn to run whenever the document, highlight or xrefs
// change.
func (e *Explorer) OnChange(fn func()) {
	e.doc.OnChange(fn)
	e.xrefs.OnChange(fn)
}

// Open loads file and, once it is available, highlights lines and focuses
// active. An empty file is ignored. Previous highlights are replaced.
func (e *Explorer) Open(ctx context.Context, file string, lines []int, active int) error {
	if file == "" {
		return nil
	}
	_, err := e.doc.Load(ctx, file, Focus{Lines: lines, Active: active})
	return err
}

// Document returns the open document, or nil.
func (e *Explorer) Document() *Document {
	return e.doc.Snapshot().Result
}

// Focus returns the current highlight set and active line.
func (e *Explorer) Focus() Focus {
	return e.doc.Params()
}

// SetActive moves the active line without touching the highlights.
func (e *Explorer) SetActive(line int) {
	f := e.doc.Params()
	f.Active = line
	e.doc.SetParams(f)
}

// Locate returns the innermost outline entry of the open document whose
// range contains line. Ties keep the earliest entry.
func (e *Explorer) Locate(line int) (api.OutlineRow, bool) {
	doc := e.Document()
	if doc == nil {
		return api.OutlineRow{}, false
	}
	return Innermost(doc.Outline, line)
}

// LoadXrefs fetches the uses of the declaration defID.
func (e *Explorer) LoadXrefs(ctx context.Context, defID string, limit int) ([]api.XrefRow, error) {
	return e.xrefs.Load(ctx, defID, limit)
}

// Xrefs returns the rows of the last applied xref lookup.
func (e *Explorer) Xrefs() []api.XrefRow {
	return e.xrefs.Snapshot().Result
}

// ClearXrefs drops the xref rows and any lookup in flight.
func (e *Explorer) ClearXrefs() {
	e.xrefs.Clear()
}

// MergeReferences adds line and the lines of refs that fall in the open
// document to the highlight set. Nothing changes when no reference is in
// the open document.
func (e *Explorer) MergeReferences(line int, refs []api.XrefRow) {
	doc := e.Document()
	if doc == nil {
		return
	}

	var lines []int
	for _, ref := range refs {
		if ref.UseFile == doc.File {
			lines = append(lines, ref.UseLine)
		}
	}
	if len(lines) == 0 {
		return
	}

	f := e.doc.Params()
	f.Lines = append(append(append([]int{}, f.Lines...), line), lines...)
	e.doc.SetParams(f)
}

// Busy reports whether a document or xref request is in flight.
func (e *Explorer) Busy() bool {
	return e.doc.Busy() || e.xrefs.Busy()
}

// View returns a snapshot for presentation.
func (e *Explorer) View() View {
	st := e.doc.Snapshot()
	return View{
		Document:  st.Result,
		Highlight: st.Params.Lines,
		Active:    st.Params.Active,
		Xrefs:     e.Xrefs(),
		Busy:      e.Busy(),
	}
}

// Clear closes the document and drops highlights and xrefs. Cached
// documents stay cached.
func (e *Explorer) Clear() {
	e.doc.Clear()
	e.doc.SetParams(Focus{})
	e.xrefs.Clear()
}

// Innermost picks, among rows whose [StartLine, EndLine] contains line, the
// one with the smallest span.
func Innermost(rows []api.OutlineRow, line int) (api.OutlineRow, bool) {
	var (
		best  api.OutlineRow
		found bool
	)
	for _, row := range rows {
		if row.StartLine > line || row.EndLine < line {
			continue
		}
		if !found || row.EndLine-row.StartLine < best.EndLine-best.StartLine {
			best = row
			found = true
		}
	}
	return best, found
}

// IsCallable reports whether an outline kind denotes a function or method.
func IsCallable(kind string) bool {
	return strings.Contains(kind, "function") || strings.Contains(kind, "method")
}

// UniquePositiveLines drops non-positive and repeated line numbers, keeping
// first-seen order.
func UniquePositiveLines(lines []int) []int {
	seen := make(map[int]bool, len(lines))
	out := make([]int, 0, len(lines))
	for _, line := range lines {
		if line <= 0 || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	return out
}
