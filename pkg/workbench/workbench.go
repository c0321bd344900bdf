// Package workbench runs named analytical queries from the backend catalog
// and classifies their free-form rows for graphing.
package workbench

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/slice"
)

const (
	LimitMin     = 50
	LimitMax     = 2500
	LimitDefault = 500
)

// ErrNoQuery is returned by Run when no query is selected.
var ErrNoQuery = errors.New("no query selected")

// Request is a query invocation: the parsed key/value parameters and the
// row limit.
type Request struct {
	Params map[string]string `json:"params"`
	Limit  int               `json:"limit"`
}

func (r Request) clamp() Request {
	r.Limit = slice.Clamp(r.Limit, LimitMin, LimitMax)
	return r
}

// View is a snapshot of the workbench for presentation.
type View struct {
	Queries   []api.QueryDescriptor `json:"queries"`
	Selected  string                `json:"selected"`
	ParamText string                `json:"paramText"`
	Limit     int                   `json:"limit"`
	Result    *api.QueryResult      `json:"result,omitempty"`
	Busy      bool                  `json:"busy"`
}

// Workbench owns the catalog, the query selection and the last result.
type Workbench struct {
	result *slice.Slice[string, Request, *api.QueryResult]

	mu        sync.Mutex
	catalog   []api.QueryDescriptor
	selected  string
	paramText string
	limit     int
}

func New(b api.WorkbenchAPI) *Workbench {
	fetch := func(ctx context.Context, name string, req Request) (*api.QueryResult, error) {
		params := api.Params{"limit": req.Limit}
		for k, v := range req.Params {
			if k == "limit" {
				continue
			}
			params[k] = v
		}
		return b.GetQueryByName(ctx, name, params)
	}
	return &Workbench{
		result: slice.New("workbench", fetch, Request{Limit: LimitDefault}, slice.Options[string, Request, *api.QueryResult]{
			Clamp: Request.clamp,
		}),
		limit: LimitDefault,
	}
}

func (w *Workbench) OnChange(fn func()) {
	w.result.OnChange(fn)
}

// SetCatalog installs the query catalog. The first query is selected when
// nothing is selected yet.
func (w *Workbench) SetCatalog(queries []api.QueryDescriptor) {
	w.mu.Lock()
	w.catalog = queries
	if w.selected == "" && len(queries) > 0 {
		w.selected = queries[0].Name
	}
	w.mu.Unlock()
}

func (w *Workbench) Catalog() []api.QueryDescriptor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.catalog
}

func (w *Workbench) Select(name string) {
	w.mu.Lock()
	w.selected = name
	w.mu.Unlock()
}

func (w *Workbench) Selected() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected
}

// SetParamText sets the raw key=value parameter text.
func (w *Workbench) SetParamText(text string) {
	w.mu.Lock()
	w.paramText = text
	w.mu.Unlock()
}

// SetLimit stores the clamped row limit and returns it.
func (w *Workbench) SetLimit(limit int) int {
	limit = slice.Clamp(limit, LimitMin, LimitMax)
	w.mu.Lock()
	w.limit = limit
	w.mu.Unlock()
	return limit
}

func (w *Workbench) Limit() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.limit
}

// Run executes the selected query with the current parameters.
func (w *Workbench) Run(ctx context.Context) (*api.QueryResult, error) {
	w.mu.Lock()
	name := w.selected
	req := Request{Params: ParseKV(w.paramText), Limit: w.limit}
	w.mu.Unlock()

	if name == "" {
		return nil, ErrNoQuery
	}
	return w.result.Load(ctx, name, req)
}

// Result returns the last applied result, or nil.
func (w *Workbench) Result() *api.QueryResult {
	return w.result.Snapshot().Result
}

// HasResult reports whether any query has completed.
func (w *Workbench) HasResult() bool {
	return w.result.Snapshot().HasResult
}

func (w *Workbench) Busy() bool {
	return w.result.Busy()
}

func (w *Workbench) View() View {
	w.mu.Lock()
	v := View{
		Queries:   w.catalog,
		Selected:  w.selected,
		ParamText: w.paramText,
		Limit:     w.limit,
	}
	w.mu.Unlock()
	v.Result = w.Result()
	v.Busy = w.Busy()
	return v
}

// ParseKV parses "key=value" pairs separated by commas or newlines. Pairs
// without a key or value are skipped; later keys win.
func ParseKV(raw string) map[string]string {
	out := make(map[string]string)
	chunks := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' })
	for _, chunk := range chunks {
		key, value, ok := strings.Cut(strings.TrimSpace(chunk), "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
