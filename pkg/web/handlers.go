package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/search"
	"github.com/ritzau/cpg-explorer/pkg/session"
	"github.com/ritzau/cpg-explorer/pkg/slice"
	"github.com/ritzau/cpg-explorer/pkg/viewmodel"
)

// Request bodies of the action routes.
type (
	idRequest struct {
		ID string `json:"id"`
	}
	openCallsRequest struct {
		ID     string            `json:"id"`
		Params *slice.CallParams `json:"params,omitempty"`
	}
	openDataflowRequest struct {
		ID        string                `json:"id"`
		Direction api.DataflowDirection `json:"direction,omitempty"`
	}
	packageRequest struct {
		Package string `json:"package"`
	}
	textRequest struct {
		Text string `json:"text"`
	}
	nameRequest struct {
		Name string `json:"name"`
	}
	numberRequest struct {
		Value int `json:"value"`
	}
	flagRequest struct {
		On bool `json:"on"`
	}
	sourceRequest struct {
		File   string `json:"file"`
		Lines  []int  `json:"lines"`
		Active int    `json:"active"`
	}
	lineRequest struct {
		Line int `json:"line"`
	}
	sizeRequest struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
)

func (s *Server) bootstrap(ctx context.Context, r *http.Request) error {
	return s.session.Bootstrap(ctx)
}

func (s *Server) switchView(ctx context.Context, r *http.Request) error {
	mode, ok := viewmodel.ParseViewMode(mux.Vars(r)["mode"])
	if !ok {
		return &badRequest{fmt.Errorf("unknown view %q", mux.Vars(r)["mode"])}
	}
	return s.session.SwitchView(ctx, mode)
}

func (s *Server) setTab(ctx context.Context, r *http.Request) error {
	tab := session.SidebarTab(mux.Vars(r)["tab"])
	if tab != session.TabDetail && tab != session.TabSource {
		return &badRequest{fmt.Errorf("unknown tab %q", tab)}
	}
	s.session.SetSidebarTab(tab)
	return nil
}

func (s *Server) dismissError(ctx context.Context, r *http.Request) error {
	s.session.DismissError()
	return nil
}

func (s *Server) openPackage(ctx context.Context, r *http.Request) error {
	req, err := decode[packageRequest](r)
	if err != nil {
		return err
	}
	if err := required("package", req.Package); err != nil {
		return err
	}
	return s.session.OpenPackage(ctx, req.Package)
}

func (s *Server) setPackageFilters(ctx context.Context, r *http.Request) error {
	f, err := overlay(r, s.session.PackageFilters())
	if err != nil {
		return err
	}
	s.session.SetPackageFilters(f)
	return nil
}

func (s *Server) openCallGraph(ctx context.Context, r *http.Request) error {
	req, err := decode[openCallsRequest](r)
	if err != nil {
		return err
	}
	if err := required("id", req.ID); err != nil {
		return err
	}
	return s.session.OpenCallGraph(ctx, req.ID, req.Params)
}

func (s *Server) refreshCallGraph(ctx context.Context, r *http.Request) error {
	return s.session.RefreshCallGraph(ctx)
}

func (s *Server) setCallParams(ctx context.Context, r *http.Request) error {
	p, err := overlay(r, s.session.CallParams())
	if err != nil {
		return err
	}
	s.session.SetCallParams(p)
	return nil
}

func (s *Server) openDataflow(ctx context.Context, r *http.Request) error {
	req, err := decode[openDataflowRequest](r)
	if err != nil {
		return err
	}
	if err := required("id", req.ID); err != nil {
		return err
	}
	return s.session.OpenDataflow(ctx, req.ID, req.Direction)
}

func (s *Server) refreshDataflow(ctx context.Context, r *http.Request) error {
	return s.session.RefreshDataflow(ctx)
}

func (s *Server) setDataflowParams(ctx context.Context, r *http.Request) error {
	p, err := overlay(r, s.session.DataflowParams())
	if err != nil {
		return err
	}
	s.session.SetDataflowParams(p)
	return nil
}

func (s *Server) runImpact(ctx context.Context, r *http.Request) error {
	req, err := decode[idRequest](r)
	if err != nil {
		return err
	}
	if err := required("id", req.ID); err != nil {
		return err
	}
	return s.session.RunImpact(ctx, req.ID)
}

func (s *Server) setImpactDepth(ctx context.Context, r *http.Request) error {
	req, err := decode[numberRequest](r)
	if err != nil {
		return err
	}
	s.session.SetImpactDepth(req.Value)
	return nil
}

func (s *Server) setSearchQuery(ctx context.Context, r *http.Request) error {
	req, err := decode[textRequest](r)
	if err != nil {
		return err
	}
	s.session.SetSearchQuery(req.Text)
	return nil
}

func (s *Server) setSearchFilters(ctx context.Context, r *http.Request) error {
	f, err := decode[search.Filters](r)
	if err != nil {
		return err
	}
	s.session.SetSearchFilters(f)
	return nil
}

func (s *Server) runSearch(ctx context.Context, r *http.Request) error {
	s.session.RunSearchNow()
	return nil
}

func (s *Server) setTypeQuery(ctx context.Context, r *http.Request) error {
	req, err := decode[textRequest](r)
	if err != nil {
		return err
	}
	s.session.SetTypeQuery(req.Text)
	return nil
}

func (s *Server) refreshTypes(ctx context.Context, r *http.Request) error {
	s.session.RefreshTypeQuery()
	return nil
}

func (s *Server) selectType(ctx context.Context, r *http.Request) error {
	req, err := decode[nameRequest](r)
	if err != nil {
		return err
	}
	return s.session.SelectType(ctx, req.Name)
}

func (s *Server) selectQuery(ctx context.Context, r *http.Request) error {
	req, err := decode[nameRequest](r)
	if err != nil {
		return err
	}
	s.session.SelectQuery(req.Name)
	return nil
}

func (s *Server) setQueryParams(ctx context.Context, r *http.Request) error {
	req, err := decode[textRequest](r)
	if err != nil {
		return err
	}
	s.session.SetQueryParamText(req.Text)
	return nil
}

func (s *Server) setQueryLimit(ctx context.Context, r *http.Request) error {
	req, err := decode[numberRequest](r)
	if err != nil {
		return err
	}
	s.session.SetQueryLimit(req.Value)
	return nil
}

func (s *Server) runWorkbench(ctx context.Context, r *http.Request) error {
	return s.session.RunWorkbench(ctx)
}

func (s *Server) openSource(ctx context.Context, r *http.Request) error {
	req, err := decode[sourceRequest](r)
	if err != nil {
		return err
	}
	if err := required("file", req.File); err != nil {
		return err
	}
	return s.session.OpenSource(ctx, req.File, req.Lines, req.Active)
}

func (s *Server) goFromSourceLine(ctx context.Context, r *http.Request) error {
	req, err := decode[lineRequest](r)
	if err != nil {
		return err
	}
	return s.session.GoFromSourceLine(ctx, req.Line)
}

func (s *Server) clickNode(ctx context.Context, r *http.Request) error {
	req, err := decode[idRequest](r)
	if err != nil {
		return err
	}
	return s.session.ClickNode(ctx, req.ID)
}

func (s *Server) clickSymbol(ctx context.Context, r *http.Request) error {
	sym, err := decode[api.Symbol](r)
	if err != nil {
		return err
	}
	if err := required("id", sym.ID); err != nil {
		return err
	}
	return s.session.ClickSymbol(ctx, sym)
}

func (s *Server) clickDataflowNode(ctx context.Context, r *http.Request) error {
	req, err := decode[idRequest](r)
	if err != nil {
		return err
	}
	return s.session.OpenDataflowNode(ctx, req.ID)
}

func (s *Server) hover(ctx context.Context, r *http.Request) error {
	req, err := decode[idRequest](r)
	if err != nil {
		return err
	}
	s.session.SetHover(req.ID)
	return nil
}

func (s *Server) hoverLabels(ctx context.Context, r *http.Request) error {
	req, err := decode[flagRequest](r)
	if err != nil {
		return err
	}
	s.session.SetHoverLabelsOnly(req.On)
	return nil
}

func (s *Server) resize(ctx context.Context, r *http.Request) error {
	req, err := decode[sizeRequest](r)
	if err != nil {
		return err
	}
	s.session.Resize(req.Width, req.Height)
	return nil
}

func (s *Server) settled(ctx context.Context, r *http.Request) error {
	s.session.LayoutSettled()
	return nil
}

func (s *Server) resetView(ctx context.Context, r *http.Request) error {
	s.session.ResetView()
	return nil
}
