package session

import (
	"context"
	"fmt"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// Bootstrap loads the package graph and the query catalog concurrently.
// Both must succeed for either to be applied. Afterwards a function or
// node deep link from the URL is opened, once per session, whether or not
// bootstrap succeeded.
func (s *Session) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	var (
		pkgGraph *api.PackageGraph
		queries  []api.QueryDescriptor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pkgGraph, err = s.backend.GetPackageGraph(gctx)
		if err != nil {
			return fmt.Errorf("loading package graph: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		queries, err = s.backend.GetQueries(gctx)
		if err != nil {
			return fmt.Errorf("loading query catalog: %w", err)
		}
		return nil
	})
	err := g.Wait()

	if err == nil {
		s.workbench.SetCatalog(queries)
		s.mu.Lock()
		s.packages = pkgGraph
		s.mu.Unlock()
		logging.Info("bootstrap complete", "packages", len(pkgGraph.Nodes), "edges", len(pkgGraph.Edges), "queries", len(queries))
	}

	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()

	if err != nil {
		err = s.fail(err)
	} else {
		s.report(nil)
	}

	if jumpErr := s.initialJump(ctx); err == nil {
		err = jumpErr
	}
	return err
}

// Loading reports whether bootstrap is still running.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// initialJump opens the URL deep link at most once per session.
func (s *Session) initialJump(ctx context.Context) error {
	s.mu.Lock()
	if s.jumped {
		s.mu.Unlock()
		return nil
	}
	s.jumped = true
	s.mu.Unlock()

	switch {
	case s.initial.Function != "":
		logging.Info("opening deep link", "function", s.initial.Function)
		return s.OpenCallGraph(ctx, s.initial.Function, nil)
	case s.initial.Node != "":
		logging.Info("opening deep link", "node", s.initial.Node)
		return s.OpenDataflow(ctx, s.initial.Node, s.dataflow.Params().Direction)
	}
	return nil
}
