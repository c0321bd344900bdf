package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/logging"
	"github.com/ritzau/cpg-explorer/pkg/pubsub"
	"github.com/ritzau/cpg-explorer/pkg/session"
)

// Server is the presentation surface of one session: JSON routes that
// dispatch renderer actions to the session, and SSE topics that push
// snapshots, viewport commands and URL rewrites back.
type Server struct {
	router    *mux.Router
	session   *session.Session
	publisher pubsub.Publisher
}

// NewServer wires sess to publisher: every settled snapshot is published
// on the session topic.
func NewServer(sess *session.Session, publisher pubsub.Publisher) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		session:   sess,
		publisher: publisher,
	}
	sess.Subscribe(func(snap session.Snapshot) {
		if err := publisher.Publish(pubsub.TopicSession, "snapshot", snap); err != nil {
			logging.Debug("could not publish snapshot", "error", err)
		}
	})
	s.setupRoutes()
	return s
}

// Handler returns the routed handler with request-id logging.
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")
	s.router.HandleFunc("/api/session", s.handleSession).Methods("GET")
	s.router.HandleFunc("/api/seeds", s.handleSeeds).Methods("GET")

	actions := s.router.PathPrefix("/api").Methods("POST").Subrouter()
	actions.Handle("/bootstrap", s.action(s.bootstrap))
	actions.Handle("/view/{mode}", s.action(s.switchView))
	actions.Handle("/tab/{tab}", s.action(s.setTab))
	actions.Handle("/error/dismiss", s.action(s.dismissError))

	actions.Handle("/packages/open", s.action(s.openPackage))
	actions.Handle("/packages/filters", s.action(s.setPackageFilters))
	actions.Handle("/calls/open", s.action(s.openCallGraph))
	actions.Handle("/calls/refresh", s.action(s.refreshCallGraph))
	actions.Handle("/calls/params", s.action(s.setCallParams))
	actions.Handle("/dataflow/open", s.action(s.openDataflow))
	actions.Handle("/dataflow/refresh", s.action(s.refreshDataflow))
	actions.Handle("/dataflow/params", s.action(s.setDataflowParams))
	actions.Handle("/impact/run", s.action(s.runImpact))
	actions.Handle("/impact/depth", s.action(s.setImpactDepth))

	actions.Handle("/search/query", s.action(s.setSearchQuery))
	actions.Handle("/search/filters", s.action(s.setSearchFilters))
	actions.Handle("/search/run", s.action(s.runSearch))
	actions.Handle("/types/query", s.action(s.setTypeQuery))
	actions.Handle("/types/refresh", s.action(s.refreshTypes))
	actions.Handle("/types/select", s.action(s.selectType))
	actions.Handle("/workbench/select", s.action(s.selectQuery))
	actions.Handle("/workbench/params", s.action(s.setQueryParams))
	actions.Handle("/workbench/limit", s.action(s.setQueryLimit))
	actions.Handle("/workbench/run", s.action(s.runWorkbench))

	actions.Handle("/source/open", s.action(s.openSource))
	actions.Handle("/source/line", s.action(s.goFromSourceLine))
	actions.Handle("/click/node", s.action(s.clickNode))
	actions.Handle("/click/symbol", s.action(s.clickSymbol))
	actions.Handle("/click/dataflow-node", s.action(s.clickDataflowNode))
	actions.Handle("/hover", s.action(s.hover))
	actions.Handle("/hover/labels", s.action(s.hoverLabels))

	actions.Handle("/viewport/resize", s.action(s.resize))
	actions.Handle("/viewport/settled", s.action(s.settled))
	actions.Handle("/viewport/reset", s.action(s.resetView))
}

var topics = map[string]bool{
	pubsub.TopicSession:  true,
	pubsub.TopicViewport: true,
	pubsub.TopicLocation: true,
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if !topics[topic] {
		http.Error(w, fmt.Sprintf("Unknown topic: %s", topic), http.StatusNotFound)
		return
	}
	pubsub.ServeSSE(w, r, s.publisher, topic)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSeeds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.CallSeedFunctions())
}

// actionFunc performs one renderer action.
type actionFunc func(ctx context.Context, r *http.Request) error

// badRequest marks an error caused by the request itself.
type badRequest struct{ err error }

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

// action runs fn and replies with the resulting snapshot. A failed action
// replies with its error; the session error channel carries it as well.
func (s *Server) action(fn actionFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context(), r); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, s.session.Snapshot())
	})
}

func statusFor(err error) int {
	var bad *badRequest
	var apiErr *api.APIError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decode reads the JSON body of r into a T. An empty body yields the zero
// value.
func decode[T any](r *http.Request) (T, error) {
	var v T
	return overlay(r, v)
}

// overlay decodes the JSON body of r over v, so fields absent from the
// body keep their value in v.
func overlay[T any](r *http.Request, v T) (T, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return v, nil
	}
	err := json.NewDecoder(r.Body).Decode(&v)
	if errors.Is(err, io.EOF) {
		return v, nil
	}
	if err != nil {
		return v, &badRequest{fmt.Errorf("invalid request body: %w", err)}
	}
	return v, nil
}

func required(field, value string) error {
	if value == "" {
		return &badRequest{fmt.Errorf("%s required", field)}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("could not encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.publisher.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	return nil
}
