package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/groblegark/tangle/internal/graph"
	"github.com/groblegark/tangle/internal/model"
)

// defaultEventLimit bounds GET /v1/events when no limit is given.
const defaultEventLimit = 100

// handleGraphData handles GET /api/graph/data/. It returns the vis-network
// payload for the authenticated user's tasks: one node per task, one node
// per in-use tag, one edge per association, plus summary stats.
func (s *TangleServer) handleGraphData(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	q := r.URL.Query()

	filter := model.GraphFilter{
		Tag:    q.Get("filter_tag"),
		Status: model.Status(q.Get("filter_status")),
	}

	payload, err := s.graph.Build(r.Context(), user.ID, filter)
	if err != nil {
		var fe *graph.FilterError
		if errors.As(err, &fe) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": fe.Message,
				"field": fe.Field,
			})
			return
		}
		s.writeStoreError(w, err, "graph")
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

// handleGetStats handles GET /v1/stats.
func (s *TangleServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	stats, err := s.store.UserStats(r.Context(), user.ID)
	if err != nil {
		s.writeStoreError(w, err, "stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleListEvents handles GET /v1/events: the authenticated user's persisted
// event log, oldest first, starting after the given id.
func (s *TangleServer) handleListEvents(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	q := r.URL.Query()

	var afterID int64
	if v := q.Get("after_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "after_id must be an integer")
			return
		}
		afterID = n
	}
	limit := parseLimit(q.Get("limit"), defaultEventLimit)

	evts, err := s.store.GetEvents(r.Context(), user.ID, afterID, limit)
	if err != nil {
		s.writeStoreError(w, err, "events")
		return
	}
	if evts == nil {
		evts = []*model.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": evts})
}
