package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/groblegark/tangle/internal/auth"
	"github.com/groblegark/tangle/internal/events"
	"github.com/groblegark/tangle/internal/graph"
	"github.com/groblegark/tangle/internal/model"
	"github.com/groblegark/tangle/internal/store"
)

// TangleServer holds the HTTP API's dependencies: the store, the session
// service, the graph builder, and the event fan-out paths.
type TangleServer struct {
	store     store.Store
	auth      *auth.Service
	graph     *graph.Builder
	publisher events.Publisher
	sseHub    *sseHub
	logger    *slog.Logger
}

// NewTangleServer returns a server backed by the given store and publisher.
func NewTangleServer(s store.Store, a *auth.Service, p events.Publisher, logger *slog.Logger) *TangleServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TangleServer{
		store:     s,
		auth:      a,
		graph:     graph.NewBuilder(s),
		publisher: p,
		sseHub:    newSSEHub(),
		logger:    logger,
	}
}

// recordAndPublish persists an event to the store, publishes it to NATS, and
// fans it out to the owner's SSE streams. All three are best-effort; failures
// are logged but do not block the caller.
func (s *TangleServer) recordAndPublish(ctx context.Context, topic, userID, entityID string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event", "topic", topic, "entity_id", entityID, "error", err)
		return
	}
	if err := s.store.RecordEvent(ctx, &model.Event{
		Topic:    topic,
		UserID:   userID,
		EntityID: entityID,
		Payload:  payload,
	}); err != nil {
		s.logger.Warn("failed to record event", "topic", topic, "entity_id", entityID, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "entity_id", entityID, "error", err)
	}
	s.sseHub.broadcast(userID, topic, payload)
}

// inputError indicates invalid user input. The transport layer maps it to 400.
type inputError string

func (e inputError) Error() string { return string(e) }
