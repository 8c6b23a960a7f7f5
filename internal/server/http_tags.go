package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/groblegark/tangle/internal/events"
	"github.com/groblegark/tangle/internal/model"
)

// defaultRelatedTagLimit bounds GET /v1/tags/{id}/related when no limit is given.
const defaultRelatedTagLimit = 10

// defaultAutocompleteLimit bounds GET /v1/tags/autocomplete when no limit is given.
const defaultAutocompleteLimit = 10

type createTagInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// createTag validates input, persists a new tag, and publishes a TagCreated
// event. A missing color gets the default palette color.
func (s *TangleServer) createTag(ctx context.Context, userID string, in createTagInput) (*model.Tag, error) {
	tag := &model.Tag{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Color:     in.Color,
		CreatedAt: time.Now().UTC(),
	}
	if tag.Color == "" {
		tag.Color = model.DefaultTagColor
	}

	if err := model.ValidateTag(tag); err != nil {
		return nil, err
	}

	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, err
	}

	s.recordAndPublish(ctx, events.TopicTagCreated, userID, tag.ID, events.TagCreated{
		UserID: userID,
		Tag:    tag,
	})

	return tag, nil
}

type updateTagInput struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// updateTag applies partial updates to a tag and publishes a TagUpdated event.
func (s *TangleServer) updateTag(ctx context.Context, userID, id string, in updateTagInput) (*model.Tag, error) {
	tag, err := s.store.GetTag(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]any)
	if in.Name != nil {
		tag.Name = *in.Name
		changes["name"] = tag.Name
	}
	if in.Color != nil {
		tag.Color = *in.Color
		changes["color"] = tag.Color
	}

	if err := model.ValidateTag(tag); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTag(ctx, tag); err != nil {
		return nil, err
	}

	s.recordAndPublish(ctx, events.TopicTagUpdated, userID, tag.ID, events.TagUpdated{
		UserID:  userID,
		Tag:     tag,
		Changes: changes,
	})

	return tag, nil
}

// handleCreateTag handles POST /v1/tags.
func (s *TangleServer) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var in createTagInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tag, err := s.createTag(r.Context(), user.ID, in)
	if err != nil {
		s.writeStoreError(w, err, "tag")
		return
	}

	writeJSON(w, http.StatusCreated, tag)
}

// handleListTags handles GET /v1/tags. Tags come back with task counts,
// ordered by name.
func (s *TangleServer) handleListTags(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	tags, err := s.store.ListTags(r.Context(), user.ID)
	if err != nil {
		s.writeStoreError(w, err, "tag")
		return
	}
	if tags == nil {
		tags = []*model.Tag{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// handleGetTag handles GET /v1/tags/{id}.
func (s *TangleServer) handleGetTag(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	tag, err := s.store.GetTag(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err, "tag")
		return
	}

	writeJSON(w, http.StatusOK, tag)
}

// handleUpdateTag handles PATCH /v1/tags/{id}.
func (s *TangleServer) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var in updateTagInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tag, err := s.updateTag(r.Context(), user.ID, r.PathValue("id"), in)
	if err != nil {
		s.writeStoreError(w, err, "tag")
		return
	}

	writeJSON(w, http.StatusOK, tag)
}

// handleDeleteTag handles DELETE /v1/tags/{id}. Tasks carrying the tag
// survive; only the associations go.
func (s *TangleServer) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	id := r.PathValue("id")

	if err := s.store.DeleteTag(r.Context(), user.ID, id); err != nil {
		s.writeStoreError(w, err, "tag")
		return
	}

	s.recordAndPublish(r.Context(), events.TopicTagDeleted, user.ID, id, events.TagDeleted{
		UserID: user.ID,
		TagID:  id,
	})

	w.WriteHeader(http.StatusNoContent)
}

// handleMergeTags handles POST /v1/tags/{id}/merge. The tag in the path is
// absorbed into the tag named in the body; tasks carrying both end up with
// one association.
func (s *TangleServer) handleMergeTags(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	fromID := r.PathValue("id")

	var in struct {
		IntoID string `json:"into_id"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.IntoID == "" {
		writeError(w, http.StatusBadRequest, "into_id is required")
		return
	}
	if in.IntoID == fromID {
		writeError(w, http.StatusBadRequest, "cannot merge a tag into itself")
		return
	}

	merged, err := s.store.MergeTags(r.Context(), user.ID, fromID, in.IntoID)
	if err != nil {
		s.writeStoreError(w, err, "tag")
		return
	}

	s.recordAndPublish(r.Context(), events.TopicTagMerged, user.ID, merged.ID, events.TagMerged{
		UserID: user.ID,
		FromID: fromID,
		Into:   merged,
	})

	writeJSON(w, http.StatusOK, merged)
}

// handleRelatedTags handles GET /v1/tags/{id}/related: tags co-occurring
// with the given tag on the same tasks, most frequent first.
func (s *TangleServer) handleRelatedTags(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	limit := parseLimit(r.URL.Query().Get("limit"), defaultRelatedTagLimit)
	tags, err := s.store.RelatedTags(r.Context(), user.ID, r.PathValue("id"), limit)
	if err != nil {
		s.writeStoreError(w, err, "tag")
		return
	}
	if tags == nil {
		tags = []*model.Tag{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// handleAutocompleteTags handles GET /v1/tags/autocomplete?q=<prefix>.
func (s *TangleServer) handleAutocompleteTags(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	q := r.URL.Query()

	prefix := q.Get("q")
	if prefix == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := parseLimit(q.Get("limit"), defaultAutocompleteLimit)
	tags, err := s.store.AutocompleteTags(r.Context(), user.ID, prefix, limit)
	if err != nil {
		s.writeStoreError(w, err, "tag")
		return
	}
	if tags == nil {
		tags = []*model.Tag{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// parseLimit parses a positive limit query value, falling back to def.
func parseLimit(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
