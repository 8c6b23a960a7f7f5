package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/groblegark/tangle/internal/model"
)

// handleCreateTask handles POST /v1/tasks.
func (s *TangleServer) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var in createTaskInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := s.createTask(r.Context(), user.ID, in)
	if err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// handleListTasks handles GET /v1/tasks. The status parameter accepts the
// alias "active" for todo and in_progress combined.
func (s *TangleServer) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	q := r.URL.Query()

	filter := model.TaskFilter{
		Tag:    q.Get("tag"),
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
	}

	if v := q.Get("status"); v != "" {
		for _, st := range strings.Split(v, ",") {
			if st == "active" {
				filter.Status = append(filter.Status, model.StatusTodo, model.StatusInProgress)
				continue
			}
			filter.Status = append(filter.Status, model.Status(st))
		}
	}
	if v := q.Get("priority"); v != "" {
		for _, p := range strings.Split(v, ",") {
			filter.Priority = append(filter.Priority, model.Priority(p))
		}
	}
	if v := q.Get("due_before"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "due_before must be a YYYY-MM-DD date")
			return
		}
		filter.DueBefore = &t
	}
	if v := q.Get("overdue"); v == "true" || v == "1" {
		filter.Overdue = true
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	tasks, total, err := s.store.ListTasks(r.Context(), user.ID, filter)
	if err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	// Ensure tasks is never null in JSON output.
	if tasks == nil {
		tasks = []*model.Task{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"total": total,
	})
}

// handleGetTask handles GET /v1/tasks/{id}.
func (s *TangleServer) handleGetTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	task, err := s.store.GetTask(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// handleUpdateTask handles PATCH /v1/tasks/{id}.
func (s *TangleServer) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var in updateTaskInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// For HTTP/JSON, DueDate/TagIDs presence is inferred from non-nil.
	if in.DueDate != nil {
		in.dueDateSet = true
	}
	if in.TagIDs != nil {
		in.tagIDsSet = true
	}

	task, err := s.updateTask(r.Context(), user.ID, r.PathValue("id"), in)
	if err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// handleDeleteTask handles DELETE /v1/tasks/{id}.
func (s *TangleServer) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	if err := s.deleteTask(r.Context(), user.ID, r.PathValue("id")); err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleToggleTask handles POST /v1/tasks/{id}/toggle.
func (s *TangleServer) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	task, err := s.toggleTask(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// handleRelatedTasks handles GET /v1/tasks/{id}/related: tasks sharing at
// least one tag with the given task.
func (s *TangleServer) handleRelatedTasks(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	tasks, err := s.store.RelatedTasks(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err, "task")
		return
	}
	if tasks == nil {
		tasks = []*model.Task{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// handleSetTaskTags handles PUT /v1/tasks/{id}/tags: replace the full tag set.
func (s *TangleServer) handleSetTaskTags(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	id := r.PathValue("id")

	var in struct {
		TagIDs []string `json:"tag_ids"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(in.TagIDs) > model.MaxTagsPerTask {
		writeError(w, http.StatusBadRequest, "too many tags")
		return
	}

	if err := s.store.SetTaskTags(r.Context(), user.ID, id, in.TagIDs); err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	task, err := s.store.GetTask(r.Context(), user.ID, id)
	if err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	s.publishTaskUpdated(r.Context(), user.ID, task, map[string]any{"tag_ids": in.TagIDs})

	writeJSON(w, http.StatusOK, task)
}

// handleAddTaskTag handles POST /v1/tasks/{id}/tags/{tagID}.
func (s *TangleServer) handleAddTaskTag(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	id := r.PathValue("id")
	tagID := r.PathValue("tagID")

	if err := s.store.AddTaskTag(r.Context(), user.ID, id, tagID); err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	task, err := s.store.GetTask(r.Context(), user.ID, id)
	if err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	s.publishTaskUpdated(r.Context(), user.ID, task, map[string]any{"tag_added": tagID})

	writeJSON(w, http.StatusOK, task)
}

// handleRemoveTaskTag handles DELETE /v1/tasks/{id}/tags/{tagID}.
func (s *TangleServer) handleRemoveTaskTag(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	id := r.PathValue("id")
	tagID := r.PathValue("tagID")

	if err := s.store.RemoveTaskTag(r.Context(), user.ID, id, tagID); err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	task, err := s.store.GetTask(r.Context(), user.ID, id)
	if err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	s.publishTaskUpdated(r.Context(), user.ID, task, map[string]any{"tag_removed": tagID})

	writeJSON(w, http.StatusOK, task)
}
