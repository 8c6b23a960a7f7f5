package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/groblegark/tangle/internal/events"
	"github.com/groblegark/tangle/internal/model"
)

// createTaskInput holds transport-agnostic parameters for creating a task.
type createTaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Position    int        `json:"position"`
	TagIDs      []string   `json:"tag_ids"`
}

// createTask validates input, persists a new task with its tag links in one
// transaction, and publishes a TaskCreated event. Returns inputError or
// *model.ValidationError for validation failures.
func (s *TangleServer) createTask(ctx context.Context, userID string, in createTaskInput) (*model.Task, error) {
	now := time.Now().UTC()

	task := &model.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      model.StatusTodo,
		Priority:    model.PriorityMedium,
		DueDate:     in.DueDate,
		Position:    in.Position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Status != "" {
		task.Status = model.Status(in.Status)
	}
	if in.Priority != "" {
		task.Priority = model.Priority(in.Priority)
	}
	if task.Status == model.StatusDone {
		task.CompletedAt = &now
	}

	if err := model.ValidateTask(task); err != nil {
		return nil, err
	}
	if len(in.TagIDs) > model.MaxTagsPerTask {
		return nil, inputError(fmt.Sprintf("a task may carry at most %d tags", model.MaxTagsPerTask))
	}

	if err := s.store.CreateTask(ctx, task, in.TagIDs); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	// Re-read to pick up the attached tags.
	created, err := s.store.GetTask(ctx, userID, task.ID)
	if err != nil {
		return nil, fmt.Errorf("get task after create: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicTaskCreated, userID, created.ID, events.TaskCreated{
		UserID: userID,
		Task:   created,
	})
	if created.Status == model.StatusDone {
		s.recordAndPublish(ctx, events.TopicTaskCompleted, userID, created.ID, events.TaskCompleted{
			UserID: userID,
			Task:   created,
		})
	}

	return created, nil
}

// updateTaskInput holds transport-agnostic parameters for updating a task.
// Pointer fields indicate optionality: nil means "don't change".
type updateTaskInput struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Position    *int       `json:"position,omitempty"`
	TagIDs      []string   `json:"tag_ids,omitempty"`

	// dueDateSet / tagIDsSet track whether the field was provided at all
	// (a zero due date means "clear the field", distinct from "not provided").
	dueDateSet bool
	tagIDsSet  bool
}

// updateTask applies partial updates to an existing task, keeps completed_at
// consistent with status, persists changes, and publishes events. Returns
// inputError or *model.ValidationError for validation failures.
func (s *TangleServer) updateTask(ctx context.Context, userID, id string, in updateTaskInput) (*model.Task, error) {
	task, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	wasDone := task.Status == model.StatusDone
	changes := make(map[string]any)

	if in.Title != nil {
		task.Title = *in.Title
		changes["title"] = task.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
		changes["description"] = task.Description
	}
	if in.Status != nil {
		task.Status = model.Status(*in.Status)
		changes["status"] = task.Status
	}
	if in.Priority != nil {
		task.Priority = model.Priority(*in.Priority)
		changes["priority"] = task.Priority
	}
	if in.dueDateSet {
		if in.DueDate != nil && in.DueDate.IsZero() {
			task.DueDate = nil
		} else {
			task.DueDate = in.DueDate
		}
		changes["due_date"] = task.DueDate
	}
	if in.Position != nil {
		task.Position = *in.Position
		changes["position"] = task.Position
	}

	// Reconcile CompletedAt with status changes.
	now := time.Now().UTC()
	if task.Status == model.StatusDone && task.CompletedAt == nil {
		task.CompletedAt = &now
		changes["completed_at"] = task.CompletedAt
	}
	if task.Status != model.StatusDone && task.CompletedAt != nil {
		task.CompletedAt = nil
		changes["completed_at"] = task.CompletedAt
	}

	task.UpdatedAt = now

	if err := model.ValidateTask(task); err != nil {
		return nil, err
	}

	if in.tagIDsSet {
		if len(in.TagIDs) > model.MaxTagsPerTask {
			return nil, inputError(fmt.Sprintf("a task may carry at most %d tags", model.MaxTagsPerTask))
		}
		if err := s.store.SetTaskTags(ctx, userID, task.ID, in.TagIDs); err != nil {
			return nil, fmt.Errorf("set task tags: %w", err)
		}
		changes["tag_ids"] = in.TagIDs
	}

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	updated, err := s.store.GetTask(ctx, userID, task.ID)
	if err != nil {
		return nil, fmt.Errorf("get task after update: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicTaskUpdated, userID, updated.ID, events.TaskUpdated{
		UserID:  userID,
		Task:    updated,
		Changes: changes,
	})
	if !wasDone && updated.Status == model.StatusDone {
		s.recordAndPublish(ctx, events.TopicTaskCompleted, userID, updated.ID, events.TaskCompleted{
			UserID: userID,
			Task:   updated,
		})
	}

	return updated, nil
}

// toggleTask flips a task between done and todo. A done task reopens as
// todo; any other status completes the task.
func (s *TangleServer) toggleTask(ctx context.Context, userID, id string) (*model.Task, error) {
	task, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	wasDone := task.Status == model.StatusDone
	if wasDone {
		task.Status = model.StatusTodo
		task.CompletedAt = nil
	} else {
		task.Status = model.StatusDone
		task.CompletedAt = &now
	}
	task.UpdatedAt = now

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicTaskUpdated, userID, task.ID, events.TaskUpdated{
		UserID: userID,
		Task:   task,
		Changes: map[string]any{
			"status":       task.Status,
			"completed_at": task.CompletedAt,
		},
	})
	if !wasDone {
		s.recordAndPublish(ctx, events.TopicTaskCompleted, userID, task.ID, events.TaskCompleted{
			UserID: userID,
			Task:   task,
		})
	}

	return task, nil
}

// publishTaskUpdated emits a TaskUpdated event for tag membership changes
// made outside updateTask.
func (s *TangleServer) publishTaskUpdated(ctx context.Context, userID string, task *model.Task, changes map[string]any) {
	s.recordAndPublish(ctx, events.TopicTaskUpdated, userID, task.ID, events.TaskUpdated{
		UserID:  userID,
		Task:    task,
		Changes: changes,
	})
}

// deleteTask removes a task and publishes a TaskDeleted event.
func (s *TangleServer) deleteTask(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTask(ctx, userID, id); err != nil {
		return err
	}
	s.recordAndPublish(ctx, events.TopicTaskDeleted, userID, id, events.TaskDeleted{
		UserID: userID,
		TaskID: id,
	})
	return nil
}
