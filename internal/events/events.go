package events

import (
	"context"

	"github.com/groblegark/tangle/internal/model"
)

// Event topic constants
const (
	TopicTaskCreated   = "tangle.task.created"
	TopicTaskUpdated   = "tangle.task.updated"
	TopicTaskCompleted = "tangle.task.completed"
	TopicTaskDeleted   = "tangle.task.deleted"

	TopicTagCreated = "tangle.tag.created"
	TopicTagUpdated = "tangle.tag.updated"
	TopicTagDeleted = "tangle.tag.deleted"
	TopicTagMerged  = "tangle.tag.merged"
)

// Event types. Every payload carries the owning user's id so consumers can
// scope delivery to one owner.

type TaskCreated struct {
	UserID string      `json:"user_id"`
	Task   *model.Task `json:"task"`
}

type TaskUpdated struct {
	UserID  string         `json:"user_id"`
	Task    *model.Task    `json:"task"`
	Changes map[string]any `json:"changes"` // field name -> new value
}

type TaskCompleted struct {
	UserID string      `json:"user_id"`
	Task   *model.Task `json:"task"`
}

type TaskDeleted struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
}

type TagCreated struct {
	UserID string     `json:"user_id"`
	Tag    *model.Tag `json:"tag"`
}

type TagUpdated struct {
	UserID  string         `json:"user_id"`
	Tag     *model.Tag     `json:"tag"`
	Changes map[string]any `json:"changes"`
}

type TagDeleted struct {
	UserID string `json:"user_id"`
	TagID  string `json:"tag_id"`
}

type TagMerged struct {
	UserID string     `json:"user_id"`
	FromID string     `json:"from_id"`
	Into   *model.Tag `json:"into"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
