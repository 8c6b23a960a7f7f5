// Package client provides a transport-agnostic interface for the tangle
// service and an HTTP/JSON implementation that talks to the tangle REST API.
package client

import (
	"context"
	"time"

	"github.com/groblegark/tangle/internal/model"
)

// TangleClient is the interface that all tgl CLI commands use to communicate
// with the tangle server. It is implemented by HTTPClient (default) and can
// be backed by any transport.
type TangleClient interface {
	// Auth
	Register(ctx context.Context, username, email, password string) (*Session, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*model.User, error)

	// Task CRUD
	CreateTask(ctx context.Context, req *CreateTaskRequest) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, req *ListTasksRequest) (*ListTasksResponse, error)
	UpdateTask(ctx context.Context, id string, req *UpdateTaskRequest) (*model.Task, error)
	ToggleTask(ctx context.Context, id string) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	RelatedTasks(ctx context.Context, id string) ([]*model.Task, error)

	// Task-tag associations
	SetTaskTags(ctx context.Context, taskID string, tagIDs []string) (*model.Task, error)
	AddTaskTag(ctx context.Context, taskID, tagID string) (*model.Task, error)
	RemoveTaskTag(ctx context.Context, taskID, tagID string) (*model.Task, error)

	// Tags
	CreateTag(ctx context.Context, name, color string) (*model.Tag, error)
	GetTag(ctx context.Context, id string) (*model.Tag, error)
	ListTags(ctx context.Context) ([]*model.Tag, error)
	UpdateTag(ctx context.Context, id string, req *UpdateTagRequest) (*model.Tag, error)
	DeleteTag(ctx context.Context, id string) error
	MergeTags(ctx context.Context, fromID, intoID string) (*model.Tag, error)
	RelatedTags(ctx context.Context, id string, limit int) ([]*model.Tag, error)
	AutocompleteTags(ctx context.Context, prefix string, limit int) ([]*model.Tag, error)

	// Graph and stats
	GraphData(ctx context.Context, filterTag, filterStatus string) (*model.GraphPayload, error)
	Stats(ctx context.Context) (*model.UserStats, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// Session is the token material returned by Register and Login.
type Session struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// CreateTaskRequest holds parameters for creating a task.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Position    int        `json:"position,omitempty"`
	TagIDs      []string   `json:"tag_ids,omitempty"`
}

// UpdateTaskRequest holds parameters for a partial task update. Nil fields
// are left unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Position    *int       `json:"position,omitempty"`
	// TagIDs replaces the full tag set when non-nil. No omitempty: an empty
	// slice must serialize as [] so it clears the tags.
	TagIDs []string `json:"tag_ids"`
}

// UpdateTagRequest holds parameters for a partial tag update.
type UpdateTagRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// ListTasksRequest holds filter parameters for listing tasks.
type ListTasksRequest struct {
	Status   []string
	Priority []string
	Tag      string
	Search   string
	Overdue  bool
	Sort     string
	Limit    int
	Offset   int
}

// ListTasksResponse is the page returned by ListTasks.
type ListTasksResponse struct {
	Tasks []*model.Task `json:"tasks"`
	Total int           `json:"total"`
}
