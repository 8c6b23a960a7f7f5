package store

import (
	"context"
	"errors"
	"time"

	"github.com/groblegark/tangle/internal/model"
)

// ErrConflict is returned when an insert or update violates a uniqueness
// constraint (duplicate tag name, username, or email).
var ErrConflict = errors.New("already exists")

// Store defines the persistence interface for tangle. Every task and tag
// operation is scoped by the owning user's id; an id belonging to another
// user behaves exactly like a missing row.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// Sessions
	CreateSession(ctx context.Context, session *model.Session) error
	GetSessionUser(ctx context.Context, token string) (*model.Session, *model.User, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)

	// Task CRUD
	CreateTask(ctx context.Context, task *model.Task, tagIDs []string) error
	GetTask(ctx context.Context, userID, id string) (*model.Task, error)
	ListTasks(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, int, error) // returns tasks, total count, error
	UpdateTask(ctx context.Context, task *model.Task) error
	DeleteTask(ctx context.Context, userID, id string) error
	RelatedTasks(ctx context.Context, userID, id string) ([]*model.Task, error)

	// Task-tag associations
	SetTaskTags(ctx context.Context, userID, taskID string, tagIDs []string) error
	AddTaskTag(ctx context.Context, userID, taskID, tagID string) error
	RemoveTaskTag(ctx context.Context, userID, taskID, tagID string) error

	// Tags
	CreateTag(ctx context.Context, tag *model.Tag) error
	GetTag(ctx context.Context, userID, id string) (*model.Tag, error)
	GetTagByName(ctx context.Context, userID, name string) (*model.Tag, error) // case-insensitive
	ListTags(ctx context.Context, userID string) ([]*model.Tag, error)
	UpdateTag(ctx context.Context, tag *model.Tag) error
	DeleteTag(ctx context.Context, userID, id string) error
	MergeTags(ctx context.Context, userID, fromID, intoID string) (*model.Tag, error)
	RelatedTags(ctx context.Context, userID, id string, limit int) ([]*model.Tag, error)
	AutocompleteTags(ctx context.Context, userID, prefix string, limit int) ([]*model.Tag, error)

	// Graph
	GraphSnapshot(ctx context.Context, userID string, filter model.GraphFilter) (*model.GraphSnapshot, error)

	// Stats
	UserStats(ctx context.Context, userID string) (*model.UserStats, error)

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error
	GetEvents(ctx context.Context, userID string, afterID int64, limit int) ([]*model.Event, error)

	// Export (all users; backup/sync only)
	ListAllUsers(ctx context.Context) ([]*model.User, error)
	ListAllTags(ctx context.Context) ([]*model.Tag, error)
	ListAllTasks(ctx context.Context) ([]*model.Task, error)
	ListAllTaskTags(ctx context.Context) ([]*model.TaskTag, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
