package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/groblegark/tangle/internal/model"
)

// Exporter is the slice of the persistence interface the backup export
// needs. Satisfied by store.Store.
type Exporter interface {
	ListAllUsers(ctx context.Context) ([]*model.User, error)
	ListAllTags(ctx context.Context) ([]*model.Tag, error)
	ListAllTasks(ctx context.Context) ([]*model.Task, error)
	ListAllTaskTags(ctx context.Context) ([]*model.TaskTag, error)
}

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	UserCount int       `json:"user_count"`
	TagCount  int       `json:"tag_count"`
	TaskCount int       `json:"task_count"`
	LinkCount int       `json:"link_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// exportedUser is the user shape written to backups. The password hash must
// survive a restore, so the model's json:"-" on it is overridden here.
type exportedUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExportJSONL writes every user, tag, task, and task-tag association as
// JSONL to w, each record set sorted by id so consecutive exports of the
// same data are byte-identical.
func ExportJSONL(ctx context.Context, src Exporter, w io.Writer) error {
	users, err := src.ListAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	tags, err := src.ListAllTags(ctx)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	tasks, err := src.ListAllTasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	links, err := src.ListAllTaskTags(ctx)
	if err != nil {
		return fmt.Errorf("list task tags: %w", err)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	sort.Slice(links, func(i, j int) bool {
		if links[i].TaskID != links[j].TaskID {
			return links[i].TaskID < links[j].TaskID
		}
		return links[i].TagID < links[j].TagID
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      "header",
		Timestamp: time.Now().UTC(),
		UserCount: len(users),
		TagCount:  len(tags),
		TaskCount: len(tasks),
		LinkCount: len(links),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, u := range users {
		eu := exportedUser{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			CreatedAt:    u.CreatedAt,
		}
		if err := enc.Encode(record{Type: "user", Data: eu}); err != nil {
			return fmt.Errorf("encode user %s: %w", u.ID, err)
		}
	}
	for _, tg := range tags {
		if err := enc.Encode(record{Type: "tag", Data: tg}); err != nil {
			return fmt.Errorf("encode tag %s: %w", tg.ID, err)
		}
	}
	for _, t := range tasks {
		if err := enc.Encode(record{Type: "task", Data: t}); err != nil {
			return fmt.Errorf("encode task %s: %w", t.ID, err)
		}
	}
	for _, l := range links {
		if err := enc.Encode(record{Type: "task_tag", Data: l}); err != nil {
			return fmt.Errorf("encode task tag %s/%s: %w", l.TaskID, l.TagID, err)
		}
	}

	return nil
}
