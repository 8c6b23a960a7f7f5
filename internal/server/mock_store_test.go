package server

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/groblegark/tangle/internal/model"
	"github.com/groblegark/tangle/internal/store"
)

// mockStore is an in-memory store.Store used by the HTTP handler tests.
type mockStore struct {
	mu sync.Mutex

	users    map[string]*model.User    // by id
	sessions map[string]*model.Session // by token
	tasks    map[string]*model.Task    // by id
	tags     map[string]*model.Tag     // by id
	links    map[string]map[string]bool // task id -> tag id set
	events   []*model.Event
	nextEvt  int64

	pingErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:    make(map[string]*model.User),
		sessions: make(map[string]*model.Session),
		tasks:    make(map[string]*model.Task),
		tags:     make(map[string]*model.Tag),
		links:    make(map[string]map[string]bool),
	}
}

var _ store.Store = (*mockStore)(nil)

func (m *mockStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
			return store.ErrConflict
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *mockStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStore) CreateSession(ctx context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.Token] = &cp
	return nil
}

func (m *mockStore) GetSessionUser(ctx context.Context, token string) (*model.Session, *model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	u, ok := m.users[s.UserID]
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	sc, uc := *s, *u
	return &sc, &uc, nil
}

func (m *mockStore) DeleteSession(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return sql.ErrNoRows
	}
	delete(m.sessions, token)
	return nil
}

func (m *mockStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, s := range m.sessions {
		if s.ExpiresAt.Before(before) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) CreateTask(ctx context.Context, task *model.Task, tagIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *task
	cp.Tags = nil
	m.tasks[task.ID] = &cp
	set := make(map[string]bool)
	for _, id := range tagIDs {
		if tg, ok := m.tags[id]; !ok || tg.UserID != task.UserID {
			return sql.ErrNoRows
		}
		set[id] = true
	}
	m.links[task.ID] = set
	return nil
}

func (m *mockStore) getTaskLocked(userID, id string) (*model.Task, error) {
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return nil, sql.ErrNoRows
	}
	cp := *t
	cp.Tags = m.tagsForLocked(id)
	return &cp, nil
}

// tagsForLocked returns a task's tags sorted by name.
func (m *mockStore) tagsForLocked(taskID string) []*model.Tag {
	var out []*model.Tag
	for tagID := range m.links[taskID] {
		if tg, ok := m.tags[tagID]; ok {
			cp := *tg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *mockStore) GetTask(ctx context.Context, userID, id string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getTaskLocked(userID, id)
}

func (m *mockStore) ListTasks(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Task
	for id, t := range m.tasks {
		if t.UserID != userID {
			continue
		}
		if len(filter.Status) > 0 && !containsStatus(filter.Status, t.Status) {
			continue
		}
		if len(filter.Priority) > 0 && !containsPriority(filter.Priority, t.Priority) {
			continue
		}
		if filter.Tag != "" && !m.taskHasTagLocked(id, filter.Tag) {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(t.Title), strings.ToLower(filter.Search)) &&
			!strings.Contains(strings.ToLower(t.Description), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Overdue && !t.IsOverdue(time.Now()) {
			continue
		}
		cp := *t
		cp.Tags = m.tagsForLocked(id)
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	total := len(out)
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			out = nil
		} else {
			out = out[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *mockStore) taskHasTagLocked(taskID, tag string) bool {
	for tagID := range m.links[taskID] {
		if tagID == tag {
			return true
		}
		if tg, ok := m.tags[tagID]; ok && strings.EqualFold(tg.Name, tag) {
			return true
		}
	}
	return false
}

func (m *mockStore) UpdateTask(ctx context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return sql.ErrNoRows
	}
	cp := *task
	cp.Tags = nil
	m.tasks[task.ID] = &cp
	return nil
}

func (m *mockStore) DeleteTask(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return sql.ErrNoRows
	}
	delete(m.tasks, id)
	delete(m.links, id)
	return nil
}

func (m *mockStore) RelatedTasks(ctx context.Context, userID, id string) ([]*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.getTaskLocked(userID, id); err != nil {
		return nil, err
	}
	var out []*model.Task
	for otherID, other := range m.tasks {
		if otherID == id || other.UserID != userID {
			continue
		}
		shared := false
		for tagID := range m.links[id] {
			if m.links[otherID][tagID] {
				shared = true
				break
			}
		}
		if shared {
			cp := *other
			cp.Tags = m.tagsForLocked(otherID)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) SetTaskTags(ctx context.Context, userID, taskID string, tagIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.UserID != userID {
		return sql.ErrNoRows
	}
	set := make(map[string]bool)
	for _, id := range tagIDs {
		if tg, ok := m.tags[id]; !ok || tg.UserID != userID {
			return sql.ErrNoRows
		}
		set[id] = true
	}
	m.links[taskID] = set
	return nil
}

func (m *mockStore) AddTaskTag(ctx context.Context, userID, taskID, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.UserID != userID {
		return sql.ErrNoRows
	}
	if tg, ok := m.tags[tagID]; !ok || tg.UserID != userID {
		return sql.ErrNoRows
	}
	if m.links[taskID] == nil {
		m.links[taskID] = make(map[string]bool)
	}
	m.links[taskID][tagID] = true
	return nil
}

func (m *mockStore) RemoveTaskTag(ctx context.Context, userID, taskID, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.UserID != userID {
		return sql.ErrNoRows
	}
	delete(m.links[taskID], tagID)
	return nil
}

func (m *mockStore) CreateTag(ctx context.Context, tag *model.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tg := range m.tags {
		if tg.UserID == tag.UserID && strings.EqualFold(tg.Name, tag.Name) {
			return store.ErrConflict
		}
	}
	cp := *tag
	m.tags[tag.ID] = &cp
	return nil
}

func (m *mockStore) GetTag(ctx context.Context, userID, id string) (*model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tg, ok := m.tags[id]
	if !ok || tg.UserID != userID {
		return nil, sql.ErrNoRows
	}
	cp := *tg
	cp.TaskCount = m.tagTaskCountLocked(id)
	return &cp, nil
}

func (m *mockStore) tagTaskCountLocked(tagID string) int {
	n := 0
	for _, set := range m.links {
		if set[tagID] {
			n++
		}
	}
	return n
}

func (m *mockStore) GetTagByName(ctx context.Context, userID, name string) (*model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tg := range m.tags {
		if tg.UserID == userID && strings.EqualFold(tg.Name, name) {
			cp := *tg
			cp.TaskCount = m.tagTaskCountLocked(tg.ID)
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStore) ListTags(ctx context.Context, userID string) ([]*model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Tag
	for _, tg := range m.tags {
		if tg.UserID != userID {
			continue
		}
		cp := *tg
		cp.TaskCount = m.tagTaskCountLocked(tg.ID)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (m *mockStore) UpdateTag(ctx context.Context, tag *model.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tags[tag.ID]
	if !ok || existing.UserID != tag.UserID {
		return sql.ErrNoRows
	}
	for id, tg := range m.tags {
		if id != tag.ID && tg.UserID == tag.UserID && strings.EqualFold(tg.Name, tag.Name) {
			return store.ErrConflict
		}
	}
	cp := *tag
	m.tags[tag.ID] = &cp
	return nil
}

func (m *mockStore) DeleteTag(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tg, ok := m.tags[id]
	if !ok || tg.UserID != userID {
		return sql.ErrNoRows
	}
	delete(m.tags, id)
	for _, set := range m.links {
		delete(set, id)
	}
	return nil
}

func (m *mockStore) MergeTags(ctx context.Context, userID, fromID, intoID string) (*model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, ok := m.tags[fromID]
	if !ok || from.UserID != userID {
		return nil, sql.ErrNoRows
	}
	into, ok := m.tags[intoID]
	if !ok || into.UserID != userID {
		return nil, sql.ErrNoRows
	}
	for _, set := range m.links {
		if set[fromID] {
			delete(set, fromID)
			set[intoID] = true
		}
	}
	delete(m.tags, fromID)
	cp := *into
	cp.TaskCount = m.tagTaskCountLocked(intoID)
	return &cp, nil
}

func (m *mockStore) RelatedTags(ctx context.Context, userID, id string, limit int) ([]*model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tg, ok := m.tags[id]; !ok || tg.UserID != userID {
		return nil, sql.ErrNoRows
	}
	counts := make(map[string]int)
	for _, set := range m.links {
		if !set[id] {
			continue
		}
		for other := range set {
			if other != id {
				counts[other]++
			}
		}
	}
	var out []*model.Tag
	for tagID, n := range counts {
		cp := *m.tags[tagID]
		cp.TaskCount = n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaskCount != out[j].TaskCount {
			return out[i].TaskCount > out[j].TaskCount
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) AutocompleteTags(ctx context.Context, userID, prefix string, limit int) ([]*model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Tag
	for _, tg := range m.tags {
		if tg.UserID != userID {
			continue
		}
		if strings.HasPrefix(strings.ToLower(tg.Name), strings.ToLower(prefix)) {
			cp := *tg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) GraphSnapshot(ctx context.Context, userID string, filter model.GraphFilter) (*model.GraphSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &model.GraphSnapshot{Tasks: []*model.Task{}}
	for id, t := range m.tasks {
		if t.UserID != userID {
			continue
		}
		snap.TotalTasks++
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Tag != "" && !m.taskHasTagLocked(id, filter.Tag) {
			continue
		}
		cp := *t
		cp.Tags = m.tagsForLocked(id)
		snap.Tasks = append(snap.Tasks, &cp)
	}
	for _, tg := range m.tags {
		if tg.UserID == userID {
			snap.TotalTags++
		}
	}
	sort.Slice(snap.Tasks, func(i, j int) bool {
		if snap.Tasks[i].Position != snap.Tasks[j].Position {
			return snap.Tasks[i].Position < snap.Tasks[j].Position
		}
		return snap.Tasks[i].CreatedAt.After(snap.Tasks[j].CreatedAt)
	})
	return snap, nil
}

func (m *mockStore) UserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &model.UserStats{}
	now := time.Now()
	for _, t := range m.tasks {
		if t.UserID != userID {
			continue
		}
		stats.TotalTasks++
		switch t.Status {
		case model.StatusTodo:
			stats.Todo++
		case model.StatusInProgress:
			stats.InProgress++
		case model.StatusDone:
			stats.Done++
		}
		if t.IsOverdue(now) {
			stats.Overdue++
		}
	}
	for _, tg := range m.tags {
		if tg.UserID == userID {
			stats.TotalTags++
		}
	}
	return stats, nil
}

func (m *mockStore) RecordEvent(ctx context.Context, event *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEvt++
	cp := *event
	cp.ID = m.nextEvt
	cp.CreatedAt = time.Now().UTC()
	m.events = append(m.events, &cp)
	return nil
}

func (m *mockStore) GetEvents(ctx context.Context, userID string, afterID int64, limit int) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Event
	for _, e := range m.events {
		if e.UserID != userID || e.ID <= afterID {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) ListAllUsers(ctx context.Context) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockStore) ListAllTags(ctx context.Context) ([]*model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Tag
	for _, tg := range m.tags {
		cp := *tg
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockStore) ListAllTasks(ctx context.Context) ([]*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Task
	for _, t := range m.tasks {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockStore) ListAllTaskTags(ctx context.Context) ([]*model.TaskTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.TaskTag
	for taskID, set := range m.links {
		for tagID := range set {
			out = append(out, &model.TaskTag{TaskID: taskID, TagID: tagID})
		}
	}
	return out, nil
}

func (m *mockStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockStore) Close() error { return nil }

func containsStatus(list []model.Status, s model.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(list []model.Priority, p model.Priority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}
