package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/groblegark/tangle/internal/model"
	"github.com/groblegark/tangle/internal/store"
	"github.com/lib/pq"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

// taskRowColumns is the column list for scanTask results.
var taskRowColumns = []string{
	"id", "user_id", "title", "description", "status", "priority",
	"due_date", "position", "completed_at", "created_at", "updated_at",
}

// taskWithTotalColumns is the column list for queryListTasks results
// (total_count + task columns).
var taskWithTotalColumns = append([]string{"total_count"}, taskRowColumns...)

// tagRowColumns is the column list for scanTag results.
var tagRowColumns = []string{"id", "user_id", "name", "color", "created_at"}

// tagWithCountColumns adds the trailing task_count column.
var tagWithCountColumns = append(append([]string{}, tagRowColumns...), "task_count")

// addTaskRow adds a minimal task row to a sqlmock.Rows.
func addTaskRow(rows *sqlmock.Rows, id, userID, title, status string, now time.Time) *sqlmock.Rows {
	return rows.AddRow(id, userID, title, "", status, "medium", nil, 0, nil, now, now)
}

// expectEmptyAttachTags sets up the tag-attachment query that follows task
// reads, returning no tags.
func expectEmptyAttachTags(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT tt.task_id, tg.id, .+ FROM task_tags tt`).
		WillReturnRows(sqlmock.NewRows([]string{"task_id", "id", "user_id", "name", "color", "created_at"}))
}

func TestParseSortClause(t *testing.T) {
	defaultSort := priorityRank + ", created_at DESC"
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"", defaultSort},
		{"priority", defaultSort},
		{"-priority", priorityRank + " DESC, created_at DESC"},
		{"due_date", "due_date ASC"},
		{"-due_date", "due_date DESC"},
		{"position", "position ASC"},
		{"-title", "title DESC"},
		{"evil_column", defaultSort},
		{"-evil_column", defaultSort},
	} {
		if got := parseSortClause(tc.input); got != tc.want {
			t.Errorf("parseSortClause(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestScanHelpers(t *testing.T) {
	// nullTimePtr
	if nullTimePtr(nil).Valid {
		t.Error("nullTimePtr(nil) should be invalid")
	}
	now := time.Now()
	if nt := nullTimePtr(&now); !nt.Valid || !nt.Time.Equal(now) {
		t.Errorf("nullTimePtr(now) = %v", nt)
	}

	// jsonbBytes
	if jsonbBytes(nil) != nil {
		t.Error("jsonbBytes(nil) should be nil")
	}
	if jsonbBytes(json.RawMessage{}) != nil {
		t.Error("jsonbBytes({}) should be nil")
	}
	input := json.RawMessage(`{"key":"value"}`)
	if string(jsonbBytes(input)) != `{"key":"value"}` {
		t.Errorf("jsonbBytes = %s", jsonbBytes(input))
	}
}

func TestEscapeLike(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"work", "work"},
		{"50%", `50\%`},
		{"a_b", `a\_b`},
		{`c\d`, `c\\d`},
	} {
		if got := escapeLike(tc.in); got != tc.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTranslateUnique(t *testing.T) {
	uniq := &pq.Error{Code: "23505", Constraint: "tags_user_id_name_key"}
	if err := translateUnique(uniq); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	other := &pq.Error{Code: "23503"}
	if err := translateUnique(other); errors.Is(err, store.ErrConflict) {
		t.Errorf("foreign-key violation must not map to ErrConflict")
	}

	plain := fmt.Errorf("boom")
	if err := translateUnique(plain); err != plain {
		t.Errorf("non-pq error must pass through, got %v", err)
	}
}

func TestQueryCreateUser(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	u := &model.User{ID: "u-1", Username: "alice", Email: "alice@example.com", PasswordHash: "$2a$hash"}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("u-1", "alice", "alice@example.com", "$2a$hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	if err := queryCreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", u.CreatedAt, now)
	}
}

func TestQueryCreateUser_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	u := &model.User{ID: "u-1", Username: "alice", Email: "alice@example.com", PasswordHash: "h"}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("u-1", "alice", "alice@example.com", "h").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	err := queryCreateUser(context.Background(), db, u)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestQueryGetUserByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
		AddRow("u-1", "alice", "alice@example.com", "h", now)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).WithArgs("alice").WillReturnRows(rows)

	u, err := queryGetUserByUsername(context.Background(), db, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u-1" || u.Email != "alice@example.com" {
		t.Fatalf("got id=%q email=%q", u.ID, u.Email)
	}
}

func TestQueryGetUser_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).WithArgs("nonexistent").WillReturnError(sql.ErrNoRows)

	_, err := queryGetUser(context.Background(), db, "nonexistent")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryGetSessionUser(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	expires := now.Add(time.Hour)

	rows := sqlmock.NewRows([]string{
		"token", "user_id", "created_at", "expires_at",
		"id", "username", "email", "password_hash", "created_at",
	}).AddRow("tok-1", "u-1", now, expires, "u-1", "alice", "alice@example.com", "h", now)
	mock.ExpectQuery(`SELECT s.token, s.user_id, .+ FROM sessions s`).WithArgs("tok-1").WillReturnRows(rows)

	sess, u, err := queryGetSessionUser(context.Background(), db, "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Token != "tok-1" || sess.UserID != "u-1" {
		t.Fatalf("got session %+v", sess)
	}
	if u.Username != "alice" {
		t.Fatalf("got user %+v", u)
	}
}

func TestQueryGetSessionUser_Expired(t *testing.T) {
	db, mock := newMockDB(t)
	// Expired sessions fall out of the WHERE clause, so the row is missing.
	mock.ExpectQuery(`SELECT s.token, s.user_id, .+ FROM sessions s`).WithArgs("tok-old").WillReturnError(sql.ErrNoRows)

	_, _, err := queryGetSessionUser(context.Background(), db, "tok-old")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryDeleteSession_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM sessions WHERE token = \$1`).WithArgs("nonexistent").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := queryDeleteSession(context.Background(), db, "nonexistent"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryDeleteExpiredSessions(t *testing.T) {
	db, mock := newMockDB(t)
	cutoff := time.Now().UTC()
	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at <= \$1`).WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := queryDeleteExpiredSessions(context.Background(), db, cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}
}

func TestQueryCreateTask(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	task := &model.Task{
		ID: "t-1", UserID: "u-1", Title: "Buy milk",
		Status: model.StatusTodo, Priority: model.PriorityMedium,
	}

	mock.ExpectQuery("INSERT INTO tasks").
		WithArgs("t-1", "u-1", "Buy milk", "", "todo", "medium", sqlmock.AnyArg(), 0, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	if err := queryCreateTask(context.Background(), db, task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !task.CreatedAt.Equal(now) || !task.UpdatedAt.Equal(now) {
		t.Errorf("timestamps not populated: %+v", task)
	}
}

func TestQueryGetTask(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := addTaskRow(sqlmock.NewRows(taskRowColumns), "t-1", "u-1", "Buy milk", "todo", now)
	mock.ExpectQuery(`SELECT .+ FROM tasks WHERE id = \$1 AND user_id = \$2`).
		WithArgs("t-1", "u-1").WillReturnRows(rows)
	mock.ExpectQuery(`SELECT tt.task_id, tg.id, .+ FROM task_tags tt`).
		WillReturnRows(sqlmock.NewRows([]string{"task_id", "id", "user_id", "name", "color", "created_at"}).
			AddRow("t-1", "g-1", "u-1", "errands", "#FF6B6B", now))

	task, err := queryGetTask(context.Background(), db, "u-1", "t-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID != "t-1" || task.Title != "Buy milk" {
		t.Fatalf("got id=%q title=%q", task.ID, task.Title)
	}
	if len(task.Tags) != 1 || task.Tags[0].Name != "errands" {
		t.Fatalf("expected tags=[errands], got %+v", task.Tags)
	}
}

func TestQueryGetTask_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT .+ FROM tasks WHERE id = \$1 AND user_id = \$2`).
		WithArgs("nonexistent", "u-1").WillReturnError(sql.ErrNoRows)

	_, err := queryGetTask(context.Background(), db, "u-1", "nonexistent")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryListTasks(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(taskWithTotalColumns).
		AddRow(5, "t-1", "u-1", "Buy milk", "", "todo", "medium", nil, 0, nil, now, now).
		AddRow(5, "t-2", "u-1", "Walk dog", "", "in_progress", "high", nil, 1, nil, now, now)
	mock.ExpectQuery(`SELECT COUNT\(\*\) OVER\(\) AS total_count, .+ FROM tasks WHERE user_id = \$1 AND status IN`).
		WithArgs("u-1", "todo", "in_progress", 2).
		WillReturnRows(rows)
	expectEmptyAttachTags(mock)

	filter := model.TaskFilter{
		Status: []model.Status{model.StatusTodo, model.StatusInProgress},
		Limit:  2,
	}
	tasks, total, err := queryListTasks(context.Background(), db, "u-1", filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 2 || total != 5 {
		t.Fatalf("got %d tasks total=%d, want 2 tasks total=5", len(tasks), total)
	}
	if tasks[1].ID != "t-2" {
		t.Errorf("tasks[1].ID = %q, want t-2", tasks[1].ID)
	}
}

func TestQueryListTasks_SearchFilter(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(taskWithTotalColumns).
		AddRow(1, "t-1", "u-1", "Buy milk", "", "todo", "medium", nil, 0, nil, now, now)
	mock.ExpectQuery(`SELECT COUNT\(\*\) OVER\(\) AS total_count, .+ ILIKE`).
		WithArgs("u-1", "milk").
		WillReturnRows(rows)
	expectEmptyAttachTags(mock)

	tasks, total, err := queryListTasks(context.Background(), db, "u-1", model.TaskFilter{Search: "milk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 1 || total != 1 {
		t.Fatalf("got %d tasks total=%d", len(tasks), total)
	}
}

func TestQueryListTasks_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) OVER\(\) AS total_count, .+ FROM tasks WHERE user_id = \$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(taskWithTotalColumns))

	tasks, total, err := queryListTasks(context.Background(), db, "u-1", model.TaskFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 0 || total != 0 {
		t.Fatalf("got %d tasks total=%d, want empty", len(tasks), total)
	}
}

func TestQueryUpdateTask(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	due := now.Add(48 * time.Hour)
	task := &model.Task{
		ID: "t-1", UserID: "u-1", Title: "Buy oat milk",
		Status: model.StatusInProgress, Priority: model.PriorityHigh,
		DueDate: &due, Position: 3,
	}

	mock.ExpectQuery("UPDATE tasks SET").
		WithArgs("t-1", "u-1", "Buy oat milk", "", "in_progress", "high", sqlmock.AnyArg(), 3, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	if err := queryUpdateTask(context.Background(), db, task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !task.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", task.UpdatedAt, now)
	}
}

func TestQueryUpdateTask_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	task := &model.Task{ID: "nonexistent", UserID: "u-1", Title: "x", Status: model.StatusTodo, Priority: model.PriorityLow}
	mock.ExpectQuery("UPDATE tasks SET").
		WithArgs("nonexistent", "u-1", "x", "", "todo", "low", sqlmock.AnyArg(), 0, sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	if err := queryUpdateTask(context.Background(), db, task); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryDeleteTask_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM tasks WHERE id = \$1 AND user_id = \$2`).
		WithArgs("nonexistent", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := queryDeleteTask(context.Background(), db, "u-1", "nonexistent"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQuerySetTaskTags(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT 1 FROM tasks WHERE id = \$1 AND user_id = \$2`).
		WithArgs("t-1", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM task_tags WHERE task_id = \$1`).WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO task_tags").
		WithArgs("t-1", "u-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := querySetTaskTags(context.Background(), db, "u-1", "t-1", []string{"g-1", "g-2", "g-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuerySetTaskTags_UnknownTag(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT 1 FROM tasks WHERE id = \$1 AND user_id = \$2`).
		WithArgs("t-1", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM task_tags WHERE task_id = \$1`).WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Only one of the two requested tags exists for this owner.
	mock.ExpectExec("INSERT INTO task_tags").
		WithArgs("t-1", "u-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := querySetTaskTags(context.Background(), db, "u-1", "t-1", []string{"g-1", "g-missing"})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQuerySetTaskTags_TaskNotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT 1 FROM tasks WHERE id = \$1 AND user_id = \$2`).
		WithArgs("t-1", "u-2").
		WillReturnError(sql.ErrNoRows)

	err := querySetTaskTags(context.Background(), db, "u-2", "t-1", []string{"g-1"})
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryRemoveTaskTag_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT 1 FROM tasks WHERE id = \$1 AND user_id = \$2`).
		WithArgs("t-1", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM task_tags WHERE task_id = \$1 AND tag_id = \$2`).
		WithArgs("t-1", "g-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := queryRemoveTaskTag(context.Background(), db, "u-1", "t-1", "g-1"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryCreateTag_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	tg := &model.Tag{ID: "g-1", UserID: "u-1", Name: "work", Color: "#FF6B6B"}

	mock.ExpectQuery("INSERT INTO tags").
		WithArgs("g-1", "u-1", "work", "#FF6B6B").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "tags_user_id_lower_name_key"})

	if err := queryCreateTag(context.Background(), db, tg); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestQueryGetTagByName(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(tagWithCountColumns).AddRow("g-1", "u-1", "Work", "#FF6B6B", now, 4)
	mock.ExpectQuery(`SELECT .+ FROM tags WHERE user_id = \$1 AND LOWER\(name\) = LOWER\(\$2\)`).
		WithArgs("u-1", "WORK").WillReturnRows(rows)

	tg, err := queryGetTagByName(context.Background(), db, "u-1", "WORK")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tg.Name != "Work" || tg.TaskCount != 4 {
		t.Fatalf("got name=%q count=%d", tg.Name, tg.TaskCount)
	}
}

func TestQueryListTags(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(tagWithCountColumns).
		AddRow("g-1", "u-1", "errands", "#FF6B6B", now, 2).
		AddRow("g-2", "u-1", "work", "#4ECDC4", now, 0)
	mock.ExpectQuery(`SELECT .+ FROM tags WHERE user_id = \$1 ORDER BY name ASC`).
		WithArgs("u-1").WillReturnRows(rows)

	tags, err := queryListTags(context.Background(), db, "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	if tags[0].TaskCount != 2 || tags[1].TaskCount != 0 {
		t.Errorf("task counts = %d, %d", tags[0].TaskCount, tags[1].TaskCount)
	}
}

func TestQueryUpdateTag_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	tg := &model.Tag{ID: "nonexistent", UserID: "u-1", Name: "x", Color: "#FF6B6B"}
	mock.ExpectExec("UPDATE tags SET").
		WithArgs("nonexistent", "u-1", "x", "#FF6B6B").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := queryUpdateTag(context.Background(), db, tg); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryMergeTags(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT 1 FROM tags WHERE id = \$1 AND user_id = \$2`).
		WithArgs("g-from", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM tags WHERE id = \$1 AND user_id = \$2`).
		WithArgs("g-into", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectExec("INSERT INTO task_tags").
		WithArgs("g-from", "g-into").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM task_tags WHERE tag_id = \$1`).
		WithArgs("g-from").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM tags WHERE id = \$1`).
		WithArgs("g-from").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM tags WHERE id = \$1 AND user_id = \$2`).
		WithArgs("g-into", "u-1").
		WillReturnRows(sqlmock.NewRows(tagWithCountColumns).AddRow("g-into", "u-1", "work", "#4ECDC4", now, 5))

	tg, err := queryMergeTags(context.Background(), db, "u-1", "g-from", "g-into")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tg.ID != "g-into" || tg.TaskCount != 5 {
		t.Fatalf("got id=%q count=%d", tg.ID, tg.TaskCount)
	}
}

func TestQueryMergeTags_SourceNotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT 1 FROM tags WHERE id = \$1 AND user_id = \$2`).
		WithArgs("g-from", "u-2").
		WillReturnError(sql.ErrNoRows)

	_, err := queryMergeTags(context.Background(), db, "u-2", "g-from", "g-into")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryRelatedTags(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "color", "created_at", "shared"}).
		AddRow("g-2", "u-1", "home", "#45B7D1", now, 3).
		AddRow("g-3", "u-1", "urgent", "#FFA07A", now, 1)
	mock.ExpectQuery(`SELECT tg.id, .+ FROM task_tags a`).
		WithArgs("g-1", "u-1", 10).
		WillReturnRows(rows)

	tags, err := queryRelatedTags(context.Background(), db, "u-1", "g-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	if tags[0].Name != "home" || tags[0].TaskCount != 3 {
		t.Errorf("tags[0] = %+v, want home with 3 shared", tags[0])
	}
}

func TestQueryAutocompleteTags_EscapesWildcards(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT .+ FROM tags\s+WHERE user_id = \$1 AND LOWER\(name\) LIKE`).
		WithArgs("u-1", `50\%`, 10).
		WillReturnRows(sqlmock.NewRows(tagRowColumns))

	tags, err := queryAutocompleteTags(context.Background(), db, "u-1", "50%", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("expected no tags, got %d", len(tags))
	}
}

func TestQueryGraphSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	taskRows := addTaskRow(sqlmock.NewRows(taskRowColumns), "t-1", "u-1", "Buy milk", "todo", now)
	mock.ExpectQuery(`SELECT .+ FROM tasks WHERE user_id = \$1 AND status = \$2 ORDER BY position ASC`).
		WithArgs("u-1", "todo").
		WillReturnRows(taskRows)
	mock.ExpectQuery(`SELECT tt.task_id, tg.id, .+ FROM task_tags tt`).
		WillReturnRows(sqlmock.NewRows([]string{"task_id", "id", "user_id", "name", "color", "created_at"}).
			AddRow("t-1", "g-1", "u-1", "errands", "#FF6B6B", now))
	mock.ExpectQuery(`\(SELECT COUNT\(\*\) FROM tasks WHERE user_id = \$1\)`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"task_total", "tag_total"}).AddRow(7, 3))

	snap, err := queryGraphSnapshot(context.Background(), db, "u-1",
		model.GraphFilter{Status: model.StatusTodo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Tasks) != 1 || len(snap.Tasks[0].Tags) != 1 {
		t.Fatalf("snapshot tasks = %+v", snap.Tasks)
	}
	if snap.TotalTasks != 7 || snap.TotalTags != 3 {
		t.Errorf("totals = %d/%d, want 7/3", snap.TotalTasks, snap.TotalTags)
	}
}

func TestQueryUserStats(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"total", "todo", "in_progress", "done", "overdue", "tags"}).
		AddRow(10, 4, 2, 4, 1, 5)
	mock.ExpectQuery("SELECT").WithArgs("u-1").WillReturnRows(rows)

	stats, err := queryUserStats(context.Background(), db, "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalTasks != 10 || stats.Overdue != 1 || stats.TotalTags != 5 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestQueryRecordEvent(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	event := &model.Event{
		Topic: "tangle.task.created", UserID: "u-1", EntityID: "t-1",
		Payload: json.RawMessage(`{"task":{"id":"t-1"}}`),
	}

	mock.ExpectQuery("INSERT INTO events").
		WithArgs("tangle.task.created", "u-1", "t-1", []byte(`{"task":{"id":"t-1"}}`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), now))

	if err := queryRecordEvent(context.Background(), db, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.ID != 42 {
		t.Errorf("event.ID = %d, want 42", event.ID)
	}
}

func TestQueryGetEvents(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "topic", "user_id", "entity_id", "payload", "created_at"}).
		AddRow(int64(1), "tangle.task.created", "u-1", "t-1", []byte(`{"x":1}`), now).
		AddRow(int64(2), "tangle.task.updated", "u-1", "t-1", []byte(`{"x":2}`), now)
	mock.ExpectQuery(`SELECT id, topic, user_id, entity_id, payload, created_at\s+FROM events`).
		WithArgs("u-1", int64(0), 100).
		WillReturnRows(rows)

	events, err := queryGetEvents(context.Background(), db, "u-1", 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 || events[1].Topic != "tangle.task.updated" {
		t.Fatalf("events = %+v", events)
	}
}

func TestQueryListAllTaskTags(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"task_id", "tag_id"}).
		AddRow("t-1", "g-1").
		AddRow("t-2", "g-1")
	mock.ExpectQuery(`SELECT task_id, tag_id FROM task_tags ORDER BY task_id, tag_id`).
		WillReturnRows(rows)

	links, err := queryListAllTaskTags(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 2 || links[1].TaskID != "t-2" {
		t.Fatalf("links = %+v", links)
	}
}

func TestRunInTransaction_Commit(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM task_tags WHERE tag_id = \$1`).WithArgs("g-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		_, err := tx.(*txStore).tx.ExecContext(context.Background(),
			`DELETE FROM task_tags WHERE tag_id = $1`, "g-1")
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunInTransaction_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectBegin()
	mock.ExpectRollback()

	wantErr := errors.New("boom")
	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped boom error, got %v", err)
	}
}
