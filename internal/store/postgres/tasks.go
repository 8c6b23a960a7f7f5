package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/groblegark/tangle/internal/model"
)

// taskColumns is the column list used for SELECT statements on the tasks table.
const taskColumns = `id, user_id, title, description, status, priority,
	due_date, position, completed_at, created_at, updated_at`

// priorityRank orders priorities high before medium before low.
const priorityRank = `CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 WHEN 'low' THEN 2 ELSE 3 END`

func queryCreateTask(ctx context.Context, db executor, t *model.Task) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO tasks (
			id, user_id, title, description, status, priority,
			due_date, position, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9
		)
		RETURNING created_at, updated_at`,
		t.ID,
		t.UserID,
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		nullTimePtr(t.DueDate),
		t.Position,
		nullTimePtr(t.CompletedAt),
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func queryGetTask(ctx context.Context, db executor, userID, id string) (*model.Task, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	t, err := scanTask(row)
	if err != nil {
		return nil, err
	}
	if err := attachTags(ctx, db, []*model.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func queryListTasks(ctx context.Context, db executor, userID string, filter model.TaskFilter) ([]*model.Task, int, error) {
	whereClauses := []string{"user_id = $1"}
	args := []any{userID}
	argIdx := 1

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = nextArg()
			args = append(args, string(s))
		}
		whereClauses = append(whereClauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(filter.Priority) > 0 {
		placeholders := make([]string, len(filter.Priority))
		for i, p := range filter.Priority {
			placeholders[i] = nextArg()
			args = append(args, string(p))
		}
		whereClauses = append(whereClauses, "priority IN ("+strings.Join(placeholders, ", ")+")")
	}

	if filter.Tag != "" {
		p := nextArg()
		whereClauses = append(whereClauses,
			fmt.Sprintf("EXISTS (SELECT 1 FROM task_tags tt JOIN tags tg ON tg.id = tt.tag_id "+
				"WHERE tt.task_id = tasks.id AND (tg.id::text = %s OR LOWER(tg.name) = LOWER(%s)))", p, p))
		args = append(args, filter.Tag)
	}

	if filter.Search != "" {
		p := nextArg()
		whereClauses = append(whereClauses,
			fmt.Sprintf("(title ILIKE '%%' || %s || '%%' OR description ILIKE '%%' || %s || '%%')", p, p))
		args = append(args, filter.Search)
	}

	if filter.DueBefore != nil {
		p := nextArg()
		whereClauses = append(whereClauses, "due_date IS NOT NULL AND due_date < "+p)
		args = append(args, *filter.DueBefore)
	}

	if filter.Overdue {
		whereClauses = append(whereClauses,
			"due_date IS NOT NULL AND due_date < CURRENT_DATE AND status <> 'done'")
	}

	whereSQL := " WHERE " + strings.Join(whereClauses, " AND ")

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + taskColumns + " FROM tasks" + whereSQL +
		" ORDER BY " + parseSortClause(filter.Sort)

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	var total int
	for rows.Next() {
		t, n, err := scanTaskWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan tasks: %w", err)
		}
		total = n
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan tasks: %w", err)
	}

	if err := attachTags(ctx, db, tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func queryUpdateTask(ctx context.Context, db executor, t *model.Task) error {
	return db.QueryRowContext(ctx, `
		UPDATE tasks SET
			title = $3,
			description = $4,
			status = $5,
			priority = $6,
			due_date = $7,
			position = $8,
			completed_at = $9,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`,
		t.ID,
		t.UserID,
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		nullTimePtr(t.DueDate),
		t.Position,
		nullTimePtr(t.CompletedAt),
	).Scan(&t.UpdatedAt)
}

func queryDeleteTask(ctx context.Context, db executor, userID, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// queryRelatedTasks returns the owner's other tasks that share at least one
// tag with the given task, in the default task order.
func queryRelatedTasks(ctx context.Context, db executor, userID, id string) ([]*model.Task, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1 AND id <> $2 AND EXISTS (
			SELECT 1 FROM task_tags a
			JOIN task_tags b ON a.tag_id = b.tag_id
			WHERE a.task_id = tasks.id AND b.task_id = $2
		)
		ORDER BY position ASC, created_at DESC`,
		userID, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if err := attachTags(ctx, db, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// querySetTaskTags replaces the task's tag set. Tags that do not belong to
// the owner count as missing and fail the whole operation.
func querySetTaskTags(ctx context.Context, db executor, userID, taskID string, tagIDs []string) error {
	if err := taskOwned(ctx, db, userID, taskID); err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("clear task tags: %w", err)
	}

	ids := dedupeIDs(tagIDs)
	if len(ids) == 0 {
		return nil
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO task_tags (task_id, tag_id)
		SELECT $1, id FROM tags WHERE user_id = $2 AND id = ANY($3)`,
		taskID, userID, pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("set task tags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if int(n) != len(ids) {
		return fmt.Errorf("tag not found: %w", sql.ErrNoRows)
	}
	return nil
}

func queryAddTaskTag(ctx context.Context, db executor, userID, taskID, tagID string) error {
	if err := taskOwned(ctx, db, userID, taskID); err != nil {
		return err
	}
	if err := tagOwned(ctx, db, userID, tagID); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO task_tags (task_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		taskID, tagID,
	)
	return err
}

func queryRemoveTaskTag(ctx context.Context, db executor, userID, taskID, tagID string) error {
	if err := taskOwned(ctx, db, userID, taskID); err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		DELETE FROM task_tags WHERE task_id = $1 AND tag_id = $2`,
		taskID, tagID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// attachTags loads each task's tag list, ordered by tag name, in one query.
func attachTags(ctx context.Context, db executor, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]string, len(tasks))
	byID := make(map[string]*model.Task, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		byID[t.ID] = t
	}

	rows, err := db.QueryContext(ctx, `
		SELECT tt.task_id, tg.id, tg.user_id, tg.name, tg.color, tg.created_at
		FROM task_tags tt
		JOIN tags tg ON tg.id = tt.tag_id
		WHERE tt.task_id = ANY($1)
		ORDER BY tg.name ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("attach tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID string
		var tg model.Tag
		if err := rows.Scan(&taskID, &tg.ID, &tg.UserID, &tg.Name, &tg.Color, &tg.CreatedAt); err != nil {
			return fmt.Errorf("scan task tag: %w", err)
		}
		if t, ok := byID[taskID]; ok {
			t.Tags = append(t.Tags, &tg)
		}
	}
	return rows.Err()
}

// taskOwned verifies the task exists and belongs to the user.
func taskOwned(ctx context.Context, db executor, userID, taskID string) error {
	var one int
	return db.QueryRowContext(ctx,
		`SELECT 1 FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID).Scan(&one)
}

// tagOwned verifies the tag exists and belongs to the user.
func tagOwned(ctx context.Context, db executor, userID, tagID string) error {
	var one int
	return db.QueryRowContext(ctx,
		`SELECT 1 FROM tags WHERE id = $1 AND user_id = $2`, tagID, userID).Scan(&one)
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func parseSortClause(sort string) string {
	defaultSort := priorityRank + ", created_at DESC"
	if sort == "" {
		return defaultSort
	}
	desc := strings.HasPrefix(sort, "-")
	col := strings.TrimPrefix(sort, "-")
	if col == "priority" {
		if desc {
			return priorityRank + " DESC, created_at DESC"
		}
		return defaultSort
	}
	allowed := map[string]bool{
		"due_date": true, "created_at": true, "updated_at": true,
		"title": true, "position": true,
	}
	if !allowed[col] {
		return defaultSort
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}
