package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/groblegark/tangle/internal/model"
)

// queryGraphSnapshot fetches everything one graph build needs: the owner's
// tasks surviving the filter, in the default task order, each with its full
// tag list attached, plus the owner's unfiltered task and tag totals. Three
// queries total regardless of task count.
func queryGraphSnapshot(ctx context.Context, db executor, userID string, filter model.GraphFilter) (*model.GraphSnapshot, error) {
	whereClauses := []string{"user_id = $1"}
	args := []any{userID}
	argIdx := 1

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.Status != "" {
		whereClauses = append(whereClauses, "status = "+nextArg())
		args = append(args, string(filter.Status))
	}

	if filter.Tag != "" {
		p := nextArg()
		whereClauses = append(whereClauses,
			fmt.Sprintf("EXISTS (SELECT 1 FROM task_tags tt JOIN tags tg ON tg.id = tt.tag_id "+
				"WHERE tt.task_id = tasks.id AND (tg.id::text = %s OR LOWER(tg.name) = LOWER(%s)))", p, p))
		args = append(args, filter.Tag)
	}

	query := "SELECT " + taskColumns + " FROM tasks WHERE " +
		strings.Join(whereClauses, " AND ") + " ORDER BY position ASC, created_at DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("graph: list tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, fmt.Errorf("graph: scan tasks: %w", err)
	}

	if err := attachTags(ctx, db, tasks); err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}

	snap := &model.GraphSnapshot{Tasks: tasks}
	err = db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM tasks WHERE user_id = $1),
			(SELECT COUNT(*) FROM tags WHERE user_id = $1)`,
		userID,
	).Scan(&snap.TotalTasks, &snap.TotalTags)
	if err != nil {
		return nil, fmt.Errorf("graph: totals: %w", err)
	}

	return snap, nil
}

func queryUserStats(ctx context.Context, db executor, userID string) (*model.UserStats, error) {
	stats := &model.UserStats{}
	err := db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'todo' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN due_date IS NOT NULL AND due_date < CURRENT_DATE AND status <> 'done' THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM tags WHERE user_id = $1)
		FROM tasks WHERE user_id = $1`,
		userID,
	).Scan(
		&stats.TotalTasks,
		&stats.Todo,
		&stats.InProgress,
		&stats.Done,
		&stats.Overdue,
		&stats.TotalTags,
	)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}
