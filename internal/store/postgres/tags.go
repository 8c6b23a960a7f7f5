package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/groblegark/tangle/internal/model"
)

// tagColumns is the column list used for SELECT statements on the tags table.
const tagColumns = `id, user_id, name, color, created_at`

// tagColumnsWithCount adds the per-tag task count as a trailing column.
const tagColumnsWithCount = tagColumns +
	`, (SELECT COUNT(*) FROM task_tags tt WHERE tt.tag_id = tags.id) AS task_count`

func queryCreateTag(ctx context.Context, db executor, tg *model.Tag) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO tags (id, user_id, name, color)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		tg.ID, tg.UserID, tg.Name, tg.Color,
	).Scan(&tg.CreatedAt)
	return translateUnique(err)
}

func queryGetTag(ctx context.Context, db executor, userID, id string) (*model.Tag, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+tagColumnsWithCount+` FROM tags WHERE id = $1 AND user_id = $2`, id, userID)
	return scanTagWithCount(row)
}

func queryGetTagByName(ctx context.Context, db executor, userID, name string) (*model.Tag, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+tagColumnsWithCount+` FROM tags WHERE user_id = $1 AND LOWER(name) = LOWER($2)`,
		userID, name)
	return scanTagWithCount(row)
}

func queryListTags(ctx context.Context, db executor, userID string) ([]*model.Tag, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+tagColumnsWithCount+` FROM tags WHERE user_id = $1 ORDER BY name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*model.Tag
	for rows.Next() {
		tg, err := scanTagWithCount(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tg)
	}
	return tags, rows.Err()
}

func queryUpdateTag(ctx context.Context, db executor, tg *model.Tag) error {
	res, err := db.ExecContext(ctx, `
		UPDATE tags SET name = $3, color = $4
		WHERE id = $1 AND user_id = $2`,
		tg.ID, tg.UserID, tg.Name, tg.Color,
	)
	if err != nil {
		return translateUnique(err)
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

func queryDeleteTag(ctx context.Context, db executor, userID, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1 AND user_id = $2`, id, userID)
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

// queryMergeTags moves every association from tag fromID onto tag intoID,
// skipping tasks already carrying intoID, then deletes fromID. Both tags must
// belong to the user. Returns the surviving tag with refreshed counts.
// Callers are expected to run this inside a transaction.
func queryMergeTags(ctx context.Context, db executor, userID, fromID, intoID string) (*model.Tag, error) {
	if err := tagOwned(ctx, db, userID, fromID); err != nil {
		return nil, err
	}
	if err := tagOwned(ctx, db, userID, intoID); err != nil {
		return nil, err
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO task_tags (task_id, tag_id)
		SELECT task_id, $2 FROM task_tags WHERE tag_id = $1
		ON CONFLICT DO NOTHING`,
		fromID, intoID,
	)
	if err != nil {
		return nil, fmt.Errorf("move associations: %w", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM task_tags WHERE tag_id = $1`, fromID); err != nil {
		return nil, fmt.Errorf("clear merged tag: %w", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, fromID); err != nil {
		return nil, fmt.Errorf("delete merged tag: %w", err)
	}

	return queryGetTag(ctx, db, userID, intoID)
}

// queryRelatedTags returns up to limit tags most often co-occurring with the
// given tag on the same tasks, by shared task count.
func queryRelatedTags(ctx context.Context, db executor, userID, id string, limit int) ([]*model.Tag, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := db.QueryContext(ctx, `
		SELECT tg.id, tg.user_id, tg.name, tg.color, tg.created_at, COUNT(*) AS shared
		FROM task_tags a
		JOIN task_tags b ON b.task_id = a.task_id AND b.tag_id <> a.tag_id
		JOIN tags tg ON tg.id = b.tag_id
		WHERE a.tag_id = $1 AND tg.user_id = $2
		GROUP BY tg.id, tg.user_id, tg.name, tg.color, tg.created_at
		ORDER BY shared DESC, tg.name ASC
		LIMIT $3`,
		id, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*model.Tag
	for rows.Next() {
		var tg model.Tag
		var shared int
		if err := rows.Scan(&tg.ID, &tg.UserID, &tg.Name, &tg.Color, &tg.CreatedAt, &shared); err != nil {
			return nil, err
		}
		tg.TaskCount = shared
		tags = append(tags, &tg)
	}
	return tags, rows.Err()
}

func queryAutocompleteTags(ctx context.Context, db executor, userID, prefix string, limit int) ([]*model.Tag, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE user_id = $1 AND LOWER(name) LIKE LOWER($2) || '%'
		ORDER BY name ASC
		LIMIT $3`,
		userID, escapeLike(prefix), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTags(rows)
}

// escapeLike neutralizes LIKE wildcards in user input so a prefix search
// matches them literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
